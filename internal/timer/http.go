package timer

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPStore persists the timer as a remote object behind a plain HTTP(S)
// endpoint: GET reads it, PUT replaces it. This covers S3-compatible object
// stores and anything else that speaks simple blob semantics.
type HTTPStore struct {
	client *http.Client
	url    string
}

// NewHTTPStore returns an HTTPStore for the object at baseURL/key.
// The timeout bounds every request so a stuck store cannot block an
// evaluation indefinitely.
func NewHTTPStore(baseURL, key string, timeout time.Duration) *HTTPStore {
	return &HTTPStore{
		url:    strings.TrimRight(baseURL, "/") + "/" + key,
		client: &http.Client{Timeout: timeout},
	}
}

// Read implements Store.
func (s *HTTPStore) Read() (int64, error) {
	resp, err := s.client.Get(s.url)
	if err != nil {
		return 0, fmt.Errorf("get timer object: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return 0, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("get timer object: unexpected status %s", resp.Status)
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 64))
	if err != nil {
		return 0, fmt.Errorf("read timer object body: %w", err)
	}

	return Parse(payload)
}

// Write implements Store.
func (s *HTTPStore) Write(ts int64) error {
	req, err := http.NewRequest(http.MethodPut, s.url, bytes.NewReader(Format(ts)))
	if err != nil {
		return fmt.Errorf("build timer put request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("put timer object: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusNoContent:
		return nil
	default:
		return fmt.Errorf("put timer object: unexpected status %s", resp.Status)
	}
}
