package timer

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// objectServer is a minimal in-memory blob endpoint: GET reads, PUT replaces.
type objectServer struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newObjectServer() *objectServer {
	return &objectServer{objects: make(map[string][]byte)}
}

func (o *objectServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch r.Method {
	case http.MethodGet:
		payload, ok := o.objects[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(payload)
	case http.MethodPut:
		payload, _ := io.ReadAll(r.Body)
		o.objects[r.URL.Path] = payload
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (o *objectServer) get(path string) string {
	o.mu.Lock()
	defer o.mu.Unlock()

	return string(o.objects[path])
}

func TestHTTPStore_ReadMissing(t *testing.T) {
	srv := httptest.NewServer(newObjectServer())
	defer srv.Close()

	store := NewHTTPStore(srv.URL, "timer.txt", time.Second)

	_, err := store.Read()
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestHTTPStore_WriteReadRoundTrip(t *testing.T) {
	backend := newObjectServer()
	srv := httptest.NewServer(backend)
	defer srv.Close()

	store := NewHTTPStore(srv.URL+"/", "timer.txt", time.Second)

	if err := store.Write(1700000000); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if got := backend.get("/timer.txt"); got != "1700000000" {
		t.Errorf("stored object should be the decimal timestamp, got %q", got)
	}

	got, err := store.Read()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if got != 1700000000 {
		t.Errorf("expected 1700000000, got %d", got)
	}
}

func TestHTTPStore_ReadCorrupt(t *testing.T) {
	backend := newObjectServer()
	backend.objects["/timer.txt"] = []byte("oops")
	srv := httptest.NewServer(backend)
	defer srv.Close()

	_, err := NewHTTPStore(srv.URL, "timer.txt", time.Second).Read()
	if !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
}

func TestHTTPStore_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	store := NewHTTPStore(srv.URL, "timer.txt", time.Second)

	if _, err := store.Read(); err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("expected a generic read error, got %v", err)
	}
	if err := store.Write(1); err == nil {
		t.Error("expected a write error")
	}
}

func TestHTTPStore_Unreachable(t *testing.T) {
	// Reserved TEST-NET-1 address, nothing listens there.
	store := NewHTTPStore("http://192.0.2.1:9", "timer.txt", 50*time.Millisecond)

	if _, err := store.Read(); err == nil {
		t.Error("expected a connection error")
	}
}
