package engine

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/fragwatch/fragwatch/internal/config"
	"github.com/fragwatch/fragwatch/internal/models"
	"github.com/fragwatch/fragwatch/internal/timer"
)

// fakeTimer is an in-memory timer.Store with scriptable failures.
type fakeTimer struct {
	readErr  error
	writeErr error
	ts       int64
	exists   bool
	writes   []int64
}

func (f *fakeTimer) Read() (int64, error) {
	if f.readErr != nil {
		return 0, f.readErr
	}
	if !f.exists {
		return 0, timer.ErrNotFound
	}
	return f.ts, nil
}

func (f *fakeTimer) Write(ts int64) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.ts = ts
	f.exists = true
	f.writes = append(f.writes, ts)
	return nil
}

// fakeSource returns a fixed snapshot and counts queries.
type fakeSource struct {
	err     error
	snap    models.Snapshot
	queries int
}

func (f *fakeSource) Query() (models.Snapshot, error) {
	f.queries++
	if f.err != nil {
		return models.Snapshot{}, f.err
	}
	return f.snap, nil
}

// recorder captures sent notifications.
type recorder struct {
	err      error
	subjects []string
	bodies   []string
}

func (r *recorder) Send(subject, body string) error {
	if r.err != nil {
		return r.err
	}
	r.subjects = append(r.subjects, subject)
	r.bodies = append(r.bodies, body)
	return nil
}

const testNow = int64(1700000000)

func newTestEngine(store *fakeTimer, src *fakeSource, rec *recorder) *Engine {
	return New(store, src, rec, nil, Options{
		Now:           func() time.Time { return time.Unix(testNow, 0) },
		Mode:          config.ModeThreshold,
		ServerAddress: "203.0.113.9:27015",
		SubjectPrefix: "[URGENT]",
		Threshold:     5,
		Cooldown:      30 * time.Minute,
	})
}

func TestEvaluate_FirstRunInitializesTimer(t *testing.T) {
	store := &fakeTimer{}
	src := &fakeSource{snap: models.Snapshot{PlayerCount: 9}}
	rec := &recorder{}

	res := newTestEngine(store, src, rec).Evaluate()

	if res.StatusCode != models.StatusOK {
		t.Fatalf("expected status %d, got %d (%s)", models.StatusOK, res.StatusCode, res.Body)
	}
	if len(store.writes) != 1 || store.writes[0] != testNow {
		t.Errorf("expected one timer write with %d, got %v", testNow, store.writes)
	}
	if src.queries != 0 {
		t.Errorf("first run must not query the metric source, got %d queries", src.queries)
	}
}

func TestEvaluate_FirstRunNotificationIsBestEffort(t *testing.T) {
	store := &fakeTimer{}
	rec := &recorder{err: errors.New("channel down")}

	res := newTestEngine(store, &fakeSource{}, rec).Evaluate()

	if res.StatusCode != models.StatusOK {
		t.Errorf("first-run result must stay OK even if the heads-up fails, got %d", res.StatusCode)
	}
	if !store.exists {
		t.Error("timer should have been initialized")
	}
}

func TestEvaluate_CooldownActiveIsNoOp(t *testing.T) {
	store := &fakeTimer{exists: true, ts: testNow + 600}
	src := &fakeSource{snap: models.Snapshot{PlayerCount: 99}}
	rec := &recorder{}

	res := newTestEngine(store, src, rec).Evaluate()

	if res.StatusCode != models.StatusOK {
		t.Fatalf("expected OK, got %d (%s)", res.StatusCode, res.Body)
	}
	if src.queries != 0 {
		t.Error("cooldown active, the metric source must not be queried")
	}
	if len(rec.subjects) != 0 {
		t.Errorf("cooldown active, nothing should be sent, got %v", rec.subjects)
	}
	if len(store.writes) != 0 {
		t.Errorf("cooldown active, the timer must not be written, got %v", store.writes)
	}
}

func TestEvaluate_NoPlayers(t *testing.T) {
	// Timer elapsed 10 seconds ago.
	store := &fakeTimer{exists: true, ts: testNow - 10}
	src := &fakeSource{snap: models.Snapshot{PlayerCount: 0}}
	rec := &recorder{}

	res := newTestEngine(store, src, rec).Evaluate()

	if res.StatusCode != models.StatusOK || res.Body != "There were no players" {
		t.Errorf("unexpected result %d %q", res.StatusCode, res.Body)
	}
	if len(store.writes) != 0 || len(rec.subjects) != 0 {
		t.Error("no players must have no side effects")
	}
}

func TestEvaluate_BelowThreshold(t *testing.T) {
	store := &fakeTimer{exists: true, ts: testNow}
	src := &fakeSource{snap: models.Snapshot{PlayerCount: 3}}
	rec := &recorder{}

	res := newTestEngine(store, src, rec).Evaluate()

	if res.StatusCode != models.StatusOK {
		t.Fatalf("expected OK, got %d (%s)", res.StatusCode, res.Body)
	}
	if !strings.Contains(res.Body, "3 players") || !strings.Contains(res.Body, "threshold is 5") {
		t.Errorf("unexpected body %q", res.Body)
	}
	if len(store.writes) != 0 || len(rec.subjects) != 0 {
		t.Error("below threshold must have no side effects")
	}
}

func TestEvaluate_ThresholdReached(t *testing.T) {
	store := &fakeTimer{exists: true, ts: testNow - 1}
	src := &fakeSource{snap: models.Snapshot{PlayerCount: 7, ServerName: "2Fort 24/7"}}
	rec := &recorder{}

	res := newTestEngine(store, src, rec).Evaluate()

	if res.StatusCode != models.StatusOK || res.Body != "Email sent successfully" {
		t.Fatalf("unexpected result %d %q", res.StatusCode, res.Body)
	}

	wantTS := testNow + 1800
	if len(store.writes) != 1 || store.writes[0] != wantTS {
		t.Errorf("expected timer write with %d, got %v", wantTS, store.writes)
	}

	if len(rec.bodies) != 1 {
		t.Fatalf("expected exactly one notification, got %d", len(rec.bodies))
	}
	body := rec.bodies[0]
	for _, want := range []string{"7", "2Fort 24/7", "203.0.113.9:27015", timer.HumanTime(wantTS)} {
		if !strings.Contains(body, want) {
			t.Errorf("notification body missing %q: %q", want, body)
		}
	}
	if !strings.HasPrefix(rec.subjects[0], "[URGENT]") {
		t.Errorf("subject missing prefix: %q", rec.subjects[0])
	}
}

func TestEvaluate_IdempotentAfterCooling(t *testing.T) {
	store := &fakeTimer{exists: true, ts: testNow}
	src := &fakeSource{snap: models.Snapshot{PlayerCount: 7}}
	rec := &recorder{}
	eng := newTestEngine(store, src, rec)

	if res := eng.Evaluate(); res.Failed() {
		t.Fatalf("first evaluation failed: %s", res.Body)
	}
	// Same clock, timer now points 30 minutes ahead.
	res := eng.Evaluate()

	if res.StatusCode != models.StatusOK {
		t.Fatalf("expected no-op OK, got %d (%s)", res.StatusCode, res.Body)
	}
	if len(rec.subjects) != 1 {
		t.Errorf("re-invocation during cooldown must not notify again, got %d sends", len(rec.subjects))
	}
}

func TestEvaluate_ReadErrorNotifies(t *testing.T) {
	store := &fakeTimer{readErr: errors.New("connection reset")}
	src := &fakeSource{}
	rec := &recorder{}

	res := newTestEngine(store, src, rec).Evaluate()

	if res.StatusCode != models.StatusError {
		t.Fatalf("expected status %d, got %d", models.StatusError, res.StatusCode)
	}
	if src.queries != 0 {
		t.Error("read error must abort before the metric query")
	}
	if len(rec.bodies) != 1 || !strings.Contains(rec.bodies[0], "connection reset") {
		t.Errorf("expected one error notification describing the failure, got %v", rec.bodies)
	}
}

func TestEvaluate_CorruptTimerNotifies(t *testing.T) {
	store := &fakeTimer{readErr: fmt.Errorf("%w: %q is not a Unix timestamp", timer.ErrCorrupt, "banana")}
	rec := &recorder{}

	res := newTestEngine(store, &fakeSource{}, rec).Evaluate()

	if res.StatusCode != models.StatusError {
		t.Fatalf("expected error status, got %d", res.StatusCode)
	}
	// Corrupt payloads converge with read errors but stay identifiable.
	if len(rec.bodies) != 1 || !strings.Contains(rec.bodies[0], "banana") {
		t.Errorf("expected the corrupt value in the notification, got %v", rec.bodies)
	}
}

func TestEvaluate_QueryErrorNotifies(t *testing.T) {
	store := &fakeTimer{exists: true, ts: testNow}
	src := &fakeSource{err: errors.New("i/o timeout")}
	rec := &recorder{}

	res := newTestEngine(store, src, rec).Evaluate()

	if res.StatusCode != models.StatusError {
		t.Fatalf("expected error status, got %d", res.StatusCode)
	}
	if len(rec.bodies) != 1 || !strings.Contains(rec.bodies[0], "i/o timeout") {
		t.Errorf("expected one error notification, got %v", rec.bodies)
	}
	if len(store.writes) != 0 {
		t.Error("query error must not touch the timer")
	}
}

func TestEvaluate_WriteFailureStillNotifies(t *testing.T) {
	store := &fakeTimer{exists: true, ts: testNow, writeErr: errors.New("disk full")}
	src := &fakeSource{snap: models.Snapshot{PlayerCount: 8}}
	rec := &recorder{}

	res := newTestEngine(store, src, rec).Evaluate()

	if res.StatusCode != models.StatusError {
		t.Fatalf("expected error status after a write failure, got %d", res.StatusCode)
	}
	// The threshold notification itself must still go out.
	if len(rec.subjects) != 1 || !strings.Contains(rec.subjects[0], "threshold") {
		t.Errorf("expected the threshold notification despite the write failure, got %v", rec.subjects)
	}
	if !strings.Contains(res.Body, "disk full") {
		t.Errorf("result should describe the write failure, got %q", res.Body)
	}
}

func TestEvaluate_SendFailureReported(t *testing.T) {
	store := &fakeTimer{exists: true, ts: testNow}
	src := &fakeSource{snap: models.Snapshot{PlayerCount: 8}}
	rec := &recorder{err: errors.New("smtp 554")}

	res := newTestEngine(store, src, rec).Evaluate()

	if res.StatusCode != models.StatusError {
		t.Fatalf("expected error status after a send failure, got %d", res.StatusCode)
	}
	// The timer write is kept: the cooldown is armed even though delivery failed.
	if len(store.writes) != 1 {
		t.Errorf("expected the timer write to stand, got %v", store.writes)
	}
	if !strings.Contains(res.Body, "smtp 554") {
		t.Errorf("result should describe the send failure, got %q", res.Body)
	}
}

func TestRun_DispatchesByMode(t *testing.T) {
	store := &fakeTimer{exists: true, ts: testNow + 600}
	eng := newTestEngine(store, &fakeSource{}, &recorder{})

	res := eng.Run()
	if !strings.Contains(res.Body, "haven't passed the target time") {
		t.Errorf("threshold mode dispatch failed, got %q", res.Body)
	}
}
