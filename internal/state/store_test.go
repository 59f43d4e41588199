package state

import (
	"errors"
	"testing"
	"time"
)

func TestStoreLifecycle(t *testing.T) {
	s := New()

	if s.Snapshot().Healthy() {
		t.Fatal("expected unhealthy before first refresh")
	}

	t0 := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s.RecordSuccess(t0, time.Second)
	st := s.Snapshot()
	if !st.Healthy() || st.Successes != 1 || !st.LastSuccess.Equal(t0) {
		t.Fatalf("unexpected status after success: %+v", st)
	}

	t1 := t0.Add(time.Minute)
	s.RecordFailure(t1, 2*time.Second, errors.New("get /api/users: http 500"))
	st = s.Snapshot()
	if st.Healthy() {
		t.Fatal("expected unhealthy after failure")
	}
	if st.Failures != 1 || !st.LastAttempt.Equal(t1) || !st.LastSuccess.Equal(t0) {
		t.Fatalf("unexpected status after failure: %+v", st)
	}
	if st.LastError != "get /api/users: http 500" {
		t.Fatalf("last error %q", st.LastError)
	}

	s.RecordSuccess(t1.Add(time.Minute), time.Second)
	if st = s.Snapshot(); !st.Healthy() || st.Successes != 2 {
		t.Fatalf("expected recovery: %+v", st)
	}
}
