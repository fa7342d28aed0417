package scheduler

import (
	"sync/atomic"
	"testing"
	"time"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestEveryRunsRepeatedly(t *testing.T) {
	s, err := New(nil)
	if err != nil {
		t.Fatal(err)
	}
	var runs atomic.Int32
	if err := s.Every("tick", 20*time.Millisecond, func() { runs.Add(1) }); err != nil {
		t.Fatal(err)
	}
	s.Start()
	defer s.Shutdown()

	waitFor(t, func() bool { return runs.Load() >= 2 })
}

func TestEveryNowRunsAtStart(t *testing.T) {
	s, err := New(nil)
	if err != nil {
		t.Fatal(err)
	}
	var runs atomic.Int32
	if err := s.EveryNow("warm", time.Hour, func() { runs.Add(1) }); err != nil {
		t.Fatal(err)
	}
	s.Start()
	defer s.Shutdown()

	waitFor(t, func() bool { return runs.Load() == 1 })
}

func TestEveryRejectsNonPositiveInterval(t *testing.T) {
	s, err := New(nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Shutdown()
	if err := s.Every("bad", 0, func() {}); err == nil {
		t.Error("expected error for zero interval")
	}
}

func TestShutdownStopsJobs(t *testing.T) {
	s, err := New(nil)
	if err != nil {
		t.Fatal(err)
	}
	var runs atomic.Int32
	s.Every("tick", 10*time.Millisecond, func() { runs.Add(1) })
	s.Start()
	waitFor(t, func() bool { return runs.Load() >= 1 })

	if err := s.Shutdown(); err != nil {
		t.Fatal(err)
	}
	after := runs.Load()
	time.Sleep(50 * time.Millisecond)
	if runs.Load() != after {
		t.Error("job kept running after shutdown")
	}
}
