package service

import (
	"sync"
	"testing"
	"time"

	"taskstreak/internal/logging"
)

func TestBuildDailySpec(t *testing.T) {
	spec, err := buildDailySpec("08:30")
	if err != nil || spec != "0 30 8 * * *" {
		t.Fatalf("got %q %v", spec, err)
	}
	if _, err := buildDailySpec("8h30"); err == nil {
		t.Fatal("expected error for malformed time")
	}
}

func TestSchedulerService_Register(t *testing.T) {
	s := NewSchedulerService(time.UTC, logging.Discard())

	if _, err := s.ScheduleInterval(0, func() {}); err == nil {
		t.Fatal("expected error for zero interval")
	}
	if _, err := s.ScheduleInterval(15*time.Minute, func() {}); err != nil {
		t.Fatalf("ScheduleInterval: %v", err)
	}
	if _, err := s.ScheduleDaily("07:00", func() {}); err != nil {
		t.Fatalf("ScheduleDaily: %v", err)
	}
	if _, err := s.ScheduleDaily("7am", func() {}); err == nil {
		t.Fatal("expected error for bad daily time")
	}
	if n := len(s.Entries()); n != 2 {
		t.Fatalf("expected 2 entries, got %d", n)
	}
}

func TestSchedulerService_EntriesReportNextRun(t *testing.T) {
	s := NewSchedulerService(time.UTC, logging.Discard())
	if _, err := s.ScheduleInterval(15*time.Minute, func() {}); err != nil {
		t.Fatalf("ScheduleInterval: %v", err)
	}
	if _, err := s.ScheduleDaily("07:00", func() {}); err != nil {
		t.Fatalf("ScheduleDaily: %v", err)
	}

	before := time.Now()
	s.Start()
	defer s.Stop()

	entries := s.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	for _, e := range entries {
		if !e.Next.After(before) {
			t.Errorf("entry %d has no upcoming run: %v", e.ID, e.Next)
		}
	}
}

func TestSchedulerService_RecoversPanickingJob(t *testing.T) {
	s := NewSchedulerService(time.UTC, logging.Discard())
	var once sync.Once
	ran := make(chan struct{})
	if _, err := s.ScheduleInterval(time.Second, func() {
		once.Do(func() { close(ran) })
		panic("boom")
	}); err != nil {
		t.Fatalf("ScheduleInterval: %v", err)
	}

	s.Start()
	defer s.Stop()
	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not run")
	}
}

func TestTaskLocks(t *testing.T) {
	locks := NewTaskLocks()
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		active  int
		overlap bool
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock(7)
			defer unlock()
			mu.Lock()
			active++
			if active > 1 {
				overlap = true
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()
	if overlap {
		t.Fatal("two holders of the same task lock")
	}
	if locks.size() != 0 {
		t.Fatalf("expected lock table to drain, got %d", locks.size())
	}

	a := locks.Lock(1)
	b := locks.Lock(2)
	a()
	b()
}
