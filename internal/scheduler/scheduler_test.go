package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/quantumlife/lifeos/internal/audit"
	"github.com/quantumlife/lifeos/internal/core"
	"github.com/quantumlife/lifeos/internal/journal"
	"github.com/quantumlife/lifeos/internal/testutil"
)

func noop(ctx context.Context) error { return nil }

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestNew_UnknownTimezoneFallsBack(t *testing.T) {
	s := New(Config{Timezone: "Mars/Olympus"})
	if s.location != time.Local {
		t.Errorf("location = %v, want Local", s.location)
	}

	s = New(Config{Timezone: "UTC"})
	if s.Stats().Timezone != "UTC" {
		t.Errorf("timezone = %s", s.Stats().Timezone)
	}
}

func TestScheduler_RegisterValidation(t *testing.T) {
	tests := []struct {
		name string
		job  *Job
	}{
		{"missing id", &Job{Run: noop, Schedule: Every(time.Second)}},
		{"missing run", &Job{ID: "a", Schedule: Every(time.Second)}},
		{"zero interval", &Job{ID: "a", Run: noop, Schedule: Every(0)}},
		{"bad clock", &Job{ID: "a", Run: noop, Schedule: DailyAt("25:00")}},
		{"unknown kind", &Job{ID: "a", Run: noop, Schedule: Schedule{Kind: "cron"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := New(Config{}).Register(tt.job); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestScheduler_RegisterDefaults(t *testing.T) {
	s := New(Config{})
	testutil.AssertNoError(t, s.Register(&Job{ID: "a", Run: noop, Schedule: Every(time.Hour)}))

	job, ok := s.Job("a")
	if !ok {
		t.Fatal("job not found")
	}
	if !job.Enabled || job.Timeout != time.Minute || job.NextRun == nil {
		t.Errorf("job = %+v", job)
	}

	if err := s.Register(&Job{ID: "a", Run: noop, Schedule: Every(time.Hour)}); err == nil {
		t.Error("duplicate id should be rejected")
	}
}

func TestScheduler_NextRun(t *testing.T) {
	loc := time.UTC
	s := New(Config{Timezone: "UTC"})

	tests := []struct {
		name     string
		now      time.Time
		schedule Schedule
		want     time.Time
	}{
		{
			"interval",
			time.Date(2024, 1, 15, 10, 0, 0, 0, loc),
			Every(90 * time.Minute),
			time.Date(2024, 1, 15, 11, 30, 0, 0, loc),
		},
		{
			"daily later today",
			time.Date(2024, 1, 15, 10, 0, 0, 0, loc),
			DailyAt("21:00"),
			time.Date(2024, 1, 15, 21, 0, 0, 0, loc),
		},
		{
			"daily already passed",
			time.Date(2024, 1, 15, 22, 0, 0, 0, loc),
			DailyAt("21:00"),
			time.Date(2024, 1, 16, 21, 0, 0, 0, loc),
		},
		{
			"daily exactly now",
			time.Date(2024, 1, 15, 21, 0, 0, 0, loc),
			DailyAt("21:00"),
			time.Date(2024, 1, 16, 21, 0, 0, 0, loc),
		},
		{
			"daily across month end",
			time.Date(2024, 1, 31, 23, 0, 0, 0, loc),
			DailyAt("07:30"),
			time.Date(2024, 2, 1, 7, 30, 0, 0, loc),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s.now = func() time.Time { return tt.now }
			if got := s.nextRun(tt.schedule); !got.Equal(tt.want) {
				t.Errorf("nextRun = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScheduler_RunsIntervalJob(t *testing.T) {
	s := New(Config{})
	var runs atomic.Int32
	testutil.AssertNoError(t, s.Register(&Job{
		ID:       "tick",
		Schedule: Every(10 * time.Millisecond),
		Run: func(ctx context.Context) error {
			runs.Add(1)
			return nil
		},
	}))

	testutil.AssertNoError(t, s.Start())
	if err := s.Start(); err == nil {
		t.Error("second Start should fail")
	}

	waitFor(t, func() bool { return runs.Load() >= 3 })
	s.Stop()

	after := runs.Load()
	time.Sleep(30 * time.Millisecond)
	if runs.Load() != after {
		t.Error("job ran after Stop")
	}

	stats := s.Stats()
	if stats.Started || stats.TotalRuns < 3 || stats.TotalErrors != 0 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestScheduler_RecordsErrors(t *testing.T) {
	s := New(Config{})
	testutil.AssertNoError(t, s.Register(&Job{
		ID:       "fail",
		Schedule: Every(time.Hour),
		Run:      func(ctx context.Context) error { return errors.New("boom") },
	}))

	testutil.AssertNoError(t, s.RunNow("fail"))
	waitFor(t, func() bool {
		job, _ := s.Job("fail")
		return job.ErrorCount == 1
	})

	job, _ := s.Job("fail")
	if job.LastError != "boom" || job.RunCount != 1 || job.LastRun == nil {
		t.Errorf("job = %+v", job)
	}

	if err := s.RunNow("missing"); err == nil {
		t.Error("RunNow on unknown job should fail")
	}
}

func TestScheduler_TimeoutCancelsRun(t *testing.T) {
	s := New(Config{})
	testutil.AssertNoError(t, s.Register(&Job{
		ID:       "slow",
		Schedule: Every(time.Hour),
		Timeout:  10 * time.Millisecond,
		Run: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
	}))

	testutil.AssertNoError(t, s.RunNow("slow"))
	waitFor(t, func() bool {
		job, _ := s.Job("slow")
		return job.ErrorCount == 1
	})
	job, _ := s.Job("slow")
	if !strings.Contains(job.LastError, "deadline") {
		t.Errorf("LastError = %q", job.LastError)
	}
}

func TestScheduler_DisableEnable(t *testing.T) {
	s := New(Config{})
	var runs atomic.Int32
	testutil.AssertNoError(t, s.Register(&Job{
		ID:       "tick",
		Schedule: Every(5 * time.Millisecond),
		Run: func(ctx context.Context) error {
			runs.Add(1)
			return nil
		},
	}))
	testutil.AssertNoError(t, s.Disable("tick"))
	testutil.AssertNoError(t, s.Start())
	defer s.Stop()

	time.Sleep(30 * time.Millisecond)
	if runs.Load() != 0 {
		t.Fatalf("disabled job ran %d times", runs.Load())
	}
	if st := s.Stats(); st.EnabledJobs != 0 || st.RunningJobs != 0 {
		t.Errorf("stats = %+v", st)
	}

	testutil.AssertNoError(t, s.Enable("tick"))
	waitFor(t, func() bool { return runs.Load() > 0 })

	if err := s.Disable("missing"); err == nil {
		t.Error("Disable on unknown job should fail")
	}
	if err := s.Enable("missing"); err == nil {
		t.Error("Enable on unknown job should fail")
	}
}

func TestScheduler_UnregisterAndJobs(t *testing.T) {
	s := New(Config{})
	for _, id := range []string{"b", "a", "c"} {
		testutil.AssertNoError(t, s.Register(&Job{ID: id, Run: noop, Schedule: Every(time.Hour)}))
	}
	s.Unregister("c")

	jobs := s.Jobs()
	if len(jobs) != 2 || jobs[0].ID != "a" || jobs[1].ID != "b" {
		t.Errorf("jobs = %+v", jobs)
	}
	if _, ok := s.Job("c"); ok {
		t.Error("unregistered job still present")
	}
}

// =============================================================================
// Reminder Tests
// =============================================================================

type recordingNotifier struct {
	mu   sync.Mutex
	sent map[int64][]string
	err  error
}

func (n *recordingNotifier) Notify(chatID int64, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	if n.sent == nil {
		n.sent = make(map[int64][]string)
	}
	n.sent[chatID] = append(n.sent[chatID], text)
	return nil
}

func newReminder(t *testing.T) (*ReviewReminder, *journal.Ledger, *recordingNotifier, *audit.Store) {
	t.Helper()
	ledger := testutil.TestLedger(t)
	store := testutil.TestAudit(t)
	n := &recordingNotifier{}
	return &ReviewReminder{
		ChatID:   42,
		Notifier: n,
		Stats:    journal.NewStats(ledger),
		Audit:    audit.NewRecorder(store),
		Now:      func() time.Time { return testutil.FixedTime },
	}, ledger, n, store
}

func TestReviewReminder_AsksForMissing(t *testing.T) {
	r, ledger, n, store := newReminder(t)
	ctx := testutil.TestContext(t)

	testutil.AssertNoError(t, r.Run(ctx))
	first := n.sent[42][0]
	testutil.AssertContains(t, first, "/mood")
	testutil.AssertContains(t, first, "/review")

	if _, err := ledger.SaveMood(7, ""); err != nil {
		t.Fatal(err)
	}
	testutil.AssertNoError(t, r.Run(ctx))
	second := n.sent[42][1]
	if strings.Contains(second, "/mood") || !strings.Contains(second, "/review") {
		t.Errorf("second prompt = %q", second)
	}

	if _, err := ledger.SaveReview([]core.ReviewField{{Key: "Итоги", Value: "ок"}}); err != nil {
		t.Fatal(err)
	}
	testutil.AssertNoError(t, r.Run(ctx))
	if len(n.sent[42]) != 2 {
		t.Errorf("sent %d prompts, want 2", len(n.sent[42]))
	}

	count, err := store.Count()
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, count, 2)

	entries, err := store.Query(audit.QueryOptions{Action: audit.ActionReminderSent})
	testutil.AssertNoError(t, err)
	if len(entries) != 2 || entries[0].Actor != audit.ActorScheduler {
		t.Errorf("entries = %+v", entries)
	}
}

func TestReviewReminder_NotifyFailure(t *testing.T) {
	r, _, n, store := newReminder(t)
	n.err = errors.New("chat not found")

	if err := r.Run(testutil.TestContext(t)); err == nil {
		t.Error("expected error")
	}
	count, _ := store.Count()
	testutil.AssertEqual(t, count, 0)
}

func TestReviewReminder_Scheduled(t *testing.T) {
	r, _, n, _ := newReminder(t)
	r.Audit = nil

	s := New(Config{})
	job := r.Job("21:00")
	if job.ID != ReviewReminderID || job.Schedule.Kind != KindDaily {
		t.Fatalf("job = %+v", job)
	}
	testutil.AssertNoError(t, s.Register(job))
	testutil.AssertNoError(t, s.RunNow(ReviewReminderID))

	waitFor(t, func() bool {
		n.mu.Lock()
		defer n.mu.Unlock()
		return len(n.sent[42]) == 1
	})
}
