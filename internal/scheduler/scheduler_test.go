package scheduler

import (
	"errors"
	"testing"
	"time"
)

func TestSchedulerAddJob(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()
	// Should add a valid cron job without error
	if err := s.AddJob(DefaultPruneSchedule, func() {}); err != nil {
		t.Errorf("Expected no error adding job, got %v", err)
	}
	if err := s.AddJob("every tuesday", func() {}); err == nil {
		t.Error("Expected an invalid expression to be rejected")
	}
}

type recordingPruner struct {
	cutoffs []time.Time
	err     error
}

func (p *recordingPruner) PruneVisitors(cutoff time.Time) (int64, error) {
	p.cutoffs = append(p.cutoffs, cutoff)
	return 2, p.err
}

func TestRetentionJobCutoff(t *testing.T) {
	now := time.Date(2026, 3, 1, 3, 0, 0, 0, time.UTC)
	p := &recordingPruner{}
	job := RetentionJob(p, 30*24*time.Hour, func() time.Time { return now })

	job()
	p.err = errors.New("db gone")
	job()

	if len(p.cutoffs) != 2 {
		t.Fatalf("Expected two prune calls, got %d", len(p.cutoffs))
	}
	want := time.Date(2026, 1, 30, 3, 0, 0, 0, time.UTC)
	if !p.cutoffs[0].Equal(want) {
		t.Errorf("Expected cutoff %v, got %v", want, p.cutoffs[0])
	}
}
