// Package scheduler runs periodic maintenance jobs for the reveal server.
//
// Jobs are registered with cron expressions; the only job today prunes visitors
// that never reached the letter.
package scheduler

import (
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultPruneSchedule runs visitor pruning daily at 03:00 server time.
const DefaultPruneSchedule = "0 3 * * *"

// Scheduler provides cron-based job scheduling.
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler creates and starts a cron scheduler.
func NewScheduler() *Scheduler {
	// Use standard 5-field cron parser (min, hour, dom, month, dow) and enable recovery
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	c := cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cron.DefaultLogger)))
	c.Start()
	return &Scheduler{cron: c}
}

// AddJob schedules a task using the provided cron expression.
// It returns an error if the expression is invalid.
func (s *Scheduler) AddJob(expr string, task func()) error {
	_, err := s.cron.AddFunc(expr, task)
	return err
}

// Stop stops the cron scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Pruner deletes unfinished visitors older than a cutoff.
type Pruner interface {
	PruneVisitors(cutoff time.Time) (int64, error)
}

// RetentionJob returns a task that deletes visitors who never finished the
// flow within keep of their creation.
func RetentionJob(p Pruner, keep time.Duration, now func() time.Time) func() {
	return func() {
		cutoff := now().Add(-keep)
		n, err := p.PruneVisitors(cutoff)
		if err != nil {
			slog.Error("RetentionJob: prune failed", "error", err, "cutoff", cutoff)
			return
		}
		slog.Info("RetentionJob: pruned unfinished visitors", "deleted", n, "cutoff", cutoff)
	}
}
