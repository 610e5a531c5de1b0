package storage

import (
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Pruner periodically removes research records past their bounded lifetime.
type Pruner struct {
	repo     ResearchRepo
	lifetime time.Duration
	cron     *cron.Cron
}

// NewPruner creates a Pruner that deletes research records older than
// lifetime on the given cron schedule (e.g. "@daily").
func NewPruner(repo ResearchRepo, lifetime time.Duration) *Pruner {
	return &Pruner{
		repo:     repo,
		lifetime: lifetime,
		cron:     cron.New(),
	}
}

// Start schedules the prune job and starts the cron scheduler.
func (p *Pruner) Start(schedule string) error {
	_, err := p.cron.AddFunc(schedule, p.runOnce)
	if err != nil {
		return err
	}
	p.cron.Start()
	slog.Info("research pruner started", "schedule", schedule, "lifetime", p.lifetime)
	return nil
}

// Stop stops the scheduler, waiting for a running prune to finish.
func (p *Pruner) Stop() {
	<-p.cron.Stop().Done()
}

func (p *Pruner) runOnce() {
	cutoff := time.Now().Add(-p.lifetime)
	pruned, err := p.repo.Prune(cutoff)
	if err != nil {
		slog.Error("research prune failed", "error", err)
		return
	}
	if pruned > 0 {
		slog.Info("research records pruned", "count", pruned, "cutoff", cutoff)
	}
}
