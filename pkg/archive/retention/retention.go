// Package retention prunes old runs from the archive, either on demand
// or on a cron schedule while watch mode is running.
package retention

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"classhub/gradekeeper/pkg/archive"
)

// Config contains configuration for the retention pruner.
type Config struct {
	// RetentionDays is how many days of archived runs to keep.
	// 0 means keep runs forever (no pruning).
	RetentionDays int

	// PruneSchedule is a cron expression for scheduled pruning
	// (e.g. "0 3 * * *" for daily at 3 AM). Empty disables the
	// scheduler; Prune can still be called directly.
	PruneSchedule string
}

// Pruner enforces the retention policy on the archive.
type Pruner struct {
	store   archive.Store
	config  Config
	cron    *cron.Cron
	logger  *slog.Logger
	mu      sync.Mutex
	running bool
}

// NewPruner creates a pruner over the given archive store.
func NewPruner(store archive.Store, config Config) *Pruner {
	return &Pruner{
		store:  store,
		config: config,
		cron:   cron.New(),
		logger: slog.Default().With("component", "archive.retention"),
	}
}

// Prune removes runs older than the retention period. Returns the
// number removed; a zero retention period removes nothing.
func (p *Pruner) Prune(ctx context.Context) (int, error) {
	if p.config.RetentionDays <= 0 {
		return 0, nil
	}
	cutoff := time.Now().AddDate(0, 0, -p.config.RetentionDays)
	removed, err := p.store.Prune(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("archive prune failed: %w", err)
	}
	if removed > 0 {
		p.logger.Info("pruned archived runs",
			"removed", removed,
			"retention_days", p.config.RetentionDays,
		)
	}
	return removed, nil
}

// Start begins scheduled pruning. It returns immediately; pruning runs
// on the cron schedule until the context is cancelled. A missing
// schedule or a zero retention period makes Start a no-op.
func (p *Pruner) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.config.PruneSchedule == "" || p.config.RetentionDays <= 0 {
		p.logger.Debug("retention scheduling disabled")
		return nil
	}

	_, err := p.cron.AddFunc(p.config.PruneSchedule, func() {
		if _, err := p.Prune(ctx); err != nil {
			p.logger.Error("scheduled pruning failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid prune schedule %q: %w", p.config.PruneSchedule, err)
	}

	p.cron.Start()
	p.running = true
	p.logger.Info("retention scheduler started",
		"schedule", p.config.PruneSchedule,
		"retention_days", p.config.RetentionDays,
	)

	go func() {
		<-ctx.Done()
		p.Stop()
	}()
	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (p *Pruner) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		<-p.cron.Stop().Done()
		p.running = false
		p.logger.Info("retention scheduler stopped")
	}
}
