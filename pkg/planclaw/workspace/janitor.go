// Package workspace – janitor.go sweeps idle plan workspaces on a cron
// schedule.
package workspace

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// JanitorConfig controls the workspace sweeper.
type JanitorConfig struct {
	// Schedule is a cron expression or shorthand (@hourly, @every 10m).
	// Defaults to "@every 10m".
	Schedule string `yaml:"schedule"`

	// TTL is how long a plan may sit unused before it is removed.
	// Defaults to 24h.
	TTL time.Duration `yaml:"ttl"`
}

// DefaultJanitorConfig returns the default sweep settings.
func DefaultJanitorConfig() JanitorConfig {
	return JanitorConfig{
		Schedule: "@every 10m",
		TTL:      24 * time.Hour,
	}
}

// Janitor periodically removes idle plan workspaces.
type Janitor struct {
	mgr    *Manager
	cfg    JanitorConfig
	cron   *cron.Cron
	logger *slog.Logger
}

// NewJanitor creates a janitor for mgr. Call Start to begin sweeping.
func NewJanitor(mgr *Manager, cfg JanitorConfig, logger *slog.Logger) *Janitor {
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultJanitorConfig().Schedule
	}
	if cfg.TTL == 0 {
		cfg.TTL = DefaultJanitorConfig().TTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Janitor{
		mgr:    mgr,
		cfg:    cfg,
		cron:   cron.New(),
		logger: logger.With("component", "janitor"),
	}
}

// Start schedules the sweep and runs the cron loop in the background.
func (j *Janitor) Start() error {
	if _, err := j.cron.AddFunc(j.cfg.Schedule, j.Sweep); err != nil {
		return fmt.Errorf("scheduling workspace sweep: %w", err)
	}
	j.cron.Start()
	j.logger.Info("janitor started", "schedule", j.cfg.Schedule, "ttl", j.cfg.TTL)
	return nil
}

// Stop halts the cron loop. Running sweeps finish.
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
}

// Sweep removes all plans idle longer than the TTL. Exposed so a
// shutdown path can run one final sweep synchronously.
func (j *Janitor) Sweep() {
	cutoff := time.Now().Add(-j.cfg.TTL)
	for _, plan := range j.mgr.IdleSince(cutoff) {
		if err := j.mgr.Remove(plan.ID); err != nil {
			j.logger.Warn("sweeping plan workspace", "plan", plan.ID, "error", err)
			continue
		}
		j.logger.Info("idle plan workspace removed", "plan", plan.ID)
	}
}
