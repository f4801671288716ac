package scheduler

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/mindhaven/internal/logger"
)

const (
	// DefaultRetention is how long an idle conversation log is kept.
	DefaultRetention = 30 * 24 * time.Hour
	DefaultInterval  = 24 * time.Hour
)

// LogSweeper removes conversation logs idle for longer than retention.
type LogSweeper interface {
	Sweep(retention time.Duration) (int, error)
}

// SessionPurger drops expired sessions from an in-process store.
type SessionPurger interface {
	Purge() int
}

// Janitor periodically removes stale conversation logs and expired
// in-memory sessions. Either target may be nil.
type Janitor struct {
	logs      LogSweeper
	sessions  SessionPurger
	logger    logger.Logger
	interval  time.Duration
	retention time.Duration
	trigger   chan struct{}
	stopCh    chan struct{}
}

// NewJanitor creates a janitor. trigger, when non-nil, requests an
// immediate run between ticks.
func NewJanitor(
	logs LogSweeper,
	sessions SessionPurger,
	log logger.Logger,
	interval time.Duration,
	retention time.Duration,
	trigger chan struct{},
) *Janitor {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if interval <= 0 {
		interval = DefaultInterval
	}

	return &Janitor{
		logs:      logs,
		sessions:  sessions,
		logger:    log,
		interval:  interval,
		retention: retention,
		trigger:   trigger,
		stopCh:    make(chan struct{}),
	}
}

// Start runs one pass immediately, then one per interval until Stop or ctx ends.
func (j *Janitor) Start(ctx context.Context) error {
	if err := j.Collect(ctx); err != nil {
		j.logger.Warn("initial cleanup failed", logger.Error(err))
	}

	ticker := time.NewTicker(j.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := j.Collect(ctx); err != nil {
					j.logger.Error("cleanup failed", logger.Error(err))
				}
			case <-j.trigger:
				j.logger.Info("manual cleanup triggered")
				if err := j.Collect(ctx); err != nil {
					j.logger.Error("manual cleanup failed", logger.Error(err))
				}
			case <-j.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

func (j *Janitor) Stop() {
	close(j.stopCh)
}

// Collect runs a single cleanup pass.
func (j *Janitor) Collect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	logsRemoved := 0
	if j.logs != nil {
		n, err := j.logs.Sweep(j.retention)
		if err != nil {
			return err
		}
		logsRemoved = n
	}

	sessionsRemoved := 0
	if j.sessions != nil {
		sessionsRemoved = j.sessions.Purge()
	}

	if logsRemoved+sessionsRemoved > 0 {
		j.logger.Info("cleanup completed",
			logger.Int("chat_logs_removed", logsRemoved),
			logger.Int("sessions_removed", sessionsRemoved),
			logger.Duration("retention", j.retention))
	} else {
		j.logger.Debug("nothing to clean up")
	}
	return nil
}
