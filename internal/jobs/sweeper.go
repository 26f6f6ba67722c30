// Package jobs holds periodic maintenance work scheduled with cron.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/layer-3/walletauth/internal/logging"
)

// Sweepable drops challenges and sessions that expired before now.
type Sweepable interface {
	Sweep(ctx context.Context, now time.Time) (challenges, sessions int, err error)
}

// Sweeper bounds the memory held by expired entries. Expiry itself is
// enforced on lookup; sweeping only reclaims what nobody looked up again.
type Sweeper struct {
	target  Sweepable
	log     logging.Logger
	now     func() time.Time
	timeout time.Duration
}

func NewSweeper(target Sweepable, log logging.Logger) *Sweeper {
	return &Sweeper{
		target:  target,
		log:     log.With("job", "sweeper"),
		now:     time.Now,
		timeout: 30 * time.Second,
	}
}

// Schedule registers the sweeper on c under a standard cron spec or a descriptor such as "@every 1m".
func (s *Sweeper) Schedule(c *cron.Cron, spec string) (cron.EntryID, error) {
	id, err := c.AddJob(spec, s)
	if err != nil {
		return 0, fmt.Errorf("failed to schedule sweeper: %w", err)
	}
	return id, nil
}

// Run implements cron.Job.
func (s *Sweeper) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	challenges, sessions, err := s.target.Sweep(ctx, s.now())
	if err != nil {
		s.log.Error(ctx, "sweep failed", "error", err)
		return
	}
	if challenges > 0 || sessions > 0 {
		s.log.Info(ctx, "swept expired entries", "challenges", challenges, "sessions", sessions)
	}
}
