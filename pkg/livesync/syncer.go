package livesync

import (
	"context"
	"fmt"
	"time"

	"github.com/abrezinsky/pitchvote/internal/logger"
	"github.com/abrezinsky/pitchvote/internal/models"
)

// Backoff bounds the delay between stream reconnects
type Backoff struct {
	Initial time.Duration
	Max     time.Duration
}

// DefaultBackoff doubles from one second up to thirty
var DefaultBackoff = Backoff{Initial: time.Second, Max: 30 * time.Second}

func (b Backoff) next(current time.Duration) time.Duration {
	if current <= 0 {
		return b.Initial
	}
	current *= 2
	if current > b.Max {
		return b.Max
	}
	return current
}

// Syncer feeds an Agent from a primary source. While the primary is down it
// polls through the fallback so the view never stays silently stale.
type Syncer struct {
	agent    *Agent
	primary  Source
	fallback Source
	backoff  Backoff
	log      logger.Logger
}

// NewSyncer creates a syncer. fallback may be nil, and may equal primary
// when polling is the configured transport.
func NewSyncer(log logger.Logger, agent *Agent, primary, fallback Source, backoff Backoff) *Syncer {
	if backoff.Initial <= 0 {
		backoff = DefaultBackoff
	}
	if backoff.Max < backoff.Initial {
		backoff.Max = backoff.Initial
	}
	return &Syncer{agent: agent, primary: primary, fallback: fallback, backoff: backoff, log: log}
}

// Run blocks until ctx ends. Non-transient failures end Run with the error.
func (s *Syncer) Run(ctx context.Context) error {
	var delay time.Duration
	for {
		delivered := false
		err := s.primary.Run(ctx, func(state models.LiveState) {
			delivered = true
			s.agent.Apply(state)
		})
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !IsTransient(err) {
			return err
		}

		// A stream that delivered before failing starts the backoff over
		if delivered {
			delay = 0
		}
		delay = s.backoff.next(delay)
		s.log.Warn("Live state source failed, retrying", "source", s.primary.Name(), "error", err, "retry_in", delay)

		if err := s.wait(ctx, delay); err != nil {
			return err
		}
	}
}

// wait sleeps for d, polling the fallback meanwhile
func (s *Syncer) wait(ctx context.Context, d time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	if s.fallback != nil && s.fallback != s.primary {
		err := s.fallback.Run(waitCtx, func(state models.LiveState) {
			s.agent.Apply(state)
		})
		if err != nil && waitCtx.Err() == nil {
			s.log.Debug("Fallback source failed", "source", s.fallback.Name(), "error", err)
		}
	}

	<-waitCtx.Done()
	return ctx.Err()
}

// NewSource builds the source for a transport name: sse, ws or poll
func NewSource(transport, baseURL string, pollInterval time.Duration) (Source, error) {
	switch transport {
	case "ws":
		return NewWSSource(baseURL)
	case "poll":
		return NewPollSource(baseURL, pollInterval), nil
	case "sse", "":
		return NewSSESource(baseURL), nil
	default:
		return nil, fmt.Errorf("unknown transport %q", transport)
	}
}
