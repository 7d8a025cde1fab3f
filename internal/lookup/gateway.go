package lookup

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// BreakerConfig tunes the circuit breaker guarding the downstream service.
type BreakerConfig struct {
	Name             string
	FailureThreshold uint32        // consecutive failures before the circuit opens
	Cooldown         time.Duration // how long the circuit stays open
	HalfOpenCalls    uint32        // trial calls allowed while half-open
}

// NewBreaker builds the shared breaker for a downstream service name.
// It is constructed once in wiring and injected, so tests can hold
// isolated instances.
func NewBreaker(cfg BreakerConfig, log *zap.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.HalfOpenCalls,
		Timeout:     cfg.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state change",
				zap.String("service", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
}

// Gateway wraps the downstream Service with the breaker. Failures never
// reach callers: every operation degrades to a deterministic safe value
// and the real error is kept in the logs, so operators can tell
// "confirmed absent" from "circuit open, assumed absent."
type Gateway struct {
	svc Service
	cb  *gobreaker.CircuitBreaker
	log *zap.Logger
}

func NewGateway(svc Service, cb *gobreaker.CircuitBreaker, log *zap.Logger) *Gateway {
	return &Gateway{svc: svc, cb: cb, log: log}
}

// GetByID fetches a single profile. Fallback: not found.
func (g *Gateway) GetByID(ctx context.Context, id int64) (*Profile, bool) {
	v, err := g.cb.Execute(func() (interface{}, error) {
		return g.svc.GetByID(ctx, id)
	})
	if err != nil {
		g.log.Error("user lookup fallback",
			zap.Int64("user_id", id),
			zap.Error(err),
		)
		return nil, false
	}

	p, _ := v.(*Profile)
	if p == nil {
		return nil, false
	}
	return p, true
}

// GetByIDs fetches a batch of profiles. Fallback: empty collection.
func (g *Gateway) GetByIDs(ctx context.Context, ids []int64) []Profile {
	v, err := g.cb.Execute(func() (interface{}, error) {
		return g.svc.GetByIDs(ctx, ids)
	})
	if err != nil {
		g.log.Error("user batch lookup fallback",
			zap.Int("count", len(ids)),
			zap.Error(err),
		)
		return nil
	}

	profiles, _ := v.([]Profile)
	return profiles
}

// ExistsByID checks user existence. Fallback: false.
func (g *Gateway) ExistsByID(ctx context.Context, id int64) bool {
	v, err := g.cb.Execute(func() (interface{}, error) {
		return g.svc.ExistsByID(ctx, id)
	})
	if err != nil {
		g.log.Error("user existence fallback",
			zap.Int64("user_id", id),
			zap.Error(err),
		)
		return false
	}

	exists, _ := v.(bool)
	return exists
}
