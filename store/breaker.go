package store

import (
	"context"
	"errors"
	"time"

	zlog "github.com/rs/zerolog/log"
	gobreaker "github.com/sony/gobreaker/v2"

	"investgroup/api/metrics"
	"investgroup/api/models"
)

type eventInserter interface {
	InsertEvent(ctx context.Context, e *models.Event) error
}

type BreakerConfig struct {
	Name             string
	FailureThreshold uint32
	// Timeout is how long the breaker stays open before letting a probe through.
	Timeout     time.Duration
	MaxRequests uint32
}

// BreakerWriter sends event writes through a circuit breaker so a dead
// database fails tracking calls immediately. Reads do not go through it.
type BreakerWriter struct {
	inner eventInserter
	cb    *gobreaker.CircuitBreaker[struct{}]
}

func NewBreakerWriter(inner eventInserter, cfg BreakerConfig) *BreakerWriter {
	if cfg.Name == "" {
		cfg.Name = "event-store"
	}
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = 1
	}

	metrics.BreakerState.WithLabelValues(cfg.Name).Set(float64(gobreaker.StateClosed))

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: countsAsSuccess,
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.BreakerState.WithLabelValues(name).Set(float64(to))
			zlog.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("event store breaker state changed")
		},
	}

	return &BreakerWriter{
		inner: inner,
		cb:    gobreaker.NewCircuitBreaker[struct{}](settings),
	}
}

// countsAsSuccess keeps caller cancellations out of the failure count; they
// say nothing about the health of the database.
func countsAsSuccess(err error) bool {
	return err == nil || errors.Is(err, context.Canceled)
}

func (s *BreakerWriter) State() gobreaker.State {
	return s.cb.State()
}

func (s *BreakerWriter) InsertEvent(ctx context.Context, e *models.Event) error {
	_, err := s.cb.Execute(func() (struct{}, error) {
		return struct{}{}, s.inner.InsertEvent(ctx, e)
	})
	return err
}
