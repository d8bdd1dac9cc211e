// README: Coefficient service; holds the active coefficient set and installs updates atomically.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot is the coefficient set in force at one moment. Scoring calls hold
// on to a single Snapshot for their whole duration.
type Snapshot struct {
	Coefficients Coefficients `json:"coefficients"`
	Version      int64        `json:"version"`
	Source       string       `json:"source"`
	InstalledAt  time.Time    `json:"installedAt"`
}

type Service struct {
	mu      sync.Mutex
	current atomic.Pointer[Snapshot]
	store   VersionStore
	logger  *slog.Logger
}

// NewService starts with initial as version 0. store may be nil, in which
// case updates live only in memory.
func NewService(initial Coefficients, store VersionStore, logger *slog.Logger) (*Service, error) {
	if err := initial.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{store: store, logger: logger}
	s.current.Store(&Snapshot{Coefficients: initial, Source: "initial", InstalledAt: time.Now()})
	return s, nil
}

func (s *Service) Snapshot() *Snapshot {
	return s.current.Load()
}

func (s *Service) Coefficients() Coefficients {
	return s.current.Load().Coefficients
}

// Restore installs the latest persisted version, if any.
func (s *Service) Restore(ctx context.Context) (bool, error) {
	if s.store == nil {
		return false, nil
	}
	v, err := s.store.Latest(ctx)
	if errors.Is(err, ErrNoVersion) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("restore coefficients: %w", err)
	}
	if err := v.Coefficients.Validate(); err != nil {
		return false, fmt.Errorf("restore coefficients version %d: %w", v.Version, err)
	}
	s.mu.Lock()
	s.current.Store(&Snapshot{Coefficients: v.Coefficients, Version: v.Version, Source: v.Source, InstalledAt: time.Now()})
	s.mu.Unlock()
	s.logger.Info("coefficients restored", "version", v.Version, "source", v.Source)
	return true, nil
}

// Update validates, persists and installs c.
func (s *Service) Update(ctx context.Context, c Coefficients, source string) (*Snapshot, error) {
	return s.install(ctx, source, func(Coefficients) (Coefficients, error) { return c, nil })
}

// ApplyDelta installs current + rate*delta.
func (s *Service) ApplyDelta(ctx context.Context, delta Coefficients, rate float64) (*Snapshot, error) {
	return s.install(ctx, "delta", func(cur Coefficients) (Coefficients, error) {
		return Step(cur, delta, rate)
	})
}

// Train runs one batch gradient-descent step of the logistic loss over
// examples and installs the result.
func (s *Service) Train(ctx context.Context, examples []Example, rate float64) (*Snapshot, error) {
	return s.install(ctx, "train", func(cur Coefficients) (Coefficients, error) {
		g, err := Gradient(cur, examples)
		if err != nil {
			return Coefficients{}, err
		}
		return Step(cur, g.Negate(), rate)
	})
}

// install derives the next set from the current one, persists it and swaps
// it in. Writers are serialized; readers never block.
func (s *Service) install(ctx context.Context, source string, next func(Coefficients) (Coefficients, error)) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cur := s.current.Load()
	c, err := next(cur.Coefficients)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	snap := &Snapshot{Coefficients: c, Version: cur.Version + 1, Source: source, InstalledAt: time.Now()}
	if s.store != nil {
		v, err := s.store.Save(ctx, c, source)
		if err != nil {
			return nil, fmt.Errorf("persist coefficients: %w", err)
		}
		snap.Version = v.Version
	}
	s.current.Store(snap)
	s.logger.Info("coefficients updated", "version", snap.Version, "source", source)
	return snap, nil
}

// History lists persisted versions, newest first.
func (s *Service) History(ctx context.Context, limit int) ([]Version, error) {
	if s.store == nil {
		return nil, nil
	}
	return s.store.List(ctx, limit)
}
