// README: Resolver capability with a pure-analytic and a remote-then-fallback implementation.
package geo

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"ridescore/internal/types"
)

// Result is one resolved distance.
type Result struct {
	Miles    float64
	Duration time.Duration // zero when computed analytically
	Fallback bool          // true when the analytic path produced Miles
}

// Resolver is the distance capability consumed by feature extraction.
type Resolver interface {
	Distance(ctx context.Context, from, to types.Point) (Result, error)
}

// Leg is a successful provider answer.
type Leg struct {
	Miles    float64
	Duration time.Duration
}

// Provider is a remote driving-distance source. Transport failures, per-pair
// non-OK statuses, and timeouts are all reported as errors.
type Provider interface {
	DrivingDistance(ctx context.Context, from, to types.Point) (Leg, error)
}

// Analytic resolves every pair with the haversine formula. It never touches
// the network and is deterministic.
type Analytic struct{}

func (Analytic) Distance(_ context.Context, from, to types.Point) (Result, error) {
	if err := checkPoints(from, to); err != nil {
		return Result{}, err
	}
	return Result{Miles: HaversineMiles(from, to), Fallback: true}, nil
}

// FallbackResolver asks the provider first and falls back to haversine on any
// provider error. Provider failures never escape Distance.
type FallbackResolver struct {
	provider  Provider
	timeout   time.Duration
	logger    *slog.Logger
	fallbacks atomic.Int64
}

// NewFallbackResolver wraps provider. A zero timeout leaves the caller's
// deadline as the only bound.
func NewFallbackResolver(provider Provider, timeout time.Duration, logger *slog.Logger) *FallbackResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &FallbackResolver{provider: provider, timeout: timeout, logger: logger}
}

func (r *FallbackResolver) Distance(ctx context.Context, from, to types.Point) (Result, error) {
	if err := checkPoints(from, to); err != nil {
		return Result{}, err
	}

	callCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	leg, err := r.provider.DrivingDistance(callCtx, from, to)
	if err == nil && (math.IsNaN(leg.Miles) || math.IsInf(leg.Miles, 0) || leg.Miles < 0) {
		err = fmt.Errorf("%w: invalid distance %v", types.ErrProviderUnavailable, leg.Miles)
	}
	if err == nil {
		return Result{Miles: leg.Miles, Duration: leg.Duration}, nil
	}

	r.fallbacks.Add(1)
	r.logger.Warn("distance provider failed, using haversine",
		"err", err,
		"from_lat", from.Lat, "from_lng", from.Lng,
		"to_lat", to.Lat, "to_lng", to.Lng,
	)
	return Result{Miles: HaversineMiles(from, to), Fallback: true}, nil
}

// Fallbacks reports how many lookups used the analytic path.
func (r *FallbackResolver) Fallbacks() int64 {
	return r.fallbacks.Load()
}

func checkPoints(points ...types.Point) error {
	for _, p := range points {
		if !finite(p.Lat) {
			return types.Invalid("", "lat", "not finite")
		}
		if !finite(p.Lng) {
			return types.Invalid("", "lng", "not finite")
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
