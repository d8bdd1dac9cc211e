package feature

import (
	"context"
	"fmt"

	"ridescore/internal/modules/dataset"
	"ridescore/internal/modules/geo"
	"ridescore/internal/types"
)

// History summarises the historical rides used by the distance preference.
type History struct {
	AvgDistance float64
	Count       int
}

// SummarizeHistory averages the distance of every historical ride.
//
// The average spans the whole dataset: userID is accepted but does not narrow
// the rows. Per-driver preference is a known gap kept for parity with the
// existing model coefficients. Rows whose distance is missing or malformed
// are left out of the average.
func SummarizeHistory(history []dataset.Ride, userID types.ID) History {
	var sum float64
	var n int
	for _, r := range history {
		d, err := r.Distance()
		if err != nil {
			continue
		}
		sum += d
		n++
	}
	if n == 0 {
		return History{}
	}
	return History{AvgDistance: sum / float64(n), Count: n}
}

// Extractor builds feature vectors. It is safe for concurrent use.
type Extractor struct {
	resolver geo.Resolver
}

func NewExtractor(resolver geo.Resolver) *Extractor {
	return &Extractor{resolver: resolver}
}

// Extract computes the vector for one (user, ride) pair. Missing or malformed
// coordinates and distance fail with a *types.ValidationError; time and day
// degrade to neutral scores instead.
func (e *Extractor) Extract(ctx context.Context, user dataset.User, ride dataset.Ride, hist History) (Vector, error) {
	var v Vector

	rideMiles, err := ride.Distance()
	if err != nil {
		return v, err
	}
	origin, err := ride.Origin()
	if err != nil {
		return v, err
	}
	userPos, err := user.Location()
	if err != nil {
		return v, err
	}
	rate, err := user.AcceptanceRate()
	if err != nil {
		return v, err
	}

	dist, err := e.resolver.Distance(ctx, userPos, origin)
	if err != nil {
		return v, fmt.Errorf("distance from user %s to ride %s: %w", user.ID, ride.ID, err)
	}

	timeScore := TimeScore(ride.Time())

	v.Set(Distance, rideMiles)
	v.Set(DistanceFromUser, dist.Miles)
	v.Set(TimeOfDayScore, timeScore)
	v.Set(DayOfWeekScore, DayScore(ride.Day()))
	v.Set(UserAcceptanceRate, rate)
	v.Set(PreferredDistance, PreferredDistanceScore(rideMiles, hist))
	v.Set(PreferredTime, timeScore)
	return v, nil
}
