package maps

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"

	"ridescore/internal/modules/geo"
	"ridescore/internal/types"
)

const metersPerMile = 1609.344

// matrixClient is the subset of *maps.Client used here.
type matrixClient interface {
	DistanceMatrix(ctx context.Context, r *maps.DistanceMatrixRequest) (*maps.DistanceMatrixResponse, error)
}

// DistanceService resolves driving distances with the Google Distance Matrix API.
type DistanceService struct {
	client matrixClient
}

// NewDistanceService creates a new DistanceService with the given API Key.
func NewDistanceService(apiKey string) (*DistanceService, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &DistanceService{client: client}, nil
}

// DrivingDistance returns the driving distance in miles and the duration
// between two coordinates. Any non-OK answer wraps types.ErrProviderUnavailable.
func (s *DistanceService) DrivingDistance(ctx context.Context, from, to types.Point) (geo.Leg, error) {
	r := &maps.DistanceMatrixRequest{
		Origins:      []string{latLng(from)},
		Destinations: []string{latLng(to)},
		Mode:         maps.TravelModeDriving,
		Units:        maps.UnitsImperial,
	}

	resp, err := s.client.DistanceMatrix(ctx, r)
	if err != nil {
		return geo.Leg{}, fmt.Errorf("%w: maps api error: %v", types.ErrProviderUnavailable, err)
	}
	if resp == nil || len(resp.Rows) == 0 || len(resp.Rows[0].Elements) == 0 || resp.Rows[0].Elements[0] == nil {
		return geo.Leg{}, fmt.Errorf("%w: empty distance matrix", types.ErrProviderUnavailable)
	}

	el := resp.Rows[0].Elements[0]
	if el.Status != "OK" {
		return geo.Leg{}, fmt.Errorf("%w: element status %s", types.ErrProviderUnavailable, el.Status)
	}
	return geo.Leg{
		Miles:    float64(el.Distance.Meters) / metersPerMile,
		Duration: el.Duration,
	}, nil
}

func latLng(p types.Point) string {
	return fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lng)
}
