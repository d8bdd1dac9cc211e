package explanation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"ridescore/internal/modules/dataset"
	"ridescore/internal/modules/feature"
	"ridescore/internal/modules/geo"
	"ridescore/internal/modules/scoring"
	"ridescore/internal/types"
)

const (
	usersCSV   = "user_id,lat,lng,acceptance_rate\nU1,40.81395,-76.34354,0.81\nU2,40.0,-76.0,0.3\n"
	ridesCSV   = "ride_id,origin_lat,origin_lng,dest_lat,dest_lng,distance,time,day\nR1,41.34901,-76.70262,40.61252,-77.15565,6.15,13:15,\nR2,41.0,-76.0,,,oops,08:00,Friday\n"
	historyCSV = "ride_id,user_id,origin_lat,origin_lng,distance,time,day,accepted\nH1,U1,40.9,-76.4,8.0,08:00,Monday,true\n"
)

type fakeNarrator struct {
	text string
	err  error
}

func (f fakeNarrator) Narrate(context.Context, *Report) (string, error) { return f.text, f.err }

func newService(t *testing.T, narrator Narrator) *Service {
	t.Helper()
	store := dataset.NewStore(nil)
	snap, _ := dataset.NewSnapshot(dataset.Parse(historyCSV), dataset.Parse(usersCSV), dataset.Parse(ridesCSV))
	store.Replace(snap)
	model, err := scoring.NewService(scoring.Baseline(), nil, nil)
	require.NoError(t, err)
	return NewService(store, feature.NewExtractor(geo.Analytic{}), model, narrator, nil)
}

func TestExplain_ContributionsSumToLogit(t *testing.T) {
	svc := newService(t, nil)
	r, err := svc.Explain(context.Background(), "U1", "R1")
	require.NoError(t, err)
	require.Len(t, r.Contributions, feature.Count)

	sum := r.Intercept
	for i, c := range r.Contributions {
		require.Equal(t, feature.Names[i], c.Feature)
		require.Equal(t, c.Value*c.Coefficient, c.Product)
		sum += c.Product
	}
	require.InDelta(t, r.Logit, sum, 1e-12)
	require.Equal(t, scoring.Sigmoid(r.Logit), r.Probability)
	require.Equal(t, -0.5, r.Intercept)
	require.Greater(t, r.Probability, 0.0)
	require.Less(t, r.Probability, 1.0)
}

func TestExplain_HistoricalRide(t *testing.T) {
	r, err := newService(t, nil).Explain(context.Background(), "U1", "H1")
	require.NoError(t, err)
	require.Equal(t, types.ID("H1"), r.RideID)
}

func TestExplain_NotFound(t *testing.T) {
	svc := newService(t, nil)
	tests := []struct {
		user, ride types.ID
		kind       string
	}{
		{"U404", "R1", "user"},
		{"U1", "R404", "ride"},
	}
	for _, tt := range tests {
		_, err := svc.Explain(context.Background(), tt.user, tt.ride)
		var nf *types.NotFoundError
		require.True(t, errors.As(err, &nf), "got %v", err)
		require.Equal(t, tt.kind, nf.Kind)
	}
}

func TestExplain_ValidationError(t *testing.T) {
	_, err := newService(t, nil).Explain(context.Background(), "U1", "R2")
	var ve *types.ValidationError
	require.True(t, errors.As(err, &ve))
	require.Equal(t, "R2", ve.RecordID)
	require.Equal(t, "distance", ve.Field)
}

func TestNarrate(t *testing.T) {
	svc := newService(t, fakeNarrator{text: "  Likely accepted.  "})
	require.True(t, svc.HasNarrator())
	r, err := svc.Explain(context.Background(), "U1", "R1")
	require.NoError(t, err)
	svc.Narrate(context.Background(), r)
	require.Equal(t, "Likely accepted.", r.Narrative)

	failing := newService(t, fakeNarrator{err: errors.New("quota")})
	r, err = failing.Explain(context.Background(), "U1", "R1")
	require.NoError(t, err)
	failing.Narrate(context.Background(), r)
	require.Empty(t, r.Narrative)

	plain := newService(t, nil)
	require.False(t, plain.HasNarrator())
	plain.Narrate(context.Background(), r)
}

func TestReport_String(t *testing.T) {
	r, err := newService(t, nil).Explain(context.Background(), "U1", "R1")
	require.NoError(t, err)
	out := r.String()
	require.True(t, strings.HasPrefix(out, "ride R1 for user U1 (coefficients v0)\n"))
	for _, n := range feature.Names {
		require.Contains(t, out, string(n))
	}
	require.Contains(t, out, "probability")
	require.Equal(t, feature.Count+5, strings.Count(out, "\n"))
}
