package ranking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ridescore/internal/modules/dataset"
	"ridescore/internal/modules/feature"
	"ridescore/internal/modules/geo"
	"ridescore/internal/modules/scoring"
	"ridescore/internal/types"
)

const usersCSV = `user_id,lat,lng,acceptance_rate
U1,40.81395,-76.34354,0.81
U2,41.0,-76.5,0.40
`

const ridesCSV = `ride_id,origin_lat,origin_lng,dest_lat,dest_lng,distance,time,day
R1,41.34901,-76.70262,40.61252,-77.15565,6.15,13:15,Wednesday
R2,40.82000,-76.35000,40.90000,-76.40000,3.2,07:30,Friday
R3,40.50000,-76.90000,,,22.0,23:30,Sunday
R4,40.81400,-76.34400,40.70000,-76.20000,9.8,17:45,Monday
R5,41.10000,-76.10000,41.20000,-76.00000,1.4,11:00,Saturday
`

const historyCSV = `ride_id,user_id,origin_lat,origin_lng,distance,time,day,accepted
H1,U1,40.81,-76.34,5.0,08:00,Monday,true
H2,U1,40.90,-76.40,12.0,23:00,Sunday,false
H3,U2,41.00,-76.50,7.0,17:00,Friday,yes
H4,U9,41.00,-76.50,7.0,17:00,Friday,no
H5,U2,41.00,-76.50,4.0,12:00,Tuesday,
`

func newStore(t *testing.T, history, users, rides string) *dataset.Store {
	t.Helper()
	store := dataset.NewStore(nil)
	snap, _ := dataset.NewSnapshot(dataset.Parse(history), dataset.Parse(users), dataset.Parse(rides))
	store.Replace(snap)
	return store
}

func newService(t *testing.T, c scoring.Coefficients, resolver geo.Resolver) (*Service, *dataset.Store, *scoring.Service) {
	t.Helper()
	store := newStore(t, historyCSV, usersCSV, ridesCSV)
	model, err := scoring.NewService(c, nil, nil)
	require.NoError(t, err)
	if resolver == nil {
		resolver = geo.Analytic{}
	}
	return NewService(store, feature.NewExtractor(resolver), model, 4, nil), store, model
}

func rideIDs(rides []ScoredRide) []types.ID {
	ids := make([]types.ID, len(rides))
	for i, r := range rides {
		ids[i] = r.RideID
	}
	return ids
}

func TestRank_SortedPermutation(t *testing.T) {
	svc, store, _ := newService(t, scoring.Baseline(), nil)
	rides := store.Snapshot().Rides

	res, err := svc.Rank(context.Background(), "U1", rides, Options{})
	require.NoError(t, err)
	require.Empty(t, res.Failures)
	require.Len(t, res.Rides, len(rides))

	want := make([]types.ID, len(rides))
	for i, r := range rides {
		want[i] = r.ID
	}
	require.ElementsMatch(t, want, rideIDs(res.Rides))

	for i := 1; i < len(res.Rides); i++ {
		require.GreaterOrEqual(t, res.Rides[i-1].Probability, res.Rides[i].Probability)
	}
	for _, r := range res.Rides {
		require.Greater(t, r.Probability, 0.0)
		require.Less(t, r.Probability, 1.0)
		p, err := scoring.Probability(r.Features, scoring.Baseline())
		require.NoError(t, err)
		require.Equal(t, p, r.Probability)
	}
}

func TestRank_StableForTies(t *testing.T) {
	svc, store, _ := newService(t, scoring.Coefficients{}, nil)
	rides := store.Snapshot().Rides
	reversed := make([]dataset.Ride, len(rides))
	for i, r := range rides {
		reversed[len(rides)-1-i] = r
	}

	for _, input := range [][]dataset.Ride{rides, reversed} {
		res, err := svc.Rank(context.Background(), "U1", input, Options{})
		require.NoError(t, err)
		want := make([]types.ID, len(input))
		for i, r := range input {
			want[i] = r.ID
		}
		require.Equal(t, want, rideIDs(res.Rides))
		for _, r := range res.Rides {
			require.Equal(t, 0.5, r.Probability)
		}
	}
}

func TestRank_Deterministic(t *testing.T) {
	svc, store, _ := newService(t, scoring.Baseline(), nil)
	rides := store.Snapshot().Rides

	first, err := svc.Rank(context.Background(), "U1", rides, Options{})
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := svc.Rank(context.Background(), "U1", rides, Options{})
		require.NoError(t, err)
		require.Equal(t, first.Rides, again.Rides)
	}
}

func TestTopRecommendations_Prefix(t *testing.T) {
	svc, store, _ := newService(t, scoring.Baseline(), nil)
	total := len(store.Snapshot().Rides)

	full, err := svc.Rank(context.Background(), "U1", store.Snapshot().Rides, Options{})
	require.NoError(t, err)

	for n := 0; n <= total+5; n++ {
		top, err := svc.TopRecommendations(context.Background(), "U1", n, Options{})
		require.NoError(t, err)
		want := n
		if want > total {
			want = total
		}
		require.Len(t, top.Rides, want, "n=%d", n)
		require.Equal(t, full.Rides[:want], top.Rides)
	}

	_, err = svc.TopRecommendations(context.Background(), "U1", -1, Options{})
	require.ErrorIs(t, err, types.ErrValidation)
}

func TestRank_UnknownUser(t *testing.T) {
	svc, store, _ := newService(t, scoring.Baseline(), nil)
	_, err := svc.Rank(context.Background(), "U404", store.Snapshot().Rides, Options{})
	var nf *types.NotFoundError
	require.True(t, errors.As(err, &nf))
	require.Equal(t, types.ID("U404"), nf.ID)
	require.ErrorIs(t, err, types.ErrNotFound)
}

func TestRank_BadCandidateReportedNotFatal(t *testing.T) {
	svc, store, _ := newService(t, scoring.Baseline(), nil)
	bad, err := dataset.NewRide(dataset.Record{"ride_id": "RX", "origin_lat": "41", "origin_lng": "-76", "distance": "far"})
	require.NoError(t, err)
	candidates := append([]dataset.Ride{bad}, store.Snapshot().Rides...)

	res, err := svc.Rank(context.Background(), "U1", candidates, Options{})
	require.NoError(t, err)
	require.Len(t, res.Rides, len(candidates)-1)
	require.Len(t, res.Failures, 1)
	require.Equal(t, types.ID("RX"), res.Failures[0].RideID)

	var ve *types.ValidationError
	require.True(t, errors.As(res.Failures[0].Err, &ve))
	require.Equal(t, "RX", ve.RecordID)
	require.Equal(t, "distance", ve.Field)

	_, err = svc.Rank(context.Background(), "U1", candidates, Options{AllOrNothing: true})
	require.ErrorIs(t, err, types.ErrValidation)
}

func TestRank_Filter(t *testing.T) {
	svc, store, _ := newService(t, scoring.Baseline(), nil)
	rides := store.Snapshot().Rides

	f, err := CompileFilter(`ride.distance < 10.0 && ride.day != "Saturday"`)
	require.NoError(t, err)
	res, err := svc.Rank(context.Background(), "U1", rides, Options{Filter: f})
	require.NoError(t, err)
	require.ElementsMatch(t, []types.ID{"R1", "R2", "R4"}, rideIDs(res.Rides))
	require.Equal(t, 2, res.Filtered)

	f, err = CompileFilter(`user.acceptance_rate > 0.5 && ride.id.startsWith("R1")`)
	require.NoError(t, err)
	res, err = svc.Rank(context.Background(), "U1", rides, Options{Filter: f})
	require.NoError(t, err)
	require.Equal(t, []types.ID{"R1"}, rideIDs(res.Rides))

	f, err = CompileFilter(`has(ride.dest_lat) && ride.dest_lat != ""`)
	require.NoError(t, err)
	res, err = svc.Rank(context.Background(), "U1", rides, Options{Filter: f})
	require.NoError(t, err)
	require.Equal(t, 1, res.Filtered)
}

func TestCompileFilter_Errors(t *testing.T) {
	f, err := CompileFilter("")
	require.NoError(t, err)
	require.Nil(t, f)
	ok, err := f.Match(dataset.User{}, dataset.Ride{})
	require.NoError(t, err)
	require.True(t, ok)

	for _, expr := range []string{"ride.distance <", "1 + 2", `"text"`} {
		_, err := CompileFilter(expr)
		require.ErrorIs(t, err, types.ErrValidation, expr)
	}
}

func TestRank_FilterEvalErrorIsPerCandidate(t *testing.T) {
	svc, store, _ := newService(t, scoring.Baseline(), nil)
	f, err := CompileFilter(`ride.missing_column == "x"`)
	require.NoError(t, err)

	rides := store.Snapshot().Rides
	res, err := svc.Rank(context.Background(), "U1", rides, Options{Filter: f})
	require.NoError(t, err)
	require.Empty(t, res.Rides)
	require.Len(t, res.Failures, len(rides))

	_, err = svc.Rank(context.Background(), "U1", rides, Options{Filter: f, AllOrNothing: true})
	require.ErrorIs(t, err, types.ErrValidation)
}

func TestRank_UsesOneCoefficientSnapshot(t *testing.T) {
	svc, store, model := newService(t, scoring.Coefficients{}, nil)
	res, err := svc.Rank(context.Background(), "U1", store.Snapshot().Rides, Options{})
	require.NoError(t, err)
	require.Equal(t, int64(0), res.CoefficientVersion)

	_, err = model.Update(context.Background(), scoring.Baseline(), "test")
	require.NoError(t, err)
	res, err = svc.Rank(context.Background(), "U1", store.Snapshot().Rides, Options{})
	require.NoError(t, err)
	require.Equal(t, int64(1), res.CoefficientVersion)
	require.NotEqual(t, 0.5, res.Rides[0].Probability)
}

// gatedResolver blocks until its context is cancelled or release is closed,
// tracking how many calls run at once.
type gatedResolver struct {
	release chan struct{}
	active  atomic.Int32
	peak    atomic.Int32
	calls   atomic.Int32
}

func (g *gatedResolver) Distance(ctx context.Context, from, to types.Point) (geo.Result, error) {
	g.calls.Add(1)
	n := g.active.Add(1)
	defer g.active.Add(-1)
	for {
		p := g.peak.Load()
		if n <= p || g.peak.CompareAndSwap(p, n) {
			break
		}
	}
	select {
	case <-ctx.Done():
		return geo.Result{}, ctx.Err()
	case <-g.release:
		return geo.Analytic{}.Distance(ctx, from, to)
	}
}

func manyRides(t *testing.T, n int) []dataset.Ride {
	t.Helper()
	var b strings.Builder
	b.WriteString("ride_id,origin_lat,origin_lng,distance,time,day\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "M%d,41.%d,-76.5,%d.5,08:00,Friday\n", i, i, i%7)
	}
	snap, skipped := dataset.NewSnapshot(nil, nil, dataset.Parse(b.String()))
	require.Empty(t, skipped)
	return snap.Rides
}

func TestRank_BoundedConcurrency(t *testing.T) {
	gate := &gatedResolver{release: make(chan struct{})}
	svc, _, _ := newService(t, scoring.Baseline(), gate)
	rides := manyRides(t, 20)

	go func() {
		time.Sleep(50 * time.Millisecond)
		close(gate.release)
	}()
	res, err := svc.Rank(context.Background(), "U1", rides, Options{})
	require.NoError(t, err)
	require.Len(t, res.Rides, 20)
	require.LessOrEqual(t, gate.peak.Load(), int32(4))
}

func TestRank_Cancellation(t *testing.T) {
	gate := &gatedResolver{release: make(chan struct{})}
	svc, _, _ := newService(t, scoring.Baseline(), gate)
	rides := manyRides(t, 20)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	var err error
	go func() {
		defer wg.Done()
		_, err = svc.Rank(ctx, "U1", rides, Options{})
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()
	wg.Wait()

	require.ErrorIs(t, err, context.Canceled)
	require.Less(t, gate.calls.Load(), int32(20))
}

func TestTrainingExamples(t *testing.T) {
	svc, _, model := newService(t, scoring.Baseline(), nil)
	examples, failures, err := svc.TrainingExamples(context.Background())
	require.NoError(t, err)

	// H5 has no label; H4 names an unknown user.
	require.Len(t, examples, 3)
	require.Len(t, failures, 1)
	require.Equal(t, types.ID("H4"), failures[0].RideID)
	require.ErrorIs(t, failures[0].Err, types.ErrNotFound)

	labels := map[types.ID]bool{}
	for _, ex := range examples {
		labels[ex.RideID] = ex.Accepted
	}
	require.Equal(t, map[types.ID]bool{"H1": true, "H2": false, "H3": true}, labels)

	_, err = model.Train(context.Background(), examples, 0.05)
	require.NoError(t, err)
	require.NotEqual(t, scoring.Baseline(), model.Coefficients())
}
