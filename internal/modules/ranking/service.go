// README: Ranking service; scores candidate rides for a driver and orders them by acceptance probability.
package ranking

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"ridescore/internal/modules/dataset"
	"ridescore/internal/modules/feature"
	"ridescore/internal/modules/scoring"
	"ridescore/internal/types"
)

const defaultConcurrency = 8

// ScoredRide is one ranked candidate.
type ScoredRide struct {
	RideID      types.ID       `json:"rideId"`
	Probability float64        `json:"probability"`
	Features    feature.Vector `json:"features"`
	Ride        dataset.Ride   `json:"rideDetails"`
}

// Failure records a candidate that could not be scored.
type Failure struct {
	RideID types.ID
	Err    error
}

func (f Failure) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		RideID types.ID `json:"rideId"`
		Error  string   `json:"error"`
	}{f.RideID, f.Err.Error()})
}

// Options tune one ranking call.
type Options struct {
	// AllOrNothing fails the whole call on the first candidate that cannot
	// be scored instead of reporting it in Result.Failures.
	AllOrNothing bool
	Filter       *Filter
}

// Result is the outcome of one ranking call.
type Result struct {
	UserID             types.ID     `json:"userId"`
	Rides              []ScoredRide `json:"rides"`
	Failures           []Failure    `json:"failures,omitempty"`
	Filtered           int          `json:"filtered"`
	CoefficientVersion int64        `json:"coefficientVersion"`
}

// CoefficientSource hands out the coefficient set in force.
type CoefficientSource interface {
	Snapshot() *scoring.Snapshot
}

type Service struct {
	data        *dataset.Store
	extractor   *feature.Extractor
	model       CoefficientSource
	concurrency int
	logger      *slog.Logger
}

func NewService(data *dataset.Store, extractor *feature.Extractor, model CoefficientSource, concurrency int, logger *slog.Logger) *Service {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{data: data, extractor: extractor, model: model, concurrency: concurrency, logger: logger}
}

// Rank scores candidates for userID and returns them by descending
// probability; equal probabilities keep their input order. Candidates that
// fail extraction or scoring are reported in Failures unless
// opts.AllOrNothing is set.
func (s *Service) Rank(ctx context.Context, userID types.ID, candidates []dataset.Ride, opts Options) (*Result, error) {
	snap := s.data.Snapshot()
	user, err := snap.User(userID)
	if err != nil {
		return nil, err
	}
	coeffs := s.model.Snapshot()
	res := &Result{UserID: userID, Rides: []ScoredRide{}, CoefficientVersion: coeffs.Version}

	jobs := make([]job, 0, len(candidates))
	for _, ride := range candidates {
		ok, err := opts.Filter.Match(user, ride)
		if err != nil {
			if opts.AllOrNothing {
				return nil, err
			}
			res.Failures = append(res.Failures, Failure{RideID: ride.ID, Err: err})
			continue
		}
		if !ok {
			res.Filtered++
			continue
		}
		jobs = append(jobs, job{user: user, ride: ride})
	}

	hist := feature.SummarizeHistory(snap.History, userID)
	outcomes, err := s.extractAll(ctx, jobs, hist, opts.AllOrNothing)
	if err != nil {
		return nil, err
	}

	for i, o := range outcomes {
		ride := jobs[i].ride
		if o.err == nil {
			var p float64
			p, o.err = scoring.Probability(o.vector, coeffs.Coefficients)
			if o.err == nil {
				res.Rides = append(res.Rides, ScoredRide{RideID: ride.ID, Probability: p, Features: o.vector, Ride: ride})
				continue
			}
			o.err = withRecordID(o.err, ride.ID)
		}
		if opts.AllOrNothing {
			return nil, o.err
		}
		s.logger.Warn("ride not scored", "user_id", userID, "ride_id", ride.ID, "err", o.err)
		res.Failures = append(res.Failures, Failure{RideID: ride.ID, Err: o.err})
	}

	sort.SliceStable(res.Rides, func(i, j int) bool {
		return res.Rides[i].Probability > res.Rides[j].Probability
	})
	return res, nil
}

// TopRecommendations ranks every loaded ride for userID and keeps the
// first n. n larger than the candidate count returns all of them.
func (s *Service) TopRecommendations(ctx context.Context, userID types.ID, n int, opts Options) (*Result, error) {
	if n < 0 {
		return nil, types.Invalid("", "n", "must not be negative")
	}
	res, err := s.Rank(ctx, userID, s.data.Snapshot().Rides, opts)
	if err != nil {
		return nil, err
	}
	if n < len(res.Rides) {
		res.Rides = res.Rides[:n]
	}
	return res, nil
}

// TrainingExamples extracts labelled examples from historical rides that
// name a known user and carry an accepted flag.
func (s *Service) TrainingExamples(ctx context.Context) ([]scoring.Example, []Failure, error) {
	snap := s.data.Snapshot()
	var jobs []job
	var labels []bool
	var failures []Failure
	for _, ride := range snap.History {
		accepted, ok := ride.Accepted()
		if !ok {
			continue
		}
		user, err := snap.User(ride.UserID())
		if err != nil {
			failures = append(failures, Failure{RideID: ride.ID, Err: err})
			continue
		}
		jobs = append(jobs, job{user: user, ride: ride})
		labels = append(labels, accepted)
	}

	hist := feature.SummarizeHistory(snap.History, "")
	outcomes, err := s.extractAll(ctx, jobs, hist, false)
	if err != nil {
		return nil, nil, err
	}
	examples := make([]scoring.Example, 0, len(outcomes))
	for i, o := range outcomes {
		if o.err != nil {
			failures = append(failures, Failure{RideID: jobs[i].ride.ID, Err: o.err})
			continue
		}
		examples = append(examples, scoring.Example{RideID: jobs[i].ride.ID, Features: o.vector, Accepted: labels[i]})
	}
	return examples, failures, nil
}

type job struct {
	user dataset.User
	ride dataset.Ride
}

type outcome struct {
	vector feature.Vector
	err    error
}

// extractAll runs feature extraction for every job with bounded
// concurrency. Outcomes are returned in job order. With failFast the first
// extraction error cancels the rest and is returned.
func (s *Service) extractAll(ctx context.Context, jobs []job, hist feature.History, failFast bool) ([]outcome, error) {
	outcomes := make([]outcome, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, j := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				outcomes[i].err = err
				return nil
			}
			v, err := s.extractor.Extract(gctx, j.user, j.ride, hist)
			if err != nil {
				if failFast {
					return err
				}
				outcomes[i].err = err
				return nil
			}
			outcomes[i].vector = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

func withRecordID(err error, id types.ID) error {
	var ve *types.ValidationError
	if errors.As(err, &ve) && ve.RecordID == "" {
		ve.RecordID = string(id)
	}
	return err
}
