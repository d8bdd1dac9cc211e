// README: Explanation service; attributes a ride's acceptance probability to its features.
package explanation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"ridescore/internal/modules/dataset"
	"ridescore/internal/modules/feature"
	"ridescore/internal/modules/scoring"
	"ridescore/internal/types"
)

// Report attributes one (user, ride) score to its features. The intercept
// plus every contribution equals Logit.
type Report struct {
	UserID             types.ID               `json:"userId"`
	RideID             types.ID               `json:"rideId"`
	Contributions      []scoring.Contribution `json:"contributions"`
	Intercept          float64                `json:"intercept"`
	Logit              float64                `json:"logit"`
	Probability        float64                `json:"probability"`
	CoefficientVersion int64                  `json:"coefficientVersion"`
	Narrative          string                 `json:"narrative,omitempty"`
}

// Narrator writes a short natural-language summary of a report.
type Narrator interface {
	Narrate(ctx context.Context, r *Report) (string, error)
}

type CoefficientSource interface {
	Snapshot() *scoring.Snapshot
}

type Service struct {
	data      *dataset.Store
	extractor *feature.Extractor
	model     CoefficientSource
	narrator  Narrator
	logger    *slog.Logger
}

// NewService builds the service. narrator may be nil.
func NewService(data *dataset.Store, extractor *feature.Extractor, model CoefficientSource, narrator Narrator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{data: data, extractor: extractor, model: model, narrator: narrator, logger: logger}
}

// Explain resolves both ids in the loaded datasets and breaks the ride's
// score down per feature.
func (s *Service) Explain(ctx context.Context, userID, rideID types.ID) (*Report, error) {
	snap := s.data.Snapshot()
	user, err := snap.User(userID)
	if err != nil {
		return nil, err
	}
	ride, err := snap.Ride(rideID)
	if err != nil {
		return nil, err
	}

	v, err := s.extractor.Extract(ctx, user, ride, feature.SummarizeHistory(snap.History, userID))
	if err != nil {
		return nil, err
	}
	coeffs := s.model.Snapshot()
	logit, err := scoring.Logit(v, coeffs.Coefficients)
	if err != nil {
		return nil, err
	}

	return &Report{
		UserID:             userID,
		RideID:             rideID,
		Contributions:      scoring.Contributions(v, coeffs.Coefficients),
		Intercept:          coeffs.Coefficients.Intercept,
		Logit:              logit,
		Probability:        scoring.Sigmoid(logit),
		CoefficientVersion: coeffs.Version,
	}, nil
}

// Narrate fills r.Narrative when a narrator is configured. Narrator
// failures are logged and leave the report unchanged.
func (s *Service) Narrate(ctx context.Context, r *Report) {
	if s.narrator == nil || r == nil {
		return
	}
	text, err := s.narrator.Narrate(ctx, r)
	if err != nil {
		s.logger.Warn("explanation narration failed", "ride_id", r.RideID, "err", err)
		return
	}
	r.Narrative = strings.TrimSpace(text)
}

// HasNarrator reports whether Narrate can add a summary.
func (s *Service) HasNarrator() bool { return s.narrator != nil }

// String renders the report as a fixed-width table.
func (r *Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "ride %s for user %s (coefficients v%d)\n", r.RideID, r.UserID, r.CoefficientVersion)
	fmt.Fprintf(&b, "%-20s %12s %12s %13s\n", "feature", "value", "coefficient", "contribution")
	for _, c := range r.Contributions {
		fmt.Fprintf(&b, "%-20s %12.4f %12.4f %+13.4f\n", c.Feature, c.Value, c.Coefficient, c.Product)
	}
	fmt.Fprintf(&b, "%-20s %12s %12s %+13.4f\n", "intercept", "", "", r.Intercept)
	fmt.Fprintf(&b, "%-20s %12s %12s %+13.4f\n", "logit", "", "", r.Logit)
	fmt.Fprintf(&b, "%-20s %12s %12s %13.4f\n", "probability", "", "", r.Probability)
	if r.Narrative != "" {
		b.WriteString("\n")
		b.WriteString(r.Narrative)
		b.WriteString("\n")
	}
	return b.String()
}
