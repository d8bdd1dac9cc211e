// Package scoring turns feature vectors into acceptance probabilities with a
// logistic model and owns the process-wide coefficient set.
package scoring

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"ridescore/internal/modules/feature"
	"ridescore/internal/types"
)

// Coefficients is one complete, immutable set of model parameters.
type Coefficients struct {
	Intercept          float64 `json:"intercept" yaml:"intercept"`
	Distance           float64 `json:"distance" yaml:"distance"`
	DistanceFromUser   float64 `json:"distanceFromUser" yaml:"distanceFromUser"`
	TimeOfDayScore     float64 `json:"timeOfDayScore" yaml:"timeOfDayScore"`
	DayOfWeekScore     float64 `json:"dayOfWeekScore" yaml:"dayOfWeekScore"`
	UserAcceptanceRate float64 `json:"userAcceptanceRate" yaml:"userAcceptanceRate"`
	PreferredDistance  float64 `json:"preferredDistance" yaml:"preferredDistance"`
	PreferredTime      float64 `json:"preferredTime" yaml:"preferredTime"`
}

// Baseline returns the coefficients the service starts with when nothing
// else is configured.
func Baseline() Coefficients {
	return Coefficients{
		Intercept:          -0.5,
		Distance:           -0.08,
		DistanceFromUser:   -0.12,
		TimeOfDayScore:     1.0,
		DayOfWeekScore:     0.4,
		UserAcceptanceRate: 2.0,
		PreferredDistance:  0.5,
		PreferredTime:      0.7,
	}
}

// Weights returns the feature weights in vector order.
func (c Coefficients) Weights() feature.Vector {
	return feature.Vector{
		c.Distance,
		c.DistanceFromUser,
		c.TimeOfDayScore,
		c.DayOfWeekScore,
		c.UserAcceptanceRate,
		c.PreferredDistance,
		c.PreferredTime,
	}
}

// WithWeights builds a coefficient set from an intercept and vector-ordered weights.
func WithWeights(intercept float64, w feature.Vector) Coefficients {
	return Coefficients{
		Intercept:          intercept,
		Distance:           w.Get(feature.Distance),
		DistanceFromUser:   w.Get(feature.DistanceFromUser),
		TimeOfDayScore:     w.Get(feature.TimeOfDayScore),
		DayOfWeekScore:     w.Get(feature.DayOfWeekScore),
		UserAcceptanceRate: w.Get(feature.UserAcceptanceRate),
		PreferredDistance:  w.Get(feature.PreferredDistance),
		PreferredTime:      w.Get(feature.PreferredTime),
	}
}

func (c Coefficients) Weight(n feature.Name) float64 {
	return c.Weights().Get(n)
}

// Validate rejects non-finite parameters.
func (c Coefficients) Validate() error {
	if !finite(c.Intercept) {
		return types.Invalid("coefficients", "intercept", "not finite")
	}
	w := c.Weights()
	for i, n := range feature.Names {
		if !finite(w[i]) {
			return types.Invalid("coefficients", string(n), "not finite")
		}
	}
	return nil
}

// ParseCoefficients decodes a YAML (or JSON) coefficient document. Keys left
// out keep their zero value; unknown keys are an error.
func ParseCoefficients(data []byte) (Coefficients, error) {
	var doc map[string]float64
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Coefficients{}, fmt.Errorf("decode coefficients: %w", err)
	}
	var c Coefficients
	w := c.Weights()
	for k, v := range doc {
		if k == "intercept" {
			c.Intercept = v
			continue
		}
		i, ok := feature.Index(feature.Name(k))
		if !ok {
			return Coefficients{}, types.Invalid("coefficients", k, "unknown coefficient")
		}
		w[i] = v
	}
	c = WithWeights(c.Intercept, w)
	if err := c.Validate(); err != nil {
		return Coefficients{}, err
	}
	return c, nil
}

// LoadCoefficients reads a coefficient file from disk.
func LoadCoefficients(path string) (Coefficients, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Coefficients{}, fmt.Errorf("read coefficients %s: %w", path, err)
	}
	return ParseCoefficients(data)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
