package scoring

import (
	"math"

	"ridescore/internal/modules/feature"
	"ridescore/internal/types"
)

var (
	minProbability = math.Nextafter(0, 1)
	maxProbability = math.Nextafter(1, 0)
)

// Logit returns intercept + sum(weight * value). Non-finite feature values
// fail with a *types.ValidationError naming the feature.
func Logit(v feature.Vector, c Coefficients) (float64, error) {
	z := c.Intercept
	w := c.Weights()
	for i, x := range v {
		if !finite(x) {
			return 0, types.Invalid("", string(feature.Names[i]), "feature value not finite")
		}
		z += w[i] * x
	}
	if math.IsNaN(z) {
		return 0, types.Invalid("", "logit", "not a number")
	}
	return z, nil
}

// Probability scores v with c. The result is always strictly inside (0, 1).
func Probability(v feature.Vector, c Coefficients) (float64, error) {
	z, err := Logit(v, c)
	if err != nil {
		return 0, err
	}
	return Sigmoid(z), nil
}

// Sigmoid is the logistic function, clamped away from 0 and 1 so extreme
// logits still yield an open-interval probability.
func Sigmoid(z float64) float64 {
	var p float64
	if z >= 0 {
		p = 1 / (1 + math.Exp(-z))
	} else {
		e := math.Exp(z)
		p = e / (1 + e)
	}
	return math.Min(maxProbability, math.Max(minProbability, p))
}

// Contribution is one feature's share of the logit.
type Contribution struct {
	Feature     feature.Name `json:"feature"`
	Value       float64      `json:"value"`
	Coefficient float64      `json:"coefficient"`
	Product     float64      `json:"contribution"`
}

// Contributions breaks the logit for v into per-feature terms, in vector order.
func Contributions(v feature.Vector, c Coefficients) []Contribution {
	w := c.Weights()
	out := make([]Contribution, feature.Count)
	for i, n := range feature.Names {
		out[i] = Contribution{Feature: n, Value: v[i], Coefficient: w[i], Product: w[i] * v[i]}
	}
	return out
}
