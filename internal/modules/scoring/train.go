package scoring

import (
	"errors"
	"fmt"

	"ridescore/internal/modules/feature"
	"ridescore/internal/types"
)

// Example is one labelled observation used for training.
type Example struct {
	RideID   types.ID       `json:"rideId,omitempty"`
	Features feature.Vector `json:"features"`
	Accepted bool           `json:"accepted"`
}

// Gradient returns the mean gradient of the logistic loss over examples,
// expressed as a coefficient set (intercept term included).
func Gradient(c Coefficients, examples []Example) (Coefficients, error) {
	if len(examples) == 0 {
		return Coefficients{}, types.Invalid("", "examples", "no training examples")
	}
	var gIntercept float64
	var gWeights feature.Vector
	for _, ex := range examples {
		p, err := Probability(ex.Features, c)
		if err != nil {
			var ve *types.ValidationError
			if errors.As(err, &ve) && ve.RecordID == "" {
				ve.RecordID = string(ex.RideID)
			}
			return Coefficients{}, err
		}
		var y float64
		if ex.Accepted {
			y = 1
		}
		diff := p - y
		gIntercept += diff
		for i, x := range ex.Features {
			gWeights[i] += diff * x
		}
	}
	n := float64(len(examples))
	gIntercept /= n
	for i := range gWeights {
		gWeights[i] /= n
	}
	return WithWeights(gIntercept, gWeights), nil
}

// Step returns c moved by rate along delta: c + rate*delta.
func Step(c, delta Coefficients, rate float64) (Coefficients, error) {
	if !finite(rate) || rate <= 0 {
		return Coefficients{}, types.Invalid("", "rate", fmt.Sprintf("learning rate must be positive, got %v", rate))
	}
	w := c.Weights()
	dw := delta.Weights()
	for i := range w {
		w[i] += rate * dw[i]
	}
	next := WithWeights(c.Intercept+rate*delta.Intercept, w)
	if err := next.Validate(); err != nil {
		return Coefficients{}, err
	}
	return next, nil
}

// Negate flips the sign of every parameter.
func (c Coefficients) Negate() Coefficients {
	w := c.Weights()
	for i := range w {
		w[i] = -w[i]
	}
	return WithWeights(-c.Intercept, w)
}
