// README: Explanation narrator; turns a feature attribution report into a short plain-language summary.
package ai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"ridescore/internal/modules/explanation"
	"ridescore/internal/modules/scoring"
)

type Narrator struct {
	gen TextGenerator
}

func NewNarrator(gen TextGenerator) *Narrator {
	return &Narrator{gen: gen}
}

func (n *Narrator) Narrate(ctx context.Context, r *explanation.Report) (string, error) {
	text, err := n.gen.Generate(ctx, BuildPrompt(r))
	if err != nil {
		return "", err
	}
	text = cleanText(text)
	if text == "" {
		return "", errors.New("empty narration")
	}
	return text, nil
}

// BuildPrompt lists the contributions largest magnitude first so the model
// talks about what actually moved the score.
func BuildPrompt(r *explanation.Report) string {
	contribs := append([]scoring.Contribution(nil), r.Contributions...)
	sort.SliceStable(contribs, func(i, j int) bool {
		return math.Abs(contribs[i].Product) > math.Abs(contribs[j].Product)
	})

	var b strings.Builder
	b.WriteString(`Role: You explain a ride acceptance model to a driver dispatcher.
The model is a logistic regression. Each feature value is multiplied by its coefficient;
the products plus the intercept form the logit, and the probability is sigmoid(logit).

RULES:
- Write one paragraph of at most three sentences in plain English.
- Name the two or three features that pushed the probability most, and in which direction.
- Quote the final probability as a percentage with no decimals.
- Do not invent features or numbers that are not listed below.

`)
	fmt.Fprintf(&b, "Driver: %s\nRide: %s\n", r.UserID, r.RideID)
	b.WriteString("Contributions (feature: value x coefficient = contribution):\n")
	for _, c := range contribs {
		fmt.Fprintf(&b, "- %s: %.4f x %.4f = %+.4f\n", c.Feature, c.Value, c.Coefficient, c.Product)
	}
	fmt.Fprintf(&b, "Intercept: %+.4f\nLogit: %+.4f\nProbability: %.4f\n", r.Intercept, r.Logit, r.Probability)
	return b.String()
}
