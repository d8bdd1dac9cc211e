package ai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"ridescore/internal/modules/explanation"
	"ridescore/internal/modules/feature"
	"ridescore/internal/modules/scoring"
)

type stubGenerator struct {
	prompt string
	reply  string
	err    error
}

func (s *stubGenerator) Generate(_ context.Context, prompt string) (string, error) {
	s.prompt = prompt
	return s.reply, s.err
}

func sampleReport() *explanation.Report {
	return &explanation.Report{
		UserID: "U1",
		RideID: "R1",
		Contributions: []scoring.Contribution{
			{Feature: feature.Distance, Value: 6.15, Coefficient: -0.08, Product: -0.492},
			{Feature: feature.UserAcceptanceRate, Value: 0.81, Coefficient: 2.0, Product: 1.62},
			{Feature: feature.DayOfWeekScore, Value: 0.5, Coefficient: 0.4, Product: 0.2},
		},
		Intercept:   -0.5,
		Logit:       0.828,
		Probability: 0.696,
	}
}

func TestBuildPrompt_OrdersByMagnitude(t *testing.T) {
	p := BuildPrompt(sampleReport())

	rate := strings.Index(p, "- userAcceptanceRate")
	dist := strings.Index(p, "- distance")
	day := strings.Index(p, "- dayOfWeekScore")
	if rate < 0 || dist < 0 || day < 0 {
		t.Fatalf("missing contribution lines:\n%s", p)
	}
	if !(rate < dist && dist < day) {
		t.Errorf("contributions not ordered by magnitude:\n%s", p)
	}
	if !strings.Contains(p, "Ride: R1") || !strings.Contains(p, "Probability: 0.6960") {
		t.Errorf("prompt missing report header:\n%s", p)
	}
}

func TestNarrator_Narrate(t *testing.T) {
	gen := &stubGenerator{reply: "```\nThe driver will probably take it (70%).\n```"}
	got, err := NewNarrator(gen).Narrate(context.Background(), sampleReport())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "The driver will probably take it (70%)." {
		t.Errorf("got %q", got)
	}
	if gen.prompt == "" {
		t.Error("generator not called")
	}
}

func TestNarrator_Errors(t *testing.T) {
	tests := []struct {
		name string
		gen  *stubGenerator
	}{
		{"generator error", &stubGenerator{err: errors.New("quota exceeded")}},
		{"blank reply", &stubGenerator{reply: "   "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewNarrator(tt.gen).Narrate(context.Background(), sampleReport()); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestCleanText(t *testing.T) {
	tests := map[string]string{
		"plain":               "plain",
		"```text\nhello\n```": "hello",
		"  ```\nhi```  ":      "hi",
	}
	for in, want := range tests {
		if got := cleanText(in); got != want {
			t.Errorf("cleanText(%q) = %q, want %q", in, got, want)
		}
	}
}
