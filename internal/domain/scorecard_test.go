package domain

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestScorecardRoundTrip(t *testing.T) {
	in := QualityScorecard{
		Specificity:         4,
		Actionability:       3.5,
		EvidenceConnection:  2,
		ClinicalSafety:      5,
		ResearchIntegration: 1,
		FamilyEngagement:    4.25,
		Overall:             3.8,
		Explanation:         "Clear daily routine; safety escalation is vague.",
	}
	raw, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	out, err := ParseScorecard(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if out != in {
		t.Fatalf("round trip mismatch:\n in=%+v\nout=%+v", in, out)
	}
}

func TestParseScorecardRejects(t *testing.T) {
	cases := map[string]string{
		"not json":      `Here are the scores: great plan`,
		"missing field": `{"specificity":4,"actionability":4,"evidenceConnection":4,"clinicalSafety":4,"researchIntegration":4,"familyEngagement":4,"explanation":"x"}`,
		"out of range":  `{"specificity":9,"actionability":4,"evidenceConnection":4,"clinicalSafety":4,"researchIntegration":4,"familyEngagement":4,"overall":4,"explanation":"x"}`,
		"string score":  `{"specificity":"4","actionability":4,"evidenceConnection":4,"clinicalSafety":4,"researchIntegration":4,"familyEngagement":4,"overall":4,"explanation":"x"}`,
		"unknown field": `{"specificity":4,"actionability":4,"evidenceConnection":4,"clinicalSafety":4,"researchIntegration":4,"familyEngagement":4,"overall":4,"explanation":"x","confidence":0.9}`,
		"nested scores": `{"specificity":{"score":4,"explanation":"x"}}`,
	}
	for name, raw := range cases {
		if _, err := ParseScorecard([]byte(raw)); !errors.Is(err, ErrInvalidScorecard) {
			t.Fatalf("%s: expected ErrInvalidScorecard, got %v", name, err)
		}
	}
}

func TestPromptSetWithDefaults(t *testing.T) {
	p := PromptSet{Generation: "custom"}.WithDefaults()
	if p.Generation != "custom" {
		t.Fatalf("generation overwritten: %q", p.Generation)
	}
	if p.Scoring != DefaultScoringPrompt || p.Enhancement != DefaultEnhancementPrompt {
		t.Fatalf("defaults not applied")
	}
}

func TestClientProfileConditions(t *testing.T) {
	p := ClientProfile{MedicalHistory: " UTI ", CurrentConcerns: "falls"}
	if got := p.Conditions(); got != "UTI falls" {
		t.Fatalf("conditions=%q", got)
	}
}
