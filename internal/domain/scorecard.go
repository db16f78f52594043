package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

type QualityScorecard struct {
	Specificity         float64 `json:"specificity"`
	Actionability       float64 `json:"actionability"`
	EvidenceConnection  float64 `json:"evidenceConnection"`
	ClinicalSafety      float64 `json:"clinicalSafety"`
	ResearchIntegration float64 `json:"researchIntegration"`
	FamilyEngagement    float64 `json:"familyEngagement"`
	Overall             float64 `json:"overall"`
	Explanation         string  `json:"explanation"`
}

var ErrInvalidScorecard = errors.New("invalid quality scorecard")

// wire form; pointers tell a missing field apart from a zero.
type scorecardWire struct {
	Specificity         *float64 `json:"specificity"`
	Actionability       *float64 `json:"actionability"`
	EvidenceConnection  *float64 `json:"evidenceConnection"`
	ClinicalSafety      *float64 `json:"clinicalSafety"`
	ResearchIntegration *float64 `json:"researchIntegration"`
	FamilyEngagement    *float64 `json:"familyEngagement"`
	Overall             *float64 `json:"overall"`
	Explanation         *string  `json:"explanation"`
}

// ParseScorecard decodes raw strictly: all eight fields present, no unknown fields, every score within 1..5.
// Errors wrap ErrInvalidScorecard.
func ParseScorecard(raw []byte) (QualityScorecard, error) {
	dec := json.NewDecoder(bytes.NewReader(bytes.TrimSpace(raw)))
	dec.DisallowUnknownFields()

	var w scorecardWire
	if err := dec.Decode(&w); err != nil {
		return QualityScorecard{}, fmt.Errorf("%w: %v", ErrInvalidScorecard, err)
	}
	if dec.More() {
		return QualityScorecard{}, fmt.Errorf("%w: trailing data", ErrInvalidScorecard)
	}

	fields := []struct {
		name string
		v    *float64
	}{
		{"specificity", w.Specificity},
		{"actionability", w.Actionability},
		{"evidenceConnection", w.EvidenceConnection},
		{"clinicalSafety", w.ClinicalSafety},
		{"researchIntegration", w.ResearchIntegration},
		{"familyEngagement", w.FamilyEngagement},
		{"overall", w.Overall},
	}
	var missing []string
	for _, f := range fields {
		if f.v == nil {
			missing = append(missing, f.name)
			continue
		}
		if math.IsNaN(*f.v) || *f.v < 1 || *f.v > 5 {
			return QualityScorecard{}, fmt.Errorf("%w: %s=%v out of range 1-5", ErrInvalidScorecard, f.name, *f.v)
		}
	}
	if w.Explanation == nil {
		missing = append(missing, "explanation")
	}
	if len(missing) > 0 {
		return QualityScorecard{}, fmt.Errorf("%w: missing %s", ErrInvalidScorecard, strings.Join(missing, ", "))
	}

	return QualityScorecard{
		Specificity:         *w.Specificity,
		Actionability:       *w.Actionability,
		EvidenceConnection:  *w.EvidenceConnection,
		ClinicalSafety:      *w.ClinicalSafety,
		ResearchIntegration: *w.ResearchIntegration,
		FamilyEngagement:    *w.FamilyEngagement,
		Overall:             *w.Overall,
		Explanation:         *w.Explanation,
	}, nil
}
