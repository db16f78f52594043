package domain

import (
	"encoding/json"
	"strings"
)

// ClientProfile is the assessment form for one client. All fields are free text.
type ClientProfile struct {
	Name            string `json:"name" yaml:"name"`
	Age             string `json:"age" yaml:"age"`
	LivingSituation string `json:"livingSituation,omitempty" yaml:"livingSituation,omitempty"`
	MedicalHistory  string `json:"medicalHistory" yaml:"medicalHistory"`
	CurrentConcerns string `json:"currentConcerns" yaml:"currentConcerns"`
	FamilyInput     string `json:"familyInput,omitempty" yaml:"familyInput,omitempty"`
	AssessmentNotes string `json:"assessmentNotes,omitempty" yaml:"assessmentNotes,omitempty"`
}

// SampleClientProfile is the example client pre-filled in the assessment form.
func SampleClientProfile() ClientProfile {
	return ClientProfile{
		Name:            "Mrs. Alison B",
		Age:             "78",
		LivingSituation: "Lives alone in her own home",
		MedicalHistory:  "Recently hospitalized for urinary tract infection (UTI). Shows signs of mild to moderate cognitive impairment.",
		CurrentConcerns: "Medication adherence issues. Inadequate fluid intake leading to UTI recurrence.",
		FamilyInput:     "Daughter reports mother may not be taking medications properly or drinking enough liquids.",
		AssessmentNotes: "Client presents with mild to moderate cognitive impairment affecting daily living activities.",
	}
}

// CanonicalJSON is the stable serialization used for fingerprints and as the user message upstream.
func (p ClientProfile) CanonicalJSON() string {
	b, _ := json.Marshal(p)
	return string(b)
}

// Conditions is the free-text query used for evidence lookups.
func (p ClientProfile) Conditions() string {
	return strings.TrimSpace(strings.Join([]string{
		strings.TrimSpace(p.MedicalHistory),
		strings.TrimSpace(p.CurrentConcerns),
	}, " "))
}
