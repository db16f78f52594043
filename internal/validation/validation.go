package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/yungbote/careplan-backend/internal/domain"
	"github.com/yungbote/careplan-backend/internal/platform/apierr"
)

// CarePlanRequest is the validated body of POST /api/ai/care-plan.
type CarePlanRequest struct {
	ClientData domain.ClientProfile
	Prompt     string
}

// PlanRequest is the validated body of the scoring and enhancement endpoints.
// Prompt is optional and overrides the default system prompt.
type PlanRequest struct {
	CarePlan string
	Prompt   string
}

type rule struct {
	path string
	tag  string
}

var (
	carePlanRules = []rule{
		{"clientData", "required,object"},
		{"clientData.name", "required,string"},
		{"clientData.age", "required,string"},
		{"clientData.livingSituation", "omitempty,string"},
		{"clientData.medicalHistory", "required,string"},
		{"clientData.currentConcerns", "required,string"},
		{"clientData.familyInput", "omitempty,string"},
		{"clientData.assessmentNotes", "omitempty,string"},
		{"prompt", "required,string"},
	}
	planRules = []rule{
		{"carePlan", "required,string"},
		{"prompt", "omitempty,string"},
	}
)

// MaxQueryLen bounds the evidence lookup query.
const MaxQueryLen = 500

type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	v := validator.New()
	_ = v.RegisterValidation("string", func(fl validator.FieldLevel) bool {
		return fl.Field().Kind() == reflect.String
	})
	_ = v.RegisterValidation("object", func(fl validator.FieldLevel) bool {
		return fl.Field().Kind() == reflect.Map
	})
	return &Validator{v: v}
}

// DecodeObject parses raw as a single JSON object.
func DecodeObject(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	var body any
	if err := dec.Decode(&body); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("unexpected data after JSON body")
	}
	obj, ok := body.(map[string]any)
	if !ok {
		return nil, errors.New("body must be a JSON object")
	}
	return obj, nil
}

func (v *Validator) CarePlan(body map[string]any) (CarePlanRequest, []apierr.FieldError) {
	if errs := v.check(body, carePlanRules); len(errs) > 0 {
		return CarePlanRequest{}, errs
	}
	cd := body["clientData"].(map[string]any)
	return CarePlanRequest{
		ClientData: domain.ClientProfile{
			Name:            str(cd, "name"),
			Age:             str(cd, "age"),
			LivingSituation: str(cd, "livingSituation"),
			MedicalHistory:  str(cd, "medicalHistory"),
			CurrentConcerns: str(cd, "currentConcerns"),
			FamilyInput:     str(cd, "familyInput"),
			AssessmentNotes: str(cd, "assessmentNotes"),
		},
		Prompt: str(body, "prompt"),
	}, nil
}

func (v *Validator) Plan(body map[string]any) (PlanRequest, []apierr.FieldError) {
	if errs := v.check(body, planRules); len(errs) > 0 {
		return PlanRequest{}, errs
	}
	return PlanRequest{CarePlan: str(body, "carePlan"), Prompt: str(body, "prompt")}, nil
}

// ResearchQuery validates the q parameter of the evidence lookup.
func (v *Validator) ResearchQuery(q string) (string, []apierr.FieldError) {
	q = strings.TrimSpace(q)
	err := v.v.Var(q, fmt.Sprintf("required,max=%d", MaxQueryLen))
	if err == nil {
		return q, nil
	}
	return "", []apierr.FieldError{{
		Type:     "field",
		Value:    q,
		Msg:      message("q", failedTag(err)),
		Path:     "q",
		Location: "query",
	}}
}

func (v *Validator) check(body map[string]any, rules []rule) []apierr.FieldError {
	var out []apierr.FieldError
	for _, r := range rules {
		val, parentOK := lookup(body, r.path)
		if !parentOK {
			// the parent object already failed
			continue
		}
		err := v.v.Var(val, r.tag)
		if err == nil {
			continue
		}
		out = append(out, apierr.FieldError{
			Type:     "field",
			Value:    val,
			Msg:      message(r.path, failedTag(err)),
			Path:     r.path,
			Location: "body",
		})
	}
	return out
}

func failedTag(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return verrs[0].Tag()
	}
	return "required"
}

// lookup resolves a dotted path. parentOK is false when an intermediate segment is not an object.
func lookup(body map[string]any, path string) (val any, parentOK bool) {
	parts := strings.Split(path, ".")
	cur := body
	for i, p := range parts {
		v, ok := cur[p]
		if i == len(parts)-1 {
			if !ok {
				return nil, true
			}
			return v, true
		}
		next, isObj := v.(map[string]any)
		if !isObj {
			return nil, false
		}
		cur = next
	}
	return nil, true
}

func message(path, tag string) string {
	switch tag {
	case "required":
		return fmt.Sprintf("%s is required", path)
	case "string":
		return fmt.Sprintf("%s must be a string", path)
	case "object":
		return fmt.Sprintf("%s must be an object", path)
	case "max":
		return fmt.Sprintf("%s must be at most %d characters", path, MaxQueryLen)
	default:
		return "Invalid value"
	}
}

func str(m map[string]any, k string) string {
	s, _ := m[k].(string)
	return s
}
