// Package report renders a finished care plan as a plain-text export.
package report

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/careplan-backend/internal/domain"
	"github.com/yungbote/careplan-backend/internal/research"
)

type Report struct {
	ClientName string
	Generated  time.Time
	Plan       string
	Scorecard  *domain.QualityScorecard
	// Evidence is appended when non-empty.
	Evidence *research.Findings
}

var whitespace = regexp.MustCompile(`\s+`)

// FileName is Care_Plan_<name with whitespace runs as underscores>_<YYYY-MM-DD>.txt.
func FileName(clientName string, date time.Time) string {
	name := whitespace.ReplaceAllString(clientName, "_")
	return fmt.Sprintf("Care_Plan_%s_%s.txt", name, date.Format("2006-01-02"))
}

func Render(r Report) string {
	var b strings.Builder
	b.WriteString("AI CARE PLAN REPORT\n")
	fmt.Fprintf(&b, "Generated: %s\n", r.Generated.Format("1/2/2006"))
	fmt.Fprintf(&b, "Quality Score: %s/5.0\n\n", score(r.Scorecard, func(c *domain.QualityScorecard) float64 { return c.Overall }))
	b.WriteString(r.Plan)
	b.WriteString("\n\n---\nQUALITY METRICS:\n")

	metrics := []struct {
		label string
		get   func(*domain.QualityScorecard) float64
	}{
		{"Specificity", func(c *domain.QualityScorecard) float64 { return c.Specificity }},
		{"Actionability", func(c *domain.QualityScorecard) float64 { return c.Actionability }},
		{"Evidence Connection", func(c *domain.QualityScorecard) float64 { return c.EvidenceConnection }},
		{"Clinical Safety", func(c *domain.QualityScorecard) float64 { return c.ClinicalSafety }},
		{"Research Integration", func(c *domain.QualityScorecard) float64 { return c.ResearchIntegration }},
		{"Family Engagement", func(c *domain.QualityScorecard) float64 { return c.FamilyEngagement }},
		{"Overall Score", func(c *domain.QualityScorecard) float64 { return c.Overall }},
	}
	for _, m := range metrics {
		fmt.Fprintf(&b, "- %s: %s/5.0\n", m.label, score(r.Scorecard, m.get))
	}

	if r.Evidence != nil && !r.Evidence.Empty() {
		writeEvidence(&b, *r.Evidence)
	}

	b.WriteString("\nGenerated by: Senior-Level AI Care Plan System")
	return b.String()
}

func writeEvidence(b *strings.Builder, f research.Findings) {
	b.WriteString("\n---\nSUPPORTING EVIDENCE:\n")
	if len(f.PubmedArticles) > 0 {
		b.WriteString("Published research:\n")
		for _, a := range f.PubmedArticles {
			fmt.Fprintf(b, "- %s", a.Title)
			if a.Journal != "" {
				fmt.Fprintf(b, " (%s", a.Journal)
				if a.Year != "" {
					fmt.Fprintf(b, ", %s", a.Year)
				}
				b.WriteString(")")
			}
			fmt.Fprintf(b, "\n  %s\n", a.URL)
		}
	}
	if len(f.ClinicalTrials) > 0 {
		b.WriteString("Clinical trials:\n")
		for _, t := range f.ClinicalTrials {
			fmt.Fprintf(b, "- %s [%s]", t.Title, t.ID)
			if t.Phase != "" {
				fmt.Fprintf(b, " phase %s", t.Phase)
			}
			fmt.Fprintf(b, "\n  %s\n", t.URL)
		}
	}
}

func score(c *domain.QualityScorecard, get func(*domain.QualityScorecard) float64) string {
	if c == nil {
		return "n/a"
	}
	return strconv.FormatFloat(get(c), 'f', -1, 64)
}
