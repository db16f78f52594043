package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/yungbote/careplan-backend/internal/domain"
	"github.com/yungbote/careplan-backend/internal/pipeline"
)

// presenter prints activity entries as they arrive, then the scorecard and final plan.
type presenter struct {
	w     io.Writer
	token uint64
	shown int
	ended bool
}

func newPresenter(w io.Writer) *presenter {
	return &presenter{w: w}
}

func (p *presenter) Observe(s pipeline.Snapshot) {
	if s.Token != p.token || p.shown > len(s.Activities) {
		p.token = s.Token
		p.shown = 0
		p.ended = false
	}
	for _, a := range s.Activities[p.shown:] {
		fmt.Fprintf(p.w, "%s  %-7s  %s\n", a.Timestamp.Format("15:04:05"), stageLabel(a.Stage), a.Message)
	}
	p.shown = len(s.Activities)
	if s.State != pipeline.Idle && s.State.Terminal() && !p.ended {
		p.ended = true
		fmt.Fprintf(p.w, "-- run %d %s\n", s.Token, s.State)
	}
}

func (p *presenter) Result(r pipeline.Result) {
	c := r.Scorecard
	fmt.Fprintln(p.w)
	fmt.Fprintln(p.w, "QUALITY SCORECARD")
	rows := []struct {
		label string
		v     float64
	}{
		{"Specificity", c.Specificity},
		{"Actionability", c.Actionability},
		{"Evidence Connection", c.EvidenceConnection},
		{"Clinical Safety", c.ClinicalSafety},
		{"Research Integration", c.ResearchIntegration},
		{"Family Engagement", c.FamilyEngagement},
		{"Overall", c.Overall},
	}
	for _, r := range rows {
		fmt.Fprintf(p.w, "  %-22s %s %g/5\n", r.label, bar(r.v), r.v)
	}
	if e := strings.TrimSpace(c.Explanation); e != "" {
		fmt.Fprintf(p.w, "\n  %s\n", e)
	}
	fmt.Fprintln(p.w)
	fmt.Fprintln(p.w, "FINAL CARE PLAN")
	fmt.Fprintln(p.w, strings.Repeat("=", 60))
	fmt.Fprintln(p.w, r.Enhanced)
}

func stageLabel(stage int) string {
	if stage == domain.StageInit {
		return "Init"
	}
	return fmt.Sprintf("Stage %d", stage)
}

func bar(v float64) string {
	n := int(v + 0.5)
	if n < 0 {
		n = 0
	}
	if n > 5 {
		n = 5
	}
	return strings.Repeat("#", n) + strings.Repeat(".", 5-n)
}
