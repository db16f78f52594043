package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yungbote/careplan-backend/internal/domain"
	"github.com/yungbote/careplan-backend/internal/platform/apierr"
)

type fakeStages struct {
	generateErr error
	emptyPlan   bool

	// gates block GeneratePlan for the named client until closed.
	gates map[string]chan struct{}

	generates int32
	scores    int32
	enhances  int32

	mu      sync.Mutex
	prompts []string
}

func (f *fakeStages) GeneratePlan(ctx context.Context, p domain.ClientProfile, prompt string) (string, error) {
	atomic.AddInt32(&f.generates, 1)
	f.record(prompt)
	if gate, ok := f.gates[p.Name]; ok {
		<-gate
	}
	if f.generateErr != nil {
		return "", f.generateErr
	}
	if f.emptyPlan {
		return "  ", nil
	}
	return "plan for " + p.Name, nil
}

func (f *fakeStages) ScorePlan(ctx context.Context, plan, prompt string) (domain.QualityScorecard, error) {
	atomic.AddInt32(&f.scores, 1)
	f.record(prompt)
	return domain.QualityScorecard{Specificity: 4, Actionability: 4, EvidenceConnection: 3, ClinicalSafety: 5, ResearchIntegration: 2, FamilyEngagement: 4, Overall: 4, Explanation: plan}, nil
}

func (f *fakeStages) EnhancePlan(ctx context.Context, plan, prompt string) (string, error) {
	atomic.AddInt32(&f.enhances, 1)
	f.record(prompt)
	return plan + " (enhanced)", nil
}

func (f *fakeStages) record(p string) {
	f.mu.Lock()
	f.prompts = append(f.prompts, p)
	f.mu.Unlock()
}

func input(name string) Input {
	return Input{Profile: domain.ClientProfile{Name: name, Age: "80", MedicalHistory: "UTI", CurrentConcerns: "hydration"}}
}

func TestRunVisitsStatesInOrder(t *testing.T) {
	var states []State
	o := New(&fakeStages{}, WithObserver(func(s Snapshot) {
		if len(states) == 0 || states[len(states)-1] != s.State {
			states = append(states, s.State)
		}
	}))

	if got := o.Snapshot().State; got != Idle {
		t.Fatalf("initial state=%s", got)
	}
	res, err := o.Run(context.Background(), input("Mrs. B"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []State{Initializing, Generating, Scoring, Enhancing, Done}
	if len(states) != len(want) {
		t.Fatalf("states=%v", states)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Fatalf("states=%v want %v", states, want)
		}
	}
	if res.Enhanced != "plan for Mrs. B (enhanced)" || res.Scorecard.Overall != 4 {
		t.Fatalf("res=%+v", res)
	}
	snap := o.Snapshot()
	if snap.Result == nil || snap.Scorecard == nil || snap.Current != "🎉 Enterprise-grade care plan generated!" {
		t.Fatalf("snap=%+v", snap)
	}
}

func TestRunUsesDefaultPromptsWhenBlank(t *testing.T) {
	f := &fakeStages{}
	o := New(f)
	in := input("Mrs. B")
	in.Prompts = domain.PromptSet{Generation: "custom generation"}
	if _, err := o.Run(context.Background(), in); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(f.prompts) != 3 || f.prompts[0] != "custom generation" || f.prompts[1] != domain.DefaultScoringPrompt || f.prompts[2] != domain.DefaultEnhancementPrompt {
		t.Fatalf("prompts=%q", f.prompts)
	}
}

func TestAttachmentsAreLoggedDuringInit(t *testing.T) {
	o := New(&fakeStages{})
	in := input("Mrs. B")
	in.Attachments = []string{"intake.pdf", "gp-letter.pdf"}
	if _, err := o.Run(context.Background(), in); err != nil {
		t.Fatalf("Run: %v", err)
	}
	var found bool
	for _, a := range o.Snapshot().Activities {
		if a.Message == "📎 Processing 2 attached document(s)" && a.Stage == domain.StageInit {
			found = true
		}
	}
	if !found {
		t.Fatalf("attachment activity missing")
	}
}

func TestFailedGenerationNeverScores(t *testing.T) {
	f := &fakeStages{generateErr: apierr.Malformed(errors.New("empty content"))}
	o := New(f)

	_, err := o.Run(context.Background(), input("Mrs. B"))
	if !errors.Is(err, apierr.ErrMalformed) {
		t.Fatalf("expected malformed, got %v", err)
	}
	if atomic.LoadInt32(&f.scores) != 0 || atomic.LoadInt32(&f.enhances) != 0 {
		t.Fatalf("later stages ran: scores=%d enhances=%d", atomic.LoadInt32(&f.scores), atomic.LoadInt32(&f.enhances))
	}
	snap := o.Snapshot()
	if snap.State != Failed || snap.Result != nil || snap.Scorecard != nil {
		t.Fatalf("snap=%+v", snap)
	}
	if snap.Current != "❌ Error: invalid upstream response" {
		t.Fatalf("current=%q", snap.Current)
	}
}

func TestEmptyPlanFails(t *testing.T) {
	f := &fakeStages{emptyPlan: true}
	o := New(f)
	_, err := o.Run(context.Background(), input("Mrs. B"))
	if err == nil || err.Error() != "Failed to generate initial care plan" {
		t.Fatalf("err=%v", err)
	}
	if atomic.LoadInt32(&f.scores) != 0 {
		t.Fatalf("scored an empty plan")
	}
}

func TestLastSubmissionWins(t *testing.T) {
	gateA := make(chan struct{})
	f := &fakeStages{gates: map[string]chan struct{}{"A": gateA}}

	var mu sync.Mutex
	var seen []string
	o := New(f, WithObserver(func(s Snapshot) {
		if s.Result != nil {
			mu.Lock()
			seen = append(seen, s.Result.Plan)
			mu.Unlock()
		}
	}))

	tokA := o.Submit(context.Background(), input("A"))
	for atomic.LoadInt32(&f.generates) == 0 {
		time.Sleep(time.Millisecond)
	}
	tokB := o.Submit(context.Background(), input("B"))
	if tokB <= tokA {
		t.Fatalf("tokens not increasing: a=%d b=%d", tokA, tokB)
	}

	deadline := time.Now().Add(2 * time.Second)
	for o.Snapshot().State != Done {
		if time.Now().After(deadline) {
			t.Fatalf("B never finished: %+v", o.Snapshot())
		}
		time.Sleep(5 * time.Millisecond)
	}
	close(gateA)
	o.Wait()

	snap := o.Snapshot()
	if snap.Token != tokB || snap.Result == nil || snap.Result.Plan != "plan for B" {
		t.Fatalf("snap=%+v", snap)
	}
	mu.Lock()
	defer mu.Unlock()
	for _, p := range seen {
		if p != "plan for B" {
			t.Fatalf("stale result shown: %q", p)
		}
	}
	// A's in-flight call still completed
	if atomic.LoadInt32(&f.generates) != 2 {
		t.Fatalf("generates=%d", atomic.LoadInt32(&f.generates))
	}
}

func TestResetAbandonsRun(t *testing.T) {
	gate := make(chan struct{})
	f := &fakeStages{gates: map[string]chan struct{}{"A": gate}}
	o := New(f)

	done := make(chan error, 1)
	go func() {
		_, err := o.Run(context.Background(), input("A"))
		done <- err
	}()
	for atomic.LoadInt32(&f.generates) == 0 {
		time.Sleep(time.Millisecond)
	}
	o.Reset()
	close(gate)

	if err := <-done; !errors.Is(err, ErrSuperseded) {
		t.Fatalf("err=%v", err)
	}
	snap := o.Snapshot()
	if snap.State != Idle || len(snap.Activities) != 0 {
		t.Fatalf("snap=%+v", snap)
	}
	if atomic.LoadInt32(&f.scores) != 0 {
		t.Fatalf("abandoned run kept scheduling stages")
	}
}

func TestNewSubmissionClearsPriorLog(t *testing.T) {
	o := New(&fakeStages{generateErr: errors.New("boom")})
	_, _ = o.Run(context.Background(), input("A"))
	if o.Snapshot().State != Failed {
		t.Fatalf("state=%s", o.Snapshot().State)
	}
	o.stages = &fakeStages{}
	if _, err := o.Run(context.Background(), input("B")); err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, a := range o.Snapshot().Activities {
		if strings.HasPrefix(a.Message, "❌") {
			t.Fatalf("prior error kept in log")
		}
	}
}
