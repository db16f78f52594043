// Package pipeline drives the three-stage care plan run: generate, score, enhance.
//
// Every run is tagged with a submission token. Only the run holding the current
// token may change the visible state, so a newer submission (or a Reset) silently
// discards whatever an older run produces afterwards. Abandoned runs are not
// cancelled; their in-flight calls finish and may still warm the gateway cache.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/yungbote/careplan-backend/internal/domain"
	"github.com/yungbote/careplan-backend/internal/platform/apierr"
	"github.com/yungbote/careplan-backend/internal/platform/logger"
)

type State int

const (
	Idle State = iota
	Initializing
	Generating
	Scoring
	Enhancing
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Initializing:
		return "initializing"
	case Generating:
		return "generating"
	case Scoring:
		return "scoring"
	case Enhancing:
		return "enhancing"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no further transition will happen without a new submission.
func (s State) Terminal() bool {
	return s == Idle || s == Done || s == Failed
}

// Stages are the three gateway calls a run makes, strictly in order.
type Stages interface {
	GeneratePlan(ctx context.Context, profile domain.ClientProfile, systemPrompt string) (string, error)
	ScorePlan(ctx context.Context, plan, prompt string) (domain.QualityScorecard, error)
	EnhancePlan(ctx context.Context, plan, prompt string) (string, error)
}

type Input struct {
	Profile domain.ClientProfile
	Prompts domain.PromptSet
	// Attachments are document names; only their count is used.
	Attachments []string
}

type Result struct {
	Plan      string                  `json:"plan"`
	Scorecard domain.QualityScorecard `json:"scorecard"`
	Enhanced  string                  `json:"enhanced"`
}

// Snapshot is a copy of the visible state.
type Snapshot struct {
	Token      uint64
	State      State
	Activities []domain.Activity
	Current    string
	Scorecard  *domain.QualityScorecard
	Result     *Result
	Err        error
}

// Observer receives a snapshot after every applied change. It runs with the
// orchestrator locked and must not call back into it.
type Observer func(Snapshot)

var ErrSuperseded = errors.New("pipeline: superseded by a newer submission")

type Option func(*Orchestrator)

func WithObserver(fn Observer) Option {
	return func(o *Orchestrator) { o.observer = fn }
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

func WithLogger(log *logger.Logger) Option {
	return func(o *Orchestrator) {
		if log != nil {
			o.log = log
		}
	}
}

type Orchestrator struct {
	stages   Stages
	observer Observer
	now      func() time.Time
	log      *logger.Logger

	mu    sync.Mutex
	token uint64
	snap  Snapshot

	wg sync.WaitGroup
}

func New(stages Stages, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		stages: stages,
		now:    time.Now,
		log:    logger.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Submit starts a run in the background and returns its token. Any run already
// in progress keeps going but can no longer change the visible state.
func (o *Orchestrator) Submit(ctx context.Context, in Input) uint64 {
	token := o.begin()
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		_, _ = o.run(ctx, token, in)
	}()
	return token
}

// Run is Submit without the goroutine. It returns ErrSuperseded when a newer
// submission or Reset replaced this run before it finished.
func (o *Orchestrator) Run(ctx context.Context, in Input) (Result, error) {
	return o.run(ctx, o.begin(), in)
}

// Reset returns to Idle and abandons the current run without aborting its in-flight call.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.token++
	o.snap = Snapshot{Token: o.token, State: Idle}
	o.notifyLocked()
}

// Wait blocks until every run started by Submit has returned.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.copyLocked()
}

func (o *Orchestrator) begin() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.token++
	// prior log and scorecard are discarded on every new submission
	o.snap = Snapshot{Token: o.token, State: Initializing}
	o.notifyLocked()
	return o.token
}

func (o *Orchestrator) run(ctx context.Context, token uint64, in Input) (Result, error) {
	prompts := in.Prompts.WithDefaults()
	start := o.now()

	ok := o.apply(token, func(s *Snapshot) {
		o.addLocked(s, domain.StageInit, "🔄 Initializing Clinical AI System...")
		o.addLocked(s, domain.StageInit, "📋 Parsing assessment data")
		if n := len(in.Attachments); n > 0 {
			o.addLocked(s, domain.StageInit, fmt.Sprintf("📎 Processing %d attached document(s)", n))
			o.addLocked(s, domain.StageInit, "🔍 Extracting key information from medical records")
			o.addLocked(s, domain.StageInit, "📝 Analyzing intake notes and assessment forms")
		}
	})
	if !ok {
		return Result{}, ErrSuperseded
	}

	// Stage 1
	if !o.transition(token, Generating, domain.StageGenerate, "⚡ Activating Enterprise Knowledge Integration Framework") {
		return Result{}, ErrSuperseded
	}
	plan, err := o.stages.GeneratePlan(ctx, in.Profile, prompts.Generation)
	if err == nil && strings.TrimSpace(plan) == "" {
		err = apierr.New(apierr.KindMalformed, "Failed to generate initial care plan", nil)
	}
	if err != nil {
		return Result{}, o.fail(token, Generating, err)
	}
	if !o.apply(token, func(s *Snapshot) {
		o.addLocked(s, domain.StageGenerate, "🧠 Initial care plan generated")
	}) {
		return Result{}, ErrSuperseded
	}

	// Stage 2
	if !o.transition(token, Scoring, domain.StageScore, "🛡️ Advanced Quality Validation - Multi-Layer Framework") {
		return Result{}, ErrSuperseded
	}
	card, err := o.stages.ScorePlan(ctx, plan, prompts.Scoring)
	if err != nil {
		return Result{}, o.fail(token, Scoring, err)
	}
	if !o.apply(token, func(s *Snapshot) {
		c := card
		s.Scorecard = &c
		o.addLocked(s, domain.StageScore, "✅ Quality validation complete")
	}) {
		return Result{}, ErrSuperseded
	}

	// Stage 3
	if !o.transition(token, Enhancing, domain.StageEnhance, "🚀 Dynamic Learning System - Knowledge Enhancement") {
		return Result{}, ErrSuperseded
	}
	enhanced, err := o.stages.EnhancePlan(ctx, plan, prompts.Enhancement)
	if err != nil {
		return Result{}, o.fail(token, Enhancing, err)
	}

	res := Result{Plan: plan, Scorecard: card, Enhanced: enhanced}
	if !o.apply(token, func(s *Snapshot) {
		o.addLocked(s, domain.StageEnhance, "📚 Research enhancement complete")
		s.State = Done
		r := res
		s.Result = &r
		o.addLocked(s, domain.StageDone, "🎉 Enterprise-grade care plan generated!")
	}) {
		return Result{}, ErrSuperseded
	}
	o.log.Info("care plan pipeline finished", "token", token, "duration_ms", o.now().Sub(start).Milliseconds())
	return res, nil
}

func (o *Orchestrator) transition(token uint64, to State, stage int, msg string) bool {
	return o.apply(token, func(s *Snapshot) {
		s.State = to
		o.addLocked(s, stage, msg)
	})
}

// fail moves to Failed. The message shown is the error's own, verbatim.
func (o *Orchestrator) fail(token uint64, during State, err error) error {
	o.log.Warn("care plan pipeline failed", "token", token, "stage", during.String(), "kind", string(apierr.KindOf(err)), "error", err)
	if !o.apply(token, func(s *Snapshot) {
		s.State = Failed
		s.Err = err
		o.addLocked(s, domain.StageDone, "❌ Error: "+err.Error())
	}) {
		return ErrSuperseded
	}
	return err
}

// apply runs fn only if token is still current.
func (o *Orchestrator) apply(token uint64, fn func(*Snapshot)) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if token != o.token {
		return false
	}
	fn(&o.snap)
	o.notifyLocked()
	return true
}

func (o *Orchestrator) addLocked(s *Snapshot, stage int, msg string) {
	s.Activities = append(s.Activities, domain.Activity{Timestamp: o.now(), Message: msg, Stage: stage})
	s.Current = msg
}

func (o *Orchestrator) notifyLocked() {
	if o.observer != nil {
		o.observer(o.copyLocked())
	}
}

func (o *Orchestrator) copyLocked() Snapshot {
	s := o.snap
	s.Activities = append([]domain.Activity(nil), o.snap.Activities...)
	if o.snap.Scorecard != nil {
		c := *o.snap.Scorecard
		s.Scorecard = &c
	}
	if o.snap.Result != nil {
		r := *o.snap.Result
		s.Result = &r
	}
	return s
}
