package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"

	"github.com/yungbote/careplan-backend/internal/cache"
	"github.com/yungbote/careplan-backend/internal/config"
	"github.com/yungbote/careplan-backend/internal/domain"
	"github.com/yungbote/careplan-backend/internal/llm"
	"github.com/yungbote/careplan-backend/internal/observability"
	"github.com/yungbote/careplan-backend/internal/platform/apierr"
	"github.com/yungbote/careplan-backend/internal/platform/logger"
)

// Operation names double as cache namespaces and metric labels.
const (
	OpCarePlan = "care-plan"
	OpQuality  = "quality"
	OpResearch = "research"
)

type Options struct {
	Engine    llm.Engine
	Cache     cache.Cache
	Log       *logger.Logger
	Metrics   *observability.Metrics
	Endpoints config.EndpointsConfig
	// Timeout bounds each upstream call. Defaults to 30s.
	Timeout time.Duration
	// SingleFlight collapses concurrent identical cache misses into one upstream call.
	SingleFlight bool
}

// Service implements the three gateway operations. It never retries upstream calls.
type Service struct {
	engine    llm.Engine
	cache     cache.Cache
	log       *logger.Logger
	metrics   *observability.Metrics
	endpoints config.EndpointsConfig
	timeout   time.Duration
	group     *singleflight.Group
}

func New(opts Options) (*Service, error) {
	if opts.Engine == nil {
		return nil, errors.New("gateway: engine required")
	}
	if opts.Cache == nil {
		return nil, errors.New("gateway: cache required")
	}
	if opts.Log == nil {
		opts.Log = logger.NewNop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	s := &Service{
		engine:    opts.Engine,
		cache:     opts.Cache,
		log:       opts.Log.With("service", "Gateway"),
		metrics:   opts.Metrics,
		endpoints: opts.Endpoints,
		timeout:   opts.Timeout,
	}
	if opts.SingleFlight {
		s.group = &singleflight.Group{}
	}
	return s, nil
}

// GeneratePlan drafts a care plan for profile using systemPrompt.
func (s *Service) GeneratePlan(ctx context.Context, profile domain.ClientProfile, systemPrompt string) (string, error) {
	user := profile.CanonicalJSON()
	key := cache.Fingerprint(OpCarePlan, user, systemPrompt)
	raw, err := s.run(ctx, OpCarePlan, key, s.request(s.endpoints.CarePlan, systemPrompt, user), decodeText)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// ScorePlan rates plan on the seven-criterion scorecard. An empty prompt uses the default scoring prompt.
func (s *Service) ScorePlan(ctx context.Context, plan, prompt string) (domain.QualityScorecard, error) {
	if strings.TrimSpace(prompt) == "" {
		prompt = domain.DefaultScoringPrompt
	}
	key := cache.Fingerprint(OpQuality, plan, prompt)
	system := strings.TrimSpace(prompt) + "\n\n" + domain.ScorecardFormatInstruction
	req := s.request(s.endpoints.Quality, system, plan)
	req.JSON = true

	raw, err := s.run(ctx, OpQuality, key, req, decodeScorecard)
	if err != nil {
		return domain.QualityScorecard{}, err
	}
	var card domain.QualityScorecard
	if err := json.Unmarshal(raw, &card); err != nil {
		return domain.QualityScorecard{}, apierr.Unhandled(fmt.Errorf("cached scorecard: %w", err))
	}
	return card, nil
}

// EnhancePlan adds research grounding to plan. An empty prompt uses the default enhancement prompt.
func (s *Service) EnhancePlan(ctx context.Context, plan, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		prompt = domain.DefaultEnhancementPrompt
	}
	key := cache.Fingerprint(OpResearch, plan, prompt)
	raw, err := s.run(ctx, OpResearch, key, s.request(s.endpoints.Research, prompt, plan), decodeText)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func (s *Service) request(ep config.EndpointConfig, system, user string) llm.Request {
	return llm.Request{
		Model:       ep.Model,
		Temperature: ep.Temperature,
		MaxTokens:   ep.MaxTokens,
		JSON:        ep.JSON,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: system},
			{Role: llm.RoleUser, Content: user},
		},
	}
}

// decoder turns raw upstream text into the bytes stored in the cache.
type decoder func(text string) ([]byte, error)

func decodeText(text string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apierr.Malformed(errors.New("empty upstream completion"))
	}
	return []byte(text), nil
}

func decodeScorecard(text string) ([]byte, error) {
	card, err := domain.ParseScorecard([]byte(llm.CleanJSON(text)))
	if err != nil {
		return nil, apierr.Malformed(err)
	}
	return json.Marshal(card)
}

func (s *Service) run(ctx context.Context, op, key string, req llm.Request, decode decoder) ([]byte, error) {
	if v, ok := s.lookup(ctx, op, key); ok {
		return v, nil
	}
	if s.group == nil {
		return s.call(ctx, op, key, req, decode)
	}
	// The flight is shared, so it must outlive the caller that started it.
	// s.call still bounds it with the upstream timeout.
	flightCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (any, error) {
		// a caller that missed before the previous flight stored its result
		if v, ok := s.lookup(flightCtx, op, key); ok {
			return v, nil
		}
		return s.call(flightCtx, op, key, req, decode)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}

// lookup treats cache backend errors as a miss.
func (s *Service) lookup(ctx context.Context, op, key string) ([]byte, bool) {
	v, ok, err := s.cache.Get(ctx, key)
	switch {
	case err != nil:
		s.metrics.IncCache(op, "error")
		s.log.Ctx(ctx).Warn("cache get failed; treating as miss", "operation", op, "error", err)
		return nil, false
	case ok:
		s.metrics.IncCache(op, "hit")
		return v, true
	default:
		s.metrics.IncCache(op, "miss")
		return nil, false
	}
}

func (s *Service) call(ctx context.Context, op, key string, req llm.Request, decode decoder) ([]byte, error) {
	ctx, span := observability.Tracer().Start(ctx, "gateway."+op)
	defer span.End()
	span.SetAttributes(
		attribute.String("careplan.operation", op),
		attribute.String("llm.model", req.Model),
		attribute.Int("llm.max_tokens", req.MaxTokens),
	)

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	text, err := s.engine.Complete(callCtx, req)
	if err == nil {
		var out []byte
		out, err = decode(text)
		if err == nil {
			s.metrics.ObserveUpstream(op, "ok", time.Since(start))
			if serr := s.cache.Set(ctx, key, out); serr != nil {
				s.log.Ctx(ctx).Warn("cache set failed; response not cached", "operation", op, "error", serr)
			}
			return out, nil
		}
	}

	err = s.classify(callCtx, err)
	kind := apierr.KindOf(err)
	s.metrics.ObserveUpstream(op, string(kind), time.Since(start))
	span.RecordError(err)
	span.SetStatus(codes.Error, string(kind))

	log := s.log.Ctx(ctx)
	if kind == apierr.KindUnhandled {
		log.Error("upstream call failed", "operation", op, "model", req.Model, "error", apierr.From(err).Err)
	} else {
		log.Warn("upstream call failed", "operation", op, "model", req.Model, "kind", kind, "error", err)
	}
	return nil, err
}

func (s *Service) classify(callCtx context.Context, err error) error {
	var ae *apierr.Error
	if errors.As(err, &ae) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return apierr.Timeout(err)
	}
	return apierr.Unhandled(err)
}
