package mock

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/yungbote/careplan-backend/internal/domain"
	"github.com/yungbote/careplan-backend/internal/llm"
)

// Engine returns deterministic output derived from the request, for local development without credentials.
type Engine struct{}

func New() *Engine {
	return &Engine{}
}

func (e *Engine) Complete(ctx context.Context, req llm.Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	user := lastUser(req.Messages)

	if req.JSON {
		h := sha256.Sum256([]byte(req.Model + "\n" + user))
		score := func(i int) float64 { return float64(3 + int(h[i])%3) }
		card := domain.QualityScorecard{
			Specificity:         score(0),
			Actionability:       score(1),
			EvidenceConnection:  score(2),
			ClinicalSafety:      score(3),
			ResearchIntegration: score(4),
			FamilyEngagement:    score(5),
			Overall:             score(6),
			Explanation:         "Mock assessment generated without an upstream model.",
		}
		b, _ := json.Marshal(card)
		return string(b), nil
	}

	first := strings.TrimSpace(user)
	if i := strings.IndexByte(first, '\n'); i >= 0 {
		first = first[:i]
	}
	if len(first) > 120 {
		first = first[:120]
	}
	return fmt.Sprintf("**MAIN CONCERN:** %s\n**WHAT WE'LL DO:** Follow the daily routine and review progress weekly.\n**WHEN TO WORRY:** Call the nurse if symptoms get worse.\n(mock:%s)", first, req.Model), nil
}

func lastUser(msgs []llm.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == llm.RoleUser {
			return msgs[i].Content
		}
	}
	return ""
}
