package generator

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/hackfeed-backend/internal/clients/openai"
	"github.com/yungbote/hackfeed-backend/internal/pkg/logger"
)

const systemPrompt = "You write short, practical life hacks for a daily feed. " +
	"Each hack has a punchy title, a body of two to four short paragraphs separated by newlines, " +
	"a one-sentence summary and up to five lowercase tags. Never repeat a well-known hack verbatim."

var hackSchema = map[string]any{
	"type":                 "object",
	"additionalProperties": false,
	"required":             []string{"title", "body", "summary", "tags"},
	"properties": map[string]any{
		"title":   map[string]any{"type": "string"},
		"body":    map[string]any{"type": "string"},
		"summary": map[string]any{"type": "string"},
		"tags":    map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
	},
}

// OpenAI generates items through the Responses API with a strict JSON schema.
type OpenAI struct {
	ai  openai.Client
	log *logger.Logger
}

func NewOpenAI(ai openai.Client, log *logger.Logger) Generator {
	return Validated(&OpenAI{ai: ai, log: log.With("component", "OpenAIGenerator")})
}

func (g *OpenAI) Generate(ctx context.Context, req Request) (*Result, error) {
	obj, err := g.ai.GenerateJSON(ctx, systemPrompt, userPrompt(req), "life_hack", hackSchema)
	if err != nil {
		g.log.Warn("Generation call failed", "category", req.Category, "difficulty", req.Difficulty, "error", err)
		return nil, err
	}
	return resultFromJSON(obj), nil
}

func userPrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Category: %s\nDifficulty: %s\n", req.Category, req.Difficulty)
	if p := strings.TrimSpace(req.CustomPrompt); p != "" {
		fmt.Fprintf(&b, "Extra instructions: %s\n", p)
	}
	return b.String()
}

func resultFromJSON(obj map[string]any) *Result {
	str := func(k string) string {
		s, _ := obj[k].(string)
		return s
	}
	res := &Result{Title: str("title"), Body: str("body"), Summary: str("summary")}
	if raw, ok := obj["tags"].([]any); ok {
		for _, t := range raw {
			if s, ok := t.(string); ok {
				res.Tags = append(res.Tags, s)
			}
		}
	}
	return res
}
