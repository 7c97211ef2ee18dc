// Package generator produces new content items from an external text model.
package generator

import (
	"context"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	types "github.com/yungbote/hackfeed-backend/internal/domain/content"
	apperr "github.com/yungbote/hackfeed-backend/internal/pkg/errors"
)

// Generator creates one item. Any failure, including an empty or invalid
// result, is reported as a generation error. Implementations should return
// promptly once ctx is done; callers stop waiting at the deadline either way.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Result, error)
}

// Func adapts a plain function to Generator.
type Func func(ctx context.Context, req Request) (*Result, error)

func (f Func) Generate(ctx context.Context, req Request) (*Result, error) { return f(ctx, req) }

type Request struct {
	CategoryID   uuid.UUID        `json:"category_id" validate:"required"`
	Category     string           `json:"category" validate:"required,notblank"`
	Difficulty   types.Difficulty `json:"difficulty" validate:"oneof=beginner intermediate advanced"`
	CustomPrompt string           `json:"custom_prompt,omitempty" validate:"max=2000"`
}

type Result struct {
	Title   string   `json:"title" validate:"required,notblank,max=200,no_xss"`
	Body    string   `json:"body" validate:"required,notblank,no_xss"`
	Summary string   `json:"summary" validate:"max=500,no_xss"`
	Tags    []string `json:"tags" validate:"max=10,dive,notblank,max=40"`
}

const summaryMaxRunes = 200

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		_ = validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
		_ = validate.RegisterValidation("no_xss", validateNoXSS)
	})
	return validate
}

func validateNoXSS(fl validator.FieldLevel) bool {
	value := strings.ToLower(fl.Field().String())
	for _, pattern := range []string{"<script", "javascript:", "onerror=", "onload=", "<iframe", "<object", "<embed"} {
		if strings.Contains(value, pattern) {
			return false
		}
	}
	return true
}

func (r Request) Validate() error {
	if err := validatorInstance().Struct(r); err != nil {
		return apperr.New(apperr.CodeInvalidArgument, "generator.Request", err.Error(), err)
	}
	return nil
}

// Normalize trims every field, drops blank tags and derives a summary from
// the first paragraph when the model left it empty.
func (r *Result) Normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.Body = strings.TrimSpace(r.Body)
	r.Summary = strings.TrimSpace(r.Summary)
	tags := r.Tags[:0]
	seen := map[string]bool{}
	for _, t := range r.Tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		tags = append(tags, t)
	}
	r.Tags = tags
	if r.Summary == "" && r.Body != "" {
		first := strings.TrimSpace(strings.SplitN(r.Body, "\n", 2)[0])
		if rs := []rune(first); len(rs) > summaryMaxRunes {
			first = strings.TrimSpace(string(rs[:summaryMaxRunes-1])) + "…"
		}
		r.Summary = first
	}
}

// Validate normalizes r and rejects it as a generation failure when required fields are missing.
func (r *Result) Validate() error {
	if r == nil {
		return apperr.Newf(apperr.CodeGeneration, "generator.Result", "empty result")
	}
	r.Normalize()
	if err := validatorInstance().Struct(r); err != nil {
		return apperr.New(apperr.CodeGeneration, "generator.Result", "invalid generated content", err)
	}
	return nil
}

// Validated wraps g so every result is checked and every failure carries the generation code.
func Validated(g Generator) Generator {
	return Func(func(ctx context.Context, req Request) (*Result, error) {
		if err := req.Validate(); err != nil {
			return nil, err
		}
		res, err := g.Generate(ctx, req)
		if err != nil {
			if apperr.IsCode(err, apperr.CodeGeneration) {
				return nil, err
			}
			return nil, apperr.New(apperr.CodeGeneration, "generator.Generate",
				"category="+req.Category+" difficulty="+string(req.Difficulty), err)
		}
		if err := res.Validate(); err != nil {
			return nil, err
		}
		return res, nil
	})
}
