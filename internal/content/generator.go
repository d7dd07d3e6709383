// Package content generates teaching text with a language model.
package content

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ajujo/teaching-system/internal/llm"
	"github.com/ajujo/teaching-system/internal/logger"
	"github.com/ajujo/teaching-system/internal/persona"
	"github.com/ajujo/teaching-system/internal/teaching"
)

var tracer = otel.Tracer("github.com/ajujo/teaching-system/internal/content")

// Generator implements teaching.Content on top of an llm.Provider.
type Generator struct {
	provider llm.Provider
	cfg      Config
	log      *logger.Logger
}

var _ teaching.Content = (*Generator)(nil)

// NewGenerator returns a Generator. A nil log discards output.
func NewGenerator(p llm.Provider, cfg Config, log *logger.Logger) *Generator {
	if log == nil {
		log = logger.Nop()
	}
	def := DefaultConfig()
	if cfg.PlanMaxTokens <= 0 {
		cfg.PlanMaxTokens = def.PlanMaxTokens
	}
	if cfg.ExplainMaxTokens <= 0 {
		cfg.ExplainMaxTokens = def.ExplainMaxTokens
	}
	if cfg.CheckMaxTokens <= 0 {
		cfg.CheckMaxTokens = def.CheckMaxTokens
	}
	if cfg.NotesContext <= 0 {
		cfg.NotesContext = def.NotesContext
	}
	return &Generator{provider: p, cfg: cfg, log: log}
}

type planOutput struct {
	Objective string `json:"objective"`
	Points    []struct {
		Title   string `json:"title"`
		Summary string `json:"summary"`
	} `json:"points"`
}

// BuildPlan asks the model to split the notes into points. Output that
// cannot be used falls back to the notes-based plan.
func (g *Generator) BuildPlan(ctx context.Context, req teaching.PlanRequest) (*teaching.Plan, error) {
	fallback := teaching.ParsePlan(req.UnitID, req.Title, req.Notes)
	if strings.TrimSpace(req.Notes) == "" {
		return fallback, nil
	}

	r := llm.UserPrompt(planSystemPrompt, planMessage(req, g.cfg.PlanMaxTokens), g.cfg.PlanMaxTokens)
	r.Schema = PlanSchema
	r.Temperature = tempPlan

	resp, err := g.generate(ctx, llm.PurposePlan, r)
	if err != nil {
		if llm.IsMalformed(err) {
			g.log.Warn("plan output unusable, parsing notes", "unit_id", req.UnitID, "error", err)
			return fallback, nil
		}
		return nil, g.wrap(llm.PurposePlan, err)
	}

	var out planOutput
	if err := json.Unmarshal(resp.Content, &out); err != nil {
		g.log.Warn("plan output unusable, parsing notes", "unit_id", req.UnitID, "error", err)
		return fallback, nil
	}

	plan := &teaching.Plan{UnitID: req.UnitID, Title: fallback.Title, Objective: fallback.Objective}
	if obj := strings.TrimSpace(out.Objective); obj != "" {
		plan.Objective = obj
	}
	for _, p := range out.Points {
		title := clip(p.Title, maxTitle)
		if title == "" {
			continue
		}
		plan.Points = append(plan.Points, teaching.Point{
			Number:  len(plan.Points) + 1,
			Title:   title,
			Summary: clip(p.Summary, g.cfg.NotesContext),
		})
		if len(plan.Points) == maxPoints {
			break
		}
	}
	if len(plan.Points) == 0 {
		return fallback, nil
	}
	return plan, nil
}

const (
	maxPoints = 5
	maxTitle  = 60
)

// OpenUnit renders the opening from the plan; no model call is needed.
func (g *Generator) OpenUnit(_ context.Context, req teaching.OpenRequest) (string, error) {
	return teaching.RenderOpening(req.Plan, req.StudentName), nil
}

func (g *Generator) Explain(ctx context.Context, req teaching.PointRequest) (string, error) {
	r := llm.UserPrompt(systemPrompt(req.Persona, explainSystemPrompt), g.explainMessage(req), g.cfg.ExplainMaxTokens)
	r.Temperature = tempExplain
	return g.text(ctx, llm.PurposeExplain, r)
}

type verdictOutput struct {
	Understood       bool    `json:"understood"`
	Confidence       float64 `json:"confidence"`
	Feedback         string  `json:"feedback"`
	NeedsElaboration bool    `json:"needs_elaboration"`
}

func (g *Generator) CheckComprehension(ctx context.Context, req teaching.CheckRequest) (teaching.Verdict, error) {
	r := llm.UserPrompt(systemPrompt(req.Persona, checkSystemPrompt), g.checkMessage(req), g.cfg.CheckMaxTokens)
	r.Schema = VerdictSchema
	r.Temperature = tempCheck

	resp, err := g.generate(ctx, llm.PurposeCheck, r)
	if err != nil {
		return teaching.Verdict{}, g.wrap(llm.PurposeCheck, err)
	}
	var out verdictOutput
	if err := json.Unmarshal(resp.Content, &out); err != nil {
		return teaching.Verdict{}, fmt.Errorf("%s: %w: %v", llm.PurposeCheck, teaching.ErrMalformedContent, err)
	}
	return teaching.Verdict{
		Understood:       out.Understood,
		Rationale:        strings.TrimSpace(out.Feedback),
		NeedsElaboration: out.NeedsElaboration,
	}, nil
}

func (g *Generator) Remediate(ctx context.Context, req teaching.RemediationRequest) (string, error) {
	base := analogySystemPrompt
	if req.Style == persona.StyleExample {
		base = exampleSystemPrompt
	}
	r := llm.UserPrompt(systemPrompt(req.Persona, base), g.remediationMessage(req), g.cfg.ExplainMaxTokens)
	r.Temperature = tempCreative
	return g.text(ctx, llm.PurposeRemediation, r)
}

func (g *Generator) MoreExamples(ctx context.Context, req teaching.PointRequest) (string, error) {
	msg := g.followupMessage(req, "Genera 2-3 ejemplos adicionales que aclaren el concepto.", 400)
	r := llm.UserPrompt(systemPrompt(req.Persona, moreExamplesSystemPrompt), msg, g.cfg.ExplainMaxTokens)
	r.Temperature = tempCreative
	return g.text(ctx, llm.PurposeExamples, r)
}

func (g *Generator) Deepen(ctx context.Context, req teaching.PointRequest) (string, error) {
	msg := g.followupMessage(req, "Profundiza con detalles y ejemplos nuevos.", 600)
	r := llm.UserPrompt(systemPrompt(req.Persona, deepenSystemPrompt), msg, g.cfg.ExplainMaxTokens)
	r.Temperature = tempExplain
	return g.text(ctx, llm.PurposeDeepen, r)
}

// text runs a free-text request and strips reasoning blocks. Empty output
// counts as malformed.
func (g *Generator) text(ctx context.Context, purpose string, r llm.Request) (string, error) {
	resp, err := g.generate(ctx, purpose, r)
	if err != nil {
		return "", g.wrap(purpose, err)
	}
	out := teaching.StripThink(resp.Text())
	if out == "" {
		return "", fmt.Errorf("%s: %w: empty output", purpose, teaching.ErrMalformedContent)
	}
	return out, nil
}

func (g *Generator) generate(ctx context.Context, purpose string, r llm.Request) (*llm.Response, error) {
	ctx = llm.WithPurpose(ctx, purpose)
	if id := teaching.SessionIDFrom(ctx); id != "" {
		ctx = llm.WithSession(ctx, id)
	}
	ctx, span := tracer.Start(ctx, "content."+purpose)
	defer span.End()
	span.SetAttributes(attribute.String("llm.model", g.provider.ModelID()))

	resp, err := g.provider.Generate(ctx, r)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return resp, nil
}

// wrap keeps context errors detectable and folds unusable output into
// teaching.ErrMalformedContent.
func (g *Generator) wrap(purpose string, err error) error {
	if llm.IsMalformed(err) {
		return fmt.Errorf("%s: %w: %v", purpose, teaching.ErrMalformedContent, err)
	}
	return fmt.Errorf("%s: %w", purpose, err)
}
