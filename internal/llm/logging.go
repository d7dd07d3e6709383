package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ajujo/teaching-system/internal/logger"
	"github.com/ajujo/teaching-system/internal/store"
)

var tracer = otel.Tracer("github.com/ajujo/teaching-system/internal/llm")

// Recorder journals model calls.
type Recorder interface {
	AppendLLMRequest(ctx context.Context, r store.LLMRequest) error
}

// LoggingProvider journals every request, traces it and logs failures.
type LoggingProvider struct {
	inner    Provider
	provider string
	rec      Recorder
	log      *logger.Logger
}

// WithLogging wraps p. A nil rec skips journaling.
func WithLogging(p Provider, provider string, rec Recorder, log *logger.Logger) Provider {
	if log == nil {
		log = logger.Nop()
	}
	return &LoggingProvider{inner: p, provider: provider, rec: rec, log: log}
}

func (l *LoggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	purpose := PurposeFrom(ctx)
	ctx, span := tracer.Start(ctx, "llm.generate", trace.WithAttributes(
		attribute.String("llm.provider", l.provider),
		attribute.String("llm.model", l.inner.ModelID()),
		attribute.String("llm.purpose", purpose),
	))
	defer span.End()

	start := time.Now()
	resp, err := l.inner.Generate(ctx, req)
	latency := time.Since(start)

	rec := store.LLMRequest{
		SessionID:   SessionFrom(ctx),
		Provider:    l.provider,
		Model:       l.inner.ModelID(),
		Purpose:     purpose,
		LatencyMs:   latency.Milliseconds(),
		Success:     err == nil,
		RequestBody: serializeRequest(req),
	}
	if resp != nil {
		rec.InputTokens = resp.Usage.InputTokens
		rec.OutputTokens = resp.Usage.OutputTokens
		rec.Model = resp.Model
		rec.ResponseBody = string(resp.Content)
		span.SetAttributes(
			attribute.Int("llm.input_tokens", rec.InputTokens),
			attribute.Int("llm.output_tokens", rec.OutputTokens),
		)
	}
	if err != nil {
		rec.ErrorMessage = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, "generate failed")
		l.log.Warn("model request failed",
			"provider", l.provider, "purpose", purpose, "latency_ms", rec.LatencyMs, "error", err)
	} else {
		l.log.Debug("model request",
			"provider", l.provider, "model", rec.Model, "purpose", purpose,
			"input_tokens", rec.InputTokens, "output_tokens", rec.OutputTokens, "latency_ms", rec.LatencyMs)
	}

	if l.rec != nil {
		if jerr := l.rec.AppendLLMRequest(ctx, rec); jerr != nil {
			l.log.Warn("journal model request", "error", jerr)
		}
	}
	return resp, err
}

func (l *LoggingProvider) ModelID() string { return l.inner.ModelID() }

// serializeRequest renders the prompt the way `tutor llm view` prints it.
func serializeRequest(req Request) string {
	var b strings.Builder
	if req.System != "" {
		b.WriteString("[system]\n")
		b.WriteString(req.System)
		b.WriteString("\n\n")
	}
	for _, m := range req.Messages {
		fmt.Fprintf(&b, "[%s]\n%s\n\n", m.Role, m.Content)
	}
	if req.Schema != nil {
		if def, err := json.Marshal(req.Schema.Definition); err == nil {
			fmt.Fprintf(&b, "[schema: %s]\n%s\n", req.Schema.Name, def)
		}
	}
	return b.String()
}
