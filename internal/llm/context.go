package llm

import "context"

type ctxKey int

const (
	purposeKey ctxKey = iota
	sessionKey
)

// Purpose labels recorded with each request.
const (
	PurposePlan        = "teaching-plan"
	PurposeOpening     = "unit-opening"
	PurposeExplain     = "point-explanation"
	PurposeCheck       = "comprehension-check"
	PurposeRemediation = "remediation"
	PurposeExamples    = "more-examples"
	PurposeDeepen      = "deepen"
	PurposeProbe       = "probe"
)

// WithPurpose labels requests made with ctx.
func WithPurpose(ctx context.Context, purpose string) context.Context {
	return context.WithValue(ctx, purposeKey, purpose)
}

// PurposeFrom returns the label set by WithPurpose, or "unknown".
func PurposeFrom(ctx context.Context) string {
	if v, ok := ctx.Value(purposeKey).(string); ok && v != "" {
		return v
	}
	return "unknown"
}

// WithSession ties requests made with ctx to a tutoring session.
func WithSession(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionKey, sessionID)
}

// SessionFrom returns the session set by WithSession.
func SessionFrom(ctx context.Context) string {
	v, _ := ctx.Value(sessionKey).(string)
	return v
}
