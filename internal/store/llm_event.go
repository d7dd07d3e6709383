package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// LLMRequest is one journaled model call.
type LLMRequest struct {
	ID           int
	Sequence     int64
	Timestamp    time.Time
	SessionID    string
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// QueryOpts filters and pages journal listings.
type QueryOpts struct {
	Limit     int // 0 = unlimited
	After     int64
	SessionID string
	Purpose   string
	From      time.Time
	To        time.Time
}

// ErrNotFound is returned by lookups of a missing record.
var ErrNotFound = errors.New("not found")

// AppendLLMRequest journals a model call.
func (s *Store) AppendLLMRequest(ctx context.Context, r LLMRequest) error {
	seq, err := s.seq.Next(ctx, 1)
	if err != nil {
		return err
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = s.now()
	}

	query, args := builder().Insert(llmRequestsTable).
		Columns("sequence", "timestamp", "session_id", "provider", "model", "purpose",
			"input_tokens", "output_tokens", "latency_ms", "success", "error_message",
			"request_body", "response_body").
		Values(seq, r.Timestamp, r.SessionID, r.Provider, r.Model, r.Purpose,
			r.InputTokens, r.OutputTokens, r.LatencyMs, r.Success, r.ErrorMessage,
			r.RequestBody, r.ResponseBody).
		Query()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save LLM request: %w", err)
	}
	return nil
}

var llmRequestFields = []string{
	"id", "sequence", "timestamp", "session_id", "provider", "model", "purpose",
	"input_tokens", "output_tokens", "latency_ms", "success", "error_message",
	"request_body", "response_body",
}

// ListLLMRequests returns matching requests, newest first.
func (s *Store) ListLLMRequests(ctx context.Context, opts QueryOpts) ([]LLMRequest, error) {
	b := builder()
	t := b.Table(llmRequestsTable)
	sel := b.Select(qualify(t, llmRequestFields)...).From(t).OrderBy(entsql.Desc(t.C("sequence")))
	if p := opts.predicate(t); p != nil {
		sel.Where(p)
	}
	if opts.Limit > 0 {
		sel.Limit(opts.Limit)
	}

	query, args := sel.Query()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query LLM requests: %w", err)
	}
	defer rows.Close()

	var out []LLMRequest
	for rows.Next() {
		r, err := scanLLMRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetLLMRequest returns a single request by id.
func (s *Store) GetLLMRequest(ctx context.Context, id int) (LLMRequest, error) {
	b := builder()
	t := b.Table(llmRequestsTable)
	query, args := b.Select(qualify(t, llmRequestFields)...).From(t).
		Where(entsql.EQ(t.C("id"), id)).
		Query()

	r, err := scanLLMRequest(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return LLMRequest{}, fmt.Errorf("LLM request %d: %w", id, ErrNotFound)
	}
	return r, err
}

// Usage aggregates requests sharing a purpose and model.
type Usage struct {
	Purpose      string
	Model        string
	Requests     int
	Failures     int
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
}

// LLMUsage sums tokens and latency by purpose and model.
func (s *Store) LLMUsage(ctx context.Context, opts QueryOpts) ([]Usage, error) {
	b := builder()
	t := b.Table(llmRequestsTable)
	sel := b.Select(
		t.C("purpose"),
		t.C("model"),
		entsql.Count("*"),
		"SUM(CASE WHEN "+t.C("success")+" THEN 0 ELSE 1 END)",
		entsql.Sum(t.C("input_tokens")),
		entsql.Sum(t.C("output_tokens")),
		entsql.Sum(t.C("latency_ms")),
	).From(t).
		GroupBy(t.C("purpose"), t.C("model")).
		OrderBy(t.C("purpose"), t.C("model"))
	if p := opts.predicate(t); p != nil {
		sel.Where(p)
	}

	query, args := sel.Query()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query LLM usage: %w", err)
	}
	defer rows.Close()

	var out []Usage
	for rows.Next() {
		var u Usage
		if err := rows.Scan(&u.Purpose, &u.Model, &u.Requests, &u.Failures,
			&u.InputTokens, &u.OutputTokens, &u.LatencyMs); err != nil {
			return nil, fmt.Errorf("scan LLM usage: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLLMRequest(row scanner) (LLMRequest, error) {
	var r LLMRequest
	err := row.Scan(&r.ID, &r.Sequence, &r.Timestamp, &r.SessionID, &r.Provider, &r.Model,
		&r.Purpose, &r.InputTokens, &r.OutputTokens, &r.LatencyMs, &r.Success,
		&r.ErrorMessage, &r.RequestBody, &r.ResponseBody)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r, err
		}
		return r, fmt.Errorf("scan LLM request: %w", err)
	}
	return r, nil
}

func (o QueryOpts) predicate(t *entsql.SelectTable) *entsql.Predicate {
	var ps []*entsql.Predicate
	if o.After > 0 {
		ps = append(ps, entsql.GT(t.C("sequence"), o.After))
	}
	if o.SessionID != "" {
		ps = append(ps, entsql.EQ(t.C("session_id"), o.SessionID))
	}
	if o.Purpose != "" {
		ps = append(ps, entsql.EQ(t.C("purpose"), o.Purpose))
	}
	if !o.From.IsZero() {
		ps = append(ps, entsql.GTE(t.C("timestamp"), o.From))
	}
	if !o.To.IsZero() {
		ps = append(ps, entsql.LTE(t.C("timestamp"), o.To))
	}
	if len(ps) == 0 {
		return nil
	}
	return entsql.And(ps...)
}

func qualify(t *entsql.SelectTable, cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = t.C(c)
	}
	return out
}
