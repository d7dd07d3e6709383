package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/ajujo/teaching-system/internal/teaching"
)

// TutorEvent is one journaled event as it was emitted to the learner.
type TutorEvent struct {
	ID        int
	Sequence  int64
	Timestamp time.Time
	SessionID string
	teaching.Event
}

// AppendEvents journals the events of one turn in a single transaction.
func (s *Store) AppendEvents(ctx context.Context, sessionID string, events []teaching.Event) error {
	if len(events) == 0 {
		return nil
	}
	first, err := s.seq.Next(ctx, len(events))
	if err != nil {
		return err
	}
	now := s.now()

	ins := builder().Insert(tutorEventsTable).
		Columns("sequence", "timestamp", "session_id", "event_id", "turn_id", "seq",
			"event_type", "title", "body", "data")
	for i, ev := range events {
		data, err := json.Marshal(ev.Data)
		if err != nil {
			return fmt.Errorf("marshal event data: %w", err)
		}
		ins.Values(first+int64(i), now, sessionID, ev.EventID, ev.TurnID, ev.Seq,
			string(ev.Type), ev.Title, ev.Body, string(data))
	}

	query, args := ins.Query()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save tutor events: %w", err)
	}
	return nil
}

// SessionEvents returns a session's events in emission order.
func (s *Store) SessionEvents(ctx context.Context, sessionID string, opts QueryOpts) ([]TutorEvent, error) {
	b := builder()
	t := b.Table(tutorEventsTable)
	preds := []*entsql.Predicate{entsql.EQ(t.C("session_id"), sessionID)}
	if opts.After > 0 {
		preds = append(preds, entsql.GT(t.C("sequence"), opts.After))
	}
	sel := b.Select(qualify(t, []string{
		"id", "sequence", "timestamp", "session_id", "event_id", "turn_id", "seq",
		"event_type", "title", "body", "data",
	})...).
		From(t).
		Where(entsql.And(preds...)).
		OrderBy(t.C("sequence"))
	if opts.Limit > 0 {
		sel.Limit(opts.Limit)
	}

	query, args := sel.Query()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tutor events: %w", err)
	}
	defer rows.Close()

	var out []TutorEvent
	for rows.Next() {
		var (
			ev       TutorEvent
			typ, raw string
		)
		if err := rows.Scan(&ev.ID, &ev.Sequence, &ev.Timestamp, &ev.SessionID, &ev.EventID,
			&ev.TurnID, &ev.Seq, &typ, &ev.Title, &ev.Body, &raw); err != nil {
			return nil, fmt.Errorf("scan tutor event: %w", err)
		}
		ev.Type = teaching.EventType(typ)
		if err := json.Unmarshal([]byte(raw), &ev.Data); err != nil {
			return nil, fmt.Errorf("decode event data %s: %w", ev.EventID, err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// SessionSummary describes one journaled session.
type SessionSummary struct {
	SessionID string
	Events    int
	Turns     int
	First     time.Time
	Last      time.Time
}

// Sessions lists journaled sessions, most recent first.
func (s *Store) Sessions(ctx context.Context, limit int) ([]SessionSummary, error) {
	b := builder()
	t := b.Table(tutorEventsTable)
	sel := b.Select(
		t.C("session_id"),
		entsql.Count("*"),
		entsql.Max(t.C("turn_id")),
		entsql.Min(t.C("sequence")),
		entsql.Max(t.C("sequence")),
	).From(t).
		GroupBy(t.C("session_id")).
		OrderBy(entsql.Desc(entsql.Max(t.C("sequence"))))
	if limit > 0 {
		sel.Limit(limit)
	}

	query, args := sel.Query()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}

	type span struct{ first, last int64 }
	var (
		out   []SessionSummary
		spans []span
	)
	for rows.Next() {
		var (
			sum SessionSummary
			sp  span
		)
		if err := rows.Scan(&sum.SessionID, &sum.Events, &sum.Turns, &sp.first, &sp.last); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, sum)
		spans = append(spans, sp)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// The single connection is free again; resolve timestamps per span.
	for i, sp := range spans {
		if out[i].First, err = s.timestampAt(ctx, sp.first); err != nil {
			return nil, err
		}
		if out[i].Last, err = s.timestampAt(ctx, sp.last); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Store) timestampAt(ctx context.Context, seq int64) (time.Time, error) {
	b := builder()
	t := b.Table(tutorEventsTable)
	query, args := b.Select(t.C("timestamp")).From(t).Where(entsql.EQ(t.C("sequence"), seq)).Query()

	var ts time.Time
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&ts); err != nil {
		return ts, fmt.Errorf("event timestamp: %w", err)
	}
	return ts, nil
}
