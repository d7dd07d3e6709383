package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ajujo/teaching-system/internal/teaching"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("file:" + t.Name() + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)

	tests := []struct {
		pragma string
		want   string
	}{
		// in-memory databases report journal_mode "memory"
		{"foreign_keys", "1"},
		{"synchronous", "1"},
	}
	for _, tt := range tests {
		var got string
		if err := s.DB().QueryRow("PRAGMA " + tt.pragma).Scan(&got); err != nil {
			t.Errorf("PRAGMA %s: %v", tt.pragma, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PRAGMA %s = %q, want %q", tt.pragma, got, tt.want)
		}
	}
}

func TestMigrationCreatesTables(t *testing.T) {
	s := openTestStore(t)
	for _, table := range []string{llmRequestsTable, tutorEventsTable, "global_sequence"} {
		var name string
		err := s.DB().QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s: %v", table, err)
		}
	}
}

func TestReopenFileKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	ctx := context.Background()
	if err := s.AppendLLMRequest(ctx, LLMRequest{Purpose: "probe", Model: "mock", Success: true}); err != nil {
		t.Fatalf("append: %v", err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	reqs, err := s.ListLLMRequests(ctx, QueryOpts{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(reqs) != 1 || reqs[0].Sequence != 1 {
		t.Fatalf("requests = %+v", reqs)
	}
	if err := s.AppendLLMRequest(ctx, LLMRequest{Purpose: "probe"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	reqs, _ = s.ListLLMRequests(ctx, QueryOpts{Limit: 1})
	if reqs[0].Sequence != 2 {
		t.Errorf("sequence after reopen = %d, want 2", reqs[0].Sequence)
	}
}

func TestSequenceCounter(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var got []int64
	for _, n := range []int{1, 3, 1} {
		seq, err := s.seq.Next(ctx, n)
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		got = append(got, seq)
	}
	want := []int64{1, 2, 5}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("seq[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestLLMRequestsRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	in := []LLMRequest{
		{SessionID: "a1", Provider: "openai", Model: "gpt-4o-mini", Purpose: "comprehension-check",
			InputTokens: 100, OutputTokens: 20, LatencyMs: 300, Success: true,
			RequestBody: "[user]\nhola", ResponseBody: `{"understood":true}`},
		{SessionID: "a1", Provider: "openai", Model: "gpt-4o-mini", Purpose: "comprehension-check",
			InputTokens: 80, LatencyMs: 200, Success: false, ErrorMessage: "rate limited"},
		{SessionID: "b2", Provider: "openai", Model: "gpt-4o-mini", Purpose: "point-explanation",
			InputTokens: 50, OutputTokens: 400, LatencyMs: 900, Success: true},
	}
	for _, r := range in {
		if err := s.AppendLLMRequest(ctx, r); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	all, err := s.ListLLMRequests(ctx, QueryOpts{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 || all[0].Purpose != "point-explanation" {
		t.Fatalf("list = %+v", all)
	}
	if all[2].Timestamp.IsZero() || !all[2].Success || all[2].ResponseBody != `{"understood":true}` {
		t.Errorf("oldest = %+v", all[2])
	}

	bySession, err := s.ListLLMRequests(ctx, QueryOpts{SessionID: "a1"})
	if err != nil {
		t.Fatalf("list by session: %v", err)
	}
	if len(bySession) != 2 {
		t.Errorf("session a1 requests = %d, want 2", len(bySession))
	}

	got, err := s.GetLLMRequest(ctx, all[1].ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ErrorMessage != "rate limited" || got.Success {
		t.Errorf("get = %+v", got)
	}

	if _, err := s.GetLLMRequest(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Errorf("get missing: err = %v, want ErrNotFound", err)
	}
}

func TestLLMUsage(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	for _, r := range []LLMRequest{
		{Model: "m", Purpose: "comprehension-check", InputTokens: 10, OutputTokens: 1, LatencyMs: 5, Success: true},
		{Model: "m", Purpose: "comprehension-check", InputTokens: 20, OutputTokens: 2, LatencyMs: 7, Success: false},
		{Model: "m", Purpose: "remediation", InputTokens: 1, OutputTokens: 1, LatencyMs: 1, Success: true},
	} {
		if err := s.AppendLLMRequest(ctx, r); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	usage, err := s.LLMUsage(ctx, QueryOpts{})
	if err != nil {
		t.Fatalf("usage: %v", err)
	}
	if len(usage) != 2 {
		t.Fatalf("usage rows = %d, want 2", len(usage))
	}
	check := usage[0]
	if check.Purpose != "comprehension-check" || check.Requests != 2 || check.Failures != 1 ||
		check.InputTokens != 30 || check.OutputTokens != 3 || check.LatencyMs != 12 {
		t.Errorf("usage[0] = %+v", check)
	}

	filtered, err := s.LLMUsage(ctx, QueryOpts{Purpose: "remediation"})
	if err != nil {
		t.Fatalf("usage filtered: %v", err)
	}
	if len(filtered) != 1 || filtered[0].Requests != 1 {
		t.Errorf("filtered = %+v", filtered)
	}
}

func TestAppendEventsKeepsOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	turn1 := []teaching.Event{
		{EventID: "e1", Type: teaching.EventUnitOpening, TurnID: 1, Seq: 1, Title: "Unidad", Body: "Hola",
			Data: map[string]any{"num_points": 2}},
	}
	turn2 := []teaching.Event{
		{EventID: "e2", Type: teaching.EventPointOpening, TurnID: 2, Seq: 1, Data: map[string]any{}},
		{EventID: "e3", Type: teaching.EventAskCheck, TurnID: 2, Seq: 2, Body: "¿Qué es un token?"},
	}
	if err := s.AppendEvents(ctx, "abc12345", turn1); err != nil {
		t.Fatalf("append turn 1: %v", err)
	}
	if err := s.AppendEvents(ctx, "other", turn1); err != nil {
		t.Fatalf("append other: %v", err)
	}
	if err := s.AppendEvents(ctx, "abc12345", turn2); err != nil {
		t.Fatalf("append turn 2: %v", err)
	}
	if err := s.AppendEvents(ctx, "abc12345", nil); err != nil {
		t.Fatalf("append empty: %v", err)
	}

	evs, err := s.SessionEvents(ctx, "abc12345", QueryOpts{})
	if err != nil {
		t.Fatalf("session events: %v", err)
	}
	if len(evs) != 3 {
		t.Fatalf("events = %d, want 3", len(evs))
	}
	for i, id := range []string{"e1", "e2", "e3"} {
		if evs[i].EventID != id {
			t.Errorf("evs[%d] = %s, want %s", i, evs[i].EventID, id)
		}
	}
	if evs[0].Data["num_points"] != float64(2) || evs[2].Body != "¿Qué es un token?" {
		t.Errorf("decoded = %+v / %+v", evs[0], evs[2])
	}
	if evs[1].Type != teaching.EventPointOpening || evs[2].Seq != 2 {
		t.Errorf("evs[1..2] = %+v %+v", evs[1].Event, evs[2].Event)
	}

	after, err := s.SessionEvents(ctx, "abc12345", QueryOpts{After: evs[0].Sequence})
	if err != nil {
		t.Fatalf("after: %v", err)
	}
	if len(after) != 2 {
		t.Errorf("events after first = %d, want 2", len(after))
	}
}

func TestSessions(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	clock := base
	s.now = func() time.Time { return clock }

	ev := func(turn int) []teaching.Event {
		return []teaching.Event{{EventID: "x", Type: teaching.EventFeedback, TurnID: turn, Seq: 1}}
	}
	_ = s.AppendEvents(ctx, "first", ev(1))
	clock = base.Add(time.Minute)
	_ = s.AppendEvents(ctx, "second", ev(1))
	clock = base.Add(2 * time.Minute)
	_ = s.AppendEvents(ctx, "first", ev(2))

	sessions, err := s.Sessions(ctx, 0)
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	if len(sessions) != 2 || sessions[0].SessionID != "first" {
		t.Fatalf("sessions = %+v", sessions)
	}
	if sessions[0].Events != 2 || sessions[0].Turns != 2 {
		t.Errorf("first = %+v", sessions[0])
	}
	if !sessions[0].First.Equal(base) || !sessions[0].Last.Equal(base.Add(2*time.Minute)) {
		t.Errorf("first span = %v .. %v", sessions[0].First, sessions[0].Last)
	}
}
