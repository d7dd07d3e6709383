package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ajujo/teaching-system/internal/teaching"
)

// SSE event names.
const (
	sseTutorEvent    = "tutor_event"
	sseIdle          = "idle"
	sseSessionClosed = "session_closed"
	sseError         = "error"
)

// streamEvents replays buffered events after the client's cursor, then
// pushes new ones as turns complete. Quiet periods carry idle events.
func (s *Server) streamEvents(c *gin.Context) {
	id := c.Param("id")
	sink, err := s.opts.Hub.Sink(id)
	if err != nil {
		s.respondSessionError(c, err)
		return
	}
	cursor, err := resumeCursor(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid_cursor", err)
		return
	}

	w := c.Writer
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	s.log.Debug("stream opened", "session_id", id, "after_turn", cursor.TurnID, "after_seq", cursor.Seq)
	ctx := c.Request.Context()
	idle := time.NewTicker(s.opts.IdleInterval)
	defer idle.Stop()

	for {
		events, wake, closed := sink.Poll(cursor)
		for _, e := range events {
			if err := writeEvent(w, e); err != nil {
				s.log.Debug("stream write failed", "session_id", id, "error", err)
				return
			}
			cursor = teaching.CursorOf(e)
		}
		if len(events) > 0 {
			w.Flush()
			idle.Reset(s.opts.IdleInterval)
		}
		if closed {
			s.log.Debug("stream closed", "session_id", id)
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-wake:
		case <-idle.C:
			if err := writeEvent(w, sink.Idle()); err != nil {
				return
			}
			w.Flush()
		}
	}
}

// resumeCursor reads Last-Event-ID ("<turn>-<seq>"), falling back to the
// after_turn and after_seq query parameters.
func resumeCursor(c *gin.Context) (teaching.Cursor, error) {
	if last := strings.TrimSpace(c.GetHeader("Last-Event-ID")); last != "" {
		return parseEventID(last)
	}
	var cur teaching.Cursor
	var err error
	if v := c.Query("after_turn"); v != "" {
		if cur.TurnID, err = strconv.Atoi(v); err != nil {
			return cur, fmt.Errorf("after_turn: %w", err)
		}
	}
	if v := c.Query("after_seq"); v != "" {
		if cur.Seq, err = strconv.Atoi(v); err != nil {
			return cur, fmt.Errorf("after_seq: %w", err)
		}
	}
	return cur, nil
}

func parseEventID(id string) (teaching.Cursor, error) {
	turn, seq, ok := strings.Cut(id, "-")
	if !ok {
		return teaching.Cursor{}, fmt.Errorf("malformed event id %q", id)
	}
	t, err := strconv.Atoi(turn)
	if err != nil {
		return teaching.Cursor{}, fmt.Errorf("malformed event id %q: %w", id, err)
	}
	s, err := strconv.Atoi(seq)
	if err != nil {
		return teaching.Cursor{}, fmt.Errorf("malformed event id %q: %w", id, err)
	}
	return teaching.Cursor{TurnID: t, Seq: s}, nil
}

func sseName(e teaching.Event) string {
	switch e.Type {
	case teaching.EventIdle:
		return sseIdle
	case teaching.EventSessionClosed:
		return sseSessionClosed
	case teaching.EventError:
		return sseError
	}
	return sseTutorEvent
}

// writeEvent writes one SSE frame. Idle frames carry no id so they do not
// move the client's resume point.
func writeEvent(w gin.ResponseWriter, e teaching.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	var b strings.Builder
	if e.Type != teaching.EventIdle {
		fmt.Fprintf(&b, "id: %d-%d\n", e.TurnID, e.Seq)
	}
	fmt.Fprintf(&b, "event: %s\ndata: %s\n\n", sseName(e), data)
	_, err = w.WriteString(b.String())
	return err
}
