package teaching

import "github.com/google/uuid"

// EventType names an emitted event.
type EventType string

const (
	EventUnitOpening       EventType = "UNIT_OPENING"
	EventPointOpening      EventType = "POINT_OPENING"
	EventPointExplanation  EventType = "POINT_EXPLANATION"
	EventAskCheck          EventType = "ASK_CHECK"
	EventFeedback          EventType = "FEEDBACK"
	EventAskConfirmAdvance EventType = "ASK_CONFIRM_ADVANCE"
	EventUnitNotes         EventType = "UNIT_NOTES"
	EventAskUnitNext       EventType = "ASK_UNIT_NEXT"

	// Control events.
	EventError         EventType = "error"
	EventSessionClosed EventType = "session_closed"
	EventIdle          EventType = "idle"
)

// Event is one unit of output delivered to a client. Body is markdown.
type Event struct {
	EventID string         `json:"event_id"`
	Type    EventType      `json:"event_type"`
	TurnID  int            `json:"turn_id"`
	Seq     int            `json:"seq"`
	Title   string         `json:"title"`
	Body    string         `json:"body"`
	Data    map[string]any `json:"data"`
}

// Draft is an event before it is stamped with ids.
type Draft struct {
	Type  EventType
	Title string
	Body  string
	Data  map[string]any
}

// FirstSeq is the seq of the first event of every turn.
const FirstSeq = 1

// TurnContext stamps events so that (TurnID, Seq) is strictly increasing.
type TurnContext struct {
	TurnID  int
	NextSeq int
}

// Begin starts a new turn.
func (t *TurnContext) Begin() {
	t.TurnID++
	t.NextSeq = FirstSeq
}

// Stamp turns a draft into an event of the current turn.
func (t *TurnContext) Stamp(d Draft) Event {
	if t.NextSeq < FirstSeq {
		t.NextSeq = FirstSeq
	}
	data := d.Data
	if data == nil {
		data = map[string]any{}
	}
	e := Event{
		EventID: uuid.NewString(),
		Type:    d.Type,
		TurnID:  t.TurnID,
		Seq:     t.NextSeq,
		Title:   d.Title,
		Body:    d.Body,
		Data:    data,
	}
	t.NextSeq++
	return e
}

// StampAll stamps drafts in order.
func (t *TurnContext) StampAll(ds []Draft) []Event {
	out := make([]Event, 0, len(ds))
	for _, d := range ds {
		out = append(out, t.Stamp(d))
	}
	return out
}

// Cursor identifies a position in a session's event stream.
type Cursor struct {
	TurnID int `json:"turn_id"`
	Seq    int `json:"seq"`
}

// Precedes reports whether c is strictly before e.
func (c Cursor) Precedes(e Event) bool {
	return e.TurnID > c.TurnID || (e.TurnID == c.TurnID && e.Seq > c.Seq)
}

// CursorOf returns the position of e.
func CursorOf(e Event) Cursor {
	return Cursor{TurnID: e.TurnID, Seq: e.Seq}
}
