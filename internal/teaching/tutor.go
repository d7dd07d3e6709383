package teaching

import "context"

// Tutor is the surface both session adapters drive.
type Tutor interface {
	StartSession(ctx context.Context, req StartRequest) (Started, error)
	SubmitInput(ctx context.Context, sessionID, text string) ([]Event, error)
	EndSession(ctx context.Context, sessionID string) ([]Event, error)
	Session(sessionID string) (SessionInfo, error)
}

// StartRequest opens a unit for a student. Zero values fall back to the
// active student, the student's persona and book, and the stored position.
type StartRequest struct {
	StudentID string `json:"student_id"`
	BookID    string `json:"book_id"`
	Chapter   int    `json:"chapter"`
	Unit      int    `json:"unit"`
	PersonaID string `json:"persona_id"`
}

// Started is returned by StartSession.
type Started struct {
	SessionID string  `json:"session_id"`
	Events    []Event `json:"events"`
}

// SessionInfo describes a live session.
type SessionInfo struct {
	ID          string `json:"session_id"`
	StudentID   string `json:"student_id"`
	BookID      string `json:"book_id"`
	Chapter     int    `json:"chapter"`
	Unit        int    `json:"unit"`
	UnitID      string `json:"unit_id"`
	PersonaID   string `json:"persona_id"`
	State       string `json:"state"`
	PointIndex  int    `json:"point_index"`
	TotalPoints int    `json:"total_points"`
	TurnID      int    `json:"turn_id"`
	Degraded    bool   `json:"degraded"`
}

// Journal records emitted events. Failures are logged and never reach the learner.
type Journal interface {
	AppendEvents(ctx context.Context, sessionID string, events []Event) error
}

type sessionKey struct{}

// WithSessionID tags ctx with the session being served so content calls can
// be attributed to it.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionKey{}, id)
}

// SessionIDFrom returns the session id set by WithSessionID, or "".
func SessionIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}
