package teaching

import (
	"context"

	"github.com/ajujo/teaching-system/internal/intent"
	"github.com/ajujo/teaching-system/internal/library"
	"github.com/ajujo/teaching-system/internal/persona"
)

// Content produces every piece of generated text the machine needs. Calls
// may be slow and may fail; they are safe to retry. Implementations wrap
// ErrMalformedContent when output cannot be shaped as required.
type Content interface {
	BuildPlan(ctx context.Context, req PlanRequest) (*Plan, error)
	OpenUnit(ctx context.Context, req OpenRequest) (string, error)
	Explain(ctx context.Context, req PointRequest) (string, error)
	CheckComprehension(ctx context.Context, req CheckRequest) (Verdict, error)
	Remediate(ctx context.Context, req RemediationRequest) (string, error)
	MoreExamples(ctx context.Context, req PointRequest) (string, error)
	Deepen(ctx context.Context, req PointRequest) (string, error)
}

// PlanRequest asks for the plan of a unit.
type PlanRequest struct {
	UnitID string
	Title  string
	Notes  string
}

// OpenRequest asks for the opening of a unit.
type OpenRequest struct {
	Plan        *Plan
	StudentName string
	Persona     persona.Persona
}

// PointRequest carries what every point-level call needs.
type PointRequest struct {
	Plan        *Plan
	Point       Point
	Persona     persona.Persona
	StudentName string
	// Previous is the last explanation given for the point, if any.
	Previous string
}

// CheckRequest asks whether Answer shows understanding of the point.
type CheckRequest struct {
	PointRequest
	Question string
	Answer   string
}

// RemediationRequest asks for an alternate explanation in Style.
type RemediationRequest struct {
	PointRequest
	Question string
	Style    persona.RemediationStyle
}

// Verdict is the result of a comprehension check.
type Verdict struct {
	Understood bool
	Rationale  string
	// NeedsElaboration marks a correct but thin answer.
	NeedsElaboration bool
}

// CommandRequest hands a global command to a Collaborator.
type CommandRequest struct {
	Command   intent.Command
	StudentID string
	BookID    string
	Chapter   int
	Unit      *library.Unit
	Plan      *Plan
}

// CommandResult is what a Collaborator returns. Exam is set when the
// collaborator ran a chapter exam.
type CommandResult struct {
	Type  EventType
	Title string
	Body  string
	Data  map[string]any
	Exam  *ExamOutcome
}

// ExamOutcome is the outcome of a chapter exam attempt.
type ExamOutcome struct {
	ExamSetID string
	AttemptID string
	Passed    bool
}

// Collaborator serves the notes, mini-quiz and chapter exam commands.
type Collaborator interface {
	Serve(ctx context.Context, req CommandRequest) (*CommandResult, error)
}

// NotesCollaborator serves unit notes and reports quizzes and exams as
// unavailable.
type NotesCollaborator struct{}

func (NotesCollaborator) Serve(_ context.Context, req CommandRequest) (*CommandResult, error) {
	switch req.Command {
	case intent.CommandNotes:
		body := "No hay apuntes disponibles para esta unidad."
		title := "Apuntes"
		if req.Unit != nil && req.Unit.Notes != "" {
			body = req.Unit.Notes
			title = "Apuntes: " + req.Unit.Title
		}
		return &CommandResult{Type: EventUnitNotes, Title: title, Body: body}, nil
	case intent.CommandQuiz:
		return &CommandResult{
			Type:  EventFeedback,
			Title: "Control",
			Body:  "El control rápido no está disponible en esta instalación. Seguimos con la clase.",
		}, nil
	case intent.CommandExam:
		return &CommandResult{
			Type:  EventFeedback,
			Title: "Examen",
			Body:  "El examen del capítulo no está disponible en esta instalación. Seguimos con la clase.",
		}, nil
	}
	return &CommandResult{Type: EventFeedback, Body: "Comando no reconocido."}, nil
}
