package teaching

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ajujo/teaching-system/internal/intent"
	"github.com/ajujo/teaching-system/internal/library"
	"github.com/ajujo/teaching-system/internal/logger"
	"github.com/ajujo/teaching-system/internal/persona"
	"github.com/ajujo/teaching-system/internal/progress"
)

var tracer = otel.Tracer("github.com/ajujo/teaching-system/internal/teaching")

// ProgressStore is the durable student document.
type ProgressStore interface {
	Load(ctx context.Context) (*progress.StudentsState, error)
	Update(ctx context.Context, fn func(*progress.StudentsState) error) error
}

// Options configures an Engine. Library, Progress, Personas and Content are required.
type Options struct {
	Library      library.Source
	Progress     ProgressStore
	Personas     *persona.Registry
	Content      Content
	Collaborator Collaborator
	Journal      Journal
	Logger       *logger.Logger

	ContentTimeout time.Duration
	ConfirmAdvance bool

	Now func() time.Time
}

// Engine runs teaching sessions for any number of learners. Each session
// runs at most one transition at a time; sessions are independent.
type Engine struct {
	opts Options
	log  *logger.Logger

	mu       sync.RWMutex
	sessions map[string]*session
}

type attemptRecord struct {
	examSetID string
	id        string
}

type session struct {
	mu sync.Mutex

	id          string
	studentID   string
	studentName string
	bookID      string
	chapter     int
	unit        *library.Unit
	persona     persona.Persona
	machine     *Machine
	lesson      Lesson
	tc          TurnContext

	// Pending progress not yet confirmed saved. Applied on every save.
	dirty             bool
	completedUnits    []string
	completedChapters []int
	attempts          []attemptRecord

	// opening stamps last_session_at on the first save of the session.
	opening bool

	closed     bool
	lastActive time.Time
}

// NewEngine returns an engine with no sessions.
func NewEngine(opts Options) *Engine {
	if opts.Collaborator == nil {
		opts.Collaborator = NotesCollaborator{}
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{
		opts:     opts,
		log:      opts.Logger,
		sessions: make(map[string]*session),
	}
}

var _ Tutor = (*Engine)(nil)

// StartSession opens the requested unit and returns its opening events.
func (e *Engine) StartSession(ctx context.Context, req StartRequest) (Started, error) {
	ctx, span := tracer.Start(ctx, "tutor.start_session", trace.WithAttributes(
		attribute.String("book.id", req.BookID),
		attribute.Int("chapter", req.Chapter),
		attribute.Int("unit", req.Unit),
	))
	defer span.End()

	s, err := e.newSession(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Started{}, err
	}
	span.SetAttributes(attribute.String("session.id", s.id), attribute.String("unit.id", s.unit.ID))
	ctx = WithSessionID(ctx, s.id)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.tc.Begin()
	var drafts []Draft
	out, err := s.machine.Open(ctx, s.lesson)
	if err != nil {
		e.log.Warn("open unit failed", "session_id", s.id, "unit_id", s.unit.ID, "error", err)
		drafts = append(drafts, errorDraft(err))
	} else {
		e.logWarnings(s, out.Warnings)
		s.lesson = out.Lesson
		drafts = append(drafts, out.Events...)
	}
	s.dirty = true
	if err := e.persist(ctx, s); err != nil {
		drafts = append(drafts, errorDraft(err))
	}

	e.mu.Lock()
	e.sessions[s.id] = s
	e.mu.Unlock()

	events := e.emit(ctx, s, drafts)
	e.log.Info("session started",
		"session_id", s.id, "student_id", s.studentID, "unit_id", s.unit.ID,
		"persona", s.persona.ID, "point_index", s.lesson.PointIndex)
	return Started{SessionID: s.id, Events: events}, nil
}

func (e *Engine) newSession(ctx context.Context, req StartRequest) (*session, error) {
	st, err := e.opts.Progress.Load(ctx)
	if err != nil {
		return nil, &PersistenceError{Err: err}
	}
	student := st.Active()
	if req.StudentID != "" {
		student = st.Student(req.StudentID)
	}
	if student == nil {
		return nil, fmt.Errorf("%w: %q", progress.ErrStudentNotFound, req.StudentID)
	}

	personaID := req.PersonaID
	if personaID == "" {
		personaID = student.TutorPersonaID
	}
	p, err := e.opts.Personas.Resolve(personaID)
	if err != nil {
		return nil, err
	}

	bookID := req.BookID
	if bookID == "" {
		bookID = student.TutorState.ActiveBookID
	}
	if bookID == "" {
		return nil, ErrNoBook
	}
	bp := student.Book(bookID)

	chapter, unitNum := req.Chapter, req.Unit
	if chapter == 0 {
		chapter = bp.LastChapterNumber
	}
	if chapter == 0 {
		if chapter, err = e.firstChapter(ctx, bookID); err != nil {
			return nil, err
		}
	}
	if unitNum == 0 && chapter == bp.LastChapterNumber {
		unitNum = bp.LastUnitNumber
	}
	if unitNum == 0 {
		if unitNum, err = e.firstUnit(ctx, bookID, chapter); err != nil {
			return nil, err
		}
	}

	unit, err := e.opts.Library.Unit(ctx, bookID, chapter, unitNum)
	if err != nil {
		return nil, err
	}
	id := uuid.NewString()[:8]
	plan := e.buildPlan(WithSessionID(ctx, id), unit)

	s := &session{
		id:          id,
		studentID:   student.StudentID,
		studentName: student.DisplayName(),
		bookID:      bookID,
		chapter:     chapter,
		unit:        unit,
		persona:     p,
		opening:     true,
		lastActive:  e.opts.Now(),
	}
	s.machine = e.machine(s, plan)
	if bp.LastChapterNumber == chapter && bp.LastUnitNumber == unitNum &&
		bp.CurrentPointIndex > 0 && bp.CurrentPointIndex < plan.Len() {
		s.lesson.PointIndex = bp.CurrentPointIndex
	}
	return s, nil
}

func (e *Engine) machine(s *session, plan *Plan) *Machine {
	return &Machine{
		Content:        e.opts.Content,
		Plan:           plan,
		Persona:        s.persona,
		StudentName:    s.studentName,
		ConfirmAdvance: e.opts.ConfirmAdvance,
		Timeout:        e.opts.ContentTimeout,
	}
}

// buildPlan asks the content service for a plan and falls back to parsing
// the notes when it fails.
func (e *Engine) buildPlan(ctx context.Context, unit *library.Unit) *Plan {
	m := &Machine{Timeout: e.opts.ContentTimeout}
	plan, err := invoke(ctx, m, "build_plan", func(ctx context.Context) (*Plan, error) {
		return e.opts.Content.BuildPlan(ctx, PlanRequest{UnitID: unit.ID, Title: unit.Title, Notes: unit.Notes})
	})
	if err == nil && plan != nil && plan.Len() > 0 {
		return plan
	}
	if err != nil {
		e.log.Warn("build plan failed, parsing notes", "unit_id", unit.ID, "error", err)
	}
	return ParsePlan(unit.ID, unit.Title, unit.Notes)
}

func (e *Engine) firstChapter(ctx context.Context, bookID string) (int, error) {
	chs, err := e.opts.Library.Chapters(ctx, bookID)
	if err != nil {
		return 0, err
	}
	if len(chs) == 0 {
		return 0, fmt.Errorf("%w: book %q has no chapters", library.ErrUnitNotFound, bookID)
	}
	return chs[0], nil
}

func (e *Engine) firstUnit(ctx context.Context, bookID string, chapter int) (int, error) {
	us, err := e.opts.Library.Units(ctx, bookID, chapter)
	if err != nil {
		return 0, err
	}
	if len(us) == 0 {
		return 0, fmt.Errorf("%w: chapter %d of %q has no units", library.ErrUnitNotFound, chapter, bookID)
	}
	return us[0], nil
}

func (e *Engine) lookup(id string) (*session, error) {
	e.mu.RLock()
	s, ok := e.sessions[id]
	e.mu.RUnlock()
	if !ok {
		return nil, &SessionNotFoundError{ID: id}
	}
	return s, nil
}

func (e *Engine) drop(s *session) {
	s.closed = true
	e.mu.Lock()
	delete(e.sessions, s.id)
	e.mu.Unlock()
}

// SubmitInput runs one turn. Content and persistence failures come back as
// error events; only an unknown session is returned as an error.
func (e *Engine) SubmitInput(ctx context.Context, sessionID, text string) ([]Event, error) {
	ctx, span := tracer.Start(ctx, "tutor.submit_input", trace.WithAttributes(attribute.String("session.id", sessionID)))
	defer span.End()
	ctx = WithSessionID(ctx, sessionID)

	s, err := e.lookup(sessionID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, &SessionNotFoundError{ID: sessionID}
	}

	s.lastActive = e.opts.Now()
	s.tc.Begin()
	from := s.lesson.State
	span.SetAttributes(attribute.Int("turn.id", s.tc.TurnID), attribute.String("state.from", from.String()))

	out, err := s.machine.Advance(ctx, s.lesson, text)
	if err != nil {
		span.RecordError(err)
		e.log.Warn("turn failed", "session_id", s.id, "turn_id", s.tc.TurnID, "state", from, "error", err)
		return e.emit(ctx, s, []Draft{errorDraft(err)}), nil
	}
	e.logWarnings(s, out.Warnings)
	s.lesson = out.Lesson
	drafts := out.Events

	saved := false
	for _, eff := range out.Effects {
		switch eff.Kind {
		case EffectCommand:
			saved = saved || eff.Command == intent.CommandStop
			drafts = append(drafts, e.command(ctx, s, eff.Command)...)
		case EffectPointCompleted:
			s.dirty = true
		case EffectUnitCompleted:
			e.completeUnit(ctx, s)
		case EffectNextUnit:
			drafts = append(drafts, e.openNext(ctx, s)...)
		}
	}
	if s.dirty && !s.closed && !saved {
		if err := e.persist(ctx, s); err != nil {
			drafts = append(drafts, errorDraft(err))
		}
	}

	span.SetAttributes(attribute.String("state.to", s.lesson.State.String()))
	e.log.Debug("turn",
		"session_id", s.id, "turn_id", s.tc.TurnID,
		"from", from, "to", s.lesson.State, "path", out.Path, "events", len(drafts))
	return e.emit(ctx, s, drafts), nil
}

// EndSession saves progress and closes the session. A failed save keeps the
// session open so it can be retried.
func (e *Engine) EndSession(ctx context.Context, sessionID string) ([]Event, error) {
	s, err := e.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, &SessionNotFoundError{ID: sessionID}
	}
	s.tc.Begin()
	return e.emit(ctx, s, e.stop(ctx, s)), nil
}

// Session describes a live session.
func (e *Engine) Session(sessionID string) (SessionInfo, error) {
	s, err := e.lookup(sessionID)
	if err != nil {
		return SessionInfo{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionInfo{
		ID:          s.id,
		StudentID:   s.studentID,
		BookID:      s.bookID,
		Chapter:     s.chapter,
		Unit:        s.unit.Number,
		UnitID:      s.unit.ID,
		PersonaID:   s.persona.ID,
		State:       s.lesson.State.String(),
		PointIndex:  s.lesson.PointIndex,
		TotalPoints: s.machine.Plan.Len(),
		TurnID:      s.tc.TurnID,
		Degraded:    s.lesson.Degraded,
	}, nil
}

// Evict closes sessions idle for longer than ttl, saving pending progress
// first. Sessions busy with a turn are skipped.
func (e *Engine) Evict(ctx context.Context, ttl time.Duration) []string {
	cutoff := e.opts.Now().Add(-ttl)
	e.mu.RLock()
	all := make([]*session, 0, len(e.sessions))
	for _, s := range e.sessions {
		all = append(all, s)
	}
	e.mu.RUnlock()

	var evicted []string
	for _, s := range all {
		if !s.mu.TryLock() {
			continue
		}
		if !s.closed && s.lastActive.Before(cutoff) {
			if s.dirty {
				if err := e.persist(ctx, s); err != nil {
					e.log.Warn("save before evict failed", "session_id", s.id, "error", err)
				}
			}
			e.drop(s)
			evicted = append(evicted, s.id)
			e.log.Info("session evicted", "session_id", s.id)
		}
		s.mu.Unlock()
	}
	return evicted
}

func (e *Engine) command(ctx context.Context, s *session, cmd intent.Command) []Draft {
	if cmd == intent.CommandStop {
		return e.stop(ctx, s)
	}
	m := &Machine{Timeout: e.opts.ContentTimeout}
	res, err := invoke(ctx, m, cmd.String(), func(ctx context.Context) (*CommandResult, error) {
		return e.opts.Collaborator.Serve(ctx, CommandRequest{
			Command:   cmd,
			StudentID: s.studentID,
			BookID:    s.bookID,
			Chapter:   s.chapter,
			Unit:      s.unit,
			Plan:      s.machine.Plan,
		})
	})
	var drafts []Draft
	if err != nil {
		e.log.Warn("command failed", "session_id", s.id, "command", cmd, "error", err)
		drafts = append(drafts, errorDraft(err))
	} else if res != nil {
		drafts = append(drafts, Draft{Type: res.Type, Title: res.Title, Body: res.Body, Data: res.Data})
		if x := res.Exam; x != nil {
			s.attempts = append(s.attempts, attemptRecord{examSetID: x.ExamSetID, id: x.AttemptID})
			if x.Passed {
				s.completedChapters = append(s.completedChapters, s.chapter)
			}
			s.dirty = true
		}
	}
	return append(drafts, s.machine.Reprompt(s.lesson)...)
}

func (e *Engine) stop(ctx context.Context, s *session) []Draft {
	if err := e.persist(ctx, s); err != nil {
		d := errorDraft(err)
		d.Body = "No se ha podido guardar tu progreso. Escribe 'stop' de nuevo para reintentarlo."
		return []Draft{d}
	}
	e.drop(s)
	e.log.Info("session closed", "session_id", s.id, "reason", "stop")
	return []Draft{{
		Type:  EventSessionClosed,
		Title: "Sesión terminada",
		Body:  "Hasta la próxima. Tu progreso está guardado.",
		Data:  map[string]any{"reason": "stop", "unit_id": s.unit.ID, "point_index": s.lesson.PointIndex},
	}}
}

func (e *Engine) completeUnit(ctx context.Context, s *session) {
	s.completedUnits = append(s.completedUnits, s.unit.ID)
	s.dirty = true
	units, err := e.opts.Library.Units(ctx, s.bookID, s.chapter)
	if err != nil {
		e.log.Warn("list units failed", "session_id", s.id, "error", err)
		return
	}
	if len(units) > 0 && units[len(units)-1] == s.unit.Number {
		s.completedChapters = append(s.completedChapters, s.chapter)
	}
}

// openNext moves the session to the following unit, or closes it when the
// book is finished.
func (e *Engine) openNext(ctx context.Context, s *session) []Draft {
	chapter, unitNum, ok, err := e.nextPosition(ctx, s.bookID, s.chapter, s.unit.Number)
	if err != nil {
		return []Draft{errorDraft(&ContentUnavailableError{Op: "next_unit", Err: err})}
	}
	if !ok {
		if err := e.persist(ctx, s); err != nil {
			return []Draft{errorDraft(err)}
		}
		e.drop(s)
		return []Draft{{
			Type:  EventSessionClosed,
			Title: "Libro completado",
			Body:  "¡Enhorabuena! Has terminado todas las unidades disponibles. Hasta la próxima.",
			Data:  map[string]any{"reason": "book_complete"},
		}}
	}

	unit, err := e.opts.Library.Unit(ctx, s.bookID, chapter, unitNum)
	if err != nil {
		return []Draft{errorDraft(&ContentUnavailableError{Op: "next_unit", Err: err})}
	}
	s.chapter = chapter
	s.unit = unit
	s.machine = e.machine(s, e.buildPlan(ctx, unit))
	s.lesson = Lesson{}
	s.dirty = true

	out, err := s.machine.Open(ctx, s.lesson)
	if err != nil {
		return []Draft{errorDraft(err)}
	}
	e.logWarnings(s, out.Warnings)
	s.lesson = out.Lesson
	return out.Events
}

func (e *Engine) nextPosition(ctx context.Context, bookID string, chapter, unit int) (int, int, bool, error) {
	units, err := e.opts.Library.Units(ctx, bookID, chapter)
	if err != nil {
		return 0, 0, false, err
	}
	for _, u := range units {
		if u > unit {
			return chapter, u, true, nil
		}
	}
	chapters, err := e.opts.Library.Chapters(ctx, bookID)
	if err != nil {
		return 0, 0, false, err
	}
	for _, c := range chapters {
		if c <= chapter {
			continue
		}
		next, err := e.opts.Library.Units(ctx, bookID, c)
		if err != nil {
			return 0, 0, false, err
		}
		if len(next) > 0 {
			return c, next[0], true, nil
		}
	}
	return 0, 0, false, nil
}

// persist writes the session position as absolute values plus any pending
// completions, so repeating a save is harmless.
func (e *Engine) persist(ctx context.Context, s *session) error {
	err := e.opts.Progress.Update(ctx, func(st *progress.StudentsState) error {
		p := st.Student(s.studentID)
		if p == nil {
			return fmt.Errorf("%w: %s", progress.ErrStudentNotFound, s.studentID)
		}
		p.TutorState.ActiveBookID = s.bookID
		b := p.Book(s.bookID)
		b.LastChapterNumber = s.chapter
		b.LastUnitNumber = s.unit.Number
		b.CurrentPointIndex = s.lesson.PointIndex
		for _, u := range s.completedUnits {
			b.CompleteUnit(u)
		}
		for _, c := range s.completedChapters {
			b.CompleteChapter(c)
		}
		for _, a := range s.attempts {
			b.RecordChapterAttempt(a.examSetID, a.id)
		}
		if s.opening {
			b.LastSessionAt = progress.At(e.opts.Now().UTC())
		}
		return nil
	})
	if err != nil {
		e.log.Error("save progress failed", "session_id", s.id, "student_id", s.studentID, "error", err)
		s.dirty = true
		return &PersistenceError{Err: err}
	}
	s.dirty = false
	s.opening = false
	s.completedUnits = nil
	s.completedChapters = nil
	s.attempts = nil
	return nil
}

func (e *Engine) emit(ctx context.Context, s *session, drafts []Draft) []Event {
	events := s.tc.StampAll(drafts)
	if e.opts.Journal != nil && len(events) > 0 {
		if err := e.opts.Journal.AppendEvents(ctx, s.id, events); err != nil {
			e.log.Warn("journal append failed", "session_id", s.id, "error", err)
		}
	}
	return events
}

func (e *Engine) logWarnings(s *session, warnings []error) {
	for _, w := range warnings {
		var pv *PolicyViolationError
		if errors.As(w, &pv) {
			e.log.Error("policy violation", "session_id", s.id, "error", w)
			continue
		}
		e.log.Warn("content degraded", "session_id", s.id, "error", w)
	}
}

var errorMessages = map[string]string{
	"content_timeout":     "La respuesta está tardando demasiado. Vuelve a enviar tu mensaje para intentarlo de nuevo.",
	"content_unavailable": "No he podido preparar la respuesta. Vuelve a intentarlo en un momento.",
	"persistence_failed":  "No se ha podido guardar tu progreso. Escribe 'stop' para reintentar el guardado.",
	"session_not_found":   "Sesión no encontrada.",
	"internal":            "Ha ocurrido un error inesperado.",
}

func errorDraft(err error) Draft {
	code := errorCode(err)
	return Draft{
		Type:  EventError,
		Title: "Error",
		Body:  errorMessages[code],
		Data: map[string]any{
			"code":        code,
			"recoverable": code != "session_not_found",
		},
	}
}

// ErrorEvent renders err as a turn 0 error event for adapters that answer
// outside a session turn.
func ErrorEvent(err error) Event {
	var tc TurnContext
	return tc.Stamp(errorDraft(err))
}

// Sessions returns the ids of live sessions.
func (e *Engine) Sessions() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ids := make([]string, 0, len(e.sessions))
	for id := range e.sessions {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
