package teaching

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ajujo/teaching-system/internal/intent"
	"github.com/ajujo/teaching-system/internal/persona"
)

// Prompts shown by the machine itself.
const (
	startPrompt        = "Cuando estés listo, escribe 'sí' o 'empezamos' para comenzar."
	ambiguousPrompt    = "¿Quieres más ejemplos o pasamos al siguiente punto?"
	retryPrefix        = "Inténtalo de nuevo. "
	fallbackRationale  = "Veamos esto de otra manera..."
	followupLimitText  = "Ya hemos visto varios ejemplos. Intenta responder la pregunta."
	deepenLimitText    = "Ya hemos profundizado bastante en este punto."
	confirmQuestion    = "¿Avanzamos al siguiente punto?"
	unitNextQuestion   = "¿Pasamos a la siguiente unidad?"
	notUnderstoodText  = "No te he entendido."
	exampleOptionsText = "Puedes pedir otro ejemplo, responder a la pregunta o escribir 'siguiente' para avanzar."
	elaborateText      = "Vas bien. ¿Puedes desarrollarlo un poco más?"
	understoodText     = "¡Muy bien! Lo has entendido."
	unitCompleteTitle  = "¡Unidad completada!"
)

// EffectKind names a side effect requested by a transition. Effects are
// carried out by the engine after the transition returns.
type EffectKind int

const (
	// EffectCommand hands a global command to the engine.
	EffectCommand EffectKind = iota + 1
	// EffectPointCompleted records that the point at PointIndex was finished.
	EffectPointCompleted
	// EffectUnitCompleted records that every point of the unit was finished.
	EffectUnitCompleted
	// EffectNextUnit asks the engine to open the following unit.
	EffectNextUnit
)

// Effect is a side effect requested by a transition.
type Effect struct {
	Kind       EffectKind
	Command    intent.Command
	PointIndex int
}

// Outcome is the result of one transition.
type Outcome struct {
	Lesson  Lesson
	Events  []Draft
	Effects []Effect
	// Path lists every state visited during the turn, in order.
	Path []State
	// Warnings are recovered failures the caller should log.
	Warnings []error
}

// Machine runs the teaching transitions for one unit. It holds no mutable
// state: every call takes a Lesson and returns the next one, so a failed
// call leaves the caller's Lesson untouched.
type Machine struct {
	Content     Content
	Plan        *Plan
	Persona     persona.Persona
	StudentName string
	// ConfirmAdvance asks before leaving a point that was understood.
	ConfirmAdvance bool
	// Timeout bounds every content call. Zero means no bound.
	Timeout time.Duration
}

// ErrLessonClosed is returned when input reaches a closed lesson.
var ErrLessonClosed = errors.New("lesson closed")

// turn accumulates one transition.
type turn struct {
	m   *Machine
	l   Lesson
	out Outcome
}

func (t *turn) visit(s State) {
	t.l.State = s
	t.out.Path = append(t.out.Path, s)
}

func (t *turn) emit(typ EventType, title, body string, data map[string]any) {
	t.out.Events = append(t.out.Events, Draft{Type: typ, Title: title, Body: body, Data: data})
}

func (t *turn) effect(e Effect) {
	t.out.Effects = append(t.out.Effects, e)
}

func (t *turn) warn(err error) {
	t.out.Warnings = append(t.out.Warnings, err)
}

func (t *turn) done() (Outcome, error) {
	t.out.Lesson = t.l
	return t.out, nil
}

func (t *turn) policy() persona.Policy {
	return t.m.Persona.Policy
}

func (t *turn) point() Point {
	p, _ := t.m.Plan.Point(t.l.PointIndex)
	return p
}

func (t *turn) pointRequest() PointRequest {
	return PointRequest{
		Plan:        t.m.Plan,
		Point:       t.point(),
		Persona:     t.m.Persona,
		StudentName: t.m.StudentName,
		Previous:    t.l.Explanation,
	}
}

func (t *turn) pointData(extra map[string]any) map[string]any {
	p := t.point()
	data := map[string]any{
		"point_number": p.Number,
		"total_points": t.m.Plan.Len(),
	}
	for k, v := range extra {
		data[k] = v
	}
	return data
}

// invoke runs one content call under the machine timeout and classifies its failure.
func invoke[T any](ctx context.Context, m *Machine, op string, fn func(context.Context) (T, error)) (T, error) {
	if m.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.Timeout)
		defer cancel()
	}
	v, err := fn(ctx)
	switch {
	case err == nil:
		return v, nil
	case errors.Is(err, ErrMalformedContent):
		return v, &ContentMalformedError{Op: op, Err: err}
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return v, &ContentTimeoutError{Op: op, Err: err}
	default:
		return v, &ContentUnavailableError{Op: op, Err: err}
	}
}

func isMalformed(err error) bool {
	var me *ContentMalformedError
	return errors.As(err, &me)
}

// Open emits the unit opening and waits for the learner to start.
func (m *Machine) Open(ctx context.Context, l Lesson) (Outcome, error) {
	t := &turn{m: m, l: l}
	return t.open(ctx)
}

func (t *turn) open(ctx context.Context) (Outcome, error) {
	t.visit(StateUnitOpening)
	m := t.m
	text, err := invoke(ctx, m, "open_unit", func(ctx context.Context) (string, error) {
		return m.Content.OpenUnit(ctx, OpenRequest{Plan: m.Plan, StudentName: m.StudentName, Persona: m.Persona})
	})
	if err != nil {
		if !isMalformed(err) {
			return Outcome{}, err
		}
		t.warn(err)
		t.l.Degraded = true
		text = RenderOpening(m.Plan, m.StudentName)
	}
	t.emit(EventUnitOpening, m.Plan.Title, StripThink(text), openingData(m.Plan))
	t.visit(StateWaitUnitStart)
	return t.done()
}

// Advance consumes one learner message.
func (m *Machine) Advance(ctx context.Context, l Lesson, input string) (Outcome, error) {
	if l.State == StateClosed {
		return Outcome{}, ErrLessonClosed
	}
	t := &turn{m: m, l: l}
	t.out.Path = append(t.out.Path, l.State)

	if cmd, ok := intent.ParseCommand(input); ok {
		t.effect(Effect{Kind: EffectCommand, Command: cmd})
		return t.done()
	}

	switch l.State {
	case StateUnitOpening:
		return t.open(ctx)
	case StateWaitUnitStart:
		if intent.IsUnitStart(input) == intent.Yes {
			return t.explain(ctx)
		}
		t.emit(EventFeedback, "", startPrompt, nil)
		return t.done()
	case StateWaitingInput, StateAwaitingRetry:
		return t.waitingInput(ctx, input)
	case StateRemediation:
		return t.afterRemediation(ctx, input)
	case StatePostFailureChoice:
		return t.postFailure(ctx, input)
	case StateConfirmAdvance:
		return t.confirmAdvance(ctx, input)
	case StateUnitComplete:
		return t.unitComplete(input)
	}
	return Outcome{}, fmt.Errorf("advance from transient state %s", l.State)
}

// Reprompt repeats the question the lesson is waiting on. Used after a
// global command returns control to the suspended state.
func (m *Machine) Reprompt(l Lesson) []Draft {
	t := &turn{m: m, l: l}
	t.prompt()
	return t.out.Events
}

func (t *turn) prompt() {
	switch t.l.State {
	case StateWaitUnitStart:
		t.emit(EventFeedback, "", startPrompt, nil)
	case StateWaitingInput:
		t.emit(EventAskCheck, "", t.l.Question, t.pointData(nil))
	case StateAwaitingRetry:
		t.emit(EventAskCheck, "", retryPrefix+t.l.Question, t.pointData(map[string]any{"retry": true}))
	case StateRemediation:
		t.emit(EventFeedback, "", NavigationQuestion, t.pointData(nil))
	case StatePostFailureChoice:
		t.askPostFailure()
	case StateConfirmAdvance:
		t.emit(EventAskConfirmAdvance, "", confirmQuestion, t.pointData(nil))
	case StateUnitComplete:
		t.emit(EventAskUnitNext, "", unitNextQuestion, map[string]any{"unit_id": t.m.Plan.UnitID})
	}
}

func (t *turn) explain(ctx context.Context) (Outcome, error) {
	t.visit(StateExplaining)
	p := t.point()
	req := t.pointRequest()
	text, err := invoke(ctx, t.m, "explain", func(ctx context.Context) (string, error) {
		return t.m.Content.Explain(ctx, req)
	})
	if err != nil {
		if !isMalformed(err) {
			return Outcome{}, err
		}
		t.warn(err)
		t.l.Degraded = true
		text = p.Summary
	}
	body, q := ExtractQuestion(StripThink(text))

	t.emit(EventPointOpening,
		fmt.Sprintf("Punto %d de %d", p.Number, t.m.Plan.Len()),
		"**"+p.Title+"**",
		t.pointData(map[string]any{"point_title": p.Title}))
	t.emit(EventPointExplanation, p.Title, body, t.pointData(map[string]any{"source": "explain"}))
	t.emit(EventAskCheck, "", q, t.pointData(nil))

	t.l.Question = q
	t.l.Explanation = body
	t.visit(StateWaitingInput)
	return t.done()
}

func (t *turn) waitingInput(ctx context.Context, input string) (Outcome, error) {
	adv := intent.IsAdvance(input)
	more := intent.IsMoreExamples(input)
	switch {
	case adv == intent.Yes:
		return t.nextPoint(ctx)
	case more == intent.Yes, intent.IsReview(input) == intent.Yes:
		return t.moreExamples(ctx)
	case adv == intent.Ambiguous, more == intent.Ambiguous:
		t.emit(EventFeedback, "", ambiguousPrompt, t.pointData(nil))
		return t.done()
	case intent.Normalize(input) == "":
		t.prompt()
		return t.done()
	}
	return t.check(ctx, input)
}

func (t *turn) check(ctx context.Context, answer string) (Outcome, error) {
	t.visit(StateChecking)
	pol := t.policy()
	if t.l.Attempts >= pol.MaxAttemptsPerPoint {
		t.warn(&PolicyViolationError{
			State:  StateChecking,
			Detail: fmt.Sprintf("attempt %d exceeds max %d", t.l.Attempts+1, pol.MaxAttemptsPerPoint),
		})
		return t.enterPostFailure()
	}
	t.l.Attempts++

	req := CheckRequest{PointRequest: t.pointRequest(), Question: t.l.Question, Answer: answer}
	v, err := invoke(ctx, t.m, "check_comprehension", func(ctx context.Context) (Verdict, error) {
		return t.m.Content.CheckComprehension(ctx, req)
	})
	if err != nil {
		if !isMalformed(err) {
			return Outcome{}, err
		}
		t.warn(err)
		t.l.Degraded = true
		v = Verdict{Rationale: fallbackRationale}
	}
	exhausted := t.l.Attempts >= pol.MaxAttemptsPerPoint
	data := t.pointData(map[string]any{
		"understood":   v.Understood,
		"attempt":      t.l.Attempts,
		"max_attempts": pol.MaxAttemptsPerPoint,
	})

	switch {
	case v.Understood && v.NeedsElaboration && !exhausted:
		t.emit(EventFeedback, "", joinText(v.Rationale, elaborateText), data)
		t.emit(EventAskCheck, "", t.l.Question, t.pointData(nil))
		t.visit(StateWaitingInput)
		return t.done()
	case v.Understood:
		t.emit(EventFeedback, "", orDefault(v.Rationale, understoodText), data)
		if t.m.ConfirmAdvance {
			t.visit(StateConfirmAdvance)
			t.prompt()
			return t.done()
		}
		return t.nextPoint(ctx)
	}

	t.emit(EventFeedback, "", orDefault(v.Rationale, fallbackRationale), data)
	if !exhausted {
		t.visit(StateAwaitingRetry)
		t.prompt()
		return t.done()
	}
	if pol.AllowAdvanceOnFailure {
		return t.enterPostFailure()
	}
	return t.remediate(ctx)
}

func (t *turn) enterPostFailure() (Outcome, error) {
	t.visit(StatePostFailureChoice)
	t.askPostFailure()
	return t.done()
}

func (t *turn) askPostFailure() {
	advance, review := "[A] para avanzar", "[R] para repasar con una analogía"
	def := "stay"
	if t.policy().DefaultsToAdvance() {
		advance += " (recomendado)"
		def = "advance"
	} else {
		review += " (recomendado)"
	}
	t.emit(EventAskConfirmAdvance, "",
		"Escribe "+advance+" o "+review+".",
		t.pointData(map[string]any{"choice": "post_failure", "default": def}))
}

func (t *turn) postFailure(ctx context.Context, input string) (Outcome, error) {
	switch intent.ParsePostFailureChoice(input, t.policy().DefaultsToAdvance()) {
	case intent.ChoiceAdvance:
		return t.nextPoint(ctx)
	case intent.ChoiceReview, intent.ChoiceStay:
		return t.remediate(ctx)
	}
	t.emit(EventFeedback, "", notUnderstoodText, t.pointData(nil))
	t.askPostFailure()
	return t.done()
}

func (t *turn) remediationStyle() persona.RemediationStyle {
	style := t.policy().RemediationStyle
	if style != persona.StyleBoth {
		return style
	}
	if t.l.Remediations%2 == 0 {
		return persona.StyleAnalogy
	}
	return persona.StyleExample
}

func (t *turn) remediate(ctx context.Context) (Outcome, error) {
	t.visit(StateRemediation)
	style := t.remediationStyle()
	req := RemediationRequest{PointRequest: t.pointRequest(), Question: t.l.Question, Style: style}
	text, err := invoke(ctx, t.m, "remediate", func(ctx context.Context) (string, error) {
		return t.m.Content.Remediate(ctx, req)
	})
	if err != nil {
		if !isMalformed(err) {
			return Outcome{}, err
		}
		t.warn(err)
		t.l.Degraded = true
		text = fallbackRationale + "\n\n" + t.point().Summary
	}
	body := ShapeRemediation(StripThink(text))
	t.l.Remediations++
	t.l.Explanation = body
	t.emit(EventPointExplanation, t.point().Title, body, t.pointData(map[string]any{
		"source": "remediation",
		"style":  string(style),
	}))
	return t.done()
}

// afterRemediation only navigates: the point is never checked again.
func (t *turn) afterRemediation(ctx context.Context, input string) (Outcome, error) {
	switch intent.ParsePostFailureChoice(input, t.policy().DefaultsToAdvance()) {
	case intent.ChoiceAdvance:
		return t.nextPoint(ctx)
	case intent.ChoiceReview, intent.ChoiceStay:
		return t.remediate(ctx)
	}
	t.emit(EventFeedback, "", notUnderstoodText+" "+NavigationQuestion, t.pointData(nil))
	return t.done()
}

func (t *turn) moreExamples(ctx context.Context) (Outcome, error) {
	t.visit(StateMoreExamples)
	if t.l.Followups >= t.policy().MaxFollowupsPerPoint {
		t.emit(EventFeedback, "", followupLimitText+"\n\n"+t.l.Question,
			t.pointData(map[string]any{"source": "more_examples", "limit_reached": true}))
		t.visit(StateWaitingInput)
		return t.done()
	}
	req := t.pointRequest()
	text, err := invoke(ctx, t.m, "more_examples", func(ctx context.Context) (string, error) {
		return t.m.Content.MoreExamples(ctx, req)
	})
	if err != nil {
		if !isMalformed(err) {
			return Outcome{}, err
		}
		t.warn(err)
		t.l.Degraded = true
		text = "Piensa en una situación cotidiana donde aparezca " + t.point().Title + "."
	}
	t.l.Followups++
	body := joinText(capParagraphs(StripThink(text), maxDeepenParagraphs), exampleOptionsText)
	t.emit(EventPointExplanation, t.point().Title, body, t.pointData(map[string]any{
		"source":    "more_examples",
		"followups": t.l.Followups,
	}))
	t.visit(StateWaitingInput)
	return t.done()
}

func (t *turn) confirmAdvance(ctx context.Context, input string) (Outcome, error) {
	switch intent.ParseConfirmAdvance(input) {
	case intent.ChoiceAdvance:
		return t.nextPoint(ctx)
	case intent.ChoiceStay:
		return t.deepen(ctx)
	}
	t.prompt()
	return t.done()
}

func (t *turn) deepen(ctx context.Context) (Outcome, error) {
	t.visit(StateDeepenExplanation)
	if t.l.Followups >= t.policy().MaxFollowupsPerPoint {
		t.emit(EventFeedback, "", deepenLimitText, t.pointData(map[string]any{"limit_reached": true}))
		t.visit(StateConfirmAdvance)
		t.prompt()
		return t.done()
	}
	req := t.pointRequest()
	text, err := invoke(ctx, t.m, "deepen", func(ctx context.Context) (string, error) {
		return t.m.Content.Deepen(ctx, req)
	})
	if err != nil {
		if !isMalformed(err) {
			return Outcome{}, err
		}
		t.warn(err)
		t.l.Degraded = true
		text = t.point().Summary
	}
	t.l.Followups++
	body := ShapeDeepen(StripThink(text))
	t.l.Explanation = body
	t.emit(EventPointExplanation, t.point().Title, body, t.pointData(map[string]any{
		"source":    "deepen",
		"followups": t.l.Followups,
	}))
	t.visit(StateConfirmAdvance)
	t.prompt()
	return t.done()
}

func (t *turn) nextPoint(ctx context.Context) (Outcome, error) {
	t.visit(StateNextPoint)
	t.effect(Effect{Kind: EffectPointCompleted, PointIndex: t.l.PointIndex})
	t.l.PointIndex++
	t.l.resetPoint()
	if t.l.PointIndex < t.m.Plan.Len() {
		return t.explain(ctx)
	}

	t.emit(EventUnitNotes, unitCompleteTitle, unitSummary(t.m.Plan), map[string]any{
		"unit_complete": true,
		"unit_id":       t.m.Plan.UnitID,
		"num_points":    t.m.Plan.Len(),
	})
	t.effect(Effect{Kind: EffectUnitCompleted, PointIndex: t.m.Plan.Len() - 1})
	t.visit(StateUnitComplete)
	t.prompt()
	return t.done()
}

func (t *turn) unitComplete(input string) (Outcome, error) {
	if intent.IsAdvance(input) == intent.Yes || intent.IsAffirmative(input) == intent.Yes {
		t.effect(Effect{Kind: EffectNextUnit})
		return t.done()
	}
	if intent.IsNegative(input) == intent.Yes {
		t.emit(EventFeedback, "", "De acuerdo. Escribe 'stop' para terminar o 'siguiente' cuando quieras continuar.", nil)
		return t.done()
	}
	t.prompt()
	return t.done()
}

func unitSummary(p *Plan) string {
	s := fmt.Sprintf("Has terminado **%s**. Hemos repasado:\n", p.Title)
	for _, pt := range p.Points {
		s += fmt.Sprintf("- %s\n", pt.Title)
	}
	return s
}

func joinText(parts ...string) string {
	out := ""
	for _, p := range parts {
		if p == "" {
			continue
		}
		if out != "" {
			out += "\n\n"
		}
		out += p
	}
	return out
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
