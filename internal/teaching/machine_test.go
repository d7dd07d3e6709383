package teaching

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajujo/teaching-system/internal/intent"
	"github.com/ajujo/teaching-system/internal/persona"
)

const answer = "el tokenizador divide el texto en piezas"

type driver struct {
	t      *testing.T
	m      *Machine
	lesson Lesson
	paths  []State
	events []Draft
	fx     []Effect
}

func newDriver(t *testing.T, c Content, plan *Plan, pol persona.Policy) *driver {
	t.Helper()
	d := &driver{t: t, m: &Machine{Content: c, Plan: plan, Persona: personaWith(pol)}}
	out, err := d.m.Open(context.Background(), Lesson{})
	require.NoError(t, err)
	d.record(out)
	return d
}

func (d *driver) record(out Outcome) {
	d.lesson = out.Lesson
	d.paths = append(d.paths, out.Path...)
	d.events = append(d.events, out.Events...)
	d.fx = append(d.fx, out.Effects...)
}

func (d *driver) send(input string) Outcome {
	d.t.Helper()
	out, err := d.m.Advance(context.Background(), d.lesson, input)
	require.NoError(d.t, err)
	d.record(out)
	return out
}

func count[T comparable](xs []T, x T) int {
	n := 0
	for _, v := range xs {
		if v == x {
			n++
		}
	}
	return n
}

func TestOpenWaitsForStart(t *testing.T) {
	d := newDriver(t, &stubContent{}, planWith(2), persona.DefaultPolicy())
	assert.Equal(t, StateWaitUnitStart, d.lesson.State)
	require.Len(t, d.events, 1)
	assert.Equal(t, EventUnitOpening, d.events[0].Type)
	assert.Equal(t, 2, d.events[0].Data["num_points"])

	out := d.send("háblame de otra cosa")
	assert.Equal(t, StateWaitUnitStart, out.Lesson.State)
	require.Len(t, out.Events, 1)
	assert.Equal(t, startPrompt, out.Events[0].Body)

	out = d.send("Sí")
	assert.Equal(t, StateWaitingInput, out.Lesson.State)
	types := []EventType{out.Events[0].Type, out.Events[1].Type, out.Events[2].Type}
	assert.Equal(t, []EventType{EventPointOpening, EventPointExplanation, EventAskCheck}, types)
	assert.Equal(t, "¿Qué recuerdas de Punto 1?", out.Events[2].Body)
	assert.NotContains(t, out.Events[1].Body, "¿")
}

func TestPostFailureEmptyInputAdvances(t *testing.T) {
	c := &stubContent{verdicts: notUnderstood(2)}
	pol := persona.Policy{
		MaxAttemptsPerPoint:   2,
		RemediationStyle:      persona.StyleAnalogy,
		AllowAdvanceOnFailure: true,
		DefaultAfterFailure:   persona.AfterFailureAdvance,
		MaxFollowupsPerPoint:  1,
	}
	d := newDriver(t, c, planWith(3), pol)
	d.send("empezamos")

	out := d.send(answer)
	assert.Equal(t, StateAwaitingRetry, out.Lesson.State)
	assert.True(t, strings.HasPrefix(out.Events[len(out.Events)-1].Body, retryPrefix))

	out = d.send(answer)
	require.Equal(t, StatePostFailureChoice, out.Lesson.State)
	last := out.Events[len(out.Events)-1]
	assert.Contains(t, last.Body, "[A] para avanzar (recomendado)")

	out = d.send("")
	assert.Contains(t, out.Path, StateNextPoint)
	assert.Equal(t, 1, out.Lesson.PointIndex)
	assert.Equal(t, StateWaitingInput, out.Lesson.State)
	assert.Equal(t, 2, c.checks)
	assert.Equal(t, Effect{Kind: EffectPointCompleted, PointIndex: 0}, out.Effects[0])
}

func TestMoreExamplesKeepsPoint(t *testing.T) {
	c := &stubContent{}
	pol := persona.DefaultPolicy()
	pol.MaxFollowupsPerPoint = 2
	d := newDriver(t, c, planWith(2), pol)
	d.send("sí")

	for i := 1; i <= 2; i++ {
		out := d.send("más ejemplos")
		require.Len(t, out.Events, 1)
		assert.Equal(t, EventPointExplanation, out.Events[0].Type)
		assert.Equal(t, "more_examples", out.Events[0].Data["source"])
		assert.Equal(t, StateWaitingInput, out.Lesson.State)
		assert.Equal(t, 0, out.Lesson.PointIndex)
		assert.Equal(t, i, out.Lesson.Followups)
	}

	out := d.send("dame otro ejemplo")
	require.Len(t, out.Events, 1)
	assert.Equal(t, EventFeedback, out.Events[0].Type)
	assert.Contains(t, out.Events[0].Body, followupLimitText)
	assert.Equal(t, 0, out.Lesson.PointIndex)
	assert.Equal(t, 2, c.examples)
	assert.Equal(t, 0, c.checks)
}

func TestFiveUnderstoodPointsCompleteUnit(t *testing.T) {
	c := &stubContent{}
	d := newDriver(t, c, planWith(5), persona.DefaultPolicy())
	d.send("vale")
	for i := 0; i < 5; i++ {
		d.send(answer)
	}

	assert.Equal(t, 5, count(d.paths, StateExplaining))
	assert.Equal(t, 5, count(d.paths, StateNextPoint))
	assert.Equal(t, 5, c.checks)
	assert.Equal(t, StateUnitComplete, d.lesson.State)

	completions := 0
	for _, ev := range d.events {
		if ev.Data["unit_complete"] == true {
			completions++
		}
	}
	assert.Equal(t, 1, completions)
	assert.Equal(t, 1, count(d.fx, Effect{Kind: EffectUnitCompleted, PointIndex: 4}))

	out := d.send("siguiente")
	assert.Equal(t, []Effect{{Kind: EffectNextUnit}}, out.Effects)
}

func TestChecksNeverExceedMaxAttempts(t *testing.T) {
	for _, allow := range []bool{true, false} {
		for limit := 1; limit <= 3; limit++ {
			c := &stubContent{verdicts: notUnderstood(20)}
			pol := persona.DefaultPolicy()
			pol.MaxAttemptsPerPoint = limit
			pol.AllowAdvanceOnFailure = allow
			d := newDriver(t, c, planWith(2), pol)
			d.send("sí")
			for i := 0; i < 10; i++ {
				d.send(answer)
			}
			if c.checks > limit {
				t.Errorf("allow=%v max=%d: checks = %d, want <= %d", allow, limit, c.checks, limit)
			}
			if d.lesson.PointIndex != 0 {
				t.Errorf("allow=%v max=%d: point index = %d, want 0", allow, limit, d.lesson.PointIndex)
			}
		}
	}
}

func TestNoCheckAfterPostFailureChoice(t *testing.T) {
	c := &stubContent{verdicts: notUnderstood(10)}
	d := newDriver(t, c, planWith(2), persona.DefaultPolicy())
	d.send("sí")
	d.send(answer)
	d.send(answer)
	require.Equal(t, StatePostFailureChoice, d.lesson.State)
	checks := c.checks

	// Default policy recommends reviewing; review produces remediation.
	out := d.send("")
	assert.Equal(t, StateRemediation, out.Lesson.State)
	for _, in := range []string{"repasar", answer, "no lo sé", "r"} {
		d.send(in)
	}
	assert.Equal(t, checks, c.checks)
	assert.Equal(t, []persona.RemediationStyle{persona.StyleAnalogy, persona.StyleExample, persona.StyleAnalogy}, c.styles)

	out = d.send("avanzar")
	assert.Equal(t, 1, out.Lesson.PointIndex)
}

func TestStrictPersonaRemediatesBeforeAdvancing(t *testing.T) {
	c := &stubContent{verdicts: notUnderstood(2)}
	pol := persona.Policy{MaxAttemptsPerPoint: 2, RemediationStyle: persona.StyleExample, DefaultAfterFailure: persona.AfterFailureStay}
	d := newDriver(t, c, planWith(2), pol)
	d.send("sí")
	d.send(answer)
	out := d.send(answer)

	require.Equal(t, StateRemediation, out.Lesson.State)
	last := out.Events[len(out.Events)-1]
	assert.Equal(t, "remediation", last.Data["source"])
	assert.True(t, strings.HasSuffix(last.Body, NavigationQuestion))
	assert.Equal(t, 2, strings.Count(last.Body, "\n\n"), "two paragraphs plus the navigation question")
	assert.NotContains(t, last.Body, "¿Lo ves ahora?")
	assert.NotContains(t, out.Path, StatePostFailureChoice)
}

func TestGlobalCommandSuspendsState(t *testing.T) {
	c := &stubContent{verdicts: notUnderstood(1)}
	d := newDriver(t, c, planWith(2), persona.DefaultPolicy())
	d.send("sí")
	d.send(answer)
	before := d.lesson
	require.Equal(t, StateAwaitingRetry, before.State)

	for _, cmd := range []string{"apuntes", "Quiz", "examen", "stop"} {
		out := d.send(cmd)
		assert.Equal(t, before, out.Lesson, cmd)
		require.Len(t, out.Effects, 1, cmd)
		assert.Equal(t, EffectCommand, out.Effects[0].Kind)
		assert.Empty(t, out.Events)
	}
	assert.Equal(t, intent.CommandStop, d.fx[len(d.fx)-1].Command)

	re := d.m.Reprompt(before)
	require.Len(t, re, 1)
	assert.Equal(t, retryPrefix+before.Question, re[0].Body)
}

func TestAmbiguousInputReprompts(t *testing.T) {
	c := &stubContent{}
	d := newDriver(t, c, planWith(2), persona.DefaultPolicy())
	d.send("sí")

	out := d.send("otro ejemplo y pasamos")
	require.Len(t, out.Events, 1)
	assert.Equal(t, ambiguousPrompt, out.Events[0].Body)
	assert.Equal(t, 0, c.checks)
	assert.Equal(t, 0, c.examples)

	out = d.send("   ")
	require.Len(t, out.Events, 1)
	assert.Equal(t, EventAskCheck, out.Events[0].Type)
}

func TestNeedsElaborationAsksAgain(t *testing.T) {
	c := &stubContent{verdicts: []Verdict{{Understood: true, NeedsElaboration: true, Rationale: "Casi."}}}
	d := newDriver(t, c, planWith(2), persona.DefaultPolicy())
	d.send("sí")

	out := d.send(answer)
	assert.Equal(t, StateWaitingInput, out.Lesson.State)
	assert.Equal(t, 0, out.Lesson.PointIndex)
	assert.Equal(t, 1, out.Lesson.Attempts)

	out = d.send(answer)
	assert.Equal(t, 1, out.Lesson.PointIndex)
}

func TestConfirmAdvanceAndDeepen(t *testing.T) {
	c := &stubContent{}
	d := newDriver(t, c, planWith(2), persona.DefaultPolicy())
	d.m.ConfirmAdvance = true
	d.send("sí")

	out := d.send(answer)
	require.Equal(t, StateConfirmAdvance, out.Lesson.State)
	assert.Equal(t, EventAskConfirmAdvance, out.Events[len(out.Events)-1].Type)

	out = d.send("no")
	assert.Contains(t, out.Path, StateDeepenExplanation)
	assert.Equal(t, StateConfirmAdvance, out.Lesson.State)
	assert.Equal(t, 1, c.deepens)

	out = d.send("no")
	assert.Equal(t, 1, c.deepens, "followup limit reached")
	assert.Contains(t, out.Events[0].Body, deepenLimitText)

	out = d.send("hmm")
	assert.Equal(t, StateConfirmAdvance, out.Lesson.State)

	out = d.send("sí")
	assert.Equal(t, 1, out.Lesson.PointIndex)
}

func TestMalformedVerdictDegrades(t *testing.T) {
	d := newDriver(t, &malformedCheck{stubContent: &stubContent{}}, planWith(2), persona.DefaultPolicy())
	d.send("sí")

	out := d.send(answer)
	assert.True(t, out.Lesson.Degraded)
	assert.Equal(t, StateAwaitingRetry, out.Lesson.State)
	assert.Equal(t, fallbackRationale, out.Events[0].Body)
	require.Len(t, out.Warnings, 1)
	var me *ContentMalformedError
	assert.ErrorAs(t, out.Warnings[0], &me)
}

type malformedCheck struct {
	*stubContent
}

func (malformedCheck) CheckComprehension(context.Context, CheckRequest) (Verdict, error) {
	return Verdict{}, ErrMalformedContent
}

func TestTimeoutLeavesLessonUntouched(t *testing.T) {
	c := &stubContent{}
	d := newDriver(t, c, planWith(2), persona.DefaultPolicy())
	d.send("sí")
	before := d.lesson

	c.block = true
	d.m.Timeout = 10 * time.Millisecond
	_, err := d.m.Advance(context.Background(), before, answer)
	var te *ContentTimeoutError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "check_comprehension", te.Op)
	assert.Equal(t, "content_timeout", errorCode(err))

	c.block = false
	c.fail = errors.New("provider down")
	_, err = d.m.Advance(context.Background(), before, answer)
	var ue *ContentUnavailableError
	require.ErrorAs(t, err, &ue)

	c.fail = nil
	out, err := d.m.Advance(context.Background(), before, answer)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Lesson.PointIndex)
}

func TestAttemptGuardForcesPostFailureChoice(t *testing.T) {
	c := &stubContent{}
	m := &Machine{Content: c, Plan: planWith(2), Persona: personaWith(persona.DefaultPolicy())}
	l := Lesson{State: StateAwaitingRetry, Attempts: 2, Question: "¿Qué?"}

	out, err := m.Advance(context.Background(), l, answer)
	require.NoError(t, err)
	assert.Equal(t, StatePostFailureChoice, out.Lesson.State)
	assert.Equal(t, 0, c.checks)
	require.Len(t, out.Warnings, 1)
	var pv *PolicyViolationError
	assert.ErrorAs(t, out.Warnings[0], &pv)
}

func TestAdvanceOnClosedLesson(t *testing.T) {
	m := &Machine{Content: &stubContent{}, Plan: planWith(1)}
	_, err := m.Advance(context.Background(), Lesson{State: StateClosed}, "hola")
	assert.ErrorIs(t, err, ErrLessonClosed)
}
