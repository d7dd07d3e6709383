// Package terminal is the synchronous session adapter: a blocking line loop
// that prints each turn's events as styled text.
package terminal

import (
	"fmt"
	"strings"

	"github.com/ajujo/teaching-system/internal/teaching"
	"github.com/ajujo/teaching-system/internal/ui/components"
	"github.com/ajujo/teaching-system/internal/ui/theme"
)

type style func(...string) string

func plain(strs ...string) string { return strings.Join(strs, " ") }

// Renderer turns events into terminal text.
type Renderer struct {
	color bool

	title, heading, body, question, hint, correct, incorrect, card style
}

// NewRenderer returns a renderer. With color off every style is the identity.
func NewRenderer(color bool) *Renderer {
	r := &Renderer{color: color}
	if !color {
		r.title, r.heading, r.body, r.question = plain, plain, plain, plain
		r.hint, r.correct, r.incorrect, r.card = plain, plain, plain, plain
		return r
	}
	r.title = theme.Title.Render
	r.heading = theme.Heading.Render
	r.body = theme.Body.Render
	r.question = theme.Question.Render
	r.hint = theme.Hint.Render
	r.correct = theme.Correct.Render
	r.incorrect = theme.Incorrect.Render
	r.card = theme.Card.Render
	return r
}

// Render formats one event. Idle events render as nothing.
func (r *Renderer) Render(e teaching.Event) string {
	switch e.Type {
	case teaching.EventIdle:
		return ""
	case teaching.EventUnitOpening:
		return join(r.title(e.Title), r.body(e.Body))
	case teaching.EventPointOpening:
		return join(r.progress(e), r.heading(e.Body))
	case teaching.EventPointExplanation:
		return r.body(e.Body)
	case teaching.EventAskCheck, teaching.EventAskConfirmAdvance, teaching.EventAskUnitNext:
		return r.question(e.Body)
	case teaching.EventFeedback:
		return r.feedback(e)
	case teaching.EventUnitNotes:
		return r.card(join(r.heading(e.Title), e.Body))
	case teaching.EventError:
		return r.incorrect(e.Body)
	case teaching.EventSessionClosed:
		return r.hint(e.Body)
	}
	return join(e.Title, e.Body)
}

func (r *Renderer) feedback(e teaching.Event) string {
	understood, ok := e.Data["understood"].(bool)
	switch {
	case !ok:
		return r.body(e.Body)
	case understood:
		return r.correct(e.Body)
	default:
		return r.incorrect(e.Body)
	}
}

func (r *Renderer) progress(e teaching.Event) string {
	n, _ := e.Data["point_number"].(int)
	total, _ := e.Data["total_points"].(int)
	return components.PointProgress{Current: n, Total: total, Width: 20, Plain: !r.color}.View()
}

// Prompt is printed before each input line.
func (r *Renderer) Prompt() string {
	if !r.color {
		return "> "
	}
	return theme.Prompt.Render(">") + " "
}

func join(parts ...string) string {
	var keep []string
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			keep = append(keep, p)
		}
	}
	return strings.Join(keep, "\n\n")
}

// RenderAll formats a turn, one blank line between events.
func (r *Renderer) RenderAll(events []teaching.Event) string {
	var b strings.Builder
	for _, e := range events {
		if s := r.Render(e); s != "" {
			fmt.Fprintf(&b, "%s\n\n", s)
		}
	}
	return b.String()
}
