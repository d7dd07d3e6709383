package content

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/ajujo/teaching-system/internal/intent"
	"github.com/ajujo/teaching-system/internal/persona"
	"github.com/ajujo/teaching-system/internal/teaching"
)

// Offline is a rule-based teaching.Content used when no model is configured.
// It teaches straight from the notes and checks answers by word overlap.
type Offline struct{}

var _ teaching.Content = Offline{}

func (Offline) BuildPlan(_ context.Context, req teaching.PlanRequest) (*teaching.Plan, error) {
	return teaching.ParsePlan(req.UnitID, req.Title, req.Notes), nil
}

func (Offline) OpenUnit(_ context.Context, req teaching.OpenRequest) (string, error) {
	return teaching.RenderOpening(req.Plan, req.StudentName), nil
}

func (Offline) Explain(_ context.Context, req teaching.PointRequest) (string, error) {
	summary := strings.TrimSpace(req.Point.Summary)
	if summary == "" {
		summary = fmt.Sprintf("Este punto trata sobre %s.", req.Point.Title)
	}
	return fmt.Sprintf("%s\n\n¿Puedes explicar con tus palabras la idea de «%s»?", summary, req.Point.Title), nil
}

// Minimum shared keywords for an answer to count as understood.
const minOverlap = 2

func (Offline) CheckComprehension(_ context.Context, req teaching.CheckRequest) (teaching.Verdict, error) {
	if intent.IsAffirmative(req.Answer) == intent.Yes {
		return teaching.Verdict{
			Understood:       true,
			NeedsElaboration: true,
			Rationale:        "Bien, pero cuéntamelo con tus palabras.",
		}, nil
	}

	ref := keywords(req.Point.Title + " " + req.Point.Summary)
	hits := 0
	for w := range keywords(req.Answer) {
		if ref[w] {
			hits++
		}
	}
	need := minOverlap
	if len(ref) < 4 {
		need = 1
	}
	if hits >= need {
		return teaching.Verdict{Understood: true, Rationale: "¡Correcto! Has captado la idea."}, nil
	}
	return teaching.Verdict{Rationale: "No termina de encajar con lo que vimos."}, nil
}

func (Offline) Remediate(_ context.Context, req teaching.RemediationRequest) (string, error) {
	lead := firstSentence(req.Point.Summary)
	if req.Style == persona.StyleExample {
		return fmt.Sprintf("Veámoslo con un caso concreto. Piensa en una situación en la que aparece %s: %s\n\n"+
			"Fíjate en qué cambia y qué se mantiene en ese caso.", lowerFirst(req.Point.Title), lead), nil
	}
	return fmt.Sprintf("Imagina %s como una pieza de un mecanismo más grande. %s\n\n"+
		"Igual que cada pieza cumple una función, este concepto cumple la suya dentro de la unidad.",
		lowerFirst(req.Point.Title), lead), nil
}

func (Offline) MoreExamples(_ context.Context, req teaching.PointRequest) (string, error) {
	return fmt.Sprintf("Un ejemplo más sobre %s: vuelve a leer esta idea y busca dónde la aplicarías.\n\n%s",
		lowerFirst(req.Point.Title), firstSentence(req.Point.Summary)), nil
}

func (Offline) Deepen(_ context.Context, req teaching.PointRequest) (string, error) {
	summary := strings.TrimSpace(req.Point.Summary)
	if summary == "" {
		summary = req.Point.Title
	}
	return fmt.Sprintf("Vamos un poco más a fondo.\n\n%s", summary), nil
}

// stopwords are frequent Spanish words that say nothing about a concept.
var stopwords = map[string]bool{
	"para": true, "como": true, "pero": true, "porque": true, "cuando": true,
	"donde": true, "este": true, "esta": true, "estos": true, "estas": true,
	"entre": true, "sobre": true, "tiene": true, "tienen": true, "puede": true,
	"pueden": true, "cada": true, "todo": true, "todos": true,
	"otro": true, "otra": true, "desde": true, "hasta": true, "tambien": true,
	"creo": true, "algo": true, "cosa": true, "cosas": true, "unidad": true,
}

// keywords returns the normalized content words of s.
func keywords(s string) map[string]bool {
	out := make(map[string]bool)
	fields := strings.FieldsFunc(intent.Normalize(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range fields {
		if len([]rune(w)) < 4 || stopwords[w] {
			continue
		}
		out[stem(w)] = true
	}
	return out
}

// stem drops a plural ending so "tokens" and "token" match.
func stem(w string) string {
	if strings.HasSuffix(w, "s") && len(w) > 4 {
		return w[:len(w)-1]
	}
	return w
}

func firstSentence(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, ".\n"); i > 0 {
		return strings.TrimSpace(s[:i+1])
	}
	return s
}

func lowerFirst(s string) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) == 0 {
		return s
	}
	r[0] = unicode.ToLower(r[0])
	return string(r)
}
