package teaching

import (
	"context"
	"fmt"
	"sync"

	"github.com/ajujo/teaching-system/internal/persona"
)

// stubContent is a scripted Content that counts calls.
type stubContent struct {
	mu sync.Mutex

	// verdicts are returned in order; when empty the answer is understood.
	verdicts []Verdict
	// fail, when set, is returned by every point-level call.
	fail error
	// block makes point-level calls wait for ctx to end.
	block bool

	checks, explains, remediations, examples, deepens int
	styles                                            []persona.RemediationStyle
}

func (s *stubContent) wait(ctx context.Context) error {
	if s.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return s.fail
}

func (s *stubContent) BuildPlan(_ context.Context, req PlanRequest) (*Plan, error) {
	return ParsePlan(req.UnitID, req.Title, req.Notes), nil
}

func (s *stubContent) OpenUnit(_ context.Context, req OpenRequest) (string, error) {
	return RenderOpening(req.Plan, req.StudentName), nil
}

func (s *stubContent) Explain(ctx context.Context, req PointRequest) (string, error) {
	if err := s.wait(ctx); err != nil {
		return "", err
	}
	s.mu.Lock()
	s.explains++
	s.mu.Unlock()
	return fmt.Sprintf("Explicación del punto %d.\n\n¿Qué recuerdas de %s?", req.Point.Number, req.Point.Title), nil
}

func (s *stubContent) CheckComprehension(ctx context.Context, _ CheckRequest) (Verdict, error) {
	if err := s.wait(ctx); err != nil {
		return Verdict{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks++
	if len(s.verdicts) == 0 {
		return Verdict{Understood: true, Rationale: "Correcto."}, nil
	}
	v := s.verdicts[0]
	s.verdicts = s.verdicts[1:]
	return v, nil
}

func (s *stubContent) Remediate(ctx context.Context, req RemediationRequest) (string, error) {
	if err := s.wait(ctx); err != nil {
		return "", err
	}
	s.mu.Lock()
	s.remediations++
	s.styles = append(s.styles, req.Style)
	s.mu.Unlock()
	return "Primer párrafo.\n\nSegundo párrafo. ¿Lo ves ahora?\n\nTercer párrafo.", nil
}

func (s *stubContent) MoreExamples(ctx context.Context, _ PointRequest) (string, error) {
	if err := s.wait(ctx); err != nil {
		return "", err
	}
	s.mu.Lock()
	s.examples++
	s.mu.Unlock()
	return "Ejemplo: una receta de cocina.", nil
}

func (s *stubContent) Deepen(ctx context.Context, _ PointRequest) (string, error) {
	if err := s.wait(ctx); err != nil {
		return "", err
	}
	s.mu.Lock()
	s.deepens++
	s.mu.Unlock()
	return "Más detalle.", nil
}

func notUnderstood(n int) []Verdict {
	vs := make([]Verdict, n)
	for i := range vs {
		vs[i] = Verdict{Rationale: "No exactamente."}
	}
	return vs
}

func planWith(n int) *Plan {
	p := &Plan{UnitID: "libro-ch01-u01", Title: "Tokenización", Objective: DefaultObjective}
	for i := 1; i <= n; i++ {
		p.Points = append(p.Points, Point{
			Number:  i,
			Title:   fmt.Sprintf("Punto %d", i),
			Summary: fmt.Sprintf("Resumen del punto %d.", i),
		})
	}
	return p
}

func personaWith(pol persona.Policy) persona.Persona {
	return persona.Persona{ID: "test", Name: "Test", Policy: pol}
}

// unitNotes has the given number of numbered points.
func unitNotes(points int) string {
	s := "# Tokenización\n\n## Resumen\n\nCómo se trocea el texto.\n\n## Explicación paso a paso\n\n"
	for i := 1; i <= points; i++ {
		s += fmt.Sprintf("### %d. Paso %d\n\nContenido del paso %d.\n\n", i, i, i)
	}
	return s
}
