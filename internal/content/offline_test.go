package content

import (
	"context"
	"strings"
	"testing"

	"github.com/ajujo/teaching-system/internal/persona"
	"github.com/ajujo/teaching-system/internal/teaching"
)

func TestOfflineExplainEndsWithQuestion(t *testing.T) {
	text, err := Offline{}.Explain(context.Background(), pointReq())
	if err != nil {
		t.Fatal(err)
	}
	body, q := teaching.ExtractQuestion(text)
	if body != tokenPoint.Summary {
		t.Errorf("body = %q, want summary", body)
	}
	if q == teaching.DefaultCheckQuestion || !strings.Contains(q, "Qué es un token") {
		t.Errorf("question = %q", q)
	}
}

func TestOfflineCheckComprehension(t *testing.T) {
	tests := []struct {
		answer           string
		understood, more bool
	}{
		{"Es un trozo de texto", true, false},
		{"Los TEXTOS se parten en trozos", true, false},
		{"sí", true, true},
		{"No lo sé", false, false},
		{"texto", false, false},
	}
	for _, tt := range tests {
		req := teaching.CheckRequest{PointRequest: pointReq(), Question: "¿Qué es un token?", Answer: tt.answer}
		v, err := Offline{}.CheckComprehension(context.Background(), req)
		if err != nil {
			t.Fatal(err)
		}
		if v.Understood != tt.understood || v.NeedsElaboration != tt.more {
			t.Errorf("CheckComprehension(%q) = %+v, want understood=%v elaborate=%v", tt.answer, v, tt.understood, tt.more)
		}
		if v.Rationale == "" {
			t.Errorf("CheckComprehension(%q) has no rationale", tt.answer)
		}
	}
}

func TestOfflineRemediateHasNoQuestion(t *testing.T) {
	for _, style := range []persona.RemediationStyle{persona.StyleAnalogy, persona.StyleExample} {
		req := teaching.RemediationRequest{PointRequest: pointReq(), Style: style}
		text, err := Offline{}.Remediate(context.Background(), req)
		if err != nil {
			t.Fatal(err)
		}
		if strings.Contains(text, "?") {
			t.Errorf("%s remediation asks a question: %q", style, text)
		}
		if !strings.Contains(text, "Un token es un trozo de texto") {
			t.Errorf("%s remediation lost the point: %q", style, text)
		}
	}
}

func TestOfflineBuildPlanParsesNotes(t *testing.T) {
	notes := "## Uno\n\nA.\n\n## Dos\n\nB.\n"
	plan, err := Offline{}.BuildPlan(context.Background(), teaching.PlanRequest{UnitID: "u", Title: "T", Notes: notes})
	if err != nil {
		t.Fatal(err)
	}
	if plan.Len() != 2 || plan.Points[1].Title != "Dos" {
		t.Errorf("plan = %+v", plan.Points)
	}
}

func TestKeywords(t *testing.T) {
	got := keywords("Los tokens, según el Modelo, también son TROZOS.")
	for _, w := range []string{"token", "segun", "modelo", "trozo"} {
		if !got[w] {
			t.Errorf("keywords missing %q: %v", w, got)
		}
	}
	for _, w := range []string{"los", "tambien", "son"} {
		if got[w] {
			t.Errorf("keywords kept %q", w)
		}
	}
}
