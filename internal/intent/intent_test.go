package intent

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  Sí  ", "si"},
		{"¿Más   ejemplos?", "mas ejemplos"},
		{"TODAVÍA NO.", "todavia no"},
		{"¡Enséñame!", "ensename"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsAffirmative(t *testing.T) {
	tests := []struct {
		in   string
		want Result
	}{
		{"sí", Yes},
		{"Si", Yes},
		{"vale", Yes},
		{"De acuerdo", Yes},
		{"ok, dale", Yes},
		{"sí, es el tokenizador", Ambiguous},
		{"el tokenizador", No},
		{"", No},
		{"no", No},
	}
	for _, tt := range tests {
		if got := IsAffirmative(tt.in); got != tt.want {
			t.Errorf("IsAffirmative(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestIsNegative(t *testing.T) {
	tests := []struct {
		in   string
		want Result
	}{
		{"no", Yes},
		{"Aún no", Yes},
		{"espera", Yes},
		{"no estoy seguro", Yes},
		{"no, creo que es otra cosa", Ambiguous},
		{"quizá", No},
	}
	for _, tt := range tests {
		if got := IsNegative(tt.in); got != tt.want {
			t.Errorf("IsNegative(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestIsAdvance(t *testing.T) {
	tests := []struct {
		in   string
		want Result
	}{
		{"avanzar", Yes},
		{"siguiente", Yes},
		{"Podemos pasar al siguiente punto", Yes},
		{"continuemos", Yes},
		{"sigamos", Yes},
		{"no avancemos todavía", No},
		{"sigo sin entenderlo", No},
		{"dame otro ejemplo y luego pasamos", Ambiguous},
		{"el punto siguiente en la cola", No},
		{"", No},
	}
	for _, tt := range tests {
		if got := IsAdvance(tt.in); got != tt.want {
			t.Errorf("IsAdvance(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestIsMoreExamples(t *testing.T) {
	tests := []struct {
		in   string
		want Result
	}{
		{"más ejemplos", Yes},
		{"MAS EJEMPLOS", Yes},
		{"otro ejemplo", Yes},
		{"no lo entiendo", Yes},
		{"¿me puedes dar un caso?", Yes},
		{"explícame mejor", Yes},
		{"otro ejemplo y avanzamos", Ambiguous},
		{"la atención es una suma ponderada", No},
	}
	for _, tt := range tests {
		if got := IsMoreExamples(tt.in); got != tt.want {
			t.Errorf("IsMoreExamples(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestIsReview(t *testing.T) {
	if got := IsReview("quiero repasar"); got != Yes {
		t.Errorf("IsReview(repasar) = %v, want yes", got)
	}
	if got := IsReview("repasemos y pasamos"); got != Ambiguous {
		t.Errorf("IsReview(mixed) = %v, want ambiguous", got)
	}
	if got := IsReview("la respuesta es 4"); got != No {
		t.Errorf("IsReview(answer) = %v, want no", got)
	}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in     string
		want   Command
		wantOK bool
	}{
		{"stop", CommandStop, true},
		{"STOP.", CommandStop, true},
		{"apuntes", CommandNotes, true},
		{"control", CommandQuiz, true},
		{"mini-quiz", CommandQuiz, true},
		{"Mini quiz", CommandQuiz, true},
		{"quiz me", CommandQuiz, true},
		{"examen", CommandExam, true},
		{"el control de flujo usa if", CommandNone, false},
	}
	for _, tt := range tests {
		got, ok := ParseCommand(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseCommand(%q) = (%v, %v), want (%v, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestIsUnitStart(t *testing.T) {
	for _, in := range []string{"sí", "empezamos", "Vale, comencemos", "por supuesto"} {
		if got := IsUnitStart(in); got != Yes {
			t.Errorf("IsUnitStart(%q) = %v, want yes", in, got)
		}
	}
	if got := IsUnitStart("¿de qué trata?"); got != No {
		t.Errorf("IsUnitStart(question) = %v, want no", got)
	}
}

func TestParseConfirmAdvance(t *testing.T) {
	tests := []struct {
		in   string
		want Choice
	}{
		{"sí", ChoiceAdvance},
		{"siguiente", ChoiceAdvance},
		{"no", ChoiceStay},
		{"más ejemplos", ChoiceStay},
		{"apuntes", ChoiceCommand},
		{"el gato", ChoiceUnknown},
	}
	for _, tt := range tests {
		if got := ParseConfirmAdvance(tt.in); got != tt.want {
			t.Errorf("ParseConfirmAdvance(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParsePostFailureChoice(t *testing.T) {
	tests := []struct {
		in             string
		defaultAdvance bool
		want           Choice
	}{
		{"", true, ChoiceAdvance},
		{"", false, ChoiceReview},
		{"A", false, ChoiceAdvance},
		{"r", true, ChoiceReview},
		{"repaso", true, ChoiceReview},
		{"pasemos", false, ChoiceAdvance},
		{"no lo entiendo", true, ChoiceReview},
		{"no", true, ChoiceReview},
		{"sí", true, ChoiceAdvance},
		{"sí", false, ChoiceReview},
		{"stop", true, ChoiceCommand},
		{"pizza", true, ChoiceUnknown},
	}
	for _, tt := range tests {
		if got := ParsePostFailureChoice(tt.in, tt.defaultAdvance); got != tt.want {
			t.Errorf("ParsePostFailureChoice(%q, %v) = %v, want %v", tt.in, tt.defaultAdvance, got, tt.want)
		}
	}
}
