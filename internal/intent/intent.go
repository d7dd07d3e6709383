// Package intent maps free-form learner text to flow-control signals.
//
// Classification is keyword based and deterministic. Matching is case and
// accent insensitive; the keyword tables are Spanish with a few English
// synonyms for commands.
package intent

import (
	"regexp"
	"strings"
)

// Result is a tri-state classification outcome.
type Result int

const (
	No Result = iota
	Yes
	Ambiguous
)

func (r Result) String() string {
	switch r {
	case Yes:
		return "yes"
	case Ambiguous:
		return "ambiguous"
	default:
		return "no"
	}
}

// Command is a global command that is honoured in every non-terminal state.
type Command int

const (
	CommandNone Command = iota
	CommandStop
	CommandNotes
	CommandQuiz
	CommandExam
)

func (c Command) String() string {
	switch c {
	case CommandStop:
		return "stop"
	case CommandNotes:
		return "notes"
	case CommandQuiz:
		return "quiz"
	case CommandExam:
		return "exam"
	default:
		return "none"
	}
}

// Choice is the outcome of the confirm-advance and post-failure parsers.
type Choice int

const (
	ChoiceUnknown Choice = iota
	ChoiceAdvance
	ChoiceStay
	ChoiceReview
	ChoiceCommand
)

func (c Choice) String() string {
	switch c {
	case ChoiceAdvance:
		return "advance"
	case ChoiceStay:
		return "stay"
	case ChoiceReview:
		return "review"
	case ChoiceCommand:
		return "command"
	default:
		return "unknown"
	}
}

var commandWords = map[string]Command{
	"stop":        CommandStop,
	"salir":       CommandStop,
	"exit":        CommandStop,
	"quit":        CommandStop,
	"apuntes":     CommandNotes,
	"ver apuntes": CommandNotes,
	"notas":       CommandNotes,
	"notes":       CommandNotes,
	"control":     CommandQuiz,
	"quiz":        CommandQuiz,
	"mini quiz":   CommandQuiz,
	"mini-quiz":   CommandQuiz,
	"miniquiz":    CommandQuiz,
	"quiz me":     CommandQuiz,
	"examen":      CommandExam,
	"exam":        CommandExam,
}

func compile(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}

var (
	affirmativePatterns = compile(
		`^si$`, `^y(?:es)?$`, `^vale$`, `^ok(?:ay)?$`, `^claro$`, `^dale$`, `^venga$`,
		`^perfecto$`, `^de\s+acuerdo$`, `^genial$`, `^bueno$`, `^vamos$`, `^adelante$`,
	)
	// affirmativeWords lets "si, claro" or "ok vale" count as a plain yes.
	affirmativeWords = map[string]bool{
		"si": true, "yes": true, "vale": true, "ok": true, "okay": true,
		"claro": true, "dale": true, "venga": true, "perfecto": true,
		"genial": true, "bueno": true, "vamos": true, "adelante": true,
	}

	negativePatterns = compile(
		`^no?$`, `^espera$`, `^aun\s+no$`, `^todavia\s+no$`, `^repite$`,
		`^mas\s+lento$`, `^no\s+(?:estoy\s+)?seguro$`,
	)
	negativeWords = map[string]bool{
		"no": true, "espera": true, "todavia": true, "aun": true,
	}

	advancePatterns = compile(
		`\bavan[zc](?:ar?|amos|emos)\b`,
		`\bpas(?:ar|emos|amos)\b`,
		`\bsiguiente\s+(?:punto|seccion|tema)\b`,
		`^siguiente$`,
		`\bpodemos\s+(?:pasar|avanzar|seguir)\b`,
		`\bvamos\s+(?:al\s+)?siguiente\b`,
		`\bcontinu(?:ar|emos|amos)\b`,
		`\badelante\b`,
		`\bsig(?:o|amos)\b`,
	)
	// negatedAdvance catches "no avancemos", "no quiero pasar", "sigo sin entender".
	negatedAdvance = compile(
		`\bno\s+(?:quiero\s+|podemos\s+|vamos\s+a\s+)?(?:avan|pas|segu|sig|continu)`,
		`\bsigo\s+sin\b`,
		`\btodavia\s+no\b`,
		`\baun\s+no\b`,
	)

	moreExamplesPatterns = compile(
		`\bmas\s+ejemplos?\b`,
		`\botros?\s+ejemplos?\b`,
		`\bexplica(?:r?lo|me)?\s+(?:mejor|mas)\b`,
		`\bno\s+(?:lo\s+)?entiendo\b`,
		`\brepite\b`,
		`\bdetalla\s+mas\b`,
		`\bno\s+(?:estoy\s+)?seguro\b`,
		`\bdudas?\b`,
		`\bpuedes\s+(?:explicar|dar)\b.*\b(?:mas|mejor)\b`,
		`\bdame\s+(?:otro|mas)\b`,
		`\bno\s+me\s+queda\s+claro\b`,
		`\bme\s+(?:puedes|podrias)\s+(?:dar|explicar)\b`,
	)

	reviewPatterns = compile(
		`\brepas(?:ar|o|emos)\b`,
		`\brevisa(?:r|mos)?\b`,
		`\brepite\b`,
		`\bexplica\s+(?:mejor|mas)\b`,
		`\bno\s+entiendo\b`,
		`\bmas\s+lento\b`,
	)

	unitStartWords = []string{"empezamos", "comenzamos", "empecemos", "comencemos", "por supuesto", "listo", "lista"}
)

func anyMatch(res []*regexp.Regexp, n string) bool {
	for _, re := range res {
		if re.MatchString(n) {
			return true
		}
	}
	return false
}

func allIn(ws []string, set map[string]bool) bool {
	if len(ws) == 0 {
		return false
	}
	for _, w := range ws {
		if !set[w] {
			return false
		}
	}
	return true
}

// ParseCommand reports the global command text names, if any. Commands must
// be the whole message so that answers mentioning "control" do not trigger one.
func ParseCommand(text string) (Command, bool) {
	c, ok := commandWords[Normalize(text)]
	return c, ok
}

// IsAffirmative classifies a plain yes. A message that opens with a yes but
// carries more content ("sí, es el tokenizador") is ambiguous: it may be an answer.
func IsAffirmative(text string) Result {
	n := Normalize(text)
	if n == "" {
		return No
	}
	if anyMatch(affirmativePatterns, n) || allIn(words(n), affirmativeWords) {
		return Yes
	}
	ws := words(n)
	if len(ws) > 1 && affirmativeWords[ws[0]] {
		return Ambiguous
	}
	return No
}

// IsNegative classifies a plain no or "wait".
func IsNegative(text string) Result {
	n := Normalize(text)
	if n == "" {
		return No
	}
	if anyMatch(negativePatterns, n) || allIn(words(n), negativeWords) {
		return Yes
	}
	ws := words(n)
	if len(ws) > 1 && ws[0] == "no" {
		return Ambiguous
	}
	return No
}

// IsAdvance classifies an explicit request to move to the next point.
// Mixed requests ("otro ejemplo y pasamos") are ambiguous.
func IsAdvance(text string) Result {
	n := Normalize(text)
	if n == "" || anyMatch(negatedAdvance, n) {
		return No
	}
	if !anyMatch(advancePatterns, n) {
		return No
	}
	if anyMatch(moreExamplesPatterns, n) || anyMatch(reviewPatterns, n) {
		return Ambiguous
	}
	return Yes
}

// IsReview classifies a request to go over the current point again.
func IsReview(text string) Result {
	n := Normalize(text)
	if n == "" || !anyMatch(reviewPatterns, n) {
		return No
	}
	if !anyMatch(negatedAdvance, n) && anyMatch(advancePatterns, n) {
		return Ambiguous
	}
	return Yes
}

// IsMoreExamples classifies a request for extra examples or a clearer
// explanation of the current point.
func IsMoreExamples(text string) Result {
	n := Normalize(text)
	if n == "" || !anyMatch(moreExamplesPatterns, n) {
		return No
	}
	if !anyMatch(negatedAdvance, n) && anyMatch(advancePatterns, n) {
		return Ambiguous
	}
	return Yes
}

// IsUnitStart classifies readiness to begin a unit after its opening.
func IsUnitStart(text string) Result {
	n := Normalize(text)
	if n == "" {
		return No
	}
	if r := IsAffirmative(n); r == Yes {
		return Yes
	}
	for _, w := range unitStartWords {
		if strings.Contains(n, w) {
			return Yes
		}
	}
	if IsAffirmative(n) == Ambiguous {
		return Ambiguous
	}
	return No
}

// ParseConfirmAdvance parses the answer to "¿Avanzamos al siguiente punto?".
func ParseConfirmAdvance(text string) Choice {
	if _, ok := ParseCommand(text); ok {
		return ChoiceCommand
	}
	if IsAffirmative(text) == Yes || IsAdvance(text) == Yes {
		return ChoiceAdvance
	}
	if IsNegative(text) == Yes || IsMoreExamples(text) == Yes {
		return ChoiceStay
	}
	return ChoiceUnknown
}

// ParsePostFailureChoice parses the answer offered after a point was failed:
// advance anyway, or review it. Empty input and a bare yes resolve to the
// persona's default, passed as defaultAdvance.
func ParsePostFailureChoice(text string, defaultAdvance bool) Choice {
	if _, ok := ParseCommand(text); ok {
		return ChoiceCommand
	}
	def := ChoiceReview
	if defaultAdvance {
		def = ChoiceAdvance
	}

	n := Normalize(text)
	switch n {
	case "":
		return def
	case "a", "avanzar", "adelante":
		return ChoiceAdvance
	case "r", "repasar", "repaso":
		return ChoiceReview
	}

	switch {
	case IsAdvance(n) == Yes:
		return ChoiceAdvance
	case IsReview(n) == Yes, IsMoreExamples(n) == Yes, IsNegative(n) == Yes:
		return ChoiceReview
	case IsAffirmative(n) == Yes:
		return def
	}
	return ChoiceUnknown
}
