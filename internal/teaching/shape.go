package teaching

import (
	"regexp"
	"strings"
)

const (
	// DefaultCheckQuestion is asked when an explanation carries no question.
	DefaultCheckQuestion = "¿Qué has entendido de esto?"
	// NavigationQuestion closes every remediation.
	NavigationQuestion = "¿Avanzamos al siguiente punto o prefieres repasarlo otra vez?"

	maxRemediationParagraphs = 2
	maxDeepenParagraphs      = 3
)

var (
	thinkRe    = regexp.MustCompile(`(?s)<think>.*?</think>`)
	questionRe = regexp.MustCompile(`¿[^¿?]*\?`)
)

// StripThink removes model reasoning blocks, including an unterminated one.
func StripThink(s string) string {
	s = thinkRe.ReplaceAllString(s, "")
	if i := strings.Index(s, "<think>"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// ExtractQuestion splits off the last Spanish question of text. The body is
// returned without it; q falls back to DefaultCheckQuestion.
func ExtractQuestion(text string) (body, q string) {
	text = strings.TrimSpace(text)
	locs := questionRe.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return text, DefaultCheckQuestion
	}
	last := locs[len(locs)-1]
	q = strings.TrimSpace(text[last[0]:last[1]])
	body = strings.TrimSpace(text[:last[0]] + text[last[1]:])
	return body, q
}

// paragraphs splits on blank lines and drops empty chunks.
func paragraphs(text string) []string {
	var out []string
	for _, p := range blankLinesRe.Split(strings.TrimSpace(text), -1) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// dropQuestions removes every ¿...? sentence.
func dropQuestions(p string) string {
	return strings.TrimSpace(questionRe.ReplaceAllString(p, ""))
}

// ShapeRemediation keeps the first two paragraphs, strips any question and
// closes with NavigationQuestion.
func ShapeRemediation(text string) string {
	return capParagraphs(text, maxRemediationParagraphs) + "\n\n" + NavigationQuestion
}

// ShapeDeepen keeps at most three paragraphs without questions.
func ShapeDeepen(text string) string {
	return capParagraphs(text, maxDeepenParagraphs)
}

func capParagraphs(text string, n int) string {
	var kept []string
	for _, p := range paragraphs(text) {
		if p = dropQuestions(p); p == "" {
			continue
		}
		kept = append(kept, p)
		if len(kept) == n {
			break
		}
	}
	return strings.Join(kept, "\n\n")
}
