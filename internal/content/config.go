package content

// Config holds generation limits per call kind.
type Config struct {
	PlanMaxTokens    int
	ExplainMaxTokens int
	CheckMaxTokens   int
	// NotesContext bounds how much of a point summary goes into prompts.
	NotesContext int
}

func DefaultConfig() Config {
	return Config{
		PlanMaxTokens:    1024,
		ExplainMaxTokens: 900,
		CheckMaxTokens:   300,
		NotesContext:     1500,
	}
}

// Sampling temperatures per call kind.
const (
	tempPlan     = 0.2
	tempExplain  = 0.7
	tempCheck    = 0.3
	tempCreative = 0.8
)
