package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ajujo/teaching-system/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "tutor",
	Short: "Guided Spanish tutor for book-based study notes",
	Long: "tutor teaches the units of a book point by point, checks comprehension " +
		"and remembers where each student left off.",
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("data", "", "Data directory with books/, state/ and config/ (overrides TUTOR_DATA_DIR)")
	rootCmd.PersistentFlags().String("db", "", "Path to the SQLite journal (overrides TUTOR_DB)")
	rootCmd.PersistentFlags().String("provider", "", "LLM provider (anthropic, openai, gemini, openrouter, lmstudio, mock, offline)")

	rootCmd.AddCommand(learnCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(studentsCmd)
	rootCmd.AddCommand(personasCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(versionCmd)
}

// resolveDBPath returns the journal path using --db (highest priority),
// then TUTOR_DB, then the default XDG path.
func resolveDBPath(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	return store.DefaultDBPath()
}

// openJournal opens the journal for the read-only inspection commands.
func openJournal(cmd *cobra.Command) (*store.Store, error) {
	dbPath, err := resolveDBPath(cmd)
	if err != nil {
		return nil, err
	}
	return store.Open(dbPath)
}
