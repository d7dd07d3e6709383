package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ajujo/teaching-system/internal/teaching"
	"github.com/ajujo/teaching-system/internal/terminal"
)

var learnCmd = &cobra.Command{
	Use:   "learn",
	Short: "Study the next unit in the terminal",
	Long: "learn resumes the active student's book where they left off. " +
		"Type your answers; \"stop\" saves and exits.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		verbose, _ := cmd.Flags().GetBool("verbose")
		mode := "quiet"
		if verbose {
			mode = ""
		}
		rt, err := newRuntime(ctx, cmd, mode)
		if err != nil {
			return err
		}
		defer rt.Close()

		req := teaching.StartRequest{}
		req.StudentID, _ = cmd.Flags().GetString("student")
		req.BookID, _ = cmd.Flags().GetString("book")
		req.Chapter, _ = cmd.Flags().GetInt("chapter")
		req.Unit, _ = cmd.Flags().GetInt("unit")
		req.PersonaID, _ = cmd.Flags().GetString("persona")

		plain, _ := cmd.Flags().GetBool("plain")
		loop := &terminal.Loop{
			Tutor:    rt.engine,
			In:       cmd.InOrStdin(),
			Out:      cmd.OutOrStdout(),
			Renderer: terminal.NewRenderer(!plain && isTerminal(cmd.OutOrStdout())),
			Log:      rt.log,
		}
		if err := loop.Run(ctx, req); err != nil {
			return fmt.Errorf("learn: %w", err)
		}
		return nil
	},
}

func init() {
	learnCmd.Flags().StringP("student", "s", "", "Student id (defaults to the active student)")
	learnCmd.Flags().StringP("book", "b", "", "Book id (defaults to the student's active book)")
	learnCmd.Flags().Int("chapter", 0, "Chapter to study (defaults to the resume point)")
	learnCmd.Flags().Int("unit", 0, "Unit within the chapter")
	learnCmd.Flags().StringP("persona", "p", "", "Tutor persona id")
	learnCmd.Flags().Bool("plain", false, "Disable colors")
	learnCmd.Flags().BoolP("verbose", "v", false, "Log debug output to stderr")
}
