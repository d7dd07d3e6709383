package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ajujo/teaching-system/internal/store"
)

var eventsCmd = &cobra.Command{
	Use:   "events [session]",
	Short: "List journaled sessions, or replay the events of one session",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openJournal(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		limit, _ := cmd.Flags().GetInt("limit")
		if len(args) == 0 {
			return listSessions(cmd, s, limit)
		}

		events, err := s.SessionEvents(cmd.Context(), args[0], store.QueryOpts{Limit: limit})
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}
		out := cmd.OutOrStdout()
		if len(events) == 0 {
			fmt.Fprintf(out, "No events for session %s.\n", args[0])
			return nil
		}
		full, _ := cmd.Flags().GetBool("full")
		for _, e := range events {
			fmt.Fprintf(out, "%-8s  %s  %-22s  %s\n",
				fmt.Sprintf("%d-%d", e.TurnID, e.Seq),
				e.Timestamp.Local().Format("15:04:05"),
				e.Type,
				e.Title,
			)
			if full && e.Body != "" {
				for _, line := range strings.Split(e.Body, "\n") {
					fmt.Fprintf(out, "          │ %s\n", line)
				}
			}
		}
		return nil
	},
}

func listSessions(cmd *cobra.Command, s *store.Store, limit int) error {
	sessions, err := s.Sessions(cmd.Context(), limit)
	if err != nil {
		return fmt.Errorf("query sessions: %w", err)
	}
	out := cmd.OutOrStdout()
	if len(sessions) == 0 {
		fmt.Fprintln(out, "No sessions journaled yet.")
		return nil
	}
	fmt.Fprintf(out, "%-8s  %-19s  %-19s  %6s  %6s\n", "Session", "Started", "Last", "Turns", "Events")
	fmt.Fprintln(out, strings.Repeat("─", 66))
	for _, ss := range sessions {
		fmt.Fprintf(out, "%-8s  %-19s  %-19s  %6d  %6d\n",
			ss.SessionID,
			ss.First.Local().Format("2006-01-02 15:04:05"),
			ss.Last.Local().Format("2006-01-02 15:04:05"),
			ss.Turns,
			ss.Events,
		)
	}
	return nil
}

func init() {
	eventsCmd.Flags().IntP("limit", "n", 0, "Maximum rows to show (0 = all)")
	eventsCmd.Flags().Bool("full", false, "Print event bodies")
}
