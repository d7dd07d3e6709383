package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ajujo/teaching-system/internal/logger"
	"github.com/ajujo/teaching-system/internal/progress"
)

var studentsCmd = &cobra.Command{
	Use:   "students",
	Short: "Manage student profiles",
}

func openStudents(cmd *cobra.Command) (*progress.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return progress.NewStore(cfg.StateDir()), nil
}

var studentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List students",
	RunE: func(cmd *cobra.Command, args []string) error {
		ps, err := openStudents(cmd)
		if err != nil {
			return err
		}
		st, err := ps.Load(cmd.Context())
		if err != nil {
			return fmt.Errorf("load students: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(st.Students) == 0 {
			fmt.Fprintln(out, "No students yet. Add one with: tutor students add <name> [surname]")
			return nil
		}
		fmt.Fprintf(out, "   %-6s  %-24s  %-16s  %-14s  %s\n", "ID", "Name", "Book", "Persona", "Completed")
		fmt.Fprintln(out, strings.Repeat("─", 80))
		for _, s := range st.Students {
			mark := " "
			if s.StudentID == st.ActiveStudentID {
				mark = "*"
			}
			name := strings.TrimSpace(s.DisplayName() + " " + s.Surname)
			book := s.TutorState.ActiveBookID
			done := 0
			if bp := s.TutorState.Progress[book]; bp != nil {
				done = len(bp.CompletedUnits)
			}
			fmt.Fprintf(out, " %s %-6s  %-24s  %-16s  %-14s  %d\n",
				mark, s.StudentID, truncate(name, 24), truncate(orDash(book), 16),
				orDash(s.TutorPersonaID), done)
		}
		return nil
	},
}

var studentsAddCmd = &cobra.Command{
	Use:   "add <name> [surname]",
	Short: "Add a student",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ps, err := openStudents(cmd)
		if err != nil {
			return err
		}
		in := progress.NewStudent{Name: args[0]}
		if len(args) > 1 {
			in.Surname = args[1]
		}
		in.Email, _ = cmd.Flags().GetString("email")
		in.TutorPersonaID, _ = cmd.Flags().GetString("persona")
		if in.TutorPersonaID != "" {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			reg, err := loadPersonas(cfg, logger.Nop())
			if err != nil {
				return err
			}
			if _, err := reg.Get(in.TutorPersonaID); err != nil {
				return err
			}
		}

		var added progress.StudentProfile
		err = ps.Update(cmd.Context(), func(st *progress.StudentsState) error {
			p, err := st.AddStudent(in, ps.Now())
			if err != nil {
				return err
			}
			added = *p
			return nil
		})
		if err != nil {
			return fmt.Errorf("add student: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s)\n", added.StudentID,
			strings.TrimSpace(added.Name+" "+added.Surname))
		return nil
	},
}

var studentsRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a student and their progress",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ps, err := openStudents(cmd)
		if err != nil {
			return err
		}
		var active string
		err = ps.Update(cmd.Context(), func(st *progress.StudentsState) error {
			if err := st.RemoveStudent(args[0]); err != nil {
				return err
			}
			active = st.ActiveStudentID
			return nil
		})
		if err != nil {
			return fmt.Errorf("remove student: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %s. Active student: %s\n", args[0], orDash(active))
		return nil
	},
}

var studentsSelectCmd = &cobra.Command{
	Use:   "select <id>",
	Short: "Select the active student",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ps, err := openStudents(cmd)
		if err != nil {
			return err
		}
		err = ps.Update(cmd.Context(), func(st *progress.StudentsState) error {
			return st.SetActive(args[0])
		})
		if err != nil {
			return fmt.Errorf("select student: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Active student: %s\n", args[0])
		return nil
	},
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func init() {
	studentsAddCmd.Flags().String("email", "", "Contact email")
	studentsAddCmd.Flags().String("persona", "", "Preferred tutor persona id")

	studentsCmd.AddCommand(studentsListCmd)
	studentsCmd.AddCommand(studentsAddCmd)
	studentsCmd.AddCommand(studentsRemoveCmd)
	studentsCmd.AddCommand(studentsSelectCmd)
}
