package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ajujo/teaching-system/internal/logger"
)

var personasCmd = &cobra.Command{
	Use:   "personas",
	Short: "List the available tutor personas",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		reg, err := loadPersonas(cfg, logger.Nop())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "   %-16s  %-24s  %-10s  %-8s  %s\n", "ID", "Name", "Style", "Attempts", "After failure")
		fmt.Fprintln(out, strings.Repeat("─", 80))
		def := reg.Default().ID
		for _, p := range reg.List() {
			mark := " "
			if p.ID == def {
				mark = "*"
			}
			fmt.Fprintf(out, " %s %-16s  %-24s  %-10s  %-8d  %s\n",
				mark, truncate(p.ID, 16), truncate(p.Name, 24),
				p.Policy.RemediationStyle, p.Policy.MaxAttemptsPerPoint, p.Policy.DefaultAfterFailure)
		}
		return nil
	},
}
