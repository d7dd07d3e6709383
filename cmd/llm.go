package cmd

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ajujo/teaching-system/internal/llm"
	"github.com/ajujo/teaching-system/internal/store"
)

var llmCmd = &cobra.Command{
	Use:   "llm",
	Short: "Inspect journaled LLM requests",
}

var llmListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent LLM requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := store.QueryOpts{}
		opts.Limit, _ = cmd.Flags().GetInt("limit")
		opts.Purpose, _ = cmd.Flags().GetString("purpose")
		opts.SessionID, _ = cmd.Flags().GetString("session")

		s, err := openJournal(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		reqs, err := s.ListLLMRequests(cmd.Context(), opts)
		if err != nil {
			return fmt.Errorf("query requests: %w", err)
		}
		out := cmd.OutOrStdout()
		if len(reqs) == 0 {
			fmt.Fprintln(out, "No LLM requests found.")
			return nil
		}

		fmt.Fprintf(out, "%-5s  %-19s  %-8s  %-20s  %-28s  %-6s  %-6s  %-7s  %s\n",
			"ID", "Timestamp", "Session", "Purpose", "Model", "In", "Out", "Ms", "OK")
		fmt.Fprintln(out, strings.Repeat("─", 116))
		for _, r := range reqs {
			ok := "✓"
			if !r.Success {
				ok = "✗"
			}
			fmt.Fprintf(out, "%-5d  %-19s  %-8s  %-20s  %-28s  %-6d  %-6d  %-7d  %s\n",
				r.ID,
				r.Timestamp.Local().Format("2006-01-02 15:04:05"),
				orDash(r.SessionID),
				truncate(r.Purpose, 20),
				truncate(r.Model, 28),
				r.InputTokens,
				r.OutputTokens,
				r.LatencyMs,
				ok,
			)
		}
		return nil
	},
}

var llmViewCmd = &cobra.Command{
	Use:   "view <id>",
	Short: "View the full request and response of one LLM call",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid ID %q: %w", args[0], err)
		}

		s, err := openJournal(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		r, err := s.GetLLMRequest(cmd.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("request %d not found", id)
		}
		if err != nil {
			return fmt.Errorf("get request: %w", err)
		}

		out := cmd.OutOrStdout()
		sep := strings.Repeat("─", 60)
		fmt.Fprintf(out, "ID:        %d\n", r.ID)
		fmt.Fprintf(out, "Time:      %s\n", r.Timestamp.Local().Format("2006-01-02 15:04:05"))
		fmt.Fprintf(out, "Session:   %s\n", orDash(r.SessionID))
		fmt.Fprintf(out, "Provider:  %s\n", r.Provider)
		fmt.Fprintf(out, "Model:     %s\n", r.Model)
		fmt.Fprintf(out, "Purpose:   %s\n", r.Purpose)
		fmt.Fprintf(out, "Tokens:    %d in / %d out\n", r.InputTokens, r.OutputTokens)
		fmt.Fprintf(out, "Latency:   %dms\n", r.LatencyMs)
		fmt.Fprintf(out, "Success:   %v\n", r.Success)
		if r.ErrorMessage != "" {
			fmt.Fprintf(out, "Error:     %s\n", r.ErrorMessage)
		}

		for _, part := range []struct{ title, body string }{
			{"REQUEST", r.RequestBody},
			{"RESPONSE", r.ResponseBody},
		} {
			fmt.Fprintln(out)
			fmt.Fprintln(out, sep)
			fmt.Fprintln(out, part.title)
			fmt.Fprintln(out, sep)
			if part.body == "" {
				fmt.Fprintln(out, "(not captured)")
				continue
			}
			fmt.Fprintln(out, part.body)
		}
		return nil
	},
}

// usageTotal aggregates usage rows under one key.
type usageTotal struct {
	key                            string
	requests, failures, in, outTok int
	latencyMs                      int64
}

func (u usageTotal) avgLatency() int64 {
	if u.requests == 0 {
		return 0
	}
	return u.latencyMs / int64(u.requests)
}

func groupUsage(rows []store.Usage, key func(store.Usage) string) []usageTotal {
	by := map[string]*usageTotal{}
	for _, r := range rows {
		k := key(r)
		t := by[k]
		if t == nil {
			t = &usageTotal{key: k}
			by[k] = t
		}
		t.requests += r.Requests
		t.failures += r.Failures
		t.in += r.InputTokens
		t.outTok += r.OutputTokens
		t.latencyMs += r.LatencyMs
	}
	out := make([]usageTotal, 0, len(by))
	for _, t := range by {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].key < out[j].key })
	return out
}

var llmStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregated LLM token usage and estimated cost",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := store.QueryOpts{}
		opts.SessionID, _ = cmd.Flags().GetString("session")

		s, err := openJournal(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		rows, err := s.LLMUsage(cmd.Context(), opts)
		if err != nil {
			return fmt.Errorf("query usage: %w", err)
		}
		out := cmd.OutOrStdout()
		if len(rows) == 0 {
			fmt.Fprintln(out, "No LLM usage recorded yet.")
			return nil
		}

		// Usage by purpose.
		fmt.Fprintln(out, "Usage by Purpose")
		fmt.Fprintln(out, strings.Repeat("─", 84))
		fmt.Fprintf(out, "%-20s  %6s  %6s  %10s  %10s  %10s  %8s\n",
			"Purpose", "Calls", "Failed", "Input", "Output", "Total", "Avg Ms")
		fmt.Fprintln(out, strings.Repeat("─", 84))

		var total usageTotal
		for _, u := range groupUsage(rows, func(r store.Usage) string { return r.Purpose }) {
			fmt.Fprintf(out, "%-20s  %6d  %6d  %10d  %10d  %10d  %8d\n",
				truncate(orDash(u.key), 20), u.requests, u.failures, u.in, u.outTok, u.in+u.outTok, u.avgLatency())
			total.requests += u.requests
			total.failures += u.failures
			total.in += u.in
			total.outTok += u.outTok
		}
		fmt.Fprintln(out, strings.Repeat("─", 84))
		fmt.Fprintf(out, "%-20s  %6d  %6d  %10d  %10d  %10d\n",
			"TOTAL", total.requests, total.failures, total.in, total.outTok, total.in+total.outTok)

		// Cost by model.
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Estimated Cost (USD)")
		fmt.Fprintln(out, strings.Repeat("─", 72))
		fmt.Fprintf(out, "%-32s  %6s  %10s  %10s  %10s\n", "Model", "Calls", "Input", "Output", "Cost")
		fmt.Fprintln(out, strings.Repeat("─", 72))

		var totalCost float64
		var unknown []string
		for _, u := range groupUsage(rows, func(r store.Usage) string { return r.Model }) {
			cost := llm.LookupCost(u.key)
			if cost == nil {
				unknown = append(unknown, u.key)
				fmt.Fprintf(out, "%-32s  %6d  %10d  %10d  %10s\n",
					truncate(u.key, 32), u.requests, u.in, u.outTok, "?")
				continue
			}
			c := cost.Cost(u.in, u.outTok)
			totalCost += c
			fmt.Fprintf(out, "%-32s  %6d  %10d  %10d  %10s\n",
				truncate(u.key, 32), u.requests, u.in, u.outTok, formatCost(c))
		}
		fmt.Fprintln(out, strings.Repeat("─", 72))
		label := "TOTAL"
		if len(unknown) > 0 {
			label = "TOTAL (partial)"
		}
		fmt.Fprintf(out, "%-32s  %6s  %10s  %10s  %10s\n", label, "", "", "", formatCost(totalCost))
		if len(unknown) > 0 {
			fmt.Fprintf(out, "\nPricing unavailable for: %s\n", strings.Join(unknown, ", "))
		}
		return nil
	},
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

func formatCost(usd float64) string {
	if usd < 0.01 {
		return fmt.Sprintf("$%.4f", usd)
	}
	return fmt.Sprintf("$%.2f", usd)
}

func init() {
	llmListCmd.Flags().IntP("limit", "n", 20, "Number of requests to show")
	llmListCmd.Flags().StringP("purpose", "p", "", "Filter by purpose (e.g. teaching-plan, point-explanation, comprehension-check)")
	llmListCmd.Flags().String("session", "", "Filter by session id")
	llmStatsCmd.Flags().String("session", "", "Only count requests of this session")

	llmCmd.AddCommand(llmListCmd)
	llmCmd.AddCommand(llmViewCmd)
	llmCmd.AddCommand(llmStatsCmd)
}
