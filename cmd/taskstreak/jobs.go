package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Reset due recurring tasks and stamp overdue ones once",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.sweeper.Run(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "checked %d, reset %d, stamped overdue %d, skipped %d, failed %d\n",
			report.Checked, report.Reset, report.Stamped, report.Skipped, report.Failed)
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print completion statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		stats, err := a.tasks.Stats(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Tasks:        %d (%d completed, %d%%)\n", stats.Total, stats.Completed, stats.CompletedPercentage)
		fmt.Fprintf(out, "Overdue:      %d\n", stats.Overdue)
		fmt.Fprintf(out, "Today:        %d completions\n", stats.CompletionsToday)
		fmt.Fprintf(out, "This week:    %d completions\n", stats.CompletionsThisWeek)
		fmt.Fprintf(out, "Best streak:  %d (%d active)\n", stats.BestLongestStreak, stats.ActiveStreaks)
		if stats.AverageDifficulty > 0 {
			fmt.Fprintf(out, "Averages:     %.0f min, difficulty %.1f\n", stats.AverageMinutes, stats.AverageDifficulty)
		}
		return nil
	},
}

var rebuildStreaksCmd = &cobra.Command{
	Use:   "rebuild-streaks",
	Short: "Recompute every task's streak from its completion history",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		changed, err := a.tasks.RebuildStreaks(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "updated %d tasks\n", changed)
		return nil
	},
}

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Print today's digest",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		summary, err := a.digests.Summary(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), summary)
		return nil
	},
}
