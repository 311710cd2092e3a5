package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"lifedash/internal/aggregator"
	"lifedash/internal/analytics"
)

func (a *app) exportCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Download every entity as one LifeData document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := a.authed()
			if err != nil {
				return err
			}
			ld, err := api.Export(cmd.Context())
			if err != nil {
				return err
			}
			raw, err := json.MarshalIndent(ld, "", "  ")
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(raw))
				return err
			}
			if err := os.WriteFile(output, append(raw, '\n'), 0o600); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported to %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	return cmd
}

func (a *app) importCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Replace all server data with a LifeData document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := a.authed()
			if err != nil {
				return err
			}
			raw, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read %s: %w", file, err)
			}
			counts, err := api.Import(cmd.Context(), raw)
			if err != nil {
				return err
			}
			keys := make([]string, 0, len(counts))
			for k := range counts {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, k := range keys {
				fmt.Fprintf(w, "%s\t%d\n", k, counts[k])
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "LifeData JSON file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func (a *app) applyRoutineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "apply-routine",
		Short: "Create today's remaining routine entries as tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := a.authed()
			if err != nil {
				return err
			}
			loc, err := a.location()
			if err != nil {
				return err
			}
			agg := aggregator.New(api, aggregator.WithLocation(loc), aggregator.WithClock(a.now))
			if err := agg.Load(cmd.Context()); err != nil {
				return err
			}
			n, err := agg.ApplyRoutineForToday(cmd.Context())
			if err != nil {
				return fmt.Errorf("created %d tasks before failing: %w", n, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %d tasks from today's routine\n", n)
			return nil
		},
	}
}

func (a *app) statsCmd() *cobra.Command {
	var period string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show the headline metrics of a period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := analytics.ParsePeriod(period)
			if err != nil {
				return err
			}
			api, err := a.authed()
			if err != nil {
				return err
			}
			loc, err := a.location()
			if err != nil {
				return err
			}
			agg := aggregator.New(api, aggregator.WithLocation(loc), aggregator.WithClock(a.now))
			if err := agg.Load(cmd.Context()); err != nil {
				return err
			}
			now := a.now()
			start, end, err := analytics.PeriodRange(p, now, loc)
			if err != nil {
				return err
			}
			ld := agg.Data()
			report := analytics.Summarize(ld, start, end, loc)

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}

			km := report.KeyMetrics()
			monthly := analytics.MonthlyFinance(ld, now, loc)
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "Period\t%s to %s\n", start.Format("2006-01-02"), end.Format("2006-01-02"))
			fmt.Fprintf(w, "Net balance\t%s\n", km.NetBalance)
			fmt.Fprintf(w, "Average mood\t%s\n", km.AverageMood)
			fmt.Fprintf(w, "Top habit\t%s\n", km.TopHabit)
			fmt.Fprintf(w, "Time tracked\t%s\n", km.TimeTracked)
			fmt.Fprintf(w, "This month\t%s in, %s out\n",
				analytics.FormatAmount(monthly.TotalIncome), analytics.FormatAmount(monthly.TotalExpenses))
			for _, h := range ld.Habits {
				fmt.Fprintf(w, "Streak: %s\t%d days\n", h.Name, analytics.CurrentStreak(h, now, loc))
			}
			for _, g := range report.Goals {
				fmt.Fprintf(w, "Goal: %s\t%d%%\n", g.Title, g.Progress)
			}
			if upcoming := analytics.UpcomingTasks(ld, now, loc); len(upcoming) > 0 {
				fmt.Fprintf(w, "Next task\t%s (%s)\n", upcoming[0].Text, upcoming[0].DueDate)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&period, "period", string(analytics.Week), "week, month or year")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full report as JSON")
	return cmd
}
