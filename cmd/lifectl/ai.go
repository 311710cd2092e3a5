package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"lifedash/internal/analytics"
	"lifedash/internal/client"
)

func (a *app) reportCmd() *cobra.Command {
	var (
		period     string
		start, end string
		width      int
		raw        bool
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Ask the AI for a report on a period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if start == "" && end == "" {
				if _, err := analytics.ParsePeriod(period); err != nil {
					return err
				}
			}
			api, err := a.authed()
			if err != nil {
				return err
			}
			text, err := api.Report(cmd.Context(), client.ReportRange{Period: period, StartDate: start, EndDate: end})
			if err != nil {
				return err
			}
			if raw {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), renderReport(text, width))
			return err
		},
	}
	cmd.Flags().StringVar(&period, "period", string(analytics.Week), "week, month or year")
	cmd.Flags().StringVar(&start, "start", "", "custom range start (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "custom range end (YYYY-MM-DD)")
	cmd.Flags().IntVar(&width, "width", 80, "wrap width")
	cmd.Flags().BoolVar(&raw, "raw", false, "print the markdown without rendering")
	return cmd
}

func (a *app) summaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Ask the AI to reflect on today",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := a.authed()
			if err != nil {
				return err
			}
			text, err := api.Summary(cmd.Context())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
			return err
		},
	}
}
