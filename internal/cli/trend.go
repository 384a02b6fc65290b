package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cognicore/ontomerge/pkg/ontomerge/ontology"
	"github.com/cognicore/ontomerge/pkg/ontomerge/trend"
)

func newTrendCmd(opts *options) *cobra.Command {
	var (
		start string
		days  int
		out   string
	)
	cmd := &cobra.Command{
		Use:   "trend",
		Short: "Build the topic trend report over a date window",
		Long: `Process every daily batch from --start to --start+--days inclusive and
write a CSV with one row per canonical topic and one column per day.
Without --start the window ends today.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withEnv(cmd, func(ctx context.Context, e *env) error {
				if !cmd.Flags().Changed("days") {
					days = e.cfg.Trend.Days
				}
				if out == "" {
					out = e.cfg.Trend.Output
				}

				w := trend.Window{Days: days}
				if start != "" {
					var err error
					if w.Start, err = ontology.ParseDate(start); err != nil {
						return err
					}
				} else {
					w.Start = time.Now().AddDate(0, 0, -days)
				}

				agg, err := e.aggregator()
				if err != nil {
					return err
				}
				report, err := agg.Run(ctx, w)
				if err != nil {
					return err
				}
				if err := report.WriteFile(out); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Trend report written to %s (%d topics, %d days)\n",
					out, len(report.Rows), len(report.Buckets))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "first bucket date YYYY-MM-DD")
	cmd.Flags().IntVar(&days, "days", trend.DefaultWindowDays, "window length in days after start")
	cmd.Flags().StringVar(&out, "out", "", "CSV output path (default from config)")
	return cmd
}
