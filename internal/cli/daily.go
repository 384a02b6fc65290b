package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cognicore/ontomerge/pkg/ontomerge/internalerr"
	"github.com/cognicore/ontomerge/pkg/ontomerge/ontology"
)

func newDailyCmd(opts *options) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "daily",
		Short: "Label and consolidate one day's reviews",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			day := time.Now()
			if date != "" {
				var err error
				if day, err = ontology.ParseDate(date); err != nil {
					return err
				}
			}
			return opts.withEnv(cmd, func(ctx context.Context, e *env) error {
				agg, err := e.aggregator()
				if err != nil {
					return err
				}
				src := reviewsSource(e)
				items, ok, err := src.Reviews(ctx, day)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("no reviews at %s: %w", src.Path(day), internalerr.ErrNotFound)
				}

				res, err := agg.RunBucket(ctx, day, items)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "--- DAILY TOPIC COUNTS (%s) ---\n", day.Format(ontology.DateLayout))
				for _, c := range res.Counts {
					fmt.Fprintf(out, "%s: %d\n", c.Topic, c.Count)
				}
				fmt.Fprintln(out, "\n--- CONSOLIDATION ACTIONS ---")
				for _, d := range res.Batch.Decisions {
					if d.AliasRejected {
						fmt.Fprintf(out, "%s [alias rejected]\n", d)
						continue
					}
					fmt.Fprintln(out, d)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "batch date YYYY-MM-DD (default today)")
	return cmd
}
