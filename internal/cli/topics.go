package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cognicore/ontomerge/pkg/ontomerge/internalerr"
	"github.com/cognicore/ontomerge/pkg/ontomerge/ontology"
)

func newTopicsCmd(opts *options) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "topics",
		Short: "List canonical topics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withEnv(cmd, func(ctx context.Context, e *env) error {
				snap := e.store.Snapshot()
				out := cmd.OutOrStdout()
				if asJSON {
					data, err := json.MarshalIndent(snap, "", "  ")
					if err != nil {
						return err
					}
					_, err = fmt.Fprintln(out, string(data))
					return err
				}

				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "TOPIC\tFIRST SEEN\tALIASES")
				for _, t := range snap.Topics {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", t.Name, t.FirstSeen.Format(ontology.DateLayout), strings.Join(t.Aliases, "; "))
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the ontology as JSON")
	return cmd
}

func newAliasCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "alias <topic> <alias>",
		Short: "Record an alias for a canonical topic",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			topic, alias := args[0], args[1]
			return opts.withEnv(cmd, func(ctx context.Context, e *env) error {
				if !e.store.TopicExists(topic) {
					return fmt.Errorf("topic %q: %w", topic, internalerr.ErrNotFound)
				}
				if err := e.store.AddAlias(topic, alias); err != nil {
					return err
				}
				if err := e.store.Persist(ctx); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%q -> %q\n", alias, topic)
				return nil
			})
		},
	}
}
