// Package cli wires the ontomerge commands.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cognicore/ontomerge/internal/logger"
	"github.com/cognicore/ontomerge/internal/metrics"
	"github.com/cognicore/ontomerge/internal/reviews"
	"github.com/cognicore/ontomerge/pkg/ontomerge/config"
	"github.com/cognicore/ontomerge/pkg/ontomerge/consolidate"
	"github.com/cognicore/ontomerge/pkg/ontomerge/label"
	"github.com/cognicore/ontomerge/pkg/ontomerge/ontology"
	"github.com/cognicore/ontomerge/pkg/ontomerge/trend"
)

// Version is set at build time.
var Version = "dev"

type options struct {
	cfgFile  string
	logLevel string
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "ontomerge",
		Short: "Consolidate review topics into a de-duplicated ontology",
		Long: `ontomerge labels daily app reviews, merges proposed topics into a growing
set of canonical topics, and reports topic volume over time.

Examples:
  ontomerge daily --date 2024-06-01
  ontomerge trend --start 2024-06-01 --days 30 --out output/trend_report.csv
  ontomerge topics --json
  ontomerge alias "Mega Knight Balance Issues" "MK op"`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file (YAML)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	root.AddCommand(
		newDailyCmd(opts),
		newTrendCmd(opts),
		newTopicsCmd(opts),
		newAliasCmd(opts),
		newVersionCmd(),
	)
	return root
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ontomerge version %s\n", Version)
		},
	}
}

// env is everything a command needs for one run. The store is owned by the
// run and closed by close.
type env struct {
	cfg        config.Config
	components *config.Components
	log        logger.Logger
	metrics    *metrics.Collector
	store      *ontology.Store
	engine     *consolidate.Engine
}

func (o *options) open(ctx context.Context) (*env, error) {
	cfg, err := config.Load(o.cfgFile)
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	components, err := config.NewLoader(cfg).Load()
	if err != nil {
		return nil, err
	}

	backend, err := config.OpenBackend(ctx, cfg.Ontology)
	if err != nil {
		return nil, err
	}
	store, err := ontology.Open(ctx, backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	m := metrics.New()
	m.SetTopics(store.Len())
	log.Debug("ontology loaded",
		logger.String("backend", cfg.Ontology.Backend),
		logger.String("path", cfg.Ontology.Path),
		logger.Int("topics", store.Len()),
	)

	return &env{
		cfg:        cfg,
		components: components,
		log:        log,
		metrics:    m,
		store:      store,
		engine: consolidate.New(store, components.Synonyms,
			consolidate.WithLogger(log),
			consolidate.WithMetrics(m),
		),
	}, nil
}

func (e *env) aggregator() (*trend.Aggregator, error) {
	lab, err := config.NewLabeler(e.cfg.Labeler, e.components.Rules,
		label.WithLogger(e.log),
		label.WithMetrics(e.metrics),
	)
	if err != nil {
		return nil, err
	}
	return trend.New(e.engine, lab, reviewsSource(e),
		trend.WithLogger(e.log),
		trend.WithMetrics(e.metrics),
	), nil
}

func reviewsSource(e *env) *reviews.DirSource {
	return reviews.NewDirSource(e.cfg.Reviews.Dir, e.log)
}

func (e *env) close() error {
	var firstErr error
	if path := e.cfg.Metrics.Textfile; path != "" {
		if err := e.metrics.WriteTextfile(path); err != nil {
			e.log.Warn("metrics export failed", logger.String("path", path), logger.Error(err))
			firstErr = err
		}
	}
	if err := e.store.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	_ = e.log.Sync()
	return firstErr
}

// withEnv opens the run environment, calls fn and closes it.
func (o *options) withEnv(cmd *cobra.Command, fn func(ctx context.Context, e *env) error) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	e, err := o.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := e.close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(ctx, e)
}
