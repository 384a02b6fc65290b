package config

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cognicore/ontomerge/internal/llm"
	"github.com/cognicore/ontomerge/pkg/ontomerge/internalerr"
	"github.com/cognicore/ontomerge/pkg/ontomerge/label"
	"github.com/cognicore/ontomerge/pkg/ontomerge/ontology"
	"github.com/cognicore/ontomerge/pkg/ontomerge/ontology/jsonfile"
	"github.com/cognicore/ontomerge/pkg/ontomerge/ontology/memstore"
	"github.com/cognicore/ontomerge/pkg/ontomerge/ontology/sqlite"
	"github.com/cognicore/ontomerge/pkg/ontomerge/synonyms"
)

// Loader loads the data files and constructs matching components.
type Loader struct {
	SynonymsPath string
	RulesPath    string
}

// Components holds the loaded data tables.
type Components struct {
	Synonyms *synonyms.Table
	Rules    label.RuleSet
}

// NewLoader returns a loader for the data files named in cfg.
func NewLoader(cfg Config) Loader {
	return Loader{SynonymsPath: cfg.Synonyms, RulesPath: cfg.Rules}
}

// Load reads the configured files. An empty path selects the built-in table.
func (l Loader) Load() (*Components, error) {
	comp := &Components{}

	if l.SynonymsPath != "" {
		table, err := synonyms.LoadYAML(l.SynonymsPath)
		if err != nil {
			return nil, fmt.Errorf("load synonyms: %w", err)
		}
		comp.Synonyms = table
	} else {
		comp.Synonyms = synonyms.Default()
	}

	if l.RulesPath != "" {
		rules, err := label.LoadRulesYAML(l.RulesPath)
		if err != nil {
			return nil, fmt.Errorf("load rules: %w", err)
		}
		comp.Rules = rules
	} else {
		comp.Rules = label.DefaultRules()
	}

	return comp, nil
}

// OpenBackend opens the configured ontology backend.
func OpenBackend(ctx context.Context, cfg OntologyConfig) (ontology.Backend, error) {
	switch cfg.Backend {
	case BackendJSON, "":
		return jsonfile.New(cfg.Path), nil
	case BackendSQLite:
		b, err := sqlite.Open(ctx, cfg.Path)
		if err != nil {
			return nil, err
		}
		return b, nil
	case BackendMemory:
		return memstore.New(), nil
	default:
		return nil, fmt.Errorf("ontology backend %q: %w", cfg.Backend, internalerr.ErrInvalidConfig)
	}
}

// NewLabeler builds the configured labeler. rules is used by the rule
// labeler only.
func NewLabeler(cfg LabelerConfig, rules label.RuleSet, opts ...label.Option) (label.Labeler, error) {
	switch cfg.Kind {
	case LabelerRules, "":
		return label.NewRuleLabeler(rules, opts...)
	case LabelerLLM:
		client := &llm.Client{
			BaseURL:     cfg.BaseURL,
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Limiter:     llm.NewLimiter(cfg.RPS, cfg.Burst),
		}
		if cfg.Timeout > 0 {
			client.HTTPClient = &http.Client{Timeout: cfg.Timeout}
		}
		return label.NewLLMLabeler(client, opts...), nil
	default:
		return nil, fmt.Errorf("labeler kind %q: %w", cfg.Kind, internalerr.ErrInvalidConfig)
	}
}
