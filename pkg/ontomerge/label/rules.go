package label

import (
	"context"
	"fmt"
	"os"
	"strings"

	ahocorasick "github.com/cloudflare/ahocorasick"
	"gopkg.in/yaml.v3"

	"github.com/cognicore/ontomerge/internal/logger"
	"github.com/cognicore/ontomerge/internal/metrics"
	"github.com/cognicore/ontomerge/pkg/ontomerge/internalerr"
)

// Rule maps keyword triggers to a topic.
type Rule struct {
	Name       string   `yaml:"name"`
	Keywords   []string `yaml:"keywords"`
	Topic      string   `yaml:"topic"`
	Confidence float64  `yaml:"confidence"`
}

// RuleSet is an ordered rule table plus the topic used when nothing matches.
type RuleSet struct {
	Rules    []Rule `yaml:"rules"`
	Fallback Rule   `yaml:"fallback"`
}

// DefaultRules is the built-in offline rule table.
func DefaultRules() RuleSet {
	return RuleSet{
		Rules: []Rule{
			{Name: "mega-knight", Keywords: []string{"mega knight", "mk"}, Topic: "Mega Knight Balance Issues", Confidence: 0.9},
			{Name: "goblin-queen", Keywords: []string{"goblin queen"}, Topic: "Goblin Queen's Journey Feedback", Confidence: 0.85},
			{Name: "stability", Keywords: []string{"crash", "bug", "freeze"}, Topic: "Game Stability Issues", Confidence: 0.8},
		},
		Fallback: Rule{Name: "general", Topic: "General Gameplay Feedback", Confidence: 0.6},
	}
}

// LoadRulesYAML reads a rule set from a YAML file.
func LoadRulesYAML(path string) (RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RuleSet{}, fmt.Errorf("load rules %s: %w", path, err)
	}
	return ParseRules(data)
}

// ParseRules decodes and validates a YAML rule set.
func ParseRules(data []byte) (RuleSet, error) {
	var set RuleSet
	if err := yaml.Unmarshal(data, &set); err != nil {
		return RuleSet{}, fmt.Errorf("parse rules: %v: %w", err, internalerr.ErrInvalidConfig)
	}
	if err := set.Validate(); err != nil {
		return RuleSet{}, err
	}
	return set, nil
}

// Validate checks every rule and the fallback.
func (s RuleSet) Validate() error {
	for i, r := range s.Rules {
		if err := r.validate(); err != nil {
			return fmt.Errorf("rule %d (%s): %w", i, r.Name, err)
		}
		if len(r.Keywords) == 0 {
			return fmt.Errorf("rule %d (%s): no keywords: %w", i, r.Name, internalerr.ErrInvalidConfig)
		}
	}
	if err := s.Fallback.validate(); err != nil {
		return fmt.Errorf("fallback: %w", err)
	}
	return nil
}

func (r Rule) validate() error {
	if strings.TrimSpace(r.Topic) == "" {
		return fmt.Errorf("empty topic: %w", internalerr.ErrInvalidConfig)
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return fmt.Errorf("confidence %v outside [0,1]: %w", r.Confidence, internalerr.ErrInvalidConfig)
	}
	return nil
}

// RuleLabeler labels reviews with the first rule, in table order, that has a
// keyword occurring in the lowercased review text. Keywords match as plain
// substrings.
type RuleLabeler struct {
	rules    []Rule
	fallback Rule

	matcher  *ahocorasick.Matcher
	keywords []string
	// owner[i] is the index of the first rule listing keywords[i].
	owner []int

	log     logger.Logger
	metrics *metrics.Collector
}

// NewRuleLabeler builds the keyword automaton for set.
func NewRuleLabeler(set RuleSet, opts ...Option) (*RuleLabeler, error) {
	if err := set.Validate(); err != nil {
		return nil, err
	}
	o := buildOptions(opts)
	l := &RuleLabeler{
		rules:    append([]Rule(nil), set.Rules...),
		fallback: set.Fallback,
		log:      o.log,
		metrics:  o.metrics,
	}

	seen := make(map[string]bool)
	for i, r := range l.rules {
		for _, kw := range r.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw == "" || seen[kw] {
				continue
			}
			seen[kw] = true
			l.keywords = append(l.keywords, kw)
			l.owner = append(l.owner, i)
		}
	}
	if len(l.keywords) > 0 {
		l.matcher = ahocorasick.NewStringMatcher(l.keywords)
	}
	return l, nil
}

// Label implements Labeler.
func (l *RuleLabeler) Label(ctx context.Context, text string, known []string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	rule := l.fallback
	outcome := "fallback"
	if idx, ok := l.firstRule(text); ok {
		rule = l.rules[idx]
		outcome = "matched"
	}
	l.metrics.ObserveLabel("rules", outcome)
	l.log.Debug("review labeled",
		logger.String("rule", rule.Name),
		logger.String("topic", rule.Topic),
	)
	return Result{
		Decision:   decisionFor(rule.Topic, known),
		Topic:      rule.Topic,
		Confidence: rule.Confidence,
	}, nil
}

func (l *RuleLabeler) firstRule(text string) (int, bool) {
	if l.matcher == nil {
		return 0, false
	}
	hits := l.matcher.Match([]byte(strings.ToLower(text)))
	best := -1
	for _, h := range hits {
		if h >= len(l.owner) {
			continue
		}
		if best < 0 || l.owner[h] < best {
			best = l.owner[h]
		}
	}
	return best, best >= 0
}

// Rules returns a copy of the rule table.
func (l *RuleLabeler) Rules() RuleSet {
	return RuleSet{Rules: append([]Rule(nil), l.rules...), Fallback: l.fallback}
}
