package label

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/cognicore/ontomerge/internal/logger"
	"github.com/cognicore/ontomerge/internal/metrics"
	"github.com/cognicore/ontomerge/pkg/ontomerge/internalerr"
)

// SystemPrompt instructs the model to answer with a single JSON object.
const SystemPrompt = `You are a Categorization Agent for app review analysis.

Your task:
- Read a single app review
- Decide whether it belongs to an EXISTING topic
- OR if it introduces a NEW topic

Rules:
1. Prefer existing topics when meaning overlaps.
2. Recognize abbreviations and slang (e.g., MK = Mega Knight).
3. If a review discusses a newly introduced feature, propose a new topic.
4. Output ONLY valid JSON.

JSON format:
{
  "decision": "existing" or "new",
  "topic": "<topic_name>",
  "confidence": 0.0 to 1.0
}`

// Chatter sends a system and user message pair to a chat model.
type Chatter interface {
	Chat(ctx context.Context, system, user string) (string, error)
}

// LLMLabeler asks a chat model for a label. Replies that are not exactly one
// valid JSON result are rejected with ErrMalformedLabel; no default topic is
// substituted.
type LLMLabeler struct {
	client  Chatter
	log     logger.Logger
	metrics *metrics.Collector
}

// NewLLMLabeler wraps client.
func NewLLMLabeler(client Chatter, opts ...Option) *LLMLabeler {
	o := buildOptions(opts)
	return &LLMLabeler{client: client, log: o.log, metrics: o.metrics}
}

// Label implements Labeler.
func (l *LLMLabeler) Label(ctx context.Context, text string, known []string) (Result, error) {
	if l.client == nil {
		return Result{}, fmt.Errorf("llm labeler: no client configured: %w", internalerr.ErrInvalidConfig)
	}
	reply, err := l.client.Chat(ctx, SystemPrompt, userPrompt(text, known))
	if err != nil {
		l.metrics.ObserveLabel("llm", "error")
		return Result{}, fmt.Errorf("llm labeler: %w", err)
	}
	res, err := ParseResult(reply)
	if err != nil {
		l.metrics.ObserveLabel("llm", "malformed")
		l.log.Warn("malformed label reply", logger.String("reply", reply), logger.Error(err))
		return Result{}, fmt.Errorf("llm labeler: %w", err)
	}
	l.metrics.ObserveLabel("llm", "ok")
	return res, nil
}

// ParseResult decodes a model reply into a validated Result.
func ParseResult(reply string) (Result, error) {
	dec := json.NewDecoder(strings.NewReader(strings.TrimSpace(reply)))
	var res Result
	if err := dec.Decode(&res); err != nil {
		return Result{}, fmt.Errorf("invalid JSON %q: %v: %w", reply, err, internalerr.ErrMalformedLabel)
	}
	if _, err := dec.Token(); err != io.EOF {
		return Result{}, fmt.Errorf("trailing data after JSON object: %w", internalerr.ErrMalformedLabel)
	}
	if err := res.Validate(); err != nil {
		return Result{}, err
	}
	return res, nil
}

func userPrompt(text string, known []string) string {
	if known == nil {
		known = []string{}
	}
	topics, _ := json.Marshal(known)
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Review:\n%q\n\nExisting Topics:\n%s\n", text, topics)
	return buf.String()
}
