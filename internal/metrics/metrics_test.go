package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// value returns the gathered value of the metric family name whose labels
// include all of want.
func value(t *testing.T, c *Collector, name string, want map[string]string) float64 {
	t.Helper()
	families, err := c.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	metrics:
		for _, m := range mf.GetMetric() {
			labels := make(map[string]string)
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			for k, v := range want {
				if labels[k] != v {
					continue metrics
				}
			}
			if m.GetCounter() != nil {
				return m.GetCounter().GetValue()
			}
			return m.GetGauge().GetValue()
		}
	}
	return 0
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	c.ObserveDecision("merged", "exact")
	c.ObserveAliasConflict()
	c.SetTopics(3)
	c.ObserveLabel("rules", "ok")
	c.AddReviews(2)
	c.ObserveMissingBucket()
	if err := c.WriteTextfile("/nonexistent/metrics.prom"); err != nil {
		t.Fatalf("nil collector should not write: %v", err)
	}
	if c.Registry() != nil {
		t.Fatal("nil collector has no registry")
	}
}

func TestCounters(t *testing.T) {
	c := New()
	c.ObserveDecision("merged", "synonym")
	c.ObserveDecision("merged", "synonym")
	c.ObserveDecision("created", "none")
	c.ObserveAliasConflict()
	c.SetTopics(7)
	c.AddReviews(5)
	c.AddReviews(-1)

	if got := value(t, c, "ontomerge_decisions_total", map[string]string{"action": "merged", "match": "synonym"}); got != 2 {
		t.Errorf("merged/synonym = %v, want 2", got)
	}
	if got := value(t, c, "ontomerge_decisions_total", map[string]string{"action": "created", "match": "none"}); got != 1 {
		t.Errorf("created/none = %v, want 1", got)
	}
	if got := value(t, c, "ontomerge_alias_conflicts_total", nil); got != 1 {
		t.Errorf("alias conflicts = %v, want 1", got)
	}
	if got := value(t, c, "ontomerge_topics", nil); got != 7 {
		t.Errorf("topics = %v, want 7", got)
	}
	if got := value(t, c, "ontomerge_reviews_processed_total", nil); got != 5 {
		t.Errorf("reviews = %v, want 5", got)
	}
}

func TestWriteTextfile(t *testing.T) {
	c := New()
	c.ObserveLabel("llm", "error")

	path := filepath.Join(t.TempDir(), "ontomerge.prom")
	if err := c.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), `ontomerge_label_requests_total{labeler="llm",outcome="error"} 1`) {
		t.Errorf("unexpected textfile contents:\n%s", data)
	}
}
