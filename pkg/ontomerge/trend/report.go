package trend

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Row is one topic's counts, aligned with Report.Buckets.
type Row struct {
	Topic  string
	Counts []int
}

// Total returns the sum of the row's counts.
func (r Row) Total() int {
	n := 0
	for _, c := range r.Counts {
		n += c
	}
	return n
}

// Report is a dense topic by bucket table. Rows appear in order of first
// observation and every row has one count per bucket.
type Report struct {
	Buckets []time.Time
	Rows    []Row

	index map[string]int
}

// NewReport returns an empty report over buckets.
func NewReport(buckets []time.Time) *Report {
	return &Report{Buckets: buckets, index: make(map[string]int)}
}

func (r *Report) add(bucket int, topic string, n int) {
	if r.index == nil {
		r.index = make(map[string]int)
	}
	i, ok := r.index[topic]
	if !ok {
		i = len(r.Rows)
		r.index[topic] = i
		r.Rows = append(r.Rows, Row{Topic: topic, Counts: make([]int, len(r.Buckets))})
	}
	r.Rows[i].Counts[bucket] += n
}

// Row returns the row for topic.
func (r *Report) Row(topic string) (Row, bool) {
	for _, row := range r.Rows {
		if row.Topic == topic {
			return row, true
		}
	}
	return Row{}, false
}

// Header returns the CSV header: Topic followed by one date per bucket.
func (r *Report) Header() []string {
	header := make([]string, 0, len(r.Buckets)+1)
	header = append(header, "Topic")
	for _, b := range r.Buckets {
		header = append(header, b.Format("2006-01-02"))
	}
	return header
}

// WriteCSV renders the report as CSV.
func (r *Report) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(r.Header()); err != nil {
		return err
	}
	record := make([]string, len(r.Buckets)+1)
	for _, row := range r.Rows {
		record[0] = row.Topic
		for i, c := range row.Counts {
			record[i+1] = strconv.Itoa(c)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile writes the CSV report to path, creating parent directories.
func (r *Report) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := r.WriteCSV(f); err != nil {
		f.Close()
		return fmt.Errorf("write report: %w", err)
	}
	return f.Close()
}
