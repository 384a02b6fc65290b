// Package reviews loads daily review batches from disk.
//
// A batch for day D lives in <dir>/<YYYY-MM-DD>.json as a JSON array, or in
// <dir>/<YYYY-MM-DD>.jsonl with one review per line.
package reviews

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/cognicore/ontomerge/internal/logger"
	"github.com/cognicore/ontomerge/pkg/ontomerge/internalerr"
)

// Review is one user review.
type Review struct {
	ID      string  `json:"id,omitempty"`
	Content string  `json:"content"`
	Rating  float64 `json:"rating,omitempty"`
	Author  string  `json:"author,omitempty"`
}

// DecodeJSON reads a JSON array of reviews.
func DecodeJSON(r io.Reader) ([]Review, error) {
	var items []Review
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		return nil, fmt.Errorf("decode reviews: %v: %w", err, internalerr.ErrInvalidInput)
	}
	for i := range items {
		items[i].Content = StripHTML(items[i].Content)
	}
	return items, nil
}

// DecodeJSONL reads one review per line. Malformed lines are skipped with a
// warning.
func DecodeJSONL(r io.Reader, log logger.Logger) ([]Review, error) {
	if log == nil {
		log = logger.NewNop()
	}
	var items []Review
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}
		var item Review
		if err := json.Unmarshal(text, &item); err != nil {
			log.Warn("skipping malformed review", logger.Int("line", line), logger.Error(err))
			continue
		}
		item.Content = StripHTML(item.Content)
		items = append(items, item)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read reviews: %w", err)
	}
	return items, nil
}

// StripHTML reduces markup to its text content with whitespace collapsed.
// Text without markup is returned with whitespace collapsed only.
func StripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.Join(strings.Fields(s), " ")
	}
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return strings.Join(strings.Fields(s), " ")
	}

	var buf strings.Builder
	var extractText func(*html.Node)
	extractText = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			buf.WriteString(n.Data)
		case html.ElementNode:
			if n.Data == "script" || n.Data == "style" {
				return
			}
			// Separate words across tags such as <br> and <p>.
			buf.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extractText(c)
		}
	}
	extractText(doc)

	return strings.Join(strings.Fields(buf.String()), " ")
}

// DirSource serves daily batches from a directory.
type DirSource struct {
	Dir string
	Log logger.Logger
}

// NewDirSource returns a source reading from dir.
func NewDirSource(dir string, log logger.Logger) *DirSource {
	if log == nil {
		log = logger.NewNop()
	}
	return &DirSource{Dir: dir, Log: log}
}

// Path returns the JSON batch path for day.
func (s *DirSource) Path(day time.Time) string {
	return filepath.Join(s.Dir, day.Format("2006-01-02")+".json")
}

// Reviews returns the batch for day. ok is false when no batch file exists.
func (s *DirSource) Reviews(ctx context.Context, day time.Time) ([]Review, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	path := s.Path(day)
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		path += "l"
		f, err = os.Open(path)
	}
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("open reviews: %w", err)
	}
	defer f.Close()

	var items []Review
	if strings.HasSuffix(path, ".jsonl") {
		items, err = DecodeJSONL(f, s.log().With(logger.String("path", path)))
	} else {
		items, err = DecodeJSON(f)
	}
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", path, err)
	}
	return items, true, nil
}

func (s *DirSource) log() logger.Logger {
	if s.Log == nil {
		return logger.NewNop()
	}
	return s.Log
}
