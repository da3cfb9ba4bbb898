package actions

import (
	"bufio"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

//go:embed queries.txt
var defaultQueries string

// ErrNoQueries is returned when a query source holds no usable phrase.
var ErrNoQueries = errors.New("no search queries available")

// QuerySource supplies the phrases typed into the site's search form.
type QuerySource interface {
	Queries() ([]string, error)
}

// FileQueries reads a newline-delimited phrase list from disk on every call,
// so edits to the file are picked up by the next browse.
type FileQueries string

// Queries implements QuerySource.
func (f FileQueries) Queries() ([]string, error) {
	file, err := os.Open(string(f))
	if err != nil {
		return nil, fmt.Errorf("could not open queries file: %w", err)
	}
	defer file.Close()
	return parseQueries(file)
}

// StaticQueries is a fixed in-memory phrase list.
type StaticQueries []string

// Queries implements QuerySource.
func (s StaticQueries) Queries() ([]string, error) {
	if len(s) == 0 {
		return nil, ErrNoQueries
	}
	return s, nil
}

// NewQuerySource returns a source reading path, or the built-in list when
// path is empty.
func NewQuerySource(path string) QuerySource {
	if path == "" {
		q, _ := parseQueries(strings.NewReader(defaultQueries))
		return StaticQueries(q)
	}
	return FileQueries(path)
}

// parseQueries keeps one phrase per line, trimming trailing whitespace and
// skipping blank lines.
func parseQueries(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), " \t\r")
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read queries: %w", err)
	}
	if len(out) == 0 {
		return nil, ErrNoQueries
	}
	return out, nil
}
