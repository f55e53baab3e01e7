package text

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/robert-malhotra/go-metrology/metrology"
)

// LineScanner walks a line-oriented text source while counting the lines
// it consumes, so a bulk numeric-table parser can be handed the exact
// offset of the first data row.
type LineScanner struct {
	s        *bufio.Scanner
	consumed int
}

// NewLineScanner wraps r.
func NewLineScanner(r io.Reader) *LineScanner {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &LineScanner{s: s}
}

// Consumed returns how many lines have been read so far.
func (ls *LineScanner) Consumed() int {
	return ls.consumed
}

// Next reads one line. Reaching the end of the source is a
// metrology.ErrMalformed, since every caller is looking for something
// specific.
func (ls *LineScanner) Next() (string, error) {
	if !ls.s.Scan() {
		if err := ls.s.Err(); err != nil {
			return "", err
		}
		return "", fmt.Errorf("%w: unexpected end of input", metrology.ErrMalformed)
	}
	ls.consumed++
	return ls.s.Text(), nil
}

// SkipBlank reads past blank lines and returns the first non-blank line.
func (ls *LineScanner) SkipBlank() (string, error) {
	for {
		line, err := ls.Next()
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(line) != "" {
			return line, nil
		}
	}
}

// SeekPrefix reads forward until a line whose left-trimmed text begins
// with prefix, and returns that line. The labels these files use appear
// in a fixed required order, so a missing label is a fatal
// metrology.ErrMalformed naming it.
func (ls *LineScanner) SeekPrefix(prefix string) (string, error) {
	for ls.s.Scan() {
		ls.consumed++
		line := ls.s.Text()
		if strings.HasPrefix(strings.TrimLeft(line, " \t"), prefix) {
			return line, nil
		}
	}
	if err := ls.s.Err(); err != nil {
		return "", err
	}
	return "", fmt.Errorf("%w: label %q not found", metrology.ErrMalformed, prefix)
}
