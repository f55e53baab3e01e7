// Package text provides the shared text-parsing plumbing for the
// instrument formats: a keyword-table header parser, a label-seeking line
// scanner, and Windows-1252 report decoding.
package text

import (
	"fmt"
	"strings"

	"github.com/robert-malhotra/go-metrology/metrology"
)

// Keyword describes one recognized token of a header vocabulary. NArgs is
// how many following tokens the keyword consumes as its value; Apply
// receives exactly that many. Marker-only tokens have NArgs 0 and may
// leave Apply nil.
type Keyword struct {
	NArgs int
	Apply func(args []string) error
}

// ParseKeywords scans tokens left to right, dispatching on uppercased
// token identity against vocab. An unknown token is a metrology.ErrParse
// naming the token; silently skipping it would mask format drift between
// tool versions.
func ParseKeywords(tokens []string, vocab map[string]Keyword) error {
	i := 0
	for i < len(tokens) {
		kw, ok := vocab[strings.ToUpper(tokens[i])]
		if !ok {
			return fmt.Errorf("%w: header token %q not understood", metrology.ErrParse, tokens[i])
		}
		if i+1+kw.NArgs > len(tokens) {
			return fmt.Errorf("%w: header token %q missing its value", metrology.ErrParse, tokens[i])
		}
		if kw.Apply != nil {
			if err := kw.Apply(tokens[i+1 : i+1+kw.NArgs]); err != nil {
				return fmt.Errorf("%w: header token %q: %v", metrology.ErrParse, tokens[i], err)
			}
		}
		i += 1 + kw.NArgs
	}
	return nil
}
