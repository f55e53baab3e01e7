package codev

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/robert-malhotra/go-metrology/internal/text"
	"github.com/robert-malhotra/go-metrology/metrology"
)

const inToMM = 25.4

// parseSpacing converts a spacing value with its unit token to
// millimeters. The unit vocabulary is closed; anything else is fatal
// rather than silently defaulted.
func parseSpacing(value, unit string, mmToken, inToken string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: grid spacing %q: %v", metrology.ErrParse, value, err)
	}
	switch strings.TrimSpace(unit) {
	case mmToken:
		return v, nil
	case inToken:
		return v * inToMM, nil
	default:
		return 0, fmt.Errorf("%w: spacing unit %q not among %q, %q", metrology.ErrUnsupportedFormat, strings.TrimSpace(unit), mmToken, inToken)
	}
}

// readGridBody parses the buffer rows following the header into the
// declared shape. The line scanner has already consumed the header, so
// the next non-blank lines are exactly the data rows.
func readGridBody(ls *text.LineScanner, rows, cols int, sep string) (*mat.Dense, error) {
	grid := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		line, err := ls.SkipBlank()
		if err != nil {
			return nil, fmt.Errorf("%w: grid row %d missing", metrology.ErrMalformed, i)
		}
		cells := strings.Split(strings.TrimSpace(line), sep)
		if len(cells) != cols {
			return nil, fmt.Errorf("%w: grid row %d has %d cells, header declares %d", metrology.ErrMalformed, i, len(cells), cols)
		}
		for j, cell := range cells {
			v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			if err != nil {
				return nil, fmt.Errorf("%w: grid cell (%d,%d) %q: %v", metrology.ErrParse, i, j, cell, err)
			}
			grid.Set(i, j, v)
		}
	}
	return grid, nil
}

// ReadPSF decodes a PSF buffer dump: the "PSF data:" label, a grid
// spacing line with explicit unit, an array size line, then a square
// numeric table separated by sep (typically "," or "\t").
//
// The returned spacing is in microns.
func ReadPSF(r io.Reader, sep string) (dx float64, grid *mat.Dense, err error) {
	ls := text.NewLineScanner(r)

	first, err := ls.SkipBlank()
	if err != nil {
		return 0, nil, err
	}
	if strings.TrimSpace(first) != "PSF data:" {
		return 0, nil, fmt.Errorf("%w: dump must begin with %q, got %q", metrology.ErrMalformed, "PSF data:", strings.TrimSpace(first))
	}

	line, err := ls.SeekPrefix("Grid spacing:")
	if err != nil {
		return 0, nil, err
	}
	parts := strings.Split(line, ",")
	if len(parts) < 3 {
		return 0, nil, fmt.Errorf("%w: grid spacing line %q needs value and unit columns", metrology.ErrMalformed, line)
	}
	mm, err := parseSpacing(parts[1], parts[2], "MM.", "IN.")
	if err != nil {
		return 0, nil, err
	}
	dx = mm * 1e3 // mm -> um

	line, err = ls.SeekPrefix("Array Size:")
	if err != nil {
		return 0, nil, err
	}
	parts = strings.Split(line, ",")
	if len(parts) < 2 {
		return 0, nil, fmt.Errorf("%w: array size line %q needs a value column", metrology.ErrMalformed, line)
	}
	dim, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, nil, fmt.Errorf("%w: array size %q: %v", metrology.ErrParse, parts[1], err)
	}

	grid, err = readGridBody(ls, dim, dim, sep)
	if err != nil {
		return 0, nil, err
	}
	return dx, grid, nil
}

// ReadPSFFile reads and decodes the PSF dump at path.
func ReadPSFFile(path string, sep string) (float64, *mat.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, nil, fmt.Errorf("opening psf file: %w", err)
	}
	defer f.Close()
	return ReadPSF(f, sep)
}
