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

// ReadBSP decodes a BSP buffer dump: the "BSP data:" label, the grid
// center offset, a grid spacing line carrying separate X and Y spacings
// with one unit, an array size line, then the numeric table.
//
// The returned spacings are in microns; the offset is in the dump's
// native units.
func ReadBSP(r io.Reader, sep string) (dx, dy float64, offset [2]float64, grid *mat.Dense, err error) {
	ls := text.NewLineScanner(r)

	first, err := ls.SkipBlank()
	if err != nil {
		return 0, 0, offset, nil, err
	}
	if strings.TrimSpace(first) != "BSP data:" {
		return 0, 0, offset, nil, fmt.Errorf("%w: dump must begin with %q, got %q", metrology.ErrMalformed, "BSP data:", strings.TrimSpace(first))
	}

	line, err := ls.SeekPrefix("Offset of grid center")
	if err != nil {
		return 0, 0, offset, nil, err
	}
	// The line reads "Offset of grid center ... :  (,X,Y,)".
	_, tail, found := strings.Cut(line, ":")
	if !found {
		return 0, 0, offset, nil, fmt.Errorf("%w: offset line %q has no ':'", metrology.ErrMalformed, line)
	}
	parts := strings.Split(tail, ",")
	if len(parts) < 4 {
		return 0, 0, offset, nil, fmt.Errorf("%w: offset line %q needs two value columns", metrology.ErrMalformed, line)
	}
	for i, cell := range parts[1:3] {
		v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
		if err != nil {
			return 0, 0, offset, nil, fmt.Errorf("%w: grid offset %q: %v", metrology.ErrParse, cell, err)
		}
		offset[i] = v
	}

	line, err = ls.SeekPrefix("Grid spacing:")
	if err != nil {
		return 0, 0, offset, nil, err
	}
	parts = strings.Split(line, ",")
	if len(parts) < 4 {
		return 0, 0, offset, nil, fmt.Errorf("%w: grid spacing line %q needs X, unit, and Y columns", metrology.ErrMalformed, line)
	}
	xmm, err := parseSpacing(parts[1], parts[2], "mm", "in")
	if err != nil {
		return 0, 0, offset, nil, err
	}
	ymm, err := parseSpacing(parts[3], parts[2], "mm", "in")
	if err != nil {
		return 0, 0, offset, nil, err
	}
	dx, dy = xmm*1e3, ymm*1e3 // mm -> um

	line, err = ls.SeekPrefix("Array Size:")
	if err != nil {
		return 0, 0, offset, nil, err
	}
	parts = strings.Split(line, ",")
	if len(parts) < 3 {
		return 0, 0, offset, nil, fmt.Errorf("%w: array size line %q needs two value columns", metrology.ErrMalformed, line)
	}
	rows, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, offset, nil, fmt.Errorf("%w: array size %q: %v", metrology.ErrParse, parts[1], err)
	}
	cols, err := strconv.Atoi(strings.TrimSpace(parts[2]))
	if err != nil {
		return 0, 0, offset, nil, fmt.Errorf("%w: array size %q: %v", metrology.ErrParse, parts[2], err)
	}

	grid, err = readGridBody(ls, rows, cols, sep)
	if err != nil {
		return 0, 0, offset, nil, err
	}
	return dx, dy, offset, grid, nil
}

// ReadBSPFile reads and decodes the BSP dump at path.
func ReadBSPFile(path string, sep string) (float64, float64, [2]float64, *mat.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, [2]float64{}, nil, fmt.Errorf("opening bsp file: %w", err)
	}
	defer f.Close()
	return ReadBSP(f, sep)
}
