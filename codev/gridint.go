// Package codev reads and writes Code V interchange files: grid-sag INT
// files, Zernike-coefficient INT files, and PSF/BSP buffer dumps.
package codev

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/robert-malhotra/go-metrology/internal/text"
	"github.com/robert-malhotra/go-metrology/metrology"
)

// GridKind declares what a grid INT file represents.
type GridKind string

const (
	// KindSurface is surface figure error.
	KindSurface GridKind = "SUR"
	// KindWavefront is wavefront error.
	KindWavefront GridKind = "WFR"
	// KindFilter is intensity apodization.
	KindFilter GridKind = "FIL"
)

// NoData is the sentinel stamped on cells with no valid measurement.
const NoData = -32768

// maxRowWidth caps values per body row so no line exceeds the format's
// per-line character ceiling (4096 characters at up to 7 per value).
const maxRowWidth = 585

// GridMeta is the header metadata of a grid INT file.
type GridMeta struct {
	Title string
	// WavelengthUm is the WVL header value in microns.
	WavelengthUm float64
	Kind         GridKind
}

// rowWidth returns the largest width <= maxRowWidth that divides n
// evenly.
func rowWidth(n int) int {
	w := maxRowWidth
	for n%w != 0 {
		w--
	}
	return w
}

// WriteGridInt encodes grid (nanometers, NaN = invalid) as a grid INT
// file.
//
// The number format is 16-bit signed with no offset, so the encoder
// maximizes dynamic range with a single linear scale: each data extreme
// of its own sign contributes a candidate (-32767/min for a negative
// minimum, 32767/max for a positive maximum) and the smaller, more
// constraining one binds. No valid cell can produce a code outside
// [-32767, 32767].
func WriteGridInt(w io.Writer, grid *mat.Dense, kind GridKind, comment string) error {
	switch kind {
	case KindSurface, KindWavefront, KindFilter:
	default:
		return fmt.Errorf("%w: grid kind %q not among SUR, WFR, FIL", metrology.ErrInvalidArgument, kind)
	}
	if comment == "" {
		comment = "CV grid sag data"
	}

	rows, cols := grid.Dims()

	// nm -> um, then find the scale the more constraining extreme allows.
	um := mat.NewDense(rows, cols, nil)
	um.Scale(1e-3, grid)
	mn, mx, ok := metrology.NaNAwareMinMax(um)
	if !ok {
		return fmt.Errorf("%w: grid has no valid cells", metrology.ErrInvalidArgument)
	}
	// Each extreme constrains the scale only on its own sign; a grid
	// that does not span zero is bound by one side alone.
	scale := math.Inf(1)
	if mn < 0 {
		scale = -32767 / mn
	}
	if mx > 0 {
		scale = math.Min(scale, 32767/mx)
	}
	if math.IsInf(scale, 1) {
		scale = 1 // every valid cell is exactly zero
	}

	codes := make([]int16, rows*cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := um.At(i, j)
			if math.IsNaN(v) {
				codes[i*cols+j] = NoData
			} else {
				codes[i*cols+j] = int16(math.Round(v * scale))
			}
		}
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, comment)
	fmt.Fprintf(bw, "GRD %d %d %s WVL 1.0 SSZ %v NDA %d\n", rows, cols, kind, scale, NoData)

	width := rowWidth(len(codes))
	for i, c := range codes {
		fmt.Fprintf(bw, "%d", c)
		if (i+1)%width == 0 {
			fmt.Fprintln(bw)
		} else {
			fmt.Fprint(bw, " ")
		}
	}
	return bw.Flush()
}

// WriteGridIntFile writes grid to an INT file at path. See WriteGridInt.
func WriteGridIntFile(path string, grid *mat.Dense, kind GridKind, comment string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating int file: %w", err)
	}
	if err := WriteGridInt(f, grid, kind, comment); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadGridInt decodes a grid INT file into nanometers, mapping
// sentinel-valued cells to NaN.
//
// The header vocabulary is strict: a token outside the known set is a
// metrology.ErrParse naming it, and each of GRD, WVL, SSZ, and NDA is
// individually required so the error localizes the exact missing token.
func ReadGridInt(r io.Reader) (*mat.Dense, *GridMeta, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("reading int file: %w", err)
	}
	txt := string(raw)

	// The manual caps records at 80 characters, so '!' comment lines are
	// detected by looking at 80-character windows.
	for {
		window := txt
		if len(window) > 80 {
			window = window[:80]
		}
		i := strings.IndexByte(window, '!')
		if i < 0 {
			break
		}
		nl := strings.IndexByte(txt[i:], '\n')
		if nl < 0 {
			return nil, nil, fmt.Errorf("%w: no line break after '!' comment", metrology.ErrMalformed)
		}
		txt = txt[i+nl+1:]
	}

	end := strings.IndexByte(txt, '\n')
	if end < 0 {
		return nil, nil, fmt.Errorf("%w: no line break after title", metrology.ErrMalformed)
	}
	title := strings.TrimRight(txt[:end], "\r")
	txt = txt[end+1:]

	end = strings.IndexByte(txt, '\n')
	if end < 0 {
		return nil, nil, fmt.Errorf("%w: no line break after header", metrology.ErrMalformed)
	}
	header := txt[:end]
	body := txt[end+1:]

	var (
		wvl, ssz float64
		haveWvl  bool
		haveSsz  bool
		nda      int
		haveNda  bool
		gridRows int
		gridCols int
		haveGrid bool
		kind     GridKind
	)
	vocab := map[string]text.Keyword{
		"WVL": {NArgs: 1, Apply: func(args []string) error {
			haveWvl = true
			var err error
			wvl, err = strconv.ParseFloat(args[0], 64)
			return err
		}},
		"SSZ": {NArgs: 1, Apply: func(args []string) error {
			haveSsz = true
			var err error
			ssz, err = strconv.ParseFloat(args[0], 64)
			return err
		}},
		"NDA": {NArgs: 1, Apply: func(args []string) error {
			haveNda = true
			var err error
			nda, err = strconv.Atoi(args[0])
			return err
		}},
		"GRD": {NArgs: 2, Apply: func(args []string) error {
			haveGrid = true
			var err error
			if gridRows, err = strconv.Atoi(args[0]); err != nil {
				return err
			}
			gridCols, err = strconv.Atoi(args[1])
			return err
		}},
		"SUR": {Apply: func([]string) error { kind = KindSurface; return nil }},
		"WFR": {Apply: func([]string) error { kind = KindWavefront; return nil }},
		"FIL": {Apply: func([]string) error { kind = KindFilter; return nil }},
		// NNB is an interpolation instruction for the consuming program,
		// not for us.
		"NNB": {},
	}
	if err := text.ParseKeywords(strings.Fields(header), vocab); err != nil {
		return nil, nil, err
	}
	if !haveWvl {
		return nil, nil, fmt.Errorf("%w: INT header did not contain WVL", metrology.ErrMalformed)
	}
	if !haveSsz {
		return nil, nil, fmt.Errorf("%w: INT header did not contain SSZ", metrology.ErrMalformed)
	}
	if !haveNda {
		return nil, nil, fmt.Errorf("%w: INT header did not contain NDA", metrology.ErrMalformed)
	}
	if !haveGrid {
		return nil, nil, fmt.Errorf("%w: INT header did not contain GRD, only grid files are supported", metrology.ErrMalformed)
	}

	tokens := strings.Fields(body)
	if len(tokens) != gridRows*gridCols {
		return nil, nil, fmt.Errorf("%w: body has %d values, header declares %dx%d", metrology.ErrMalformed, len(tokens), gridRows, gridCols)
	}

	// codes -> nm: /SSZ converts to wavelengths, /WVL normalizes, *1000
	// converts um to nm.
	toNM := 1000 / wvl / ssz
	grid := mat.NewDense(gridRows, gridCols, nil)
	for i, tok := range tokens {
		v, err := strconv.Atoi(tok)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: body value %q: %v", metrology.ErrParse, tok, err)
		}
		if v == nda {
			grid.Set(i/gridCols, i%gridCols, math.NaN())
		} else {
			grid.Set(i/gridCols, i%gridCols, float64(v)*toNM)
		}
	}
	return grid, &GridMeta{Title: title, WavelengthUm: wvl, Kind: kind}, nil
}

// ReadGridIntFile reads and decodes the grid INT file at path.
func ReadGridIntFile(path string) (*mat.Dense, *GridMeta, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening int file: %w", err)
	}
	defer f.Close()
	return ReadGridInt(f)
}
