package zygo

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/robert-malhotra/go-metrology/metrology"
)

// asciiFormatName is the first header line of the ASCII export format.
const asciiFormatName = "Zygo ASCII Data File - Format 2"

// The ASCII header carries several numeric literals whose vendor meaning
// is undocumented. They are preserved verbatim as named constants rather
// than re-derived.
const (
	asciiScaleFactor     = 0.5
	asciiObliquityFactor = 1.0
	asciiLine10          = "0 0 0 0 0 0 0 0 0 0"
	asciiLine11          = "1 1 20 2 0 0 0 0 0"
	asciiLine13          = "1 0"
)

// asciiValuesPerLine is the wrap width of the integer phase block.
const asciiValuesPerLine = 10

// WriteASCII encodes phase (nanometers, NaN = invalid) in the ASCII
// export format: a fixed 14-line header, two '#' markers, and phase codes
// wrapped at ten per line. dx is the inter-sample spacing in mm,
// wavelength is in microns. Intensity data is not supported by this
// writer.
func WriteASCII(w io.Writer, phase *mat.Dense, dx, wavelength float64) error {
	rows, cols := phase.Dims()
	now := time.Now()

	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, asciiFormatName)
	fmt.Fprintf(bw, "0 0 0 0 %s\"\n", rightPad(now.Format(`"Mon Jan 02 15:04:05 2006`), 30))
	fmt.Fprintln(bw, "0 0 0 0 0 0")
	fmt.Fprintf(bw, "0 0 %d %d\n", cols, rows)
	fmt.Fprintf(bw, "%q\n", strings.Repeat(" ", 81))
	fmt.Fprintf(bw, "%q\n", strings.Repeat(" ", 39))
	fmt.Fprintf(bw, "%q\n", strings.Repeat(" ", 39))
	fmt.Fprintf(bw, "0 %g %g 0 %g 0 %g %d\n",
		asciiScaleFactor, wavelength*1e-6, asciiObliquityFactor, dx*1e3, now.Unix())
	fmt.Fprintf(bw, "%d %d 0 0 0 0 %q\n", cols, rows, strings.Repeat(" ", 9))
	fmt.Fprintln(bw, asciiLine10)
	fmt.Fprintln(bw, asciiLine11)
	fmt.Fprintf(bw, "0 %q\n", strings.Repeat(" ", 12))
	fmt.Fprintln(bw, asciiLine13)
	fmt.Fprintf(bw, "%q\n", strings.Repeat(" ", 7))
	// No intensity block; both markers are bare.
	fmt.Fprintln(bw, "#")
	fmt.Fprintln(bw, "#")

	resFactor := float64(PhaseResFactors[writtenPhaseRes])
	coef := resFactor / wavelength / wavelength / asciiScaleFactor
	n := rows * cols
	for i := 0; i < n; i++ {
		v := phase.At(i/cols, i%cols)
		var code int64
		if math.IsNaN(v) {
			code = InvalidPhase
		} else {
			code = int64(v * coef)
		}
		fmt.Fprintf(bw, "%d", code)
		if (i+1)%asciiValuesPerLine == 0 {
			fmt.Fprint(bw, " \n")
		} else if i != n-1 {
			fmt.Fprint(bw, " ")
		}
	}
	if n%asciiValuesPerLine != 0 {
		fmt.Fprintln(bw)
	}
	fmt.Fprintln(bw, "#")
	return bw.Flush()
}

// WriteASCIIFile writes phase to an ASCII file at path. See WriteASCII.
func WriteASCIIFile(path string, phase *mat.Dense, dx, wavelength float64) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating ascii file: %w", err)
	}
	if err := WriteASCII(f, phase, dx, wavelength); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadASCII decodes an ASCII export. It is the inverse of WriteASCII:
// dimensions come from header line 4, the wavelength and scale factors
// from line 8, and the phase-resolution code from line 11; the wrapped
// integer block follows the two '#' markers, with sentinel codes decoding
// to NaN.
func ReadASCII(r io.Reader) (*metrology.Measurement, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading ascii file: %w", err)
	}
	lines := strings.Split(string(raw), "\n")
	if len(lines) < 17 {
		return nil, fmt.Errorf("%w: ascii file shorter than its 14-line header and markers", metrology.ErrMalformed)
	}
	if strings.TrimRight(lines[0], "\r") != asciiFormatName {
		return nil, fmt.Errorf("%w: first line %q is not %q", metrology.ErrMalformed, lines[0], asciiFormatName)
	}

	dims := strings.Fields(lines[3])
	if len(dims) != 4 {
		return nil, fmt.Errorf("%w: dimension line %q needs 4 columns", metrology.ErrMalformed, lines[3])
	}
	cols, err := strconv.Atoi(dims[2])
	if err != nil {
		return nil, fmt.Errorf("%w: dimension %q: %v", metrology.ErrParse, dims[2], err)
	}
	rows, err := strconv.Atoi(dims[3])
	if err != nil {
		return nil, fmt.Errorf("%w: dimension %q: %v", metrology.ErrParse, dims[3], err)
	}

	for _, tok := range strings.Fields(lines[2]) {
		if tok != "0" {
			return nil, fmt.Errorf("%w: ascii files with intensity data", metrology.ErrUnsupportedFormat)
		}
	}

	acq := strings.Fields(lines[7])
	if len(acq) < 8 {
		return nil, fmt.Errorf("%w: acquisition line %q needs 8 columns", metrology.ErrMalformed, lines[7])
	}
	scale, err := strconv.ParseFloat(acq[1], 64)
	if err != nil {
		return nil, fmt.Errorf("%w: scale factor %q: %v", metrology.ErrParse, acq[1], err)
	}
	wavelengthM, err := strconv.ParseFloat(acq[2], 64)
	if err != nil {
		return nil, fmt.Errorf("%w: wavelength %q: %v", metrology.ErrParse, acq[2], err)
	}
	obliquity, err := strconv.ParseFloat(acq[4], 64)
	if err != nil {
		return nil, fmt.Errorf("%w: obliquity factor %q: %v", metrology.ErrParse, acq[4], err)
	}

	resTok := strings.Fields(lines[10])
	if len(resTok) == 0 {
		return nil, fmt.Errorf("%w: resolution line is empty", metrology.ErrMalformed)
	}
	resCode, err := strconv.ParseUint(resTok[0], 10, 16)
	if err != nil {
		return nil, fmt.Errorf("%w: resolution code %q: %v", metrology.ErrParse, resTok[0], err)
	}
	resFactor, ok := PhaseResFactors[uint16(resCode)]
	if !ok {
		return nil, fmt.Errorf("%w: phase resolution code %d outside the known table", metrology.ErrUnsupportedFormat, resCode)
	}

	// Tokens between the second '#' marker and the closing one.
	body, err := asciiPhaseTokens(lines)
	if err != nil {
		return nil, err
	}
	if len(body) != rows*cols {
		return nil, fmt.Errorf("%w: phase block has %d values, header declares %dx%d", metrology.ErrMalformed, len(body), rows, cols)
	}

	wavelengthUm := wavelengthM * 1e6
	toNM := scale * obliquity * wavelengthUm * wavelengthUm / float64(resFactor)
	phase := mat.NewDense(rows, cols, nil)
	for i, tok := range body {
		code, err := strconv.ParseInt(tok, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: phase value %q: %v", metrology.ErrParse, tok, err)
		}
		if code >= InvalidPhase {
			phase.Set(i/cols, i%cols, math.NaN())
		} else {
			phase.Set(i/cols, i%cols, float64(code)*toNM)
		}
	}

	meta := map[string]interface{}{
		"scale_factor":     scale,
		"obliquity_factor": obliquity,
		"wavelength":       wavelengthM,
		"phase_res":        uint16(resCode),
		"cn_width":         cols,
		"cn_height":        rows,
	}
	return &metrology.Measurement{Phase: phase, Meta: meta}, nil
}

// ReadASCIIFile reads and decodes the ASCII file at path.
func ReadASCIIFile(path string) (*metrology.Measurement, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening ascii file: %w", err)
	}
	defer f.Close()
	return ReadASCII(f)
}

func asciiPhaseTokens(lines []string) ([]string, error) {
	markers := 0
	var tokens []string
	for _, line := range lines[14:] {
		trimmed := strings.TrimSpace(line)
		if trimmed == "#" {
			markers++
			if markers == 3 {
				return tokens, nil
			}
			continue
		}
		if markers >= 2 {
			tokens = append(tokens, strings.Fields(trimmed)...)
		}
	}
	return nil, fmt.Errorf("%w: phase block not closed by a '#' marker", metrology.ErrMalformed)
}

// rightPad right-pads s with spaces to width n.
func rightPad(s string, n int) string {
	if len(s) >= n {
		return s
	}
	return s + strings.Repeat(" ", n-len(s))
}
