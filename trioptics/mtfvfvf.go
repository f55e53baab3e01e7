package trioptics

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/robert-malhotra/go-metrology/metrology"
)

// ReadMTFvFvF reads a through-focus MTF text dump. Records come in line
// pairs: a metadata line ("ImgHt X ObjAngle Y Focus Z FreqPitch W") and a
// data line ("MTF v0 v1 ..."). The filename selects the azimuth by the
// acquisition software's naming convention: a base name ending in "Tan"
// is tangential, anything else sagittal.
func ReadMTFvFvF(contents, filename string) (*metrology.MTFFocus, error) {
	azimuth := "Sag"
	if base := strings.TrimSuffix(filename, ".txt"); strings.HasSuffix(base, "Tan") {
		azimuth = "Tan"
	}

	var (
		imghts, focusposes []float64
		mtfs               [][]float64
		freqPitch          float64
	)
	lines := splitRecordLines(contents)
	if len(lines) == 0 || len(lines)%2 != 0 {
		return nil, fmt.Errorf("%w: through-focus dump has %d lines, want a positive even count", metrology.ErrMalformed, len(lines))
	}
	for i := 0; i+1 < len(lines); i += 2 {
		metaFields := strings.Fields(lines[i])
		if len(metaFields) < 8 {
			return nil, fmt.Errorf("%w: record header %q", metrology.ErrMalformed, lines[i])
		}
		// Label/value alternation: values sit at the odd indices.
		imght, err := strconv.ParseFloat(metaFields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: image height %q: %v", metrology.ErrParse, metaFields[1], err)
		}
		focus, err := strconv.ParseFloat(metaFields[5], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: focus position %q: %v", metrology.ErrParse, metaFields[5], err)
		}
		freqPitch, err = strconv.ParseFloat(metaFields[7], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: frequency pitch %q: %v", metrology.ErrParse, metaFields[7], err)
		}

		dataFields := strings.Fields(lines[i+1])
		if len(dataFields) < 2 || dataFields[0] != "MTF" {
			return nil, fmt.Errorf("%w: record body %q", metrology.ErrMalformed, lines[i+1])
		}
		mtf := make([]float64, len(dataFields)-1)
		for j, tok := range dataFields[1:] {
			v, err := strconv.ParseFloat(tok, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: MTF value %q: %v", metrology.ErrParse, tok, err)
			}
			mtf[j] = v
		}

		imghts = append(imghts, imght)
		focusposes = append(focusposes, focus)
		mtfs = append(mtfs, mtf)
	}

	fields := sortedUnique(imghts)
	rawFocuses := sortedUnique(focusposes)
	if len(fields)*len(rawFocuses) != len(mtfs) {
		return nil, fmt.Errorf("%w: %d records do not tile %d fields x %d focus positions",
			metrology.ErrMalformed, len(mtfs), len(fields), len(rawFocuses))
	}
	nFreq := len(mtfs[0])
	for _, m := range mtfs {
		if len(m) != nFreq {
			return nil, fmt.Errorf("%w: record length %d, want %d", metrology.ErrMalformed, len(m), nFreq)
		}
	}

	// Focus positions are recentered on their mean and reported in
	// microns.
	var mean float64
	for _, f := range rawFocuses {
		mean += f
	}
	mean /= float64(len(rawFocuses))
	focuses := make([]float64, len(rawFocuses))
	for i, f := range rawFocuses {
		focuses[i] = (f - mean) * 1e3
	}

	freqs := make([]float64, nFreq)
	for i := range freqs {
		freqs[i] = float64(i) * freqPitch
	}

	// Records arrive focus-major; the cube is indexed field-major.
	data := make([][][]float64, len(fields))
	for i := range data {
		data[i] = make([][]float64, len(focuses))
	}
	for i, m := range mtfs {
		fi := i % len(fields)
		zi := i / len(fields)
		data[fi][zi] = m
	}

	return &metrology.MTFFocus{
		Fields:  fields,
		Focuses: focuses,
		Freqs:   freqs,
		Data:    data,
		Azimuth: azimuth,
	}, nil
}

// ReadMTFvFvFFile reads the through-focus dump at path. These dumps are
// plain ASCII, unlike the report certificates.
func ReadMTFvFvFFile(path string) (*metrology.MTFFocus, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ReadMTFvFvF(string(raw), path)
}

func splitRecordLines(contents string) []string {
	var out []string
	for _, line := range strings.Split(strings.ReplaceAll(contents, "\r\n", "\n"), "\n") {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}

func sortedUnique(vals []float64) []float64 {
	out := append([]float64(nil), vals...)
	sort.Float64s(out)
	n := 0
	for i, v := range out {
		if i == 0 || v != out[n-1] {
			out[n] = v
			n++
		}
	}
	return out[:n]
}
