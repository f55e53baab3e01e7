// Package sigfit reads finite-element post-processing exports: modal
// (Zernike) surface-deformation coefficients from OUTCOF3 files and
// rigid-body perturbations from sum1.csv summaries.
package sigfit

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/robert-malhotra/go-metrology/metrology"
)

// inToMM converts the export's optional inch unit system.
const inToMM = 25.4

// ReadZernikes parses an OUTCOF3 modal-coefficient export. The file
// holds one block per surface, each opened by a "Surface ... SID= n"
// banner; the result is keyed by surface ID.
func ReadZernikes(contents string) (map[int]*metrology.SurfaceZernikes, error) {
	blocks := strings.Split(contents, "Surface")
	if len(blocks) < 2 {
		return nil, fmt.Errorf("%w: no surface blocks", metrology.ErrMalformed)
	}
	out := make(map[int]*metrology.SurfaceZernikes, len(blocks)-1)
	for _, block := range blocks[1:] {
		sid, rec, err := readZernikeBlock(block)
		if err != nil {
			return nil, err
		}
		out[sid] = rec
	}
	return out, nil
}

// ReadZernikesFile reads the OUTCOF3 export at path.
func ReadZernikesFile(path string) (map[int]*metrology.SurfaceZernikes, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ReadZernikes(string(raw))
}

// readZernikeBlock parses one surface block. The banner line packs its
// values as "SID= n Rnorm= r Type ... WVL= w unit"; the third line names
// the mode family, and coefficient rows run from the fifth line on as
// "index,value" pairs.
func readZernikeBlock(block string) (int, *metrology.SurfaceZernikes, error) {
	lines := strings.Split(block, "\n")
	if len(lines) < 5 {
		return 0, nil, fmt.Errorf("%w: surface block has only %d lines", metrology.ErrMalformed, len(lines))
	}

	banner := lines[0]
	sidStr, err := bannerField(banner, "SID=", "Rnorm=")
	if err != nil {
		return 0, nil, err
	}
	sid, err := strconv.Atoi(strings.TrimSpace(sidStr))
	if err != nil {
		return 0, nil, fmt.Errorf("%w: surface ID %q: %v", metrology.ErrParse, sidStr, err)
	}
	rnormStr, err := bannerField(banner, "Rnorm=", "Type")
	if err != nil {
		return 0, nil, err
	}
	rnorm, err := strconv.ParseFloat(strings.TrimSpace(rnormStr), 64)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: Rnorm %q: %v", metrology.ErrParse, rnormStr, err)
	}
	_, tail, ok := strings.Cut(banner, "WVL=")
	if !ok {
		return 0, nil, fmt.Errorf("%w: banner %q lacks WVL=", metrology.ErrMalformed, banner)
	}
	wvlFields := strings.Fields(tail)
	if len(wvlFields) < 2 {
		return 0, nil, fmt.Errorf("%w: banner %q lacks a wavelength unit", metrology.ErrMalformed, banner)
	}
	wvl, err := strconv.ParseFloat(wvlFields[0], 64)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: wavelength %q: %v", metrology.ErrParse, wvlFields[0], err)
	}

	// Unit factor to microns: inches are 25.4e3 um, the default unit
	// system's millimeters are 1e3 um.
	fctr := 1e3
	if strings.EqualFold(wvlFields[1], "in") {
		fctr = inToMM * 1e3
	}
	wvlUm := wvl * fctr

	basis := metrology.BasisFringe
	if strings.Contains(lines[2], "ZEMAX") {
		basis = metrology.BasisNoll
	}
	normalized := strings.Contains(lines[2], "RMS")

	// Coefficient rows; a row with a missing value means the solver
	// dropped the mode, which reads as zero.
	body := lines[4:]
	if n := len(body); n > 0 && body[n-1] == "" {
		body = body[:n-1]
	}
	if n := len(body); n > 0 {
		body = body[:n-1] // trailing line is the block separator, not a mode
	}
	coefs := make([]float64, 0, len(body))
	for _, line := range body {
		_, val, _ := strings.Cut(line, ",")
		val = strings.TrimSpace(val)
		if val == "" {
			coefs = append(coefs, 0)
			continue
		}
		if i := strings.Index(val, ","); i >= 0 {
			val = strings.TrimSpace(val[:i])
		}
		c, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, nil, fmt.Errorf("%w: coefficient %q: %v", metrology.ErrParse, val, err)
		}
		coefs = append(coefs, c*wvlUm)
	}

	return sid, &metrology.SurfaceZernikes{
		Basis:        basis,
		Normalized:   normalized,
		WavelengthUm: wvlUm,
		Coefs:        coefs,
		NormRadiusMM: rnorm * fctr / 1e3,
	}, nil
}

// bannerField cuts the banner text between a label and the next one.
func bannerField(banner, label, next string) (string, error) {
	_, tail, ok := strings.Cut(banner, label)
	if !ok {
		return "", fmt.Errorf("%w: banner %q lacks %s", metrology.ErrMalformed, banner, label)
	}
	field, _, ok := strings.Cut(tail, next)
	if !ok {
		return "", fmt.Errorf("%w: banner %q lacks %s after %s", metrology.ErrMalformed, banner, next, label)
	}
	return field, nil
}
