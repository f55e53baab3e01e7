package trioptics

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/robert-malhotra/go-metrology/metrology"
)

// MTF-Lab v5 certificates are HTML with comment markers fencing each
// table. Cell extraction strips the markup by cutting around the first
// '>' and the following '<'.
const (
	v5CloseCertificate = "<!-- close certificate table -->"
	v5BeginCaption     = "<!--  begin table caption -->"
	v5EndCaption       = "<!-- end table caption -->"
	v5BeginMeasurement = "<!-- begin measurement data -->"
	v5EndMeasurement   = "<!-- end measurement data -->"
)

// v5Lines splits a section into lines, dropping the empty fragment a
// trailing newline leaves behind.
func v5Lines(s string) []string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	return lines
}

// v5Cell unwraps the text of the first HTML cell in s.
func v5Cell(s string) (string, error) {
	_, rest, ok := strings.Cut(s, ">")
	if !ok {
		return "", fmt.Errorf("%w: markup cell %q has no closing '>'", metrology.ErrMalformed, s)
	}
	text, _, _ := strings.Cut(rest, "<")
	return strings.TrimSpace(text), nil
}

func v5Section(report, begin, end string) (string, error) {
	lo := strings.Index(report, begin)
	if lo < 0 {
		return "", fmt.Errorf("%w: marker %q not found", metrology.ErrMalformed, begin)
	}
	lo += len(begin)
	hi := strings.Index(report[lo:], end)
	if hi < 0 {
		return "", fmt.Errorf("%w: marker %q not found", metrology.ErrMalformed, end)
	}
	return report[lo : lo+hi], nil
}

func readMTFvsFieldV5(report string) (*metrology.MTFField, error) {
	if end := strings.Index(report, v5CloseCertificate); end >= 0 {
		report = report[:end]
	} else {
		return nil, fmt.Errorf("%w: marker %q not found", metrology.ErrMalformed, v5CloseCertificate)
	}

	// Field heights come from the caption table. The first rows and the
	// trailing two are framing markup, not data.
	caption, err := v5Section(report, v5BeginCaption, v5EndCaption)
	if err != nil {
		return nil, err
	}
	capLines := v5Lines(caption)
	if len(capLines) < 11 {
		return nil, fmt.Errorf("%w: caption table has only %d lines", metrology.ErrMalformed, len(capLines))
	}
	var fields []float64
	for _, row := range capLines[8 : len(capLines)-2] {
		cell, err := v5Cell(row)
		if err != nil {
			return nil, err
		}
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: field height %q: %v", metrology.ErrParse, cell, err)
		}
		fields = append(fields, v)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: caption table is empty", metrology.ErrMalformed)
	}

	body, err := v5Section(report, v5BeginMeasurement, v5EndMeasurement)
	if err != nil {
		return nil, err
	}

	var (
		tan, sag []float64
		freqs    []float64
		seen     = map[float64]bool{}
	)
	for _, row := range strings.Split(body, "<tr ")[1:] {
		cells := strings.Split(row, "<td")
		if len(cells) < 4 {
			continue
		}
		cells = cells[1 : len(cells)-1] // first and last are framing markup

		// Leading cell holds azimuth and frequency: "Tan 10 (lp/mm)".
		head, err := v5Cell(cells[0])
		if err != nil {
			return nil, err
		}
		hf := strings.Fields(head)
		if len(hf) < 2 {
			return nil, fmt.Errorf("%w: row label %q", metrology.ErrMalformed, head)
		}
		az := hf[0]
		freqTok, _, _ := strings.Cut(hf[1], "(")
		freq, err := strconv.ParseFloat(freqTok, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: frequency %q: %v", metrology.ErrParse, hf[1], err)
		}

		vals := make([]float64, 0, len(cells)-1)
		for _, c := range cells[1:] {
			cell, err := v5Cell(c)
			if err != nil {
				return nil, err
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: MTF value %q: %v", metrology.ErrParse, cell, err)
			}
			vals = append(vals, v)
		}
		if len(vals) != len(fields) {
			return nil, fmt.Errorf("%w: row %q has %d cells, caption declares %d fields", metrology.ErrMalformed, head, len(vals), len(fields))
		}

		if az == "Sag" {
			sag = append(sag, vals...)
		} else {
			tan = append(tan, vals...)
		}
		if !seen[freq] {
			seen[freq] = true
			freqs = append(freqs, freq)
		}
	}

	nf := len(freqs)
	if nf == 0 || len(tan) != nf*len(fields) || len(sag) != nf*len(fields) {
		return nil, fmt.Errorf("%w: measurement table holds %d tangential and %d sagittal values for %d frequencies x %d fields",
			metrology.ErrMalformed, len(tan), len(sag), nf, len(fields))
	}

	return &metrology.MTFField{
		Freqs:  freqs,
		Fields: fields,
		Tan:    mat.NewDense(nf, len(fields), tan),
		Sag:    mat.NewDense(nf, len(fields), sag),
	}, nil
}

// v5 metadata lives in two <pre> blocks of "Label : value" lines with
// fixed row positions.
func parseMetadataV5(report string) (map[string]interface{}, error) {
	first, rest, err := v5PreBlock(report)
	if err != nil {
		return nil, err
	}
	if len(first) < 9 {
		return nil, fmt.Errorf("%w: first header block has only %d lines", metrology.ErrMalformed, len(first))
	}
	second, _, err := v5PreBlock(rest)
	if err != nil {
		return nil, err
	}
	if len(second) < 8 {
		return nil, fmt.Errorf("%w: second header block has only %d lines", metrology.ErrMalformed, len(second))
	}

	timestamp, err := time.Parse("15:04:05  January 2, 2006", v5Value(first[2]))
	if err != nil {
		return nil, fmt.Errorf("%w: timestamp %q: %v", metrology.ErrParse, v5Value(first[2]), err)
	}

	collimator, err := v5LeadingFloat(second[1], "EFL (Collimator)")
	if err != nil {
		return nil, err
	}
	efl, err := v5LeadingFloat(second[3], "EFL (Sample)")
	if err != nil {
		return nil, err
	}
	fnoTok, _, _ := strings.Cut(v5Value(second[4]), "=")
	fno, err := strconv.ParseFloat(strings.TrimSpace(fnoTok), 64)
	if err != nil {
		return nil, fmt.Errorf("%w: F/No %q: %v", metrology.ErrParse, fnoTok, err)
	}
	objAngle, err := v5LeadingFloat(second[5], "Object Angle")
	if err != nil {
		return nil, err
	}
	focusPos, err := v5LeadingFloat(second[6], "Focus Position")
	if err != nil {
		return nil, err
	}
	azimuth, err := v5LeadingFloat(second[7], "Sample Azimuth")
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"company":       v5Value(first[0]),
		"operator":      v5Value(first[1]),
		"time":          timestamp,
		"sample_id":     v5Value(first[3]),
		"instrument":    "Trioptics ImageMaster",
		"instrument_sn": v5Value(first[8]),
		"collimator":    collimator,
		"wavelength":    v5Value(second[2]),
		"efl":           efl,
		"fno":           fno,
		"obj_angle":     objAngle,
		"focus_pos":     focusPos,
		"azimuth":       azimuth,
	}, nil
}

// v5PreBlock returns the lines of the next <pre> block and the report
// remainder after it.
func v5PreBlock(report string) ([]string, string, error) {
	lo := strings.Index(report, "<pre>")
	if lo < 0 {
		return nil, "", fmt.Errorf("%w: header block (<pre>) not found", metrology.ErrMalformed)
	}
	lo += len("<pre>")
	hi := strings.Index(report[lo:], "</pre>")
	if hi < 0 {
		return nil, "", fmt.Errorf("%w: header block is not closed (</pre>)", metrology.ErrMalformed)
	}
	return strings.Split(report[lo:lo+hi], "\n"), report[lo+hi:], nil
}

// v5Value returns the value half of a "Label : value" line.
func v5Value(line string) string {
	if i := strings.LastIndex(line, ": "); i >= 0 {
		line = line[i+2:]
	}
	return strings.TrimSpace(line)
}

// v5LeadingFloat parses the leading number of a value with a trailing
// unit, e.g. "300 mm".
func v5LeadingFloat(line, what string) (float64, error) {
	fields := strings.Fields(v5Value(line))
	if len(fields) == 0 {
		return 0, fmt.Errorf("%w: metadata value %s is empty", metrology.ErrMalformed, what)
	}
	v, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: metadata value %s = %q: %v", metrology.ErrParse, what, fields[0], err)
	}
	return v, nil
}
