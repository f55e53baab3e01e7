package trioptics

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/robert-malhotra/go-metrology/metrology"
)

// The legacy layout locates data by literal delimiter substrings. Each
// block appears twice in the file, once per plotted view, so extraction
// keeps only the first half of the matches.
var (
	v4FieldsRe = regexp.MustCompile(`(?s)MTF=09(.*?)Legend=09`)
	v4TanRe    = regexp.MustCompile(`(?s)Tan(.*?)` + escBlockEnd)
	v4SagRe    = regexp.MustCompile(`(?s)Sag(.*?)` + escBlockEnd)
)

func readMTFvsFieldV4(report string) (*metrology.MTFField, error) {
	// The tables live near the top; searching a subset keeps the regex
	// work bounded on large reports.
	data := report[:len(report)/10]

	fieldBlocks := v4FieldsRe.FindAllStringSubmatch(data, -1)
	if len(fieldBlocks) == 0 {
		return nil, fmt.Errorf("%w: field-height legend block (MTF%s...Legend%s) not found", metrology.ErrMalformed, escTab, escTab)
	}

	tanBlocks := v4TanRe.FindAllStringSubmatch(data, -1)
	sagBlocks := v4SagRe.FindAllStringSubmatch(data, -1)
	if len(tanBlocks) == 0 || len(sagBlocks) == 0 {
		return nil, fmt.Errorf("%w: tangential/sagittal MTF blocks not found", metrology.ErrMalformed)
	}
	// One copy per plotted view (vs height, vs angle); keep the first.
	tanBlocks = tanBlocks[:len(tanBlocks)/2]
	sagBlocks = sagBlocks[:len(sagBlocks)/2]
	if len(tanBlocks) == 0 {
		return nil, fmt.Errorf("%w: MTF table appears only once, want both plotted views", metrology.ErrMalformed)
	}
	if len(tanBlocks) != len(sagBlocks) {
		return nil, fmt.Errorf("%w: %d tangential blocks but %d sagittal", metrology.ErrMalformed, len(tanBlocks), len(sagBlocks))
	}

	// Frequencies prefix each tangential block as " NN(lp/mm)".
	freqs := make([]float64, len(tanBlocks))
	for i, m := range tanBlocks {
		head, _, _ := strings.Cut(m[1], "(")
		if len(head) < 2 {
			return nil, fmt.Errorf("%w: frequency label %q", metrology.ErrParse, head)
		}
		f, err := strconv.ParseFloat(head[1:], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: frequency label %q: %v", metrology.ErrParse, head, err)
		}
		freqs[i] = f
	}

	// Field heights, kept to the 4th decimal (nearest 0.1 um).
	var fields []float64
	for _, tok := range strings.Split(fieldBlocks[0][1], escTab) {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: field height %q: %v", metrology.ErrParse, tok, err)
		}
		fields = append(fields, math.Round(v*1e4)/1e4)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: field-height legend is empty", metrology.ErrMalformed)
	}

	tan, err := v4MTFRows(tanBlocks, len(fields))
	if err != nil {
		return nil, err
	}
	sag, err := v4MTFRows(sagBlocks, len(fields))
	if err != nil {
		return nil, err
	}

	return &metrology.MTFField{
		Freqs:  freqs,
		Fields: fields,
		Tan:    mat.NewDense(len(freqs), len(fields), tan),
		Sag:    mat.NewDense(len(freqs), len(fields), sag),
	}, nil
}

// v4MTFRows parses each block's tab-escaped values; the first and last
// tokens are the frequency label and trailing noise.
func v4MTFRows(blocks [][]string, nFields int) ([]float64, error) {
	out := make([]float64, 0, len(blocks)*nFields)
	for _, m := range blocks {
		toks := strings.Split(m[1], escTab)
		if len(toks) != nFields+2 {
			return nil, fmt.Errorf("%w: MTF block has %d cells, legend declares %d fields", metrology.ErrMalformed, len(toks)-2, nFields)
		}
		for _, tok := range toks[1 : nFields+1] {
			v, err := strconv.ParseFloat(strings.TrimSpace(tok), 64)
			if err != nil {
				return nil, fmt.Errorf("%w: MTF value %q: %v", metrology.ErrParse, tok, err)
			}
			out = append(out, v)
		}
	}
	return out, nil
}

// metaWindow bounds the header slice the metadata labels live in, so the
// label regexes never scan the measurement tables.
const (
	metaWindowLo = 750
	metaWindowHi = 1500
)

var (
	v4OperatorRe     = regexp.MustCompile(`Operator         : (\S*)`)
	v4TimeRe         = regexp.MustCompile(`Time/Date        : (\d{2}:\d{2}:\d{2}\s*\w*\s*\d*,\s*\d*)`)
	v4SampleIDRe     = regexp.MustCompile(`Sample ID        : (.*)`)
	v4InstrumentSNRe = regexp.MustCompile(`Instrument S/N   : (\S*)`)
	v4CollimatorRe   = regexp.MustCompile(`EFL \(Collimator\): (\d*) mm`)
	v4WavelengthRe   = regexp.MustCompile(`Wavelength      : (\d+) nm`)
	v4SampleEFLRe    = regexp.MustCompile(`EFL \(Sample\)    : (\d*\.\d*) mm`)
	v4ObjAngleRe     = regexp.MustCompile(`Object Angle    : (-?\d*\.\d*) ` + escDegree)
	v4FocusPosRe     = regexp.MustCompile(`Focus Position  : (\d*\.\d*) mm`)
	v4AzimuthRe      = regexp.MustCompile(`Sample Azimuth  : (-?\d*\.\d*) ` + escDegree)
)

func v4Label(data string, re *regexp.Regexp, what string) (string, error) {
	m := re.FindStringSubmatch(data)
	if m == nil {
		return "", fmt.Errorf("%w: metadata label %s not found", metrology.ErrMalformed, what)
	}
	return m[1], nil
}

func v4FloatLabel(data string, re *regexp.Regexp, what string) (float64, error) {
	s, err := v4Label(data, re, what)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: metadata value %s = %q: %v", metrology.ErrParse, what, s, err)
	}
	return v, nil
}

func parseMetadataV4(report string) (map[string]interface{}, error) {
	data := metaSlice(report)

	operator, err := v4Label(data, v4OperatorRe, "Operator")
	if err != nil {
		return nil, err
	}
	rawTime, err := v4Label(data, v4TimeRe, "Time/Date")
	if err != nil {
		return nil, err
	}
	timestamp, err := parseV4Timestamp(rawTime)
	if err != nil {
		return nil, err
	}
	sampleID, err := v4Label(data, v4SampleIDRe, "Sample ID")
	if err != nil {
		return nil, err
	}
	instrumentSN, err := v4Label(data, v4InstrumentSNRe, "Instrument S/N")
	if err != nil {
		return nil, err
	}
	collimator, err := v4FloatLabel(data, v4CollimatorRe, "EFL (Collimator)")
	if err != nil {
		return nil, err
	}
	wavelengthNM, err := v4FloatLabel(data, v4WavelengthRe, "Wavelength")
	if err != nil {
		return nil, err
	}
	efl, err := v4FloatLabel(data, v4SampleEFLRe, "EFL (Sample)")
	if err != nil {
		return nil, err
	}
	objAngle, err := v4FloatLabel(data, v4ObjAngleRe, "Object Angle")
	if err != nil {
		return nil, err
	}
	focusPos, err := v4FloatLabel(data, v4FocusPosRe, "Focus Position")
	if err != nil {
		return nil, err
	}
	azimuth, err := v4FloatLabel(data, v4AzimuthRe, "Sample Azimuth")
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"operator":      operator,
		"time":          timestamp,
		"sample_id":     strings.TrimSpace(sampleID),
		"instrument":    "Trioptics ImageMaster HR",
		"instrument_sn": instrumentSN,
		"collimator":    collimator,
		"wavelength":    wavelengthNM / 1e3, // nm -> um
		"efl":           efl,
		"fno":           nil, // the legacy layout does not report it
		"obj_angle":     objAngle,
		"focus_pos":     focusPos,
		"azimuth":       azimuth,
	}, nil
}

// parseV4Timestamp assembles a timestamp from "HH:MM:SS  Month D, YYYY",
// resolving the human month name to its number.
func parseV4Timestamp(raw string) (time.Time, error) {
	parts := strings.Fields(raw)
	if len(parts) != 4 {
		return time.Time{}, fmt.Errorf("%w: timestamp %q", metrology.ErrParse, raw)
	}
	hms, monthName, dayStr, yearStr := parts[0], parts[1], strings.TrimSuffix(parts[2], ","), parts[3]

	month, err := time.Parse("January", monthName)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: month name %q", metrology.ErrParse, monthName)
	}
	day, err := strconv.Atoi(dayStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: day %q", metrology.ErrParse, dayStr)
	}
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: year %q", metrology.ErrParse, yearStr)
	}
	clock, err := time.Parse("15:04:05", hms)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: clock %q", metrology.ErrParse, hms)
	}
	return time.Date(year, month.Month(), day, clock.Hour(), clock.Minute(), clock.Second(), 0, time.UTC), nil
}

// metaSlice bounds report to the metadata window, tolerating short
// inputs.
func metaSlice(report string) string {
	if len(report) <= metaWindowLo {
		return report
	}
	hi := metaWindowHi
	if len(report) < hi {
		hi = len(report)
	}
	return report[metaWindowLo:hi]
}
