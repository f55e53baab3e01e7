package trioptics

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/robert-malhotra/go-metrology/internal/text"
	"github.com/robert-malhotra/go-metrology/metrology"
)

// Single-point (MTF vs frequency) reports carry a tangential table
// followed by a sagittal one; each data point is a frequency line and a
// value line, both tab-escaped. A rule of underscores closes each block.
var (
	freqFocusRe    = regexp.MustCompile(`Focus Position  : (-?\d+\.\d+) mm`)
	freqDataRe     = regexp.MustCompile(`\r\n(\d+\.?\d?)` + escTab + `\r\n(\d+\.\d+)` + escTab)
	freqSagTableRe = regexp.MustCompile(`Measurement Table: MTF vs\. Frequency \( Sagittal \)`)
	freqBlockEndRe = regexp.MustCompile(`  _____ =20`)
)

// ReadMTF extracts MTF versus spatial frequency and the focus position
// from a single-point report (SchemaV4 escaped-text layout). When
// withMeta is set, the acquisition metadata block is attached.
func ReadMTF(report string, withMeta bool) (*metrology.MTFFrequency, error) {
	// Tables sit near the top of the file.
	data := report[:len(report)/10]

	sagLoc := freqSagTableRe.FindStringIndex(data)
	if sagLoc == nil {
		return nil, fmt.Errorf("%w: sagittal table marker not found", metrology.ErrMalformed)
	}
	// Cut at the first block terminator after the sagittal table so the
	// plot markup below it is never scanned.
	cutoff := -1
	for _, end := range freqBlockEndRe.FindAllStringIndex(data, -1) {
		if end[1] > sagLoc[1] {
			cutoff = end[1]
			break
		}
	}
	if cutoff < 0 {
		return nil, fmt.Errorf("%w: sagittal table is not terminated", metrology.ErrMalformed)
	}

	fm := freqFocusRe.FindStringSubmatch(data)
	if fm == nil {
		return nil, fmt.Errorf("%w: metadata label Focus Position not found", metrology.ErrMalformed)
	}
	focus, err := strconv.ParseFloat(fm[1], 64)
	if err != nil {
		return nil, fmt.Errorf("%w: focus position %q: %v", metrology.ErrParse, fm[1], err)
	}

	pairs := freqDataRe.FindAllStringSubmatch(data[:cutoff], -1)
	if len(pairs) == 0 || len(pairs)%2 != 0 {
		return nil, fmt.Errorf("%w: %d frequency/MTF pairs, want a positive even count", metrology.ErrMalformed, len(pairs))
	}
	freqs := make([]float64, 0, len(pairs))
	mtfs := make([]float64, 0, len(pairs))
	for _, p := range pairs {
		f, err := strconv.ParseFloat(p[1], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: frequency %q: %v", metrology.ErrParse, p[1], err)
		}
		v, err := strconv.ParseFloat(p[2], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: MTF value %q: %v", metrology.ErrParse, p[2], err)
		}
		freqs = append(freqs, f)
		mtfs = append(mtfs, v)
	}

	// First half of pairs is the tangential table, second the sagittal.
	half := len(mtfs) / 2
	rec := &metrology.MTFFrequency{
		FocusMM: focus,
		Freqs:   freqs[:half],
		Tan:     mtfs[:half],
		Sag:     mtfs[half:],
	}
	if withMeta {
		meta, err := parseMetadataV4(report)
		if err != nil {
			return nil, err
		}
		rec.Meta = meta
	}
	return rec, nil
}

// ReadMTFFile reads the report at path (Windows-1252) and extracts MTF
// versus frequency.
func ReadMTFFile(path string, withMeta bool) (*metrology.MTFFrequency, error) {
	report, err := text.ReadFileWindows1252(path)
	if err != nil {
		return nil, err
	}
	return ReadMTF(report, withMeta)
}
