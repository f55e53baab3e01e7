package trioptics

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/robert-malhotra/go-metrology/internal/text"
	"github.com/robert-malhotra/go-metrology/metrology"
)

var measureProgramRe = regexp.MustCompile(`Measure Program  : (.*)`)

// Identify scans the metadata window of a report for the measurement
// program label.
func Identify(report string) (string, error) {
	m := measureProgramRe.FindStringSubmatch(metaSlice(report))
	if m == nil {
		return "", fmt.Errorf("%w: measurement program label not found", metrology.ErrMalformed)
	}
	return strings.TrimSpace(m[1]), nil
}

// handlerFunc extracts a measurement record from report text.
type handlerFunc func(report string, schema Schema, withMeta bool) (*metrology.MTFField, error)

// switchboard entries distinguish formats we decode, formats the
// instrument emits that we do not decode yet, and labels we have never
// seen. The latter two must fail differently, so entries are tagged
// rather than a bare func being present or absent.
type switchEntry struct {
	handler     handlerFunc
	implemented bool
}

var switchboard = map[string]switchEntry{
	"MTF vs. Field": {handler: ReadMTFvsField, implemented: true},
	"Distortion":    {},
	"Axial Color":   {},
	"Lateral Color": {},
}

// Dispatch routes a report to the extractor for its measurement type.
// Known-but-undecodable programs return ErrUnsupportedFormat; labels
// absent from the registry return ErrUnknownMeasurement.
func Dispatch(report string, schema Schema, withMeta bool) (string, *metrology.MTFField, error) {
	program, err := Identify(report)
	if err != nil {
		return "", nil, err
	}
	entry, ok := switchboard[program]
	if !ok {
		return program, nil, fmt.Errorf("%w: %q", metrology.ErrUnknownMeasurement, program)
	}
	if !entry.implemented {
		return program, nil, fmt.Errorf("%w: no decoder for measurement program %q", metrology.ErrUnsupportedFormat, program)
	}
	rec, err := entry.handler(report, schema, withMeta)
	return program, rec, err
}

// DispatchFile reads the report at path (Windows-1252) and dispatches
// on its measurement program label.
func DispatchFile(path string, schema Schema, withMeta bool) (string, *metrology.MTFField, error) {
	report, err := text.ReadFileWindows1252(path)
	if err != nil {
		return "", nil, err
	}
	return Dispatch(report, schema, withMeta)
}
