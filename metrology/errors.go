// Package metrology defines the canonical record types produced by the
// instrument-file codecs in this module, along with the shared error
// taxonomy every codec reports through.
package metrology

import "errors"

// Common errors. Codec packages wrap these with fmt.Errorf("%w: ...") so
// callers can classify a failure with errors.Is while the message still
// names the offending field or token.
var (
	// ErrLayout indicates a buffer too small for a field table, or a field
	// whose declared byte range falls outside the buffer.
	ErrLayout = errors.New("binary layout violation")

	// ErrEncoding indicates a value that does not fit its field's numeric
	// range or string width during encode.
	ErrEncoding = errors.New("value not representable in field")

	// ErrParse indicates an unrecognized header token or a malformed
	// numeric token in a text format.
	ErrParse = errors.New("parse error")

	// ErrMalformed indicates a required marker or region that is missing
	// or duplicated in a markup/text report.
	ErrMalformed = errors.New("malformed input")

	// ErrUnsupportedFormat indicates a recognized label or code with no
	// implementation, e.g. a phase-resolution code outside the known table
	// or a measurement program that is identified but not supported.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrInvalidArgument indicates a caller-supplied option outside the
	// documented set.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnknownMeasurement indicates a measurement-program label absent
	// from the dispatch table entirely, as opposed to present but
	// unimplemented (ErrUnsupportedFormat).
	ErrUnknownMeasurement = errors.New("unknown measurement type")
)
