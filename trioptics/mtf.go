// Package trioptics extracts MTF measurement tables and acquisition
// metadata from instrument report files.
//
// Two incompatible report schemas exist behind the one logical format:
// the legacy escaped-text layout (SchemaV4) and the structured-markup
// layout (SchemaV5). Both decode the same entities, but their physical
// layouts differ enough to need independent extraction logic. The schema
// is always selected explicitly by the caller; the reports' own version
// hints are too fragile to sniff.
package trioptics

import (
	"fmt"

	"github.com/robert-malhotra/go-metrology/internal/text"
	"github.com/robert-malhotra/go-metrology/metrology"
)

// Schema identifies a report layout generation.
type Schema int

const (
	// SchemaV4 is the legacy escaped-text report layout.
	SchemaV4 Schema = iota
	// SchemaV5 is the structured-markup report layout.
	SchemaV5
)

// Escape tokens of the legacy layout. These literal sequences appear
// nowhere else in the files.
const (
	escTab      = "=09" // tab
	escBlockEnd = "=97" // em dash closing an MTF block
	escDegree   = "=B0" // degree sign
)

// ReadMTFvsField extracts tangential and sagittal MTF versus field
// height from a report, using the explicitly selected schema. When
// withMeta is set, the acquisition metadata block is parsed as well and
// attached to the record.
func ReadMTFvsField(report string, schema Schema, withMeta bool) (*metrology.MTFField, error) {
	var (
		rec *metrology.MTFField
		err error
	)
	switch schema {
	case SchemaV4:
		rec, err = readMTFvsFieldV4(report)
	case SchemaV5:
		rec, err = readMTFvsFieldV5(report)
	default:
		return nil, fmt.Errorf("%w: schema %d not among v4, v5", metrology.ErrInvalidArgument, schema)
	}
	if err != nil {
		return nil, err
	}
	if withMeta {
		meta, err := ParseMetadata(report, schema)
		if err != nil {
			return nil, err
		}
		rec.Meta = meta
	}
	return rec, nil
}

// ReadMTFvsFieldFile reads the report at path (Windows-1252, as the
// instrument writes it) and extracts MTF versus field.
func ReadMTFvsFieldFile(path string, schema Schema, withMeta bool) (*metrology.MTFField, error) {
	report, err := text.ReadFileWindows1252(path)
	if err != nil {
		return nil, err
	}
	return ReadMTFvsField(report, schema, withMeta)
}

// ParseMetadata extracts the acquisition metadata block of a report,
// keyed by canonical name (operator, time, sample_id, instrument,
// instrument_sn, collimator, wavelength, efl, fno, obj_angle, focus_pos,
// azimuth).
func ParseMetadata(report string, schema Schema) (map[string]interface{}, error) {
	switch schema {
	case SchemaV4:
		return parseMetadataV4(report)
	case SchemaV5:
		return parseMetadataV5(report)
	default:
		return nil, fmt.Errorf("%w: schema %d not among v4, v5", metrology.ErrInvalidArgument, schema)
	}
}
