package trioptics

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-metrology/metrology"
)

// v4Tables builds a legacy report body holding the field legend and two
// frequency blocks, each table appearing twice as the instrument writes
// one copy per plotted view. The trailing padding keeps the tables in the
// leading slice the extractor searches.
func v4Tables() string {
	legend := "MTF=090.0=0910.0=0920.0=09Legend=09"
	tan10 := "Tan 10(lp/mm)=090.90=090.80=090.70=09x=97"
	sag10 := "Sag 10(lp/mm)=090.88=090.78=090.68=09x=97"
	tan20 := "Tan 20(lp/mm)=090.60=090.50=090.40=09x=97"
	sag20 := "Sag 20(lp/mm)=090.58=090.48=090.38=09x=97"

	once := legend + tan10 + sag10 + tan20 + sag20
	body := once + once
	return body + strings.Repeat("x", 9*len(body)+100)
}

func TestReadMTFvsFieldV4(t *testing.T) {
	rec, err := ReadMTFvsField(v4Tables(), SchemaV4, false)
	require.NoError(t, err)

	assert.Equal(t, []float64{10, 20}, rec.Freqs)
	assert.Equal(t, []float64{0, 10, 20}, rec.Fields)

	rows, cols := rec.Tan.Dims()
	require.Equal(t, 2, rows)
	require.Equal(t, 3, cols)
	assert.Equal(t, 0.90, rec.Tan.At(0, 0))
	assert.Equal(t, 0.40, rec.Tan.At(1, 2))
	assert.Equal(t, 0.88, rec.Sag.At(0, 0))
	assert.Equal(t, 0.38, rec.Sag.At(1, 2))
}

func TestReadMTFvsFieldV4MissingLegend(t *testing.T) {
	report := strings.Repeat("x", 2000)
	_, err := ReadMTFvsField(report, SchemaV4, false)
	assert.ErrorIs(t, err, metrology.ErrMalformed)
}

func TestReadMTFvsFieldV4CellCountMismatch(t *testing.T) {
	// A block with one cell more than the legend declares is format
	// drift, not data to truncate.
	report := strings.Replace(v4Tables(), "=090.90=09", "=090.90=090.95=09", 1)
	_, err := ReadMTFvsField(report, SchemaV4, false)
	assert.ErrorIs(t, err, metrology.ErrMalformed)
}

const v4Metadata = "Operator         : bob\n" +
	"Time/Date        : 14:05:02  August 31, 2019\n" +
	"Sample ID        : LENS-01\n" +
	"Instrument S/N   : 4477\n" +
	"EFL (Collimator): 300 mm\n" +
	"Wavelength      : 546 nm\n" +
	"EFL (Sample)    : 26.4664 mm\n" +
	"Object Angle    : 1.5 =B0\n" +
	"Focus Position  : 0.123 mm\n" +
	"Sample Azimuth  : -45.0 =B0\n"

func TestParseMetadataV4(t *testing.T) {
	meta, err := ParseMetadata(v4Metadata, SchemaV4)
	require.NoError(t, err)

	assert.Equal(t, "bob", meta["operator"])
	assert.Equal(t, "LENS-01", meta["sample_id"])
	assert.Equal(t, "4477", meta["instrument_sn"])
	assert.Equal(t, "Trioptics ImageMaster HR", meta["instrument"])
	assert.Equal(t, 300.0, meta["collimator"])
	assert.InDelta(t, 0.546, meta["wavelength"].(float64), 1e-12)
	assert.Equal(t, 26.4664, meta["efl"])
	assert.Equal(t, 1.5, meta["obj_angle"])
	assert.Equal(t, 0.123, meta["focus_pos"])
	assert.Equal(t, -45.0, meta["azimuth"])
	assert.Equal(t, time.Date(2019, time.August, 31, 14, 5, 2, 0, time.UTC), meta["time"])
}

func TestParseMetadataV4MissingLabel(t *testing.T) {
	broken := strings.Replace(v4Metadata, "Operator", "Driver", 1)
	_, err := ParseMetadata(broken, SchemaV4)
	assert.ErrorIs(t, err, metrology.ErrMalformed)
}

// v5Report assembles a structured-markup certificate: two header blocks,
// the caption table carrying field heights, and the measurement table.
func v5Report() string {
	var b strings.Builder
	// Real certificates open with style and layout markup; the stand-in
	// padding pushes the header block into the metadata window the
	// program-label scan expects.
	b.WriteString(strings.Repeat("x", 700) + "\n")
	b.WriteString("<pre>Company          : ACME Optics\n")
	b.WriteString("Operator         : bob\n")
	b.WriteString("Time/Date        : 14:05:02  August 31, 2019\n")
	b.WriteString("Sample ID        : LENS-01\n")
	b.WriteString("Measure Program  : MTF vs. Field\n")
	b.WriteString("filler\n")
	b.WriteString("filler\n")
	b.WriteString("filler\n")
	b.WriteString("Instrument S/N   : 4477\n</pre>\n")

	b.WriteString("<pre>filler\n")
	b.WriteString("EFL (Collimator)     : 300 mm\n")
	b.WriteString("Wavelength           : 546 nm\n")
	b.WriteString("EFL (Sample)         : 26.4664 mm\n")
	b.WriteString("F-Number             : 5.5 =20\n")
	b.WriteString("Object Angle         : 1.5 deg\n")
	b.WriteString("Focus Position       : 0.123 mm\n")
	b.WriteString("Sample Azimuth       : -45.0 deg\n</pre>\n")

	b.WriteString(v5BeginCaption)
	b.WriteString("\nn1\nn2\nn3\nn4\nn5\nn6\nn7\n")
	b.WriteString("<td>0.0</td>\n<td>10.0</td>\n<td>20.0</td>\n")
	b.WriteString("noise\nnoise\n")
	b.WriteString(v5EndCaption)
	b.WriteString("\n")

	b.WriteString(v5BeginMeasurement)
	row := func(az string, freq string, v0, v1, v2 string) {
		b.WriteString(`<tr bg><td>` + az + " " + freq + "(lp/mm)</td><td>" + v0 +
			"</td><td>" + v1 + "</td><td>" + v2 + "</td><td>trash\n")
	}
	row("Tan", "10", "0.90", "0.80", "0.70")
	row("Sag", "10", "0.88", "0.78", "0.68")
	row("Tan", "20", "0.60", "0.50", "0.40")
	row("Sag", "20", "0.58", "0.48", "0.38")
	b.WriteString(v5EndMeasurement)
	b.WriteString("\nplot markup\n")
	b.WriteString(v5CloseCertificate)
	b.WriteString("\n")
	return b.String()
}

func TestReadMTFvsFieldV5(t *testing.T) {
	rec, err := ReadMTFvsField(v5Report(), SchemaV5, true)
	require.NoError(t, err)

	assert.Equal(t, []float64{10, 20}, rec.Freqs)
	assert.Equal(t, []float64{0, 10, 20}, rec.Fields)

	rows, cols := rec.Tan.Dims()
	require.Equal(t, 2, rows)
	require.Equal(t, 3, cols)
	assert.Equal(t, 0.90, rec.Tan.At(0, 0))
	assert.Equal(t, 0.40, rec.Tan.At(1, 2))
	assert.Equal(t, 0.88, rec.Sag.At(0, 0))
	assert.Equal(t, 0.38, rec.Sag.At(1, 2))

	require.NotNil(t, rec.Meta)
	assert.Equal(t, "ACME Optics", rec.Meta["company"])
	assert.Equal(t, "bob", rec.Meta["operator"])
	assert.Equal(t, "LENS-01", rec.Meta["sample_id"])
	assert.Equal(t, "Trioptics ImageMaster", rec.Meta["instrument"])
	assert.Equal(t, "546 nm", rec.Meta["wavelength"])
	assert.Equal(t, 5.5, rec.Meta["fno"])
	assert.Equal(t, time.Date(2019, time.August, 31, 14, 5, 2, 0, time.UTC), rec.Meta["time"])
}

func TestReadMTFvsFieldV5MissingCloseMarker(t *testing.T) {
	report := strings.Replace(v5Report(), v5CloseCertificate, "", 1)
	rec, err := ReadMTFvsField(report, SchemaV5, false)
	assert.ErrorIs(t, err, metrology.ErrMalformed)
	assert.Nil(t, rec)
}

func TestReadMTFvsFieldV5RowWidthMismatch(t *testing.T) {
	report := strings.Replace(v5Report(), "<td>0.70</td>", "", 1)
	_, err := ReadMTFvsField(report, SchemaV5, false)
	assert.ErrorIs(t, err, metrology.ErrMalformed)
}

func TestReadMTFvsFieldUnknownSchema(t *testing.T) {
	_, err := ReadMTFvsField("anything", Schema(99), false)
	assert.ErrorIs(t, err, metrology.ErrInvalidArgument)
}

func TestDispatch(t *testing.T) {
	program, rec, err := Dispatch(v5Report(), SchemaV5, false)
	require.NoError(t, err)
	assert.Equal(t, "MTF vs. Field", program)
	require.NotNil(t, rec)
	assert.Equal(t, []float64{10, 20}, rec.Freqs)
}

func TestDispatchUnimplemented(t *testing.T) {
	report := strings.Replace(v5Report(), "MTF vs. Field", "Distortion", 1)
	program, _, err := Dispatch(report, SchemaV5, false)
	assert.Equal(t, "Distortion", program)
	assert.ErrorIs(t, err, metrology.ErrUnsupportedFormat)
}

func TestDispatchUnknownProgram(t *testing.T) {
	report := strings.Replace(v5Report(), "MTF vs. Field", "Spherical Aberration", 1)
	program, _, err := Dispatch(report, SchemaV5, false)
	assert.Equal(t, "Spherical Aberration", program)
	assert.ErrorIs(t, err, metrology.ErrUnknownMeasurement)
}

func TestDispatchMissingProgramLabel(t *testing.T) {
	_, _, err := Dispatch("no label here", SchemaV5, false)
	assert.ErrorIs(t, err, metrology.ErrMalformed)
}
