package trioptics

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-metrology/metrology"
)

const throughFocusDump = `ImgHt 0.0 ObjAngle 0.0 Focus 0.1 FreqPitch 10.0
MTF 0.9 0.8
ImgHt 1.0 ObjAngle 5.0 Focus 0.1 FreqPitch 10.0
MTF 0.7 0.6
ImgHt 0.0 ObjAngle 0.0 Focus 0.2 FreqPitch 10.0
MTF 0.5 0.4
ImgHt 1.0 ObjAngle 5.0 Focus 0.2 FreqPitch 10.0
MTF 0.3 0.2
`

func TestReadMTFvFvF(t *testing.T) {
	rec, err := ReadMTFvFvF(throughFocusDump, "scan_Tan.txt")
	require.NoError(t, err)

	assert.Equal(t, "Tan", rec.Azimuth)
	assert.Equal(t, []float64{0, 1}, rec.Fields)
	assert.Equal(t, []float64{0, 10}, rec.Freqs)

	// Focus positions recenter on their mean, in um.
	require.Len(t, rec.Focuses, 2)
	assert.InDelta(t, -50, rec.Focuses[0], 1e-9)
	assert.InDelta(t, 50, rec.Focuses[1], 1e-9)

	// Data[field][focus][freq]; records arrive focus-major.
	assert.Equal(t, []float64{0.9, 0.8}, rec.Data[0][0])
	assert.Equal(t, []float64{0.5, 0.4}, rec.Data[0][1])
	assert.Equal(t, []float64{0.7, 0.6}, rec.Data[1][0])
	assert.Equal(t, []float64{0.3, 0.2}, rec.Data[1][1])
}

func TestReadMTFvFvFAzimuthFromFilename(t *testing.T) {
	rec, err := ReadMTFvFvF(throughFocusDump, "scan_Sag.txt")
	require.NoError(t, err)
	assert.Equal(t, "Sag", rec.Azimuth)

	// Anything not ending in Tan is sagittal.
	rec, err = ReadMTFvFvF(throughFocusDump, "scan.txt")
	require.NoError(t, err)
	assert.Equal(t, "Sag", rec.Azimuth)
}

func TestReadMTFvFvFOddLineCount(t *testing.T) {
	truncated := throughFocusDump + "ImgHt 0.0 ObjAngle 0.0 Focus 0.3 FreqPitch 10.0\n"
	_, err := ReadMTFvFvF(truncated, "scan_Tan.txt")
	assert.ErrorIs(t, err, metrology.ErrMalformed)
}

func TestReadMTFvFvFIncompleteTiling(t *testing.T) {
	// Drop one record: 3 records cannot tile 2 fields x 2 focuses.
	lines := strings.SplitAfter(throughFocusDump, "\n")
	short := strings.Join(lines[:6], "")
	_, err := ReadMTFvFvF(short, "scan_Tan.txt")
	assert.ErrorIs(t, err, metrology.ErrMalformed)
}

// singlePointReport builds an escaped-text MTF vs frequency certificate:
// a tangential table, a sagittal table, each closed by a rule line.
func singlePointReport() string {
	var b strings.Builder
	b.WriteString("Focus Position  : 0.123 mm\n")
	b.WriteString("Measurement Table: MTF vs. Frequency ( Tangential )")
	b.WriteString("\r\n10=09\r\n0.90=09")
	b.WriteString("\r\n20=09\r\n0.80=09")
	b.WriteString("\n  _____ =20\n")
	b.WriteString("Measurement Table: MTF vs. Frequency ( Sagittal )")
	b.WriteString("\r\n10=09\r\n0.70=09")
	b.WriteString("\r\n20=09\r\n0.60=09")
	b.WriteString("\n  _____ =20\n")
	body := b.String()
	return body + strings.Repeat("x", 9*len(body)+100)
}

func TestReadMTF(t *testing.T) {
	rec, err := ReadMTF(singlePointReport(), false)
	require.NoError(t, err)

	assert.Equal(t, 0.123, rec.FocusMM)
	assert.Equal(t, []float64{10, 20}, rec.Freqs)
	assert.Equal(t, []float64{0.90, 0.80}, rec.Tan)
	assert.Equal(t, []float64{0.70, 0.60}, rec.Sag)
}

func TestReadMTFMissingSagTable(t *testing.T) {
	report := strings.Replace(singlePointReport(), "( Sagittal )", "( Skew )", 1)
	_, err := ReadMTF(report, false)
	assert.ErrorIs(t, err, metrology.ErrMalformed)
}

func TestReadMTFUnterminatedTable(t *testing.T) {
	report := strings.ReplaceAll(singlePointReport(), "  _____ =20", "")
	_, err := ReadMTF(report, false)
	assert.ErrorIs(t, err, metrology.ErrMalformed)
}
