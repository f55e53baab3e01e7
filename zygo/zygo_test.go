package zygo

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/robert-malhotra/go-metrology/internal/layout"
	"github.com/robert-malhotra/go-metrology/metrology"
)

func TestHeaderLayoutIsWellFormed(t *testing.T) {
	require.NoError(t, HeaderLayout.Validate())
	assert.Equal(t, HeaderSize, HeaderLayout.Size)
}

func TestHeaderDefaultsRoundTrip(t *testing.T) {
	buf, err := layout.Encode(nil, HeaderLayout)
	require.NoError(t, err)
	require.Len(t, buf, HeaderSize)

	meta, err := DecodeHeader(buf)
	require.NoError(t, err)
	assert.Equal(t, uint32(MagicNumber), meta["magic_number"])
	assert.Equal(t, uint32(HeaderSize), meta["header_size"])
	assert.Equal(t, uint16(1), meta["phase_res"])
	assert.Equal(t, float32(0.5), meta["scale_factor"])
	assert.InDelta(t, DefaultWavelength, float64(meta["wavelength"].(float32)), 1e-13)
	assert.Equal(t, "   1X", meta["zoom_descr"])
	// The written byte image keeps the vendor's NUL tail after the
	// space-padded body.
	assert.Equal(t, []byte("   1X \x00\x00"), buf[562:570])
}

// buildDat assembles a file image: a header with the given overrides,
// then little-endian intensity samples, then big-endian phase codes.
func buildDat(t *testing.T, overrides map[string]interface{}, intensity []uint16, codes []int32) []byte {
	t.Helper()
	buf, err := layout.Encode(overrides, HeaderLayout)
	require.NoError(t, err)
	for _, v := range intensity {
		buf = binary.LittleEndian.AppendUint16(buf, v)
	}
	for _, c := range codes {
		buf = binary.BigEndian.AppendUint32(buf, uint32(c))
	}
	return buf
}

func TestReadDatPhaseConversion(t *testing.T) {
	// phase_res code 1 selects resolution factor 32768, so code 32768 is
	// exactly one wavelength of OPD.
	const wavelengthM = 632.8e-9
	contents := buildDat(t, map[string]interface{}{
		"scale_factor":     1.0,
		"obliquity_factor": 1.0,
		"wavelength":       wavelengthM,
		"phase_res":        1,
		"cn_width":         2,
		"cn_height":        2,
	}, nil, []int32{0, 32768, 2147483640, -32768})

	m, err := ReadDat(contents, metrology.BucketFirst)
	require.NoError(t, err)
	require.NotNil(t, m.Phase)
	assert.Nil(t, m.Intensity)

	const wavelengthNM = 632.8
	assert.Equal(t, 0.0, m.Phase.At(0, 0))
	assert.InDelta(t, wavelengthNM, m.Phase.At(0, 1), 1e-4)
	assert.True(t, math.IsNaN(m.Phase.At(1, 0)))
	assert.InDelta(t, -wavelengthNM, m.Phase.At(1, 1), 1e-4)
}

func TestReadDatBucketPolicies(t *testing.T) {
	overrides := map[string]interface{}{
		"ac_width":     2,
		"ac_height":    1,
		"ac_n_buckets": 2,
		"cn_width":     2,
		"cn_height":    1,
	}
	intensity := []uint16{10, 20, 30, 40} // bucket 0: {10, 20}, bucket 1: {30, 40}
	codes := []int32{0, 0}

	cases := []struct {
		policy metrology.BucketPolicy
		want   []uint16
	}{
		{metrology.BucketFirst, []uint16{10, 20}},
		{metrology.BucketLast, []uint16{30, 40}},
		{metrology.BucketAverage, []uint16{20, 30}},
	}
	for _, tc := range cases {
		m, err := ReadDat(buildDat(t, overrides, intensity, codes), tc.policy)
		require.NoError(t, err)
		require.NotNil(t, m.Intensity)
		assert.Equal(t, tc.want, m.Intensity.Counts)
	}

	_, err := ReadDat(buildDat(t, overrides, intensity, codes), metrology.BucketPolicy(42))
	assert.ErrorIs(t, err, metrology.ErrInvalidArgument)
}

func TestReadDatUnknownPhaseResolution(t *testing.T) {
	contents := buildDat(t, map[string]interface{}{
		"phase_res": 3,
		"cn_width":  1,
		"cn_height": 1,
	}, nil, []int32{0})

	_, err := ReadDat(contents, metrology.BucketFirst)
	require.ErrorIs(t, err, metrology.ErrUnsupportedFormat)
	assert.Contains(t, err.Error(), "phase_res")
}

func TestReadDatTruncated(t *testing.T) {
	_, err := ReadDat(make([]byte, 100), metrology.BucketFirst)
	assert.ErrorIs(t, err, metrology.ErrLayout)

	// Full header declaring more data than the file holds.
	contents := buildDat(t, map[string]interface{}{
		"cn_width":  4,
		"cn_height": 4,
	}, nil, []int32{0})
	_, err = ReadDat(contents, metrology.BucketFirst)
	assert.ErrorIs(t, err, metrology.ErrLayout)
}

func TestWriteDatRoundTrip(t *testing.T) {
	const wavelength = 0.6328 // um
	phase := mat.NewDense(3, 4, []float64{
		0, 12.5, -310.25, 99.9,
		math.NaN(), 0.031, -0.5, 250,
		-99.875, 633, math.NaN(), 1,
	})

	buf, err := WriteDat(phase, 0.1, wavelength)
	require.NoError(t, err)
	require.Len(t, buf, HeaderSize+3*4*4)

	m, err := ReadDat(buf, metrology.BucketFirst)
	require.NoError(t, err)

	// One quantization step is wavelength/32768 um of surface height.
	step := wavelength / 32768 * 1e3 // nm
	rows, cols := phase.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			want := phase.At(i, j)
			got := m.Phase.At(i, j)
			if math.IsNaN(want) {
				assert.True(t, math.IsNaN(got), "cell (%d,%d) should stay NaN", i, j)
				continue
			}
			assert.InDelta(t, want, got, step, "cell (%d,%d)", i, j)
		}
	}

	assert.Equal(t, uint16(3), m.Meta["cn_height"])
	assert.Equal(t, uint16(1), m.Meta["phase_res"])
}
