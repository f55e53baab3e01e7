package codev

import (
	"bytes"
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/robert-malhotra/go-metrology/metrology"
)

func TestRowWidth(t *testing.T) {
	for _, n := range []int{585, 1170, 4096, 10000, 97, 1, 342225} {
		w := rowWidth(n)
		assert.LessOrEqual(t, w, maxRowWidth)
		assert.Zero(t, n%w, "width %d must divide %d", w, n)
		for cand := w + 1; cand <= maxRowWidth; cand++ {
			assert.NotZero(t, n%cand, "width %d also divides %d but is larger than %d", cand, n, w)
		}
	}
}

func TestWriteGridIntScaleBinding(t *testing.T) {
	// Values in [-10, 5] um: the minimum side binds, so the scale is
	// 32767/10 and the positive extreme uses only half the range.
	grid := mat.NewDense(4, 4, []float64{
		-10000, 5000, 0, 1,
		2500, -2500, 1000, -1000,
		0, 0, 0, 0,
		4999, -9999, 3, -3,
	}) // nm

	var buf bytes.Buffer
	require.NoError(t, WriteGridInt(&buf, grid, KindSurface, "scale test"))

	lines := strings.Split(buf.String(), "\n")
	require.Greater(t, len(lines), 2)
	assert.Equal(t, "scale test", lines[0])
	assert.Contains(t, lines[1], "GRD 4 4 SUR WVL 1.0 SSZ 3276.7 NDA -32768")

	// Every emitted code stays inside the signed range.
	for _, tok := range strings.Fields(strings.Join(lines[2:], " ")) {
		v, err := strconv.Atoi(tok)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, v, -32767)
		assert.LessOrEqual(t, v, 32767)
	}

	// Decoding reproduces the original within 1/scale um at every cell.
	decoded, meta, err := ReadGridInt(&buf)
	require.NoError(t, err)
	assert.Equal(t, KindSurface, meta.Kind)
	stepNM := 10.0 / 32767 * 1e3
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			assert.InDelta(t, grid.At(i, j), decoded.At(i, j), stepNM, "cell (%d,%d)", i, j)
		}
	}
}

func TestWriteGridIntOneSidedGrids(t *testing.T) {
	// All-positive values: only the maximum constrains the scale, and
	// nothing wraps through the signed range.
	grid := mat.NewDense(1, 2, []float64{2000, 10000}) // nm

	var buf bytes.Buffer
	require.NoError(t, WriteGridInt(&buf, grid, KindSurface, "one-sided"))

	lines := strings.Split(buf.String(), "\n")
	require.Greater(t, len(lines), 2)
	assert.Contains(t, lines[1], "SSZ 3276.7")
	assert.Equal(t, "6553 32767", strings.TrimSpace(lines[2]))

	decoded, _, err := ReadGridInt(&buf)
	require.NoError(t, err)
	stepNM := 10.0 / 32767 * 1e3
	assert.InDelta(t, 2000, decoded.At(0, 0), stepNM)
	assert.InDelta(t, 10000, decoded.At(0, 1), stepNM)

	// All-negative values bind on the minimum side instead.
	grid = mat.NewDense(1, 2, []float64{-8000, -4000})
	buf.Reset()
	require.NoError(t, WriteGridInt(&buf, grid, KindSurface, "one-sided"))
	decoded, _, err = ReadGridInt(&buf)
	require.NoError(t, err)
	stepNM = 8.0 / 32767 * 1e3
	assert.InDelta(t, -8000, decoded.At(0, 0), stepNM)
	assert.InDelta(t, -4000, decoded.At(0, 1), stepNM)
}

func TestWriteGridIntAllZeroGrid(t *testing.T) {
	grid := mat.NewDense(1, 2, []float64{0, 0})
	var buf bytes.Buffer
	require.NoError(t, WriteGridInt(&buf, grid, KindSurface, ""))

	decoded, _, err := ReadGridInt(&buf)
	require.NoError(t, err)
	assert.Equal(t, 0.0, decoded.At(0, 0))
	assert.Equal(t, 0.0, decoded.At(0, 1))
}

func TestWriteGridIntNaNSentinel(t *testing.T) {
	grid := mat.NewDense(2, 2, []float64{1000, math.NaN(), -1000, 500})
	var buf bytes.Buffer
	require.NoError(t, WriteGridInt(&buf, grid, KindWavefront, ""))

	decoded, meta, err := ReadGridInt(&buf)
	require.NoError(t, err)
	assert.Equal(t, KindWavefront, meta.Kind)
	assert.True(t, math.IsNaN(decoded.At(0, 1)))
	assert.False(t, math.IsNaN(decoded.At(0, 0)))
}

func TestWriteGridIntRejectsUnknownKind(t *testing.T) {
	var buf bytes.Buffer
	err := WriteGridInt(&buf, mat.NewDense(1, 1, []float64{1}), GridKind("XYZ"), "")
	assert.ErrorIs(t, err, metrology.ErrInvalidArgument)
}

func TestReadGridIntHeaderScaling(t *testing.T) {
	src := "title line\nGRD 2 2 SUR WVL 1.0 SSZ 2 NDA -32768\n0 -32768 100 200\n"
	grid, meta, err := ReadGridInt(strings.NewReader(src))
	require.NoError(t, err)

	rows, cols := grid.Dims()
	assert.Equal(t, 2, rows)
	assert.Equal(t, 2, cols)
	assert.Equal(t, "title line", meta.Title)
	assert.Equal(t, 1.0, meta.WavelengthUm)

	// 1000/WVL/SSZ = 500 nm per code.
	assert.Equal(t, 0.0, grid.At(0, 0))
	assert.True(t, math.IsNaN(grid.At(0, 1)))
	assert.Equal(t, 50000.0, grid.At(1, 0))
	assert.Equal(t, 100000.0, grid.At(1, 1))
}

func TestReadGridIntSkipsCommentLines(t *testing.T) {
	src := "! a comment\n! another\ntitle\nGRD 1 2 WFR WVL 0.5 SSZ 4 NDA -32768\n1 2\n"
	grid, meta, err := ReadGridInt(strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, "title", meta.Title)
	assert.InDelta(t, 1000/0.5/4, grid.At(0, 0), 1e-12)
}

func TestReadGridIntUnknownToken(t *testing.T) {
	src := "title\nGRD 1 1 SUR WVL 1.0 SSZ 1 NDA -32768 QQQ\n1\n"
	_, _, err := ReadGridInt(strings.NewReader(src))
	require.ErrorIs(t, err, metrology.ErrParse)
	assert.Contains(t, err.Error(), "QQQ")
}

func TestReadGridIntMissingRequiredTokens(t *testing.T) {
	cases := []struct {
		name   string
		header string
		miss   string
	}{
		{"no WVL", "GRD 1 1 SUR SSZ 1 NDA -32768", "WVL"},
		{"no SSZ", "GRD 1 1 SUR WVL 1.0 NDA -32768", "SSZ"},
		{"no NDA", "GRD 1 1 SUR WVL 1.0 SSZ 1", "NDA"},
		{"no GRD", "SUR WVL 1.0 SSZ 1 NDA -32768", "GRD"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			src := "title\n" + tc.header + "\n1\n"
			_, _, err := ReadGridInt(strings.NewReader(src))
			require.ErrorIs(t, err, metrology.ErrMalformed)
			assert.Contains(t, err.Error(), tc.miss)
		})
	}
}

func TestReadGridIntBodyCountMismatch(t *testing.T) {
	src := "title\nGRD 2 2 SUR WVL 1.0 SSZ 1 NDA -32768\n1 2 3\n"
	_, _, err := ReadGridInt(strings.NewReader(src))
	assert.ErrorIs(t, err, metrology.ErrMalformed)
}

func TestGridIntRoundTripPreservesNaNMask(t *testing.T) {
	grid := mat.NewDense(3, 5, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 5; j++ {
			grid.Set(i, j, float64((i*5+j)*37-200))
		}
	}
	grid.Set(0, 3, math.NaN())
	grid.Set(2, 2, math.NaN())

	var buf bytes.Buffer
	require.NoError(t, WriteGridInt(&buf, grid, KindSurface, ""))
	decoded, _, err := ReadGridInt(&buf)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		for j := 0; j < 5; j++ {
			assert.Equal(t, math.IsNaN(grid.At(i, j)), math.IsNaN(decoded.At(i, j)), "cell (%d,%d)", i, j)
		}
	}
}
