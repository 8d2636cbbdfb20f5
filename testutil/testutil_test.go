package testutil

import (
	"bytes"
	"image/png"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vemos/matrix"
)

func TestScoreMatrix(t *testing.T) {
	rng := NewRNG(4711)

	d := rng.ScoreMatrix(6, 0.3)

	assert.Equal(t, 6, d.N())
	assert.True(t, d.IsSymmetric(matrix.DefaultRelTol, matrix.DefaultAbsTol))
	for i := 0; i < 6; i++ {
		assert.True(t, math.IsNaN(d.At(i, i)))
	}
}

func TestReset(t *testing.T) {
	rng := NewRNG(4711)

	a := rng.ScoreMatrix(4, 0).Rows()
	rng.Reset()
	b := rng.ScoreMatrix(4, 0).Rows()

	assert.Equal(t, int64(4711), rng.Seed())
	assert.Equal(t, DenseText(a), DenseText(b))
}

func TestSeparableScores(t *testing.T) {
	set := Match(Records("G", "a", "b", "c"), "a", "b")
	rng := NewRNG(1)

	d := rng.SeparableScores(set, 0.9, 0.1, 0.05)

	assert.InDelta(t, 0.9, d.At(0, 1), 0.05)
	assert.InDelta(t, 0.1, d.At(0, 2), 0.05)
	assert.Equal(t, d.At(1, 2), d.At(2, 1))
}

func TestRecords(t *testing.T) {
	set := Match(Records("G", "a", "b"), "a", "b")

	assert.Equal(t, []string{"a", "b"}, set.IDs())
	require.NoError(t, set.Validate())
	assert.Panics(t, func() { Match(set, "a") })
	assert.Panics(t, func() { Records("G", "a", "a") })
}

func TestDenseText(t *testing.T) {
	text := DenseText([][]float64{{math.NaN(), 0.5}, {0.5, math.NaN()}})

	d, err := matrix.ReadDense(strings.NewReader(text))
	require.NoError(t, err)
	assert.Equal(t, 0.5, d.At(0, 1))
	assert.True(t, math.IsNaN(d.At(1, 1)))
}

func TestGrayPNG(t *testing.T) {
	img, err := png.Decode(bytes.NewReader(GrayPNG(3, 2, 0x8000)))
	require.NoError(t, err)
	assert.Equal(t, 3, img.Bounds().Dx())
	assert.Equal(t, 2, img.Bounds().Dy())
}
