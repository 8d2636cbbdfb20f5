package distance

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func plane(w, h int, f func(x, y int) float64) Plane {
	p := NewPlane(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p.Pix[y*w+x] = f(x, y)
		}
	}
	return p
}

func TestFlatMetrics(t *testing.T) {
	a := []float64{1, 2, 3, 4}
	b := []float64{1, 0, 3, 8}

	tests := []struct {
		name     string
		fn       func(a, b []float64) float64
		expected float64
	}{
		{"SquaredL2", SquaredL2, 20},
		{"Euclidean", Euclidean, math.Sqrt(20)},
		{"Hamming", Hamming, 2},
		{"MSE", MSE, 5},
		{"NRMSE", NRMSE, math.Sqrt(5) / math.Sqrt(7.5)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, tt.fn(a, b), 1e-12)
		})
	}

	assert.True(t, math.IsNaN(NRMSE([]float64{0, 0}, []float64{1, 1})))
	assert.True(t, math.IsNaN(MSE(nil, nil)))
}

func TestCenterCrop(t *testing.T) {
	big := plane(4, 4, func(x, y int) float64 { return float64(y*4 + x) })
	small := NewPlane(2, 2)

	a, b := CenterCrop(big, small)
	assert.Equal(t, 2, a.Width)
	assert.Equal(t, 2, a.Height)
	assert.Equal(t, []float64{5, 6, 9, 10}, a.Pix)
	assert.Equal(t, small, b)
}

func TestSSIM(t *testing.T) {
	a := plane(16, 16, func(x, y int) float64 { return float64((x*7+y*3)%11) / 10 })
	same, err := SSIM(a, a, DefaultSSIMOptions())
	require.NoError(t, err)
	assert.InDelta(t, 1.0, same, 1e-12)

	noisy := plane(16, 16, func(x, y int) float64 { return a.At(x, y)*0.5 + float64((x+y)%2)*0.3 })
	s, err := SSIM(a, noisy, DefaultSSIMOptions())
	require.NoError(t, err)
	assert.Less(t, s, 1.0)
	assert.Greater(t, s, -1.0)

	_, err = SSIM(NewPlane(4, 4), NewPlane(4, 4), DefaultSSIMOptions())
	require.Error(t, err)
	_, err = SSIM(a, NewPlane(8, 8), DefaultSSIMOptions())
	require.Error(t, err)
}

func TestMirror(t *testing.T) {
	got := make([]int, 0, 10)
	for i := -3; i < 7; i++ {
		got = append(got, mirror(i, 4))
	}
	assert.Equal(t, []int{2, 1, 0, 0, 1, 2, 3, 3, 2, 1}, got)
}

func TestProvider(t *testing.T) {
	a := plane(8, 8, func(x, y int) float64 { return float64(x) })
	b := plane(10, 9, func(x, y int) float64 { return float64(x - 1) })

	for m := MetricEuclidean; m <= MetricSSIM; m++ {
		t.Run(m.String(), func(t *testing.T) {
			fn, err := Provider(m)
			require.NoError(t, err)
			v, err := fn(a, b)
			require.NoError(t, err)
			assert.False(t, math.IsNaN(v))

			parsed, err := ParseMetric(m.String())
			require.NoError(t, err)
			assert.Equal(t, m, parsed)
		})
	}

	fn, err := Provider(MetricHamming)
	require.NoError(t, err)
	v, err := fn(a, b)
	require.NoError(t, err)
	assert.Equal(t, 0.0, v, "centre crop aligns the shifted ramp")

	_, err = Provider(Metric(42))
	require.Error(t, err)
	_, err = ParseMetric("cosine")
	require.Error(t, err)

	assert.True(t, MetricSSIM.IsSimilarity())
	assert.False(t, MetricMSE.IsSimilarity())
}
