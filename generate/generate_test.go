package generate

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"math"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vemos/distance"
	"github.com/hupe1980/vemos/matrix"
	"github.com/hupe1980/vemos/record"
	"github.com/hupe1980/vemos/resource"
)

func grayPNG(t *testing.T, size int, value func(x, y int) uint8) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.SetGray(x, y, color.Gray{Y: value(x, y)})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func imageFixture(t *testing.T, size int) (fstest.MapFS, *record.Set) {
	t.Helper()
	white := grayPNG(t, size, func(int, int) uint8 { return 255 })
	black := grayPNG(t, size, func(int, int) uint8 { return 0 })
	fsys := fstest.MapFS{
		"a.png": {Data: white},
		"b.png": {Data: white},
		"c.png": {Data: black},
	}

	set := record.NewSet()
	for _, id := range []string{"a", "b", "c", "d"} {
		r := record.New(id, nil)
		if id != "d" {
			r.Files["Image"] = id + ".png"
		}
		require.NoError(t, set.Add(r))
	}
	return fsys, set
}

var imageType = record.DataType{Name: "Image", Kind: record.KindImage}

func TestGenerate_Euclidean(t *testing.T) {
	fsys, set := imageFixture(t, 4)
	g, err := New(fsys)
	require.NoError(t, err)

	var progress []int
	m, err := g.Generate(context.Background(), set, Request{
		DataType: imageType,
		Metric:   distance.MetricEuclidean,
		Name:     "Image_Euclidean",
		Progress: func(i int) { progress = append(progress, i) },
	})
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1, 2, 3}, progress)
	assert.Equal(t, "Image_Euclidean", m.Name)
	assert.Equal(t, matrix.Dissimilarity, m.Kind)
	assert.Equal(t, 4, m.Data.N())

	assert.InDelta(t, 0.0, m.Data.At(0, 1), 1e-12)
	assert.InDelta(t, 0.0, m.Data.At(0, 0), 1e-12)
	assert.InDelta(t, 4.0, m.Data.At(0, 2), 1e-12)
	assert.InDelta(t, 4.0, m.Data.At(2, 1), 1e-12)
	for k := 0; k < 4; k++ {
		assert.True(t, math.IsNaN(m.Data.At(3, k)))
		assert.True(t, math.IsNaN(m.Data.At(k, 3)))
	}
	assert.Equal(t, 3, g.CachedSamples())
}

func TestGenerate_SSIM(t *testing.T) {
	fsys, set := imageFixture(t, 8)
	g, err := New(fsys)
	require.NoError(t, err)

	m, err := g.Generate(context.Background(), set, Request{
		DataType: imageType,
		Metric:   distance.MetricSSIM,
		Name:     "Image_SSIM",
	})
	require.NoError(t, err)
	assert.Equal(t, matrix.Similarity, m.Kind)
	assert.InDelta(t, 1.0, m.Data.At(0, 1), 1e-9)
	assert.Less(t, m.Data.At(0, 2), 0.01)
}

func TestGenerate_Curves(t *testing.T) {
	fsys := fstest.MapFS{
		"x.txt": {Data: []byte("# t v\n1 2\n3 4\n")},
		"y.txt": {Data: []byte("1,2\n3,5\n")},
	}
	set := record.NewSet()
	for _, id := range []string{"x", "y"} {
		r := record.New(id, nil)
		r.Files["Curve"] = id + ".txt"
		require.NoError(t, set.Add(r))
	}

	g, err := New(fsys, WithCacheSize(1))
	require.NoError(t, err)
	m, err := g.Generate(context.Background(), set, Request{
		DataType: record.DataType{Name: "Curve", Kind: record.KindCurve},
		Metric:   distance.MetricMSE,
		Name:     "Curve_MSE",
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.25, m.Data.At(0, 1), 1e-12)
	assert.InDelta(t, 0.25, m.Data.At(1, 0), 1e-12)
	assert.Equal(t, 1, g.CachedSamples())
}

func TestGenerate_MemoryBudget(t *testing.T) {
	fsys, set := imageFixture(t, 4)
	// Room for two 4×4 planes.
	rc := resource.NewController(resource.Config{SampleMemoryBytes: 2 * 16 * 8})
	g, err := New(fsys, WithResourceController(rc))
	require.NoError(t, err)

	_, err = g.Generate(context.Background(), set, Request{
		DataType: imageType,
		Metric:   distance.MetricHamming,
		Name:     "Image_Hamming",
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, g.CachedSamples(), 2)
	assert.Equal(t, int64(g.CachedSamples()*16*8), rc.MemoryUsage())

	g.Purge()
	assert.Equal(t, int64(0), rc.MemoryUsage())
}

func TestGenerate_Errors(t *testing.T) {
	fsys, set := imageFixture(t, 4)
	g, err := New(fsys)
	require.NoError(t, err)

	_, err = g.Generate(context.Background(), set, Request{DataType: imageType})
	require.Error(t, err)

	_, err = g.Generate(context.Background(), set, Request{DataType: imageType, Metric: distance.Metric(42), Name: "x"})
	require.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = g.Generate(ctx, set, Request{DataType: imageType, Metric: distance.MetricMSE, Name: "x"})
	require.ErrorIs(t, err, context.Canceled)

	broken := fstest.MapFS{"a.png": {Data: []byte("not an image")}}
	g, err = New(broken)
	require.NoError(t, err)
	_, err = g.Generate(context.Background(), set, Request{DataType: imageType, Metric: distance.MetricMSE, Name: "x"})
	require.Error(t, err)

	_, err = parseTable([]byte("1 2\n3\n"))
	require.Error(t, err)
}
