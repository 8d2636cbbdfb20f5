package distance

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrEmptySample is returned when a plane has no values.
var ErrEmptySample = errors.New("empty sample")

// Plane is a row-major 2-D sample.
type Plane struct {
	Width, Height int
	Pix           []float64
}

// NewPlane allocates a zeroed plane.
func NewPlane(width, height int) Plane {
	return Plane{Width: width, Height: height, Pix: make([]float64, width*height)}
}

// At returns the value at column x, row y.
func (p Plane) At(x, y int) float64 {
	return p.Pix[y*p.Width+x]
}

// Bytes is the memory held by the plane's values.
func (p Plane) Bytes() int64 {
	return int64(len(p.Pix)) * 8
}

// Crop returns the w×h window starting at (x0, y0) as a new plane.
func (p Plane) Crop(x0, y0, w, h int) Plane {
	out := NewPlane(w, h)
	for y := 0; y < h; y++ {
		copy(out.Pix[y*w:(y+1)*w], p.Pix[(y0+y)*p.Width+x0:])
	}
	return out
}

// CenterCrop crops a and b around their centres to the common size.
func CenterCrop(a, b Plane) (Plane, Plane) {
	w, h := min(a.Width, b.Width), min(a.Height, b.Height)
	crop := func(p Plane) Plane {
		if p.Width == w && p.Height == h {
			return p
		}
		return p.Crop(p.Width/2-w/2, p.Height/2-h/2, w, h)
	}
	return crop(a), crop(b)
}

// SquaredL2 returns the sum of squared differences of two equally long slices.
func SquaredL2(a, b []float64) float64 {
	var s float64
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return s
}

// Euclidean returns the L2 norm of a-b.
func Euclidean(a, b []float64) float64 {
	return math.Sqrt(SquaredL2(a, b))
}

// Hamming returns the number of positions where a and b differ.
func Hamming(a, b []float64) float64 {
	var n int
	for i := range a {
		if a[i] != b[i] {
			n++
		}
	}
	return float64(n)
}

// MSE returns the mean squared error.
func MSE(a, b []float64) float64 {
	if len(a) == 0 {
		return math.NaN()
	}
	return SquaredL2(a, b) / float64(len(a))
}

// NRMSE returns sqrt(MSE) divided by the root mean square of the reference
// a. It is NaN when a is all zero.
func NRMSE(a, b []float64) float64 {
	if len(a) == 0 {
		return math.NaN()
	}
	denom := math.Sqrt(SquaredL2(a, make([]float64, len(a))) / float64(len(a)))
	if denom == 0 {
		return math.NaN()
	}
	return math.Sqrt(MSE(a, b)) / denom
}

// Metric identifies a sample comparison.
type Metric int

const (
	MetricEuclidean Metric = iota
	MetricHamming
	MetricMSE
	MetricNRMSE
	MetricSSIM
)

func (m Metric) String() string {
	switch m {
	case MetricEuclidean:
		return "Euclidean"
	case MetricHamming:
		return "Hamming"
	case MetricMSE:
		return "MSE"
	case MetricNRMSE:
		return "NRMSE"
	case MetricSSIM:
		return "SSIM"
	default:
		return fmt.Sprintf("Unknown(%d)", m)
	}
}

// IsSimilarity reports whether higher scores mean more alike.
func (m Metric) IsSimilarity() bool {
	return m == MetricSSIM
}

// ParseMetric parses a metric name case-insensitively.
func ParseMetric(s string) (Metric, error) {
	for m := MetricEuclidean; m <= MetricSSIM; m++ {
		if strings.EqualFold(strings.TrimSpace(s), m.String()) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown metric %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (m Metric) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Metric) UnmarshalText(text []byte) error {
	parsed, err := ParseMetric(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Func compares two planes.
type Func func(a, b Plane) (float64, error)

// Provider returns the comparison for m. Planes are centre-cropped first.
func Provider(m Metric) (Func, error) {
	var flat func(a, b []float64) float64
	switch m {
	case MetricEuclidean:
		flat = Euclidean
	case MetricHamming:
		flat = Hamming
	case MetricMSE:
		flat = MSE
	case MetricNRMSE:
		flat = NRMSE
	case MetricSSIM:
		return func(a, b Plane) (float64, error) {
			a, b = CenterCrop(a, b)
			return SSIM(a, b, DefaultSSIMOptions())
		}, nil
	default:
		return nil, fmt.Errorf("unsupported metric: %v", m)
	}
	return func(a, b Plane) (float64, error) {
		if len(a.Pix) == 0 || len(b.Pix) == 0 {
			return 0, ErrEmptySample
		}
		a, b = CenterCrop(a, b)
		return flat(a.Pix, b.Pix), nil
	}, nil
}
