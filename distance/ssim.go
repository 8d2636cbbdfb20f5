package distance

import (
	"fmt"
)

// SSIMOptions configures SSIM.
type SSIMOptions struct {
	// WindowSize is the odd side length of the uniform window.
	WindowSize int
	// DataRange is the distance between the minimum and maximum possible value.
	DataRange float64
	K1, K2    float64
}

// DefaultSSIMOptions returns a 7×7 window over values in [0, 1].
func DefaultSSIMOptions() SSIMOptions {
	return SSIMOptions{WindowSize: 7, DataRange: 1, K1: 0.01, K2: 0.03}
}

// SSIM returns the mean structural similarity of two equally sized planes.
//
// Local statistics use a uniform window with mirrored borders and sample
// covariance; the mean skips a border of half the window size.
func SSIM(a, b Plane, opts SSIMOptions) (float64, error) {
	if a.Width != b.Width || a.Height != b.Height {
		return 0, fmt.Errorf("ssim: planes are %dx%d and %dx%d", a.Width, a.Height, b.Width, b.Height)
	}
	win := opts.WindowSize
	if win < 1 || win%2 == 0 {
		return 0, fmt.Errorf("ssim: window size %d must be odd and positive", win)
	}
	if a.Width < win || a.Height < win {
		return 0, fmt.Errorf("ssim: %dx%d sample is smaller than the %dx%d window", a.Width, a.Height, win, win)
	}

	np := float64(win * win)
	covNorm := np / (np - 1)

	ux := uniformFilter(a.Pix, a.Width, a.Height, win)
	uy := uniformFilter(b.Pix, a.Width, a.Height, win)
	uxx := uniformFilter(product(a.Pix, a.Pix), a.Width, a.Height, win)
	uyy := uniformFilter(product(b.Pix, b.Pix), a.Width, a.Height, win)
	uxy := uniformFilter(product(a.Pix, b.Pix), a.Width, a.Height, win)

	c1 := (opts.K1 * opts.DataRange) * (opts.K1 * opts.DataRange)
	c2 := (opts.K2 * opts.DataRange) * (opts.K2 * opts.DataRange)

	pad := (win - 1) / 2
	var (
		sum   float64
		count int
	)
	for y := pad; y < a.Height-pad; y++ {
		for x := pad; x < a.Width-pad; x++ {
			i := y*a.Width + x
			vx := covNorm * (uxx[i] - ux[i]*ux[i])
			vy := covNorm * (uyy[i] - uy[i]*uy[i])
			vxy := covNorm * (uxy[i] - ux[i]*uy[i])
			num := (2*ux[i]*uy[i] + c1) * (2*vxy + c2)
			den := (ux[i]*ux[i] + uy[i]*uy[i] + c1) * (vx + vy + c2)
			sum += num / den
			count++
		}
	}
	return sum / float64(count), nil
}

func product(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] * b[i]
	}
	return out
}

// mirror maps an out-of-range index with half-sample symmetry (d c b a | a b c d).
func mirror(i, n int) int {
	for i < 0 || i >= n {
		if i < 0 {
			i = -i - 1
		}
		if i >= n {
			i = 2*n - i - 1
		}
	}
	return i
}

// uniformFilter returns the mean over a win×win window around every value.
func uniformFilter(src []float64, w, h, win int) []float64 {
	half := win / 2
	tmp := make([]float64, len(src))
	for y := 0; y < h; y++ {
		row := src[y*w : (y+1)*w]
		for x := 0; x < w; x++ {
			var s float64
			for k := -half; k <= half; k++ {
				s += row[mirror(x+k, w)]
			}
			tmp[y*w+x] = s / float64(win)
		}
	}
	out := make([]float64, len(src))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var s float64
			for k := -half; k <= half; k++ {
				s += tmp[mirror(y+k, h)*w+x]
			}
			out[y*w+x] = s / float64(win)
		}
	}
	return out
}
