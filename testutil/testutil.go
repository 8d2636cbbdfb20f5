package testutil

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"math/rand"
	"strings"
	"sync"

	"github.com/hupe1980/vemos/matrix"
	"github.com/hupe1980/vemos/record"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float64 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// ScoreMatrix returns a symmetric n×n matrix of uniform [0, 1) scores with
// a NaN diagonal. Off-diagonal pairs are NaN with probability nanRate.
func (r *RNG) ScoreMatrix(n int, nanRate float64) *matrix.Dense {
	d := matrix.NewDense(n)
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := 0; i < n; i++ {
		for j := 0; j < i; j++ {
			if r.rand.Float64() < nanRate {
				continue
			}
			v := r.rand.Float64()
			d.Set(i, j, v)
			d.Set(j, i, v)
		}
	}
	return d
}

// SeparableScores returns a symmetric matrix over set in which matched
// pairs score around hi and other pairs around lo, each with uniform noise
// of the given amplitude. The diagonal stays NaN.
func (r *RNG) SeparableScores(set *record.Set, hi, lo, noise float64) *matrix.Dense {
	n := set.Len()
	d := matrix.NewDense(n)
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := 0; i < n; i++ {
		for j := 0; j < i; j++ {
			base := lo
			if set.At(i).HasMatch(set.At(j).ID) {
				base = hi
			}
			v := base + (r.rand.Float64()*2-1)*noise
			d.Set(i, j, v)
			d.Set(j, i, v)
		}
	}
	return d
}

// Records returns a set with one file-less record per id, all in group.
func Records(group string, ids ...string) *record.Set {
	set := record.NewSet()
	for _, id := range ids {
		if err := set.Add(record.New(id, []string{group})); err != nil {
			panic(err)
		}
	}
	return set
}

// Match adds mutual matches for consecutive id pairs: Match(set, "a", "b",
// "c", "d") matches a with b and c with d.
func Match(set *record.Set, ids ...string) *record.Set {
	if len(ids)%2 != 0 {
		panic("testutil: Match needs id pairs")
	}
	for k := 0; k < len(ids); k += 2 {
		if err := set.AddMatch(ids[k], ids[k+1]); err != nil {
			panic(err)
		}
	}
	return set
}

// DenseText formats rows as a whitespace delimited matrix file.
func DenseText(rows [][]float64) string {
	var b strings.Builder
	for _, row := range rows {
		for j, v := range row {
			if j > 0 {
				b.WriteByte(' ')
			}
			if math.IsNaN(v) {
				b.WriteString("nan")
			} else {
				fmt.Fprintf(&b, "%g", v)
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// GrayPNG encodes a w×h PNG filled with one 16-bit grey level.
func GrayPNG(w, h int, level uint16) []byte {
	img := image.NewGray16(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray16(x, y, color.Gray16{Y: level})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
