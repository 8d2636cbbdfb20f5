// Package matrix holds pairwise score matrices: parsing, symmetrization,
// validation against the record count and summary statistics.
//
// Scores are float64 with NaN marking an unknown pair.
package matrix

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Dense is a square N×N matrix stored row-major.
type Dense struct {
	n    int
	data []float64
}

// NewDense returns an n×n matrix filled with NaN.
func NewDense(n int) *Dense {
	d := &Dense{n: n, data: make([]float64, n*n)}
	for i := range d.data {
		d.data[i] = math.NaN()
	}
	return d
}

// NewDenseFromRows copies rows into a new matrix. rows must be square.
func NewDenseFromRows(rows [][]float64) (*Dense, error) {
	n := len(rows)
	d := &Dense{n: n, data: make([]float64, 0, n*n)}
	for i, row := range rows {
		if len(row) != n {
			return nil, fmt.Errorf("row %d has %d columns, expected %d", i, len(row), n)
		}
		d.data = append(d.data, row...)
	}
	return d, nil
}

// N returns the dimension.
func (d *Dense) N() int {
	if d == nil {
		return 0
	}
	return d.n
}

// At returns the value at row i, column j.
func (d *Dense) At(i, j int) float64 {
	return d.data[i*d.n+j]
}

// Set stores v at row i, column j.
func (d *Dense) Set(i, j int, v float64) {
	d.data[i*d.n+j] = v
}

// Row returns a copy of row i.
func (d *Dense) Row(i int) []float64 {
	out := make([]float64, d.n)
	copy(out, d.data[i*d.n:(i+1)*d.n])
	return out
}

// Rows returns a copy of the matrix as a slice of rows.
func (d *Dense) Rows() [][]float64 {
	out := make([][]float64, d.n)
	for i := range out {
		out[i] = d.Row(i)
	}
	return out
}

// Clone returns a deep copy.
func (d *Dense) Clone() *Dense {
	out := &Dense{n: d.n, data: make([]float64, len(d.data))}
	copy(out.data, d.data)
	return out
}

// Defined returns the number of non-NaN entries.
func (d *Dense) Defined() int {
	count := 0
	for _, v := range d.data {
		if !math.IsNaN(v) {
			count++
		}
	}
	return count
}

// Default tolerances of IsSymmetric, matching numpy.allclose.
const (
	DefaultRelTol = 1e-5
	DefaultAbsTol = 1e-8
)

// IsSymmetric reports whether |a[i][j]-a[j][i]| <= atol + rtol*|a[j][i]| for
// every pair. Two NaN are equal; NaN against a number is not.
func (d *Dense) IsSymmetric(rtol, atol float64) bool {
	for i := 0; i < d.n; i++ {
		for j := 0; j < i; j++ {
			a, b := d.At(i, j), d.At(j, i)
			if !allClose(a, b, rtol, atol) || !allClose(b, a, rtol, atol) {
				return false
			}
		}
	}
	return true
}

func allClose(a, b, rtol, atol float64) bool {
	aNaN, bNaN := math.IsNaN(a), math.IsNaN(b)
	if aNaN || bNaN {
		return aNaN && bNaN
	}
	if a == b {
		return true
	}
	return math.Abs(a-b) <= atol+rtol*math.Abs(b)
}

// MarshalJSON encodes the matrix as rows of numbers with NaN as null.
func (d *Dense) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i := 0; i < d.n; i++ {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('[')
		for j := 0; j < d.n; j++ {
			if j > 0 {
				buf.WriteByte(',')
			}
			v := d.At(i, j)
			switch {
			case math.IsNaN(v):
				buf.WriteString("null")
			case math.IsInf(v, 0):
				return nil, fmt.Errorf("cannot encode infinite score at (%d, %d)", i, j)
			default:
				buf.Write(strconv.AppendFloat(nil, v, 'g', -1, 64))
			}
		}
		buf.WriteByte(']')
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes rows of numbers where null is NaN.
func (d *Dense) UnmarshalJSON(data []byte) error {
	var rows [][]*float64
	if err := json.Unmarshal(data, &rows); err != nil {
		return err
	}
	n := len(rows)
	out := &Dense{n: n, data: make([]float64, 0, n*n)}
	for i, row := range rows {
		if len(row) != n {
			return fmt.Errorf("row %d has %d columns, expected %d", i, len(row), n)
		}
		for _, v := range row {
			if v == nil {
				out.data = append(out.data, math.NaN())
			} else {
				out.data = append(out.data, *v)
			}
		}
	}
	*d = *out
	return nil
}
