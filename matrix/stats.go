package matrix

import (
	"math"
	"slices"
)

// Summary describes the defined entries of a matrix.
type Summary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"std_dev"`
}

// Stats summarizes the non-NaN entries of d. The standard deviation is the
// population one. All fields are NaN except Count when d has no defined entry.
func Stats(d *Dense) Summary {
	values := make([]float64, 0, len(d.data))
	for _, v := range d.data {
		if !math.IsNaN(v) {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return Summary{Mean: math.NaN(), Median: math.NaN(), StdDev: math.NaN()}
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var sq float64
	for _, v := range values {
		sq += (v - mean) * (v - mean)
	}

	slices.Sort(values)
	mid := len(values) / 2
	median := values[mid]
	if len(values)%2 == 0 {
		median = 0.5 * (values[mid-1] + values[mid])
	}

	return Summary{
		Count:  len(values),
		Mean:   mean,
		Median: median,
		StdDev: math.Sqrt(sq / float64(len(values))),
	}
}
