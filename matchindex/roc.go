package matchindex

import (
	"cmp"
	"math"
	"slices"
)

// Point is one operating point of a ROC curve.
type Point struct {
	Threshold float64 `json:"threshold"`
	FPR       float64 `json:"fpr"`
	TPR       float64 `json:"tpr"`
}

// ROC returns the ROC curve of e. Pairs with GT 1 are positives and a higher
// score is more positive; the GT coding already accounts for the matrix kind.
// The curve starts at (0, 0) and ends at (1, 1). It is nil when e lacks
// positives or negatives.
func ROC(e *Entry) []Point {
	var pos, neg int
	for _, g := range e.GT {
		if g == GTPositive {
			pos++
		} else {
			neg++
		}
	}
	if pos == 0 || neg == 0 {
		return nil
	}

	type scored struct {
		v  float64
		gt uint8
	}
	items := make([]scored, len(e.All))
	for k, s := range e.All {
		items[k] = scored{v: s.Value, gt: e.GT[k]}
	}
	slices.SortStableFunc(items, func(a, b scored) int { return cmp.Compare(b.v, a.v) })

	points := make([]Point, 0, len(items)+1)
	points = append(points, Point{Threshold: math.Inf(1)})
	var tp, fp int
	for k, it := range items {
		if it.gt == GTPositive {
			tp++
		} else {
			fp++
		}
		if k+1 < len(items) && items[k+1].v == it.v {
			continue
		}
		points = append(points, Point{
			Threshold: it.v,
			FPR:       float64(fp) / float64(neg),
			TPR:       float64(tp) / float64(pos),
		})
	}
	return points
}

// AUC integrates a ROC curve with the trapezoid rule.
func AUC(points []Point) float64 {
	var area float64
	for k := 1; k < len(points); k++ {
		dx := points[k].FPR - points[k-1].FPR
		area += dx * (points[k].TPR + points[k-1].TPR) / 2
	}
	return area
}
