// Package fusion combines several score matrices into one by training a
// support vector classifier on their aligned scores.
//
// Only pairs scored by every input take part. The decision value of each
// pair, shifted to be non-negative, becomes the fused score.
package fusion

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/bits-and-blooms/bitset"

	"github.com/hupe1980/vemos/classifier"
	"github.com/hupe1980/vemos/matchindex"
	"github.com/hupe1980/vemos/matrix"
	"github.com/hupe1980/vemos/record"
	"github.com/hupe1980/vemos/vemoserr"
)

// Input is one matrix to fuse, identified by name, with its index entry.
type Input struct {
	Name  string
	Entry *matchindex.Entry
}

// Request describes a fusion run.
type Request struct {
	// Inputs are fused in order; the first one defines the pair universe,
	// the labels and the kind of the output.
	Inputs []Input

	Kernel classifier.KernelType

	// Name of the fused matrix.
	Name string

	// Progress, if set, is called with the index of every pair of the first
	// input before it is aligned.
	Progress func(i int)

	// ClassifierOptions are passed to classifier.New.
	ClassifierOptions []classifier.Option
}

// Result is a fused matrix with alignment statistics.
type Result struct {
	Matrix *matrix.Matrix

	// Pairs is the number of pairs used for training.
	Pairs int

	// Dropped counts pairs of the first input missing from another input.
	Dropped int

	// Retained marks the positions of the first input's pairs that were used.
	Retained *bitset.BitSet
}

// Table is the aligned feature table of a fusion run.
type Table struct {
	Features [][]float64
	Labels   []uint8
	Pairs    []matchindex.Key
	Retained *bitset.BitSet
}

// Align builds the feature table. A pair of the first input is kept only if
// every other input scored the same ordered pair; the first occurrence of a
// pair in an input wins.
func Align(ctx context.Context, req Request) (*Table, error) {
	if len(req.Inputs) == 0 {
		return nil, errors.New("no matrices to fuse")
	}
	first := req.Inputs[0]
	for _, in := range req.Inputs[1:] {
		if in.Entry.Kind != first.Entry.Kind {
			return nil, &vemoserr.FusionTypeMismatchError{
				Matrix:   in.Name,
				Expected: first.Entry.Kind.String(),
				Actual:   in.Entry.Kind.String(),
			}
		}
	}
	if len(first.Entry.GT) != len(first.Entry.All) {
		return nil, fmt.Errorf("matrix %q has %d ground truth codes for %d scores", first.Name, len(first.Entry.GT), len(first.Entry.All))
	}

	lookups := make([]map[matchindex.Key]float64, len(req.Inputs)-1)
	for k, in := range req.Inputs[1:] {
		m := make(map[matchindex.Key]float64, len(in.Entry.All))
		for _, s := range in.Entry.All {
			if _, seen := m[s.Key()]; !seen {
				m[s.Key()] = s.Value
			}
		}
		lookups[k] = m
	}

	all := first.Entry.All
	t := &Table{Retained: bitset.New(uint(len(all)))}
	for idx, s := range all {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if req.Progress != nil {
			req.Progress(idx)
		}
		row := make([]float64, 0, len(req.Inputs))
		row = append(row, s.Value)
		for _, m := range lookups {
			v, ok := m[s.Key()]
			if !ok {
				break
			}
			row = append(row, v)
		}
		if len(row) != len(req.Inputs) {
			continue
		}
		t.Retained.Set(uint(idx))
		t.Features = append(t.Features, row)
		t.Pairs = append(t.Pairs, s.Key())
	}
	for idx, ok := t.Retained.NextSet(0); ok; idx, ok = t.Retained.NextSet(idx + 1) {
		t.Labels = append(t.Labels, first.Entry.GT[idx])
	}

	if len(t.Features) == 0 {
		names := make([]string, len(req.Inputs))
		for k, in := range req.Inputs {
			names[k] = in.Name
		}
		return nil, &vemoserr.AlignmentEmptyError{Matrices: names}
	}
	return t, nil
}

// Fuse aligns the inputs, trains the classifier and scatters the shifted
// decision values into a symmetric matrix sized to set.
func Fuse(ctx context.Context, set *record.Set, req Request) (*Result, error) {
	if req.Name == "" {
		return nil, errors.New("fused matrix needs a name")
	}
	t, err := Align(ctx, req)
	if err != nil {
		return nil, err
	}

	svc := classifier.New(req.Kernel, req.ClassifierOptions...)
	if err := svc.FitContext(ctx, t.Features, t.Labels); err != nil {
		return nil, fmt.Errorf("fit %s classifier: %w", req.Kernel, err)
	}

	scores := make([]float64, len(t.Features))
	for k, x := range t.Features {
		v, err := svc.Decision(x)
		if err != nil {
			return nil, err
		}
		scores[k] = v
	}
	shift := -slices.Min(scores)

	d := matrix.NewDense(set.Len())
	for k, p := range t.Pairs {
		i, j := set.IndexOf(p.I), set.IndexOf(p.J)
		if i < 0 || j < 0 {
			return nil, fmt.Errorf("%w: pair (%s, %s)", record.ErrUnknownID, p.I, p.J)
		}
		v := math.Max(scores[k]+shift, 0)
		d.Set(i, j, v)
		d.Set(j, i, v)
	}

	return &Result{
		Matrix: &matrix.Matrix{
			Name:   req.Name,
			Kind:   req.Inputs[0].Entry.Kind,
			Format: matrix.FormatMatrix,
			Data:   d,
		},
		Pairs:    len(t.Pairs),
		Dropped:  len(req.Inputs[0].Entry.All) - len(t.Pairs),
		Retained: t.Retained,
	}, nil
}
