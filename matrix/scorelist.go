package matrix

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/hupe1980/vemos/record"
	"github.com/hupe1980/vemos/vemoserr"
)

// ScoreRow is one pair of a score list.
type ScoreRow struct {
	ID1, ID2 string
	Values   []float64 // one per metric; NaN where the cell was empty
	Match    bool      // ground truth "Y"
	Line     int
}

// ScoreList is a sparse CSV score file:
//
//	ID1,ID2,metric1,...,metricK,GroundTruth
//
// Each metric column becomes one matrix.
type ScoreList struct {
	Metrics []string
	Rows    []ScoreRow
}

// ReadScoreList parses a score list. Every row must have as many cells as
// the header.
func ReadScoreList(r io.Reader) (*ScoreList, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, vemoserr.NewIngestionError("", 1, "missing header", nil)
		}
		return nil, vemoserr.NewIngestionError("", 1, "malformed header", err)
	}
	if len(header) < 3 {
		return nil, vemoserr.NewIngestionError("", 1, "header needs ID1, ID2 and a ground truth column", nil)
	}
	sl := &ScoreList{Metrics: make([]string, 0, len(header)-3)}
	for _, name := range header[2 : len(header)-1] {
		sl.Metrics = append(sl.Metrics, strings.TrimSpace(name))
	}

	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			line := 0
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				line = perr.Line
			}
			return nil, vemoserr.NewIngestionError("", line, "malformed score row", err)
		}
		line, _ := cr.FieldPos(0)

		sr := ScoreRow{
			ID1:    strings.TrimSpace(row[0]),
			ID2:    strings.TrimSpace(row[1]),
			Values: make([]float64, len(sl.Metrics)),
			Line:   line,
		}
		for k, cell := range row[2 : len(row)-1] {
			cell = strings.TrimSpace(cell)
			if cell == "" {
				sr.Values[k] = math.NaN()
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, vemoserr.NewIngestionError("", line, fmt.Sprintf("metric %q", sl.Metrics[k]), err)
			}
			sr.Values[k] = v
		}
		gt := strings.TrimSpace(row[len(row)-1])
		sr.Match = gt == "Y" || gt == "y"
		sl.Rows = append(sl.Rows, sr)
	}
	return sl, nil
}

// IDs returns every id of the list in first-seen order.
func (sl *ScoreList) IDs() []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, r := range sl.Rows {
		for _, id := range [2]string{r.ID1, r.ID2} {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// Scatter builds one matrix per metric, sized to set. Each value lands at
// [index(ID1)][index(ID2)] only; the mirrored cell stays untouched.
func (sl *ScoreList) Scatter(set *record.Set, kind Kind, path string) ([]*Matrix, error) {
	n := set.Len()
	out := make([]*Matrix, len(sl.Metrics))
	for k, name := range sl.Metrics {
		out[k] = &Matrix{Name: name, Kind: kind, Format: FormatList, Path: path, Data: NewDense(n)}
	}
	for _, r := range sl.Rows {
		i, j := set.IndexOf(r.ID1), set.IndexOf(r.ID2)
		if i < 0 || j < 0 {
			return nil, vemoserr.NewIngestionError(path, r.Line,
				fmt.Sprintf("unknown record in pair (%s, %s)", r.ID1, r.ID2), record.ErrUnknownID)
		}
		for k, v := range r.Values {
			if !math.IsNaN(v) {
				out[k].Data.Set(i, j, v)
			}
		}
	}
	return out, nil
}

// ApplyGroundTruth adds a mutual match to set for every row marked "Y".
func (sl *ScoreList) ApplyGroundTruth(set *record.Set) error {
	for _, r := range sl.Rows {
		if !r.Match {
			continue
		}
		if err := set.AddMatch(r.ID1, r.ID2); err != nil {
			return vemoserr.NewIngestionError("", r.Line, "ground truth", err)
		}
	}
	return nil
}
