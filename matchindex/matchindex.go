// Package matchindex splits the scores of every matrix into match and
// nonmatch pairs according to the records' ground truth.
//
// The index is derived data: it is rebuilt whenever records or matrices
// change and never persisted.
package matchindex

import (
	"math"

	"github.com/hupe1980/vemos/matrix"
	"github.com/hupe1980/vemos/record"
	"github.com/hupe1980/vemos/vemoserr"
)

// Score is one defined matrix cell.
type Score struct {
	Value float64 `json:"value"`
	I     string  `json:"i"`
	J     string  `json:"j"`
}

// Key identifies the ordered pair of a score.
type Key struct {
	I, J string
}

// Key returns the pair key of s.
func (s Score) Key() Key {
	return Key{I: s.I, J: s.J}
}

// Ground truth codes. Which class gets 1 depends on the matrix kind so that
// the positive class always scores "better".
const (
	GTNegative uint8 = 0
	GTPositive uint8 = 1
)

// Entry holds the classified scores of one matrix.
type Entry struct {
	Kind       matrix.Kind `json:"kind"`
	Matches    []Score     `json:"matches"`
	NonMatches []Score     `json:"nonmatches"`
	All        []Score     `json:"all"`

	// GT is aligned with All: 1 for matches of a similarity matrix and for
	// nonmatches of a dissimilarity matrix, 0 otherwise.
	GT []uint8 `json:"gt"`
}

// Counts returns the number of match, nonmatch and total scores.
func (e *Entry) Counts() (matches, nonMatches, all int) {
	return len(e.Matches), len(e.NonMatches), len(e.All)
}

// Index maps matrix names to entries and remembers the matrix order.
type Index struct {
	names   []string
	entries map[string]*Entry
}

// Names returns the matrix names in store order.
func (x *Index) Names() []string {
	if x == nil {
		return nil
	}
	return append([]string(nil), x.names...)
}

// Get returns the entry of a matrix.
func (x *Index) Get(name string) (*Entry, bool) {
	if x == nil {
		return nil, false
	}
	e, ok := x.entries[name]
	return e, ok
}

// Len returns the number of entries.
func (x *Index) Len() int {
	if x == nil {
		return 0
	}
	return len(x.names)
}

// Build classifies every defined cell of m over the full cross product of
// set, diagonal and both orders included.
func Build(set *record.Set, m *matrix.Matrix) (*Entry, error) {
	n := set.Len()
	if m.Data.N() != n {
		return nil, &vemoserr.DimensionError{Matrix: m.Name, Expected: n, Actual: m.Data.N()}
	}
	bitmaps := set.MatchBitmaps()

	matchCode, nonMatchCode := GTPositive, GTNegative
	if m.Kind == matrix.Dissimilarity {
		matchCode, nonMatchCode = GTNegative, GTPositive
	}

	e := &Entry{Kind: m.Kind}
	for i := 0; i < n; i++ {
		idI := set.At(i).ID
		for j := 0; j < n; j++ {
			v := m.Data.At(i, j)
			if math.IsNaN(v) {
				continue
			}
			s := Score{Value: v, I: idI, J: set.At(j).ID}
			if bitmaps[i].Contains(uint32(j)) {
				e.Matches = append(e.Matches, s)
				e.GT = append(e.GT, matchCode)
			} else {
				e.NonMatches = append(e.NonMatches, s)
				e.GT = append(e.GT, nonMatchCode)
			}
			e.All = append(e.All, s)
		}
	}
	return e, nil
}

// BuildAll builds the entry of every matrix of store.
func BuildAll(set *record.Set, store *matrix.Store) (*Index, error) {
	x := &Index{entries: make(map[string]*Entry, store.Len())}
	for m := range store.All() {
		e, err := Build(set, m)
		if err != nil {
			return nil, err
		}
		x.names = append(x.names, m.Name)
		x.entries[m.Name] = e
	}
	return x, nil
}
