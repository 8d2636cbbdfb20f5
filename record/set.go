package record

import (
	"encoding/json"
	"errors"
	"fmt"
	"iter"

	"github.com/RoaringBitmap/roaring/v2"
)

var (
	// ErrDuplicateID is returned when a record id is already present in a set.
	ErrDuplicateID = errors.New("duplicate record id")

	// ErrUnknownID is returned when an id does not reference a record of the set.
	ErrUnknownID = errors.New("unknown record id")
)

// MatchRepair describes a reverse match link that had to be added.
type MatchRepair struct {
	// From lists To as a match but To did not list From.
	From string
	To   string
}

// Set is an ordered collection of records with unique ids.
//
// Record order is insertion order and defines matrix row/column indices.
// Set is not safe for concurrent mutation.
type Set struct {
	records []*Record
	index   map[string]int
}

// NewSet creates an empty set.
func NewSet() *Set {
	return &Set{index: make(map[string]int)}
}

// Len returns the number of records.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.records)
}

// Add appends a record. The id must not be in use.
func (s *Set) Add(r *Record) error {
	if _, ok := s.index[r.ID]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateID, r.ID)
	}
	if r.Files == nil {
		r.Files = make(map[string]string)
	}
	s.index[r.ID] = len(s.records)
	s.records = append(s.records, r)
	return nil
}

// Get returns the record with the given id.
func (s *Set) Get(id string) (*Record, bool) {
	i, ok := s.index[id]
	if !ok {
		return nil, false
	}
	return s.records[i], true
}

// IndexOf returns the position of id, or -1.
func (s *Set) IndexOf(id string) int {
	if i, ok := s.index[id]; ok {
		return i
	}
	return -1
}

// At returns the i-th record.
func (s *Set) At(i int) *Record {
	return s.records[i]
}

// All iterates over index/record pairs in order.
func (s *Set) All() iter.Seq2[int, *Record] {
	return func(yield func(int, *Record) bool) {
		for i, r := range s.records {
			if !yield(i, r) {
				return
			}
		}
	}
}

// IDs returns the record ids in order.
func (s *Set) IDs() []string {
	ids := make([]string, len(s.records))
	for i, r := range s.records {
		ids[i] = r.ID
	}
	return ids
}

// Rekey renames every record to fn(record). Matches referencing renamed
// records are rewritten. It returns the old → new id mapping.
func (s *Set) Rekey(fn func(r *Record) string) (map[string]string, error) {
	mapping := make(map[string]string, len(s.records))
	index := make(map[string]int, len(s.records))
	for i, r := range s.records {
		newID := fn(r)
		if _, dup := index[newID]; dup {
			return nil, fmt.Errorf("%w: %q after rekey", ErrDuplicateID, newID)
		}
		mapping[r.ID] = newID
		index[newID] = i
	}
	for _, r := range s.records {
		r.ID = mapping[r.ID]
		for k, m := range r.Matches {
			if renamed, ok := mapping[m]; ok {
				r.Matches[k] = renamed
			}
		}
	}
	s.index = index
	return mapping, nil
}

// AddMatch records a mutual match between a and b. Existing links are kept.
func (s *Set) AddMatch(a, b string) error {
	ra, ok := s.Get(a)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownID, a)
	}
	rb, ok := s.Get(b)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownID, b)
	}
	if !ra.HasMatch(b) {
		ra.Matches = append(ra.Matches, b)
	}
	if !rb.HasMatch(a) {
		rb.Matches = append(rb.Matches, a)
	}
	return nil
}

// RepairMatches adds every missing reverse match link and returns the repairs
// in discovery order. Matches naming ids outside the set are kept on the
// record and left alone.
func (s *Set) RepairMatches() []MatchRepair {
	var repairs []MatchRepair
	for _, r := range s.records {
		// Matches may grow while iterating when r matches itself; index by position.
		for k := 0; k < len(r.Matches); k++ {
			other, ok := s.Get(r.Matches[k])
			if !ok {
				continue
			}
			if !other.HasMatch(r.ID) {
				other.Matches = append(other.Matches, r.ID)
				repairs = append(repairs, MatchRepair{From: r.ID, To: other.ID})
			}
		}
	}
	return repairs
}

// MatchBitmaps returns, for every record index, the bitmap of matched record
// indices. Matches naming ids outside the set are skipped.
func (s *Set) MatchBitmaps() []*roaring.Bitmap {
	bitmaps := make([]*roaring.Bitmap, len(s.records))
	for i, r := range s.records {
		bm := roaring.New()
		for _, m := range r.Matches {
			if j, ok := s.index[m]; ok {
				bm.Add(uint32(j))
			}
		}
		bitmaps[i] = bm
	}
	return bitmaps
}

// Validate checks id uniqueness and match mutuality between records of the
// set. Matches naming ids outside the set are allowed.
func (s *Set) Validate() error {
	if len(s.index) != len(s.records) {
		return fmt.Errorf("%w: index holds %d ids for %d records", ErrDuplicateID, len(s.index), len(s.records))
	}
	for i, r := range s.records {
		if s.index[r.ID] != i {
			return fmt.Errorf("%w: %q", ErrDuplicateID, r.ID)
		}
		for _, m := range r.Matches {
			other, ok := s.Get(m)
			if !ok {
				continue
			}
			if !other.HasMatch(r.ID) {
				return fmt.Errorf("match %q -> %q is not mutual", r.ID, m)
			}
		}
	}
	return nil
}

// Clone returns a deep copy.
func (s *Set) Clone() *Set {
	out := &Set{
		records: make([]*Record, len(s.records)),
		index:   make(map[string]int, len(s.index)),
	}
	for i, r := range s.records {
		out.records[i] = r.Clone()
		out.index[r.ID] = i
	}
	return out
}

// MarshalJSON encodes the set as an ordered list of records.
func (s *Set) MarshalJSON() ([]byte, error) {
	if s.records == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.records)
}

// UnmarshalJSON decodes an ordered list of records and rebuilds the id index.
func (s *Set) UnmarshalJSON(data []byte) error {
	var records []*Record
	if err := json.Unmarshal(data, &records); err != nil {
		return err
	}
	*s = *NewSet()
	for _, r := range records {
		if err := s.Add(r); err != nil {
			return err
		}
	}
	return nil
}
