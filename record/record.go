// Package record defines records, record sets and groupings.
//
// A Record is one identified entity with files of one or more data types.
// Matches between records are mutual; a Set enforces unique ids and offers
// RoaringBitmap views of the match relation for fast pair classification.
package record

import (
	"maps"
	"slices"
	"strings"
)

// Record is one identified data-bearing entity.
type Record struct {
	ID      string            `json:"id"`
	Groups  []string          `json:"groups"`
	Matches []string          `json:"matches"`
	Files   map[string]string `json:"files"`
}

// New returns a record with no matches and no files.
func New(id string, groups []string) *Record {
	return &Record{
		ID:     id,
		Groups: slices.Clone(groups),
		Files:  make(map[string]string),
	}
}

// HasMatch reports whether id is listed as a match.
func (r *Record) HasMatch(id string) bool {
	return slices.Contains(r.Matches, id)
}

// SortedFileTypes returns the data type names of the record's files in sorted order.
func (r *Record) SortedFileTypes() []string {
	return slices.Sorted(maps.Keys(r.Files))
}

// DescriptionLine formats the record in description file notation,
// without the trailing newline:
//
//	id; (group1, group2); (match1); Type1: path1; Type2: path2
func (r *Record) DescriptionLine() string {
	elems := []string{
		r.ID,
		"(" + strings.Join(r.Groups, ", ") + ")",
		"(" + strings.Join(r.Matches, ", ") + ")",
	}
	for _, dt := range r.SortedFileTypes() {
		elems = append(elems, dt+": "+r.Files[dt])
	}
	return strings.Join(elems, "; ")
}

// Clone returns a deep copy.
func (r *Record) Clone() *Record {
	files := make(map[string]string, len(r.Files))
	maps.Copy(files, r.Files)
	return &Record{
		ID:      r.ID,
		Groups:  slices.Clone(r.Groups),
		Matches: slices.Clone(r.Matches),
		Files:   files,
	}
}
