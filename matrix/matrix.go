package matrix

import (
	"encoding/json"
	"fmt"
	"iter"
	"strings"

	"github.com/hupe1980/vemos/vemoserr"
)

// Kind tells whether higher scores mean more or less alike.
type Kind uint8

const (
	Similarity Kind = iota
	Dissimilarity
)

func (k Kind) String() string {
	switch k {
	case Similarity:
		return "Similarity"
	case Dissimilarity:
		return "Dissimilarity"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// ParseKind parses "similarity" or "dissimilarity", case-insensitively.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "similarity":
		return Similarity, nil
	case "dissimilarity":
		return Dissimilarity, nil
	default:
		return 0, fmt.Errorf("unknown matrix kind %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if k > Dissimilarity {
		return nil, fmt.Errorf("invalid matrix kind %d", k)
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Format is the on-disk layout a matrix was loaded from.
type Format uint8

const (
	// FormatMatrix is a whitespace delimited N×N text file.
	FormatMatrix Format = iota
	// FormatList is a CSV score list with one pair per row.
	FormatList
)

func (f Format) String() string {
	switch f {
	case FormatMatrix:
		return "Matrix"
	case FormatList:
		return "List"
	default:
		return fmt.Sprintf("Format(%d)", f)
	}
}

// ParseFormat parses "matrix" or "list", case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "matrix", "":
		return FormatMatrix, nil
	case "list":
		return FormatList, nil
	default:
		return 0, fmt.Errorf("unknown matrix format %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (f Format) MarshalText() ([]byte, error) {
	if f > FormatList {
		return nil, fmt.Errorf("invalid matrix format %d", f)
	}
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Format) UnmarshalText(text []byte) error {
	parsed, err := ParseFormat(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// Matrix is a named score matrix.
type Matrix struct {
	Name   string `json:"name"`
	Kind   Kind   `json:"kind"`
	Format Format `json:"format"`
	Path   string `json:"path,omitempty"`
	Data   *Dense `json:"data"`
}

// Clone returns a deep copy.
func (m *Matrix) Clone() *Matrix {
	out := *m
	if m.Data != nil {
		out.Data = m.Data.Clone()
	}
	return &out
}

// Store is an ordered collection of uniquely named matrices.
type Store struct {
	matrices []*Matrix
	index    map[string]int
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{index: make(map[string]int)}
}

// Len returns the number of matrices.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.matrices)
}

// Add appends m. A name already in use is a NamingCollisionError.
func (s *Store) Add(m *Matrix) error {
	if m.Name == "" {
		return fmt.Errorf("matrix has no name")
	}
	if _, dup := s.index[m.Name]; dup {
		return &vemoserr.NamingCollisionError{Namespace: "matrix", Name: m.Name}
	}
	s.index[m.Name] = len(s.matrices)
	s.matrices = append(s.matrices, m)
	return nil
}

// Get returns the matrix with the given name.
func (s *Store) Get(name string) (*Matrix, bool) {
	i, ok := s.index[name]
	if !ok {
		return nil, false
	}
	return s.matrices[i], true
}

// Names returns the matrix names in insertion order.
func (s *Store) Names() []string {
	names := make([]string, len(s.matrices))
	for i, m := range s.matrices {
		names[i] = m.Name
	}
	return names
}

// All iterates over the matrices in insertion order.
func (s *Store) All() iter.Seq[*Matrix] {
	return func(yield func(*Matrix) bool) {
		for _, m := range s.matrices {
			if !yield(m) {
				return
			}
		}
	}
}

// Validate checks that every matrix is n×n.
func (s *Store) Validate(n int) error {
	for _, m := range s.matrices {
		if m.Data.N() != n {
			return &vemoserr.DimensionError{Matrix: m.Name, Expected: n, Actual: m.Data.N()}
		}
	}
	return nil
}

// Clone returns a deep copy.
func (s *Store) Clone() *Store {
	out := &Store{
		matrices: make([]*Matrix, len(s.matrices)),
		index:    make(map[string]int, len(s.index)),
	}
	for i, m := range s.matrices {
		out.matrices[i] = m.Clone()
		out.index[m.Name] = i
	}
	return out
}

// MarshalJSON encodes the store as an ordered list.
func (s *Store) MarshalJSON() ([]byte, error) {
	if s.matrices == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.matrices)
}

// UnmarshalJSON decodes an ordered list of matrices.
func (s *Store) UnmarshalJSON(data []byte) error {
	var matrices []*Matrix
	if err := json.Unmarshal(data, &matrices); err != nil {
		return err
	}
	*s = *NewStore()
	for _, m := range matrices {
		if err := s.Add(m); err != nil {
			return err
		}
	}
	return nil
}
