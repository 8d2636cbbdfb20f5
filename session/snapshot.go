// Package session saves and restores the complete state of an engine.
//
// A Snapshot holds records, groupings, matrices and the data type
// configuration under stable JSON keys. Snapshots are encoded into a
// checksummed frame (see Encode) and kept in a Repository: BlobRepository
// versions them in any blobstore.BlobStore, SQLiteCatalog keeps the latest
// version per name in a SQLite database.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/vemos/matrix"
	"github.com/hupe1980/vemos/record"
)

// SchemaVersion is the version of the Snapshot fields.
const SchemaVersion = 1

// ErrNotFound is returned when no session with the requested name exists.
var ErrNotFound = errors.New("session not found")

// Snapshot is the persisted state of an engine.
type Snapshot struct {
	Version         int               `json:"version"`
	ID              uuid.UUID         `json:"id"`
	Name            string            `json:"name"`
	CreatedAt       time.Time         `json:"created_at"`
	DirectoryPath   string            `json:"directory_path,omitempty"`
	DescriptionPath string            `json:"description_path,omitempty"`
	MatrixDirectory string            `json:"matrix_directory,omitempty"`
	Matrices        *matrix.Store     `json:"matrices"`
	Records         *record.Set       `json:"records"`
	Groupings       *record.Groupings `json:"groupings"`
	DataTypes       []record.DataType `json:"data_types"`
	HasFiles        bool              `json:"has_files"`
}

// New returns an empty snapshot with a fresh id.
func New(name string) *Snapshot {
	return &Snapshot{
		Version:   SchemaVersion,
		ID:        uuid.New(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
		Matrices:  matrix.NewStore(),
		Records:   record.NewSet(),
		Groupings: record.NewGroupings(),
	}
}

// Validate checks the schema version and the consistency of the state.
func (s *Snapshot) Validate() error {
	if s.Version != SchemaVersion {
		return fmt.Errorf("unsupported snapshot schema version %d", s.Version)
	}
	if err := ValidateName(s.Name); err != nil {
		return err
	}
	if s.Records == nil || s.Groupings == nil || s.Matrices == nil {
		return errors.New("snapshot is missing records, groupings or matrices")
	}
	if err := s.Records.Validate(); err != nil {
		return err
	}
	if err := s.Groupings.Validate(s.Records); err != nil {
		return err
	}
	return s.Matrices.Validate(s.Records.Len())
}

// ValidateName rejects names that cannot be used as a storage key.
func ValidateName(name string) error {
	switch {
	case name == "":
		return errors.New("session name is empty")
	case name == "." || name == "..":
		return fmt.Errorf("invalid session name %q", name)
	}
	for _, r := range name {
		if r == '/' || r == '\\' || r < 0x20 {
			return fmt.Errorf("invalid character %q in session name %q", r, name)
		}
	}
	return nil
}

// Info describes a stored session.
type Info struct {
	Name      string
	ID        uuid.UUID
	Version   uint64
	CreatedAt time.Time
	Size      int64
}
