// Package resolver turns a directory tree or a description file into a
// validated record set with its original groupings.
//
// Both entry points are all-or-nothing: on error no partial result is
// returned.
package resolver

import (
	"github.com/hupe1980/vemos/record"
)

// GeneratedMatricesSuffix marks directories holding generated matrices.
// They are never scanned for records.
const GeneratedMatricesSuffix = "_generated_matrices"

// Options controls directory resolution.
type Options struct {
	// DataTypesInFolders disables the format collision check; data types are
	// taken from folder names instead of file names.
	DataTypesInFolders bool

	// IDsInFolders treats the innermost non data type folder as the record id.
	IDsInFolders bool

	// ExcludeDirs lists slash separated directories, relative to the root,
	// whose subtrees are skipped.
	ExcludeDirs []string
}

// Result is the outcome of a successful resolution.
type Result struct {
	Records   *record.Set
	Groupings *record.Groupings

	// Repairs lists the reverse match links added to make matches mutual.
	// Only description files can produce repairs.
	Repairs []record.MatchRepair
}
