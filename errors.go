package vemos

import (
	"errors"
	"fmt"

	"github.com/hupe1980/vemos/blobstore"
	"github.com/hupe1980/vemos/session"
	"github.com/hupe1980/vemos/vemoserr"
)

var (
	// ErrIngestion is returned when a directory tree or description file cannot be turned into records.
	ErrIngestion = vemoserr.ErrIngestion

	// ErrFormatCollision is returned when two data types share both a file name format and an extension.
	ErrFormatCollision = vemoserr.ErrFormatCollision

	// ErrDimension is returned when a matrix size does not match the number of records.
	ErrDimension = vemoserr.ErrDimension

	// ErrNamingCollision is returned when a matrix or data type name is used twice.
	ErrNamingCollision = vemoserr.ErrNamingCollision

	// ErrFusionTypeMismatch is returned when similarity and dissimilarity matrices are fused together.
	ErrFusionTypeMismatch = vemoserr.ErrFusionTypeMismatch

	// ErrAlignmentEmpty is returned when the fused matrices share no scored pair.
	ErrAlignmentEmpty = vemoserr.ErrAlignmentEmpty

	// ErrNotFound is returned for unknown matrices, data types and sessions.
	ErrNotFound = errors.New("not found")

	// ErrNoRecords is returned when an operation needs records and none are loaded.
	ErrNoRecords = errors.New("no records loaded")

	// ErrNoRepository is returned by session operations of an engine without repository.
	ErrNoRepository = errors.New("no session repository configured")
)

type (
	IngestionError          = vemoserr.IngestionError
	FormatCollisionError    = vemoserr.FormatCollisionError
	DimensionError          = vemoserr.DimensionError
	NamingCollisionError    = vemoserr.NamingCollisionError
	FusionTypeMismatchError = vemoserr.FusionTypeMismatchError
	AlignmentEmptyError     = vemoserr.AlignmentEmptyError
)

func translateError(err error) error {
	if err == nil {
		return nil
	}

	// Not found unification.
	if errors.Is(err, session.ErrNotFound) || errors.Is(err, blobstore.ErrNotFound) {
		if !errors.Is(err, ErrNotFound) {
			return fmt.Errorf("%w: %w", ErrNotFound, err)
		}
	}
	return err
}
