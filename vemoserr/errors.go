// Package vemoserr defines the error taxonomy shared by all vemos packages.
//
// Every typed error matches its sentinel through errors.Is and exposes the
// underlying cause (if any) through errors.Unwrap.
package vemoserr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrIngestion is returned when a directory tree or description file cannot be turned into records.
	ErrIngestion = errors.New("ingestion failed")

	// ErrFormatCollision is returned when two data types share both a file name format and an extension.
	ErrFormatCollision = errors.New("ambiguous data type format")

	// ErrDimension is returned when a matrix size does not match the number of records.
	ErrDimension = errors.New("matrix dimension mismatch")

	// ErrNamingCollision is returned when a matrix or data type name is used twice.
	ErrNamingCollision = errors.New("name already in use")

	// ErrFusionTypeMismatch is returned when similarity and dissimilarity matrices are fused together.
	ErrFusionTypeMismatch = errors.New("cannot fuse similarity with dissimilarity matrices")

	// ErrAlignmentEmpty is returned when the fused matrices share no scored pair.
	ErrAlignmentEmpty = errors.New("no common scored pairs")
)

// IngestionError describes a structural violation found while ingesting records.
type IngestionError struct {
	Path   string
	Line   int // 1-based; 0 if not line oriented
	Reason string
	cause  error
}

// NewIngestionError returns an IngestionError wrapping cause.
func NewIngestionError(path string, line int, reason string, cause error) *IngestionError {
	return &IngestionError{Path: path, Line: line, Reason: reason, cause: cause}
}

func (e *IngestionError) Error() string {
	var b strings.Builder
	b.WriteString("ingestion failed")
	if e.Path != "" {
		b.WriteString(": ")
		b.WriteString(e.Path)
		if e.Line > 0 {
			fmt.Fprintf(&b, ":%d", e.Line)
		}
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	if e.cause != nil {
		b.WriteString(": ")
		b.WriteString(e.cause.Error())
	}
	return b.String()
}

func (e *IngestionError) Is(target error) bool { return target == ErrIngestion }

func (e *IngestionError) Unwrap() error { return e.cause }

// FormatCollisionError reports two data types that cannot be told apart by file name.
type FormatCollisionError struct {
	TypeA string
	TypeB string
}

func (e *FormatCollisionError) Error() string {
	return fmt.Sprintf("data types %q and %q share a file name format and extension", e.TypeA, e.TypeB)
}

func (e *FormatCollisionError) Is(target error) bool { return target == ErrFormatCollision }

// DimensionError reports a matrix whose size differs from the record count.
type DimensionError struct {
	Matrix   string
	Expected int
	Actual   int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("matrix %q has dimension %d, expected %d", e.Matrix, e.Actual, e.Expected)
}

func (e *DimensionError) Is(target error) bool { return target == ErrDimension }

// NamingCollisionError reports a duplicate name within a namespace ("matrix" or "data type").
type NamingCollisionError struct {
	Namespace string
	Name      string
}

func (e *NamingCollisionError) Error() string {
	return fmt.Sprintf("%s name %q is not unique", e.Namespace, e.Name)
}

func (e *NamingCollisionError) Is(target error) bool { return target == ErrNamingCollision }

// FusionTypeMismatchError reports a fusion input whose kind differs from the first input.
type FusionTypeMismatchError struct {
	Matrix   string
	Expected string
	Actual   string
}

func (e *FusionTypeMismatchError) Error() string {
	return fmt.Sprintf("matrix %q is a %s matrix, expected %s", e.Matrix, e.Actual, e.Expected)
}

func (e *FusionTypeMismatchError) Is(target error) bool { return target == ErrFusionTypeMismatch }

// AlignmentEmptyError reports that the selected matrices have no scored pair in common.
type AlignmentEmptyError struct {
	Matrices []string
}

func (e *AlignmentEmptyError) Error() string {
	return fmt.Sprintf("matrices %s have no common scored pairs", strings.Join(e.Matrices, ", "))
}

func (e *AlignmentEmptyError) Is(target error) bool { return target == ErrAlignmentEmpty }
