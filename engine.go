package vemos

import (
	"context"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/hupe1980/vemos/matchindex"
	"github.com/hupe1980/vemos/matrix"
	"github.com/hupe1980/vemos/record"
	"github.com/hupe1980/vemos/resolver"
)

// State is one committed engine state. A State is never modified after it
// has been committed; every engine operation builds a new one.
type State struct {
	Name            string
	DirectoryPath   string
	DescriptionPath string
	MatrixDirectory string

	Records   *record.Set
	Groupings *record.Groupings
	Matrices  *matrix.Store
	DataTypes []record.DataType
	HasFiles  bool

	// Index is derived from Records and Matrices and rebuilt on every commit
	// that changes either of them.
	Index *matchindex.Index
}

func emptyState() *State {
	return &State{
		Records:   record.NewSet(),
		Groupings: record.NewGroupings(),
		Matrices:  matrix.NewStore(),
		DataTypes: record.DefaultDataTypes(),
		Index:     &matchindex.Index{},
	}
}

// derive returns a copy of s sharing all containers. Callers replace the
// containers they change.
func (s *State) derive() *State {
	out := *s
	out.DataTypes = slices.Clone(s.DataTypes)
	return &out
}

// Engine owns the records, groupings and matrices of one data set.
//
// Operations run on the caller's goroutine. Each one either commits a new
// State or returns an error and leaves the committed State untouched.
// Readers may call State and the accessors concurrently with an operation;
// they observe the previous State until the operation commits.
type Engine struct {
	mu    sync.RWMutex
	state *State

	// ops serializes mutating operations.
	ops sync.Mutex

	opts options
}

// New creates an engine with no records.
func New(optFns ...Option) *Engine {
	return &Engine{
		state: emptyState(),
		opts:  applyOptions(optFns),
	}
}

// State returns the committed state.
func (e *Engine) State() *State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

func (e *Engine) commit(s *State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

// Records returns the committed record set.
func (e *Engine) Records() *record.Set {
	return e.State().Records
}

// Matrix returns the named matrix.
func (e *Engine) Matrix(name string) (*matrix.Matrix, error) {
	m, ok := e.State().Matrices.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: matrix %q", ErrNotFound, name)
	}
	return m, nil
}

// MatchIndex returns the index of the committed state.
func (e *Engine) MatchIndex() *matchindex.Index {
	return e.State().Index
}

// Stats summarizes the defined scores of the named matrix.
func (e *Engine) Stats(name string) (matrix.Summary, error) {
	m, err := e.Matrix(name)
	if err != nil {
		return matrix.Summary{}, err
	}
	return matrix.Stats(m.Data), nil
}

// BuildMatchIndex rebuilds the match index of the committed state.
func (e *Engine) BuildMatchIndex(ctx context.Context) error {
	e.ops.Lock()
	defer e.ops.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	next := e.State().derive()
	if err := e.reindex(ctx, next); err != nil {
		return err
	}
	e.commit(next)
	return nil
}

// reindex rebuilds s.Index from s.Records and s.Matrices.
func (e *Engine) reindex(ctx context.Context, s *State) error {
	start := time.Now()
	idx, err := matchindex.BuildAll(s.Records, s.Matrices)
	elapsed := time.Since(start)
	e.opts.metricsCollector.RecordIndex(elapsed, err)
	e.opts.logger.LogIndex(ctx, s.Matrices.Len(), elapsed, err)
	if err != nil {
		return err
	}
	s.Index = idx
	return nil
}

// AddMatch records a mutual match between two records.
func (e *Engine) AddMatch(ctx context.Context, a, b string) error {
	e.ops.Lock()
	defer e.ops.Unlock()

	next := e.State().derive()
	next.Records = next.Records.Clone()
	if err := next.Records.AddMatch(a, b); err != nil {
		return err
	}
	if err := e.reindex(ctx, next); err != nil {
		return err
	}
	e.commit(next)
	return nil
}

// SetGrouping replaces the groups of a grouping namespace. Every id must
// name a known record. The Manual namespace is the place for user edits.
func (e *Engine) SetGrouping(namespace string, groups []record.Group) error {
	e.ops.Lock()
	defer e.ops.Unlock()

	next := e.State().derive()
	next.Groupings = next.Groupings.Clone()
	next.Groupings.Set(namespace, groups)
	if err := next.Groupings.Validate(next.Records); err != nil {
		return err
	}
	e.commit(next)
	return nil
}

// SetMatrixDirectory records the directory the matrix files live in.
func (e *Engine) SetMatrixDirectory(dir string) {
	e.ops.Lock()
	defer e.ops.Unlock()

	next := e.State().derive()
	next.MatrixDirectory = dir
	e.commit(next)
}

// WriteDescription writes the committed records in description file format.
func (e *Engine) WriteDescription(w io.Writer) error {
	s := e.State()
	return resolver.WriteDescription(w, s.Records, s.DataTypes)
}
