package vemos

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/hupe1980/vemos/blobstore"
	"github.com/hupe1980/vemos/classifier"
	"github.com/hupe1980/vemos/distance"
	"github.com/hupe1980/vemos/fusion"
	"github.com/hupe1980/vemos/generate"
	"github.com/hupe1980/vemos/matrix"
	"github.com/hupe1980/vemos/record"
	"github.com/hupe1980/vemos/vemoserr"
)

// FuseRequest selects the matrices to fuse.
type FuseRequest struct {
	// Matrices are fused in order; the first one defines the scored pairs
	// and the labels.
	Matrices []string
	Kernel   classifier.KernelType

	// Name of the fused matrix. It must not be in use.
	Name string

	// Progress, if set, is called with the index of every aligned pair.
	Progress func(i int)
}

// Fuse trains a classifier on the aligned scores of the requested matrices
// and adds its shifted decision values as a new matrix.
func (e *Engine) Fuse(ctx context.Context, req FuseRequest) (*fusion.Result, error) {
	e.ops.Lock()
	defer e.ops.Unlock()

	start := time.Now()
	res, err := e.fuse(ctx, req)
	elapsed := time.Since(start)
	pairs, dropped := 0, 0
	if res != nil {
		pairs, dropped = res.Pairs, res.Dropped
	}
	e.opts.metricsCollector.RecordFuse(pairs, elapsed, err)
	e.opts.logger.LogFuse(ctx, req.Name, pairs, dropped, elapsed, err)
	return res, err
}

func (e *Engine) fuse(ctx context.Context, req FuseRequest) (*fusion.Result, error) {
	cur := e.State()
	if _, ok := cur.Matrices.Get(req.Name); ok {
		return nil, &vemoserr.NamingCollisionError{Namespace: "matrix", Name: req.Name}
	}
	inputs := make([]fusion.Input, len(req.Matrices))
	for k, name := range req.Matrices {
		entry, ok := cur.Index.Get(name)
		if !ok {
			return nil, fmt.Errorf("%w: matrix %q", ErrNotFound, name)
		}
		inputs[k] = fusion.Input{Name: name, Entry: entry}
	}

	res, err := fusion.Fuse(ctx, cur.Records, fusion.Request{
		Inputs:            inputs,
		Kernel:            req.Kernel,
		Name:              req.Name,
		Progress:          req.Progress,
		ClassifierOptions: e.opts.classifierOpts,
	})
	if err != nil {
		return nil, err
	}
	if err := e.register(ctx, cur, res.Matrix); err != nil {
		return nil, err
	}
	return res, nil
}

// GenerateRequest describes a matrix computed from the records' files.
type GenerateRequest struct {
	// DataType names a configured data type.
	DataType string
	Metric   distance.Metric

	// Name of the generated matrix. Default "<DataType>_<Metric>".
	Name string

	// Symmetrize resolves asymmetric results such as NRMSE. Default: mean.
	// StrategySkip fails the request.
	Symmetrize matrix.SymmetrizePolicy

	// FS, if set, is used instead of the directory the records were
	// resolved from.
	FS fs.FS

	// Progress, if set, is called with the index of every row.
	Progress func(i int)
}

// Generate computes a matrix over the files of one data type and adds it to
// the committed matrices.
func (e *Engine) Generate(ctx context.Context, req GenerateRequest) (*matrix.Matrix, error) {
	e.ops.Lock()
	defer e.ops.Unlock()

	start := time.Now()
	m, err := e.generate(ctx, req)
	elapsed := time.Since(start)
	e.opts.metricsCollector.RecordGenerate(elapsed, err)
	name := req.Name
	if m != nil {
		name = m.Name
	}
	e.opts.logger.LogGenerate(ctx, name, req.Metric.String(), elapsed, err)
	return m, err
}

func (e *Engine) generate(ctx context.Context, req GenerateRequest) (*matrix.Matrix, error) {
	cur := e.State()
	if cur.Records.Len() == 0 {
		return nil, ErrNoRecords
	}
	dt, ok := record.Lookup(cur.DataTypes, req.DataType)
	if !ok {
		return nil, fmt.Errorf("%w: data type %q", ErrNotFound, req.DataType)
	}
	name := req.Name
	if name == "" {
		name = dt.Name + "_" + req.Metric.String()
	}
	if _, ok := cur.Matrices.Get(name); ok {
		return nil, &vemoserr.NamingCollisionError{Namespace: "matrix", Name: name}
	}
	fsys := req.FS
	if fsys == nil {
		var err error
		if fsys, err = filesFS(cur); err != nil {
			return nil, err
		}
	}

	gen, err := generate.New(fsys,
		generate.WithResourceController(e.opts.resources),
		generate.WithCacheSize(e.opts.sampleCacheSize),
	)
	if err != nil {
		return nil, err
	}
	defer gen.Purge()

	m, err := gen.Generate(ctx, cur.Records, generate.Request{
		DataType: dt,
		Metric:   req.Metric,
		Name:     name,
		Progress: req.Progress,
	})
	if err != nil {
		return nil, err
	}

	if !m.Data.IsSymmetric(matrix.DefaultRelTol, matrix.DefaultAbsTol) {
		policy := req.Symmetrize
		if policy == nil {
			policy = matrix.FixedPolicy(matrix.StrategyMean)
		}
		strategy, err := policy(name)
		if err != nil {
			return nil, err
		}
		e.opts.logger.LogSymmetrize(ctx, name, strategy.String())
		if err := matrix.Symmetrize(m.Data, strategy); err != nil {
			return nil, err
		}
	}

	if err := e.register(ctx, cur, m); err != nil {
		return nil, err
	}
	return m, nil
}

// filesFS returns the file system the record file paths are relative to.
func filesFS(s *State) (fs.FS, error) {
	switch {
	case s.DirectoryPath != "":
		return os.DirFS(s.DirectoryPath), nil
	case s.DescriptionPath != "":
		return os.DirFS(filepath.Dir(s.DescriptionPath)), nil
	default:
		return nil, errors.New("records were not resolved from files")
	}
}

// register adds m to a copy of cur, writes it to the output store and
// commits.
func (e *Engine) register(ctx context.Context, cur *State, m *matrix.Matrix) error {
	next := cur.derive()
	next.Matrices = cur.Matrices.Clone()
	if e.opts.output != nil {
		m.Path = m.Name + ".txt"
	}
	if err := next.Matrices.Add(m); err != nil {
		return err
	}
	if err := e.reindex(ctx, next); err != nil {
		return err
	}
	if e.opts.output != nil {
		if err := writeMatrix(ctx, e.opts.output, m); err != nil {
			return fmt.Errorf("write matrix %q: %w", m.Name, err)
		}
	}
	e.commit(next)
	return nil
}

// writeMatrix streams m to m.Path of store. A failed write removes the blob.
func writeMatrix(ctx context.Context, store blobstore.BlobStore, m *matrix.Matrix) error {
	w, err := store.Create(ctx, m.Path)
	if err != nil {
		return err
	}
	err = matrix.WriteDense(w, m.Data)
	if err == nil {
		err = w.Sync()
	}
	if err != nil {
		_ = w.Close()
		_ = store.Delete(ctx, m.Path)
		return err
	}
	return w.Close()
}
