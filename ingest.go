package vemos

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/vemos/matrix"
	"github.com/hupe1980/vemos/record"
	"github.com/hupe1980/vemos/resolver"
	"github.com/hupe1980/vemos/resource"
	"github.com/hupe1980/vemos/vemoserr"
)

// MatrixSource is a dense matrix file to load.
type MatrixSource struct {
	Name string
	Path string
	Kind matrix.Kind
}

// ScoreListSource is a score list file to load. Every metric column becomes
// one matrix of the given kind.
type ScoreListSource struct {
	Path string
	Kind matrix.Kind
}

// withPath fills in the path of an ingestion error raised by a reader.
func withPath(err error, path string) error {
	var ie *vemoserr.IngestionError
	if errors.As(err, &ie) && ie.Path == "" {
		ie.Path = path
	}
	return err
}

// ResolveFromDirectory replaces the records with those found below root.
// A nil types uses the data types of the committed state. Loaded matrices
// are discarded since they no longer match the records.
func (e *Engine) ResolveFromDirectory(ctx context.Context, root string, types []record.DataType, opts resolver.Options) error {
	e.ops.Lock()
	defer e.ops.Unlock()

	start := time.Now()
	n, err := e.resolveFromDirectory(ctx, root, types, opts)
	elapsed := time.Since(start)
	e.opts.metricsCollector.RecordResolve(n, elapsed, err)
	e.opts.logger.LogResolve(ctx, root, n, 0, elapsed, err)
	return err
}

func (e *Engine) resolveFromDirectory(ctx context.Context, root string, types []record.DataType, opts resolver.Options) (int, error) {
	cur := e.State()
	if types == nil {
		types = cur.DataTypes
	}
	info, err := os.Stat(root)
	if err != nil {
		return 0, vemoserr.NewIngestionError(root, 0, "cannot open root", err)
	}
	if !info.IsDir() {
		return 0, vemoserr.NewIngestionError(root, 0, "root is not a directory", nil)
	}

	res, err := resolver.ResolveDirectory(ctx, os.DirFS(root), types, opts)
	if err != nil {
		return 0, withPath(err, root)
	}

	next := cur.derive()
	next.DirectoryPath = root
	next.DescriptionPath = ""
	next.Records = res.Records
	next.Groupings = res.Groupings
	next.Matrices = matrix.NewStore()
	next.DataTypes = slices.Clone(types)
	next.HasFiles = true
	if err := e.reindex(ctx, next); err != nil {
		return 0, err
	}
	e.commit(next)
	return res.Records.Len(), nil
}

// ResolveFromDescription replaces the records with those of a description
// file. One-sided matches are made mutual and returned as repairs; callers
// may persist the corrected file with WriteDescription.
func (e *Engine) ResolveFromDescription(ctx context.Context, path string, types []record.DataType) ([]record.MatchRepair, error) {
	e.ops.Lock()
	defer e.ops.Unlock()

	start := time.Now()
	res, err := e.resolveFromDescription(ctx, path, types)
	elapsed := time.Since(start)
	var n, repairs int
	if res != nil {
		n, repairs = res.Records.Len(), len(res.Repairs)
	}
	e.opts.metricsCollector.RecordResolve(n, elapsed, err)
	e.opts.logger.LogResolve(ctx, path, n, repairs, elapsed, err)
	if err != nil {
		return nil, err
	}
	return res.Repairs, nil
}

func (e *Engine) resolveFromDescription(ctx context.Context, path string, types []record.DataType) (*resolver.Result, error) {
	cur := e.State()
	if types == nil {
		types = cur.DataTypes
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, vemoserr.NewIngestionError(path, 0, "cannot open description", err)
	}
	defer f.Close()

	res, err := resolver.ResolveDescription(ctx, resource.NewReader(ctx, f, e.opts.resources), types)
	if err != nil {
		return nil, withPath(err, path)
	}

	hasFiles := false
	for _, r := range res.Records.All() {
		if len(r.Files) > 0 {
			hasFiles = true
			break
		}
	}

	next := cur.derive()
	next.DirectoryPath = ""
	next.DescriptionPath = path
	next.Records = res.Records
	next.Groupings = res.Groupings
	next.Matrices = matrix.NewStore()
	next.DataTypes = slices.Clone(types)
	next.HasFiles = hasFiles
	if err := e.reindex(ctx, next); err != nil {
		return nil, err
	}
	e.commit(next)
	return res, nil
}

// LoadMatrices parses dense matrix files in parallel and adds them to the
// committed matrices. Asymmetric matrices are passed to policy; a nil policy
// rejects them. Nothing is committed unless every matrix loads.
func (e *Engine) LoadMatrices(ctx context.Context, sources []MatrixSource, policy matrix.SymmetrizePolicy) error {
	e.ops.Lock()
	defer e.ops.Unlock()

	start := time.Now()
	loaded, skipped, err := e.loadMatrices(ctx, sources, policy)
	elapsed := time.Since(start)
	e.opts.metricsCollector.RecordMatrixLoad(loaded, elapsed, err)
	e.opts.logger.LogMatrixLoad(ctx, loaded, skipped, elapsed, err)
	return err
}

func (e *Engine) loadMatrices(ctx context.Context, sources []MatrixSource, policy matrix.SymmetrizePolicy) (int, int, error) {
	cur := e.State()
	n := cur.Records.Len()
	if n == 0 {
		return 0, 0, ErrNoRecords
	}
	if policy == nil {
		policy = matrix.RejectPolicy
	}

	parsed := make([]*matrix.Dense, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.resources.Workers())
	for i, src := range sources {
		g.Go(func() error {
			d, err := e.readDense(gctx, src.Path)
			if err != nil {
				return fmt.Errorf("load matrix %q: %w", src.Name, err)
			}
			parsed[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, 0, err
	}

	next := cur.derive()
	next.Matrices = cur.Matrices.Clone()
	skipped := 0
	for i, src := range sources {
		d := parsed[i]
		if d.N() != n {
			return 0, 0, &vemoserr.DimensionError{Matrix: src.Name, Expected: n, Actual: d.N()}
		}
		if !d.IsSymmetric(matrix.DefaultRelTol, matrix.DefaultAbsTol) {
			strategy, err := policy(src.Name)
			if err != nil {
				return 0, 0, err
			}
			e.opts.logger.LogSymmetrize(ctx, src.Name, strategy.String())
			if strategy == matrix.StrategySkip {
				skipped++
				continue
			}
			if err := matrix.Symmetrize(d, strategy); err != nil {
				return 0, 0, err
			}
		}
		m := &matrix.Matrix{Name: src.Name, Kind: src.Kind, Format: matrix.FormatMatrix, Path: src.Path, Data: d}
		if err := next.Matrices.Add(m); err != nil {
			return 0, 0, err
		}
	}
	if err := e.reindex(ctx, next); err != nil {
		return 0, 0, err
	}
	e.commit(next)
	return len(sources) - skipped, skipped, nil
}

func (e *Engine) readDense(ctx context.Context, path string) (*matrix.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	d, err := matrix.ReadDense(resource.NewReader(ctx, f, e.opts.resources))
	if err != nil {
		return nil, withPath(err, path)
	}
	return d, nil
}

// LoadScoreLists adds one matrix per metric column of every score list and
// marks the pairs flagged "Y" as matches. Without records, the records are
// derived from the ids of the lists in first-seen order and carry no files.
func (e *Engine) LoadScoreLists(ctx context.Context, sources []ScoreListSource) error {
	e.ops.Lock()
	defer e.ops.Unlock()

	start := time.Now()
	loaded, err := e.loadScoreLists(ctx, sources)
	elapsed := time.Since(start)
	e.opts.metricsCollector.RecordMatrixLoad(loaded, elapsed, err)
	e.opts.logger.LogMatrixLoad(ctx, loaded, 0, elapsed, err)
	return err
}

func (e *Engine) loadScoreLists(ctx context.Context, sources []ScoreListSource) (int, error) {
	lists := make([]*matrix.ScoreList, len(sources))
	for i, src := range sources {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		sl, err := e.readScoreList(ctx, src.Path)
		if err != nil {
			return 0, err
		}
		lists[i] = sl
	}

	cur := e.State()
	next := cur.derive()
	if cur.Records.Len() == 0 {
		set := record.NewSet()
		for _, sl := range lists {
			for _, id := range sl.IDs() {
				if _, ok := set.Get(id); ok {
					continue
				}
				if err := set.Add(record.New(id, nil)); err != nil {
					return 0, err
				}
			}
		}
		next.Records = set
		next.Groupings = record.NewGroupings()
		next.Matrices = matrix.NewStore()
		next.HasFiles = false
	} else {
		next.Records = cur.Records.Clone()
		next.Matrices = cur.Matrices.Clone()
	}

	loaded := 0
	for i, sl := range lists {
		ms, err := sl.Scatter(next.Records, sources[i].Kind, sources[i].Path)
		if err != nil {
			return 0, err
		}
		for _, m := range ms {
			if err := next.Matrices.Add(m); err != nil {
				return 0, err
			}
		}
		if err := sl.ApplyGroundTruth(next.Records); err != nil {
			return 0, withPath(err, sources[i].Path)
		}
		loaded += len(ms)
	}
	if err := e.reindex(ctx, next); err != nil {
		return 0, err
	}
	e.commit(next)
	return loaded, nil
}

func (e *Engine) readScoreList(ctx context.Context, path string) (*matrix.ScoreList, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, vemoserr.NewIngestionError(path, 0, "cannot open score list", err)
	}
	defer f.Close()

	sl, err := matrix.ReadScoreList(resource.NewReader(ctx, f, e.opts.resources))
	if err != nil {
		return nil, withPath(err, path)
	}
	return sl, nil
}
