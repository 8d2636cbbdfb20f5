// Package generate computes score matrices directly from the records' files.
//
// Every ordered pair of records holding a file of the requested data type is
// compared with a distance metric. Decoded samples are kept in an LRU cache,
// accounted against the resource controller's memory budget.
package generate

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/hupe1980/vemos/distance"
	"github.com/hupe1980/vemos/matrix"
	"github.com/hupe1980/vemos/record"
	"github.com/hupe1980/vemos/resource"
)

// DefaultCacheSize is the number of decoded samples kept by default.
const DefaultCacheSize = 256

// Request describes one matrix to generate.
type Request struct {
	DataType record.DataType
	Metric   distance.Metric
	Name     string

	// Progress, if set, is called with the index of every record before its row is computed.
	Progress func(i int)
}

type options struct {
	rc        *resource.Controller
	cacheSize int
}

// Option configures a Generator.
type Option func(*options)

// WithResourceController throttles file reads and bounds cached sample memory.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) { o.rc = rc }
}

// WithCacheSize sets the number of decoded samples kept in memory.
func WithCacheSize(n int) Option {
	return func(o *options) { o.cacheSize = n }
}

// Generator compares the files below a root directory.
type Generator struct {
	fsys  fs.FS
	rc    *resource.Controller
	cache *lru.Cache[string, distance.Plane]
}

// New returns a generator reading record files from fsys.
func New(fsys fs.FS, optFns ...Option) (*Generator, error) {
	o := options{cacheSize: DefaultCacheSize}
	for _, fn := range optFns {
		fn(&o)
	}
	g := &Generator{fsys: fsys, rc: o.rc}
	cache, err := lru.NewWithEvict(max(o.cacheSize, 1), func(_ string, p distance.Plane) {
		g.rc.ReleaseMemory(p.Bytes())
	})
	if err != nil {
		return nil, err
	}
	g.cache = cache
	return g, nil
}

// Purge drops every cached sample.
func (g *Generator) Purge() {
	g.cache.Purge()
}

// CachedSamples returns the number of cached samples.
func (g *Generator) CachedSamples() int {
	return g.cache.Len()
}

// Generate computes the n×n matrix of req over set. Pairs where either record
// lacks the data type stay NaN. Cancellation is checked once per row; a
// cancelled run returns ctx's error and no matrix.
func (g *Generator) Generate(ctx context.Context, set *record.Set, req Request) (*matrix.Matrix, error) {
	if req.Name == "" {
		return nil, errors.New("generated matrix needs a name")
	}
	compare, err := distance.Provider(req.Metric)
	if err != nil {
		return nil, err
	}

	kind := matrix.Dissimilarity
	if req.Metric.IsSimilarity() {
		kind = matrix.Similarity
	}

	n := set.Len()
	d := matrix.NewDense(n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if req.Progress != nil {
			req.Progress(i)
		}
		pathI, ok := set.At(i).Files[req.DataType.Name]
		if !ok {
			continue
		}
		a, err := g.sample(ctx, pathI, req.DataType.Kind)
		if err != nil {
			return nil, err
		}
		for j := 0; j < n; j++ {
			pathJ, ok := set.At(j).Files[req.DataType.Name]
			if !ok {
				continue
			}
			b, err := g.sample(ctx, pathJ, req.DataType.Kind)
			if err != nil {
				return nil, err
			}
			v, err := compare(a, b)
			if err != nil {
				return nil, fmt.Errorf("compare %s with %s: %w", pathI, pathJ, err)
			}
			if math.IsInf(v, 0) {
				v = math.NaN()
			}
			d.Set(i, j, v)
		}
	}

	return &matrix.Matrix{Name: req.Name, Kind: kind, Format: matrix.FormatMatrix, Data: d}, nil
}

func (g *Generator) sample(ctx context.Context, name string, kind record.Kind) (distance.Plane, error) {
	if p, ok := g.cache.Get(name); ok {
		return p, nil
	}
	p, err := loadSample(ctx, g.fsys, g.rc, name, kind)
	if err != nil {
		return distance.Plane{}, fmt.Errorf("load %s: %w", name, err)
	}
	if len(p.Pix) == 0 {
		return distance.Plane{}, fmt.Errorf("load %s: %w", name, distance.ErrEmptySample)
	}
	for !g.rc.TryAcquireMemory(p.Bytes()) {
		if _, _, ok := g.cache.RemoveOldest(); !ok {
			if err := g.rc.AcquireMemory(ctx, p.Bytes()); err != nil {
				return distance.Plane{}, err
			}
			break
		}
	}
	g.cache.Add(name, p)
	return p, nil
}
