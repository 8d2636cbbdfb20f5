package vemos

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vemos/blobstore"
	"github.com/hupe1980/vemos/classifier"
	"github.com/hupe1980/vemos/distance"
	"github.com/hupe1980/vemos/matrix"
	"github.com/hupe1980/vemos/record"
	"github.com/hupe1980/vemos/resolver"
	"github.com/hupe1980/vemos/session"
	"github.com/hupe1980/vemos/testutil"
)

var nan = math.NaN()

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, data := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(data), 0o600))
	}
	return root
}

// seed commits records and matrices directly.
func seed(t *testing.T, e *Engine, set *record.Set, matrices ...*matrix.Matrix) {
	t.Helper()
	s := emptyState()
	s.Records = set
	for _, m := range matrices {
		require.NoError(t, s.Matrices.Add(m))
	}
	require.NoError(t, e.reindex(context.Background(), s))
	e.commit(s)
}

func dense(t *testing.T, rows [][]float64) *matrix.Dense {
	t.Helper()
	d, err := matrix.NewDenseFromRows(rows)
	require.NoError(t, err)
	return d
}

func TestEngine_ResolveFromDirectory(t *testing.T) {
	white := string(testutil.GrayPNG(4, 4, 0xffff))
	root := writeTree(t, map[string]string{
		"GroupA/id1/id1.png":     white,
		"GroupA/id1/id1_seg.png": white,
		"GroupB/id1/id1.png":     white,
	})
	mc := &BasicMetricsCollector{}
	e := New(WithMetricsCollector(mc))

	err := e.ResolveFromDirectory(context.Background(), root, nil, resolver.Options{IDsInFolders: true})
	require.NoError(t, err)

	s := e.State()
	assert.Equal(t, []string{"GroupA_id1", "GroupB_id1"}, s.Records.IDs())
	assert.Equal(t, root, s.DirectoryPath)
	assert.True(t, s.HasFiles)
	assert.Equal(t, 0, s.Matrices.Len())
	assert.Equal(t, 0, s.Index.Len())

	stats := mc.GetStats()
	assert.Equal(t, int64(1), stats.ResolveCount)
	assert.Equal(t, int64(2), stats.RecordsResolved)
}

func TestEngine_ResolveFailureKeepsState(t *testing.T) {
	good := writeTree(t, map[string]string{"G/a.png": "x", "G/b.png": "x"})
	bad := writeTree(t, map[string]string{"a.png": "x"})
	mc := &BasicMetricsCollector{}
	e := New(WithMetricsCollector(mc))
	ctx := context.Background()

	require.NoError(t, e.ResolveFromDirectory(ctx, good, nil, resolver.Options{}))
	before := e.State()

	err := e.ResolveFromDirectory(ctx, bad, nil, resolver.Options{})
	require.ErrorIs(t, err, ErrIngestion)
	var ie *IngestionError
	require.ErrorAs(t, err, &ie)
	assert.Same(t, before, e.State())

	err = e.ResolveFromDirectory(ctx, filepath.Join(good, "missing"), nil, resolver.Options{})
	require.ErrorIs(t, err, ErrIngestion)
	assert.Same(t, before, e.State())

	assert.Equal(t, int64(2), mc.GetStats().ResolveErrors)
}

func TestEngine_ResolveFromDescription(t *testing.T) {
	root := writeTree(t, map[string]string{
		"desc.txt": "7; (X, Y); (8); Image: 7.png\n8; (X); (); Image: 8.png\n",
	})
	types := []record.DataType{record.DefaultDataTypes()[0]}
	e := New()

	repairs, err := e.ResolveFromDescription(context.Background(), filepath.Join(root, "desc.txt"), types)
	require.NoError(t, err)
	assert.Equal(t, []record.MatchRepair{{From: "7", To: "8"}}, repairs)

	s := e.State()
	assert.Equal(t, filepath.Join(root, "desc.txt"), s.DescriptionPath)
	assert.Empty(t, s.DirectoryPath)
	assert.True(t, s.HasFiles)
	assert.Equal(t, types, s.DataTypes)

	var buf bytes.Buffer
	require.NoError(t, e.WriteDescription(&buf))
	assert.Equal(t, "7; (X, Y); (8); Image: 7.png\n8; (X); (7); Image: 8.png\n", buf.String())
}

func TestEngine_ResolveFromDescription_UnlistedMatch(t *testing.T) {
	root := writeTree(t, map[string]string{
		"desc.txt": "7; (X, Y); (8); Image: 7.png",
		"m.txt":    "0\n",
	})
	types := []record.DataType{record.DefaultDataTypes()[0]}
	ctx := context.Background()
	e := New()

	repairs, err := e.ResolveFromDescription(ctx, filepath.Join(root, "desc.txt"), types)
	require.NoError(t, err)
	assert.Empty(t, repairs)
	assert.Equal(t, []string{"7"}, e.Records().IDs())

	require.NoError(t, e.LoadMatrices(ctx, []MatrixSource{{Name: "m", Path: filepath.Join(root, "m.txt")}}, nil))
	entry, ok := e.MatchIndex().Get("m")
	require.True(t, ok)
	matches, nonMatches, all := entry.Counts()
	assert.Equal(t, []int{0, 1, 1}, []int{matches, nonMatches, all})

	var buf bytes.Buffer
	require.NoError(t, e.WriteDescription(&buf))
	assert.Equal(t, "7; (X, Y); (8); Image: 7.png\n", buf.String())
}

func TestEngine_ResolveFromDescription_Errors(t *testing.T) {
	root := writeTree(t, map[string]string{
		"bad.txt": "7; (X); ()\n",
	})
	e := New()

	_, err := e.ResolveFromDescription(context.Background(), filepath.Join(root, "bad.txt"), nil)
	var ie *IngestionError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, filepath.Join(root, "bad.txt"), ie.Path)
	assert.Equal(t, 0, e.Records().Len())

	_, err = e.ResolveFromDescription(context.Background(), filepath.Join(root, "none.txt"), nil)
	require.ErrorIs(t, err, ErrIngestion)
}

func TestEngine_LoadMatrices(t *testing.T) {
	root := writeTree(t, map[string]string{
		"ssim.txt":  testutil.DenseText([][]float64{{nan, 0.9}, {0.9, nan}}),
		"asym.txt":  "0 1\n3 0\n",
		"big.txt":   testutil.DenseText([][]float64{{0, 1, 1}, {1, 0, 1}, {1, 1, 0}}),
		"other.txt": "0 0.5\n0.5 0\n",
	})
	path := func(name string) string { return filepath.Join(root, name) }
	ctx := context.Background()

	e := New()
	require.ErrorIs(t, e.LoadMatrices(ctx, []MatrixSource{{Name: "ssim", Path: path("ssim.txt")}}, nil), ErrNoRecords)

	seed(t, e, testutil.Match(testutil.Records("G", "1", "2"), "1", "2"))
	before := e.State()

	t.Run("rejects asymmetric matrices by default", func(t *testing.T) {
		err := e.LoadMatrices(ctx, []MatrixSource{
			{Name: "ssim", Path: path("ssim.txt"), Kind: matrix.Similarity},
			{Name: "asym", Path: path("asym.txt"), Kind: matrix.Dissimilarity},
		}, nil)
		require.Error(t, err)
		assert.Same(t, before, e.State())
	})

	t.Run("dimension mismatch commits nothing", func(t *testing.T) {
		err := e.LoadMatrices(ctx, []MatrixSource{
			{Name: "ssim", Path: path("ssim.txt"), Kind: matrix.Similarity},
			{Name: "big", Path: path("big.txt"), Kind: matrix.Dissimilarity},
		}, nil)
		var de *DimensionError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "big", de.Matrix)
		assert.Same(t, before, e.State())
	})

	t.Run("missing file", func(t *testing.T) {
		err := e.LoadMatrices(ctx, []MatrixSource{{Name: "x", Path: path("nope.txt")}}, nil)
		require.ErrorIs(t, err, os.ErrNotExist)
		assert.Same(t, before, e.State())
	})

	t.Run("symmetrizes and indexes", func(t *testing.T) {
		err := e.LoadMatrices(ctx, []MatrixSource{
			{Name: "ssim", Path: path("ssim.txt"), Kind: matrix.Similarity},
			{Name: "asym", Path: path("asym.txt"), Kind: matrix.Dissimilarity},
		}, matrix.FixedPolicy(matrix.StrategyMean))
		require.NoError(t, err)

		m, err := e.Matrix("asym")
		require.NoError(t, err)
		assert.Equal(t, [][]float64{{0, 2}, {2, 0}}, m.Data.Rows())
		assert.Equal(t, path("asym.txt"), m.Path)
		assert.Equal(t, matrix.FormatMatrix, m.Format)

		idx := e.MatchIndex()
		assert.Equal(t, []string{"ssim", "asym"}, idx.Names())
		entry, ok := idx.Get("ssim")
		require.True(t, ok)
		matches, nonMatches, all := entry.Counts()
		assert.Equal(t, 2, matches)
		assert.Equal(t, 0, nonMatches)
		assert.Equal(t, 2, all)
	})

	t.Run("skip drops the matrix", func(t *testing.T) {
		require.NoError(t, os.WriteFile(path("asym2.txt"), []byte("0 1\n3 0\n"), 0o600))
		err := e.LoadMatrices(ctx, []MatrixSource{{Name: "asym2", Path: path("asym2.txt")}}, matrix.FixedPolicy(matrix.StrategySkip))
		require.NoError(t, err)
		_, err = e.Matrix("asym2")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("name collision", func(t *testing.T) {
		loaded := e.State()
		err := e.LoadMatrices(ctx, []MatrixSource{
			{Name: "other", Path: path("other.txt")},
			{Name: "ssim", Path: path("ssim.txt")},
		}, nil)
		require.ErrorIs(t, err, ErrNamingCollision)
		assert.Same(t, loaded, e.State())
		_, err = e.Matrix("other")
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestEngine_LoadMatrices_Parallel(t *testing.T) {
	rng := testutil.NewRNG(4711)
	files := map[string]string{}
	var sources []MatrixSource
	for _, name := range []string{"m1", "m2", "m3", "m4", "m5", "m6"} {
		files[name+".txt"] = testutil.DenseText(rng.ScoreMatrix(5, 0.2).Rows())
	}
	root := writeTree(t, files)
	for _, name := range []string{"m1", "m2", "m3", "m4", "m5", "m6"} {
		sources = append(sources, MatrixSource{Name: name, Path: filepath.Join(root, name+".txt")})
	}

	e := New(WithResourceController(nil))
	seed(t, e, testutil.Records("G", "a", "b", "c", "d", "e"))
	require.NoError(t, e.LoadMatrices(context.Background(), sources, nil))
	assert.Equal(t, []string{"m1", "m2", "m3", "m4", "m5", "m6"}, e.State().Matrices.Names())
}

func TestEngine_LoadScoreLists(t *testing.T) {
	root := writeTree(t, map[string]string{
		"scores.csv": "ID1,ID2,ssim,mse,GroundTruth\na,b,0.9,0.1,Y\na,c,0.2,,N\nc,b,0.3,0.5,y\n",
		"bad.csv":    "ID1,ID2,ssim,GroundTruth\na,z,0.9,N\n",
	})
	ctx := context.Background()
	e := New()

	err := e.LoadScoreLists(ctx, []ScoreListSource{{Path: filepath.Join(root, "scores.csv"), Kind: matrix.Similarity}})
	require.NoError(t, err)

	s := e.State()
	assert.Equal(t, []string{"a", "b", "c"}, s.Records.IDs())
	assert.False(t, s.HasFiles)
	a, _ := s.Records.Get("a")
	assert.Equal(t, []string{"b"}, a.Matches)
	b, _ := s.Records.Get("b")
	assert.ElementsMatch(t, []string{"a", "c"}, b.Matches)

	ssim, err := e.Matrix("ssim")
	require.NoError(t, err)
	assert.Equal(t, matrix.FormatList, ssim.Format)
	assert.Equal(t, 0.9, ssim.Data.At(0, 1))
	assert.True(t, math.IsNaN(ssim.Data.At(1, 0)))

	entry, ok := s.Index.Get("mse")
	require.True(t, ok)
	_, _, all := entry.Counts()
	assert.Equal(t, 2, all)

	err = e.LoadScoreLists(ctx, []ScoreListSource{{Path: filepath.Join(root, "bad.csv")}})
	require.ErrorIs(t, err, ErrIngestion)
	assert.Same(t, s, e.State())

	err = e.LoadScoreLists(ctx, []ScoreListSource{{Path: filepath.Join(root, "scores.csv"), Kind: matrix.Similarity}})
	require.ErrorIs(t, err, ErrNamingCollision)
	assert.Same(t, s, e.State())
}

func fuseFixture(t *testing.T) (*Engine, *record.Set) {
	t.Helper()
	set := testutil.Match(
		testutil.Records("G", "id1", "id2", "id3", "id4", "id5", "id6", "id7", "id8"),
		"id1", "id2", "id3", "id4", "id5", "id6", "id7", "id8",
	)
	rng := testutil.NewRNG(7)
	a := rng.SeparableScores(set, 0.1, 0.9, 0.05)
	b := rng.SeparableScores(set, 0.2, 0.8, 0.1)
	i3, i7 := set.IndexOf("id3"), set.IndexOf("id7")
	b.Set(i3, i7, nan)
	b.Set(i7, i3, nan)
	sim := rng.SeparableScores(set, 0.9, 0.1, 0.05)

	e := New(WithMatrixOutput(blobstore.NewMemoryStore()))
	seed(t, e, set,
		&matrix.Matrix{Name: "A", Kind: matrix.Dissimilarity, Data: a},
		&matrix.Matrix{Name: "B", Kind: matrix.Dissimilarity, Data: b},
		&matrix.Matrix{Name: "S", Kind: matrix.Similarity, Data: sim},
	)
	return e, set
}

func TestEngine_Fuse(t *testing.T) {
	e, set := fuseFixture(t)
	store := blobstore.NewMemoryStore()
	e.opts.output = store
	var progress int

	res, err := e.Fuse(context.Background(), FuseRequest{
		Matrices: []string{"A", "B"},
		Kernel:   classifier.Linear,
		Name:     "fused",
		Progress: func(int) { progress++ },
	})
	require.NoError(t, err)
	assert.Equal(t, 56, progress)
	assert.Equal(t, 54, res.Pairs)
	assert.Equal(t, 2, res.Dropped)

	m, err := e.Matrix("fused")
	require.NoError(t, err)
	assert.Equal(t, matrix.Dissimilarity, m.Kind)
	i3, i7 := set.IndexOf("id3"), set.IndexOf("id7")
	assert.True(t, math.IsNaN(m.Data.At(i3, i7)))
	assert.True(t, math.IsNaN(m.Data.At(i7, i3)))
	for i := 0; i < set.Len(); i++ {
		for j := 0; j < set.Len(); j++ {
			v := m.Data.At(i, j)
			if math.IsNaN(v) {
				continue
			}
			assert.GreaterOrEqual(t, v, 0.0)
			assert.Equal(t, v, m.Data.At(j, i))
		}
	}

	_, ok := e.MatchIndex().Get("fused")
	assert.True(t, ok)

	data, err := blobstore.ReadAll(context.Background(), store, "fused.txt")
	require.NoError(t, err)
	written, err := matrix.ReadDense(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, m.Data.At(0, 1), written.At(0, 1))
}

var errDiskFull = errors.New("disk full")

// brokenOutput accepts blobs but fails every write to them.
type brokenOutput struct {
	*blobstore.MemoryStore
}

func (s brokenOutput) Create(ctx context.Context, name string) (blobstore.WritableBlob, error) {
	w, err := s.MemoryStore.Create(ctx, name)
	if err != nil {
		return nil, err
	}
	return brokenBlob{w}, nil
}

type brokenBlob struct {
	blobstore.WritableBlob
}

func (brokenBlob) Write([]byte) (int, error) { return 0, errDiskFull }

func TestEngine_Fuse_OutputWriteFails(t *testing.T) {
	e, _ := fuseFixture(t)
	store := brokenOutput{blobstore.NewMemoryStore()}
	e.opts.output = store
	before := e.State()

	_, err := e.Fuse(context.Background(), FuseRequest{
		Matrices: []string{"A", "B"},
		Kernel:   classifier.Linear,
		Name:     "fused",
	})
	require.ErrorIs(t, err, errDiskFull)
	assert.Same(t, before, e.State())

	names, err := store.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestEngine_Fuse_Errors(t *testing.T) {
	ctx := context.Background()
	e, _ := fuseFixture(t)
	before := e.State()

	_, err := e.Fuse(ctx, FuseRequest{Matrices: []string{"A", "S"}, Kernel: classifier.RBF, Name: "x"})
	var tm *FusionTypeMismatchError
	require.ErrorAs(t, err, &tm)
	require.ErrorIs(t, err, ErrFusionTypeMismatch)

	_, err = e.Fuse(ctx, FuseRequest{Matrices: []string{"A", "B"}, Name: "S"})
	require.ErrorIs(t, err, ErrNamingCollision)

	_, err = e.Fuse(ctx, FuseRequest{Matrices: []string{"A", "nope"}, Name: "x"})
	require.ErrorIs(t, err, ErrNotFound)

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	_, err = e.Fuse(cctx, FuseRequest{Matrices: []string{"A", "B"}, Name: "x"})
	require.ErrorIs(t, err, context.Canceled)

	assert.Same(t, before, e.State())
}

func TestEngine_Fuse_AlignmentEmpty(t *testing.T) {
	set := testutil.Match(testutil.Records("G", "a", "b", "c"), "a", "b")
	e := New()
	seed(t, e, set,
		&matrix.Matrix{Name: "A", Kind: matrix.Similarity, Data: dense(t, [][]float64{{nan, 1, nan}, {1, nan, nan}, {nan, nan, nan}})},
		&matrix.Matrix{Name: "B", Kind: matrix.Similarity, Data: dense(t, [][]float64{{nan, nan, 1}, {nan, nan, nan}, {1, nan, nan}})},
	)

	_, err := e.Fuse(context.Background(), FuseRequest{Matrices: []string{"A", "B"}, Name: "x"})
	var ae *AlignmentEmptyError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, []string{"A", "B"}, ae.Matrices)
}

func generateFixture(t *testing.T) (*Engine, string) {
	t.Helper()
	root := writeTree(t, map[string]string{
		"GroupA/a.png": string(testutil.GrayPNG(4, 4, 0xffff)),
		"GroupA/b.png": string(testutil.GrayPNG(4, 4, 0xffff)),
		"GroupB/c.png": string(testutil.GrayPNG(4, 4, 0)),
		"GroupB/d.txt": "1 2 3\n",
	})
	e := New()
	require.NoError(t, e.ResolveFromDirectory(context.Background(), root, nil, resolver.Options{}))
	return e, root
}

func TestEngine_Generate(t *testing.T) {
	e, _ := generateFixture(t)
	store := blobstore.NewMemoryStore()
	e.opts.output = store
	var rows []int

	m, err := e.Generate(context.Background(), GenerateRequest{
		DataType: "Image",
		Metric:   distance.MetricMSE,
		Progress: func(i int) { rows = append(rows, i) },
	})
	require.NoError(t, err)
	assert.Equal(t, "Image_MSE", m.Name)
	assert.Equal(t, matrix.Dissimilarity, m.Kind)
	assert.Equal(t, "Image_MSE.txt", m.Path)
	assert.Equal(t, []int{0, 1, 2, 3}, rows)

	ids := e.Records().IDs()
	require.Equal(t, []string{"a", "b", "c", "d"}, ids)
	assert.Equal(t, 0.0, m.Data.At(0, 1))
	assert.Equal(t, 1.0, m.Data.At(0, 2))
	assert.True(t, math.IsNaN(m.Data.At(0, 3)))

	_, ok := e.MatchIndex().Get("Image_MSE")
	assert.True(t, ok)
	names, err := store.List(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Image_MSE.txt"}, names)

	_, err = e.Generate(context.Background(), GenerateRequest{DataType: "Image", Metric: distance.MetricMSE})
	require.ErrorIs(t, err, ErrNamingCollision)
}

func TestEngine_Generate_Errors(t *testing.T) {
	ctx := context.Background()
	require.ErrorIs(t, func() error {
		_, err := New().Generate(ctx, GenerateRequest{DataType: "Image"})
		return err
	}(), ErrNoRecords)

	e, _ := generateFixture(t)
	before := e.State()

	_, err := e.Generate(ctx, GenerateRequest{DataType: "Audio"})
	require.ErrorIs(t, err, ErrNotFound)

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	_, err = e.Generate(cctx, GenerateRequest{DataType: "Image", Metric: distance.MetricSSIM})
	require.ErrorIs(t, err, context.Canceled)

	assert.Same(t, before, e.State())
}

func TestEngine_Generate_FromFS(t *testing.T) {
	set := record.NewSet()
	for _, id := range []string{"x", "y"} {
		r := record.New(id, []string{"G"})
		r.Files["Curve"] = id + ".txt"
		require.NoError(t, set.Add(r))
	}
	e := New()
	seed(t, e, set)

	m, err := e.Generate(context.Background(), GenerateRequest{
		DataType: "Curve",
		Metric:   distance.MetricEuclidean,
		Name:     "curves",
		FS: fstest.MapFS{
			"x.txt": {Data: []byte("0 0\n")},
			"y.txt": {Data: []byte("3 4\n")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 5.0, m.Data.At(0, 1))
	assert.Equal(t, 5.0, m.Data.At(1, 0))

	_, err = e.Generate(context.Background(), GenerateRequest{DataType: "Curve", Name: "nofs"})
	require.Error(t, err)
}

func TestEngine_Sessions(t *testing.T) {
	ctx := context.Background()
	repo := session.NewBlobRepository(blobstore.NewMemoryStore())

	_, err := New().SaveSession(ctx, "run1")
	require.ErrorIs(t, err, ErrNoRepository)

	e, _ := fuseFixture(t)
	e.opts.repository = repo
	require.NoError(t, e.SetGrouping(record.ManualGrouping, []record.Group{{Name: "pick", IDs: []string{"id1", "id5"}}}))

	info, err := e.SaveSession(ctx, "run1")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), info.Version)
	assert.Equal(t, "run1", e.State().Name)

	restored := New(WithRepository(repo))
	require.NoError(t, restored.LoadSession(ctx, "run1"))
	s := restored.State()
	assert.Equal(t, "run1", s.Name)
	assert.Equal(t, e.Records().IDs(), s.Records.IDs())
	assert.Equal(t, []string{"A", "B", "S"}, s.Index.Names())
	manual, ok := s.Groupings.Get(record.ManualGrouping)
	require.True(t, ok)
	assert.Equal(t, []string{"id1", "id5"}, manual.IDs("pick"))

	a, err := restored.Matrix("A")
	require.NoError(t, err)
	orig, _ := e.Matrix("A")
	assert.Equal(t, orig.Data.At(0, 1), a.Data.At(0, 1))

	infos, err := restored.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 1)

	err = restored.LoadSession(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, err, session.ErrNotFound)

	require.NoError(t, restored.DeleteSession(ctx, "run1"))
	require.ErrorIs(t, restored.DeleteSession(ctx, "run1"), ErrNotFound)
}

func TestEngine_AddMatchAndGroupings(t *testing.T) {
	ctx := context.Background()
	set := testutil.Records("G", "a", "b", "c")
	e := New()
	seed(t, e, set, &matrix.Matrix{Name: "m", Kind: matrix.Similarity, Data: testutil.NewRNG(1).ScoreMatrix(3, 0)})

	entry, _ := e.MatchIndex().Get("m")
	matches, _, _ := entry.Counts()
	assert.Equal(t, 0, matches)

	require.NoError(t, e.AddMatch(ctx, "a", "c"))
	entry, _ = e.MatchIndex().Get("m")
	matches, _, _ = entry.Counts()
	assert.Equal(t, 2, matches)
	assert.Empty(t, set.At(0).Matches, "committed sets are not modified")

	before := e.State()
	require.Error(t, e.AddMatch(ctx, "a", "zz"))
	require.Error(t, e.SetGrouping("Cohort", []record.Group{{Name: "x", IDs: []string{"zz"}}}))
	assert.Same(t, before, e.State())

	require.NoError(t, e.SetGrouping("Cohort", []record.Group{{Name: "x", IDs: []string{"a", "b"}}}))
	assert.Contains(t, e.State().Groupings.Names(), "Cohort")
	_, ok := before.Groupings.Get("Cohort")
	assert.False(t, ok)
}

func TestEngine_Stats(t *testing.T) {
	e := New()
	seed(t, e, testutil.Records("G", "a", "b"),
		&matrix.Matrix{Name: "m", Data: dense(t, [][]float64{{nan, 1}, {3, nan}})},
	)

	sum, err := e.Stats("m")
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Count)
	assert.Equal(t, 2.0, sum.Mean)

	_, err = e.Stats("nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(slog.NewJSONHandler(&buf, nil))
	ctx := context.Background()

	l.LogFuse(ctx, "fused", 0, 0, 0, ErrAlignmentEmpty)
	l.WithSession("run1").LogSession(ctx, "save", "run1", 3, nil)
	l.LogResolve(ctx, "desc.txt", 2, 1, 0, nil)

	out := buf.String()
	assert.Contains(t, out, `"msg":"fusion failed"`)
	assert.Contains(t, out, `"msg":"session save completed"`)
	assert.Contains(t, out, `"version":3`)
	assert.Contains(t, out, `"repairs":1`)
	assert.Equal(t, 3, strings.Count(out, "\n"))

	NoopLogger().LogFuse(ctx, "x", 0, 0, 0, ErrAlignmentEmpty)
}
