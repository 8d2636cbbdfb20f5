package matrix

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vemos/record"
	"github.com/hupe1980/vemos/vemoserr"
)

func mustDense(t *testing.T, rows [][]float64) *Dense {
	t.Helper()
	d, err := NewDenseFromRows(rows)
	require.NoError(t, err)
	return d
}

func TestSymmetrize(t *testing.T) {
	tests := []struct {
		strategy Strategy
		want     [][]float64
	}{
		{StrategyMean, [][]float64{{0, 2}, {2, 0}}},
		{StrategyMax, [][]float64{{0, 3}, {3, 0}}},
		{StrategyMin, [][]float64{{0, 1}, {1, 0}}},
		{StrategyUseIJ, [][]float64{{0, 3}, {3, 0}}},
		{StrategyUseJI, [][]float64{{0, 1}, {1, 0}}},
	}
	for _, tt := range tests {
		t.Run(tt.strategy.String(), func(t *testing.T) {
			d := mustDense(t, [][]float64{{0, 1}, {3, 0}})
			require.False(t, d.IsSymmetric(DefaultRelTol, DefaultAbsTol))

			require.NoError(t, Symmetrize(d, tt.strategy))
			assert.Equal(t, tt.want, d.Rows())
			assert.True(t, d.IsSymmetric(DefaultRelTol, DefaultAbsTol))

			// Idempotent.
			require.NoError(t, Symmetrize(d, tt.strategy))
			assert.Equal(t, tt.want, d.Rows())
		})
	}
}

func TestSymmetrize_NaN(t *testing.T) {
	d := mustDense(t, [][]float64{{0, math.NaN()}, {4, 0}})
	require.NoError(t, Symmetrize(d, StrategyMean))
	assert.Equal(t, 4.0, d.At(0, 1))
	assert.Equal(t, 4.0, d.At(1, 0))

	require.Error(t, Symmetrize(d, StrategySkip))
}

func TestIsSymmetric_Tolerance(t *testing.T) {
	d := mustDense(t, [][]float64{{0, 1}, {1 + 1e-9, 0}})
	assert.True(t, d.IsSymmetric(DefaultRelTol, DefaultAbsTol))

	nan := mustDense(t, [][]float64{{0, math.NaN()}, {math.NaN(), 0}})
	assert.True(t, nan.IsSymmetric(DefaultRelTol, DefaultAbsTol))
}

func TestParseStrategy(t *testing.T) {
	for _, s := range []Strategy{StrategyMax, StrategyMin, StrategyMean, StrategyUseIJ, StrategyUseJI, StrategySkip} {
		got, err := ParseStrategy(strings.ToUpper(s.String()))
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
	_, err := ParseStrategy("median")
	require.Error(t, err)
}

func TestReadDense(t *testing.T) {
	d, err := ReadDense(strings.NewReader("# scores\n0 0.5 nan\n0.5 0 1\n\nNaN 1 0\n"))
	require.NoError(t, err)
	assert.Equal(t, 3, d.N())
	assert.Equal(t, 0.5, d.At(1, 0))
	assert.True(t, math.IsNaN(d.At(0, 2)))
	assert.Equal(t, 7, d.Defined())

	_, err = ReadDense(strings.NewReader("0 1 2\n1 0 2\n"))
	require.ErrorIs(t, err, vemoserr.ErrIngestion)

	_, err = ReadDense(strings.NewReader("0 1\n1\n"))
	var ie *vemoserr.IngestionError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, 2, ie.Line)

	_, err = ReadDense(strings.NewReader("0 x\n1 0\n"))
	require.ErrorIs(t, err, vemoserr.ErrIngestion)
}

func TestWriteDense_RoundTrip(t *testing.T) {
	d := mustDense(t, [][]float64{{0, 1.0 / 3}, {math.NaN(), 2e-7}})

	var buf bytes.Buffer
	require.NoError(t, WriteDense(&buf, d))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "0.000000000000000000e+00 3.333333333333333148e-01", lines[0])

	back, err := ReadDense(&buf)
	require.NoError(t, err)
	assert.Equal(t, d.At(0, 1), back.At(0, 1))
	assert.True(t, math.IsNaN(back.At(1, 0)))
}

func TestDense_JSON(t *testing.T) {
	d := mustDense(t, [][]float64{{0, math.NaN()}, {1.5, 0}})
	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t, `[[0,null],[1.5,0]]`, string(data))

	var back Dense
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, 2, back.N())
	assert.True(t, math.IsNaN(back.At(0, 1)))
	assert.Equal(t, 1.5, back.At(1, 0))
}

func TestStore(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Add(&Matrix{Name: "a", Data: NewDense(2)}))
	require.NoError(t, s.Add(&Matrix{Name: "b", Kind: Dissimilarity, Data: NewDense(3)}))

	err := s.Add(&Matrix{Name: "a", Data: NewDense(2)})
	require.ErrorIs(t, err, vemoserr.ErrNamingCollision)

	var de *vemoserr.DimensionError
	require.ErrorAs(t, s.Validate(2), &de)
	assert.Equal(t, "b", de.Matrix)
	assert.Equal(t, 3, de.Actual)

	assert.Equal(t, []string{"a", "b"}, s.Names())

	data, err := json.Marshal(s)
	require.NoError(t, err)
	var back Store
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, []string{"a", "b"}, back.Names())
	b, ok := back.Get("b")
	require.True(t, ok)
	assert.Equal(t, Dissimilarity, b.Kind)
	assert.Equal(t, 3, b.Data.N())
}

func TestScoreList(t *testing.T) {
	input := "ID1,ID2,Dice,Jaccard,GT\n" +
		"a,b,0.9,,Y\n" +
		"b,c,0.2,0.1,N\n" +
		"c,a,,0.3,n\n"

	sl, err := ReadScoreList(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []string{"Dice", "Jaccard"}, sl.Metrics)
	assert.Equal(t, []string{"a", "b", "c"}, sl.IDs())

	set := record.NewSet()
	for _, id := range sl.IDs() {
		require.NoError(t, set.Add(record.New(id, nil)))
	}
	matrices, err := sl.Scatter(set, Similarity, "scores.csv")
	require.NoError(t, err)
	require.Len(t, matrices, 2)

	dice := matrices[0].Data
	assert.Equal(t, 0.9, dice.At(0, 1))
	assert.True(t, math.IsNaN(dice.At(1, 0)), "scatter does not mirror")
	assert.Equal(t, 0.2, dice.At(1, 2))
	assert.Equal(t, 2, dice.Defined())
	assert.Equal(t, FormatList, matrices[0].Format)

	require.NoError(t, sl.ApplyGroundTruth(set))
	a, _ := set.Get("a")
	b, _ := set.Get("b")
	assert.Equal(t, []string{"b"}, a.Matches)
	assert.Equal(t, []string{"a"}, b.Matches)
}

func TestScoreList_Errors(t *testing.T) {
	_, err := ReadScoreList(strings.NewReader("ID1,ID2,M,GT\na,b,1\n"))
	require.ErrorIs(t, err, vemoserr.ErrIngestion)

	_, err = ReadScoreList(strings.NewReader("ID1,GT\n"))
	require.ErrorIs(t, err, vemoserr.ErrIngestion)

	sl, err := ReadScoreList(strings.NewReader("ID1,ID2,M,GT\na,zz,1,N\n"))
	require.NoError(t, err)
	set := record.NewSet()
	require.NoError(t, set.Add(record.New("a", nil)))
	_, err = sl.Scatter(set, Similarity, "")
	require.ErrorIs(t, err, record.ErrUnknownID)
}

func TestStats(t *testing.T) {
	d := mustDense(t, [][]float64{{1, 2}, {math.NaN(), 3}})
	s := Stats(d)
	assert.Equal(t, 3, s.Count)
	assert.InDelta(t, 2.0, s.Mean, 1e-12)
	assert.InDelta(t, 2.0, s.Median, 1e-12)
	assert.InDelta(t, math.Sqrt(2.0/3), s.StdDev, 1e-12)

	empty := Stats(NewDense(2))
	assert.Zero(t, empty.Count)
	assert.True(t, math.IsNaN(empty.Mean))
}
