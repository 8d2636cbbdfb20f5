package record

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vemos/vemoserr"
)

func newTestSet(t *testing.T, ids ...string) *Set {
	t.Helper()
	s := NewSet()
	for _, id := range ids {
		require.NoError(t, s.Add(New(id, []string{"G"})))
	}
	return s
}

func TestSet_AddRejectsDuplicate(t *testing.T) {
	s := newTestSet(t, "a", "b")
	err := s.Add(New("a", nil))
	require.ErrorIs(t, err, ErrDuplicateID)
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, 1, s.IndexOf("b"))
	assert.Equal(t, -1, s.IndexOf("zz"))
}

func TestSet_AddMatchIsMutual(t *testing.T) {
	s := newTestSet(t, "a", "b", "c")
	require.NoError(t, s.AddMatch("a", "b"))
	require.NoError(t, s.AddMatch("b", "a"))

	a, _ := s.Get("a")
	b, _ := s.Get("b")
	assert.Equal(t, []string{"b"}, a.Matches)
	assert.Equal(t, []string{"a"}, b.Matches)
	require.NoError(t, s.Validate())

	require.ErrorIs(t, s.AddMatch("a", "nope"), ErrUnknownID)
}

func TestSet_RepairMatches(t *testing.T) {
	s := newTestSet(t, "1", "2", "3")
	r1, _ := s.Get("1")
	r1.Matches = []string{"2", "3"}
	r3, _ := s.Get("3")
	r3.Matches = []string{"1"}

	require.Error(t, s.Validate())

	repairs := s.RepairMatches()
	assert.Equal(t, []MatchRepair{{From: "1", To: "2"}}, repairs)
	require.NoError(t, s.Validate())

	assert.Empty(t, s.RepairMatches())
}

func TestSet_RepairMatchesKeepsUnknown(t *testing.T) {
	s := newTestSet(t, "1", "2")
	r1, _ := s.Get("1")
	r1.Matches = []string{"9", "2"}

	repairs := s.RepairMatches()
	assert.Equal(t, []MatchRepair{{From: "1", To: "2"}}, repairs)
	assert.Equal(t, []string{"9", "2"}, r1.Matches)
	require.NoError(t, s.Validate())

	bms := s.MatchBitmaps()
	assert.Equal(t, []uint32{1}, bms[0].ToArray())
	assert.Equal(t, []uint32{0}, bms[1].ToArray())
}

func TestSet_Rekey(t *testing.T) {
	s := NewSet()
	require.NoError(t, s.Add(New("id1", []string{"A", "x"})))
	require.NoError(t, s.Add(New("id2", []string{"B", "y"})))
	require.NoError(t, s.AddMatch("id1", "id2"))

	mapping, err := s.Rekey(func(r *Record) string { return r.Groups[0] + "_" + r.ID })
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"id1": "A_id1", "id2": "B_id2"}, mapping)
	assert.Equal(t, []string{"A_id1", "B_id2"}, s.IDs())

	r, ok := s.Get("A_id1")
	require.True(t, ok)
	assert.Equal(t, []string{"B_id2"}, r.Matches)
	_, ok = s.Get("id1")
	assert.False(t, ok)
	require.NoError(t, s.Validate())
}

func TestSet_RekeyCollision(t *testing.T) {
	s := newTestSet(t, "a", "b")
	_, err := s.Rekey(func(*Record) string { return "same" })
	require.ErrorIs(t, err, ErrDuplicateID)
}

func TestSet_MatchBitmaps(t *testing.T) {
	s := newTestSet(t, "a", "b", "c")
	require.NoError(t, s.AddMatch("a", "c"))

	bms := s.MatchBitmaps()
	require.Len(t, bms, 3)
	assert.True(t, bms[0].Contains(2))
	assert.False(t, bms[0].Contains(1))
	assert.True(t, bms[2].Contains(0))
	assert.True(t, bms[1].IsEmpty())
}

func TestSet_JSONRoundTripKeepsOrder(t *testing.T) {
	s := newTestSet(t, "z", "a", "m")
	require.NoError(t, s.AddMatch("z", "m"))
	z, _ := s.Get("z")
	z.Files["Image"] = "G/z.png"

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var out Set
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, []string{"z", "a", "m"}, out.IDs())
	if diff := cmp.Diff(s.At(0), out.At(0)); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}
}

func TestRecord_DescriptionLine(t *testing.T) {
	r := &Record{
		ID:      "7",
		Groups:  []string{"X", "Y"},
		Matches: []string{"8"},
		Files:   map[string]string{"Segmentation": "7_seg.png", "Image": "7.png"},
	}
	assert.Equal(t, "7; (X, Y); (8); Image: 7.png; Segmentation: 7_seg.png", r.DescriptionLine())
	assert.Equal(t, []string{"Image", "Segmentation"}, r.SortedFileTypes())
}

func TestGroupings(t *testing.T) {
	g := NewGroupings()
	g.Add(OriginalLevel(1), "A", "id1")
	g.Add(OriginalLevel(1), "B", "id2")
	g.Add(OriginalLevel(1), "A", "id3")

	assert.Equal(t, []string{ManualGrouping, "Original Level 1"}, g.Names())
	lvl, ok := g.Get("Original Level 1")
	require.True(t, ok)
	assert.Equal(t, []string{"A", "B"}, lvl.Groups())
	assert.Equal(t, []string{"id1", "id3"}, lvl.IDs("A"))

	g.Rekey(map[string]string{"id1": "A_id1"})
	assert.Equal(t, []string{"A_id1", "id3"}, lvl.IDs("A"))

	s := newTestSet(t, "A_id1", "id2")
	err := g.Validate(s)
	require.ErrorIs(t, err, ErrUnknownID)

	g.Delete(ManualGrouping)
	assert.Contains(t, g.Names(), ManualGrouping)
}

func TestGroupings_JSONRoundTrip(t *testing.T) {
	g := NewGroupings()
	g.Set("Clusters", []Group{{Name: "c1", IDs: []string{"a", "b"}}, {Name: "c0", IDs: []string{"c"}}})

	data, err := json.Marshal(g)
	require.NoError(t, err)

	var out Groupings
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, []string{ManualGrouping, "Clusters"}, out.Names())
	c, ok := out.Get("Clusters")
	require.True(t, ok)
	assert.Equal(t, []string{"c1", "c0"}, c.Groups())
	assert.Equal(t, []string{"a", "b"}, c.IDs("c1"))
}

func TestDataTypes(t *testing.T) {
	types := DefaultDataTypes()
	require.NoError(t, ValidateDataTypes(types))
	assert.False(t, types[0].Overlaps(types[1]), "formats differ")

	dup := append(types, DataType{Name: "Image", Kind: KindCurve})
	require.ErrorIs(t, ValidateDataTypes(dup), vemoserr.ErrNamingCollision)

	assert.Equal(t, []string{"*_mask", "*_seg"}, ParseList(" *_mask, *_seg ,"))

	k, err := ParseKind("point cloud")
	require.NoError(t, err)
	assert.Equal(t, KindPointCloud, k)
	_, err = ParseKind("video")
	require.Error(t, err)

	dt, ok := Lookup(types, "Curve")
	require.True(t, ok)
	assert.Equal(t, KindCurve, dt.Kind)
}
