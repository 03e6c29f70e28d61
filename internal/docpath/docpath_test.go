package docpath

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDoc() map[string]any {
	return map[string]any{
		"a": map[string]any{
			"b": []any{
				map[string]any{"c": "first"},
				map[string]any{"c": "second"},
			},
		},
		"calls": map[string]any{
			"wf.align": map[string]any{"status": "Failed"},
			"wf.sort":  map[string]any{"status": "Done"},
			"wf.index": map[string]any{"other": true},
		},
	}
}

func TestParse_Empty(t *testing.T) {
	segs, err := Parse("")
	require.NoError(t, err)
	assert.Empty(t, segs)
}

func TestParse_FieldsIndexesWildcard(t *testing.T) {
	segs, err := Parse("a.b[0][2].*.c")
	require.NoError(t, err)
	require.Len(t, segs, 6)
	assert.Equal(t, Segment{Kind: SegmentField, Field: "a"}, segs[0])
	assert.Equal(t, Segment{Kind: SegmentField, Field: "b"}, segs[1])
	assert.Equal(t, Segment{Kind: SegmentIndex, Index: 0}, segs[2])
	assert.Equal(t, Segment{Kind: SegmentIndex, Index: 2}, segs[3])
	assert.Equal(t, Segment{Kind: SegmentWildcard}, segs[4])
	assert.Equal(t, Segment{Kind: SegmentField, Field: "c"}, segs[5])
}

func TestParse_UnmatchedBracket(t *testing.T) {
	_, err := Parse("a.b[3")
	var pe *PathError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ErrUnmatchedBracket, pe.Kind)
}

func TestParse_InvalidIndex(t *testing.T) {
	for _, path := range []string{"a[x]", "a[-1]", "a[1.5]", "a[]"} {
		_, err := Parse(path)
		var pe *PathError
		require.ErrorAs(t, err, &pe, "path %q", path)
		assert.Equal(t, ErrInvalidIndex, pe.Kind, "path %q", path)
	}
}

func TestExtract_EmptyPathReturnsDocument(t *testing.T) {
	doc := sampleDoc()
	got, err := Extract(doc, "")
	require.NoError(t, err)
	assert.Equal(t, any(doc), got)
}

func TestExtract_NestedFieldAndIndex(t *testing.T) {
	got, err := Extract(sampleDoc(), "a.b[1].c")
	require.NoError(t, err)
	assert.Equal(t, "second", got)
}

func TestExtract_KeyNotFoundListsSiblings(t *testing.T) {
	_, err := Extract(sampleDoc(), "a.missing")
	var pe *PathError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ErrKeyNotFound, pe.Kind)
	assert.Equal(t, "missing", pe.Key)
	assert.Equal(t, []string{"b"}, pe.Keys)
	assert.False(t, pe.More)
	assert.Contains(t, pe.Error(), `"missing"`)
	assert.Contains(t, pe.Error(), "b")
}

func TestExtract_KeyPreviewCappedAtTen(t *testing.T) {
	wide := make(map[string]any, 15)
	for _, k := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l", "m", "n", "o"} {
		wide[k] = 1
	}
	_, err := Extract(map[string]any{"root": wide}, "root.zz")
	var pe *PathError
	require.ErrorAs(t, err, &pe)
	assert.Len(t, pe.Keys, 10)
	assert.True(t, pe.More)
	assert.Contains(t, pe.Error(), "...")
}

func TestExtract_IndexOutOfRangeReportsLength(t *testing.T) {
	_, err := Extract(sampleDoc(), "a.b[5].c")
	var pe *PathError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ErrIndexOutOfRange, pe.Kind)
	assert.Equal(t, 5, pe.Index)
	assert.Equal(t, 2, pe.Length)
	assert.Contains(t, pe.Error(), "2 elements")
}

func TestExtract_TypeMismatch(t *testing.T) {
	_, err := Extract(sampleDoc(), "a[0]")
	var pe *PathError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ErrTypeMismatch, pe.Kind)

	_, err = Extract(sampleDoc(), "a.b.c")
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ErrTypeMismatch, pe.Kind)
}

func TestExtract_WildcardPartialResults(t *testing.T) {
	got, err := Extract(sampleDoc(), "calls.*.status")
	require.NoError(t, err)
	m, ok := got.(map[string]any)
	require.True(t, ok)
	// wf.index has no "status" key and is dropped, not an error.
	assert.Equal(t, map[string]any{
		"wf.align": "Failed",
		"wf.sort":  "Done",
	}, m)
}

func TestExtract_WildcardLastSegmentIncludesValuesAsIs(t *testing.T) {
	got, err := Extract(sampleDoc(), "calls.*")
	require.NoError(t, err)
	m, ok := got.(map[string]any)
	require.True(t, ok)
	assert.Len(t, m, 3)
	assert.Equal(t, map[string]any{"other": true}, m["wf.index"])
}

func TestExtract_WildcardOnNonObject(t *testing.T) {
	_, err := Extract(sampleDoc(), "a.b.*")
	var pe *PathError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ErrTypeMismatch, pe.Kind)
}

func TestExtract_WildcardThroughArrays(t *testing.T) {
	doc := map[string]any{
		"tasks": map[string]any{
			"one": []any{map[string]any{"v": 1}},
			"two": []any{}, // index out of range, dropped
		},
	}
	got, err := Extract(doc, "tasks.*[0].v")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"one": 1}, got)
}
