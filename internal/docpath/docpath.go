// Package docpath extracts values from decoded JSON documents using a
// dot/bracket path grammar: fields separated by ".", any field optionally
// followed by one or more "[N]" array indexes, and "*" standing for every
// key of the current object. Documents are the map[string]any / []any
// trees produced by oj.Parse or encoding/json.
package docpath

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// keyPreviewLimit caps how many sibling keys a key-not-found error lists.
const keyPreviewLimit = 10

// SegmentKind identifies the kind of a parsed path segment.
type SegmentKind int

const (
	SegmentField SegmentKind = iota
	SegmentIndex
	SegmentWildcard
)

// Segment is one parsed token of a path expression.
type Segment struct {
	Kind  SegmentKind
	Field string // set for SegmentField
	Index int    // set for SegmentIndex
}

// String renders the segment the way it appeared in the source path.
func (s Segment) String() string {
	switch s.Kind {
	case SegmentIndex:
		return fmt.Sprintf("[%d]", s.Index)
	case SegmentWildcard:
		return "*"
	default:
		return s.Field
	}
}

// ErrorKind classifies a PathError.
type ErrorKind int

const (
	ErrUnmatchedBracket ErrorKind = iota
	ErrInvalidIndex
	ErrTypeMismatch
	ErrIndexOutOfRange
	ErrKeyNotFound
)

// PathError reports a parse or evaluation failure. Path holds the
// sub-path walked up to and including the offending segment so callers
// can see exactly where extraction stopped.
type PathError struct {
	Kind    ErrorKind
	Path    string
	Key     string   // missing key, for ErrKeyNotFound
	Keys    []string // capped preview of available sibling keys
	More    bool     // true when Keys was capped
	Index   int      // requested index, for ErrIndexOutOfRange
	Length  int      // sequence length, for ErrIndexOutOfRange
	Message string
}

// Error implements the error interface.
func (e *PathError) Error() string {
	switch e.Kind {
	case ErrUnmatchedBracket:
		return fmt.Sprintf("unmatched '[' in path %q", e.Path)
	case ErrInvalidIndex:
		return fmt.Sprintf("invalid array index %q in path %q: must be a non-negative integer", e.Key, e.Path)
	case ErrTypeMismatch:
		return fmt.Sprintf("cannot apply %q: %s", e.Path, e.Message)
	case ErrIndexOutOfRange:
		return fmt.Sprintf("index %d out of range at %q: sequence has %d elements", e.Index, e.Path, e.Length)
	case ErrKeyNotFound:
		preview := strings.Join(e.Keys, ", ")
		if e.More {
			preview += ", ..."
		}
		return fmt.Sprintf("key %q not found at %q; available keys: [%s]", e.Key, e.Path, preview)
	default:
		return fmt.Sprintf("path error at %q: %s", e.Path, e.Message)
	}
}

// Parse tokenizes a path expression in a single left-to-right pass.
// An empty path yields no segments, meaning "the whole document".
func Parse(path string) ([]Segment, error) {
	if path == "" {
		return nil, nil
	}
	var segs []Segment
	var field strings.Builder
	flush := func() {
		if field.Len() == 0 {
			return
		}
		name := field.String()
		field.Reset()
		if name == "*" {
			segs = append(segs, Segment{Kind: SegmentWildcard})
		} else {
			segs = append(segs, Segment{Kind: SegmentField, Field: name})
		}
	}
	for i := 0; i < len(path); i++ {
		switch path[i] {
		case '.':
			flush()
		case '[':
			flush()
			close := strings.IndexByte(path[i+1:], ']')
			if close < 0 {
				return nil, &PathError{Kind: ErrUnmatchedBracket, Path: path}
			}
			token := path[i+1 : i+1+close]
			idx, err := strconv.Atoi(token)
			if err != nil || idx < 0 {
				return nil, &PathError{Kind: ErrInvalidIndex, Key: token, Path: path}
			}
			segs = append(segs, Segment{Kind: SegmentIndex, Index: idx})
			i += close + 1
		default:
			field.WriteByte(path[i])
		}
	}
	flush()
	return segs, nil
}

// Extract parses path and walks document. Wildcard segments return a map
// from each key to the extraction of the remaining path against that
// key's value; keys whose remaining path fails are dropped silently so
// heterogeneous documents still yield partial results.
func Extract(document any, path string) (any, error) {
	segs, err := Parse(path)
	if err != nil {
		return nil, err
	}
	return eval(document, segs, nil)
}

func eval(current any, segs []Segment, walked []Segment) (any, error) {
	for i, seg := range segs {
		switch seg.Kind {
		case SegmentField:
			obj, ok := current.(map[string]any)
			if !ok {
				return nil, typeMismatch(walked, seg, "object", current)
			}
			val, found := obj[seg.Field]
			if !found {
				keys, more := previewKeys(obj)
				return nil, &PathError{
					Kind: ErrKeyNotFound,
					Path: renderPath(append(walked, seg)),
					Key:  seg.Field,
					Keys: keys,
					More: more,
				}
			}
			current = val
		case SegmentIndex:
			arr, ok := current.([]any)
			if !ok {
				return nil, typeMismatch(walked, seg, "array", current)
			}
			if seg.Index >= len(arr) {
				return nil, &PathError{
					Kind:   ErrIndexOutOfRange,
					Path:   renderPath(append(walked, seg)),
					Index:  seg.Index,
					Length: len(arr),
				}
			}
			current = arr[seg.Index]
		case SegmentWildcard:
			obj, ok := current.(map[string]any)
			if !ok {
				return nil, typeMismatch(walked, seg, "object", current)
			}
			rest := segs[i+1:]
			result := make(map[string]any)
			for key, val := range obj {
				if len(rest) == 0 {
					result[key] = val
					continue
				}
				sub, err := eval(val, rest, append(walked, seg))
				if err != nil {
					continue
				}
				result[key] = sub
			}
			// The wildcard already resolved the remaining path per key.
			return result, nil
		}
		walked = append(walked, seg)
	}
	return current, nil
}

func typeMismatch(walked []Segment, seg Segment, want string, got any) *PathError {
	return &PathError{
		Kind:    ErrTypeMismatch,
		Path:    renderPath(append(walked, seg)),
		Message: fmt.Sprintf("expected %s, found %s", want, typeName(got)),
	}
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, float32, int, int64, int32:
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func renderPath(segs []Segment) string {
	var b strings.Builder
	for i, seg := range segs {
		if i > 0 && seg.Kind != SegmentIndex {
			b.WriteByte('.')
		}
		b.WriteString(seg.String())
	}
	return b.String()
}

// previewKeys returns up to keyPreviewLimit keys in sorted order and
// whether any were omitted.
func previewKeys(obj map[string]any) ([]string, bool) {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) > keyPreviewLimit {
		return keys[:keyPreviewLimit], true
	}
	return keys, false
}
