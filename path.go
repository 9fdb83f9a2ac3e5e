package jsontransform

import (
	"fmt"
	"strconv"
	"strings"
)

// SegmentKind tags a PathSegment (spec §3).
type SegmentKind int

const (
	SegRoot SegmentKind = iota
	SegField
	SegIndex
	SegWildcard
	SegRecursiveDescent
)

// PathSegment is one step of a Path.
type PathSegment struct {
	Kind  SegmentKind
	Field string // SegField, SegRecursiveDescent
	Index int    // SegIndex
}

// Path is an ordered sequence of PathSegments, always starting with SegRoot.
type Path struct {
	Raw      string
	Segments []PathSegment
}

// String returns a normalized textual form of the path.
func (p Path) String() string {
	var b strings.Builder
	for _, s := range p.Segments {
		switch s.Kind {
		case SegRoot:
			b.WriteByte('$')
		case SegField:
			b.WriteByte('.')
			b.WriteString(s.Field)
		case SegIndex:
			fmt.Fprintf(&b, "[%d]", s.Index)
		case SegWildcard:
			b.WriteString("[*]")
		case SegRecursiveDescent:
			b.WriteString("..")
			b.WriteString(s.Field)
		}
	}
	return b.String()
}

// IsWritable reports whether the path contains only Root/Field/Index
// segments, the subset spec §3 requires of write paths.
func (p Path) IsWritable() bool {
	for _, s := range p.Segments {
		if s.Kind == SegWildcard || s.Kind == SegRecursiveDescent {
			return false
		}
	}
	return true
}

// ParsePath parses a read path per the grammar in spec §4.A:
//
//	$ ( . Ident | [ (Integer | 'QuotedIdent' | *) ] | .. Ident )*
func ParsePath(raw string) (Path, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Path{}, &Error{Code: ErrPathSyntaxError, Message: "path must not be empty", Path: raw}
	}
	if s[0] != '$' {
		return Path{}, &Error{Code: ErrPathSyntaxError, Message: "path must start with '$'", Path: raw}
	}

	segs := []PathSegment{{Kind: SegRoot}}
	i := 1
	for i < len(s) {
		switch {
		case s[i] == '.' && i+1 < len(s) && s[i+1] == '.':
			i += 2
			if i >= len(s) {
				return Path{}, &Error{Code: ErrPathSyntaxError, Message: "unexpected end after '..'", Path: raw}
			}
			name, adv := readIdent(s[i:])
			if name == "" {
				return Path{}, &Error{Code: ErrPathSyntaxError, Message: fmt.Sprintf("expected identifier after '..' at position %d", i), Path: raw}
			}
			segs = append(segs, PathSegment{Kind: SegRecursiveDescent, Field: name})
			i += adv
		case s[i] == '.':
			i++
			if i >= len(s) {
				return Path{}, &Error{Code: ErrPathSyntaxError, Message: "unexpected end after '.'", Path: raw}
			}
			name, adv := readIdent(s[i:])
			if name == "" {
				return Path{}, &Error{Code: ErrPathSyntaxError, Message: fmt.Sprintf("expected identifier after '.' at position %d", i), Path: raw}
			}
			segs = append(segs, PathSegment{Kind: SegField, Field: name})
			i += adv
		case s[i] == '[':
			seg, adv, err := parseBracketSegment(s[i:], raw)
			if err != nil {
				return Path{}, err
			}
			segs = append(segs, seg)
			i += adv
		default:
			return Path{}, &Error{Code: ErrPathSyntaxError, Message: fmt.Sprintf("unexpected character '%c' at position %d", s[i], i), Path: raw}
		}
	}
	return Path{Raw: raw, Segments: segs}, nil
}

// ParseWritePath parses raw as a deterministic write path, prefixing it with
// "$." when the leading "$" is absent (spec §4.G step 6 short form), and
// rejecting Wildcard/RecursiveDescent segments.
func ParseWritePath(raw string) (Path, error) {
	s := raw
	if s == "" {
		return Path{}, &Error{Code: ErrPathSyntaxError, Message: "write path must not be empty"}
	}
	if s[0] != '$' {
		s = "$." + s
	}
	p, err := ParsePath(s)
	if err != nil {
		return Path{}, err
	}
	if !p.IsWritable() {
		return Path{}, &Error{Code: ErrPathSyntaxError, Message: "write path must not contain wildcard or recursive descent segments", Path: raw}
	}
	return p, nil
}

func readIdent(s string) (string, int) {
	if len(s) == 0 {
		return "", 0
	}
	if s[0] == '\'' || s[0] == '"' {
		quote := s[0]
		end := strings.IndexByte(s[1:], quote)
		if end < 0 {
			return "", 0
		}
		return s[1 : 1+end], end + 2
	}
	i := 0
	for i < len(s) && isIdentByte(s[i]) {
		i++
	}
	return s[:i], i
}

func isIdentByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func parseBracketSegment(s string, raw string) (PathSegment, int, error) {
	end := strings.IndexByte(s, ']')
	if end < 0 {
		return PathSegment{}, 0, &Error{Code: ErrPathSyntaxError, Message: "unclosed '['", Path: raw}
	}
	inner := strings.TrimSpace(s[1:end])

	if inner == "*" {
		return PathSegment{Kind: SegWildcard}, end + 1, nil
	}
	if len(inner) >= 2 && (inner[0] == '\'' || inner[0] == '"') && inner[len(inner)-1] == inner[0] {
		return PathSegment{Kind: SegField, Field: inner[1 : len(inner)-1]}, end + 1, nil
	}
	if n, err := strconv.Atoi(inner); err == nil {
		return PathSegment{Kind: SegIndex, Index: n}, end + 1, nil
	}
	if inner == "" {
		return PathSegment{}, 0, &Error{Code: ErrPathSyntaxError, Message: "empty brackets", Path: raw}
	}
	return PathSegment{}, 0, &Error{Code: ErrPathSyntaxError, Message: fmt.Sprintf("invalid bracket segment: %q", inner), Path: raw}
}

// Match is a single (path, value) pair produced by Resolve.
type Match struct {
	Path  string
	Value JsonValue
}

// Resolve evaluates a read path against root, returning every match in the
// order spec §4.A describes: wildcard preserves array order / object
// insertion order; recursive descent is pre-order. A non-existent field
// yields the empty list, never an error.
func Resolve(root JsonValue, path Path) ([]Match, error) {
	return resolveSegs(root, path.Segments, "$")
}

func resolveSegs(node JsonValue, segs []PathSegment, currentPath string) ([]Match, error) {
	if len(segs) == 0 {
		return []Match{{Path: currentPath, Value: node}}, nil
	}
	seg := segs[0]
	rest := segs[1:]

	switch seg.Kind {
	case SegRoot:
		return resolveSegs(node, rest, "$")
	case SegField:
		if node.Kind != KindObject || node.Obj == nil {
			return nil, nil
		}
		v, ok := node.Obj.Get(seg.Field)
		if !ok {
			return nil, nil
		}
		return resolveSegs(v, rest, currentPath+"."+seg.Field)
	case SegIndex:
		if node.Kind != KindArray {
			return nil, nil
		}
		idx := seg.Index
		if idx < 0 {
			idx += len(node.Arr)
		}
		if idx < 0 || idx >= len(node.Arr) {
			return nil, nil
		}
		return resolveSegs(node.Arr[idx], rest, fmt.Sprintf("%s[%d]", currentPath, idx))
	case SegWildcard:
		return resolveWildcard(node, rest, currentPath)
	case SegRecursiveDescent:
		var results []Match
		walkRecursive(node, seg.Field, rest, currentPath, &results)
		return results, nil
	default:
		return nil, &Error{Code: ErrPathSyntaxError, Message: "unknown path segment kind"}
	}
}

func resolveWildcard(node JsonValue, rest []PathSegment, currentPath string) ([]Match, error) {
	var results []Match
	switch node.Kind {
	case KindObject:
		if node.Obj != nil {
			for pair := node.Obj.Oldest(); pair != nil; pair = pair.Next() {
				r, err := resolveSegs(pair.Value, rest, currentPath+"."+pair.Key)
				if err != nil {
					return nil, err
				}
				results = append(results, r...)
			}
		}
	case KindArray:
		for i, item := range node.Arr {
			r, err := resolveSegs(item, rest, fmt.Sprintf("%s[%d]", currentPath, i))
			if err != nil {
				return nil, err
			}
			results = append(results, r...)
		}
	}
	return results, nil
}

// walkRecursive implements RecursiveDescent(name): a pre-order traversal
// collecting every descendant field named `name`.
func walkRecursive(node JsonValue, name string, rest []PathSegment, currentPath string, out *[]Match) {
	switch node.Kind {
	case KindObject:
		if node.Obj == nil {
			return
		}
		for pair := node.Obj.Oldest(); pair != nil; pair = pair.Next() {
			childPath := currentPath + "." + pair.Key
			if pair.Key == name {
				r, err := resolveSegs(pair.Value, rest, childPath)
				if err == nil {
					*out = append(*out, r...)
				}
			}
			walkRecursive(pair.Value, name, rest, childPath, out)
		}
	case KindArray:
		for i, item := range node.Arr {
			walkRecursive(item, name, rest, fmt.Sprintf("%s[%d]", currentPath, i), out)
		}
	}
}

// ResolveSingle applies the single-value extraction rule from spec §4.A:
// 0 matches -> missing; 1 match -> that value; >1 matches -> the list itself.
func ResolveSingle(results []Match) (JsonValue, bool) {
	switch len(results) {
	case 0:
		return JsonValue{}, false
	case 1:
		return results[0].Value, true
	default:
		arr := make([]JsonValue, len(results))
		for i, r := range results {
			arr[i] = r.Value
		}
		return NewArray(arr), true
	}
}

// WriteValue writes value at path within *root, creating intermediate
// objects/arrays on demand when createPaths is true (spec §4.A write
// semantics, §3 array-padding invariant).
func WriteValue(root *JsonValue, path Path, value JsonValue, createPaths bool) error {
	if !path.IsWritable() {
		return &Error{Code: ErrPathSyntaxError, Message: "wildcard/recursive segments are not allowed in write paths", Path: path.Raw}
	}
	if root.Kind == KindNull {
		*root = NewObject()
	}
	newRoot, err := setPath(*root, path.Segments, value, createPaths, path.Raw)
	if err != nil {
		return err
	}
	*root = newRoot
	return nil
}

func setPath(node JsonValue, segs []PathSegment, value JsonValue, createPaths bool, rawPath string) (JsonValue, error) {
	if len(segs) == 0 {
		return value, nil
	}
	seg := segs[0]
	rest := segs[1:]

	switch seg.Kind {
	case SegRoot:
		return setPath(node, rest, value, createPaths, rawPath)

	case SegField:
		if node.Kind != KindObject {
			if !createPaths {
				return JsonValue{}, &Error{Code: ErrPathConflictError, Message: "cannot write field into non-object", Path: rawPath}
			}
			node = NewObject()
		}
		existing, ok := node.Obj.Get(seg.Field)
		if !ok {
			existing = JsonValue{Kind: KindNull}
		}
		child, err := setPath(existing, rest, value, createPaths, rawPath)
		if err != nil {
			return JsonValue{}, err
		}
		node.Obj.Set(seg.Field, child)
		return node, nil

	case SegIndex:
		if node.Kind != KindArray {
			if !createPaths {
				return JsonValue{}, &Error{Code: ErrPathConflictError, Message: "cannot write index into non-array", Path: rawPath}
			}
			node = JsonValue{Kind: KindArray}
		}
		idx := seg.Index
		if idx < 0 {
			return JsonValue{}, &Error{Code: ErrPathSyntaxError, Message: "negative index in write path", Path: rawPath}
		}
		if idx >= len(node.Arr) {
			if !createPaths {
				return JsonValue{}, &Error{Code: ErrPathNotFoundError, Message: "index out of range", Path: rawPath}
			}
			for len(node.Arr) <= idx {
				node.Arr = append(node.Arr, JsonValue{Kind: KindNull})
			}
		}
		child, err := setPath(node.Arr[idx], rest, value, createPaths, rawPath)
		if err != nil {
			return JsonValue{}, err
		}
		node.Arr[idx] = child
		return node, nil

	default:
		return JsonValue{}, &Error{Code: ErrPathSyntaxError, Message: "wildcard/recursive segments are not allowed in write paths", Path: rawPath}
	}
}
