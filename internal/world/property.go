// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package world

import (
	"errors"
	"slices"
	"strconv"
	"strings"

	"github.com/gobwas/glob"
	"github.com/samber/oops"

	"github.com/holomush/muckdb/internal/dbref"
	"github.com/holomush/muckdb/internal/lock"
)

// PathSeparator delimits property path segments.
const PathSeparator = "/"

// PropValue is a property tree node: one of StringProp, IntProp, FloatProp,
// RefProp, LockProp, or a nested *PropertyTree directory.
type PropValue interface {
	propValue()
}

// StringProp is a string-valued property.
type StringProp string

// IntProp is an integer-valued property.
type IntProp int64

// FloatProp is a float-valued property.
type FloatProp float64

// RefProp is a reference-valued property.
type RefProp dbref.Ref

// LockProp is a lock-expression property.
type LockProp struct {
	Lock *lock.Lock
}

func (StringProp) propValue()    {}
func (IntProp) propValue()       {}
func (FloatProp) propValue()     {}
func (RefProp) propValue()       {}
func (LockProp) propValue()      {}
func (*PropertyTree) propValue() {}

// FormatProp renders a scalar for display and lock evaluation. Directories
// render as the empty string.
func FormatProp(v PropValue) string {
	switch v := v.(type) {
	case StringProp:
		return string(v)
	case IntProp:
		return strconv.FormatInt(int64(v), 10)
	case FloatProp:
		return strconv.FormatFloat(float64(v), 'g', -1, 64)
	case RefProp:
		return dbref.Ref(v).String()
	case LockProp:
		return v.Lock.String()
	default:
		return ""
	}
}

// ErrEmptyPath is returned when a property path has no segments.
var ErrEmptyPath = errors.New("empty property path")

// PropertyTree maps path segments to scalars or nested trees. It is not safe
// for concurrent use; Thing guards its tree with the entity lock. The zero
// value is an empty tree.
type PropertyTree struct {
	entries map[string]PropValue
}

// NewPropertyTree returns an empty tree.
func NewPropertyTree() *PropertyTree {
	return &PropertyTree{}
}

// SplitPath breaks a path into its non-empty segments.
func SplitPath(path string) []string {
	raw := strings.Split(path, PathSeparator)
	segs := raw[:0]
	for _, s := range raw {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

// Len returns the number of direct children.
func (t *PropertyTree) Len() int {
	return len(t.entries)
}

// Keys returns the direct child names in sorted order.
func (t *PropertyTree) Keys() []string {
	keys := make([]string, 0, len(t.entries))
	for k := range t.entries {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Child returns the direct child named key.
func (t *PropertyTree) Child(key string) (PropValue, bool) {
	v, ok := t.entries[key]
	return v, ok
}

// Get resolves path. Hitting a scalar before the last segment is a miss.
func (t *PropertyTree) Get(path string) (PropValue, bool) {
	segs := SplitPath(path)
	if len(segs) == 0 {
		return nil, false
	}
	dir := t
	for _, seg := range segs[:len(segs)-1] {
		next, ok := dir.entries[seg].(*PropertyTree)
		if !ok {
			return nil, false
		}
		dir = next
	}
	v, ok := dir.entries[segs[len(segs)-1]]
	return v, ok
}

// Set stores v at path, creating intermediate directories.
//
// When an intermediate segment currently holds a scalar, that scalar is
// discarded and replaced by a fresh directory. Set reports whether any such
// promotion happened.
func (t *PropertyTree) Set(path string, v PropValue) (promoted bool, err error) {
	segs := SplitPath(path)
	if len(segs) == 0 {
		return false, oops.Code("INVALID_PROPERTY_PATH").With("path", path).Wrap(ErrEmptyPath)
	}
	dir := t
	for _, seg := range segs[:len(segs)-1] {
		if dir.entries == nil {
			dir.entries = make(map[string]PropValue)
		}
		switch existing := dir.entries[seg].(type) {
		case *PropertyTree:
			dir = existing
		case nil:
			next := NewPropertyTree()
			dir.entries[seg] = next
			dir = next
		default:
			next := NewPropertyTree()
			dir.entries[seg] = next
			dir = next
			promoted = true
		}
	}
	if dir.entries == nil {
		dir.entries = make(map[string]PropValue)
	}
	dir.entries[segs[len(segs)-1]] = v
	return promoted, nil
}

// Delete removes the node at path. Empty parent directories are kept.
func (t *PropertyTree) Delete(path string) bool {
	segs := SplitPath(path)
	if len(segs) == 0 {
		return false
	}
	dir := t
	for _, seg := range segs[:len(segs)-1] {
		next, ok := dir.entries[seg].(*PropertyTree)
		if !ok {
			return false
		}
		dir = next
	}
	last := segs[len(segs)-1]
	if _, ok := dir.entries[last]; !ok {
		return false
	}
	delete(dir.entries, last)
	return true
}

// Walk visits every scalar leaf in sorted path order.
func (t *PropertyTree) Walk(fn func(path string, v PropValue)) {
	t.walk("", fn)
}

func (t *PropertyTree) walk(prefix string, fn func(string, PropValue)) {
	for _, k := range t.Keys() {
		path := k
		if prefix != "" {
			path = prefix + PathSeparator + k
		}
		if sub, ok := t.entries[k].(*PropertyTree); ok {
			sub.walk(path, fn)
			continue
		}
		fn(path, t.entries[k])
	}
}

// Glob returns the paths of scalar leaves matching pattern, where '*' does
// not cross a path separator and '**' does.
func (t *PropertyTree) Glob(pattern string) ([]string, error) {
	g, err := glob.Compile(pattern, '/')
	if err != nil {
		return nil, oops.Code("INVALID_PROPERTY_PATTERN").With("pattern", pattern).Wrap(err)
	}
	var out []string
	t.Walk(func(path string, _ PropValue) {
		if g.Match(path) {
			out = append(out, path)
		}
	})
	return out, nil
}

// Clone returns a deep copy. Lock values are shared; they are immutable.
func (t *PropertyTree) Clone() *PropertyTree {
	c := NewPropertyTree()
	if len(t.entries) == 0 {
		return c
	}
	c.entries = make(map[string]PropValue, len(t.entries))
	for k, v := range t.entries {
		if sub, ok := v.(*PropertyTree); ok {
			c.entries[k] = sub.Clone()
			continue
		}
		c.entries[k] = v
	}
	return c
}
