// FILE: lixenwraith/flatconf/tree.go
package flatconf

import (
	"fmt"
	"iter"
	"slices"
	"strings"
)

// ConflictPolicy decides what happens when a dotted key changes the shape of
// an existing entry (scalar to table or table to scalar).
type ConflictPolicy int

const (
	// ConflictOverwrite lets the last write win: a nested path discards a
	// scalar at its prefix and a leaf assignment replaces a table.
	ConflictOverwrite ConflictPolicy = iota

	// ConflictReject reports ErrShapeConflict and leaves the tree unchanged.
	ConflictReject
)

func (p ConflictPolicy) String() string {
	switch p {
	case ConflictOverwrite:
		return "overwrite"
	case ConflictReject:
		return "reject"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// Tree is one level of the configuration hierarchy: an insertion-ordered map
// from key segment to Value. Segments are unique within a level.
// The zero Tree is empty and ready to use. A Tree is not safe for
// concurrent mutation.
type Tree struct {
	keys   []string         // insertion order
	values map[string]Value // segment -> value
}

// NewTree creates an empty tree
func NewTree() *Tree {
	return &Tree{
		values: make(map[string]Value),
	}
}

// Len returns the number of entries at this level
func (t *Tree) Len() int {
	if t == nil {
		return 0
	}
	return len(t.keys)
}

// Keys returns the segments at this level in insertion order
func (t *Tree) Keys() []string {
	if t == nil {
		return nil
	}
	return slices.Clone(t.keys)
}

// Has reports whether segment exists at this level
func (t *Tree) Has(segment string) bool {
	if t == nil {
		return false
	}
	_, ok := t.values[segment]
	return ok
}

// Get returns the value stored at segment on this level only. It does not
// interpret dots; use Lookup for dotted paths.
func (t *Tree) Get(segment string) (Value, bool) {
	if t == nil {
		return Value{}, false
	}
	v, ok := t.values[segment]
	return v, ok
}

// Set stores v at segment. An existing entry is replaced in place and keeps
// its position; a new segment is appended.
func (t *Tree) Set(segment string, v Value) {
	if t.values == nil {
		t.values = make(map[string]Value)
	}
	if _, exists := t.values[segment]; !exists {
		t.keys = append(t.keys, segment)
	}
	t.values[segment] = v
}

// Delete removes segment from this level, reporting whether it was present
func (t *Tree) Delete(segment string) bool {
	if _, exists := t.values[segment]; !exists {
		return false
	}
	delete(t.values, segment)
	t.keys = slices.DeleteFunc(t.keys, func(k string) bool { return k == segment })
	return true
}

// All iterates this level's entries in insertion order
func (t *Tree) All() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		if t == nil {
			return
		}
		for _, k := range t.keys {
			if !yield(k, t.values[k]) {
				return
			}
		}
	}
}

// Insert stores v under a dotted key, creating nested tables as needed.
// The key is split on its first dot: with no dot the key is a leaf and
// replaces whatever was there, table included. Otherwise the remainder is
// inserted into the table at the head segment, which is reused when present
// and created when absent. A scalar found at the head is discarded in favour
// of a new table.
//
// Insert never fails. The empty key is not meaningful and is stored as an
// empty segment.
func (t *Tree) Insert(key string, v Value) {
	_ = t.insert(key, v, ConflictOverwrite, nil)
}

// InsertStrict is Insert under ConflictReject: it returns ErrShapeConflict
// instead of discarding a scalar or replacing a table, and leaves the tree
// untouched in that case.
func (t *Tree) InsertStrict(key string, v Value) error {
	return t.insert(key, v, ConflictReject, nil)
}

// insert walks key segment by segment. onDiscard, when non-nil, is told about
// every prefix whose previous value is thrown away by a shape change.
func (t *Tree) insert(key string, v Value, policy ConflictPolicy, onDiscard func(prefix string, old Value)) error {
	if policy == ConflictReject {
		if err := t.checkShape(key, v); err != nil {
			return err
		}
	}
	t.insertPath(key, "", v, onDiscard)
	return nil
}

func (t *Tree) insertPath(key, parent string, v Value, onDiscard func(string, Value)) {
	head, rest, nested := strings.Cut(key, ".")
	prefix := joinPath(parent, head)

	if !nested {
		if old, exists := t.values[head]; exists && onDiscard != nil && old.IsTable() && !v.IsTable() {
			onDiscard(prefix, old)
		}
		t.Set(head, v)
		return
	}

	existing, exists := t.values[head]
	if exists && existing.IsTable() {
		existing.table.insertPath(rest, prefix, v, onDiscard)
		return
	}
	if exists && onDiscard != nil {
		onDiscard(prefix, existing)
	}

	child := NewTree()
	child.insertPath(rest, prefix, v, onDiscard)
	t.Set(head, TableValue(child))
}

// checkShape verifies that inserting v at key would not change the shape of
// an existing entry.
func (t *Tree) checkShape(key string, v Value) error {
	current := t
	path := ""
	for {
		head, rest, nested := strings.Cut(key, ".")
		path = joinPath(path, head)
		existing, exists := current.values[head]
		if !exists {
			return nil
		}
		if !nested {
			if existing.IsTable() != v.IsTable() {
				return fmt.Errorf("%w at %q: existing %s, new %s", ErrShapeConflict, path, existing.Kind(), v.Kind())
			}
			return nil
		}
		if !existing.IsTable() {
			return fmt.Errorf("%w at %q: existing %s, nested key %q", ErrShapeConflict, path, existing.Kind(), rest)
		}
		current = existing.table
		key = rest
	}
}

// Lookup resolves a dotted path. Segments are split the same way Insert
// splits them, so any key passed to Insert resolves to its value.
func (t *Tree) Lookup(path string) (Value, bool) {
	current := t
	for current != nil {
		head, rest, nested := strings.Cut(path, ".")
		v, ok := current.values[head]
		if !ok {
			return Value{}, false
		}
		if !nested {
			return v, true
		}
		if !v.IsTable() {
			return Value{}, false
		}
		current = v.table
		path = rest
	}
	return Value{}, false
}

// Walk visits every scalar leaf depth-first in insertion order with its full
// dotted path. Empty tables are visited once as table values. Returning an
// error from fn stops the walk.
func (t *Tree) Walk(fn func(path string, v Value) error) error {
	return t.walk("", fn)
}

func (t *Tree) walk(prefix string, fn func(string, Value) error) error {
	if t == nil {
		return nil
	}
	for _, k := range t.keys {
		v := t.values[k]
		path := joinPath(prefix, k)
		if v.IsTable() && v.table.Len() > 0 {
			if err := v.table.walk(path, fn); err != nil {
				return err
			}
			continue
		}
		if err := fn(path, v); err != nil {
			return err
		}
	}
	return nil
}

// Paths returns every leaf path in walk order
func (t *Tree) Paths() []string {
	var paths []string
	_ = t.Walk(func(path string, _ Value) error {
		paths = append(paths, path)
		return nil
	})
	return paths
}

// Equal reports whether both trees hold equal values under the same keys in the same order
func (t *Tree) Equal(other *Tree) bool {
	if t.Len() != other.Len() {
		return false
	}
	if t.Len() == 0 {
		return true
	}
	if !slices.Equal(t.keys, other.keys) {
		return false
	}
	for _, k := range t.keys {
		if !t.values[k].Equal(other.values[k]) {
			return false
		}
	}
	return true
}

// Clone creates a deep copy of the tree
func (t *Tree) Clone() *Tree {
	clone := NewTree()
	if t == nil {
		return clone
	}
	clone.keys = slices.Clone(t.keys)
	for k, v := range t.values {
		clone.values[k] = v.clone()
	}
	return clone
}

// ToMap converts the tree into nested map[string]any with string, bool and
// float64 leaves. Key order is lost.
func (t *Tree) ToMap() map[string]any {
	m := make(map[string]any, t.Len())
	for k, v := range t.All() {
		m[k] = v.Interface()
	}
	return m
}

// Flatten returns leaf values keyed by full dotted path
func (t *Tree) Flatten() map[string]Value {
	flat := make(map[string]Value)
	_ = t.Walk(func(path string, v Value) error {
		flat[path] = v
		return nil
	})
	return flat
}
