package h5schema

import (
	"fmt"
	"sort"
	"unicode/utf8"

	"github.com/jacoelho/h5schema/dtype"
)

// MemGroup is an in-memory Container, usable for validating synthetic trees
// and as the concrete Instance in tests. Reads are safe for concurrent use
// once construction is done.
type MemGroup struct {
	name     string
	children map[string]Instance
	attrs    map[string]Value
}

// NewMemGroup returns an empty in-memory group.
func NewMemGroup(name string) *MemGroup {
	return &MemGroup{
		name:     name,
		children: make(map[string]Instance),
		attrs:    make(map[string]Value),
	}
}

// Name returns the group's own name.
func (g *MemGroup) Name() string { return g.name }

// Attrs returns the group's attributes.
func (g *MemGroup) Attrs() map[string]Value { return g.attrs }

// Children returns the child names in lexical order.
func (g *MemGroup) Children() []string {
	names := make([]string, 0, len(g.children))
	for name := range g.children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Child returns the named child.
func (g *MemGroup) Child(name string) (Instance, bool) {
	c, ok := g.children[name]
	return c, ok
}

// Put adds a child under its own name and returns the group for chaining.
func (g *MemGroup) Put(child Instance) *MemGroup {
	g.children[child.Name()] = child
	return g
}

// SetAttr sets an attribute and returns the group for chaining.
func (g *MemGroup) SetAttr(name string, v Value) *MemGroup {
	g.attrs[name] = v
	return g
}

// MemLeaf is an in-memory Leaf.
type MemLeaf struct {
	name  string
	dt    dtype.Descriptor
	shape []int
	data  []any
	attrs map[string]Value
}

// NewMemLeaf returns an in-memory leaf with the given element type, shape,
// and values. An empty shape denotes a scalar holding one value.
func NewMemLeaf(name string, dt dtype.Descriptor, shape []int, data ...any) *MemLeaf {
	return &MemLeaf{
		name:  name,
		dt:    dt,
		shape: shape,
		data:  data,
		attrs: make(map[string]Value),
	}
}

// Name returns the leaf's own name.
func (l *MemLeaf) Name() string { return l.name }

// Attrs returns the leaf's attributes.
func (l *MemLeaf) Attrs() map[string]Value { return l.attrs }

// Dtype returns the leaf element type.
func (l *MemLeaf) Dtype() dtype.Descriptor { return l.dt }

// Shape returns the leaf shape.
func (l *MemLeaf) Shape() []int { return l.shape }

// SetAttr sets an attribute and returns the leaf for chaining.
func (l *MemLeaf) SetAttr(name string, v Value) *MemLeaf {
	l.attrs[name] = v
	return l
}

// ReadScalar reads the single value of a rank-0 leaf.
func (l *MemLeaf) ReadScalar() (any, error) {
	if len(l.shape) != 0 {
		return nil, fmt.Errorf("leaf %s is not scalar", l.name)
	}
	if len(l.data) == 0 {
		return nil, fmt.Errorf("leaf %s has no value", l.name)
	}
	return l.data[0], nil
}

// ReadAll returns every value in the leaf.
func (l *MemLeaf) ReadAll() ([]any, error) {
	return l.data, nil
}

// ScalarValue builds an attribute Value from a Go scalar, inferring the
// element type the way a typed-array library would: strings become
// fixed-capacity unicode, integers 8-byte signed, floats 8-byte, booleans
// 1-byte.
func ScalarValue(v any) Value {
	switch s := v.(type) {
	case string:
		return Value{
			Dtype: dtype.Descriptor{Kind: dtype.Unicode, Size: 4 * utf8.RuneCountInString(s)},
			Data:  s,
		}
	case bool:
		return Value{Dtype: dtype.Descriptor{Kind: dtype.Bool, Size: 1}, Data: s}
	case float32:
		return Value{Dtype: dtype.Descriptor{Kind: dtype.Float, Size: 4}, Data: s}
	case float64:
		return Value{Dtype: dtype.Descriptor{Kind: dtype.Float, Size: 8}, Data: s}
	case int, int8, int16, int32, int64:
		return Value{Dtype: dtype.Descriptor{Kind: dtype.Int, Size: 8}, Data: s}
	case uint, uint8, uint16, uint32, uint64:
		return Value{Dtype: dtype.Descriptor{Kind: dtype.Uint, Size: 8}, Data: s}
	default:
		return Value{Data: v}
	}
}

// ArrayValue builds an attribute Value with an explicit type and shape.
func ArrayValue(dt dtype.Descriptor, shape []int, data any) Value {
	return Value{Dtype: dt, Shape: shape, Data: data}
}
