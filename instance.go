// Package h5schema validates hierarchical, typed data trees (named groups
// and datasets carrying typed attributes) against a declarative,
// JSON-Schema-flavoured schema with structural, value, dependency, and
// boolean/conditional constraints.
package h5schema

import "github.com/jacoelho/h5schema/dtype"

// Value is an attribute value together with its element type and shape.
type Value struct {
	Dtype dtype.Descriptor
	Shape []int
	Data  any
}

// Instance is one node of a hierarchical data tree. The engine never opens,
// closes, or manages the lifetime of the underlying storage; a file-backed
// implementation must keep attribute and value reads valid for the duration
// of one validation call.
type Instance interface {
	// Name returns the node's own name within its parent ("/" for a root).
	Name() string
	// Attrs returns the node's attributes keyed by name.
	Attrs() map[string]Value
}

// Container is an instance node holding named children.
type Container interface {
	Instance
	// Children returns the child names.
	Children() []string
	// Child returns the named child.
	Child(name string) (Instance, bool)
}

// Leaf is an instance node holding typed array data.
type Leaf interface {
	Instance
	Dtype() dtype.Descriptor
	Shape() []int
	// ReadScalar reads the value of a rank-0 leaf.
	ReadScalar() (any, error)
	// ReadAll materializes every value in the leaf.
	ReadAll() ([]any, error)
}
