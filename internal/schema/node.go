package schema

import (
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/jacoelho/h5schema/dtype"
)

// Selector is a schema member's matching key: a literal name or a compiled
// regular expression anchored at the start of the candidate name.
type Selector struct {
	// Literal is the exact member name; empty for pattern selectors.
	Literal string
	// Source is the original pattern text; empty for literal selectors.
	Source string
	// Pattern is the compiled pattern, anchored at the start.
	Pattern *regexp.Regexp
}

// LiteralSelector builds a selector that matches one exact name.
func LiteralSelector(name string) Selector {
	return Selector{Literal: name}
}

// PatternSelector compiles pattern as a selector matching from the start of
// a name.
func PatternSelector(pattern string) (Selector, error) {
	re, err := regexp.Compile("^(?:" + pattern + ")")
	if err != nil {
		return Selector{}, err
	}
	return Selector{Source: pattern, Pattern: re}, nil
}

// IsPattern reports whether the selector is pattern-based.
func (s Selector) IsPattern() bool { return s.Pattern != nil }

// Matches reports whether name satisfies the selector: exact equality for
// literals, a match from the start of name for patterns.
func (s Selector) Matches(name string) bool {
	if s.Pattern != nil {
		return s.Pattern.MatchString(name)
	}
	return s.Literal == name
}

// String returns the literal name or the pattern source.
func (s Selector) String() string {
	if s.Pattern != nil {
		return s.Source
	}
	return s.Literal
}

// Attr declares one attribute: its name, an optional element type and shape,
// an optional exact value, and whether the attribute must be present.
type Attr struct {
	Name     string
	Dtype    *dtype.Descriptor
	Shape    []int
	HasShape bool
	Required bool
	Const    any
	HasConst bool
}

// Common carries the constraint fields shared by every node kind. Fields
// with a paired Has flag default to absent, which never triggers the check.
type Common struct {
	Sel    Selector
	Parent *Group
	// Root is the root schema document, used for pointer resolution. It is
	// set once at construction and never mutated.
	Root map[string]any
	// Doc is this node's raw schema document.
	Doc map[string]any

	Enum     []any
	HasEnum  bool
	Const    any
	HasConst bool
	Comment  string

	Format       string
	HasFormat    bool
	MinLength    int
	HasMinLength bool
	MaxLength    int
	HasMaxLength bool
	Pattern      string
	HasPattern   bool

	DependentRequired map[string][]string

	Attrs []Attr
}

// Base returns the shared constraint fields; it makes every node kind
// addressable through the Node interface.
func (c *Common) Base() *Common { return c }

// Name returns the literal member name for literal selectors, the pattern
// source for pattern selectors, and "/" for the root node.
func (c *Common) Name() string {
	if c.Parent == nil && c.Sel.String() == "" {
		return "/"
	}
	return c.Sel.String()
}

// Path reconstructs the absolute schema path from the parent chain.
func (c *Common) Path() string {
	if c.Parent == nil {
		return "/"
	}
	var parts []string
	parts = append(parts, c.Name())
	for p := c.Parent; p != nil && p.Parent != nil; p = p.Parent {
		parts = append(parts, p.Name())
	}
	slices.Reverse(parts)
	return "/" + strings.Join(parts, "/")
}

// IsRequired reports whether this node must be present: the root always is;
// any other node is required iff its name appears in the parent's required
// list.
func (c *Common) IsRequired() bool {
	if c.Parent == nil {
		return true
	}
	return slices.Contains(c.Parent.Required, c.Name())
}

// Node is a schema tree node: a *Group, *Dataset, or *Ref. Consumers
// dispatch with a type switch over these three kinds.
type Node interface {
	Base() *Common
}

// Group constrains a container node: explicit and pattern members, required
// member names, and boolean or conditional composition. When a combinator or
// conditional field is set it defines the node's entire semantics and the
// member list is empty.
type Group struct {
	Common

	// Stub marks a synthetic permissive group substituted for a cyclic or
	// over-deep reference.
	Stub bool

	Members  []Node
	Required []string

	AnyOf []*Group
	AllOf []*Group
	OneOf []*Group
	Not   *Group
	If    *Group
	Then  *Group
	Else  *Group

	DependentSchemas map[string]*Group
}

// Dataset constrains a leaf node. Nested sub-schemas used by not, if/then/
// else, and dependentSchemas are kept as raw documents: conditional
// resolution merges documents and rebuilds transient nodes from the result.
type Dataset struct {
	Common

	Dtype    *dtype.Descriptor
	Shape    []int
	HasShape bool

	NotDoc        map[string]any
	IfDoc         map[string]any
	ThenDoc       map[string]any
	ElseDoc       map[string]any
	DependentDocs map[string]map[string]any
}

// Ref is an unresolved local reference into the root schema document.
// Resolution is lazy and memoized; the memo is mutex-guarded so one compiled
// schema can serve concurrent validation runs.
type Ref struct {
	Common

	Ptr string

	mu       sync.Mutex
	resolved Node
}

var (
	_ Node = (*Group)(nil)
	_ Node = (*Dataset)(nil)
	_ Node = (*Ref)(nil)
)

// PermissiveStub returns an empty group schema in place of n: no members, no
// required names, valid against anything. It substitutes for cyclic or
// over-deep reference resolution.
func PermissiveStub(n Node) *Group {
	base := n.Base()
	return &Group{Stub: true, Common: Common{
		Sel:    base.Sel,
		Parent: base.Parent,
		Root:   base.Root,
		Doc:    map[string]any{"type": "group"},
	}}
}
