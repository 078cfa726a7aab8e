package schema

import (
	"errors"
	"fmt"
	"slices"

	"github.com/jacoelho/h5schema/dtype"
)

// ErrSchema reports a schema document that cannot be compiled into a node
// model.
var ErrSchema = errors.New("invalid schema")

// NewRoot builds the root group node from a parsed schema document. A root
// without an explicit type is taken to be a group.
func NewRoot(doc map[string]any) (*Group, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: nil document", ErrSchema)
	}
	node, err := Build(doc, LiteralSelector(""), nil, doc)
	if err != nil {
		return nil, err
	}
	group, ok := node.(*Group)
	if !ok {
		return nil, fmt.Errorf("%w: root schema must be a group", ErrSchema)
	}
	return group, nil
}

// Build compiles one schema document node. The kind is determined by the
// "type" field, by the presence of "$ref", or inferred as group when members
// are declared without an explicit type.
func Build(doc map[string]any, sel Selector, parent *Group, root map[string]any) (Node, error) {
	if _, ok := doc["$ref"]; ok {
		return buildRef(doc, sel, parent, root)
	}

	typ, hasType := docString(doc["type"])
	if !hasType {
		_, hasMembers := doc["members"]
		_, hasPatterns := doc["patternMembers"]
		if !hasMembers && !hasPatterns {
			return nil, fmt.Errorf("%w: member %q has neither type nor $ref", ErrSchema, sel.String())
		}
		typ = "group"
	}

	switch typ {
	case "group":
		return buildGroup(doc, sel, parent, root)
	case "dataset":
		return buildDataset(doc, sel, parent, root)
	default:
		return nil, fmt.Errorf("%w: member %q has unknown type %q", ErrSchema, sel.String(), typ)
	}
}

func buildRef(doc map[string]any, sel Selector, parent *Group, root map[string]any) (*Ref, error) {
	ptr, ok := docString(doc["$ref"])
	if !ok || ptr == "" {
		return nil, fmt.Errorf("%w: member %q has a non-string $ref", ErrSchema, sel.String())
	}
	common, err := buildCommon(doc, sel, parent, root)
	if err != nil {
		return nil, err
	}
	return &Ref{Common: common, Ptr: ptr}, nil
}

func buildCommon(doc map[string]any, sel Selector, parent *Group, root map[string]any) (Common, error) {
	c := Common{Sel: sel, Parent: parent, Root: root, Doc: doc}

	if raw, ok := doc["enum"]; ok {
		values, ok := docList(raw)
		if !ok {
			return c, fmt.Errorf("%w: %q enum is not a list", ErrSchema, sel.String())
		}
		c.Enum = values
		c.HasEnum = true
	}
	if raw, ok := doc["const"]; ok {
		c.Const = raw
		c.HasConst = true
	}
	if raw, ok := doc["$comment"]; ok {
		c.Comment, _ = docString(raw)
	}
	if raw, ok := doc["format"]; ok {
		name, ok := docString(raw)
		if !ok {
			return c, fmt.Errorf("%w: %q format is not a string", ErrSchema, sel.String())
		}
		c.Format = name
		c.HasFormat = true
	}
	if raw, ok := doc["minLength"]; ok {
		n, ok := docInt(raw)
		if !ok {
			return c, fmt.Errorf("%w: %q minLength is not an integer", ErrSchema, sel.String())
		}
		c.MinLength = n
		c.HasMinLength = true
	}
	if raw, ok := doc["maxLength"]; ok {
		n, ok := docInt(raw)
		if !ok {
			return c, fmt.Errorf("%w: %q maxLength is not an integer", ErrSchema, sel.String())
		}
		c.MaxLength = n
		c.HasMaxLength = true
	}
	if raw, ok := doc["pattern"]; ok {
		p, ok := docString(raw)
		if !ok {
			return c, fmt.Errorf("%w: %q pattern is not a string", ErrSchema, sel.String())
		}
		c.Pattern = p
		c.HasPattern = true
	}
	if raw, ok := doc["dependentRequired"]; ok {
		m, ok := docMap(raw)
		if !ok {
			return c, fmt.Errorf("%w: %q dependentRequired is not a mapping", ErrSchema, sel.String())
		}
		c.DependentRequired = make(map[string][]string, len(m))
		for _, trigger := range sortedKeys(m) {
			names, ok := docStringSlice(m[trigger])
			if !ok {
				return c, fmt.Errorf("%w: %q dependentRequired %q is not a name list", ErrSchema, sel.String(), trigger)
			}
			c.DependentRequired[trigger] = names
		}
	}

	attrs, err := buildAttrs(doc["attrs"], sel)
	if err != nil {
		return c, err
	}
	c.Attrs = attrs
	return c, nil
}

func buildAttrs(raw any, sel Selector) ([]Attr, error) {
	if raw == nil {
		return nil, nil
	}
	entries, ok := docList(raw)
	if !ok {
		return nil, fmt.Errorf("%w: %q attrs is not a list", ErrSchema, sel.String())
	}
	attrs := make([]Attr, 0, len(entries))
	for i, entry := range entries {
		m, ok := docMap(entry)
		if !ok {
			return nil, fmt.Errorf("%w: %q attr %d is not a mapping", ErrSchema, sel.String(), i)
		}
		name, ok := docString(m["name"])
		if !ok || name == "" {
			return nil, fmt.Errorf("%w: %q attr %d has no name", ErrSchema, sel.String(), i)
		}
		attr := Attr{Name: name}
		if spec, ok := m["dtype"]; ok {
			d, err := dtype.Parse(spec)
			if err != nil {
				return nil, fmt.Errorf("%q attr %q: %w", sel.String(), name, err)
			}
			attr.Dtype = &d
		}
		if rawShape, ok := m["shape"]; ok {
			shape, ok := docIntSlice(rawShape)
			if !ok {
				return nil, fmt.Errorf("%w: %q attr %q has bad shape", ErrSchema, sel.String(), name)
			}
			attr.Shape = shape
			attr.HasShape = true
		}
		if rawRequired, ok := m["required"]; ok {
			attr.Required, _ = docBool(rawRequired)
		}
		if constVal, ok := m["const"]; ok {
			attr.Const = constVal
			attr.HasConst = true
		}
		attrs = append(attrs, attr)
	}
	return attrs, nil
}

// buildGroup compiles a group node. Combinator and conditional fields define
// the node's entire semantics: when one is present, member processing is
// skipped and only the first recognized field (in anyOf, allOf, oneOf, not,
// if order) takes effect.
func buildGroup(doc map[string]any, sel Selector, parent *Group, root map[string]any) (*Group, error) {
	common, err := buildCommon(doc, sel, parent, root)
	if err != nil {
		return nil, err
	}
	g := &Group{Common: common}

	if raw, ok := doc["anyOf"]; ok {
		g.AnyOf, err = buildAlternatives(raw, "anyOf", sel, parent, root)
		return g, err
	}
	if raw, ok := doc["allOf"]; ok {
		g.AllOf, err = buildAlternatives(raw, "allOf", sel, parent, root)
		return g, err
	}
	if raw, ok := doc["oneOf"]; ok {
		g.OneOf, err = buildAlternatives(raw, "oneOf", sel, parent, root)
		return g, err
	}
	if raw, ok := doc["not"]; ok {
		g.Not, err = buildSubGroup(raw, "not", sel, parent, root)
		return g, err
	}
	if raw, ok := doc["if"]; ok {
		if g.If, err = buildSubGroup(raw, "if", sel, parent, root); err != nil {
			return nil, err
		}
		if rawThen, ok := doc["then"]; ok {
			if g.Then, err = buildSubGroup(rawThen, "then", sel, parent, root); err != nil {
				return nil, err
			}
		}
		if rawElse, ok := doc["else"]; ok {
			if g.Else, err = buildSubGroup(rawElse, "else", sel, parent, root); err != nil {
				return nil, err
			}
		}
		return g, nil
	}

	if raw, ok := doc["dependentSchemas"]; ok {
		m, ok := docMap(raw)
		if !ok {
			return nil, fmt.Errorf("%w: %q dependentSchemas is not a mapping", ErrSchema, sel.String())
		}
		g.DependentSchemas = make(map[string]*Group, len(m))
		for _, trigger := range sortedKeys(m) {
			sub, err := buildSubGroup(m[trigger], "dependentSchemas "+trigger, sel, parent, root)
			if err != nil {
				return nil, err
			}
			g.DependentSchemas[trigger] = sub
		}
	}

	if raw, ok := doc["required"]; ok {
		names, ok := docStringSlice(raw)
		if !ok {
			return nil, fmt.Errorf("%w: group %q required is not a name list", ErrSchema, sel.String())
		}
		g.Required = names
	}

	if err := buildMembers(g, doc); err != nil {
		return nil, err
	}
	if err := buildPatternMembers(g, doc); err != nil {
		return nil, err
	}

	for _, name := range g.Required {
		found := false
		for _, m := range g.Members {
			if !m.Base().Sel.IsPattern() && m.Base().Name() == name {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: group %q requires undeclared member %q", ErrSchema, g.Path(), name)
		}
	}
	return g, nil
}

// buildMembers processes the explicit member map. A "required" key inside the
// member map is the member-map spelling of the required list; it is merged
// with the node-level spelling.
func buildMembers(g *Group, doc map[string]any) error {
	raw, ok := doc["members"]
	if !ok {
		return nil
	}
	members, ok := docMap(raw)
	if !ok {
		return fmt.Errorf("%w: group %q members is not a mapping", ErrSchema, g.Path())
	}
	for _, name := range sortedKeys(members) {
		if name == "required" {
			names, ok := docStringSlice(members[name])
			if !ok {
				return fmt.Errorf("%w: group %q required is not a name list", ErrSchema, g.Path())
			}
			for _, n := range names {
				if !slices.Contains(g.Required, n) {
					g.Required = append(g.Required, n)
				}
			}
			continue
		}
		memberDoc, ok := docMap(members[name])
		if !ok {
			return fmt.Errorf("%w: group %q member %q is not a mapping", ErrSchema, g.Path(), name)
		}
		child, err := Build(memberDoc, LiteralSelector(name), g, g.Root)
		if err != nil {
			return err
		}
		g.Members = append(g.Members, child)
	}
	return nil
}

// buildPatternMembers processes the pattern member map. A pattern member
// whose document carries anyOf yields one child per alternative, all sharing
// the pattern selector; the validator tries each until one succeeds.
func buildPatternMembers(g *Group, doc map[string]any) error {
	raw, ok := doc["patternMembers"]
	if !ok {
		return nil
	}
	patterns, ok := docMap(raw)
	if !ok {
		return fmt.Errorf("%w: group %q patternMembers is not a mapping", ErrSchema, g.Path())
	}
	for _, pattern := range sortedKeys(patterns) {
		sel, err := PatternSelector(pattern)
		if err != nil {
			return fmt.Errorf("%w: group %q pattern %q does not compile: %v", ErrSchema, g.Path(), pattern, err)
		}
		memberDoc, ok := docMap(patterns[pattern])
		if !ok {
			return fmt.Errorf("%w: group %q pattern member %q is not a mapping", ErrSchema, g.Path(), pattern)
		}
		if rawAlts, ok := memberDoc["anyOf"]; ok {
			alts, ok := docList(rawAlts)
			if !ok {
				return fmt.Errorf("%w: group %q pattern member %q anyOf is not a list", ErrSchema, g.Path(), pattern)
			}
			for i, rawAlt := range alts {
				altDoc, ok := docMap(rawAlt)
				if !ok {
					return fmt.Errorf("%w: group %q pattern member %q alternative %d is not a mapping", ErrSchema, g.Path(), pattern, i)
				}
				child, err := Build(altDoc, sel, g, g.Root)
				if err != nil {
					return err
				}
				g.Members = append(g.Members, child)
			}
			continue
		}
		child, err := Build(memberDoc, sel, g, g.Root)
		if err != nil {
			return err
		}
		g.Members = append(g.Members, child)
	}
	return nil
}

func buildAlternatives(raw any, field string, sel Selector, parent *Group, root map[string]any) ([]*Group, error) {
	list, ok := docList(raw)
	if !ok {
		return nil, fmt.Errorf("%w: %q %s is not a list", ErrSchema, sel.String(), field)
	}
	alts := make([]*Group, 0, len(list))
	for i, rawAlt := range list {
		sub, err := buildSubGroup(rawAlt, fmt.Sprintf("%s %d", field, i), sel, parent, root)
		if err != nil {
			return nil, err
		}
		alts = append(alts, sub)
	}
	return alts, nil
}

// buildSubGroup compiles a combinator, conditional, or dependent sub-schema
// as a group, injecting the group type when the document leaves it implicit.
func buildSubGroup(raw any, field string, sel Selector, parent *Group, root map[string]any) (*Group, error) {
	doc, ok := docMap(raw)
	if !ok {
		return nil, fmt.Errorf("%w: %q %s is not a mapping", ErrSchema, sel.String(), field)
	}
	doc = withGroupType(doc)
	node, err := Build(doc, sel, parent, root)
	if err != nil {
		return nil, err
	}
	sub, ok := node.(*Group)
	if !ok {
		return nil, fmt.Errorf("%w: %q %s must be a group schema", ErrSchema, sel.String(), field)
	}
	return sub, nil
}

func withGroupType(doc map[string]any) map[string]any {
	if _, ok := doc["type"]; ok {
		return doc
	}
	out := make(map[string]any, len(doc)+1)
	out["type"] = "group"
	for k, v := range doc {
		out[k] = v
	}
	return out
}

func buildDataset(doc map[string]any, sel Selector, parent *Group, root map[string]any) (*Dataset, error) {
	common, err := buildCommon(doc, sel, parent, root)
	if err != nil {
		return nil, err
	}
	d := &Dataset{Common: common}

	if spec, ok := doc["dtype"]; ok {
		dt, err := dtype.Parse(spec)
		if err != nil {
			return nil, fmt.Errorf("dataset %q: %w", d.Path(), err)
		}
		d.Dtype = &dt
	}
	if raw, ok := doc["shape"]; ok {
		shape, ok := docIntSlice(raw)
		if !ok {
			return nil, fmt.Errorf("%w: dataset %q has bad shape", ErrSchema, d.Path())
		}
		d.Shape = shape
		d.HasShape = true
	}

	if d.NotDoc, err = subDoc(doc, "not", d); err != nil {
		return nil, err
	}
	if d.IfDoc, err = subDoc(doc, "if", d); err != nil {
		return nil, err
	}
	if d.ThenDoc, err = subDoc(doc, "then", d); err != nil {
		return nil, err
	}
	if d.ElseDoc, err = subDoc(doc, "else", d); err != nil {
		return nil, err
	}

	if raw, ok := doc["dependentSchemas"]; ok {
		m, ok := docMap(raw)
		if !ok {
			return nil, fmt.Errorf("%w: dataset %q dependentSchemas is not a mapping", ErrSchema, d.Path())
		}
		d.DependentDocs = make(map[string]map[string]any, len(m))
		for _, trigger := range sortedKeys(m) {
			sub, ok := docMap(m[trigger])
			if !ok {
				return nil, fmt.Errorf("%w: dataset %q dependentSchemas %q is not a mapping", ErrSchema, d.Path(), trigger)
			}
			d.DependentDocs[trigger] = sub
		}
	}
	return d, nil
}

func subDoc(doc map[string]any, field string, d *Dataset) (map[string]any, error) {
	raw, ok := doc[field]
	if !ok {
		return nil, nil
	}
	m, ok := docMap(raw)
	if !ok {
		return nil, fmt.Errorf("%w: dataset %q %s is not a mapping", ErrSchema, d.Path(), field)
	}
	return m, nil
}
