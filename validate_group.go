package h5schema

import (
	"sort"

	"github.com/jacoelho/h5schema/dtype"
	"github.com/jacoelho/h5schema/errors"
	"github.com/jacoelho/h5schema/internal/schema"
)

// validateGroup validates a container against a group schema. Combinators
// and conditionals are mutually exclusive with plain member checking and
// take precedence in a fixed order.
func (v *validator) validateGroup(grp Container, node *schema.Group, path string, stack map[string]struct{}) bool {
	// A permissive stub stands in for a cyclic or over-deep reference and
	// accepts any subtree.
	if node.Stub {
		return true
	}

	switch {
	case len(node.AnyOf) > 0:
		return v.groupAnyOf(grp, node, path, stack)
	case len(node.AllOf) > 0:
		return v.groupAllOf(grp, node, path, stack)
	case len(node.OneOf) > 0:
		return v.groupOneOf(grp, node, path, stack)
	case node.Not != nil:
		return v.groupNot(grp, node, path, stack)
	case node.If != nil:
		return v.groupConditional(grp, node, path, stack)
	}

	ok := true

	// Group-level enum and const constrain the container's own name, so a
	// pattern-matched group can be limited to a set of literal names.
	if node.HasEnum && !valueIn(baseName(path), node.Enum) {
		v.report(errors.NewValidationf(errors.ErrEnumViolation, path,
			"group name %q not in allowed enum values", baseName(path)))
		ok = false
	}
	if v.stopped() {
		return false
	}
	if node.HasConst && !valueEqual(baseName(path), node.Const) {
		v.report(errors.NewValidationf(errors.ErrConstViolation, path,
			"group name %q does not match const value %v", baseName(path), node.Const))
		ok = false
	}
	if v.stopped() {
		return false
	}

	if !v.groupDependentRequired(grp, node, path) {
		ok = false
	}
	if v.stopped() {
		return false
	}
	if !v.groupDependentSchemas(grp, node, path, stack) {
		ok = false
	}
	if v.stopped() {
		return false
	}
	if !v.groupMembers(grp, node, path, stack) {
		ok = false
	}
	if v.stopped() {
		return false
	}
	if !v.checkAttrs(grp, node.Attrs, path) {
		ok = false
	}
	return ok
}

// groupMembers matches every present child against the schema and checks
// that every required literal member is present.
func (v *validator) groupMembers(grp Container, node *schema.Group, path string, stack map[string]struct{}) bool {
	ok := true
	for _, name := range grp.Children() {
		child, _ := grp.Child(name)
		childPath := joinPath(path, name)
		matches := node.Match(name)
		switch len(matches) {
		case 0:
			v.report(errors.NewValidationf(errors.ErrUnexpectedMember, childPath,
				"member %q is not included in schema", name))
			ok = false
		case 1:
			if !v.validate(child, matches[0], childPath, stack) {
				ok = false
			}
		default:
			// Tied alternatives, typically a pattern member carrying anyOf:
			// try each until one validates.
			passed := false
			for _, alt := range matches {
				if v.probe(func(p *validator) bool {
					return p.validate(child, alt, childPath, stack)
				}) {
					passed = true
					break
				}
			}
			if !passed {
				v.report(errors.NewValidationf(errors.ErrAnyOfFailed, childPath,
					"member %q failed all %d alternative schemas", name, len(matches)))
				ok = false
			}
		}
		if v.stopped() {
			return false
		}
	}

	for _, m := range node.Members {
		base := m.Base()
		if base.Sel.IsPattern() || !base.IsRequired() {
			continue
		}
		if _, present := grp.Child(base.Name()); !present {
			v.report(errors.NewValidationf(errors.ErrMissingRequiredMember, path,
				"required member %q is not in %s", base.Name(), path))
			ok = false
		}
		if v.stopped() {
			return false
		}
	}
	return ok
}

// groupAnyOf succeeds on the first alternative the container fully
// satisfies; violations found while trying alternatives are suppressed.
func (v *validator) groupAnyOf(grp Container, node *schema.Group, path string, stack map[string]struct{}) bool {
	for _, alt := range node.AnyOf {
		if v.probe(func(p *validator) bool {
			return p.validateGroup(grp, alt, path, stack)
		}) {
			return true
		}
		if v.fatal != nil {
			return false
		}
	}
	v.report(errors.NewValidationf(errors.ErrAnyOfFailed, path,
		"group %s failed all anyOf alternatives", path))
	return false
}

// groupSatisfies checks only the members an alternative explicitly declares
// plus that alternative's own required list: the partial-constraint check
// shared by allOf, oneOf, and not.
func (v *validator) groupSatisfies(grp Container, alt *schema.Group, path string, stack map[string]struct{}) bool {
	for _, m := range alt.Members {
		base := m.Base()
		name := base.Name()
		child, present := grp.Child(name)
		if !present {
			if base.IsRequired() {
				return false
			}
			continue
		}
		if !v.probe(func(p *validator) bool {
			return p.validate(child, m, joinPath(path, name), stack)
		}) {
			return false
		}
	}
	return true
}

func (v *validator) groupAllOf(grp Container, node *schema.Group, path string, stack map[string]struct{}) bool {
	ok := true
	for i, alt := range node.AllOf {
		if !v.groupSatisfies(grp, alt, path, stack) {
			v.report(errors.NewValidationf(errors.ErrAllOfFailed, path,
				"group %s failed allOf schema %d", path, i))
			ok = false
		}
		if v.stopped() {
			return false
		}
	}
	return ok
}

func (v *validator) groupOneOf(grp Container, node *schema.Group, path string, stack map[string]struct{}) bool {
	count := 0
	for _, alt := range node.OneOf {
		if v.groupSatisfies(grp, alt, path, stack) {
			count++
		}
		if v.fatal != nil {
			return false
		}
	}
	switch {
	case count == 0:
		v.report(errors.NewValidationf(errors.ErrOneOfFailed, path,
			"group %s failed all oneOf alternatives", path))
		return false
	case count > 1:
		v.report(errors.NewValidationf(errors.ErrOneOfFailed, path,
			"group %s matched %d oneOf alternatives (expected exactly one)", path, count))
		return false
	}
	return true
}

func (v *validator) groupNot(grp Container, node *schema.Group, path string, stack map[string]struct{}) bool {
	if v.groupSatisfies(grp, node.Not, path, stack) {
		v.report(errors.NewValidationf(errors.ErrNotViolation, path,
			"group %s matched 'not' schema", path))
		return false
	}
	return v.fatal == nil
}

// groupConditional applies then or else by merging the consequence into a
// transient group and validating against it. A consequence that itself
// carries if/then/else recurses, so conditionals nest without bound.
func (v *validator) groupConditional(grp Container, node *schema.Group, path string, stack map[string]struct{}) bool {
	var consequence *schema.Group
	if v.groupConditionHolds(grp, node.If) {
		consequence = node.Then
	} else {
		consequence = node.Else
	}
	if consequence == nil {
		return true
	}
	if consequence.If != nil {
		return v.groupConditional(grp, consequence, path, stack)
	}
	merged, err := schema.MergeGroupConditional(node, consequence)
	if err != nil {
		return v.abort(err)
	}
	return v.validateGroup(grp, merged, path, stack)
}

// groupConditionHolds evaluates an if schema against attribute presence and
// values and member presence only; it is not a full validation.
func (v *validator) groupConditionHolds(grp Container, cond *schema.Group) bool {
	if cond == nil {
		return true
	}
	attrs := grp.Attrs()
	for _, attr := range cond.Attrs {
		val, present := attrs[attr.Name]
		if !present {
			return false
		}
		if attr.HasConst && !valueEqual(val.Data, attr.Const) {
			return false
		}
		if attr.Dtype != nil && !dtype.Compatible(val.Dtype, *attr.Dtype) {
			return false
		}
	}
	for _, m := range cond.Members {
		if m.Base().Sel.IsPattern() {
			continue
		}
		if _, present := grp.Child(m.Base().Name()); !present {
			return false
		}
	}
	return true
}

func (v *validator) groupDependentRequired(grp Container, node *schema.Group, path string) bool {
	ok := true
	for _, trigger := range sortedStringKeys(node.DependentRequired) {
		if _, present := grp.Child(trigger); !present {
			continue
		}
		for _, name := range node.DependentRequired[trigger] {
			if _, present := grp.Child(name); !present {
				v.report(errors.NewValidationf(errors.ErrDependentRequired, path,
					"member %q is present but required dependent member %q is missing", trigger, name))
				ok = false
			}
			if v.stopped() {
				return false
			}
		}
	}
	return ok
}

// groupDependentSchemas applies each dependent schema whose trigger member
// is present: every member the dependent schema declares must exist and
// validate.
func (v *validator) groupDependentSchemas(grp Container, node *schema.Group, path string, stack map[string]struct{}) bool {
	ok := true
	for _, trigger := range sortedGroupKeys(node.DependentSchemas) {
		if _, present := grp.Child(trigger); !present {
			continue
		}
		dep := node.DependentSchemas[trigger]
		for _, m := range dep.Members {
			name := m.Base().Name()
			child, present := grp.Child(name)
			if !present {
				v.report(errors.NewValidationf(errors.ErrDependentSchema, path,
					"dependent schema for %q requires member %q which is missing", trigger, name))
				ok = false
			} else if !v.validate(child, m, joinPath(path, name), stack) {
				ok = false
			}
			if v.stopped() {
				return false
			}
		}
	}
	return ok
}

// checkAttrs validates instance attributes against their declarations:
// undeclared attributes, dtype and shape compatibility, declared constants,
// and required presence. It is shared by group and dataset validation.
func (v *validator) checkAttrs(item Instance, declared []schema.Attr, path string) bool {
	ok := true
	byName := make(map[string]schema.Attr, len(declared))
	for _, attr := range declared {
		byName[attr.Name] = attr
	}

	attrs := item.Attrs()
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		attr, found := byName[name]
		if !found {
			v.report(errors.NewValidationf(errors.ErrUnexpectedAttribute, path,
				"attribute %q is not included in schema", name))
			ok = false
			if v.stopped() {
				return false
			}
			continue
		}
		val := attrs[name]
		if attr.Dtype != nil && !dtype.Compatible(val.Dtype, *attr.Dtype) {
			v.report(errors.Validation{
				Code:     string(errors.ErrAttributeDtypeMismatch),
				Message:  "attribute " + name + " has an incompatible dtype",
				Path:     path,
				Actual:   val.Dtype.String(),
				Expected: []string{attr.Dtype.String()},
			})
			ok = false
		}
		if attr.HasShape && !dtype.MatchShape(val.Shape, attr.Shape) {
			v.report(errors.NewValidationf(errors.ErrAttributeShapeMismatch, path,
				"attribute %q shape %v does not match the schema shape %v", name, val.Shape, attr.Shape))
			ok = false
		}
		if attr.HasConst && !valueEqual(val.Data, attr.Const) {
			v.report(errors.NewValidationf(errors.ErrConstViolation, path,
				"attribute %q value %v does not match const %v", name, val.Data, attr.Const))
			ok = false
		}
		if v.stopped() {
			return false
		}
	}

	for _, attr := range declared {
		if !attr.Required {
			continue
		}
		if _, present := attrs[attr.Name]; !present {
			v.report(errors.NewValidationf(errors.ErrMissingRequiredAttribute, path,
				"required attribute %q is not included in %s attributes", attr.Name, path))
			ok = false
		}
		if v.stopped() {
			return false
		}
	}
	return ok
}

func sortedStringKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedGroupKeys(m map[string]*schema.Group) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
