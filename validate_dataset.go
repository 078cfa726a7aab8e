package h5schema

import (
	"fmt"
	"regexp"
	"sort"
	"unicode/utf8"

	"github.com/jacoelho/h5schema/dtype"
	"github.com/jacoelho/h5schema/errors"
	"github.com/jacoelho/h5schema/internal/formats"
	"github.com/jacoelho/h5schema/internal/schema"
)

// validateDataset validates a leaf against a dataset schema. A conditional
// triple is resolved first: the consequence is merged into the base document
// and a transient node is rebuilt, so every subsequent check runs against
// the effective schema.
func (v *validator) validateDataset(leaf Leaf, node *schema.Dataset, path string, stack map[string]struct{}) bool {
	effective := node
	if node.IfDoc != nil {
		resolved, err := v.effectiveDataset(leaf, node)
		if err != nil {
			return v.abort(err)
		}
		effective = resolved
	}

	ok := true
	if !v.checkDatasetData(leaf, effective, path) {
		ok = false
	}
	if v.stopped() {
		return false
	}
	if !v.datasetDependentRequired(leaf, effective, path) {
		ok = false
	}
	if v.stopped() {
		return false
	}
	if !v.datasetDependentSchemas(leaf, effective, path, stack) {
		ok = false
	}
	if v.stopped() {
		return false
	}
	if effective.NotDoc != nil && !v.datasetNot(leaf, effective, path) {
		ok = false
	}
	if v.stopped() {
		return false
	}
	if !v.checkAttrs(leaf, effective.Attrs, path) {
		ok = false
	}
	return ok
}

// checkDatasetData runs the dtype, shape, and value-level constraints.
func (v *validator) checkDatasetData(leaf Leaf, node *schema.Dataset, path string) bool {
	ok := true
	actual := leaf.Dtype()

	if node.Dtype != nil && !dtype.Compatible(actual, *node.Dtype) {
		v.report(errors.Validation{
			Code:     string(errors.ErrDtypeMismatch),
			Message:  fmt.Sprintf("dataset %s has dtype %s, schema requires %s", path, actual.String(), node.Dtype.String()),
			Path:     path,
			Actual:   actual.String(),
			Expected: []string{node.Dtype.String()},
		})
		ok = false
	}
	if v.stopped() {
		return false
	}

	if node.HasShape && !dtype.MatchShape(leaf.Shape(), node.Shape) {
		v.report(errors.NewValidationf(errors.ErrShapeMismatch, path,
			"dataset %s has shape %v, schema requires %v", path, leaf.Shape(), node.Shape))
		ok = false
	}
	if v.stopped() {
		return false
	}

	if node.HasEnum {
		values, err := readValues(leaf)
		if err != nil {
			v.report(errors.NewValidationf(errors.ErrEnumViolation, path,
				"could not read dataset %s: %v", path, err))
			ok = false
		} else {
			for _, val := range values {
				if !valueIn(val, node.Enum) {
					v.report(errors.NewValidationf(errors.ErrEnumViolation, path,
						"value %s is not in the allowed enum values", renderValue(val)))
					ok = false
					break
				}
			}
		}
	}
	if v.stopped() {
		return false
	}

	if node.HasConst {
		values, err := readValues(leaf)
		if err != nil {
			v.report(errors.NewValidationf(errors.ErrConstViolation, path,
				"could not read dataset %s: %v", path, err))
			ok = false
		} else {
			for _, val := range values {
				if !valueEqual(val, node.Const) {
					v.report(errors.NewValidationf(errors.ErrConstViolation, path,
						"value %s does not match const value %s", renderValue(val), renderValue(node.Const)))
					ok = false
					break
				}
			}
		}
	}
	if v.stopped() {
		return false
	}

	if node.HasFormat && !v.checkFormat(leaf, node, path) {
		ok = false
	}
	if v.stopped() {
		return false
	}
	if (node.HasMinLength || node.HasMaxLength) && !v.checkLength(leaf, node, path) {
		ok = false
	}
	if v.stopped() {
		return false
	}
	if node.HasPattern && !v.checkPattern(leaf, node, path) {
		ok = false
	}
	return ok
}

func (v *validator) checkFormat(leaf Leaf, node *schema.Dataset, path string) bool {
	if !leaf.Dtype().IsString() {
		v.report(errors.NewValidationf(errors.ErrFormatType, path,
			"format %q requires string data, dataset %s has dtype %s", node.Format, path, leaf.Dtype().String()))
		return false
	}
	values, err := readValues(leaf)
	if err != nil {
		v.report(errors.NewValidationf(errors.ErrFormatViolation, path,
			"could not read dataset %s: %v", path, err))
		return false
	}
	ok := true
	for i, val := range values {
		s, _ := asText(val)
		if !formats.Validate(node.Format, s) {
			v.report(errors.NewValidationf(errors.ErrFormatViolation, path,
				"value %q at index %d does not match format %q", s, i, node.Format))
			ok = false
		}
		if v.stopped() {
			return false
		}
	}
	return ok
}

func (v *validator) checkLength(leaf Leaf, node *schema.Dataset, path string) bool {
	if !leaf.Dtype().IsString() {
		v.report(errors.NewValidationf(errors.ErrLengthViolation, path,
			"length constraints require string data, dataset %s has dtype %s", path, leaf.Dtype().String()))
		return false
	}
	values, err := readValues(leaf)
	if err != nil {
		v.report(errors.NewValidationf(errors.ErrLengthViolation, path,
			"could not read dataset %s: %v", path, err))
		return false
	}
	ok := true
	for _, val := range values {
		s, _ := asText(val)
		n := utf8.RuneCountInString(s)
		if node.HasMinLength && n < node.MinLength {
			v.report(errors.NewValidationf(errors.ErrLengthViolation, path,
				"value %q has length %d, schema requires at least %d", s, n, node.MinLength))
			ok = false
		}
		if node.HasMaxLength && n > node.MaxLength {
			v.report(errors.NewValidationf(errors.ErrLengthViolation, path,
				"value %q has length %d, schema allows at most %d", s, n, node.MaxLength))
			ok = false
		}
		if v.stopped() {
			return false
		}
	}
	return ok
}

func (v *validator) checkPattern(leaf Leaf, node *schema.Dataset, path string) bool {
	re, err := regexp.Compile("^(?:" + node.Pattern + ")")
	if err != nil {
		v.report(errors.NewValidationf(errors.ErrPatternViolation, path,
			"invalid pattern %q: %v", node.Pattern, err))
		return false
	}
	if !leaf.Dtype().IsString() {
		v.report(errors.NewValidationf(errors.ErrPatternViolation, path,
			"pattern constraints require string data, dataset %s has dtype %s", path, leaf.Dtype().String()))
		return false
	}
	values, err := readValues(leaf)
	if err != nil {
		v.report(errors.NewValidationf(errors.ErrPatternViolation, path,
			"could not read dataset %s: %v", path, err))
		return false
	}
	ok := true
	for _, val := range values {
		s, _ := asText(val)
		if !re.MatchString(s) {
			v.report(errors.NewValidationf(errors.ErrPatternViolation, path,
				"value %q does not match pattern %q", s, node.Pattern))
			ok = false
		}
		if v.stopped() {
			return false
		}
	}
	return ok
}

func (v *validator) datasetDependentRequired(leaf Leaf, node *schema.Dataset, path string) bool {
	ok := true
	attrs := leaf.Attrs()
	for _, trigger := range sortedStringKeys(node.DependentRequired) {
		if _, present := attrs[trigger]; !present {
			continue
		}
		for _, name := range node.DependentRequired[trigger] {
			if _, present := attrs[name]; !present {
				v.report(errors.NewValidationf(errors.ErrDependentRequired, path,
					"attribute %q is present but required dependent attribute %q is missing", trigger, name))
				ok = false
			}
			if v.stopped() {
				return false
			}
		}
	}
	return ok
}

// datasetDependentSchemas applies each dependent sub-document whose trigger
// attribute is present by rebuilding it as a transient dataset node.
func (v *validator) datasetDependentSchemas(leaf Leaf, node *schema.Dataset, path string, stack map[string]struct{}) bool {
	ok := true
	attrs := leaf.Attrs()
	triggers := make([]string, 0, len(node.DependentDocs))
	for trigger := range node.DependentDocs {
		triggers = append(triggers, trigger)
	}
	sort.Strings(triggers)
	for _, trigger := range triggers {
		if _, present := attrs[trigger]; !present {
			continue
		}
		dep, err := v.buildDataset(node, node.DependentDocs[trigger])
		if err != nil {
			return v.abort(err)
		}
		if !v.validateDataset(leaf, dep, path, stack) {
			ok = false
		}
		if v.stopped() {
			return false
		}
	}
	return ok
}

// datasetNot rebuilds the negated sub-document as a transient dataset and
// reports a violation when the leaf's dtype, shape, const, and enum all
// satisfy it. Attributes are not part of the negated check.
func (v *validator) datasetNot(leaf Leaf, node *schema.Dataset, path string) bool {
	cond, err := v.buildDataset(node, node.NotDoc)
	if err != nil {
		return v.abort(err)
	}
	if v.datasetMatches(leaf, cond, anyRankWildcard) {
		v.report(errors.NewValidationf(errors.ErrNotViolation, path,
			"dataset %s matched 'not' schema", path))
		return false
	}
	return true
}

type shapeMode int

const (
	// exactRank requires the constraint and the leaf to agree on rank, even
	// when the constraint is a single wildcard extent. This is how an if
	// condition reads its shape.
	exactRank shapeMode = iota
	// anyRankWildcard lets a single wildcard extent match any shape of any
	// rank. Only a negated schema reads its shape this way.
	anyRankWildcard
)

// datasetMatches reports whether the leaf satisfies every data constraint
// the sub-schema declares. A failed read counts as not matching.
func (v *validator) datasetMatches(leaf Leaf, cond *schema.Dataset, mode shapeMode) bool {
	if cond.Dtype != nil && !dtype.Compatible(leaf.Dtype(), *cond.Dtype) {
		return false
	}
	if cond.HasShape {
		anyRank := mode == anyRankWildcard && wildcardOnly(cond.Shape)
		if !anyRank && !dtype.MatchShape(leaf.Shape(), cond.Shape) {
			return false
		}
	}
	if cond.HasConst {
		values, err := readValues(leaf)
		if err != nil {
			return false
		}
		for _, val := range values {
			if !valueEqual(val, cond.Const) {
				return false
			}
		}
	}
	if cond.HasEnum {
		values, err := readValues(leaf)
		if err != nil {
			return false
		}
		for _, val := range values {
			if !valueIn(val, cond.Enum) {
				return false
			}
		}
	}
	return true
}

// effectiveDataset resolves the conditional triple: the consequence document
// is merged into the base and a transient node rebuilt from the result. A
// consequence carrying its own conditional resolves recursively before the
// merge. With no applicable consequence the triple is simply stripped.
func (v *validator) effectiveDataset(leaf Leaf, node *schema.Dataset) (*schema.Dataset, error) {
	var consequence map[string]any
	if v.datasetConditionHolds(leaf, node) {
		consequence = node.ThenDoc
	} else {
		consequence = node.ElseDoc
	}

	if consequence != nil {
		if _, nested := consequence["if"]; nested {
			inner, err := v.buildDataset(node, consequence)
			if err != nil {
				return nil, err
			}
			resolved, err := v.effectiveDataset(leaf, inner)
			if err != nil {
				return nil, err
			}
			consequence = resolved.Doc
		}
	}

	merged := schema.MergeDatasetDocs(node.Doc, consequence)
	return v.buildDataset(node, merged)
}

// datasetConditionHolds rebuilds the if document as a dataset and evaluates
// it against the leaf's dtype, shape, values, and attribute values. A
// malformed condition document never holds.
func (v *validator) datasetConditionHolds(leaf Leaf, node *schema.Dataset) bool {
	if len(node.IfDoc) == 0 {
		return true
	}
	cond, err := v.buildDataset(node, node.IfDoc)
	if err != nil {
		return false
	}
	if !v.datasetMatches(leaf, cond, exactRank) {
		return false
	}
	attrs := leaf.Attrs()
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
	return true
}

// buildDataset builds a transient dataset node from a sub-document, in the
// position of the node it derives from.
func (v *validator) buildDataset(node *schema.Dataset, doc map[string]any) (*schema.Dataset, error) {
	built, err := schema.Build(schema.WithDatasetType(doc), node.Sel, node.Parent, node.Root)
	if err != nil {
		return nil, err
	}
	ds, ok := built.(*schema.Dataset)
	if !ok {
		return nil, fmt.Errorf("sub-schema at %s does not describe a dataset", node.Path())
	}
	return ds, nil
}

// wildcardOnly reports whether a shape constraint is a single wildcard
// extent, which matches any shape of any rank.
func wildcardOnly(shape []int) bool {
	return len(shape) == 1 && shape[0] == dtype.Wildcard
}

// readValues materializes a leaf's values: the single scalar for rank 0,
// every element otherwise.
func readValues(leaf Leaf) ([]any, error) {
	if len(leaf.Shape()) == 0 {
		val, err := leaf.ReadScalar()
		if err != nil {
			return nil, err
		}
		return []any{val}, nil
	}
	return leaf.ReadAll()
}
