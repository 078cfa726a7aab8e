package h5schema

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/jacoelho/h5schema/errors"
	"github.com/jacoelho/h5schema/internal/schema"
)

// IsValid reports whether the instance tree satisfies the schema. It stops
// at the first violation; use Validate or IterErrors for diagnostics.
func (s *Schema) IsValid(root Container, opts ...ValidateOption) bool {
	v := s.newRun(false, opts)
	v.validate(root, s.root, "/", nil)
	return v.fatal == nil && len(v.errs) == 0
}

// Validate walks the whole instance tree and returns every detected
// violation as an errors.ValidationList, or nil when the instance is valid.
// A malformed schema or document structure encountered during traversal is
// returned as a plain error instead.
func (s *Schema) Validate(root Container, opts ...ValidateOption) error {
	list, err := s.IterErrors(root, opts...)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		return nil
	}
	return errors.ValidationList(list)
}

// IterErrors walks the whole instance tree and returns every detected
// violation in traversal order. The returned error is non-nil only for
// malformed schema or document structure, never for ordinary violations.
func (s *Schema) IterErrors(root Container, opts ...ValidateOption) ([]errors.Validation, error) {
	v := s.newRun(true, opts)
	v.validate(root, s.root, "/", nil)
	if v.fatal != nil {
		return nil, v.fatal
	}
	return v.errs, nil
}

// validator carries the per-run state: the error-collection mode and the
// accumulated violations. Each run owns its state exclusively, so separate
// runs against one Schema may proceed concurrently.
type validator struct {
	collect     bool
	errs        []errors.Validation
	fatal       error
	log         *zap.Logger
	maxRefDepth int
}

func (s *Schema) newRun(collect bool, opts []ValidateOption) *validator {
	cfg := applyValidateOptions(opts)
	return &validator{
		collect:     collect,
		log:         cfg.logger,
		maxRefDepth: cfg.maxRefDepth,
	}
}

func (v *validator) report(val errors.Validation) {
	v.log.Debug("constraint violation",
		zap.String("code", val.Code),
		zap.String("path", val.Path),
		zap.String("message", val.Message))
	v.errs = append(v.errs, val)
}

// stopped reports whether a fail-fast run already hit a violation, or any
// run hit a structural error.
func (v *validator) stopped() bool {
	return v.fatal != nil || (!v.collect && len(v.errs) > 0)
}

func (v *validator) abort(err error) bool {
	if v.fatal == nil {
		v.fatal = err
	}
	return false
}

// probe runs fn against a throwaway fail-fast validator and reports whether
// it passed. Violations found while probing are suppressed; structural
// errors still surface.
func (v *validator) probe(fn func(p *validator) bool) bool {
	p := &validator{
		collect:     false,
		log:         zap.NewNop(),
		maxRefDepth: v.maxRefDepth,
	}
	ok := fn(p)
	if p.fatal != nil {
		v.abort(p.fatal)
		return false
	}
	return ok && len(p.errs) == 0
}

// validate dispatches one instance node against one schema node. stack holds
// the reference pointers active on this traversal path; it guards cyclic
// schemas by substituting a permissive stub.
func (v *validator) validate(item Instance, node schema.Node, path string, stack map[string]struct{}) bool {
	if v.stopped() {
		return false
	}

	switch n := node.(type) {
	case *schema.Ref:
		if _, cyclic := stack[n.Ptr]; cyclic || len(stack) >= v.maxRefDepth {
			return v.validate(item, schema.PermissiveStub(n), path, stack)
		}
		resolved, err := n.Resolve(stack, v.maxRefDepth)
		if err != nil {
			return v.abort(err)
		}
		return v.validate(item, resolved, path, pushStack(stack, n.Ptr))
	case *schema.Group:
		grp, ok := item.(Container)
		if !ok {
			v.report(errors.NewValidationf(errors.ErrTypeMismatch, path, "%s is not a group", path))
			return false
		}
		return v.validateGroup(grp, n, path, stack)
	case *schema.Dataset:
		leaf, ok := item.(Leaf)
		if !ok {
			v.report(errors.NewValidationf(errors.ErrTypeMismatch, path, "%s is not a dataset", path))
			return false
		}
		return v.validateDataset(leaf, n, path, stack)
	default:
		return v.abort(fmt.Errorf("unknown schema node %T at %s", node, path))
	}
}

func pushStack(stack map[string]struct{}, ptr string) map[string]struct{} {
	next := make(map[string]struct{}, len(stack)+1)
	for k := range stack {
		next[k] = struct{}{}
	}
	next[ptr] = struct{}{}
	return next
}

func joinPath(parent, name string) string {
	if parent == "/" || parent == "" {
		return "/" + name
	}
	return parent + "/" + name
}

// baseName returns the final path segment, or "/" for the root.
func baseName(path string) string {
	if path == "/" || path == "" {
		return "/"
	}
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}
