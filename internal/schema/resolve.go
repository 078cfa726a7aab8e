package schema

import (
	"fmt"
	"strings"
)

// DefaultMaxRefDepth bounds reference resolution chains and validation-time
// reference recursion.
const DefaultMaxRefDepth = 10

// ResolvePointer resolves a local "#/seg1/seg2" pointer within the root
// schema document.
func ResolvePointer(ptr string, root map[string]any) (map[string]any, error) {
	if !strings.HasPrefix(ptr, "#/") {
		return nil, fmt.Errorf("%w: only local references are supported, got %q", ErrSchema, ptr)
	}
	current := any(root)
	for _, seg := range strings.Split(ptr[2:], "/") {
		m, ok := docMap(current)
		if !ok {
			return nil, fmt.Errorf("%w: reference path not found: %q", ErrSchema, ptr)
		}
		current, ok = m[seg]
		if !ok {
			return nil, fmt.Errorf("%w: reference path not found: %q", ErrSchema, ptr)
		}
	}
	target, ok := docMap(current)
	if !ok {
		return nil, fmt.Errorf("%w: reference %q does not point at a schema", ErrSchema, ptr)
	}
	return target, nil
}

// Resolve resolves the reference into a concrete group or dataset node.
// stack holds the pointers already being resolved on this path; it is copied
// before following reference-to-reference chains so each path stays
// independent. A pointer already on the stack, or a stack at maxDepth,
// yields a permissive stub instead of recursing, so recursive schemas
// terminate at the cost of not fully validating the cyclic branch.
// Successful (non-stub) resolutions are memoized under a lock, so one
// compiled schema can be validated concurrently.
func (r *Ref) Resolve(stack map[string]struct{}, maxDepth int) (Node, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxRefDepth
	}

	r.mu.Lock()
	if r.resolved != nil {
		resolved := r.resolved
		r.mu.Unlock()
		return resolved, nil
	}
	r.mu.Unlock()

	if _, cyclic := stack[r.Ptr]; cyclic || len(stack) >= maxDepth {
		return PermissiveStub(r), nil
	}

	target, err := ResolvePointer(r.Ptr, r.Root)
	if err != nil {
		return nil, err
	}
	node, err := Build(target, r.Sel, r.Parent, r.Root)
	if err != nil {
		return nil, fmt.Errorf("resolving %q: %w", r.Ptr, err)
	}

	if next, ok := node.(*Ref); ok {
		node, err = next.Resolve(pushStack(stack, r.Ptr), maxDepth)
		if err != nil {
			return nil, err
		}
		if g, ok := node.(*Group); ok && g.Stub {
			// Stub from a deeper cycle; do not memoize it.
			return node, nil
		}
	}

	r.mu.Lock()
	r.resolved = node
	r.mu.Unlock()
	return node, nil
}

// pushStack copies stack and adds ptr.
func pushStack(stack map[string]struct{}, ptr string) map[string]struct{} {
	next := make(map[string]struct{}, len(stack)+1)
	for k := range stack {
		next[k] = struct{}{}
	}
	next[ptr] = struct{}{}
	return next
}
