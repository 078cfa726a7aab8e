package schema

// Conditional consequences are applied by merging documents and rebuilding a
// transient node, never by mutating the node under validation.

// MergeGroupConditional builds the transient group a conditional consequence
// implies: the consequence's members and required list plus the conditional
// node's own declared attributes concatenated with the consequence's.
func MergeGroupConditional(node, consequence *Group) (*Group, error) {
	doc := map[string]any{
		"type":    "group",
		"members": map[string]any{},
	}
	if members, ok := consequence.Doc["members"]; ok {
		doc["members"] = members
	}
	if required, ok := consequence.Doc["required"]; ok {
		doc["required"] = required
	}
	doc["attrs"] = concatAttrDocs(node.Doc["attrs"], consequence.Doc["attrs"])

	merged, err := Build(doc, node.Sel, node.Parent, node.Root)
	if err != nil {
		return nil, err
	}
	return merged.(*Group), nil
}

// MergeDatasetDocs merges a conditional consequence into a dataset document:
// attribute lists concatenate, every other field overrides. The conditional
// triple itself is stripped from the base so the result is a plain dataset.
func MergeDatasetDocs(base, consequence map[string]any) map[string]any {
	merged := make(map[string]any, len(base)+len(consequence))
	for k, v := range base {
		switch k {
		case "if", "then", "else":
		default:
			merged[k] = v
		}
	}
	for k, v := range consequence {
		if k == "attrs" {
			merged[k] = concatAttrDocs(merged[k], v)
			continue
		}
		merged[k] = v
	}
	return merged
}

func concatAttrDocs(base, extra any) []any {
	var out []any
	if list, ok := docList(base); ok {
		out = append(out, list...)
	}
	if list, ok := docList(extra); ok {
		out = append(out, list...)
	}
	return out
}

// WithDatasetType returns doc with an explicit dataset type, for building
// transient nodes from nested conditional or dependent sub-documents.
func WithDatasetType(doc map[string]any) map[string]any {
	if _, ok := doc["type"]; ok {
		return doc
	}
	out := make(map[string]any, len(doc)+1)
	out["type"] = "dataset"
	for k, v := range doc {
		out[k] = v
	}
	return out
}
