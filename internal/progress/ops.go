package progress

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ApplyOps mutates a JSON-decoded document in place according to the field
// ops. Store implementations share these semantics so a document behaves
// the same no matter which backend holds it. Intermediate maps are created
// for nested paths; Inc and Max treat a missing field as 0; Append treats
// a missing field as an empty array.
func ApplyOps(doc map[string]any, ops []FieldOp) error {
	for _, op := range ops {
		value, err := normalize(op.Value)
		if err != nil {
			return fmt.Errorf("apply %s %s: %w", op.Kind, op.Path, err)
		}

		parent, leaf, err := resolve(doc, op.Path)
		if err != nil {
			return fmt.Errorf("apply %s %s: %w", op.Kind, op.Path, err)
		}

		switch op.Kind {
		case OpSet:
			parent[leaf] = value
		case OpInc:
			delta, ok := value.(float64)
			if !ok {
				return fmt.Errorf("apply inc %s: non-numeric delta %T", op.Path, op.Value)
			}
			parent[leaf] = asNumber(parent[leaf]) + delta
		case OpMax:
			operand, ok := value.(float64)
			if !ok {
				return fmt.Errorf("apply max %s: non-numeric operand %T", op.Path, op.Value)
			}
			if current := asNumber(parent[leaf]); operand > current {
				parent[leaf] = operand
			} else {
				parent[leaf] = current
			}
		case OpAppend:
			arr, _ := parent[leaf].([]any)
			parent[leaf] = append(arr, value)
		default:
			return fmt.Errorf("apply %s %s: unknown op kind", op.Kind, op.Path)
		}
	}
	return nil
}

// resolve walks the dotted path, creating intermediate maps, and returns
// the parent map plus the leaf key.
func resolve(doc map[string]any, path string) (map[string]any, string, error) {
	parts := strings.Split(path, ".")
	current := doc
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part]
		if !ok || next == nil {
			child := make(map[string]any)
			current[part] = child
			current = child
			continue
		}
		child, ok := next.(map[string]any)
		if !ok {
			return nil, "", fmt.Errorf("segment %q is not an object", part)
		}
		current = child
	}
	return current, parts[len(parts)-1], nil
}

// normalize roundtrips the value through JSON so stored documents only
// contain JSON-native types regardless of the Go value handed in.
func normalize(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func asNumber(v any) float64 {
	n, _ := v.(float64)
	return n
}

// FieldNumber reads a numeric field at a dotted path from a decoded
// document; missing or non-numeric fields read as 0. Used by TopN
// implementations that order on a document field.
func FieldNumber(doc map[string]any, path string) float64 {
	parts := strings.Split(path, ".")
	var current any = doc
	for _, part := range parts {
		m, ok := current.(map[string]any)
		if !ok {
			return 0
		}
		current = m[part]
	}
	return asNumber(current)
}
