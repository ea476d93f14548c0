// Package snapshot handles instrument-configuration snapshots: JSON trees
// captured at measurement start, plus the sparse structural diffs recorded
// whenever an instrument setting changes mid-measurement. Reconstructing the
// snapshot in effect at any data row is a pure function of the baseline and
// the diffs preceding that row.
package snapshot

import (
	"reflect"
	"strconv"
)

// Tree is a JSON-compatible value: nil, bool, float64, string,
// []any or map[string]any, as produced by encoding/json. Tree operations
// dispatch on the concrete type.
type Tree = any

// Reserved patch keys. DeleteKey lists sibling keys to remove at that
// nesting level. ReplaceKey replaces the enclosing value wholesale, used
// when a value's type changed (e.g. mapping -> empty mapping).
const (
	DeleteKey  = "$delete"
	ReplaceKey = "$replace"
)

// DeepCopy returns a copy of t sharing no mutable state with the original.
func DeepCopy(t Tree) Tree {
	switch v := t.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			out[k] = DeepCopy(e)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = DeepCopy(e)
		}
		return out
	default:
		return v
	}
}

// Equal reports exact structural equality, with no floating-point tolerance.
// The diff/patch round trip depends on this being exact.
func Equal(a, b Tree) bool {
	return reflect.DeepEqual(a, b)
}

// Lookup walks t along path. Sequence elements are addressed by the decimal
// form of their index.
func Lookup(t Tree, path ...string) (Tree, bool) {
	cur := t
	for _, p := range path {
		switch v := cur.(type) {
		case map[string]any:
			next, ok := v[p]
			if !ok {
				return nil, false
			}
			cur = next
		case []any:
			i, err := strconv.Atoi(p)
			if err != nil || i < 0 || i >= len(v) {
				return nil, false
			}
			cur = v[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

// ApplyPatch merges patch into dst and returns the result. dst is not
// modified. Mapping values merge field by field; a ReplaceKey entry replaces
// the enclosing value wholesale; a DeleteKey entry removes the named sibling
// keys; sequence elements are addressed by integer index.
func ApplyPatch(dst Tree, patch Tree) Tree {
	pm, ok := patch.(map[string]any)
	if !ok {
		return DeepCopy(patch)
	}
	if rep, has := pm[ReplaceKey]; has {
		return DeepCopy(rep)
	}
	switch v := dst.(type) {
	case map[string]any:
		return patchMap(v, pm)
	case []any:
		return patchSeq(v, pm)
	default:
		// Adding a subtree where the baseline had a scalar or nothing:
		// apply the patch to an empty mapping.
		return patchMap(map[string]any{}, pm)
	}
}

func patchMap(dst map[string]any, patch map[string]any) map[string]any {
	out := make(map[string]any, len(dst)+len(patch))
	for k, e := range dst {
		out[k] = DeepCopy(e)
	}
	for k, pv := range patch {
		if k == DeleteKey {
			for _, name := range stringList(pv) {
				delete(out, name)
			}
			continue
		}
		if sub, isMap := pv.(map[string]any); isMap {
			out[k] = ApplyPatch(out[k], sub)
			continue
		}
		out[k] = DeepCopy(pv)
	}
	return out
}

func patchSeq(dst []any, patch map[string]any) []any {
	out := make([]any, len(dst))
	for i, e := range dst {
		out[i] = DeepCopy(e)
	}
	for k, pv := range patch {
		if k == DeleteKey {
			continue // deletion of sequence elements is not part of the format
		}
		i, err := strconv.Atoi(k)
		if err != nil || i < 0 {
			continue
		}
		for i >= len(out) {
			out = append(out, nil)
		}
		if sub, isMap := pv.(map[string]any); isMap {
			out[i] = ApplyPatch(out[i], sub)
		} else {
			out[i] = DeepCopy(pv)
		}
	}
	return out
}

func stringList(v any) []string {
	switch l := v.(type) {
	case []string:
		return l
	case []any:
		out := make([]string, 0, len(l))
		for _, e := range l {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Diff computes the sparse structural patch that transforms a into b, so
// that ApplyPatch(a, Diff(a, b)) equals b exactly. Equality is exact value
// equality, never a floating-point tolerance. The writer records these
// patches; the reader depends on their round-trip consistency.
func Diff(a, b Tree) Tree {
	am, aIsMap := a.(map[string]any)
	bm, bIsMap := b.(map[string]any)
	if !aIsMap || !bIsMap {
		as, aIsSeq := a.([]any)
		bs, bIsSeq := b.([]any)
		if aIsSeq && bIsSeq {
			return diffSeq(as, bs)
		}
		// Type changed (or scalar changed): replace wholesale.
		return map[string]any{ReplaceKey: DeepCopy(b)}
	}
	patch := make(map[string]any)
	var deleted []any
	for k, av := range am {
		bv, ok := bm[k]
		if !ok {
			deleted = append(deleted, k)
			continue
		}
		if Equal(av, bv) {
			continue
		}
		patch[k] = diffValue(av, bv)
	}
	for k, bv := range bm {
		if _, ok := am[k]; !ok {
			patch[k] = DeepCopy(bv)
		}
	}
	if deleted != nil {
		patch[DeleteKey] = deleted
	}
	return patch
}

func diffValue(a, b Tree) Tree {
	_, aIsMap := a.(map[string]any)
	_, bIsMap := b.(map[string]any)
	if aIsMap && bIsMap {
		return Diff(a, b)
	}
	as, aIsSeq := a.([]any)
	bs, bIsSeq := b.([]any)
	if aIsSeq && bIsSeq && len(as) == len(bs) {
		return diffSeq(as, bs)
	}
	if aIsMap || bIsMap || aIsSeq || bIsSeq {
		return map[string]any{ReplaceKey: DeepCopy(b)}
	}
	return DeepCopy(b)
}

func diffSeq(a, b []any) Tree {
	if len(a) != len(b) {
		return map[string]any{ReplaceKey: DeepCopy(b)}
	}
	patch := make(map[string]any)
	for i := range a {
		if !Equal(a[i], b[i]) {
			patch[strconv.Itoa(i)] = diffValue(a[i], b[i])
		}
	}
	return patch
}
