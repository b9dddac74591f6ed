package controller

import (
	"math"
	"sort"
)

// Vector maps function numbers to integer controller values.
type Vector map[Function]int

// FactoryDefaults returns a fresh copy of the factory baseline.
func FactoryDefaults() Vector {
	v := make(Vector, len(definitions))
	for _, d := range definitions {
		v[d.Function] = d.Factory
	}
	return v
}

// Clone returns a deep copy. A nil vector clones to nil.
func (v Vector) Clone() Vector {
	if v == nil {
		return nil
	}
	out := make(Vector, len(v))
	for f, x := range v {
		out[f] = x
	}
	return out
}

// Scale multiplies f by factor and rounds to the nearest integer.
func (v Vector) Scale(f Function, factor float64) {
	v[f] = int(math.Round(float64(v[f]) * factor))
}

// Add offsets f by delta.
func (v Vector) Add(f Function, delta int) { v[f] += delta }

// Set assigns f.
func (v Vector) Set(f Function, x int) { v[f] = x }

// Clamp forces every constrained function into its bounds and reports the
// functions whose values changed.
func (v Vector) Clamp() []Function {
	var changed []Function
	for _, d := range definitions {
		x, ok := v[d.Function]
		if !ok {
			continue
		}
		if c := d.Bounds.Clamp(x); c != x {
			v[d.Function] = c
			changed = append(changed, d.Function)
		}
	}
	return changed
}

// Violations lists constrained functions currently outside their bounds.
func (v Vector) Violations() []Function {
	var out []Function
	for _, d := range definitions {
		if x, ok := v[d.Function]; ok && !d.Bounds.Contains(x) {
			out = append(out, d.Function)
		}
	}
	return out
}

// Functions returns the keys of v in ascending order.
func (v Vector) Functions() []Function {
	out := make([]Function, 0, len(v))
	for f := range v {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Change is a single differing function between two vectors.
type Change struct {
	Function Function `json:"function"`
	From     int      `json:"from"`
	To       int      `json:"to"`
}

// Diff lists functions whose value differs from base, ordered by function.
func (v Vector) Diff(base Vector) []Change {
	seen := map[Function]struct{}{}
	var out []Change
	for f, x := range v {
		seen[f] = struct{}{}
		if b := base[f]; b != x {
			out = append(out, Change{Function: f, From: b, To: x})
		}
	}
	for f, b := range base {
		if _, ok := seen[f]; !ok {
			out = append(out, Change{Function: f, From: b, To: 0})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Function < out[j].Function })
	return out
}

// Equal reports whether both vectors hold identical entries.
func (v Vector) Equal(o Vector) bool {
	if len(v) != len(o) {
		return false
	}
	for f, x := range v {
		if y, ok := o[f]; !ok || y != x {
			return false
		}
	}
	return true
}
