package cdfg

import "sort"

// VarSet is a set of variable names.
type VarSet map[string]struct{}

// NewVarSet creates a set holding the given names.
func NewVarSet(names ...string) VarSet {
	s := make(VarSet, len(names))
	for _, n := range names {
		s.Add(n)
	}
	return s
}

// Add inserts a name.
func (s VarSet) Add(name string) {
	s[name] = struct{}{}
}

// Remove deletes a name.
func (s VarSet) Remove(name string) {
	delete(s, name)
}

// Contains reports membership.
func (s VarSet) Contains(name string) bool {
	_, ok := s[name]
	return ok
}

// Union returns s ∪ other.
func (s VarSet) Union(other VarSet) VarSet {
	r := s.Copy()
	for n := range other {
		r.Add(n)
	}
	return r
}

// Minus returns s − other.
func (s VarSet) Minus(other VarSet) VarSet {
	r := make(VarSet, len(s))
	for n := range s {
		if !other.Contains(n) {
			r.Add(n)
		}
	}
	return r
}

// Intersect returns s ∩ other.
func (s VarSet) Intersect(other VarSet) VarSet {
	r := make(VarSet)
	for n := range s {
		if other.Contains(n) {
			r.Add(n)
		}
	}
	return r
}

// Equal reports whether both sets hold the same names.
func (s VarSet) Equal(other VarSet) bool {
	if len(s) != len(other) {
		return false
	}
	for n := range s {
		if !other.Contains(n) {
			return false
		}
	}
	return true
}

// Copy returns an independent copy.
func (s VarSet) Copy() VarSet {
	r := make(VarSet, len(s))
	for n := range s {
		r.Add(n)
	}
	return r
}

// Sorted returns the names in lexical order.
func (s VarSet) Sorted() []string {
	names := make([]string, 0, len(s))
	for n := range s {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
