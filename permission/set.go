package permission

import "sort"

// Set is a snapshot of grants keyed by module name.
type Set map[string]Bits

// Get returns the module's bits and whether an entry exists. A present entry with
// None is distinct from a missing one.
func (s Set) Get(module string) (Bits, bool) {
	b, ok := s[module]
	return b, ok
}

// Modules returns the module names in sorted order.
func (s Set) Modules() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns an independent copy of s.
func (s Set) Clone() Set {
	if s == nil {
		return nil
	}
	out := make(Set, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Raw converts s to plain integers, the shape carried inside token claims.
func (s Set) Raw() map[string]int {
	out := make(map[string]int, len(s))
	for k, v := range s {
		out[k] = int(v)
	}
	return out
}

// SetFromRaw converts stored integers back to a Set, dropping invalid entries.
func SetFromRaw(raw map[string]int) Set {
	out := make(Set, len(raw))
	for k, v := range raw {
		b, err := FromInt(v)
		if err != nil {
			continue
		}
		out[k] = b
	}
	return out
}
