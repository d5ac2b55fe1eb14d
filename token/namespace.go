package token

// Namespace is the tokenizer's append-only name -> ordinal table built
// while scanning source. It has no memory or CPU of its own: binding
// an ordinal to an actual code address is the token interpreter's job
// (spec.md §9's "cyclic coupling" note: the dictionary is shared by
// ordinal between the two phases, not by address).
type Namespace struct {
	names []string
}

// NewNamespace returns an empty namespace.
func NewNamespace() *Namespace {
	return &Namespace{}
}

// SeedDefaults pre-registers the two mandatory ordinals spec.md §4.6
// requires: "H" (0) and "LATEST" (1).
func (n *Namespace) SeedDefaults() {
	n.names = nil
	n.Reserve("H")
	n.Reserve("LATEST")
}

// Reserve allocates the next ordinal for name and returns it.
func (n *Namespace) Reserve(name string) int {
	idx := len(n.names)
	n.names = append(n.names, name)
	return idx
}

// Lookup resolves name to its ordinal, most recent registration wins.
func (n *Namespace) Lookup(name string) (int, bool) {
	for i := len(n.names) - 1; i >= 0; i-- {
		if n.names[i] == name {
			return i, true
		}
	}
	return 0, false
}

// Names returns the full ordered name list, e.g. for persisting as the
// "symbols" document key.
func (n *Namespace) Names() []string {
	out := make([]string, len(n.names))
	copy(out, n.names)
	return out
}

// LoadNames replaces the namespace contents, e.g. from a cumulative
// input document (tokenizer's "-it" flag).
func (n *Namespace) LoadNames(names []string) {
	n.names = append([]string(nil), names...)
}

// Count returns the number of registered names.
func (n *Namespace) Count() int { return len(n.names) }
