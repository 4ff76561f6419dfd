package sets

// IDSet is an insertion-ordered set of entity ids.
// It is stored as a plain array in every backend, so the zero value and an
// empty set both encode as an empty list once Normalize has been applied.
type IDSet []string

// Has reports whether id is a member of the set
func (s IDSet) Has(id string) bool {
	for _, v := range s {
		if v == id {
			return true
		}
	}
	return false
}

// Add appends id if it is not already present.
// Returns false when the set was unchanged.
func (s *IDSet) Add(id string) bool {
	if s.Has(id) {
		return false
	}
	*s = append(*s, id)
	return true
}

// Remove deletes every occurrence of id.
// Returns false when the set was unchanged.
func (s *IDSet) Remove(id string) bool {
	out := (*s)[:0]
	removed := false
	for _, v := range *s {
		if v == id {
			removed = true
			continue
		}
		out = append(out, v)
	}
	*s = out
	return removed
}

// Clone returns an independent, non-nil copy of the set
func (s IDSet) Clone() IDSet {
	out := make(IDSet, len(s))
	copy(out, s)
	return out
}

// Normalize returns the set itself, or an empty non-nil set when s is nil
func (s IDSet) Normalize() IDSet {
	if s == nil {
		return IDSet{}
	}
	return s
}

// Strings returns the members as a plain, non-nil slice
func (s IDSet) Strings() []string {
	return []string(s.Clone())
}
