package x12

import "strings"

// Segment is one terminated record: an identifier followed by its elements.
// Element positions are 1-based against the source, position 0 being the
// identifier. Reads past the end of a segment yield "" because producers
// truncate optional trailing elements instead of padding them.
type Segment struct {
	id        string
	elements  []string
	composite byte
}

// NewSegment builds a segment from an identifier and its elements. Composite
// elements are split on the composite separator when read.
func NewSegment(id string, composite byte, elements ...string) Segment {
	return Segment{id: id, elements: elements, composite: composite}
}

// ParseSegment splits one raw segment (without its terminator).
func ParseSegment(raw string, d Delimiters) Segment {
	parts := strings.Split(raw, string(d.Element))
	return Segment{
		id:        strings.TrimSpace(parts[0]),
		elements:  parts[1:],
		composite: d.Composite,
	}
}

// ID returns the segment identifier, e.g. "CLP".
func (s Segment) ID() string { return s.id }

// Len returns the number of elements, not counting the identifier.
func (s Segment) Len() int { return len(s.elements) }

// Element returns element i (1-based), or "" when it is not present.
func (s Segment) Element(i int) string {
	if i < 1 || i > len(s.elements) {
		return ""
	}
	return s.elements[i-1]
}

// Component returns sub-element j (0-based) of composite element i, or ""
// when either position is not present.
func (s Segment) Component(i, j int) string {
	e := s.Element(i)
	if e == "" || j < 0 {
		return ""
	}
	if s.composite == 0 {
		if j == 0 {
			return e
		}
		return ""
	}
	parts := strings.Split(e, string(s.composite))
	if j >= len(parts) {
		return ""
	}
	return parts[j]
}

// Present returns a pointer to element i when the segment is long enough to
// contain it, and nil otherwise. A present but empty element yields "".
func (s Segment) Present(i int) *string {
	if i < 1 || i > len(s.elements) {
		return nil
	}
	v := s.elements[i-1]
	return &v
}

// PresentComponent is Present for a sub-element of composite element i.
// Presence is decided by the element position only.
func (s Segment) PresentComponent(i, j int) *string {
	if i < 1 || i > len(s.elements) {
		return nil
	}
	v := s.Component(i, j)
	return &v
}

// IsZero reports whether s is the empty segment returned for failed lookups.
func (s Segment) IsZero() bool {
	return s.id == "" && len(s.elements) == 0
}

// String renders the segment with the given delimiters, without terminator.
func (s Segment) String(d Delimiters) string {
	if len(s.elements) == 0 {
		return s.id
	}
	return s.id + string(d.Element) + strings.Join(s.elements, string(d.Element))
}
