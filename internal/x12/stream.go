package x12

import "iter"

// Stream is an ordered run of segments. Slicing a Stream never copies, so a
// sub-stream is a view into the caller's segments and must not be written.
type Stream []Segment

// Lookup is the outcome of searching a Stream. When nothing matched, OK is
// false, Index is the stream length and the embedded Segment is empty, so
// Element and Component still answer "".
type Lookup struct {
	Segment
	Index int
	OK    bool
}

// First returns the first segment with the given identifier.
func (s Stream) First(id string) Lookup {
	return s.FirstFrom(id, 0)
}

// FirstFrom returns the first segment with the given identifier at or after
// position from.
func (s Stream) FirstFrom(id string, from int) Lookup {
	i := s.IndexOf(id, from)
	if i == len(s) {
		return Lookup{Index: i}
	}
	return Lookup{Segment: s[i], Index: i, OK: true}
}

// IndexOf returns the first position >= from holding id, or len(s) when
// there is none. It never returns a negative index.
func (s Stream) IndexOf(id string, from int) int {
	if from < 0 {
		from = 0
	}
	for i := from; i < len(s); i++ {
		if s[i].id == id {
			return i
		}
	}
	return len(s)
}

// IndexOfAny is IndexOf for the first of several identifiers.
func (s Stream) IndexOfAny(from int, ids ...string) int {
	if from < 0 {
		from = 0
	}
	for i := from; i < len(s); i++ {
		for _, id := range ids {
			if s[i].id == id {
				return i
			}
		}
	}
	return len(s)
}

// All yields every segment with the given identifier and its position, in
// document order. Each call starts a fresh walk.
func (s Stream) All(id string) iter.Seq2[int, Segment] {
	return func(yield func(int, Segment) bool) {
		for i, seg := range s {
			if seg.id != id {
				continue
			}
			if !yield(i, seg) {
				return
			}
		}
	}
}

// Filter returns the segments with the given identifier.
func (s Stream) Filter(id string) []Segment {
	var out []Segment
	for _, seg := range s {
		if seg.id == id {
			out = append(out, seg)
		}
	}
	return out
}

// Count returns how many segments carry the given identifier.
func (s Stream) Count(id string) int {
	n := 0
	for _, seg := range s {
		if seg.id == id {
			n++
		}
	}
	return n
}

// Slice returns the view [start, end), clamped to the stream bounds.
func (s Stream) Slice(start, end int) Stream {
	if start < 0 {
		start = 0
	}
	if end > len(s) {
		end = len(s)
	}
	if start >= end {
		return Stream{}
	}
	return s[start:end:end]
}

// Before returns the view preceding the first occurrence of id, or the whole
// stream when id does not occur.
func (s Stream) Before(id string) Stream {
	return s.Slice(0, s.IndexOf(id, 0))
}

// From returns the view starting at the first occurrence of id, or an empty
// stream when id does not occur.
func (s Stream) From(id string) Stream {
	return s.Slice(s.IndexOf(id, 0), len(s))
}
