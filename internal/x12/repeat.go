package x12

// Triple is one slot of a fixed-arity repeating group embedded in a segment.
type Triple struct {
	A, B, C string
}

// Triples reads count consecutive element triples starting at element start:
// (start, start+1, start+2), (start+3, ...), and so on. Every slot is
// returned whether or not the segment reaches it; unreached elements are "".
func (s Segment) Triples(start, count int) []Triple {
	out := make([]Triple, count)
	for n := range count {
		p := start + 3*n
		out[n] = Triple{A: s.Element(p), B: s.Element(p + 1), C: s.Element(p + 2)}
	}
	return out
}
