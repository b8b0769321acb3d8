package x12

// Loop is a run of segments opened by a marker segment. Start and End index
// the stream the loop was partitioned from; End is exclusive.
type Loop struct {
	Start    int
	End      int
	Segments Stream
}

// Marker returns the segment that opened the loop.
func (l Loop) Marker() Segment {
	if len(l.Segments) == 0 {
		return Segment{}
	}
	return l.Segments[0]
}

// Loops partitions s on marker: the i-th loop runs from the i-th marker to
// the next marker, or to the end of s for the last one. Segments before the
// first marker belong to no loop. No marker means no loops.
func (s Stream) Loops(marker string) []Loop {
	var starts []int
	for i := range s.All(marker) {
		starts = append(starts, i)
	}
	loops := make([]Loop, 0, len(starts))
	for n, start := range starts {
		end := len(s)
		if n+1 < len(starts) {
			end = starts[n+1]
		}
		loops = append(loops, Loop{Start: start, End: end, Segments: s.Slice(start, end)})
	}
	return loops
}

// LoopsWhere partitions s on marker like Loops and keeps the loops whose
// marker satisfies keep. Boundaries are still set by every marker, so a
// dropped loop never widens its neighbour.
func (s Stream) LoopsWhere(marker string, keep func(Segment) bool) []Loop {
	var out []Loop
	for _, l := range s.Loops(marker) {
		if keep(l.Marker()) {
			out = append(out, l)
		}
	}
	return out
}
