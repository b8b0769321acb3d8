package x12

import "strings"

// Tokenize splits raw interchange text into segments. Whitespace around each
// raw segment and empty segments left by trailing terminators or line breaks
// are discarded.
func Tokenize(raw string, d Delimiters) Stream {
	rawSegments := strings.Split(raw, string(d.Segment))
	segs := make(Stream, 0, len(rawSegments))
	for _, rs := range rawSegments {
		rs = strings.TrimSpace(rs)
		if rs == "" {
			continue
		}
		segs = append(segs, ParseSegment(rs, d))
	}
	return segs
}

// TokenizeDetect detects the delimiters from the ISA header and tokenizes.
func TokenizeDetect(raw string) (Stream, Delimiters, error) {
	d, err := DetectDelimiters(raw)
	if err != nil {
		return nil, Delimiters{}, err
	}
	return Tokenize(raw, d), d, nil
}
