// Package x12 tokenizes ANSI X12 interchanges and provides the segment,
// stream, loop and envelope primitives the transaction projections are
// built on.
package x12

import (
	"fmt"
	"strings"
)

// Delimiters holds the three separators of one interchange.
type Delimiters struct {
	Element   byte
	Composite byte
	Segment   byte
}

// ISA is fixed width: the element separator follows "ISA", the composite
// separator is ISA16 and the segment terminator comes right after it.
const (
	isaLength        = 106
	isaElementPos    = 3
	isaCompositePos  = 104
	isaTerminatorPos = 105
)

// DefaultDelimiters returns the separators most trading partners use.
func DefaultDelimiters() Delimiters {
	return Delimiters{Element: '*', Composite: ':', Segment: '~'}
}

// Validate checks that the separators are distinct printable characters.
func (d Delimiters) Validate() error {
	for _, c := range []byte{d.Element, d.Composite, d.Segment} {
		if c < 0x20 || c > 0x7e {
			return fmt.Errorf("%w: %q is not printable", ErrInvalidDelimiters, c)
		}
	}
	if d.Element == d.Composite || d.Element == d.Segment || d.Composite == d.Segment {
		return fmt.Errorf("%w: %q %q %q are not distinct",
			ErrInvalidDelimiters, d.Element, d.Composite, d.Segment)
	}
	return nil
}

// DetectDelimiters reads the separators from the ISA header at the start of
// raw. Leading whitespace before ISA is ignored.
func DetectDelimiters(raw string) (Delimiters, error) {
	raw = strings.TrimLeft(raw, " \t\r\n")
	if !strings.HasPrefix(raw, "ISA") {
		return Delimiters{}, ErrMissingISA
	}
	if len(raw) < isaLength {
		return Delimiters{}, ErrShortISA
	}
	d := Delimiters{
		Element:   raw[isaElementPos],
		Composite: raw[isaCompositePos],
		Segment:   raw[isaTerminatorPos],
	}
	if err := d.Validate(); err != nil {
		return Delimiters{}, err
	}
	return d, nil
}
