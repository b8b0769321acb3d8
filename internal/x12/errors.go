package x12

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidDelimiters = errors.New("invalid delimiters")
	ErrMissingISA        = errors.New("interchange does not start with ISA")
	ErrShortISA          = errors.New("ISA header is shorter than 106 bytes")
	ErrEmptyInterchange  = errors.New("interchange contains no segments")
	ErrNotTransactionSet = errors.New("segment range is not an ST...SE transaction set")
)

// Framing units named in a StructuralError.
const (
	UnitInterchange     = "interchange"
	UnitFunctionalGroup = "functional group"
	UnitTransactionSet  = "transaction set"
)

// StructuralError reports an envelope marker without its partner. Only the
// unit it names is affected; framing continues with the next unit.
type StructuralError struct {
	Unit          string `json:"unit"`
	ControlNumber string `json:"control_number"`
	// Index is the position in the interchange where the mismatch was seen.
	Index    int    `json:"segment_index"`
	Expected string `json:"expected"`
	Found    string `json:"found"`
}

func (e *StructuralError) Error() string {
	found := e.Found
	if found == "" {
		found = "end of interchange"
	}
	return fmt.Sprintf("%s %q: expected %s at segment %d, found %s",
		e.Unit, e.ControlNumber, e.Expected, e.Index, found)
}

// ContractError is returned when a caller hands a projection something the
// framer would never produce. It signals a bug upstream, not bad data.
type ContractError struct {
	Op  string
	Err error
}

func (e *ContractError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *ContractError) Unwrap() error {
	return e.Err
}
