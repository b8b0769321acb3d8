// Package decode turns raw X12 interchanges into decoded records. Each
// supported transaction type is one Variant; a Registry maps the ST01 code
// to the builder for that variant.
package decode

import (
	"encoding/json"
	"errors"
	"slices"
	"sync"

	"github.com/Rkibbe123/app-datafabric/internal/x12"
	"github.com/Rkibbe123/app-datafabric/internal/x12/claim837"
	"github.com/Rkibbe123/app-datafabric/internal/x12/remit835"
)

// ErrUnsupportedTransaction is returned by Registry.Build for an ST01 code
// with no registered builder.
var ErrUnsupportedTransaction = errors.New("unsupported transaction set")

// Variant is one decoded business document. The set of variants is closed:
// only types in this package implement it.
type Variant interface {
	Code() string
	ToJSON() ([]byte, error)
	variant()
}

// Remittance is the 835 variant.
type Remittance struct {
	*remit835.Remittance
}

func (Remittance) Code() string { return remit835.TransactionCode }
func (Remittance) variant()     {}

func (r Remittance) MarshalJSON() ([]byte, error) { return r.ToJSON() }

// Claim is the 837 variant.
type Claim struct {
	*claim837.Claim
}

func (Claim) Code() string { return claim837.TransactionCode }
func (Claim) variant()     {}

func (c Claim) MarshalJSON() ([]byte, error) { return c.ToJSON() }

var (
	_ json.Marshaler = Remittance{}
	_ json.Marshaler = Claim{}
)

// Builder projects one framed transaction set into its documents.
type Builder func(ts x12.TransactionSet) ([]Variant, error)

// Registry maps ST01 codes to builders. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	builders map[string]Builder
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{builders: make(map[string]Builder)}
}

// DefaultRegistry returns a registry with the 835 and 837 variants.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(remit835.TransactionCode, build835)
	r.Register(claim837.TransactionCode, build837)
	return r
}

// Register adds or replaces the builder for code.
func (r *Registry) Register(code string, b Builder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.builders[code] = b
}

// Lookup returns the builder for code.
func (r *Registry) Lookup(code string) (Builder, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.builders[code]
	return b, ok
}

// Codes returns the registered codes in ascending order.
func (r *Registry) Codes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	codes := make([]string, 0, len(r.builders))
	for c := range r.builders {
		codes = append(codes, c)
	}
	slices.Sort(codes)
	return codes
}

// Build projects ts with the builder registered for its ST01 code.
func (r *Registry) Build(ts x12.TransactionSet) ([]Variant, error) {
	b, ok := r.Lookup(ts.Code)
	if !ok {
		return nil, ErrUnsupportedTransaction
	}
	return b(ts)
}

func build835(ts x12.TransactionSet) ([]Variant, error) {
	rs, err := remit835.Build(ts)
	if err != nil {
		return nil, err
	}
	out := make([]Variant, len(rs))
	for i, r := range rs {
		out[i] = Remittance{r}
	}
	return out, nil
}

func build837(ts x12.TransactionSet) ([]Variant, error) {
	cs, err := claim837.Build(ts)
	if err != nil {
		return nil, err
	}
	out := make([]Variant, len(cs))
	for i, c := range cs {
		out[i] = Claim{c}
	}
	return out, nil
}
