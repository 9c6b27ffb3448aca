// Package registrar talks to the offchain subname registrar that owns every
// record under the parent domain. It also provides an in-memory registrar
// for local development and tests.
package registrar

import "time"

// Chains a subname resolves addresses for.
const (
	ChainBase     = "base"
	ChainEthereum = "eth"
)

// Subname is a registered record as the registrar reports it.
type Subname struct {
	Label      string
	ParentName string
	FullName   string
	Owner      string
	Texts      map[string]string
	Addresses  map[string]string
	Metadata   map[string]string
	CreatedAt  time.Time
}

// Text returns a text record, or "" when unset.
func (s Subname) Text(key string) string {
	if s.Texts == nil {
		return ""
	}
	return s.Texts[key]
}

// Record is a key/value pair in create requests. Order is preserved on the wire.
type Record struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// AddressBinding maps a chain to an address.
type AddressBinding struct {
	Chain string `json:"chain"`
	Value string `json:"value"`
}

// CreateRequest is everything the registrar needs to register a subname.
type CreateRequest struct {
	Label      string
	ParentName string
	Owner      string
	Addresses  []AddressBinding
	Texts      []Record
	Metadata   []Record
}

// FullName is label.parent.
func (r CreateRequest) FullName() string {
	return r.Label + "." + r.ParentName
}

func recordsToMap(records []Record) map[string]string {
	out := make(map[string]string, len(records))
	for _, r := range records {
		out[r.Key] = r.Value
	}
	return out
}

func bindingsToMap(bindings []AddressBinding) map[string]string {
	out := make(map[string]string, len(bindings))
	for _, b := range bindings {
		out[b.Chain] = b.Value
	}
	return out
}
