package domain

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	dErrors "tapday/pkg/domain-errors"
)

var addressShape = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// Address is a 20-byte account address. Its canonical string form is the
// lower-case 0x-prefixed hex used for comparisons and map keys.
type Address common.Address

// ZeroAddress is never a valid owner.
var ZeroAddress = Address{}

// IsAddressShape reports whether s is 0x followed by exactly 40 hex chars.
func IsAddressShape(s string) bool {
	return addressShape.MatchString(s)
}

// ParseAddress parses a 0x-prefixed hex address. Malformed input yields
// CodeInvalidFormat. The zero address parses; owners must also check IsZero.
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if !IsAddressShape(s) {
		return Address{}, dErrors.New(dErrors.CodeInvalidFormat, "invalid address format: expected 0x followed by 40 hex characters")
	}
	return Address(common.HexToAddress(s)), nil
}

// ParseOwner parses an address that will own a record and rejects the zero address.
func ParseOwner(s string) (Address, error) {
	addr, err := ParseAddress(s)
	if err != nil {
		return Address{}, err
	}
	if addr.IsZero() {
		return Address{}, dErrors.New(dErrors.CodeValidation, "zero address cannot own a subname")
	}
	return addr, nil
}

// MustParseAddress is for constants and tests.
func MustParseAddress(s string) Address {
	addr, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return addr
}

// String returns the canonical lower-case form.
func (a Address) String() string {
	return strings.ToLower(common.Address(a).Hex())
}

// Checksum returns the EIP-55 mixed-case form for display.
func (a Address) Checksum() string {
	return common.Address(a).Hex()
}

func (a Address) IsZero() bool {
	return a == ZeroAddress
}

// Less orders addresses by their canonical string.
func (a Address) Less(other Address) bool {
	return a.String() < other.String()
}

func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

func (a *Address) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseAddress(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// CanonicalAddress lower-cases and trims s without validating it. Use it for
// map keys built from upstream data that may not be well-formed.
func CanonicalAddress(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
