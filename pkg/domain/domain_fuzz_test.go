package domain

import (
	"testing"
	"unicode/utf8"
)

// FuzzParseLabel checks that parsing never panics and that accepted labels
// are already canonical.
func FuzzParseLabel(f *testing.F) {
	f.Add("")
	f.Add("bob")
	f.Add("  BOB  ")
	f.Add("bob-1")
	f.Add(string([]byte{0x00, 0x01, 0x02}))

	f.Fuzz(func(t *testing.T, input string) {
		l, err := ParseLabel(input)
		if err != nil {
			return
		}
		if NormalizeLabel(string(l)) != l {
			t.Errorf("accepted label %q is not canonical", l)
		}
		if !utf8.ValidString(string(l)) {
			t.Error("accepted label is not valid UTF-8")
		}
	})
}

// FuzzParseAddress checks that accepted addresses round-trip through their
// canonical form.
func FuzzParseAddress(f *testing.F) {
	f.Add("0x0000000000000000000000000000000000000000")
	f.Add("0xAbCdEf0123456789aBcDeF0123456789AbCdEf01")
	f.Add("0x")
	f.Add("not-an-address")

	f.Fuzz(func(t *testing.T, input string) {
		addr, err := ParseAddress(input)
		if err != nil {
			return
		}
		roundTrip, err := ParseAddress(addr.String())
		if err != nil {
			t.Fatalf("canonical form failed to parse: %v", err)
		}
		if roundTrip != addr {
			t.Error("round-trip changed address")
		}
	})
}
