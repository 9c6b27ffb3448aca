// Package domain holds the value objects shared across modules: subname
// labels and account addresses.
package domain

import (
	"strings"

	dErrors "tapday/pkg/domain-errors"
)

const (
	MinLabelLength = 3
	MaxLabelLength = 63
)

// Label is the left-most component of a subname, e.g. "bob" in
// "bob.deptofagri.eth". Canonical labels are lower-case and trimmed.
type Label string

// NormalizeLabel lower-cases and trims raw input.
func NormalizeLabel(raw string) Label {
	return Label(strings.ToLower(strings.TrimSpace(raw)))
}

// ValidateLabel reports whether l is 3-63 chars of [a-z0-9].
func ValidateLabel(l Label) bool {
	if len(l) < MinLabelLength || len(l) > MaxLabelLength {
		return false
	}
	for i := 0; i < len(l); i++ {
		c := l[i]
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}

// ParseLabel normalizes and validates raw input.
func ParseLabel(raw string) (Label, error) {
	l := NormalizeLabel(raw)
	if !ValidateLabel(l) {
		return "", dErrors.New(dErrors.CodeValidation,
			"invalid label: must be 3-63 characters using only lowercase letters (a-z) and digits (0-9)")
	}
	return l, nil
}

func (l Label) String() string {
	return string(l)
}

// FullName joins the label with its parent domain.
func (l Label) FullName(parent string) string {
	return string(l) + "." + parent
}
