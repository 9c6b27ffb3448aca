package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrimLower(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{
			name:     "nil slice",
			input:    nil,
			expected: nil,
		},
		{
			name:     "empty slice",
			input:    []string{},
			expected: []string{},
		},
		{
			name:     "lowercases and trims",
			input:    []string{"  0xABCD ", "0xEf"},
			expected: []string{"0xabcd", "0xef"},
		},
		{
			name:     "case-insensitive duplicates collapse to first seen",
			input:    []string{"0xAb", "0xab", "0xAB", "0xcd"},
			expected: []string{"0xab", "0xcd"},
		},
		{
			name:     "removes empty strings",
			input:    []string{"", "  ", "0x01"},
			expected: []string{"0x01"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrimLower(tt.input))
		})
	}
}

func TestContainsFold(t *testing.T) {
	assert.True(t, ContainsFold("", "anything"))
	assert.True(t, ContainsFold("  ", "anything"))
	assert.True(t, ContainsFold("BOB", "0x123", "bob.deptofagri.eth"))
	assert.False(t, ContainsFold("alice", "0x123", "bob.deptofagri.eth"))
	assert.False(t, ContainsFold("bob"))
}
