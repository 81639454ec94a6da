package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentifiers(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{name: "nil stays nil", input: nil, expected: nil},
		{name: "empty stays empty", input: []string{}, expected: []string{}},
		{name: "blank entries dropped", input: []string{" ", ""}, expected: []string{}},
		{
			name:     "trimmed and deduplicated in order",
			input:    []string{" NewRegistrar", "TheRegistrar ", "NewRegistrar"},
			expected: []string{"NewRegistrar", "TheRegistrar"},
		},
		{
			name:     "case is significant",
			input:    []string{"promo", "PROMO"},
			expected: []string{"promo", "PROMO"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Identifiers(tt.input))
		})
	}
}

func TestHostnames(t *testing.T) {
	assert.Equal(t, []string{"tld", "example"}, Hostnames([]string{"TLD", " tld", "Example ", ""}))
	assert.Nil(t, Hostnames(nil))
}
