package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{
			name:     "removes duplicates",
			input:    []string{"a", "b", "a", "c", "b"},
			expected: []string{"a", "b", "c"},
		},
		{
			name:     "trims whitespace",
			input:    []string{" a ", "b", "a"},
			expected: []string{"a", "b"},
		},
		{
			name:     "drops empty entries",
			input:    []string{"", "  ", "a"},
			expected: []string{"a"},
		},
		{
			name:     "preserves first-occurrence order",
			input:    []string{"gamma", "alpha", "gamma", "beta"},
			expected: []string{"gamma", "alpha", "beta"},
		},
		{
			name:     "empty input",
			input:    nil,
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrim(tt.input))
		})
	}
}

func TestSlug(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "lowercases and hyphenates",
			input:    "Saturating Growth Law",
			expected: "saturating-growth-law",
		},
		{
			name:     "collapses symbol runs",
			input:    "z(t) = z_0 * (1 - e^{-t})",
			expected: "z-t-z-0-1-e-t",
		},
		{
			name:     "strips leading and trailing separators",
			input:    "--hello world--",
			expected: "hello-world",
		},
		{
			name:     "truncates long names",
			input:    "a very long equation name that keeps going well past the limit",
			expected: "a-very-long-equation-name-that-keeps-going-well",
		},
		{
			name:     "all symbols falls back",
			input:    "!!!",
			expected: "untitled",
		},
		{
			name:     "empty falls back",
			input:    "",
			expected: "untitled",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Slug(tt.input))
		})
	}
}
