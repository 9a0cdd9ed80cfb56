package templates

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeMarkdown(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "no special characters",
			input:    "Monday Night Miracles",
			expected: "Monday Night Miracles",
		},
		{
			name:     "asterisk for bold",
			input:    "**ELITE** Squad",
			expected: "\\*\\*ELITE\\*\\* Squad",
		},
		{
			name:     "underscore for italic",
			input:    "Team_Name_2025",
			expected: "Team\\_Name\\_2025",
		},
		{
			name:     "opening bracket",
			input:    "[1st] Place Chasers",
			expected: "\\[1st] Place Chasers",
		},
		{
			name:     "backtick",
			input:    "The `Backtick` Boys",
			expected: "The \\`Backtick\\` Boys",
		},
		{
			name:     "plain punctuation untouched",
			input:    "Run-CMC! (2-0)",
			expected: "Run-CMC! (2-0)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := EscapeMarkdown(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestFenceText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "backticks swapped for apostrophes",
			input:    "The `Backtick` Boys",
			expected: "The 'Backtick' Boys",
		},
		{
			name:     "markdown markers survive inside fences",
			input:    "Team_Name *2025*",
			expected: "Team_Name *2025*",
		},
		{
			name:     "invalid UTF-8 removed",
			input:    "Bad\xffName",
			expected: "BadName",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FenceText(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestSafeText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "valid UTF-8 with Markdown",
			input:    "Dak_Attack [TNF]",
			expected: "Dak\\_Attack \\[TNF]",
		},
		{
			name:     "invalid UTF-8 removed",
			input:    "Broken\xff name",
			expected: "Broken name",
		},
		{
			name:     "invalid UTF-8 and special chars",
			input:    "Bad\xff_name_",
			expected: "Bad\\_name\\_",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SafeText(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}
