package session

import "testing"

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		previous string
		decimals int
		expected string
	}{
		{name: "integer", input: "12", previous: "1", decimals: 18, expected: "12"},
		{name: "decimal", input: "1.25", previous: "1.2", decimals: 18, expected: "1.25"},
		{name: "leading point", input: ".5", previous: "", decimals: 18, expected: "0.5"},
		{name: "bare point", input: ".", previous: "", decimals: 18, expected: "0."},
		{name: "trailing point", input: "3.", previous: "3", decimals: 18, expected: "3."},
		{name: "empty clears", input: "", previous: "4", decimals: 18, expected: ""},
		{name: "whitespace trimmed", input: " 7 ", previous: "", decimals: 18, expected: "7"},
		{name: "letters rejected", input: "1a", previous: "1", decimals: 18, expected: "1"},
		{name: "second point rejected", input: "1.2.3", previous: "1.2", decimals: 18, expected: "1.2"},
		{name: "negative rejected", input: "-1", previous: "", decimals: 18, expected: ""},
		{name: "too many decimals", input: "0.1234567", previous: "0.123456", decimals: 6, expected: "0.123456"},
		{name: "exact decimals", input: "0.123456", previous: "0.12345", decimals: 6, expected: "0.123456"},
		{name: "no decimals allowed", input: "1.0", previous: "1", decimals: 0, expected: "1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizeInput(tt.input, tt.previous, tt.decimals)
			if got != tt.expected {
				t.Errorf("sanitizeInput(%q, %q, %d) = %q, expected %q", tt.input, tt.previous, tt.decimals, got, tt.expected)
			}
		})
	}
}
