package session

import "strings"

// sanitizeInput normalizes a typed deposit amount.
// Only digits and a single decimal point are accepted, with at most decimals
// fractional digits. A leading "." becomes "0.". Invalid input returns previous.
func sanitizeInput(input, previous string, decimals int) string {
	input = strings.TrimSpace(input)
	if input == "" {
		return ""
	}

	seenPoint := false
	fraction := 0
	for _, r := range input {
		switch {
		case r >= '0' && r <= '9':
			if seenPoint {
				fraction++
				if fraction > decimals {
					return previous
				}
			}
		case r == '.':
			if seenPoint || decimals == 0 {
				return previous
			}
			seenPoint = true
		default:
			return previous
		}
	}

	if strings.HasPrefix(input, ".") {
		input = "0" + input
	}
	return input
}
