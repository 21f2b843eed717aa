package domain

import "strings"

// SearchTokens lowercases and tokenises the given text fragments into the
// keyword index stored on products. Tokens are deduplicated and single
// characters are dropped.
func SearchTokens(parts ...string) []string {
	seen := make(map[string]struct{})
	var tokens []string
	for _, part := range parts {
		for _, token := range strings.FieldsFunc(strings.ToLower(part), isTokenBoundary) {
			if len(token) < 2 {
				continue
			}
			if _, ok := seen[token]; ok {
				continue
			}
			seen[token] = struct{}{}
			tokens = append(tokens, token)
		}
	}
	return tokens
}

func isTokenBoundary(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return false
	case r >= '0' && r <= '9':
		return false
	default:
		return r < 0x80 || r == 0x2019
	}
}
