// Copyright 2026 The TrustLink Authors
// Licensed under the EUPL-1.2

package lifecycle

import (
	"crypto/rand"
	"fmt"
	"strings"
	"unicode"
)

// TokenLength is the number of characters in a session token.
const TokenLength = 32

// alphabet for session tokens.
const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// maxByte is the largest multiple of len(alphabet) that fits in a byte.
// Random bytes at or above it are discarded so every character is equally likely.
const maxByte = 256 - (256 % len(alphabet))

// GenerateToken returns a fresh random session token.
func GenerateToken() (string, error) {
	token := make([]byte, 0, TokenLength)
	buf := make([]byte, TokenLength)

	for len(token) < TokenLength {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to generate random bytes: %w", err)
		}
		for _, b := range buf {
			if int(b) >= maxByte {
				continue
			}
			token = append(token, alphabet[int(b)%len(alphabet)])
			if len(token) == TokenLength {
				break
			}
		}
	}

	return string(token), nil
}

// ValidTokenFormat reports whether s looks like a session token. Lookups for
// malformed tokens can be answered without touching the store.
func ValidTokenFormat(s string) bool {
	if len(s) != TokenLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !strings.ContainsRune(alphabet, rune(s[i])) {
			return false
		}
	}
	return true
}

// NormalizePhone strips everything but digits from a phone number.
func NormalizePhone(phone string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, phone)
}

// VerifyURL is the link the buyer shares with the seller.
func VerifyURL(baseURL, token string) string {
	return strings.TrimSuffix(baseURL, "/") + "/verify/" + token
}

// ResultsURL is the link both parties use to view the outcome.
func ResultsURL(baseURL, token string) string {
	return strings.TrimSuffix(baseURL, "/") + "/results/" + token
}
