package lifecycle

import (
	"crypto/rand"
	"fmt"
)

// Session code alphabet: uppercase letters and digits minus the visually
// ambiguous 0, O, 1 and I. Fixed at 32 symbols; codes are six characters.
const (
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLength   = 6

	// maxCodeAttempts bounds uniqueness retries before surfacing a hard
	// failure to the caller.
	maxCodeAttempts = 10
)

// generateCode produces a random session code from the fixed alphabet.
func generateCode() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}
