// Package idgen produces cryptographically random identifiers.
package idgen

import (
	"crypto/rand"
	"fmt"
	"strings"
)

const idCharset = "abcdefghijklmnopqrstuvwxyz0123456789"

// Suffix returns a random lowercase alphanumeric string of the given length.
func Suffix(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("invalid suffix length %d", length)
	}

	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	for i, b := range buf {
		buf[i] = idCharset[int(b)%len(idCharset)]
	}
	return string(buf), nil
}

// GenerateSecureID returns "<prefix>_<random>" with a suffix of the given length.
func GenerateSecureID(prefix string, length int) (string, error) {
	suffix, err := Suffix(length)
	if err != nil {
		return "", err
	}
	return prefix + "_" + suffix, nil
}

// ValidateIDFormat reports whether id is "<expectedPrefix>_<lowercase alnum>".
func ValidateIDFormat(id, expectedPrefix string) bool {
	rest, ok := strings.CutPrefix(id, expectedPrefix+"_")
	if !ok || rest == "" {
		return false
	}
	for _, char := range rest {
		if !strings.ContainsRune(idCharset, char) {
			return false
		}
	}
	return true
}
