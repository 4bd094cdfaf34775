package domain

import (
	"crypto/rand"
	"math/big"
	"strings"
)

// JoinCodeLength is the length of a shareable room code.
const JoinCodeLength = 6

// joinCodeAlphabet omits 0/O and 1/I/L.
const joinCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// NewJoinCode returns a random code drawn from the unambiguous alphabet.
func NewJoinCode() (string, error) {
	var sb strings.Builder
	size := big.NewInt(int64(len(joinCodeAlphabet)))
	for i := 0; i < JoinCodeLength; i++ {
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", err
		}
		sb.WriteByte(joinCodeAlphabet[n.Int64()])
	}
	return sb.String(), nil
}

// NormalizeJoinCode uppercases and trims user input.
func NormalizeJoinCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// LooksLikeJoinCode reports whether s has the shape of a join code rather than a room id.
func LooksLikeJoinCode(s string) bool {
	s = NormalizeJoinCode(s)
	if len(s) != JoinCodeLength {
		return false
	}
	for _, r := range s {
		if !strings.ContainsRune(joinCodeAlphabet, r) {
			return false
		}
	}
	return true
}
