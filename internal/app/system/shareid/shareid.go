// Package shareid mints public share identifiers.
//
// A share id is the 128 bits of a random (version 4) UUID encoded as
// lower-case unpadded base32, so it is URL safe and not guessable.
package shareid

import (
	"encoding/base32"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Len is the length of every share id.
const Len = 26

var encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// New returns a fresh share id.
func New() (string, error) {
	u, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("shareid: %w", err)
	}
	return strings.ToLower(encoding.EncodeToString(u[:])), nil
}

// Valid reports whether s has the shape of a share id.
func Valid(s string) bool {
	if len(s) != Len {
		return false
	}
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < '2' || r > '7') {
			return false
		}
	}
	return true
}
