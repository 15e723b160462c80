// Package txid produces the opaque correlation identifiers that tie an order
// to its payment attempt across the store, the gateway's external reference
// and outbound notifications.
package txid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

const byteLength = 6

// New returns a short uppercase hex identifier. It is a correlation key, not
// a security token: collisions are improbable, not impossible.
func New() (string, error) {
	buf := make([]byte, byteLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return strings.ToUpper(hex.EncodeToString(buf)), nil
}
