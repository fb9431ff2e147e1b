package common

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// ReservationKey derives the Redis key reserving one idempotent request. Parts
// are joined with a separator so ("a|b", "c") and ("a", "b|c") stay distinct.
func ReservationKey(parts ...string) string {
	h := sha256.New()
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte{0})
		}
		h.Write([]byte(strings.TrimSpace(p)))
	}
	return "idem:" + hex.EncodeToString(h.Sum(nil))
}
