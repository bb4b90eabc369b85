package canon

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// SHA256Hex returns the lowercase hex SHA-256 digest of v's canonical
// serialization. This is the only hash function the event log uses —
// spec §6 permits no other value for hash_algorithm.
func SHA256Hex(v any) (string, error) {
	data, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("canon: hash: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
