package utils

import (
	"bytes"
	"crypto/sha256"
	"encoding/gob"
	"fmt"
)

// HashStruct gob-encodes v and returns the hex SHA-256 digest of the
// encoding. Used by PathGenerator's seed() to derive a deterministic
// PRNG seed from (session id, parameters): any two calls with
// gob-equal v produce the same digest, on any process, forever.
func HashStruct(v interface{}) (string, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return "", fmt.Errorf("utils.HashStruct: gob encode: %w", err)
	}

	digest := sha256.Sum256(buf.Bytes())
	return fmt.Sprintf("%x", digest), nil
}
