// Package retrieval connects a document cache to the indexing and search
// steps of a retrieval-augmented-generation pipeline.
package retrieval

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint returns a stable key for a document's content: the lowercase
// hex SHA-256 digest.
func Fingerprint(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
