package memory

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Normalize lowercases s and collapses every run of whitespace into a single
// space, trimming both ends.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// ContentHash returns the deduplication key for a fact. The same text under
// two different memory types hashes differently. It is a lookup key, not a
// security primitive.
func ContentHash(summary string, memoryType MemoryType) string {
	sum := sha256.Sum256([]byte(string(memoryType) + ":" + Normalize(summary)))
	return hex.EncodeToString(sum[:])[:16]
}
