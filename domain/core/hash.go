package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Hash represents a content fingerprint
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// Short returns the first 12 hex characters, enough to tell runs apart in logs.
func (h Hash) Short() string {
	if len(h) <= 12 {
		return string(h)
	}
	return string(h[:12])
}

// ComputeRecordHash fingerprints an ordered list of records. Each record is
// written field by field with separators so that ("ab","c") and ("a","bc")
// hash differently.
func ComputeRecordHash(records [][]string) Hash {
	var data strings.Builder
	for _, record := range records {
		for _, field := range record {
			data.WriteString(fmt.Sprintf("%d:%s|", len(field), field))
		}
		data.WriteString("\n")
	}
	return NewHash([]byte(data.String()))
}
