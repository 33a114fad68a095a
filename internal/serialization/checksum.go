package serialization

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeChecksum returns the SHA-256 digest of the data section.
func ComputeChecksum(data []byte) [ChecksumSize]byte {
	return sha256.Sum256(data)
}

// ValidateChecksum compares the digest of data against the stored one.
// The returned error matches ErrChecksumMismatch.
func ValidateChecksum(data []byte, stored [ChecksumSize]byte) error {
	computed := ComputeChecksum(data)
	if computed != stored {
		return fmt.Errorf("%w: stored %s, computed %s", ErrChecksumMismatch,
			hex.EncodeToString(stored[:8]), hex.EncodeToString(computed[:8]))
	}
	return nil
}
