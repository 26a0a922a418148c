package persistence

import (
	"fmt"
	"hash/crc32"
)

// Checksum utilities for index integrity verification.
//
// CRC32 (IEEE polynomial) detects accidental corruption only. It is not a
// tamper-proof signature.

// CalculateChecksum calculates CRC32 checksum of data.
func CalculateChecksum(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}

// VerifyChecksum compares the checksum of data against expected.
func VerifyChecksum(data []byte, expected uint32) error {
	if actual := CalculateChecksum(data); actual != expected {
		return &ChecksumMismatchError{Expected: expected, Actual: actual}
	}
	return nil
}

// ChecksumMismatchError is returned when checksum verification fails.
type ChecksumMismatchError struct {
	Expected uint32
	Actual   uint32
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("checksum mismatch: expected 0x%08x, got 0x%08x", e.Expected, e.Actual)
}

// Unwrap classifies a checksum mismatch as corruption.
func (e *ChecksumMismatchError) Unwrap() error { return ErrCorrupt }
