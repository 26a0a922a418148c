// Package persistence provides the framing of vsearch index files.
//
// # File Layout
//
//	+----------------+
//	|   FileHeader   |  64 bytes - magic, version, configuration, lengths, CRC32
//	+----------------+
//	|    Payload     |  StoredLength bytes - the body, optionally LZ4 or Zstd compressed
//	+----------------+
//
// All integers are little-endian. The checksum covers the uncompressed body,
// so a file is verified end to end regardless of the codec used to store it.
//
// Every decoding failure caused by the bytes themselves (bad magic, unknown
// version, truncation, length bounds, checksum mismatch) satisfies
// errors.Is(err, ErrCorrupt). Failures of the underlying reader are returned
// unchanged.
package persistence
