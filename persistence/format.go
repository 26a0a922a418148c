package persistence

import (
	"errors"
	"fmt"
	"math"
	"math/bits"
)

const (
	// MagicNumber identifies vsearch index files (ASCII: "VSH1").
	MagicNumber = 0x56534831
	// Version is the current file format version.
	Version = 1

	// HeaderSize is the encoded size of FileHeader.
	HeaderSize = 64

	// NoEntryPoint marks an empty graph in FileHeader.EntryPoint.
	NoEntryPoint = math.MaxUint32

	// MaxLevel is the highest layer a node may be assigned.
	MaxLevel = 31
)

var (
	// ErrCorrupt is wrapped by every error caused by malformed file contents.
	ErrCorrupt = errors.New("corrupt index file")

	ErrInvalidMagic   = errors.New("invalid magic number")
	ErrInvalidVersion = errors.New("unsupported version")
	ErrTruncated      = errors.New("unexpected end of data")
)

// Corruptf returns an error wrapping ErrCorrupt with a formatted reason.
func Corruptf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCorrupt, fmt.Sprintf(format, args...))
}

// FileHeader is the 64-byte header at the start of every index file.
type FileHeader struct {
	Magic          uint32 // 0x56534831 ("VSH1")
	Version        uint32 // File format version
	Compression    Compression
	Padding1       [3]byte
	Dimension      uint32 // Vector dimensionality
	M              uint32 // Max neighbors per node above layer 0
	EFConstruction uint32 // Beam width used while building
	EntryPoint     uint32 // NoEntryPoint when empty
	TopLayer       int32  // -1 when empty
	NodeCount      uint64 // Number of vectors and graph nodes
	RawLength      uint64 // Length of the uncompressed body
	StoredLength   uint64 // Length of the payload following the header
	Checksum       uint32 // CRC32 (IEEE) of the uncompressed body
	Padding2       [4]byte
}

// Validate checks the header fields that can be verified without the body.
func (h *FileHeader) Validate() error {
	if h.Magic != MagicNumber {
		return fmt.Errorf("%w: %w: got 0x%08x", ErrCorrupt, ErrInvalidMagic, h.Magic)
	}
	if h.Version != Version {
		return fmt.Errorf("%w: %w: got %d", ErrCorrupt, ErrInvalidVersion, h.Version)
	}
	if !h.Compression.Valid() {
		return Corruptf("unknown compression %d", h.Compression)
	}
	if h.Dimension == 0 {
		return Corruptf("dimension is zero")
	}
	if h.M == 0 || h.EFConstruction == 0 {
		return Corruptf("invalid graph parameters m=%d ef_construction=%d", h.M, h.EFConstruction)
	}
	if h.NodeCount > math.MaxUint32 {
		return Corruptf("node count %d exceeds id space", h.NodeCount)
	}

	if h.NodeCount == 0 {
		if h.EntryPoint != NoEntryPoint || h.TopLayer != -1 {
			return Corruptf("empty index with entry point %d at layer %d", h.EntryPoint, h.TopLayer)
		}
	} else {
		if uint64(h.EntryPoint) >= h.NodeCount {
			return Corruptf("entry point %d out of range [0, %d)", h.EntryPoint, h.NodeCount)
		}
		if h.TopLayer < 0 || h.TopLayer > MaxLevel {
			return Corruptf("top layer %d out of range [0, %d]", h.TopLayer, MaxLevel)
		}
	}

	if h.RawLength > math.MaxInt64 || h.RawLength > MaxBodySize(h) {
		return Corruptf("body length %d exceeds bound %d", h.RawLength, MaxBodySize(h))
	}
	if h.StoredLength > h.RawLength {
		return Corruptf("payload length %d exceeds body length %d", h.StoredLength, h.RawLength)
	}
	if h.Compression == CompressionNone && h.StoredLength != h.RawLength {
		return Corruptf("uncompressed payload length %d differs from body length %d", h.StoredLength, h.RawLength)
	}
	return nil
}

// MaxBodySize returns the largest body a well-formed file with this header can carry.
func MaxBodySize(h *FileHeader) uint64 {
	m := uint64(h.M)
	// level word, one count word per layer, and at most 2M + MaxLevel*M links.
	perNode := satAdd(satMul(4, uint64(h.Dimension)), 4+4*(MaxLevel+1))
	perNode = satAdd(perNode, satMul(4, satAdd(satMul(2, m), satMul(MaxLevel, m))))
	return satMul(h.NodeCount, perNode)
}

func satMul(a, b uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return math.MaxUint64
	}
	return lo
}

func satAdd(a, b uint64) uint64 {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return math.MaxUint64
	}
	return sum
}
