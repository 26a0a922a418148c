package persistence

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression defines the codec applied to the body of an index file.
type Compression uint8

const (
	// CompressionNone stores the body as is.
	CompressionNone Compression = 0
	// CompressionLZ4 uses LZ4 block compression (fast).
	CompressionLZ4 Compression = 1
	// CompressionZstd uses Zstandard (better ratio).
	CompressionZstd Compression = 2
)

// lz4MaxRatio bounds how far an LZ4 block can expand on decompression.
const lz4MaxRatio = 255

// Valid reports whether c is a known codec.
func (c Compression) Valid() bool {
	return c <= CompressionZstd
}

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// ParseCompression maps a codec name to its Compression value.
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd", "zstandard":
		return CompressionZstd, nil
	default:
		return CompressionNone, fmt.Errorf("unknown compression %q", s)
	}
}

// ZSTD encoder/decoder pools for efficiency
var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func putZstdEncoder(enc *zstd.Encoder) {
	zstdEncoderPool.Put(enc)
}

func getZstdDecoder() (*zstd.Decoder, error) {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder), nil
	}
	return zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
}

func putZstdDecoder(dec *zstd.Decoder) {
	zstdDecoderPool.Put(dec)
}

// compress encodes data with c. If the codec does not shrink the data, the
// input is returned unchanged together with CompressionNone.
func compress(data []byte, c Compression) ([]byte, Compression, error) {
	if c == CompressionNone || len(data) == 0 {
		return data, CompressionNone, nil
	}

	var out []byte
	switch c {
	case CompressionLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, CompressionNone, err
		}
		out = buf[:n]
	case CompressionZstd:
		enc := getZstdEncoder()
		out = enc.EncodeAll(data, nil)
		putZstdEncoder(enc)
	default:
		return nil, CompressionNone, fmt.Errorf("unknown compression %d", c)
	}

	// Incompressible blocks are stored raw.
	if len(out) == 0 || len(out) >= len(data) {
		return data, CompressionNone, nil
	}
	return out, c, nil
}

// decompress restores a body of exactly rawLen bytes from a stored payload.
func decompress(stored []byte, c Compression, rawLen uint64) ([]byte, error) {
	switch c {
	case CompressionNone:
		if uint64(len(stored)) != rawLen {
			return nil, Corruptf("payload length %d differs from body length %d", len(stored), rawLen)
		}
		return stored, nil

	case CompressionLZ4:
		if rawLen > uint64(len(stored))*lz4MaxRatio+64 {
			return nil, Corruptf("lz4 body length %d impossible for payload length %d", rawLen, len(stored))
		}
		out := make([]byte, rawLen)
		n, err := lz4.UncompressBlock(stored, out)
		if err != nil {
			return nil, Corruptf("lz4: %v", err)
		}
		if uint64(n) != rawLen {
			return nil, Corruptf("lz4 decompressed %d bytes, want %d", n, rawLen)
		}
		return out, nil

	case CompressionZstd:
		dec, err := getZstdDecoder()
		if err != nil {
			return nil, err
		}
		defer putZstdDecoder(dec)

		if err := dec.Reset(bytes.NewReader(stored)); err != nil {
			return nil, Corruptf("zstd: %v", err)
		}
		// Reading one byte past rawLen detects oversized frames without unbounded allocation.
		out, err := io.ReadAll(io.LimitReader(dec, int64(rawLen)+1))
		if err != nil {
			return nil, Corruptf("zstd: %v", err)
		}
		if uint64(len(out)) != rawLen {
			return nil, Corruptf("zstd decompressed %d bytes, want %d", len(out), rawLen)
		}
		return out, nil

	default:
		return nil, Corruptf("unknown compression %d", c)
	}
}
