package persistence

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
)

// BodyWriter accumulates a little-endian encoded body in memory.
type BodyWriter struct {
	buf []byte
}

// NewBodyWriter creates a writer with the given initial capacity.
func NewBodyWriter(capacity int) *BodyWriter {
	return &BodyWriter{buf: make([]byte, 0, capacity)}
}

// PutUint32 appends v.
func (bw *BodyWriter) PutUint32(v uint32) {
	bw.buf = binary.LittleEndian.AppendUint32(bw.buf, v)
}

// PutUint32Slice appends every value of s.
func (bw *BodyWriter) PutUint32Slice(s []uint32) {
	for _, v := range s {
		bw.buf = binary.LittleEndian.AppendUint32(bw.buf, v)
	}
}

// PutFloat32Slice appends the IEEE-754 bits of every value of s.
func (bw *BodyWriter) PutFloat32Slice(s []float32) {
	for _, v := range s {
		bw.buf = binary.LittleEndian.AppendUint32(bw.buf, math.Float32bits(v))
	}
}

// Bytes returns the encoded body.
func (bw *BodyWriter) Bytes() []byte {
	return bw.buf
}

// SliceReader provides bounds-checked reads from a decoded body.
// Every out-of-bounds read is reported as corruption.
type SliceReader struct {
	b   []byte
	off int
}

func NewSliceReader(b []byte) *SliceReader {
	return &SliceReader{b: b}
}

func (r *SliceReader) Offset() int {
	return r.off
}

// Remaining returns the number of unread bytes.
func (r *SliceReader) Remaining() int {
	return len(r.b) - r.off
}

func (r *SliceReader) readBytes(n int) ([]byte, error) {
	if n < 0 || n > len(r.b)-r.off {
		return nil, fmt.Errorf("%w: %w: %d bytes at offset %d, length %d", ErrCorrupt, ErrTruncated, n, r.off, len(r.b))
	}
	out := r.b[r.off : r.off+n]
	r.off += n
	return out, nil
}

func (r *SliceReader) ReadUint32() (uint32, error) {
	b, err := r.readBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// ReadUint32Slice reads n values into a new slice.
func (r *SliceReader) ReadUint32Slice(n int) ([]uint32, error) {
	if n > r.Remaining()/4 {
		return nil, fmt.Errorf("%w: %w: %d values at offset %d", ErrCorrupt, ErrTruncated, n, r.off)
	}
	b, err := r.readBytes(n * 4)
	if err != nil {
		return nil, err
	}
	out := make([]uint32, n)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return out, nil
}

// ReadFloat32SliceInto fills dst.
func (r *SliceReader) ReadFloat32SliceInto(dst []float32) error {
	b, err := r.readBytes(len(dst) * 4)
	if err != nil {
		return err
	}
	for i := range dst {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return nil
}

// countingWriter wraps an io.Writer and counts bytes written.
type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}

// WriteFile writes header and body to w as one index file.
// Magic, Version, lengths, checksum and the effective codec are filled in
// from body and c; the caller provides the graph fields.
func WriteFile(w io.Writer, header FileHeader, body []byte, c Compression) (int64, error) {
	if !c.Valid() {
		return 0, fmt.Errorf("unknown compression %d", c)
	}
	payload, used, err := compress(body, c)
	if err != nil {
		return 0, err
	}

	header.Magic = MagicNumber
	header.Version = Version
	header.Compression = used
	header.RawLength = uint64(len(body))
	header.StoredLength = uint64(len(payload))
	header.Checksum = CalculateChecksum(body)

	cw := &countingWriter{w: w}
	if err := binary.Write(cw, binary.LittleEndian, &header); err != nil {
		return cw.n, err
	}
	if _, err := cw.Write(payload); err != nil {
		return cw.n, err
	}
	return cw.n, nil
}

// ReadFile reads one index file from r and returns its validated header and
// uncompressed, checksum-verified body.
func ReadFile(r io.Reader) (*FileHeader, []byte, error) {
	var header FileHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, nil, classifyReadError(err, "header")
	}
	if err := header.Validate(); err != nil {
		return nil, nil, err
	}

	// Grow with the data actually present instead of trusting StoredLength.
	stored, err := io.ReadAll(io.LimitReader(r, int64(header.StoredLength)))
	if err != nil {
		return nil, nil, err
	}
	if uint64(len(stored)) != header.StoredLength {
		return nil, nil, fmt.Errorf("%w: %w: payload has %d of %d bytes", ErrCorrupt, ErrTruncated, len(stored), header.StoredLength)
	}

	body, err := decompress(stored, header.Compression, header.RawLength)
	if err != nil {
		return nil, nil, err
	}
	if err := VerifyChecksum(body, header.Checksum); err != nil {
		return nil, nil, err
	}
	return &header, body, nil
}

func classifyReadError(err error, what string) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %w: reading %s", ErrCorrupt, ErrTruncated, what)
	}
	return err
}

// SaveToFile is a helper to save data to a file.
// The target is replaced atomically: readers see either the old or the new file.
func SaveToFile(filename string, writeFunc func(io.Writer) error) error {
	dir := filepath.Dir(filename)
	base := filepath.Base(filename)

	// Write to a temp file in the same directory to ensure rename is atomic.
	tmp, err := os.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		if tmpName != "" {
			_ = os.Remove(tmpName)
		}
	}()

	_ = tmp.Chmod(0644)

	buf := bufio.NewWriterSize(tmp, 256*1024)
	if err := writeFunc(buf); err != nil {
		return err
	}
	if err := buf.Flush(); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmpName, filename); err != nil {
		return err
	}

	// Best-effort: fsync the directory so the rename is durable on POSIX.
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}

	tmpName = ""
	return nil
}

// LoadFromFile is a helper to load data from a file.
func LoadFromFile(filename string, readFunc func(io.Reader) error) error {
	f, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	buf := bufio.NewReaderSize(f, 256*1024)
	return readFunc(buf)
}
