// Package bitio provides the big-endian binary reader and writer that every
// ISOBMFF and MPEG-TS routine in this module is built on top of. The reader
// is a cursor over a borrowed, immutable byte span; the writer appends to a
// growable buffer it owns.
package bitio

import (
	"github.com/ngohuy/hlspacker/pkg/errors"
)

// Reader is a cursor over an immutable byte slice. It never copies the
// underlying data; callers that need an owned copy must do so explicitly.
type Reader struct {
	buf []byte
	pos int
}

// NewReader wraps buf for sequential big-endian reads starting at offset 0.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Len returns the number of unread bytes remaining.
func (r *Reader) Len() int {
	return len(r.buf) - r.pos
}

// Pos returns the current cursor offset from the start of buf.
func (r *Reader) Pos() int {
	return r.pos
}

func (r *Reader) require(n int) error {
	if r.Len() < n {
		return errors.NewEndOfData(n, r.Len())
	}
	return nil
}

// ReadU8 reads one unsigned byte.
func (r *Reader) ReadU8() (uint8, error) {
	if err := r.require(1); err != nil {
		return 0, err
	}
	v := r.buf[r.pos]
	r.pos++
	return v, nil
}

// ReadU16 reads a big-endian uint16.
func (r *Reader) ReadU16() (uint16, error) {
	if err := r.require(2); err != nil {
		return 0, err
	}
	v := uint16(r.buf[r.pos])<<8 | uint16(r.buf[r.pos+1])
	r.pos += 2
	return v, nil
}

// ReadU24 reads a big-endian 24-bit unsigned integer (used for box flags).
func (r *Reader) ReadU24() (uint32, error) {
	if err := r.require(3); err != nil {
		return 0, err
	}
	v := uint32(r.buf[r.pos])<<16 | uint32(r.buf[r.pos+1])<<8 | uint32(r.buf[r.pos+2])
	r.pos += 3
	return v, nil
}

// ReadU32 reads a big-endian uint32.
func (r *Reader) ReadU32() (uint32, error) {
	if err := r.require(4); err != nil {
		return 0, err
	}
	v := uint32(r.buf[r.pos])<<24 | uint32(r.buf[r.pos+1])<<16 | uint32(r.buf[r.pos+2])<<8 | uint32(r.buf[r.pos+3])
	r.pos += 4
	return v, nil
}

// ReadU64 reads a big-endian uint64.
func (r *Reader) ReadU64() (uint64, error) {
	if err := r.require(8); err != nil {
		return 0, err
	}
	hi, _ := r.ReadU32()
	lo, _ := r.ReadU32()
	return uint64(hi)<<32 | uint64(lo), nil
}

// ReadI32 reads a big-endian signed int32.
func (r *Reader) ReadI32() (int32, error) {
	v, err := r.ReadU32()
	return int32(v), err
}

// ReadI64 reads a big-endian signed int64.
func (r *Reader) ReadI64() (int64, error) {
	v, err := r.ReadU64()
	return int64(v), err
}

// Read4CC reads a four-character code. Bytes outside printable ASCII are
// returned as they are; they are not rejected.
func (r *Reader) Read4CC() (string, error) {
	if err := r.require(4); err != nil {
		return "", err
	}
	b := r.buf[r.pos : r.pos+4]
	for _, c := range b {
		if c < 0x20 || c > 0x7e {
			r.pos += 4
			return string(b), nil // tolerate non-ASCII vendor codes, e.g. uuid-extension boxes
		}
	}
	r.pos += 4
	return string(b), nil
}

// ReadFixed16_16 reads a 32-bit 16.16 fixed-point number as a float64.
func (r *Reader) ReadFixed16_16() (float64, error) {
	v, err := r.ReadI32()
	if err != nil {
		return 0, err
	}
	return float64(v) / 65536.0, nil
}

// ReadFixed8_8 reads a 16-bit 8.8 fixed-point number as a float64.
func (r *Reader) ReadFixed8_8() (float64, error) {
	v, err := r.ReadU16()
	if err != nil {
		return 0, err
	}
	return float64(v) / 256.0, nil
}

// ReadBytes returns a borrowed slice of the next n bytes and advances the
// cursor. The returned slice aliases the reader's backing array.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, errors.NewInvalidData("negative length")
	}
	if err := r.require(n); err != nil {
		return nil, err
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// SubReader carves out a reader over the next n bytes without advancing
// past them being consumed twice; it DOES advance the parent cursor.
func (r *Reader) SubReader(n int) (*Reader, error) {
	b, err := r.ReadBytes(n)
	if err != nil {
		return nil, err
	}
	return NewReader(b), nil
}

// Seek moves the cursor to an absolute offset within buf.
func (r *Reader) Seek(abs int) error {
	if abs < 0 || abs > len(r.buf) {
		return errors.NewInvalidData("seek out of range")
	}
	r.pos = abs
	return nil
}

// Skip advances the cursor by n bytes.
func (r *Reader) Skip(n int) error {
	if err := r.require(n); err != nil {
		return err
	}
	r.pos += n
	return nil
}

// ReadCString reads a NUL-terminated UTF-8 string, consuming the terminator.
func (r *Reader) ReadCString() (string, error) {
	start := r.pos
	for r.pos < len(r.buf) {
		if r.buf[r.pos] == 0 {
			s := string(r.buf[start:r.pos])
			r.pos++
			return s, nil
		}
		r.pos++
	}
	return "", errors.NewInvalidData("unterminated string")
}

// Remaining returns a borrowed slice of all unread bytes without advancing.
func (r *Reader) Remaining() []byte {
	return r.buf[r.pos:]
}
