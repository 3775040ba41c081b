package bitio

import "math"

// Writer appends big-endian encoded values to a growable byte buffer that
// it owns. The zero value is ready to use.
type Writer struct {
	buf []byte
}

// NewWriter returns an empty Writer with a 256-byte initial capacity.
func NewWriter() *Writer {
	return &Writer{buf: make([]byte, 0, 256)}
}

// Bytes returns the accumulated buffer. The caller takes ownership.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int {
	return len(w.buf)
}

func (w *Writer) WriteU8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *Writer) WriteU16(v uint16) {
	w.buf = append(w.buf, byte(v>>8), byte(v))
}

func (w *Writer) WriteU24(v uint32) {
	w.buf = append(w.buf, byte(v>>16), byte(v>>8), byte(v))
}

func (w *Writer) WriteU32(v uint32) {
	w.buf = append(w.buf, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

func (w *Writer) WriteU64(v uint64) {
	w.WriteU32(uint32(v >> 32))
	w.WriteU32(uint32(v))
}

func (w *Writer) WriteI32(v int32) {
	w.WriteU32(uint32(v))
}

func (w *Writer) WriteI64(v int64) {
	w.WriteU64(uint64(v))
}

// Write4CC writes a four-character code, space-padding short codes to 4
// bytes and truncating longer ones (callers should never pass those).
func (w *Writer) Write4CC(fourCC string) {
	b := [4]byte{' ', ' ', ' ', ' '}
	copy(b[:], fourCC)
	w.buf = append(w.buf, b[:]...)
}

// WriteFixed16_16 encodes f as a 32-bit 16.16 fixed-point value.
func (w *Writer) WriteFixed16_16(f float64) {
	w.WriteI32(int32(math.Round(f * 65536.0)))
}

// WriteFixed8_8 encodes f as a 16-bit 8.8 fixed-point value.
func (w *Writer) WriteFixed8_8(f float64) {
	w.WriteU16(uint16(math.Round(f * 256.0)))
}

func (w *Writer) WriteBytes(b []byte) {
	w.buf = append(w.buf, b...)
}

// Zeros appends n zero bytes.
func (w *Writer) Zeros(n int) {
	for i := 0; i < n; i++ {
		w.buf = append(w.buf, 0)
	}
}

// WriteBox serializes a complete box: type + payload, with a 32-bit length
// header that falls back to the version-1 64-bit extended-size form when
// the total size would not fit in a uint32.
func WriteBox(boxType string, payload []byte) []byte {
	total := uint64(8 + len(payload))
	w := NewWriter()
	if total > math.MaxUint32 {
		w.WriteU32(1)
		w.Write4CC(boxType)
		w.WriteU64(total + 8)
		w.WriteBytes(payload)
		return w.Bytes()
	}
	w.WriteU32(uint32(total))
	w.Write4CC(boxType)
	w.WriteBytes(payload)
	return w.Bytes()
}

// WriteFullBox serializes a full box: type + version/flags header + payload.
func WriteFullBox(boxType string, version uint8, flags24 uint32, payload []byte) []byte {
	w := NewWriter()
	w.WriteU8(version)
	w.WriteU24(flags24)
	w.WriteBytes(payload)
	return WriteBox(boxType, w.Bytes())
}

// WriteContainerBox concatenates already-serialized child boxes under a
// single container box header.
func WriteContainerBox(boxType string, children ...[]byte) []byte {
	w := NewWriter()
	for _, c := range children {
		w.WriteBytes(c)
	}
	return WriteBox(boxType, w.Bytes())
}
