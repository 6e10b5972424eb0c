// Package packet implements the binary wire codec for observer sync
// messages. Little-Endian byte order for all multi-byte values; strings
// are UTF-8 with a uint16 length prefix.
package packet

import (
	"bytes"
	"encoding/binary"
	"math"
	"sync"

	"github.com/google/uuid"
)

// MaxStringBytes caps encoded string length to what the uint16 prefix can
// carry.
const MaxStringBytes = math.MaxUint16

// Writer provides methods for writing packet data.
type Writer struct {
	buf *bytes.Buffer
}

// writerPool reduces allocations by reusing Writers across broadcasts.
var writerPool = sync.Pool{
	New: func() any {
		return &Writer{
			buf: bytes.NewBuffer(make([]byte, 0, 512)),
		}
	},
}

// Get returns a Writer from the pool (already reset).
func Get() *Writer {
	w := writerPool.Get().(*Writer)
	w.buf.Reset()
	return w
}

// Put returns a Writer to the pool for reuse.
// IMPORTANT: Do not use the Writer after calling Put.
func (w *Writer) Put() {
	writerPool.Put(w)
}

// NewWriter creates a standalone packet writer.
func NewWriter() *Writer {
	return &Writer{buf: bytes.NewBuffer(make([]byte, 0, 256))}
}

// WriteByte writes a single byte.
func (w *Writer) WriteByte(b byte) {
	w.buf.WriteByte(b)
}

// WriteBool writes a bool as one byte.
func (w *Writer) WriteBool(v bool) {
	if v {
		w.buf.WriteByte(1)
	} else {
		w.buf.WriteByte(0)
	}
}

// WriteShort writes an int16 (2 bytes, LE).
func (w *Writer) WriteShort(val int16) {
	w.buf.WriteByte(byte(val))
	w.buf.WriteByte(byte(val >> 8))
}

// WriteInt writes an int32 (4 bytes, LE).
func (w *Writer) WriteInt(val int32) {
	w.buf.WriteByte(byte(val))
	w.buf.WriteByte(byte(val >> 8))
	w.buf.WriteByte(byte(val >> 16))
	w.buf.WriteByte(byte(val >> 24))
}

// WriteLong writes an int64 (8 bytes, LE).
func (w *Writer) WriteLong(val int64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], uint64(val))
	w.buf.Write(tmp[:])
}

// WriteDouble writes a float64 (8 bytes, LE, IEEE 754).
func (w *Writer) WriteDouble(val float64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], math.Float64bits(val))
	w.buf.Write(tmp[:])
}

// WriteString writes a UTF-8 string with a uint16 length prefix.
// Strings longer than MaxStringBytes are truncated.
func (w *Writer) WriteString(s string) {
	if len(s) > MaxStringBytes {
		s = s[:MaxStringBytes]
	}
	w.buf.WriteByte(byte(len(s)))
	w.buf.WriteByte(byte(len(s) >> 8))
	w.buf.WriteString(s)
}

// WriteUUID writes the 16 raw bytes of the identifier.
func (w *Writer) WriteUUID(id uuid.UUID) {
	w.buf.Write(id[:])
}

// Bytes returns the accumulated packet. The slice is only valid until the
// writer is reused.
func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int {
	return w.buf.Len()
}
