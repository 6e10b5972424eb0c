package packet

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/google/uuid"
)

// Reader provides methods for reading packet data.
// Uses Little-Endian byte order for all multi-byte values.
type Reader struct {
	data []byte
	pos  int
}

// NewReader creates a new packet reader over data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Remaining returns how many unread bytes are left.
func (r *Reader) Remaining() int {
	return len(r.data) - r.pos
}

// ReadByte reads a single byte.
func (r *Reader) ReadByte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, fmt.Errorf("ReadByte: not enough data (pos=%d, len=%d)", r.pos, len(r.data))
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

// ReadBool reads one byte as a bool.
func (r *Reader) ReadBool() (bool, error) {
	b, err := r.ReadByte()
	return b != 0, err
}

// ReadShort reads an int16 (2 bytes, LE).
func (r *Reader) ReadShort() (int16, error) {
	if r.pos+2 > len(r.data) {
		return 0, fmt.Errorf("ReadShort: not enough data (pos=%d, len=%d)", r.pos, len(r.data))
	}
	val := int16(binary.LittleEndian.Uint16(r.data[r.pos:]))
	r.pos += 2
	return val, nil
}

// ReadInt reads an int32 (4 bytes, LE).
func (r *Reader) ReadInt() (int32, error) {
	if r.pos+4 > len(r.data) {
		return 0, fmt.Errorf("ReadInt: not enough data (pos=%d, len=%d)", r.pos, len(r.data))
	}
	val := int32(binary.LittleEndian.Uint32(r.data[r.pos:]))
	r.pos += 4
	return val, nil
}

// ReadLong reads an int64 (8 bytes, LE).
func (r *Reader) ReadLong() (int64, error) {
	if r.pos+8 > len(r.data) {
		return 0, fmt.Errorf("ReadLong: not enough data (pos=%d, len=%d)", r.pos, len(r.data))
	}
	val := int64(binary.LittleEndian.Uint64(r.data[r.pos:]))
	r.pos += 8
	return val, nil
}

// ReadDouble reads a float64 (8 bytes, LE, IEEE 754).
func (r *Reader) ReadDouble() (float64, error) {
	if r.pos+8 > len(r.data) {
		return 0, fmt.Errorf("ReadDouble: not enough data (pos=%d, len=%d)", r.pos, len(r.data))
	}
	bits := binary.LittleEndian.Uint64(r.data[r.pos:])
	r.pos += 8
	return math.Float64frombits(bits), nil
}

// ReadString reads a UTF-8 string with a uint16 length prefix.
func (r *Reader) ReadString() (string, error) {
	if r.pos+2 > len(r.data) {
		return "", fmt.Errorf("ReadString: not enough data for length (pos=%d, len=%d)", r.pos, len(r.data))
	}
	n := int(binary.LittleEndian.Uint16(r.data[r.pos:]))
	r.pos += 2
	if r.pos+n > len(r.data) {
		return "", fmt.Errorf("ReadString: not enough data for %d bytes (pos=%d, len=%d)", n, r.pos, len(r.data))
	}
	s := string(r.data[r.pos : r.pos+n])
	r.pos += n
	return s, nil
}

// ReadUUID reads 16 raw identifier bytes.
func (r *Reader) ReadUUID() (uuid.UUID, error) {
	if r.pos+16 > len(r.data) {
		return uuid.Nil, fmt.Errorf("ReadUUID: not enough data (pos=%d, len=%d)", r.pos, len(r.data))
	}
	var id uuid.UUID
	copy(id[:], r.data[r.pos:r.pos+16])
	r.pos += 16
	return id, nil
}
