package assemble

import (
	"bytes"
	"io"

	"github.com/wippyai/flowgen/errors"
)

// Operand encodings of the stack machine format. u30 is an unsigned LEB128
// value limited to 30 bits; s24 is a three byte little-endian signed offset.

const (
	maxU30 = 1<<30 - 1
	minS24 = -1 << 23
	maxS24 = 1<<23 - 1
)

// ErrOverflow is returned when an encoded value exceeds its bit width.
var ErrOverflow = errors.InvalidInput(errors.PhaseAssemble, "operand overflow")

// WriteU30 writes an unsigned LEB128 value. Values above 30 bits are
// truncated; callers check the range first.
func WriteU30(w *bytes.Buffer, v uint32) {
	v &= maxU30
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		w.WriteByte(b)
		if v == 0 {
			break
		}
	}
}

// ReadU30 reads an unsigned LEB128 value of at most five bytes.
func ReadU30(r io.ByteReader) (uint32, error) {
	var result uint32
	var shift uint
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		result |= uint32(b&0x7f) << shift
		if b&0x80 == 0 {
			if result > maxU30 {
				return 0, ErrOverflow
			}
			return result, nil
		}
		shift += 7
		if shift >= 35 {
			return 0, ErrOverflow
		}
	}
}

// WriteS24 writes a three byte signed value.
func WriteS24(w *bytes.Buffer, v int32) {
	var buf [3]byte
	PutS24(buf[:], v)
	w.Write(buf[:])
}

// PutS24 stores v into b[0:3].
func PutS24(b []byte, v int32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
}

// ReadS24 reads a three byte signed value.
func ReadS24(r io.ByteReader) (int32, error) {
	var v int32
	for i := 0; i < 3; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		v |= int32(b) << (8 * i)
	}
	// Sign extend
	return v << 8 >> 8, nil
}

func fitsS24(v int) bool {
	return v >= minS24 && v <= maxS24
}
