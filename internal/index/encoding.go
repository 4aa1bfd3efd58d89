package index

import (
	"encoding/binary"
	"math"
)

// encodeVector serialises a float32 vector as a little-endian byte blob for
// SQLite storage. 4 bytes per component, no header — the vector length is
// implied by the blob size.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

// decodeVector deserialises a blob produced by encodeVector. Trailing bytes
// that do not form a full component are ignored.
func decodeVector(b []byte) []float32 {
	n := len(b) / 4
	v := make([]float32, n)
	for i := 0; i < n; i++ {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v
}
