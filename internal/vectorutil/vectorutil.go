// Package vectorutil holds the embedding vector primitives shared by the
// storage backends: cosine similarity and the little-endian float32 BLOB
// codec used to persist vectors.
package vectorutil

import (
	"encoding/binary"
	"math"
)

// Cosine returns the cosine similarity of a and b in [-1, 1]. Mismatched
// lengths, or one or both vectors having zero norm, yield exactly 0.0
// rather than NaN.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Encode serializes a vector as a raw little-endian float32 array.
// The format round-trips bit-for-bit through Decode.
func Encode(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// Decode deserializes a little-endian float32 array. Trailing bytes that
// do not form a full float32 are ignored.
func Decode(buf []byte) []float32 {
	if len(buf) < 4 {
		return nil
	}
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return v
}

// ZeroVector returns an all-zero vector of the given dimension.
func ZeroVector(dim int) []float32 {
	return make([]float32, dim)
}

// IsZero reports whether every component of v is zero.
func IsZero(v []float32) bool {
	for _, f := range v {
		if f != 0 {
			return false
		}
	}
	return true
}
