package store

import (
	"encoding/binary"
	"math"
)

// encodeEmbedding serializes a vector as little-endian float32 bytes for
// BLOB storage.
func encodeEmbedding(vec []float32) []byte {
	if len(vec) == 0 {
		return nil
	}
	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// decodeEmbedding converts a stored BLOB back to []float32. Each 4 bytes
// is one LE float32; a short trailing chunk is dropped.
func decodeEmbedding(data []byte) []float32 {
	n := len(data) / 4
	if n == 0 {
		return nil
	}
	vec := make([]float32, n)
	for i := 0; i < n; i++ {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4 : i*4+4]))
	}
	return vec
}
