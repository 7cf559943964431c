package pcm

import (
	"bytes"
	"encoding/binary"
)

// EncodeWAV wraps PCM16LE samples in a canonical 44-byte-header WAV
// container.
func EncodeWAV(samples []byte, f Format) []byte {
	var buf bytes.Buffer
	buf.Grow(44 + len(samples))

	blockAlign := uint16(f.BytesPerFrame())
	byteRate := uint32(f.SampleRate) * uint32(blockAlign)

	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(36+len(samples)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	_ = binary.Write(&buf, binary.LittleEndian, uint16(f.Channels))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(f.SampleRate))
	_ = binary.Write(&buf, binary.LittleEndian, byteRate)
	_ = binary.Write(&buf, binary.LittleEndian, blockAlign)
	_ = binary.Write(&buf, binary.LittleEndian, uint16(16))

	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(samples)))
	buf.Write(samples)

	return buf.Bytes()
}

// Silence returns frames of zeroed samples.
func Silence(frames int, f Format) []byte {
	return make([]byte, frames*f.BytesPerFrame())
}
