// Package audio provides the WAV framing used for synthesized speech.
// The synthesis engine returns raw little-endian 32-bit float samples;
// browsers need them wrapped in a RIFF/WAVE container before playback.
package audio

import (
	"encoding/binary"
)

// WAV format parameters for synthesized utterances: mono IEEE-float PCM.
const (
	formatIEEEFloat = 3
	numChannels     = 1
	bitsPerSample   = 32
)

const headerSize = 44

// EncodeFloat32LE wraps raw little-endian float32 PCM samples in a WAV
// header. The input is used as-is; no resampling or validation of sample
// alignment is performed.
func EncodeFloat32LE(samples []byte, sampleRate int) []byte {
	blockAlign := numChannels * bitsPerSample / 8
	byteRate := sampleRate * blockAlign

	buf := make([]byte, headerSize+len(samples))

	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(headerSize-8+len(samples)))
	copy(buf[8:12], "WAVE")

	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16) // fmt chunk size
	binary.LittleEndian.PutUint16(buf[20:22], formatIEEEFloat)
	binary.LittleEndian.PutUint16(buf[22:24], numChannels)
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(buf[34:36], bitsPerSample)

	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(len(samples)))
	copy(buf[headerSize:], samples)

	return buf
}

// Duration returns the playback duration in seconds of a raw float32 sample
// buffer at the given rate.
func Duration(samples []byte, sampleRate int) float64 {
	if sampleRate <= 0 {
		return 0
	}
	return float64(len(samples)/4) / float64(sampleRate)
}
