// Package audio handles raw PCM capture and WAV container encoding for the
// dictation pipeline. Audio is always 16kHz, mono, 16-bit signed PCM.
package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

const (
	SampleRate = 16000
	Channels   = 1
	BitsPerSample = 16
)

// EncodeWAV wraps raw s16le PCM in a standard 44-byte RIFF/WAVE header.
func EncodeWAV(pcm []byte) []byte {
	buf := new(bytes.Buffer)
	buf.Grow(44 + len(pcm))

	byteRate := SampleRate * Channels * BitsPerSample / 8
	blockAlign := Channels * BitsPerSample / 8

	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(1))
	binary.Write(buf, binary.LittleEndian, uint16(Channels))
	binary.Write(buf, binary.LittleEndian, uint32(SampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(buf, binary.LittleEndian, uint16(BitsPerSample))

	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)

	return buf.Bytes()
}

// WriteWAVFile writes pcm as a WAV file at path.
func WriteWAVFile(path string, pcm []byte) error {
	return os.WriteFile(path, EncodeWAV(pcm), 0o644)
}

type wavHeader struct {
	ChunkID       [4]byte
	ChunkSize     uint32
	Format        [4]byte
	Subchunk1ID   [4]byte
	Subchunk1Size uint32
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Subchunk2ID   [4]byte
	Subchunk2Size uint32
}

// DecodeWAV parses a standard 44-byte-header PCM WAV buffer and returns the
// raw sample payload. It is intentionally narrow: only uncompressed PCM
// (audio format 1) with a single "fmt " chunk immediately followed by "data"
// is supported, which is all this daemon ever produces or consumes.
func DecodeWAV(buf []byte) ([]byte, error) {
	r := bytes.NewReader(buf)
	var h wavHeader
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("decode wav header: %w", err)
	}
	if string(h.ChunkID[:]) != "RIFF" || string(h.Format[:]) != "WAVE" {
		return nil, fmt.Errorf("not a RIFF/WAVE file")
	}
	if string(h.Subchunk2ID[:]) != "data" {
		return nil, fmt.Errorf("unsupported wav layout: expected data chunk")
	}
	pcm := make([]byte, h.Subchunk2Size)
	if _, err := io.ReadFull(r, pcm); err != nil {
		return nil, fmt.Errorf("read wav data: %w", err)
	}
	return pcm, nil
}

// ReadWAVFile reads a WAV file from disk and returns its raw PCM payload.
func ReadWAVFile(path string) ([]byte, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read wav file: %w", err)
	}
	return DecodeWAV(buf)
}

// DurationMS returns the playback duration in milliseconds of a PCM buffer
// at the daemon's fixed sample rate.
func DurationMS(pcm []byte) int {
	return len(pcm) * 1000 / (SampleRate * (BitsPerSample / 8))
}
