package audio

import (
	"bytes"
	"path/filepath"
	"testing"
)

func TestEncodeWAV(t *testing.T) {
	pcm := []byte{0x01, 0x02, 0x03, 0x04}
	wav := EncodeWAV(pcm)

	if !bytes.HasPrefix(wav, []byte("RIFF")) {
		t.Errorf("expected RIFF prefix")
	}
	if !bytes.Contains(wav, []byte("WAVE")) {
		t.Errorf("expected WAVE format identifier")
	}

	expectedLen := 44 + len(pcm)
	if len(wav) != expectedLen {
		t.Errorf("expected length %d, got %d", expectedLen, len(wav))
	}
}

func TestWAVRoundTrip(t *testing.T) {
	pcm := make([]byte, 3200)
	for i := range pcm {
		pcm[i] = byte(i % 251)
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "segment.wav")
	if err := WriteWAVFile(path, pcm); err != nil {
		t.Fatalf("WriteWAVFile: %v", err)
	}

	got, err := ReadWAVFile(path)
	if err != nil {
		t.Fatalf("ReadWAVFile: %v", err)
	}
	if !bytes.Equal(got, pcm) {
		t.Errorf("round trip mismatch: got %d bytes, want %d bytes", len(got), len(pcm))
	}
}

func TestDecodeWAVRejectsGarbage(t *testing.T) {
	if _, err := DecodeWAV([]byte("not a wav file")); err == nil {
		t.Error("expected error decoding garbage input")
	}
}

func TestDurationMS(t *testing.T) {
	// 16kHz, 16-bit mono: 32000 bytes/sec => 1600 bytes = 50ms
	pcm := make([]byte, 1600)
	if got := DurationMS(pcm); got != 50 {
		t.Errorf("DurationMS() = %d, want 50", got)
	}
}
