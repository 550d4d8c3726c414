package audio

import (
	"encoding/binary"
	"math"
	"testing"
)

// pcmTone synthesizes a 440Hz-style sine at 16kHz s16le.
func pcmTone(freq float64, ms int) []byte {
	n := 16 * ms
	buf := make([]byte, n*2)
	for i := 0; i < n; i++ {
		s := int16(16000 * math.Sin(2*math.Pi*freq*float64(i)/16000))
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}

func pcmSilence(ms int) []byte {
	return make([]byte, 16*ms*2)
}

func newTestVAD(t *testing.T) *VAD {
	t.Helper()
	v, err := NewVAD()
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func TestVADSilence(t *testing.T) {
	v := newTestVAD(t)
	v.Process(pcmSilence(200))
	if v.VoiceDetected() {
		t.Error("expected no voice on silence")
	}
	if v.HasSpeechTick() {
		t.Error("expected HasSpeechTick false on silence")
	}
}

func TestVADOddChunkSizes(t *testing.T) {
	v := newTestVAD(t)

	// 200ms of silence in 100-byte chunks, not aligned to the 640-byte
	// 20ms frame the detector consumes.
	silence := pcmSilence(200)
	for i := 0; i < len(silence); i += 100 {
		end := min(i+100, len(silence))
		v.Process(silence[i:end])
	}
	if v.VoiceDetected() {
		t.Error("expected no voice on silence with odd chunks")
	}
}

func TestVADReset(t *testing.T) {
	v := newTestVAD(t)
	v.Process(pcmTone(440, 200))
	v.Reset()
	if v.VoiceDetected() {
		t.Error("expected no voice after reset")
	}
	if v.HasSpeechTick() {
		t.Error("expected no speech tick after reset")
	}
}
