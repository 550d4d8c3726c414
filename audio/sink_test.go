package audio

import (
	"bytes"
	"testing"
)

// stubDevice drives the registered callback by hand.
type stubDevice struct {
	cb      DataCallback
	started bool
	stopped bool
}

func (d *stubDevice) Start() error                { d.started = true; return nil }
func (d *stubDevice) Stop()                       { d.stopped = true }
func (d *stubDevice) Close()                      {}
func (d *stubDevice) SetCallback(cb DataCallback) { d.cb = cb }
func (d *stubDevice) ClearCallback()              { d.cb = nil }
func (d *stubDevice) DeviceName() string          { return "stub" }

func (d *stubDevice) feed(data []byte, frames uint32) {
	if d.cb != nil {
		d.cb(data, frames)
	}
}

func TestRecorderAccumulates(t *testing.T) {
	dev := &stubDevice{}
	rec := NewRecorder(dev)

	if err := rec.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	chunk := []byte{1, 2, 3, 4}
	dev.feed(chunk, 2)
	dev.feed(chunk, 2)

	pcm, frames := rec.Stop()
	if frames != 4 {
		t.Errorf("frames = %d, want 4", frames)
	}
	if !bytes.Equal(pcm, append(append([]byte{}, chunk...), chunk...)) {
		t.Errorf("pcm = %v", pcm)
	}
	if !dev.stopped {
		t.Error("device not stopped")
	}
}

func TestRecorderStopIdempotent(t *testing.T) {
	dev := &stubDevice{}
	rec := NewRecorder(dev)

	if err := rec.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	dev.feed([]byte{1, 2}, 1)
	if pcm, _ := rec.Stop(); len(pcm) != 2 {
		t.Fatalf("first Stop returned %d bytes, want 2", len(pcm))
	}
	if pcm, frames := rec.Stop(); len(pcm) != 0 || frames != 0 {
		t.Errorf("second Stop returned %d bytes / %d frames, want empty", len(pcm), frames)
	}
}

func TestRecorderDropsDataAfterStop(t *testing.T) {
	dev := &stubDevice{}
	rec := NewRecorder(dev)
	if err := rec.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	rec.Stop()
	dev.cb = nil // ClearCallback happened; feeding again must be a no-op
	dev.feed([]byte{9, 9}, 1)
	if pcm, _ := rec.Stop(); len(pcm) != 0 {
		t.Errorf("buffer not empty after stop: %v", pcm)
	}
}

func TestRecorderSetDevice(t *testing.T) {
	first := &stubDevice{}
	second := &stubDevice{}
	rec := NewRecorder(first)

	if err := rec.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if rec.SetDevice(second) {
		t.Error("SetDevice succeeded while recording")
	}
	rec.Stop()

	if !rec.SetDevice(second) {
		t.Fatal("SetDevice failed while idle")
	}
	if err := rec.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !second.started {
		t.Error("new device not started")
	}
	if first.cb != nil {
		t.Error("old device still has a callback")
	}
	rec.Stop()
}

func TestRecorderCallbacks(t *testing.T) {
	dev := &stubDevice{}
	rec := NewRecorder(dev)

	var levels []float64
	var chunks int
	rec.OnLevel(func(rms float64) { levels = append(levels, rms) })
	rec.OnChunk(func(pcm []byte) { chunks++ })

	if err := rec.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	dev.feed([]byte{0, 0, 0, 0}, 2) // silence
	rec.Stop()

	if chunks != 1 {
		t.Errorf("chunks = %d, want 1", chunks)
	}
	if len(levels) != 1 || levels[0] != 0 {
		t.Errorf("levels = %v, want [0]", levels)
	}
}
