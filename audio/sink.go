package audio

import (
	"encoding/binary"
	"math"
	"sync"
)

// Recorder accumulates PCM frames from a capture device between Start and
// Stop. It holds the only reference to the buffer until Stop hands it off;
// a second Stop returns an empty buffer.
type Recorder struct {
	device CaptureDevice

	mu     sync.Mutex
	buf    []byte
	frames uint64
	active bool

	onLevel func(rms float64)
	onChunk func(pcm []byte)
}

func NewRecorder(device CaptureDevice) *Recorder {
	return &Recorder{device: device}
}

// OnLevel registers a callback receiving the RMS level of each chunk,
// normalized to [0,1]. Called from the capture thread.
func (r *Recorder) OnLevel(fn func(rms float64)) { r.onLevel = fn }

// OnChunk registers a callback receiving each raw PCM chunk, e.g. for VAD.
// Called from the capture thread.
func (r *Recorder) OnChunk(fn func(pcm []byte)) { r.onChunk = fn }

func (r *Recorder) DeviceName() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.device.DeviceName()
}

// SetDevice swaps the capture device between sessions. Refused while a
// capture is active so a running session keeps its device.
func (r *Recorder) SetDevice(device CaptureDevice) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active {
		return false
	}
	r.device = device
	return true
}

func (r *Recorder) Start() error {
	r.mu.Lock()
	if r.active {
		r.mu.Unlock()
		return nil
	}
	r.buf = nil
	r.frames = 0
	r.active = true
	dev := r.device
	r.mu.Unlock()

	dev.SetCallback(func(data []byte, frameCount uint32) {
		r.mu.Lock()
		if !r.active {
			r.mu.Unlock()
			return
		}
		r.buf = append(r.buf, data...)
		r.frames += uint64(frameCount)
		r.mu.Unlock()

		if r.onChunk != nil && len(data) > 0 {
			chunk := make([]byte, len(data))
			copy(chunk, data)
			r.onChunk(chunk)
		}
		if r.onLevel != nil && len(data) > 1 {
			r.onLevel(rmsLevel(data))
		}
	})

	if err := dev.Start(); err != nil {
		dev.ClearCallback()
		r.mu.Lock()
		r.active = false
		r.mu.Unlock()
		return err
	}
	return nil
}

// Stop closes the device and returns the accumulated buffer with the frame
// count. Idempotent: calling Stop while idle yields a zero-length buffer.
func (r *Recorder) Stop() (pcm []byte, frames uint64) {
	r.mu.Lock()
	if !r.active {
		r.mu.Unlock()
		return nil, 0
	}
	r.active = false
	dev := r.device
	r.mu.Unlock()

	dev.Stop()
	dev.ClearCallback()

	r.mu.Lock()
	pcm, frames = r.buf, r.frames
	r.buf = nil
	r.frames = 0
	r.mu.Unlock()
	return pcm, frames
}

func rmsLevel(data []byte) float64 {
	var sumSquares float64
	for i := 0; i+1 < len(data); i += 2 {
		sample := int16(binary.LittleEndian.Uint16(data[i:]))
		normalized := float64(sample) / 32768.0
		sumSquares += normalized * normalized
	}
	return math.Sqrt(sumSquares / float64(len(data)/2))
}
