//go:build !linux

package beep

import (
	"encoding/binary"
	"math"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
)

type cue int

const (
	cueStart cue = iota
	cueEnd
	cueError
)

var (
	malgoCtx *malgo.AllocatedContext
	device   *malgo.Device
	cues     map[cue][]byte
	cuesOnce sync.Once

	// Playback position, read from the device callback.
	playBuf atomic.Pointer[[]byte]
	playPos atomic.Uint32
	playMu  sync.Mutex
)

func synth() {
	var err error
	malgoCtx, err = malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return
	}

	cues = map[cue][]byte{
		cueStart: tone(startFreq, 0.03, startVolume, startDecay),
		cueEnd:   tone(endFreq, 0.05, endVolume, endDecay),
		cueError: doubleTone(errorFreq, 0.08, 0.05, errorVolume, errorDecay),
	}

	if err := openDevice(); err != nil {
		malgoCtx.Uninit()
		malgoCtx = nil
	}
}

func openDevice() error {
	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.Playback.Format = malgo.FormatS16
	config.Playback.Channels = 1
	config.SampleRate = sampleRate

	var err error
	device, err = malgo.InitDevice(malgoCtx.Context, config, malgo.DeviceCallbacks{
		Data: feedDevice,
	})
	return err
}

func feedDevice(pOutput, _ []byte, frameCount uint32) {
	clear(pOutput)

	buf := playBuf.Load()
	if buf == nil {
		return
	}
	pos := playPos.Load()
	remaining := uint32(len(*buf)) - pos
	if remaining == 0 {
		playBuf.Store(nil)
		return
	}

	n := frameCount * 2
	if n > remaining {
		n = remaining
	}
	copy(pOutput[:n], (*buf)[pos:pos+n])
	playPos.Store(pos + n)
}

// tone synthesizes a mono sine burst with exponential decay and a short
// linear attack to avoid a click at onset.
func tone(freq, duration, volume, decay float64) []byte {
	n := int(sampleRate * duration)
	attack := sampleRate / 200 // 5ms
	out := make([]byte, n*2)
	for i := 0; i < n; i++ {
		t := float64(i) / sampleRate
		env := math.Exp(-t * decay)
		if i < attack {
			env *= float64(i) / float64(attack)
		}
		s := int16(math.Sin(2*math.Pi*freq*t) * 32767 * volume * env)
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

func doubleTone(freq, dur, gap, volume, decay float64) []byte {
	one := tone(freq, dur, volume, decay)
	out := make([]byte, 0, 2*len(one)+int(sampleRate*gap)*2)
	out = append(out, one...)
	out = append(out, make([]byte, int(sampleRate*gap)*2)...)
	return append(out, one...)
}

func play(c cue) {
	samples := cues[c]
	if malgoCtx == nil || len(samples) == 0 {
		return
	}

	playMu.Lock()
	defer playMu.Unlock()

	if device == nil {
		return
	}

	device.Stop()
	playPos.Store(0)
	playBuf.Store(&samples)

	if err := device.Start(); err != nil {
		// Recreate the device; handles coming back from system sleep.
		device.Uninit()
		if err := openDevice(); err != nil {
			playBuf.Store(nil)
			return
		}
		if err := device.Start(); err != nil {
			playBuf.Store(nil)
		}
	}
}

func Init() {
	cuesOnce.Do(synth)
}

func playCue(c cue) {
	if disabled {
		return
	}
	cuesOnce.Do(synth)
	play(c)
}

func PlayStart() { playCue(cueStart) }
func PlayEnd()   { playCue(cueEnd) }
func PlayError() { playCue(cueError) }
