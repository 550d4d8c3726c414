//go:build linux

package beep

import (
	"math"
	"sync"

	"github.com/jfreymuth/pulse"
	"github.com/jfreymuth/pulse/proto"
)

type cue int

const (
	cueStart cue = iota
	cueEnd
	cueError
)

var (
	cues     map[cue][]int16
	cuesOnce sync.Once
)

func synth() {
	cues = map[cue][]int16{
		cueStart: tone(startFreq, 0.2, startVolume, startDecay),
		cueEnd:   tone(endFreq, 0.2, endVolume, endDecay),
		cueError: doubleTone(errorFreq, 0.08, 0.05, errorVolume, errorDecay),
	}
}

// tone synthesizes a mono sine burst with exponential decay and a short
// linear attack to avoid a click at onset.
func tone(freq, duration, volume, decay float64) []int16 {
	n := int(sampleRate * duration)
	attack := sampleRate / 200 // 5ms
	out := make([]int16, n)
	for i := range out {
		t := float64(i) / sampleRate
		env := math.Exp(-t * decay)
		if i < attack {
			env *= float64(i) / float64(attack)
		}
		out[i] = int16(math.Sin(2*math.Pi*freq*t) * 32767 * volume * env)
	}
	return out
}

func doubleTone(freq, dur, gap, volume, decay float64) []int16 {
	one := tone(freq, dur, volume, decay)
	out := make([]int16, 0, 2*len(one)+int(sampleRate*gap))
	out = append(out, one...)
	out = append(out, make([]int16, int(sampleRate*gap))...)
	return append(out, one...)
}

func play(c cue) {
	samples := cues[c]
	if len(samples) == 0 {
		return
	}
	client, err := pulse.NewClient()
	if err != nil {
		return
	}
	defer client.Close()

	pos := 0
	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		if pos >= len(samples) {
			return 0, pulse.EndOfData
		}
		n := copy(buf, samples[pos:])
		pos += n
		return n, nil
	})
	stream, err := client.NewPlayback(reader,
		pulse.PlaybackMono,
		pulse.PlaybackSampleRate(sampleRate),
		pulse.PlaybackLatency(0.1),
		pulse.PlaybackRawOption(func(p *proto.CreatePlaybackStream) {
			p.ChannelVolumes = proto.ChannelVolumes{uint32(proto.VolumeNorm)}
		}),
	)
	if err != nil {
		return
	}
	stream.Start()
	stream.Drain()
	stream.Stop()
	stream.Close()
}

func Init() {
	cuesOnce.Do(synth)
}

func playCue(c cue) {
	if disabled {
		return
	}
	cuesOnce.Do(synth)
	go play(c)
}

func PlayStart() { playCue(cueStart) }
func PlayEnd()   { playCue(cueEnd) }
func PlayError() { playCue(cueError) }
