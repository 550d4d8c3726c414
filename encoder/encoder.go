package encoder

import "fmt"

const (
	SampleRate    = 16000
	Channels      = 1
	BitsPerSample = 16
	BlockSize     = 4096
)

type Encoder interface {
	EncodeBlock(block []int16) error
	Close() error
	Bytes() []byte
	TotalFrames() uint64
}

// New returns an encoder for the given audio format ("wav" or "flac").
func New(format string) (Encoder, error) {
	switch format {
	case "wav":
		return NewWav()
	case "flac":
		return NewFlac()
	default:
		return nil, fmt.Errorf("unknown format %q (use wav or flac)", format)
	}
}
