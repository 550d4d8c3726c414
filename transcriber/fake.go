package transcriber

import (
	"context"
	"sync"
	"time"
)

// FakeTranscriber returns a fixed transcript or error after an optional
// delay, recording each call for assertions.
type FakeTranscriber struct {
	Text  string
	Err   error
	Delay time.Duration

	mu    sync.Mutex
	calls int
	lang  string
}

func NewFake(text string, err error) *FakeTranscriber {
	return &FakeTranscriber{Text: text, Err: err}
}

func (f *FakeTranscriber) Name() string { return "fake" }

func (f *FakeTranscriber) SetLanguage(lang string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lang = lang
}

func (f *FakeTranscriber) GetLanguage() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lang
}

func (f *FakeTranscriber) Transcribe(ctx context.Context, audioData []byte, format string) (*Result, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.Delay > 0 {
		select {
		case <-time.After(f.Delay):
		case <-ctx.Done():
			return nil, classifyTransport("fake", ctx.Err())
		}
	}
	if f.Err != nil {
		return nil, f.Err
	}
	return &Result{Text: f.Text, CreditsRemaining: -1}, nil
}

// Calls reports how many times Transcribe has been invoked.
func (f *FakeTranscriber) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
