package postproc

import (
	"context"
	"sync"
)

// FakeProcessor returns a fixed rewrite or error, recording calls.
type FakeProcessor struct {
	Text string
	Err  error

	mu    sync.Mutex
	calls []string
	modes []Mode
}

func NewFakeProcessor(text string, err error) *FakeProcessor {
	return &FakeProcessor{Text: text, Err: err}
}

func (f *FakeProcessor) Name() string { return "fake" }

func (f *FakeProcessor) Process(_ context.Context, transcript string, mode Mode) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, transcript)
	f.modes = append(f.modes, mode)
	f.mu.Unlock()
	if f.Err != nil {
		return "", f.Err
	}
	return f.Text, nil
}

func (f *FakeProcessor) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *FakeProcessor) Modes() []Mode {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Mode, len(f.modes))
	copy(out, f.modes)
	return out
}
