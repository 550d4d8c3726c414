package mute

import "sync"

// FakeController records mute/unmute calls for tests.
type FakeController struct {
	mu      sync.Mutex
	Mutes   int
	Unmutes int
	Err     error
}

func NewFake() *FakeController {
	return &FakeController{}
}

func (f *FakeController) Mute() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.Mutes++
	return nil
}

func (f *FakeController) Unmute() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.Unmutes++
	return nil
}

func (f *FakeController) Counts() (mutes, unmutes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Mutes, f.Unmutes
}
