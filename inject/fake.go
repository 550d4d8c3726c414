package inject

import "sync"

// FakeInjector records injected text for tests.
type FakeInjector struct {
	mu    sync.Mutex
	Texts []string
	Err   error
}

func (f *FakeInjector) Inject(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.Texts = append(f.Texts, text)
	return nil
}

// Injected returns a copy of all texts injected so far.
func (f *FakeInjector) Injected() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.Texts))
	copy(out, f.Texts)
	return out
}
