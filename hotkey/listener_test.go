package hotkey

import (
	"testing"
	"time"
)

// fakeKeys feeds synthetic key transitions into a Listener.
type fakeKeys struct {
	down chan struct{}
	up   chan struct{}
}

func newFakeKeys() *fakeKeys {
	return &fakeKeys{
		down: make(chan struct{}, 1),
		up:   make(chan struct{}, 1),
	}
}

func (f *fakeKeys) Register() error          { return nil }
func (f *fakeKeys) Unregister()              {}
func (f *fakeKeys) Keydown() <-chan struct{} { return f.down }
func (f *fakeKeys) Keyup() <-chan struct{}   { return f.up }

func (f *fakeKeys) press()   { f.down <- struct{}{} }
func (f *fakeKeys) release() { f.up <- struct{}{} }

func testConfig() ListenerConfig {
	return ListenerConfig{
		DoubleTapWindow: 150 * time.Millisecond,
		HoldThreshold:   50 * time.Millisecond,
		Debounce:        5 * time.Millisecond,
	}
}

func waitIntent(t *testing.T, l *Listener, want IntentKind) {
	t.Helper()
	select {
	case in := <-l.Intents():
		if in.Kind != want {
			t.Fatalf("intent = %v, want %v", in.Kind, want)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for %v", want)
	}
}

func expectNoIntent(t *testing.T, l *Listener, d time.Duration) {
	t.Helper()
	select {
	case in := <-l.Intents():
		t.Fatalf("unexpected intent %v", in.Kind)
	case <-time.After(d):
	}
}

func TestListenerHold(t *testing.T) {
	fk := newFakeKeys()
	cfg := testConfig()
	l := NewListener(fk, cfg)
	defer l.Close()

	fk.press()
	waitIntent(t, l, IntentBegin) // arrives once hold threshold passes
	fk.release()
	waitIntent(t, l, IntentEnd)
}

func TestListenerSingleTapIsNoop(t *testing.T) {
	fk := newFakeKeys()
	cfg := testConfig()
	l := NewListener(fk, cfg)
	defer l.Close()

	fk.press()
	time.Sleep(10 * time.Millisecond) // well under hold threshold
	fk.release()

	expectNoIntent(t, l, cfg.DoubleTapWindow+100*time.Millisecond)
}

func TestListenerDoubleTapToggle(t *testing.T) {
	fk := newFakeKeys()
	cfg := testConfig()
	l := NewListener(fk, cfg)
	defer l.Close()

	fk.press()
	time.Sleep(10 * time.Millisecond)
	fk.release()
	time.Sleep(20 * time.Millisecond)
	fk.press()
	time.Sleep(10 * time.Millisecond)
	fk.release()
	waitIntent(t, l, IntentToggleBegin)

	// Next tap stops the toggle session.
	fk.press()
	time.Sleep(10 * time.Millisecond)
	fk.release()
	waitIntent(t, l, IntentEnd)
}

func TestListenerSlowTapsDoNotToggle(t *testing.T) {
	fk := newFakeKeys()
	cfg := testConfig()
	l := NewListener(fk, cfg)
	defer l.Close()

	fk.press()
	time.Sleep(10 * time.Millisecond)
	fk.release()

	time.Sleep(cfg.DoubleTapWindow + 50*time.Millisecond)

	fk.press()
	time.Sleep(10 * time.Millisecond)
	fk.release()

	expectNoIntent(t, l, cfg.DoubleTapWindow+100*time.Millisecond)
}

func TestListenerMultipleCycles(t *testing.T) {
	fk := newFakeKeys()
	cfg := testConfig()
	l := NewListener(fk, cfg)
	defer l.Close()

	// Cycle 1: hold.
	fk.press()
	waitIntent(t, l, IntentBegin)
	fk.release()
	waitIntent(t, l, IntentEnd)

	// Cycle 2: double tap.
	fk.press()
	time.Sleep(10 * time.Millisecond)
	fk.release()
	time.Sleep(20 * time.Millisecond)
	fk.press()
	time.Sleep(10 * time.Millisecond)
	fk.release()
	waitIntent(t, l, IntentToggleBegin)
	fk.press()
	time.Sleep(10 * time.Millisecond)
	fk.release()
	waitIntent(t, l, IntentEnd)

	// Cycle 3: hold again.
	fk.press()
	waitIntent(t, l, IntentBegin)
	fk.release()
	waitIntent(t, l, IntentEnd)
}

func TestParseBinding(t *testing.T) {
	for _, tt := range []struct {
		in      string
		wantKey string
		wantErr bool
	}{
		{"ctrl+shift+space", "space", false},
		{"alt+v", "v", false},
		{"Control+Shift+Space", "space", false},
		{"space", "space", false},
		{"ctrl+", "", true},
		{"hyper+space", "", true},
		{"ctrl+f13", "", true},
	} {
		b, err := ParseBinding(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseBinding(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseBinding(%q): %v", tt.in, err)
			continue
		}
		if b.Key != tt.wantKey {
			t.Errorf("ParseBinding(%q).Key = %q, want %q", tt.in, b.Key, tt.wantKey)
		}
	}
}
