// Package inject places transcribed text into the focused application.
// The default path copies the text to the system clipboard and emits a
// paste keystroke; copy-only mode leaves the text on the clipboard for
// the user to paste manually.
package inject

import (
	"errors"
	"fmt"
	"sync"
	"time"

	cb "github.com/atotto/clipboard"
)

// ErrInjection marks failures to deliver text to the target application.
var ErrInjection = errors.New("text injection failed")

// Injector delivers final text to the user's focused application.
type Injector interface {
	Inject(text string) error
}

// Indirection for tests; the real paths hit the OS clipboard and
// synthesize keystrokes.
var (
	readClipboard  = cb.ReadAll
	writeClipboard = cb.WriteAll
	sendPaste      = paste
)

// ClipboardInjector copies text to the clipboard and optionally pastes it.
type ClipboardInjector struct {
	// RestoreDelay is how long after pasting the previous clipboard
	// contents are put back. Zero disables restoration.
	RestoreDelay time.Duration

	mu        sync.Mutex
	autoPaste bool
}

func New(autoPaste bool) *ClipboardInjector {
	return &ClipboardInjector{
		autoPaste:    autoPaste,
		RestoreDelay: 600 * time.Millisecond,
	}
}

// SetAutoPaste switches between paste and copy-only delivery. Safe to
// call while a session is in flight; the next Inject sees the change.
func (c *ClipboardInjector) SetAutoPaste(on bool) {
	c.mu.Lock()
	c.autoPaste = on
	c.mu.Unlock()
}

func (c *ClipboardInjector) AutoPaste() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.autoPaste
}

func (c *ClipboardInjector) Inject(text string) error {
	prev, prevErr := readClipboard()

	if err := writeClipboard(text); err != nil {
		return fmt.Errorf("%w: copying to clipboard: %v", ErrInjection, err)
	}

	if !c.AutoPaste() {
		return nil
	}

	if err := sendPaste(); err != nil {
		return fmt.Errorf("%w: sending paste keystroke: %v", ErrInjection, err)
	}

	// Give the target application time to consume the paste, then put
	// the user's old clipboard back. Skipped if reading it failed or
	// the clipboard changed in the meantime.
	if prevErr == nil && c.RestoreDelay > 0 {
		go restoreAfter(c.RestoreDelay, text, prev)
	}
	return nil
}

func restoreAfter(delay time.Duration, injected, prev string) {
	time.Sleep(delay)
	current, err := readClipboard()
	if err != nil || current != injected {
		return
	}
	_ = writeClipboard(prev)
}
