package inject

import (
	"errors"
	"testing"
	"time"
)

// stubClipboard swaps the clipboard and paste functions for the duration
// of a test and returns the in-memory clipboard cell.
func stubClipboard(t *testing.T, pasteErr error) (*string, *int) {
	t.Helper()

	content := ""
	pastes := 0

	origRead, origWrite, origPaste := readClipboard, writeClipboard, sendPaste
	readClipboard = func() (string, error) { return content, nil }
	writeClipboard = func(s string) error { content = s; return nil }
	sendPaste = func() error { pastes++; return pasteErr }
	t.Cleanup(func() {
		readClipboard, writeClipboard, sendPaste = origRead, origWrite, origPaste
	})
	return &content, &pastes
}

func TestInjectCopyOnly(t *testing.T) {
	content, pastes := stubClipboard(t, nil)
	*content = "old"

	inj := New(false)
	if err := inj.Inject("hello world"); err != nil {
		t.Fatalf("Inject: %v", err)
	}
	if *content != "hello world" {
		t.Errorf("clipboard = %q, want %q", *content, "hello world")
	}
	if *pastes != 0 {
		t.Errorf("pastes = %d, want 0", *pastes)
	}
}

func TestInjectWithPaste(t *testing.T) {
	content, pastes := stubClipboard(t, nil)
	*content = "old"

	inj := New(true)
	inj.RestoreDelay = 0
	if err := inj.Inject("hello"); err != nil {
		t.Fatalf("Inject: %v", err)
	}
	if *pastes != 1 {
		t.Errorf("pastes = %d, want 1", *pastes)
	}
	if *content != "hello" {
		t.Errorf("clipboard = %q, want %q", *content, "hello")
	}
}

func TestSetAutoPaste(t *testing.T) {
	_, pastes := stubClipboard(t, nil)

	inj := New(false)
	inj.RestoreDelay = 0
	inj.SetAutoPaste(true)
	if err := inj.Inject("hello"); err != nil {
		t.Fatalf("Inject: %v", err)
	}
	if *pastes != 1 {
		t.Errorf("pastes = %d, want 1", *pastes)
	}

	inj.SetAutoPaste(false)
	if err := inj.Inject("again"); err != nil {
		t.Fatalf("Inject: %v", err)
	}
	if *pastes != 1 {
		t.Errorf("pastes = %d, want still 1", *pastes)
	}
}

func TestInjectRestoresPreviousClipboard(t *testing.T) {
	content, _ := stubClipboard(t, nil)
	*content = "old"

	inj := New(true)
	inj.RestoreDelay = 10 * time.Millisecond
	if err := inj.Inject("new"); err != nil {
		t.Fatalf("Inject: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for *content != "old" {
		if time.Now().After(deadline) {
			t.Fatalf("clipboard = %q, want restored %q", *content, "old")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestInjectPasteFailure(t *testing.T) {
	_, _ = stubClipboard(t, errors.New("no uinput"))

	inj := New(true)
	err := inj.Inject("hello")
	if !errors.Is(err, ErrInjection) {
		t.Fatalf("err = %v, want ErrInjection", err)
	}
}
