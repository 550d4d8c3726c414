//go:build !darwin

package inject

import "github.com/micmonay/keybd_event"

// Ctrl+V
func pasteChord(kb *keybd_event.KeyBonding) {
	kb.HasCTRL(true)
}
