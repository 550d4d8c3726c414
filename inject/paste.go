package inject

import (
	"sync"

	"github.com/micmonay/keybd_event"
)

var (
	kb     keybd_event.KeyBonding
	kbOnce sync.Once
	kbErr  error
)

// paste sends the platform paste chord to the focused window.
func paste() error {
	kbOnce.Do(func() {
		kb, kbErr = keybd_event.NewKeyBonding()
	})
	if kbErr != nil {
		return kbErr
	}
	kb.SetKeys(keybd_event.VK_V)
	pasteChord(&kb)
	return kb.Launching()
}
