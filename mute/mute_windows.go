//go:build windows

package mute

import (
	"sync"

	"github.com/micmonay/keybd_event"
)

// keyController drives the VK_VOLUME_MUTE media key. Windows only exposes a
// toggle this way, so the controller tracks what it believes the state is and
// only sends the keystroke when a transition is needed.
type keyController struct {
	mu    sync.Mutex
	muted bool
}

func New() Controller {
	return &keyController{}
}

func (c *keyController) press() error {
	kb, err := keybd_event.NewKeyBonding()
	if err != nil {
		return err
	}
	kb.SetKeys(keybd_event.VK_VOLUME_MUTE)
	return kb.Launching()
}

func (c *keyController) Mute() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.muted {
		return nil
	}
	if err := c.press(); err != nil {
		return err
	}
	c.muted = true
	return nil
}

func (c *keyController) Unmute() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.muted {
		return nil
	}
	if err := c.press(); err != nil {
		return err
	}
	c.muted = false
	return nil
}
