//go:build linux

package mute

import (
	"fmt"
	"os/exec"
)

type pactlController struct{}

func New() Controller {
	return pactlController{}
}

func (pactlController) set(on string) error {
	out, err := exec.Command("pactl", "set-sink-mute", "@DEFAULT_SINK@", on).CombinedOutput()
	if err != nil {
		return fmt.Errorf("pactl set-sink-mute: %v (%s)", err, out)
	}
	return nil
}

func (c pactlController) Mute() error   { return c.set("1") }
func (c pactlController) Unmute() error { return c.set("0") }
