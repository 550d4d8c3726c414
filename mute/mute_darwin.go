//go:build darwin

package mute

import (
	"fmt"
	"os/exec"
)

type osascriptController struct{}

func New() Controller {
	return osascriptController{}
}

func (osascriptController) run(script string) error {
	out, err := exec.Command("osascript", "-e", script).CombinedOutput()
	if err != nil {
		return fmt.Errorf("osascript: %v (%s)", err, out)
	}
	return nil
}

func (c osascriptController) Mute() error {
	return c.run("set volume with output muted")
}

func (c osascriptController) Unmute() error {
	return c.run("set volume without output muted")
}
