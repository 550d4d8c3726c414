//go:build linux

package login

import "os/exec"

func openInBrowser(url string) error {
	return exec.Command("xdg-open", url).Start()
}
