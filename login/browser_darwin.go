//go:build darwin

package login

import "os/exec"

func openInBrowser(url string) error {
	return exec.Command("open", url).Start()
}
