//go:build windows

package log

import (
	"os"
	"path/filepath"
)

// getDefaultDir returns %LOCALAPPDATA%\ChottoVoice\logs.
func getDefaultDir() (string, error) {
	cache, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cache, "ChottoVoice", "logs"), nil
}
