package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	appDirName   = "ChottoVoice"
	settingsFile = "settings.json"
)

// Settings is everything the user can change at runtime. It is persisted
// as JSON after every change and reloaded on startup.
type Settings struct {
	// Hotkey is the binding string, e.g. "ctrl+shift+space".
	Hotkey string `json:"hotkey"`

	// STTProvider picks the transcription backend: relay, openai or groq.
	STTProvider string `json:"stt_provider"`
	// Language hints the spoken language to the provider; empty means
	// autodetect.
	Language string `json:"language"`
	// Format is the upload container, wav or flac.
	Format string `json:"format"`

	// PostProcProvider enables LLM post-processing when non-empty:
	// openai or anthropic.
	PostProcProvider string `json:"postproc_provider"`
	PostProcModel    string `json:"postproc_model"`
	PostProcMode     string `json:"postproc_mode"`
	PostProcPrompt   string `json:"postproc_prompt,omitempty"`

	// AutoPaste sends the paste keystroke after copying; when false the
	// text only lands on the clipboard.
	AutoPaste bool `json:"auto_paste"`
	// SoundCues plays the start and stop ticks.
	SoundCues bool `json:"sound_cues"`
	// MuteDuringDictation silences system output for double-tap sessions.
	MuteDuringDictation bool `json:"mute_during_dictation"`

	// Device is the preferred capture device name; empty means default.
	Device string `json:"device,omitempty"`

	// Token is the relay account token from the browser login.
	Token string `json:"token,omitempty"`
}

func DefaultSettings() Settings {
	return Settings{
		Hotkey:              "ctrl+shift+space",
		STTProvider:         "relay",
		Format:              "flac",
		PostProcMode:        "cleanup",
		AutoPaste:           true,
		SoundCues:           true,
		MuteDuringDictation: true,
	}
}

// Store reads and writes the settings file. Dir overrides the platform
// config directory, mainly for tests.
type Store struct {
	Dir string
}

func (s *Store) dir() (string, error) {
	if s.Dir != "" {
		return s.Dir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locating config directory: %w", err)
	}
	return filepath.Join(base, appDirName), nil
}

// Path returns the settings file location.
func (s *Store) Path() (string, error) {
	dir, err := s.dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, settingsFile), nil
}

// Load returns the saved settings, or defaults when no file exists yet.
// Unknown fields are dropped; missing fields keep their defaults.
func (s *Store) Load() (Settings, error) {
	settings := DefaultSettings()

	path, err := s.Path()
	if err != nil {
		return settings, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return settings, nil
	}
	if err != nil {
		return settings, fmt.Errorf("reading settings: %w", err)
	}
	if err := json.Unmarshal(data, &settings); err != nil {
		return DefaultSettings(), fmt.Errorf("parsing %s: %w", path, err)
	}
	return settings, nil
}

// Save writes settings atomically via a temp file rename.
func (s *Store) Save(settings Settings) error {
	dir, err := s.dir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(dir, settingsFile+".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(dir, settingsFile))
}

// Update loads, applies fn and saves in one step.
func (s *Store) Update(fn func(*Settings)) (Settings, error) {
	settings, err := s.Load()
	if err != nil {
		return settings, err
	}
	fn(&settings)
	if err := s.Save(settings); err != nil {
		return settings, err
	}
	return settings, nil
}
