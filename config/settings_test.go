package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	store := &Store{Dir: t.TempDir()}
	s, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := DefaultSettings()
	if s != want {
		t.Errorf("settings = %+v, want defaults %+v", s, want)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := &Store{Dir: t.TempDir()}

	s := DefaultSettings()
	s.Hotkey = "alt+space"
	s.STTProvider = "groq"
	s.Language = "ja"
	s.AutoPaste = false
	s.Token = "tok-1"

	if err := store.Save(s); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != s {
		t.Errorf("loaded = %+v, want %+v", got, s)
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, settingsFile)
	if err := os.WriteFile(path, []byte(`{"stt_provider":"openai"}`), 0o600); err != nil {
		t.Fatal(err)
	}

	store := &Store{Dir: dir}
	s, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.STTProvider != "openai" {
		t.Errorf("STTProvider = %q", s.STTProvider)
	}
	if s.Hotkey != DefaultSettings().Hotkey {
		t.Errorf("Hotkey = %q, want default", s.Hotkey)
	}
}

func TestLoadCorruptFileFallsBack(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, settingsFile), []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	store := &Store{Dir: dir}
	s, err := store.Load()
	if err == nil {
		t.Fatal("expected error for corrupt file")
	}
	if s != DefaultSettings() {
		t.Errorf("settings = %+v, want defaults", s)
	}
}

func TestUpdate(t *testing.T) {
	store := &Store{Dir: t.TempDir()}

	got, err := store.Update(func(s *Settings) { s.SoundCues = false })
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.SoundCues {
		t.Error("SoundCues still true after update")
	}

	reloaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if reloaded.SoundCues {
		t.Error("update not persisted")
	}
}
