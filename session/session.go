// Package session owns the dictation lifecycle. A single controller
// goroutine serializes every state transition; at most one session is
// live at a time, and slow work (transcription, post-processing,
// injection) runs in workers that report back tagged with the session id
// so stale results are discarded.
package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/halz/chotto-voice/postproc"
	"github.com/halz/chotto-voice/transcriber"
)

// State is where a session is in its lifecycle.
type State int

const (
	StateIdle State = iota
	StateRecording
	StateTranscribing
	StatePostProcessing
	StateInjecting
	StateCancelled
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateTranscribing:
		return "transcribing"
	case StatePostProcessing:
		return "post_processing"
	case StateInjecting:
		return "injecting"
	case StateCancelled:
		return "cancelled"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Trigger records how a session was started.
type Trigger string

const (
	// TriggerHold is push-to-talk: recording ends when the key is released.
	TriggerHold Trigger = "hold"
	// TriggerToggle is started by a double tap and ends on the next tap.
	TriggerToggle Trigger = "double-tap"
	// TriggerTray is started from the tray menu; ends like a toggle.
	TriggerTray Trigger = "tray"
)

// toggleLike reports whether the session stays open until explicitly
// stopped, which enables muting and silence auto-close.
func (t Trigger) toggleLike() bool {
	return t == TriggerToggle || t == TriggerTray
}

// Session is one dictation from begin to final text. Values handed to
// observers are copies; the controller owns the live one.
type Session struct {
	ID        uuid.UUID
	Trigger   Trigger
	State     State
	StartedAt time.Time

	// Transcript is the raw provider output; FinalText is what was
	// injected, after any post-processing.
	Transcript string
	FinalText  string

	// Err is set when State is StateError.
	Err error
}

// Providers is the configuration snapshot a session runs with. It is
// captured once when the session begins; settings changed mid-session
// apply to the next one.
type Providers struct {
	Transcriber   transcriber.Transcriber
	PostProcessor postproc.Processor
	PostProcMode  postproc.Mode

	// Format is the upload container, wav or flac.
	Format string

	// Mute silences system audio output for toggle-like sessions.
	Mute bool
}

// Observer receives session progress. Calls come from the controller
// goroutine and must return quickly; forward to a channel if needed.
type Observer interface {
	StateChanged(s Session)
	AudioLevel(level float64)
	SilenceWarning(active bool)
}

// NopObserver discards all notifications.
type NopObserver struct{}

func (NopObserver) StateChanged(Session)  {}
func (NopObserver) AudioLevel(float64)    {}
func (NopObserver) SilenceWarning(bool)   {}
