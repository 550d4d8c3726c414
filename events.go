package main

import (
	"errors"
	"time"

	"github.com/halz/chotto-voice/audio"
	"github.com/halz/chotto-voice/beep"
	"github.com/halz/chotto-voice/inject"
	"github.com/halz/chotto-voice/session"
	"github.com/halz/chotto-voice/transcriber"
	"github.com/halz/chotto-voice/tray"
)

// uiObserver fans session progress out to the TUI, the tray and the
// sound cues. Calls arrive on the controller goroutine.
type uiObserver struct {
	app    *app
	recDur time.Duration
}

func (o *uiObserver) StateChanged(s session.Session) {
	tuiSend(SessionStateMsg{State: s.State.String(), Trigger: string(s.Trigger)})
	switch s.State {
	case session.StateRecording:
		tray.SetRecording(true)
		go beep.PlayStart()
	case session.StateTranscribing:
		o.recDur = time.Since(s.StartedAt)
		tray.SetRecording(false)
		tray.SetWarning(false)
		go beep.PlayEnd()
	case session.StateIdle:
		if s.FinalText != "" {
			tuiSend(TranscriptMsg{Text: s.FinalText})
			tray.SetLastRecording(o.recDur)
			o.app.kickCredits()
		}
	case session.StateCancelled:
		tray.SetRecording(false)
		tray.SetWarning(false)
	case session.StateError:
		tray.SetRecording(false)
		tray.SetWarning(false)
		if s.Err != nil {
			msg := userMessage(s.Err)
			tuiSend(ErrorMsg{Text: msg})
			tray.SetError(msg)
		}
		go beep.PlayError()
	}
}

func (o *uiObserver) AudioLevel(level float64) {
	tuiSend(AudioLevelMsg{Level: level})
}

func (o *uiObserver) SilenceWarning(active bool) {
	tray.SetWarning(active)
	tuiSend(WarningMsg{Active: active})
	if active {
		go beep.PlayError()
	}
}

// userMessage turns provider errors into something worth showing in a
// tray tooltip.
func userMessage(err error) string {
	switch {
	case errors.Is(err, transcriber.ErrAuth):
		return "Authentication failed. Check your API key or sign in again."
	case errors.Is(err, transcriber.ErrInsufficientCredits):
		return "Out of credits. Buy more from the tray menu."
	case errors.Is(err, transcriber.ErrRateLimited):
		return "Rate limited. Wait a moment and try again."
	case errors.Is(err, transcriber.ErrTimeout):
		return "Transcription timed out. Check your connection."
	case errors.Is(err, transcriber.ErrNetwork):
		return "Network error. Check your connection."
	case errors.Is(err, audio.ErrDeviceUnavailable):
		return "Microphone unavailable. Check the input device and permissions."
	case errors.Is(err, inject.ErrInjection):
		return "Could not paste. The text is still on the clipboard."
	}
	return err.Error()
}
