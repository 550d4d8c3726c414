// Package mute turns system audio output off while a record-and-mute session
// is running, so speaker playback does not bleed into the microphone.
// All operations are best-effort: failures are reported but never fatal.
package mute

type Controller interface {
	Mute() error
	Unmute() error
}
