// Package beep plays short audio cues for recording start, stop and
// error conditions. Cues are synthesized sine ticks, not asset files.
package beep

var disabled bool

// Disable turns all cues off, e.g. when the user unchecks sound cues.
func Disable() { disabled = true }

// Enable turns cues back on.
func Enable() { disabled = false }

const (
	sampleRate = 44100

	// Start cue: high pitch, short
	startFreq   = 1200
	startVolume = 0.5
	startDecay  = 60

	// End cue: medium pitch, slightly longer
	endFreq   = 900
	endVolume = 0.5
	endDecay  = 40

	// Error cue: low pitch double-beep
	errorFreq   = 350
	errorVolume = 0.6
	errorDecay  = 30
)
