package session

import "time"

const (
	tickInterval        = 100 * time.Millisecond
	silenceWarnAfter    = 8 * time.Second
	silenceAutoCloseDur = 30 * time.Second
	speechMinRatio      = 0.10
	speechClearRatio    = 0.25 // higher threshold to clear warning (hysteresis)
)

type silenceEvent int

const (
	silenceNone      silenceEvent = iota
	silenceWarn                   // no voice detected
	silenceWarnClear              // speech resumed after warning
	silenceRepeat                 // repeat warning (every 8s)
	silenceAutoClose              // 30s auto-close (toggle-like sessions)
)

// silenceMonitor watches per-tick speech flags and decides when to warn
// the user that nothing is being picked up, and when to auto-close a
// toggle session left running in silence.
type silenceMonitor struct {
	warnAt   int
	windowSz int

	isToggle bool

	ticks       int
	window      []bool
	speechCount int
	warned      bool
	lastWarn    int
}

func newSilenceMonitor(isToggle bool) *silenceMonitor {
	windowSz := int(silenceAutoCloseDur / tickInterval)
	return &silenceMonitor{
		warnAt:   int(silenceWarnAfter / tickInterval),
		windowSz: windowSz,
		isToggle: isToggle,
		window:   make([]bool, windowSz),
	}
}

// push records one tick's speech flag into the ring buffer, keeping
// speechCount in sync with what the full window holds.
func (m *silenceMonitor) push(hasSpeech bool) {
	idx := m.ticks % m.windowSz
	if m.ticks >= m.windowSz && m.window[idx] {
		m.speechCount--
	}
	m.window[idx] = hasSpeech
	if hasSpeech {
		m.speechCount++
	}
	m.ticks++
}

// recentRatio returns the speech fraction over the most recent n ticks.
func (m *silenceMonitor) recentRatio(n int) float64 {
	if m.ticks < n {
		n = m.ticks
	}
	if n == 0 {
		return 1.0
	}
	count := 0
	for i := 0; i < n; i++ {
		if m.window[(m.ticks-1-i+m.windowSz)%m.windowSz] {
			count++
		}
	}
	return float64(count) / float64(n)
}

// fullWindowSilent reports whether the whole auto-close window has
// stayed below the speech threshold.
func (m *silenceMonitor) fullWindowSilent() bool {
	return m.ticks >= m.windowSz &&
		float64(m.speechCount)/float64(m.windowSz) < speechMinRatio
}

func (m *silenceMonitor) Tick(hasSpeech bool) silenceEvent {
	m.push(hasSpeech)

	recent := m.recentRatio(m.warnAt)
	switch {
	case !m.warned && m.ticks >= m.warnAt && recent < speechMinRatio:
		m.warned = true
		m.lastWarn = m.ticks
		return silenceWarn
	case m.warned && recent >= speechClearRatio:
		m.warned = false
		return silenceWarnClear
	}

	if !m.isToggle {
		return silenceNone
	}

	// Auto-close wins over a repeat warning on the same tick.
	if m.fullWindowSilent() {
		return silenceAutoClose
	}
	if m.warned && m.ticks-m.lastWarn >= m.warnAt {
		m.lastWarn = m.ticks
		return silenceRepeat
	}
	return silenceNone
}
