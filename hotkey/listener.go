package hotkey

import (
	"time"
)

// IntentKind tags the session intents derived from raw key events.
type IntentKind int

const (
	// IntentBegin starts a hold-to-record session. Emitted once a press has
	// been held past the hold threshold; releasing the key emits IntentEnd.
	IntentBegin IntentKind = iota
	// IntentToggleBegin starts a record-and-mute session, triggered by two
	// taps inside the double-tap window. The next tap emits IntentEnd.
	IntentToggleBegin
	// IntentEnd stops whichever session is running.
	IntentEnd
)

func (k IntentKind) String() string {
	switch k {
	case IntentBegin:
		return "begin"
	case IntentToggleBegin:
		return "toggle-begin"
	case IntentEnd:
		return "end"
	default:
		return "unknown"
	}
}

type Intent struct {
	Kind IntentKind
	At   time.Time
}

type ListenerConfig struct {
	// DoubleTapWindow is the maximum gap between two taps that still counts
	// as a double tap.
	DoubleTapWindow time.Duration
	// HoldThreshold is how long a press must last before it counts as
	// hold-to-record rather than a tap.
	HoldThreshold time.Duration
	// Debounce drops key-down events arriving implausibly fast after the
	// previous one (OS key-repeat).
	Debounce time.Duration
}

func (c *ListenerConfig) applyDefaults() {
	if c.DoubleTapWindow == 0 {
		c.DoubleTapWindow = 300 * time.Millisecond
	}
	if c.HoldThreshold == 0 {
		c.HoldThreshold = 200 * time.Millisecond
	}
	if c.Debounce == 0 {
		c.Debounce = 30 * time.Millisecond
	}
}

// Listener turns raw keydown/keyup pairs into session intents. It owns a
// single goroutine; the intent channel is unbuffered so the consumer's pace
// serializes delivery.
type Listener struct {
	intents chan Intent
	stop    chan struct{}
}

func NewListener(hk Hotkey, cfg ListenerConfig) *Listener {
	cfg.applyDefaults()
	l := &Listener{
		intents: make(chan Intent),
		stop:    make(chan struct{}),
	}
	go l.run(hk, cfg)
	return l
}

func (l *Listener) Intents() <-chan Intent { return l.intents }

func (l *Listener) Close() { close(l.stop) }

type listenerState int

const (
	lsIdle listenerState = iota
	lsToggleRecording
)

func (l *Listener) emit(kind IntentKind) bool {
	select {
	case l.intents <- Intent{Kind: kind, At: time.Now()}:
		return true
	case <-l.stop:
		return false
	}
}

func (l *Listener) run(hk Hotkey, cfg ListenerConfig) {
	state := lsIdle
	var lastTap time.Time  // release time of the most recent short tap
	var lastDown time.Time // for key-repeat debounce

	keydown := func() bool {
		for {
			select {
			case <-hk.Keydown():
				now := time.Now()
				if now.Sub(lastDown) < cfg.Debounce {
					continue
				}
				lastDown = now
				return true
			case <-l.stop:
				return false
			}
		}
	}
	keyup := func() bool {
		select {
		case <-hk.Keyup():
			return true
		case <-l.stop:
			return false
		}
	}

	for {
		switch state {
		case lsIdle:
			if !keydown() {
				return
			}
			pressAt := time.Now()
			holdTimer := time.NewTimer(cfg.HoldThreshold)
			select {
			case <-holdTimer.C:
				// Held past the threshold: hold-to-record.
				if !l.emit(IntentBegin) {
					return
				}
				if !keyup() {
					return
				}
				if !l.emit(IntentEnd) {
					return
				}
				lastTap = time.Time{}
			case <-hk.Keyup():
				if !holdTimer.Stop() {
					<-holdTimer.C
				}
				release := time.Now()
				if !lastTap.IsZero() && pressAt.Sub(lastTap) <= cfg.DoubleTapWindow {
					// Second tap inside the window: toggle session.
					lastTap = time.Time{}
					if !l.emit(IntentToggleBegin) {
						return
					}
					state = lsToggleRecording
				} else {
					lastTap = release
				}
			case <-l.stop:
				return
			}

		case lsToggleRecording:
			// Any further press, short or long, stops the toggle session.
			if !keydown() {
				return
			}
			if !keyup() {
				return
			}
			if !l.emit(IntentEnd) {
				return
			}
			state = lsIdle

		default:
			state = lsIdle
		}
	}
}
