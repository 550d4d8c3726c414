package session

import "testing"

func feedN(m *silenceMonitor, speech bool, n int) silenceEvent {
	var last silenceEvent
	for i := 0; i < n; i++ {
		last = m.Tick(speech)
	}
	return last
}

func TestSilenceWarnAfter8s(t *testing.T) {
	m := newSilenceMonitor(false)
	for i := 0; i < 79; i++ {
		if ev := m.Tick(false); ev != silenceNone {
			t.Fatalf("unexpected event at tick %d: %d", i, ev)
		}
	}
	if ev := m.Tick(false); ev != silenceWarn {
		t.Fatalf("expected warn at tick 80, got %d", ev)
	}
}

func TestSilenceWarnClearsOnSpeech(t *testing.T) {
	m := newSilenceMonitor(false)
	feedN(m, false, 80)

	for i := 0; i < 80; i++ {
		if ev := m.Tick(true); ev == silenceWarnClear {
			return
		}
	}
	t.Fatal("expected clear after sustained speech")
}

func TestNoWarnDuringSpeech(t *testing.T) {
	m := newSilenceMonitor(false)
	for i := 0; i < 200; i++ {
		if ev := m.Tick(true); ev == silenceWarn {
			t.Fatalf("unexpected warn during speech at tick %d", i)
		}
	}
}

func TestToggleRepeatWarning(t *testing.T) {
	m := newSilenceMonitor(true)
	feedN(m, false, 80)

	got := 0
	for i := 0; i < 160; i++ {
		if ev := m.Tick(false); ev == silenceRepeat {
			got++
		}
	}
	if got != 2 {
		t.Errorf("repeat warnings = %d, want 2", got)
	}
}

func TestHoldNeverRepeatsOrAutoCloses(t *testing.T) {
	m := newSilenceMonitor(false)
	feedN(m, false, 80)

	for i := 0; i < 400; i++ {
		switch ev := m.Tick(false); ev {
		case silenceRepeat, silenceAutoClose:
			t.Fatalf("hold session got toggle-only event %d at tick %d", ev, i)
		}
	}
}

func TestToggleAutoCloseAfter30s(t *testing.T) {
	m := newSilenceMonitor(true)
	for i := 0; i < 300; i++ {
		if ev := m.Tick(false); ev == silenceAutoClose {
			if i < 299 {
				t.Fatalf("auto-close too early at tick %d", i+1)
			}
			return
		}
	}
	t.Fatal("expected auto-close at 30s")
}

func TestSpeechPreventsAutoClose(t *testing.T) {
	m := newSilenceMonitor(true)
	// 20% speech keeps the session alive indefinitely.
	for i := 0; i < 600; i++ {
		if ev := m.Tick(i%5 == 0); ev == silenceAutoClose {
			t.Fatalf("auto-close despite speech at tick %d", i)
		}
	}
}
