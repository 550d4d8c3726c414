package session

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/halz/chotto-voice/inject"
	"github.com/halz/chotto-voice/mute"
	"github.com/halz/chotto-voice/postproc"
	"github.com/halz/chotto-voice/transcriber"
)

type fakeRecorder struct {
	mu       sync.Mutex
	startErr error
	pcm      []byte
	frames   uint64
	starts   int
	stops    int
	onLevel  func(float64)
	onChunk  func([]byte)
}

func newFakeRecorder(seconds float64) *fakeRecorder {
	frames := uint64(seconds * 16000)
	return &fakeRecorder{
		pcm:    make([]byte, frames*2),
		frames: frames,
	}
}

func (f *fakeRecorder) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.starts++
	return nil
}

func (f *fakeRecorder) Stop() ([]byte, uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	return f.pcm, f.frames
}

func (f *fakeRecorder) OnLevel(fn func(rms float64)) { f.onLevel = fn }
func (f *fakeRecorder) OnChunk(fn func(pcm []byte))  { f.onChunk = fn }

func (f *fakeRecorder) Starts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts
}

func (f *fakeRecorder) Stops() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stops
}

// chanObserver forwards transitions to a channel for assertions.
type chanObserver struct {
	states   chan Session
	warnings chan bool
}

func newChanObserver() *chanObserver {
	return &chanObserver{
		states:   make(chan Session, 64),
		warnings: make(chan bool, 64),
	}
}

func (o *chanObserver) StateChanged(s Session) { o.states <- s }
func (o *chanObserver) AudioLevel(float64)     {}
func (o *chanObserver) SilenceWarning(active bool) {
	o.warnings <- active
}

func waitState(t *testing.T, obs *chanObserver, want State) Session {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case s := <-obs.states:
			if s.State == want {
				return s
			}
		case <-deadline:
			t.Fatalf("timed out waiting for state %v", want)
		}
	}
}

type fixture struct {
	rec  *fakeRecorder
	tr   *transcriber.FakeTranscriber
	pp   *postproc.FakeProcessor
	inj  *inject.FakeInjector
	mut  *mute.FakeController
	obs  *chanObserver
	ctrl *Controller
}

func newFixture(t *testing.T, tr *transcriber.FakeTranscriber, pp *postproc.FakeProcessor) *fixture {
	t.Helper()
	f := &fixture{
		rec: newFakeRecorder(1.0),
		tr:  tr,
		pp:  pp,
		inj: &inject.FakeInjector{},
		mut: &mute.FakeController{},
		obs: newChanObserver(),
	}
	f.ctrl = New(Deps{
		Recorder: f.rec,
		Providers: func() Providers {
			var proc postproc.Processor
			if f.pp != nil {
				proc = f.pp
			}
			return Providers{
				Transcriber:   f.tr,
				PostProcessor: proc,
				PostProcMode:  postproc.ModeCleanup,
				Format:        "wav",
				Mute:          true,
			}
		},
		Injector: f.inj,
		Muter:    f.mut,
		Observer: f.obs,
	})
	t.Cleanup(f.ctrl.Close)
	return f
}

func TestHoldDictationDeliversText(t *testing.T) {
	f := newFixture(t, transcriber.NewFake("hello world", nil), nil)

	f.ctrl.Begin(TriggerHold)
	waitState(t, f.obs, StateRecording)
	f.ctrl.End()
	waitState(t, f.obs, StateTranscribing)
	waitState(t, f.obs, StateInjecting)
	final := waitState(t, f.obs, StateIdle)

	if final.Transcript != "hello world" {
		t.Errorf("transcript = %q", final.Transcript)
	}
	if final.FinalText != "hello world" {
		t.Errorf("final text = %q", final.FinalText)
	}
	if got := f.inj.Injected(); len(got) != 1 || got[0] != "hello world" {
		t.Errorf("injected = %v", got)
	}
	if f.ctrl.LastText() != "hello world" {
		t.Errorf("LastText = %q", f.ctrl.LastText())
	}
	// Hold sessions never touch system mute.
	if m, u := f.mut.Counts(); m != 0 || u != 0 {
		t.Errorf("mute counts = %d/%d, want 0/0", m, u)
	}
}

func TestBeginWhileBusyIsDropped(t *testing.T) {
	tr := transcriber.NewFake("text", nil)
	tr.Delay = 150 * time.Millisecond
	f := newFixture(t, tr, nil)

	f.ctrl.Begin(TriggerHold)
	first := waitState(t, f.obs, StateRecording)
	f.ctrl.End()
	waitState(t, f.obs, StateTranscribing)

	// A second begin while transcribing must not start a session.
	f.ctrl.Begin(TriggerHold)
	final := waitState(t, f.obs, StateIdle)
	if final.ID != first.ID {
		t.Fatalf("unexpected new session %s during %s", final.ID, first.ID)
	}
	if f.rec.Starts() != 1 {
		t.Errorf("recorder starts = %d, want 1", f.rec.Starts())
	}

	// After the first completes, begin works again.
	f.ctrl.Begin(TriggerHold)
	second := waitState(t, f.obs, StateRecording)
	if second.ID == first.ID {
		t.Error("expected a fresh session id")
	}
}

func TestShortCaptureIsCancelled(t *testing.T) {
	f := newFixture(t, transcriber.NewFake("never", nil), nil)
	f.rec.frames = 100 // well under 0.1s
	f.rec.pcm = make([]byte, 200)

	f.ctrl.Begin(TriggerHold)
	waitState(t, f.obs, StateRecording)
	f.ctrl.End()
	waitState(t, f.obs, StateCancelled)

	if f.tr.Calls() != 0 {
		t.Errorf("transcriber called %d times for empty capture", f.tr.Calls())
	}
}

func TestEmptyTranscriptIsCancelled(t *testing.T) {
	f := newFixture(t, transcriber.NewFake("   ", nil), nil)

	f.ctrl.Begin(TriggerHold)
	waitState(t, f.obs, StateRecording)
	f.ctrl.End()
	waitState(t, f.obs, StateTranscribing)
	waitState(t, f.obs, StateCancelled)

	time.Sleep(20 * time.Millisecond)
	if got := f.inj.Injected(); len(got) != 0 {
		t.Errorf("injected = %v, want none", got)
	}
}

func TestIdleFollowsCancelled(t *testing.T) {
	f := newFixture(t, transcriber.NewFake("   ", nil), nil)

	f.ctrl.Begin(TriggerHold)
	waitState(t, f.obs, StateRecording)
	f.ctrl.End()
	waitState(t, f.obs, StateCancelled)

	// The UI needs to see the machine back at rest.
	final := waitState(t, f.obs, StateIdle)
	if final.FinalText != "" {
		t.Errorf("final text = %q after cancel, want empty", final.FinalText)
	}
}

func TestIdleFollowsError(t *testing.T) {
	f := newFixture(t, transcriber.NewFake("", transcriber.ErrNetwork), nil)

	f.ctrl.Begin(TriggerHold)
	waitState(t, f.obs, StateRecording)
	f.ctrl.End()

	// Error first, with the reason, then the return to idle.
	failed := waitState(t, f.obs, StateError)
	if !errors.Is(failed.Err, transcriber.ErrNetwork) {
		t.Errorf("err = %v, want ErrNetwork", failed.Err)
	}
	waitState(t, f.obs, StateIdle)
}

func TestTranscriptionFailure(t *testing.T) {
	f := newFixture(t, transcriber.NewFake("", transcriber.ErrRateLimited), nil)

	f.ctrl.Begin(TriggerHold)
	waitState(t, f.obs, StateRecording)
	f.ctrl.End()
	final := waitState(t, f.obs, StateError)

	if !errors.Is(final.Err, transcriber.ErrRateLimited) {
		t.Errorf("err = %v, want ErrRateLimited", final.Err)
	}
	time.Sleep(20 * time.Millisecond)
	if got := f.inj.Injected(); len(got) != 0 {
		t.Errorf("injected = %v, want none", got)
	}

	// The failure must not wedge the machine.
	f.ctrl.Begin(TriggerHold)
	waitState(t, f.obs, StateRecording)
}

func TestPostProcessingApplied(t *testing.T) {
	pp := postproc.NewFakeProcessor("cleaned up", nil)
	f := newFixture(t, transcriber.NewFake("um so cleaned up", nil), pp)

	f.ctrl.Begin(TriggerHold)
	waitState(t, f.obs, StateRecording)
	f.ctrl.End()
	waitState(t, f.obs, StatePostProcessing)
	final := waitState(t, f.obs, StateIdle)

	if final.Transcript != "um so cleaned up" {
		t.Errorf("transcript = %q", final.Transcript)
	}
	if final.FinalText != "cleaned up" {
		t.Errorf("final text = %q", final.FinalText)
	}
	if got := f.inj.Injected(); len(got) != 1 || got[0] != "cleaned up" {
		t.Errorf("injected = %v", got)
	}
	if calls := pp.Calls(); len(calls) != 1 || calls[0] != "um so cleaned up" {
		t.Errorf("postproc calls = %v", calls)
	}
}

func TestPostProcessingFailureFallsBack(t *testing.T) {
	pp := postproc.NewFakeProcessor("", errors.New("llm down"))
	f := newFixture(t, transcriber.NewFake("raw transcript", nil), pp)

	f.ctrl.Begin(TriggerHold)
	waitState(t, f.obs, StateRecording)
	f.ctrl.End()
	final := waitState(t, f.obs, StateIdle)

	if final.FinalText != "raw transcript" {
		t.Errorf("final text = %q, want raw transcript", final.FinalText)
	}
	if got := f.inj.Injected(); len(got) != 1 || got[0] != "raw transcript" {
		t.Errorf("injected = %v", got)
	}
}

func TestToggleSessionMutes(t *testing.T) {
	f := newFixture(t, transcriber.NewFake("text", nil), nil)

	f.ctrl.Begin(TriggerToggle)
	waitState(t, f.obs, StateRecording)
	if m, _ := f.mut.Counts(); m != 1 {
		t.Errorf("mutes = %d, want 1 before recording", m)
	}
	f.ctrl.End()
	waitState(t, f.obs, StateIdle)
	if _, u := f.mut.Counts(); u != 1 {
		t.Errorf("unmutes = %d, want 1 after stop", u)
	}
}

func TestToggleUnmutesOnFailure(t *testing.T) {
	f := newFixture(t, transcriber.NewFake("", transcriber.ErrNetwork), nil)

	f.ctrl.Begin(TriggerToggle)
	waitState(t, f.obs, StateRecording)
	f.ctrl.End()
	waitState(t, f.obs, StateError)

	if m, u := f.mut.Counts(); m != 1 || u != 1 {
		t.Errorf("mute counts = %d/%d, want 1/1", m, u)
	}
}

func TestInjectionFailureReportsAndRecovers(t *testing.T) {
	f := newFixture(t, transcriber.NewFake("text", nil), nil)
	f.inj.Err = inject.ErrInjection

	f.ctrl.Begin(TriggerHold)
	waitState(t, f.obs, StateRecording)
	f.ctrl.End()
	final := waitState(t, f.obs, StateError)

	if !errors.Is(final.Err, inject.ErrInjection) {
		t.Errorf("err = %v", final.Err)
	}

	f.inj.Err = nil
	f.ctrl.Begin(TriggerHold)
	waitState(t, f.obs, StateRecording)
}

func TestCancelDuringRecording(t *testing.T) {
	f := newFixture(t, transcriber.NewFake("never", nil), nil)

	f.ctrl.Begin(TriggerHold)
	waitState(t, f.obs, StateRecording)
	f.ctrl.Cancel()
	waitState(t, f.obs, StateCancelled)

	time.Sleep(20 * time.Millisecond)
	if f.tr.Calls() != 0 {
		t.Errorf("transcriber called after cancel")
	}
	if f.rec.Stops() != 1 {
		t.Errorf("recorder stops = %d, want 1", f.rec.Stops())
	}
}

func TestMaxRecordingForceCancels(t *testing.T) {
	f := &fixture{
		rec: newFakeRecorder(1.0),
		tr:  transcriber.NewFake("never", nil),
		inj: &inject.FakeInjector{},
		mut: &mute.FakeController{},
		obs: newChanObserver(),
	}
	f.ctrl = New(Deps{
		Recorder:     f.rec,
		Providers:    func() Providers { return Providers{Transcriber: f.tr, Format: "wav"} },
		Injector:     f.inj,
		Muter:        f.mut,
		Observer:     f.obs,
		MaxRecording: 50 * time.Millisecond,
	})
	defer f.ctrl.Close()

	f.ctrl.Begin(TriggerHold)
	waitState(t, f.obs, StateRecording)
	waitState(t, f.obs, StateCancelled)

	if f.tr.Calls() != 0 {
		t.Errorf("transcriber called after forced cancel")
	}
}

func TestProvidersSnapshotPerSession(t *testing.T) {
	trA := transcriber.NewFake("from A", nil)
	trB := transcriber.NewFake("from B", nil)

	var mu sync.Mutex
	active := trA

	rec := newFakeRecorder(1.0)
	inj := &inject.FakeInjector{}
	obs := newChanObserver()
	ctrl := New(Deps{
		Recorder: rec,
		Providers: func() Providers {
			mu.Lock()
			defer mu.Unlock()
			return Providers{Transcriber: active, Format: "wav"}
		},
		Injector: inj,
		Observer: obs,
	})
	defer ctrl.Close()

	ctrl.Begin(TriggerHold)
	waitState(t, obs, StateRecording)

	// Switching providers mid-session must not affect the live one.
	mu.Lock()
	active = trB
	mu.Unlock()

	ctrl.End()
	final := waitState(t, obs, StateIdle)
	if final.FinalText != "from A" {
		t.Errorf("final text = %q, want snapshot provider output", final.FinalText)
	}
	if trB.Calls() != 0 {
		t.Errorf("new provider used by old session")
	}
}
