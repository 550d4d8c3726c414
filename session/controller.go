package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/halz/chotto-voice/encoder"
	"github.com/halz/chotto-voice/inject"
	"github.com/halz/chotto-voice/log"
	"github.com/halz/chotto-voice/mute"
)

const (
	defaultMaxRecording      = 5 * time.Minute
	defaultTranscribeTimeout = 60 * time.Second
	minFrames                = encoder.SampleRate / 10 // below this the capture is discarded
)

// Recorder is the audio capture surface the controller drives.
type Recorder interface {
	Start() error
	Stop() (pcm []byte, frames uint64)
	OnLevel(fn func(rms float64))
	OnChunk(fn func(pcm []byte))
}

// SpeechDetector feeds the silence monitor. Process is called from the
// audio callback; HasSpeechTick from the controller goroutine.
type SpeechDetector interface {
	Process(data []byte)
	HasSpeechTick() bool
	Reset()
}

// Deps wires the controller to the rest of the app. Recorder, Providers
// and Injector are required; the rest may be nil.
type Deps struct {
	Recorder  Recorder
	Providers func() Providers
	Injector  inject.Injector
	Muter     mute.Controller
	Speech    SpeechDetector
	Observer  Observer

	// MaxRecording force-cancels a recording left running. Default 5m.
	MaxRecording time.Duration
	// TranscribeTimeout bounds the provider round trip. Default 60s.
	TranscribeTimeout time.Duration
}

type cmdKind int

const (
	cmdBegin cmdKind = iota
	cmdEnd
	cmdCancel
)

type command struct {
	kind    cmdKind
	trigger Trigger
}

type stage int

const (
	stageTranscribe stage = iota
	stagePostProcess
	stageInject
)

func (s stage) String() string {
	switch s {
	case stageTranscribe:
		return "transcribe"
	case stagePostProcess:
		return "post_process"
	default:
		return "inject"
	}
}

type result struct {
	id    uuid.UUID
	stage stage
	text  string
	err   error
}

// Controller runs the session state machine. All transitions happen on
// its single run goroutine; Begin/End/Cancel only enqueue commands.
type Controller struct {
	deps Deps
	obs  Observer

	cmds    chan command
	results chan result
	levels  chan float64
	stop    chan struct{}
	done    chan struct{}

	mu       sync.Mutex
	lastText string
}

func New(deps Deps) *Controller {
	if deps.MaxRecording <= 0 {
		deps.MaxRecording = defaultMaxRecording
	}
	if deps.TranscribeTimeout <= 0 {
		deps.TranscribeTimeout = defaultTranscribeTimeout
	}
	obs := deps.Observer
	if obs == nil {
		obs = NopObserver{}
	}

	c := &Controller{
		deps:    deps,
		obs:     obs,
		cmds:    make(chan command, 8),
		results: make(chan result, 8),
		levels:  make(chan float64, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}

	c.deps.Recorder.OnLevel(func(rms float64) {
		select {
		case c.levels <- rms:
		default:
		}
	})
	if c.deps.Speech != nil {
		c.deps.Recorder.OnChunk(c.deps.Speech.Process)
	}

	go c.run()
	return c
}

// Begin starts a new session. Dropped if one is already live.
func (c *Controller) Begin(trigger Trigger) {
	c.send(command{kind: cmdBegin, trigger: trigger})
}

// End stops the current recording and kicks off transcription.
func (c *Controller) End() {
	c.send(command{kind: cmdEnd})
}

// Cancel abandons the current session, whatever state it is in.
func (c *Controller) Cancel() {
	c.send(command{kind: cmdCancel})
}

func (c *Controller) Close() {
	close(c.stop)
	<-c.done
}

// LastText returns the most recently delivered final text.
func (c *Controller) LastText() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastText
}

func (c *Controller) send(cmd command) {
	select {
	case c.cmds <- cmd:
	default:
		log.Warn("session command dropped, queue full")
	}
}

// live holds the per-session state only the run goroutine touches.
type live struct {
	session        Session
	prov           Providers
	monitor        *silenceMonitor
	ticker         *time.Ticker
	maxTimer       *time.Timer
	muted          bool
	suppressInject bool
}

func (c *Controller) run() {
	defer close(c.done)

	var cur *live

	for {
		var tickC <-chan time.Time
		var maxC <-chan time.Time
		if cur != nil && cur.session.State == StateRecording {
			tickC = cur.ticker.C
			maxC = cur.maxTimer.C
		}

		select {
		case <-c.stop:
			if cur != nil && cur.session.State == StateRecording {
				c.stopCapture(cur)
			}
			return

		case cmd := <-c.cmds:
			switch cmd.kind {
			case cmdBegin:
				if cur != nil {
					log.Infof("begin dropped, session %s is %s", cur.session.ID, cur.session.State)
					continue
				}
				cur = c.begin(cmd.trigger)
			case cmdEnd:
				if cur == nil || cur.session.State != StateRecording {
					continue
				}
				cur = c.endRecording(cur)
			case cmdCancel:
				if cur == nil {
					continue
				}
				if cur.session.State == StateRecording {
					c.stopCapture(cur)
				}
				c.finish(cur, StateCancelled, nil)
				cur = nil
			}

		case res := <-c.results:
			if cur == nil || res.id != cur.session.ID {
				log.Infof("stale %v result for session %s discarded", res.stage, res.id)
				continue
			}
			cur = c.handleResult(cur, res)

		case lvl := <-c.levels:
			if cur != nil && cur.session.State == StateRecording {
				c.obs.AudioLevel(lvl)
			}

		case <-tickC:
			cur = c.tick(cur)

		case <-maxC:
			log.Warnf("session %s hit max recording duration, cancelling", cur.session.ID)
			c.stopCapture(cur)
			c.finish(cur, StateCancelled, nil)
			cur = nil
		}
	}
}

func (c *Controller) begin(trigger Trigger) *live {
	prov := c.deps.Providers()
	cur := &live{
		session: Session{
			ID:        uuid.New(),
			Trigger:   trigger,
			State:     StateRecording,
			StartedAt: time.Now(),
		},
		prov: prov,
	}

	if prov.Transcriber == nil {
		c.finish(cur, StateError, fmt.Errorf("no transcription provider configured"))
		return nil
	}

	if trigger.toggleLike() && prov.Mute && c.deps.Muter != nil {
		if err := c.deps.Muter.Mute(); err != nil {
			log.Warnf("mute failed: %v", err)
		} else {
			cur.muted = true
		}
	}

	if c.deps.Speech != nil {
		c.deps.Speech.Reset()
	}

	if err := c.deps.Recorder.Start(); err != nil {
		c.unmute(cur)
		c.finish(cur, StateError, err)
		return nil
	}

	cur.monitor = newSilenceMonitor(trigger.toggleLike())
	cur.ticker = time.NewTicker(tickInterval)
	cur.maxTimer = time.NewTimer(c.deps.MaxRecording)

	c.notify(cur, StateIdle, StateRecording)
	return cur
}

// stopCapture tears down the recording plumbing without deciding what
// happens next. Safe to call once per session.
func (c *Controller) stopCapture(cur *live) (pcm []byte, frames uint64) {
	cur.ticker.Stop()
	cur.maxTimer.Stop()
	pcm, frames = c.deps.Recorder.Stop()
	c.unmute(cur)
	return pcm, frames
}

func (c *Controller) unmute(cur *live) {
	if !cur.muted {
		return
	}
	cur.muted = false
	if err := c.deps.Muter.Unmute(); err != nil {
		log.Warnf("unmute failed: %v", err)
	}
}

func (c *Controller) endRecording(cur *live) *live {
	pcm, frames := c.stopCapture(cur)

	if frames < minFrames {
		log.Infof("session %s captured %d frames, discarding", cur.session.ID, frames)
		c.finish(cur, StateCancelled, nil)
		return nil
	}

	c.transition(cur, StateTranscribing)

	id := cur.session.ID
	prov := cur.prov
	timeout := c.deps.TranscribeTimeout
	go func() {
		text, err := transcribe(prov, pcm, timeout)
		c.post(result{id: id, stage: stageTranscribe, text: text, err: err})
	}()
	return cur
}

// transcribe encodes the raw capture and sends it to the provider. Runs
// on a worker goroutine.
func transcribe(prov Providers, pcm []byte, timeout time.Duration) (string, error) {
	encStart := time.Now()
	data, err := encodeCapture(pcm, prov.Format)
	if err != nil {
		return "", err
	}
	encodeTime := time.Since(encStart)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	res, err := prov.Transcriber.Transcribe(ctx, data, prov.Format)
	if err != nil {
		return "", err
	}

	if m := res.Metrics; m != nil {
		rawKB := float64(len(pcm)) / 1024
		compKB := float64(len(data)) / 1024
		compPct := 0.0
		if rawKB > 0 {
			compPct = (1 - compKB/rawKB) * 100
		}
		log.TranscriptionMetrics(log.Metrics{
			AudioLengthS:     float64(len(pcm)/2) / float64(encoder.SampleRate),
			RawSizeKB:        rawKB,
			CompressedSizeKB: compKB,
			CompressionPct:   compPct,
			EncodeTimeMs:     float64(encodeTime.Milliseconds()),
			DNSTimeMs:        float64(m.DNS.Milliseconds()),
			TLSTimeMs:        float64(m.TLS.Milliseconds()),
			TTFBMs:           float64(m.TTFB.Milliseconds()),
			TotalTimeMs:      float64(m.Total.Milliseconds()),
		}, prov.Format, prov.Transcriber.Name(), m.ConnReused, m.TLSProtocol)
	}
	return res.Text, nil
}

func encodeCapture(pcm []byte, format string) ([]byte, error) {
	enc, err := encoder.New(format)
	if err != nil {
		return nil, err
	}

	samples := make([]int16, len(pcm)/2)
	for i := range samples {
		samples[i] = int16(pcm[2*i]) | int16(pcm[2*i+1])<<8
	}
	for len(samples) > 0 {
		n := encoder.BlockSize
		if n > len(samples) {
			n = len(samples)
		}
		if err := enc.EncodeBlock(samples[:n]); err != nil {
			return nil, fmt.Errorf("encoding %s: %w", format, err)
		}
		samples = samples[n:]
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("finalizing %s: %w", format, err)
	}
	return enc.Bytes(), nil
}

func (c *Controller) handleResult(cur *live, res result) *live {
	switch res.stage {
	case stageTranscribe:
		if res.err != nil {
			c.finish(cur, StateError, res.err)
			return nil
		}
		text := strings.TrimSpace(res.text)
		if text == "" {
			log.Infof("session %s produced no speech", cur.session.ID)
			c.finish(cur, StateCancelled, nil)
			return nil
		}
		cur.session.Transcript = text

		if cur.prov.PostProcessor != nil {
			c.transition(cur, StatePostProcessing)
			id := cur.session.ID
			prov := cur.prov
			timeout := c.deps.TranscribeTimeout
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), timeout)
				defer cancel()
				out, err := prov.PostProcessor.Process(ctx, text, prov.PostProcMode)
				c.post(result{id: id, stage: stagePostProcess, text: out, err: err})
			}()
			return cur
		}
		cur.session.FinalText = text
		return c.startInject(cur)

	case stagePostProcess:
		// Post-processing is best effort; the raw transcript still gets
		// delivered when it fails.
		if res.err != nil {
			log.Warnf("post-processing failed, using raw transcript: %v", res.err)
			cur.session.FinalText = cur.session.Transcript
		} else if out := strings.TrimSpace(res.text); out != "" {
			cur.session.FinalText = out
		} else {
			cur.session.FinalText = cur.session.Transcript
		}
		return c.startInject(cur)

	case stageInject:
		if res.err != nil {
			c.finish(cur, StateError, res.err)
			return nil
		}
		c.deliver(cur)
		return nil
	}
	return cur
}

func (c *Controller) startInject(cur *live) *live {
	if cur.suppressInject {
		c.deliver(cur)
		return nil
	}

	c.transition(cur, StateInjecting)
	id := cur.session.ID
	text := cur.session.FinalText
	go func() {
		c.post(result{id: id, stage: stageInject, err: c.deps.Injector.Inject(text)})
	}()
	return cur
}

// deliver records the final text and returns the machine to idle.
func (c *Controller) deliver(cur *live) {
	c.mu.Lock()
	c.lastText = cur.session.FinalText
	c.mu.Unlock()

	log.TranscriptionText(cur.session.FinalText)
	c.finish(cur, StateIdle, nil)
}

func (c *Controller) tick(cur *live) *live {
	if c.deps.Speech == nil {
		return cur
	}
	switch cur.monitor.Tick(c.deps.Speech.HasSpeechTick()) {
	case silenceWarn, silenceRepeat:
		log.Info("no voice detected")
		c.obs.SilenceWarning(true)
	case silenceWarnClear:
		c.obs.SilenceWarning(false)
	case silenceAutoClose:
		// Nothing said for 30s; transcribe what there is but do not
		// paste into whatever window has focus now.
		log.Infof("session %s auto-closed after silence", cur.session.ID)
		cur.suppressInject = true
		return c.endRecording(cur)
	}
	return cur
}

func (c *Controller) transition(cur *live, to State) {
	c.notify(cur, cur.session.State, to)
}

// finish moves a session to a terminal state and notifies observers.
// Terminal states are StateIdle (delivered), StateCancelled and
// StateError.
func (c *Controller) finish(cur *live, terminal State, err error) {
	cur.session.Err = err
	if err != nil {
		terminal = StateError
		log.SessionError(cur.session.ID.String(), err)
	}
	c.notify(cur, cur.session.State, terminal)

	// Cancelled and Error are announcements, not resting states: the
	// machine takes the next Begin immediately, so observers get a
	// trailing Idle once the reason has been delivered.
	if terminal == StateCancelled || terminal == StateError {
		c.notify(cur, terminal, StateIdle)
	}
}

func (c *Controller) notify(cur *live, from, to State) {
	cur.session.State = to
	log.SessionState(cur.session.ID.String(), string(cur.session.Trigger), from.String(), to.String())
	c.obs.StateChanged(cur.session)
}

func (c *Controller) post(res result) {
	select {
	case c.results <- res:
	case <-c.stop:
	}
}
