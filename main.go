package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"slices"
	"sync"
	"time"

	cb "github.com/atotto/clipboard"
	"golang.design/x/hotkey/mainthread"

	"github.com/halz/chotto-voice/audio"
	"github.com/halz/chotto-voice/beep"
	"github.com/halz/chotto-voice/config"
	"github.com/halz/chotto-voice/encoder"
	"github.com/halz/chotto-voice/hotkey"
	"github.com/halz/chotto-voice/inject"
	"github.com/halz/chotto-voice/log"
	"github.com/halz/chotto-voice/login"
	"github.com/halz/chotto-voice/mute"
	"github.com/halz/chotto-voice/postproc"
	"github.com/halz/chotto-voice/relay"
	"github.com/halz/chotto-voice/session"
	"github.com/halz/chotto-voice/shutdown"
	"github.com/halz/chotto-voice/transcriber"
	"github.com/halz/chotto-voice/tray"
)

var version = "dev"

func init() {
	runtime.LockOSThread()
}

// The global hotkey and the tray both want the OS main thread;
// mainthread.Init keeps it parked for them and runs the app on a
// goroutine.
func main() {
	mainthread.Init(run)
}

// app holds the pieces that tray and hotkey callbacks reconfigure at
// runtime. The session controller reads a consistent snapshot of the
// provider fields through providers() when a session begins.
type app struct {
	store *config.Store
	env   *config.Env

	mu          sync.Mutex
	settings    config.Settings
	transcriber transcriber.Transcriber
	processor   postproc.Processor

	relay    *relay.Client
	injector *inject.ClipboardInjector

	ctx      audio.Context
	recorder *audio.Recorder
	capture  audio.CaptureDevice
	selected *audio.DeviceInfo
	// preferred remembers the user's device choice for auto-reconnect
	// after an unplug.
	preferred string

	creditsKick chan struct{}
}

func (a *app) providers() session.Providers {
	a.mu.Lock()
	defer a.mu.Unlock()
	return session.Providers{
		Transcriber:   a.transcriber,
		PostProcessor: a.processor,
		PostProcMode:  postproc.Mode(a.settings.PostProcMode),
		Format:        a.settings.Format,
		Mute:          a.settings.MuteDuringDictation,
	}
}

func (a *app) relayBase() string {
	if a.env.RelayURL != "" {
		return a.env.RelayURL
	}
	return relay.DefaultBaseURL
}

func buildTranscriber(s config.Settings, env *config.Env, relayBase string) (transcriber.Transcriber, error) {
	cfg := transcriber.Config{Provider: s.STTProvider, Language: s.Language}
	switch s.STTProvider {
	case "relay":
		cfg.Token = s.Token
		cfg.BaseURL = relayBase
	case "openai":
		cfg.APIKey = env.OpenAIAPIKey
	case "groq":
		cfg.APIKey = env.GroqAPIKey
	}
	return transcriber.New(cfg)
}

func buildProcessor(s config.Settings, env *config.Env) (postproc.Processor, error) {
	cfg := postproc.Config{
		Provider: s.PostProcProvider,
		Model:    s.PostProcModel,
		Prompt:   s.PostProcPrompt,
	}
	switch s.PostProcProvider {
	case "openai":
		cfg.APIKey = env.OpenAIAPIKey
	case "anthropic":
		cfg.APIKey = env.AnthropicAPIKey
	}
	return postproc.New(cfg)
}

// switchProvider rebuilds the transcriber for the named backend and
// persists the choice. The running session, if any, keeps its snapshot.
func (a *app) switchProvider(name string) {
	a.mu.Lock()
	s := a.settings
	s.STTProvider = name
	t, err := buildTranscriber(s, a.env, a.relayBase())
	if err != nil {
		a.mu.Unlock()
		log.Warnf("provider switch to %s failed: %v", name, err)
		tray.SetError(err.Error())
		return
	}
	a.settings = s
	a.transcriber = t
	a.mu.Unlock()

	if _, err := a.store.Update(func(s *config.Settings) { s.STTProvider = name }); err != nil {
		log.Warnf("saving settings: %v", err)
	}
	log.Info("provider_switch: " + name)
	tuiSend(ModeLineMsg{Text: a.modeLineText()})
	a.refreshProviderMenu()
}

func (a *app) switchLanguage(code string) {
	a.mu.Lock()
	a.settings.Language = code
	a.transcriber.SetLanguage(code)
	a.mu.Unlock()

	if _, err := a.store.Update(func(s *config.Settings) { s.Language = code }); err != nil {
		log.Warnf("saving settings: %v", err)
	}
	tuiSend(ModeLineMsg{Text: a.modeLineText()})
}

func (a *app) refreshProviderMenu() {
	a.mu.Lock()
	active := a.settings.STTProvider
	token := a.settings.Token
	a.mu.Unlock()
	tray.SetProviders([]tray.Provider{
		{Name: "relay", Label: "Chotto Voice account", Usable: token != "", Active: active == "relay"},
		{Name: "openai", Label: "OpenAI", Usable: a.env.OpenAIAPIKey != "", Active: active == "openai"},
		{Name: "groq", Label: "Groq", Usable: a.env.GroqAPIKey != "", Active: active == "groq"},
	}, a.switchProvider)
}

func (a *app) modeLineText() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	label := a.transcriber.Name()
	if lang := a.transcriber.GetLanguage(); lang != "" {
		label += " (" + lang + ")"
	}
	if a.processor != nil {
		label += " +" + a.settings.PostProcProvider
	}
	return fmt.Sprintf("[%s | %s]", a.settings.Format, label)
}

func deviceLineText(dev *audio.DeviceInfo) string {
	name := "system default"
	suffix := ""
	if dev != nil {
		name = dev.Name
		if audio.IsBluetooth(dev.Name) {
			suffix = " (BT!)"
		}
	}
	return "mic: " + name + suffix
}

// switchDeviceByName reopens capture on the named device. Refused while
// a recording is in flight; the poll loop retries on the next change.
func (a *app) switchDeviceByName(name string) {
	devices, err := a.ctx.Devices()
	if err != nil {
		log.Warnf("device enumeration failed: %v", err)
		return
	}
	for i := range devices {
		if devices[i].Name == name {
			a.applyDeviceSwitch(&devices[i])
			return
		}
	}
	log.Warnf("device not found: %s", name)
}

func (a *app) applyDeviceSwitch(dev *audio.DeviceInfo) {
	name := "system default"
	if dev != nil {
		name = dev.Name
	}
	captureConfig := audio.CaptureConfig{
		SampleRate: encoder.SampleRate,
		Channels:   encoder.Channels,
	}
	newCapture, err := a.ctx.NewCapture(dev, captureConfig)
	if err != nil {
		log.Errorf("capture device reinit error: %v", err)
		return
	}
	if !a.recorder.SetDevice(newCapture) {
		log.Warn("device switch deferred: recording in progress")
		newCapture.Close()
		return
	}
	old := a.capture
	a.capture = newCapture
	a.selected = dev
	old.Close()
	log.Info("device_switch: " + name)
	tuiSend(DeviceLineMsg{Text: deviceLineText(dev)})
}

// pollDevices watches for hotplug: if the selected device disappears we
// fall back to the default, and if the preferred one comes back we
// reconnect to it.
func (a *app) pollDevices() {
	var last []string
	ticker := time.NewTicker(3 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		devices, err := a.ctx.Devices()
		if err != nil {
			continue
		}
		names := make([]string, len(devices))
		for i := range devices {
			names[i] = devices[i].Name
		}
		if slices.Equal(last, names) {
			continue
		}
		last = names
		selName := ""
		if a.selected != nil {
			selName = a.selected.Name
		}
		if selName != "" && !slices.Contains(names, selName) {
			log.Info("device_disconnected: " + selName)
			a.applyDeviceSwitch(nil)
			selName = ""
		} else if selName == "" && a.preferred != "" && slices.Contains(names, a.preferred) {
			log.Info("device_reconnected: " + a.preferred)
			a.switchDeviceByName(a.preferred)
			selName = a.preferred
		}
		tray.RefreshDevices(names, selName)
	}
}

func (a *app) kickCredits() {
	select {
	case a.creditsKick <- struct{}{}:
	default:
	}
}

// pollCredits refreshes the relay balance every few minutes and whenever
// kicked after a session or login.
func (a *app) pollCredits() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
		case <-a.creditsKick:
		}
		a.mu.Lock()
		token := a.settings.Token
		a.mu.Unlock()
		if token == "" {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		balance, err := a.relay.Credits(ctx)
		cancel()
		if err != nil {
			log.Warnf("credits check failed: %v", err)
			continue
		}
		tray.SetCredits(balance)
		tuiSend(CreditsMsg{Balance: balance})
	}
}

func (a *app) signIn() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	token, err := login.Flow(ctx, a.relayBase())
	if err != nil {
		log.Errorf("sign-in failed: %v", err)
		tray.SetError("Sign-in failed: " + err.Error())
		return
	}
	acct, err := a.relay.LoginWithToken(ctx, token)
	if err != nil {
		log.Errorf("sign-in failed: %v", err)
		tray.SetError("Sign-in failed: " + userMessage(err))
		return
	}
	a.relay.SetToken(token)

	a.mu.Lock()
	a.settings.Token = token
	if a.settings.STTProvider == "relay" {
		if t, err := buildTranscriber(a.settings, a.env, a.relayBase()); err == nil {
			a.transcriber = t
		}
	}
	a.mu.Unlock()

	if _, err := a.store.Update(func(s *config.Settings) { s.Token = token }); err != nil {
		log.Warnf("saving settings: %v", err)
	}
	log.Info("signed_in: " + acct.Email)
	tray.SetAccount(acct.Email)
	a.refreshProviderMenu()
	a.kickCredits()
}

func (a *app) buyCredits() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pkgs, err := a.relay.Packages(ctx)
	if err != nil || len(pkgs) == 0 {
		log.Warnf("loading credit packages failed: %v", err)
		tray.SetError("Could not load credit packages.")
		return
	}
	url, err := a.relay.Checkout(ctx, pkgs[0].ID)
	if err != nil {
		log.Warnf("checkout failed: %v", err)
		tray.SetError("Checkout failed: " + userMessage(err))
		return
	}
	if err := login.OpenBrowser(url); err != nil {
		log.Warnf("opening checkout page failed: %v", err)
	}
}

var shutdownOnce sync.Once

func gracefulShutdown(ctrl *session.Controller) {
	shutdownOnce.Do(func() {
		if ctrl != nil {
			ctrl.Close()
		}
		log.Close()
		tray.Quit()
		tuiMu.Lock()
		p := tuiProgram
		tuiMu.Unlock()
		if p != nil {
			p.Quit()
		}
		os.Exit(0)
	})
}

// runLogin is the `chotto-voice login` subcommand: browser sign-in from
// the terminal, for headless-ish setups and first runs.
func runLogin() {
	env, err := config.LoadEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	base := env.RelayURL
	if base == "" {
		base = relay.DefaultBaseURL
	}

	fmt.Println("Opening browser for sign-in...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	token, err := login.Flow(ctx, base)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	client := relay.NewClient(base, "")
	acct, err := client.LoginWithToken(ctx, token)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	store := &config.Store{}
	if _, err := store.Update(func(s *config.Settings) { s.Token = token }); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving settings: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Signed in as %s (%.0f credits)\n", acct.Email, acct.Credits)
}

func run() {
	if len(os.Args) > 1 && os.Args[1] == "login" {
		runLogin()
		return
	}

	autoPasteFlag := flag.Bool("autopaste", true, "Paste into the focused window after transcription")
	setupFlag := flag.Bool("setup", false, "Select microphone device interactively")
	deviceFlag := flag.String("device", "", "Use named microphone device")
	formatFlag := flag.String("format", "", "Audio upload format: wav or flac")
	providerFlag := flag.String("provider", "", "Transcription backend: relay, openai or groq")
	langFlag := flag.String("lang", "", "Language code hint (e.g. en, ja). Empty = auto-detect")
	hotkeyFlag := flag.String("hotkey", "", "Dictation hotkey (e.g. ctrl+shift+space)")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	crashFlag := flag.Bool("crash", false, "Trigger synthetic panic for testing crash logging")
	logPathFlag := flag.String("logpath", "", "Log directory path (default: OS-specific location)")
	profileFlag := flag.String("profile", "", "Enable pprof profiling server (e.g. localhost:6060)")
	tuiFlag := flag.Bool("tui", true, "Run with terminal UI")
	flag.Parse()

	explicit := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	if *versionFlag {
		fmt.Printf("chotto-voice %s\n", version)
		os.Exit(0)
	}

	logPath, err := log.ResolveDir(*logPathFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		os.Exit(1)
	}
	log.SetDir(logPath)
	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}

	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err == nil {
		fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
		debug.SetCrashOutput(crashFile, debug.CrashOptions{})
	}

	if *profileFlag != "" {
		go func() {
			fmt.Fprintf(os.Stderr, "pprof server listening on http://%s/debug/pprof/\n", *profileFlag)
			if err := http.ListenAndServe(*profileFlag, nil); err != nil {
				fmt.Fprintf(os.Stderr, "pprof server error: %v\n", err)
			}
		}()
	}

	if *crashFlag {
		panic("TEST CRASH: synthetic panic to verify crash logging")
	}

	env, err := config.LoadEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	store := &config.Store{}
	settings, err := store.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
	}

	// Flags passed explicitly override the settings file for this run
	// but are not persisted.
	if explicit["autopaste"] {
		settings.AutoPaste = *autoPasteFlag
	}
	if explicit["format"] {
		settings.Format = *formatFlag
	}
	if explicit["provider"] {
		settings.STTProvider = *providerFlag
	}
	if explicit["lang"] {
		settings.Language = *langFlag
	}
	if explicit["hotkey"] {
		settings.Hotkey = *hotkeyFlag
	}
	if explicit["device"] {
		settings.Device = *deviceFlag
	}

	switch settings.Format {
	case "wav", "flac":
	default:
		fmt.Printf("Error: unknown format %q (use wav or flac)\n", settings.Format)
		os.Exit(1)
	}

	binding, err := hotkey.ParseBinding(settings.Hotkey)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}

	a := &app{
		store:       store,
		env:         env,
		settings:    settings,
		creditsKick: make(chan struct{}, 1),
	}
	a.relay = relay.NewClient(a.relayBase(), settings.Token)

	a.transcriber, err = buildTranscriber(settings, env, a.relayBase())
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		if settings.STTProvider == "relay" && settings.Token == "" {
			fmt.Println("Sign in first: chotto-voice login")
		}
		os.Exit(1)
	}
	a.processor, err = buildProcessor(settings, env)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	if !settings.SoundCues {
		beep.Disable()
	}

	actx, err := audio.NewContext()
	if err != nil {
		log.Errorf("audio context init error: %v", err)
		fmt.Printf("Error initializing audio: %v\n", err)
		os.Exit(1)
	}
	defer actx.Close()
	a.ctx = actx

	if *setupFlag && settings.Device == "" {
		if dev, err := selectDevice(actx); err != nil {
			fmt.Printf("Warning: device selection failed: %v\n", err)
			fmt.Println("Falling back to default device")
		} else if dev != nil {
			settings.Device = dev.Name
			a.mu.Lock()
			a.settings.Device = dev.Name
			a.mu.Unlock()
			if _, err := store.Update(func(s *config.Settings) { s.Device = dev.Name }); err != nil {
				log.Warnf("saving settings: %v", err)
			}
		}
	}

	if settings.Device != "" {
		if devices, err := actx.Devices(); err == nil {
			for i := range devices {
				if devices[i].Name == settings.Device {
					a.selected = &devices[i]
					break
				}
			}
		}
		a.preferred = settings.Device
	}

	captureConfig := audio.CaptureConfig{
		SampleRate: encoder.SampleRate,
		Channels:   encoder.Channels,
	}
	a.capture, err = actx.NewCapture(a.selected, captureConfig)
	if err != nil {
		log.Errorf("capture device init error: %v", err)
		fmt.Printf("Error initializing capture device: %v\n", err)
		os.Exit(1)
	}
	defer a.capture.Close()

	a.recorder = audio.NewRecorder(a.capture)
	a.injector = inject.New(settings.AutoPaste)

	var speech session.SpeechDetector
	if vad, err := audio.NewVAD(); err != nil {
		log.Warnf("VAD init failed, silence detection disabled: %v", err)
	} else {
		speech = vad
	}

	ctrl := session.New(session.Deps{
		Recorder:  a.recorder,
		Providers: a.providers,
		Injector:  a.injector,
		Muter:     mute.New(),
		Speech:    speech,
		Observer:  &uiObserver{app: a},
	})

	if *tuiFlag {
		tuiMu.Lock()
		tuiProgram = NewTUIProgram(binding.String())
		tuiMu.Unlock()

		go func() {
			if _, err := tuiProgram.Run(); err != nil {
				log.Errorf("TUI error: %v", err)
				os.Exit(1)
			}
			gracefulShutdown(ctrl)
		}()
		<-tuiReady
	} else {
		tuiReadyOnce.Do(func() { close(tuiReady) })
	}

	tray.OnCopyLast(func() {
		if text := ctrl.LastText(); text != "" {
			if err := cb.WriteAll(text); err != nil {
				log.Warnf("copying last dictation: %v", err)
			}
		}
	})
	tray.OnRecord(
		func() { ctrl.Begin(session.TriggerTray) },
		func() { ctrl.End() },
	)
	tray.OnAutoPaste(func(on bool) {
		a.injector.SetAutoPaste(on)
		a.mu.Lock()
		a.settings.AutoPaste = on
		a.mu.Unlock()
		if _, err := store.Update(func(s *config.Settings) { s.AutoPaste = on }); err != nil {
			log.Warnf("saving settings: %v", err)
		}
	})
	tray.OnLogin(func() { go a.signIn() })
	tray.OnBuyCredits(func() { go a.buyCredits() })
	tray.SetAutoPaste(settings.AutoPaste)
	tray.SetBTCheck(audio.IsBluetooth)
	if devices, err := actx.Devices(); err == nil && len(devices) > 0 {
		names := make([]string, len(devices))
		for i := range devices {
			names[i] = devices[i].Name
		}
		sel := ""
		if a.selected != nil {
			sel = a.selected.Name
		}
		tray.SetDevices(names, sel, func(name string) {
			a.preferred = name
			a.switchDeviceByName(name)
		})
	}
	a.refreshProviderMenu()
	tray.SetLanguage(settings.Language, a.switchLanguage)

	trayQuit := tray.Init()

	go a.pollDevices()
	go a.pollCredits()
	a.kickCredits()

	sigs := shutdown.Listen()
	go func() {
		select {
		case <-sigs:
		case <-trayQuit:
		}
		gracefulShutdown(ctrl)
	}()

	go beep.Init()

	tuiSend(ModeLineMsg{Text: a.modeLineText()})
	tuiSend(DeviceLineMsg{Text: deviceLineText(a.selected)})

	hk, err := hotkey.New(binding)
	if err == nil {
		err = hk.Register()
	}
	if err != nil {
		// The OS denied the global hook (or the binding is taken).
		// Recording stays available from the tray menu, so keep
		// running without the listener.
		log.Errorf("global hotkey %s unavailable: %v", binding, err)
		tray.SetError(fmt.Sprintf("Hotkey %s unavailable. Use Start Recording in this menu.", binding))
		tuiSend(ErrorMsg{Text: fmt.Sprintf("hotkey %s unavailable, tray controls only", binding)})
		log.Infof("ready (no hotkey): provider=%s format=%s", settings.STTProvider, settings.Format)
		select {} // shutdown arrives via signal or tray quit
	}
	defer hk.Unregister()

	log.Infof("ready: hotkey=%s provider=%s format=%s", binding, settings.STTProvider, settings.Format)

	listener := hotkey.NewListener(hk, hotkey.ListenerConfig{})
	defer listener.Close()
	for intent := range listener.Intents() {
		switch intent.Kind {
		case hotkey.IntentBegin:
			ctrl.Begin(session.TriggerHold)
		case hotkey.IntentToggleBegin:
			ctrl.Begin(session.TriggerToggle)
		case hotkey.IntentEnd:
			ctrl.End()
		}
	}
}
