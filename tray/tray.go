// Package tray owns the system tray icon and menu: recording state,
// copy-last, microphone and provider selection, credits, and quit.
package tray

import (
	"fmt"
	"sync"
	"time"

	"fyne.io/systray"
	"golang.design/x/hotkey/mainthread"
)

const idleTooltip = "Chotto Voice – hold or double-tap to dictate"

// Provider is one transcription backend entry in the menu.
type Provider struct {
	Name   string
	Label  string
	Usable bool
	Active bool
}

type Language struct {
	Code  string // ISO-639-1, empty for auto-detect
	Label string
}

var Languages = []Language{
	{"", "Auto-detect"},
	{"zh", "Chinese"},
	{"nl", "Dutch"},
	{"en", "English"},
	{"fr", "French"},
	{"de", "German"},
	{"hi", "Hindi"},
	{"id", "Indonesian"},
	{"it", "Italian"},
	{"ja", "Japanese"},
	{"ko", "Korean"},
	{"pl", "Polish"},
	{"pt", "Portuguese"},
	{"ru", "Russian"},
	{"es", "Spanish"},
	{"sv", "Swedish"},
	{"th", "Thai"},
	{"tr", "Turkish"},
	{"uk", "Ukrainian"},
	{"vi", "Vietnamese"},
}

var (
	quitCh    = make(chan struct{})
	closeOnce sync.Once

	mu          sync.Mutex
	copyLastFn  func()
	recordFn    func()
	stopFn      func()
	autoPasteCb func(bool)
	deviceCb    func(string)
	providerCb  func(string)
	langCb      func(string)
	loginFn     func()
	buyFn       func()

	recording   bool
	autoPasteOn bool
	langCode    string
	deviceNames []string
	deviceSel   string
	providers   []Provider
	isBTFn      func(string) bool

	mRecord       *systray.MenuItem
	mCopy         *systray.MenuItem
	mCredits      *systray.MenuItem
	mLogin        *systray.MenuItem
	mBuy          *systray.MenuItem
	mDevices      *systray.MenuItem
	mBackend      *systray.MenuItem
	deviceItems   []*systray.MenuItem
	providerItems []*systray.MenuItem
	menuReady     chan struct{}
)

func OnCopyLast(fn func())        { mu.Lock(); copyLastFn = fn; mu.Unlock() }
func OnRecord(start, stop func()) { mu.Lock(); recordFn = start; stopFn = stop; mu.Unlock() }
func OnAutoPaste(fn func(bool))   { mu.Lock(); autoPasteCb = fn; mu.Unlock() }
func OnLogin(fn func())           { mu.Lock(); loginFn = fn; mu.Unlock() }
func OnBuyCredits(fn func())      { mu.Lock(); buyFn = fn; mu.Unlock() }

func SetAutoPaste(on bool) { mu.Lock(); autoPasteOn = on; mu.Unlock() }

func SetBTCheck(fn func(string) bool) { mu.Lock(); isBTFn = fn; mu.Unlock() }

func SetDevices(names []string, selected string, onSwitch func(name string)) {
	mu.Lock()
	deviceNames = names
	deviceSel = selected
	if onSwitch != nil {
		deviceCb = onSwitch
	}
	mu.Unlock()
}

func SetProviders(p []Provider, onSwitch func(string)) {
	mu.Lock()
	providers = p
	providerCb = onSwitch
	items := providerItems
	mu.Unlock()

	// Rewrite existing menu entries when configuration changes after
	// startup, e.g. a backend becoming usable on sign-in.
	for i, item := range items {
		if i >= len(p) {
			item.Hide()
			continue
		}
		pr := p[i]
		title := pr.Label
		if !pr.Usable {
			title += " (not configured)"
		}
		item.SetTitle(title)
		if pr.Usable {
			item.Enable()
		} else {
			item.Disable()
		}
		if pr.Active {
			item.Check()
		} else {
			item.Uncheck()
		}
		item.Show()
	}
}

func SetLanguage(code string, onSwitch func(string)) {
	mu.Lock()
	langCode = code
	langCb = onSwitch
	mu.Unlock()
}

// Init starts the tray on the main thread loop and returns a channel
// that closes when the user picks Quit.
func Init() <-chan struct{} {
	menuReady = make(chan struct{})
	start, _ := systray.RunWithExternalLoop(onReady, onExit)
	done := make(chan struct{})
	mainthread.Call(func() {
		start()
		close(done)
	})
	<-done
	return quitCh
}

func Quit() {
	closeOnce.Do(func() { close(quitCh) })
}

func SetRecording(rec bool) {
	mu.Lock()
	recording = rec
	mu.Unlock()
	if rec {
		systray.SetIcon(iconRecHi)
		setTitle(mRecord, "Stop Dictation")
		disable(mDevices)
		disable(mBackend)
	} else {
		systray.SetTemplateIcon(iconIdleHi, iconIdle)
		setTitle(mRecord, "Start Dictation")
		enable(mDevices)
		enable(mBackend)
	}
}

// SetWarning switches to the warning badge while recording in silence.
func SetWarning(on bool) {
	mu.Lock()
	rec := recording
	mu.Unlock()
	if !rec {
		return
	}
	if on {
		systray.SetIcon(iconWarnHi)
	} else {
		systray.SetIcon(iconRecHi)
	}
}

// SetError surfaces an error in the tooltip for a few seconds.
func SetError(msg string) {
	systray.SetTooltip("Chotto Voice – " + msg)
	go func() {
		time.Sleep(10 * time.Second)
		systray.SetTooltip(idleTooltip)
	}()
}

// SetCredits updates the credit balance line. Negative hides it.
func SetCredits(balance float64) {
	if mCredits == nil {
		return
	}
	if balance < 0 {
		mCredits.Hide()
		return
	}
	mCredits.SetTitle(fmt.Sprintf("Credits: %.1f", balance))
	mCredits.Show()
	if mBuy != nil {
		mBuy.Show()
	}
}

// SetAccount reflects login state in the menu.
func SetAccount(email string) {
	if mLogin == nil {
		return
	}
	if email == "" {
		mLogin.SetTitle("Sign In…")
	} else {
		mLogin.SetTitle("Signed in: " + email)
	}
}

// SetLastRecording enables the copy item with the duration of the last
// dictation.
func SetLastRecording(dur time.Duration) {
	if mCopy != nil {
		mCopy.SetTitle(fmt.Sprintf("Copy Last Dictation (%.1fs)", dur.Seconds()))
		mCopy.Enable()
	}
}

func setTitle(item *systray.MenuItem, title string) {
	if item != nil {
		item.SetTitle(title)
	}
}

func disable(item *systray.MenuItem) {
	if item != nil {
		item.Disable()
	}
}

func enable(item *systray.MenuItem) {
	if item != nil {
		item.Enable()
	}
}

func deviceDisplayName(name string) string {
	mu.Lock()
	bt := isBTFn
	mu.Unlock()
	if bt != nil && bt(name) {
		return name + " [⚠ Lower audio quality]"
	}
	return name
}

// onClick runs fn every time the item is clicked.
func onClick(item *systray.MenuItem, fn func()) {
	go func() {
		for range item.ClickedCh {
			fn()
		}
	}()
}

func onExit() {
	closeOnce.Do(func() { close(quitCh) })
}
