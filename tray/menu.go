package tray

import "fyne.io/systray"

func onReady() {
	systray.SetTemplateIcon(iconIdleHi, iconIdle)
	systray.SetTooltip(idleTooltip)

	mCopy = systray.AddMenuItem("Copy Last Dictation", "Copy the last transcript to the clipboard")
	mCopy.Disable()
	onClick(mCopy, func() {
		mu.Lock()
		fn := copyLastFn
		mu.Unlock()
		if fn != nil {
			fn()
		}
	})

	systray.AddSeparator()

	mRecord = systray.AddMenuItem("Start Dictation", "Start or stop a dictation")
	onClick(mRecord, func() {
		mu.Lock()
		rec, start, stop := recording, recordFn, stopFn
		mu.Unlock()
		if rec {
			if stop != nil {
				stop()
			}
		} else if start != nil {
			start()
		}
	})

	mCredits = systray.AddMenuItem("Credits: …", "Remaining transcription credits")
	mCredits.Disable()
	mCredits.Hide()

	mBuy = systray.AddMenuItem("Buy Credits…", "Open the checkout page")
	mBuy.Hide()
	onClick(mBuy, func() {
		mu.Lock()
		fn := buyFn
		mu.Unlock()
		if fn != nil {
			fn()
		}
	})

	mLogin = systray.AddMenuItem("Sign In…", "Sign in with your browser")
	onClick(mLogin, func() {
		mu.Lock()
		fn := loginFn
		mu.Unlock()
		if fn != nil {
			fn()
		}
	})

	mSettings := systray.AddMenuItem("Settings", "Settings")
	buildDeviceMenu(mSettings)
	buildAutoPaste(mSettings)
	buildProviderMenu(mSettings)
	buildLanguageMenu(mSettings)

	systray.AddSeparator()
	mQuit := systray.AddMenuItem("Quit", "Quit Chotto Voice")
	onClick(mQuit, Quit)

	close(menuReady)
}

func buildDeviceMenu(parent *systray.MenuItem) {
	mDevices = parent.AddSubMenuItem("Microphone", "Select input device")

	mu.Lock()
	names := deviceNames
	sel := deviceSel
	mu.Unlock()

	deviceItems = make([]*systray.MenuItem, 0, len(names))
	for i, name := range names {
		deviceItems = append(deviceItems, addDeviceItem(i, name, name == sel))
	}
}

func addDeviceItem(idx int, name string, checked bool) *systray.MenuItem {
	label := deviceDisplayName(name)
	item := mDevices.AddSubMenuItemCheckbox(label, name, checked)
	onClick(item, func() {
		mu.Lock()
		// Titles may have been rewritten by RefreshDevices; resolve the
		// current name by position.
		currentName := ""
		if idx < len(deviceNames) {
			currentName = deviceNames[idx]
		}
		cb := deviceCb
		items := deviceItems
		mu.Unlock()

		if cb != nil && currentName != "" {
			cb(currentName)
		}
		for j, it := range items {
			if j == idx {
				it.Check()
			} else {
				it.Uncheck()
			}
		}
	})
	return item
}

// RefreshDevices rewrites the device submenu after hotplug changes.
func RefreshDevices(names []string, selected string) {
	if menuReady == nil {
		return
	}
	<-menuReady

	mu.Lock()
	deviceNames = names
	deviceSel = selected
	items := deviceItems
	mu.Unlock()

	for i, item := range items {
		if i < len(names) {
			item.SetTitle(deviceDisplayName(names[i]))
			item.SetTooltip(names[i])
			item.Show()
			if names[i] == selected {
				item.Check()
			} else {
				item.Uncheck()
			}
		} else {
			item.Hide()
			item.Uncheck()
		}
	}

	mu.Lock()
	for i := len(deviceItems); i < len(names); i++ {
		deviceItems = append(deviceItems, addDeviceItem(i, names[i], names[i] == selected))
	}
	mu.Unlock()
}

func buildAutoPaste(parent *systray.MenuItem) {
	mu.Lock()
	on := autoPasteOn
	mu.Unlock()

	item := parent.AddSubMenuItemCheckbox("Auto-paste", "Paste transcribed text automatically", on)
	onClick(item, func() {
		if item.Checked() {
			item.Uncheck()
		} else {
			item.Check()
		}
		mu.Lock()
		autoPasteOn = item.Checked()
		cb := autoPasteCb
		mu.Unlock()
		if cb != nil {
			cb(item.Checked())
		}
	})
}

func buildProviderMenu(parent *systray.MenuItem) {
	mu.Lock()
	provs := providers
	mu.Unlock()
	if len(provs) == 0 {
		return
	}

	mBackend = parent.AddSubMenuItem("Transcription Backend", "Select transcription backend")
	items := make([]*systray.MenuItem, 0, len(provs))
	for i, p := range provs {
		idx := i
		title := p.Label
		if !p.Usable {
			title += " (not configured)"
		}
		item := mBackend.AddSubMenuItemCheckbox(title, title, p.Active)
		if !p.Usable {
			item.Disable()
		}
		items = append(items, item)
		onClick(item, func() {
			mu.Lock()
			pr := providers[idx]
			cb := providerCb
			mu.Unlock()
			if !pr.Usable || cb == nil {
				return
			}
			cb(pr.Name)
			for j, it := range items {
				if j == idx {
					it.Check()
				} else {
					it.Uncheck()
				}
			}
		})
	}

	mu.Lock()
	providerItems = items
	mu.Unlock()
}

func buildLanguageMenu(parent *systray.MenuItem) {
	mLanguage := parent.AddSubMenuItem("Language", "Select transcription language")

	mu.Lock()
	code := langCode
	mu.Unlock()

	items := make([]*systray.MenuItem, 0, len(Languages))
	for i, lang := range Languages {
		idx := i
		item := mLanguage.AddSubMenuItemCheckbox(lang.Label, lang.Label, lang.Code == code)
		items = append(items, item)
		onClick(item, func() {
			for j, it := range items {
				if j == idx {
					it.Check()
				} else {
					it.Uncheck()
				}
			}
			mu.Lock()
			cb := langCb
			mu.Unlock()
			if cb != nil {
				cb(Languages[idx].Code)
			}
		})
	}
}
