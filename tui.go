package main

import (
	"fmt"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Messages posted into the TUI from the session observer and main.
type SessionStateMsg struct {
	State   string
	Trigger string
}
type AudioLevelMsg struct{ Level float64 }
type TranscriptMsg struct{ Text string }
type ErrorMsg struct{ Text string }
type WarningMsg struct{ Active bool }
type CreditsMsg struct{ Balance float64 }
type ModeLineMsg struct{ Text string }
type DeviceLineMsg struct{ Text string }
type tickMsg time.Time

var (
	tuiProgram   *tea.Program
	tuiMu        sync.Mutex
	tuiReady     = make(chan struct{})
	tuiReadyOnce sync.Once
)

func tuiSend(msg tea.Msg) {
	tuiMu.Lock()
	p := tuiProgram
	tuiMu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

var (
	styleRec     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	styleBusy    = lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Bold(true)
	styleIdle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	styleWarn    = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	styleErr     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	styleText    = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	styleFaint   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	styleHelp    = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	styleHelpKey = lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Bold(true)
	styleMeterOn = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	styleMeterHi = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

type tuiModel struct {
	state      string
	trigger    string
	frame      int
	startedAt  time.Time
	level      float64
	peak       float64
	warning    bool
	lastText   string
	lastErr    string
	credits    float64
	hasCredits bool
	modeLine   string
	deviceLine string
	hotkeyHint string
	msgCount   int

	width, height int
}

func NewTUIProgram(hotkeyHint string) *tea.Program {
	m := tuiModel{state: "idle", credits: -1, hotkeyHint: hotkeyHint}
	return tea.NewProgram(m, tea.WithAltScreen())
}

func tuiTick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m tuiModel) Init() tea.Cmd {
	tuiReadyOnce.Do(func() { close(tuiReady) })
	return tuiTick()
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

	case tickMsg:
		m.frame++
		return m, tuiTick()

	case SessionStateMsg:
		m.state = msg.State
		m.trigger = msg.Trigger
		switch msg.State {
		case "recording":
			m.startedAt = time.Now()
			m.level = 0
			m.peak = 0
			m.warning = false
			m.lastErr = ""
		case "idle", "cancelled", "error":
			m.level = 0
			m.warning = false
		}

	case AudioLevelMsg:
		if m.state == "recording" {
			m.level = m.level*0.6 + msg.Level*0.4
			if msg.Level > m.peak {
				m.peak = msg.Level
			}
		}

	case WarningMsg:
		m.warning = msg.Active

	case TranscriptMsg:
		m.msgCount++
		m.lastText = msg.Text

	case ErrorMsg:
		m.lastErr = msg.Text

	case CreditsMsg:
		m.credits = msg.Balance
		m.hasCredits = msg.Balance >= 0

	case ModeLineMsg:
		m.modeLine = msg.Text

	case DeviceLineMsg:
		m.deviceLine = msg.Text
	}
	return m, nil
}

func (m tuiModel) statusLine() string {
	switch m.state {
	case "recording":
		label := fmt.Sprintf("● REC %.1fs", time.Since(m.startedAt).Seconds())
		if m.trigger != "hold" {
			label += " (tap to stop)"
		}
		return styleRec.Render(label)
	case "transcribing":
		return styleBusy.Render(spinner(m.frame) + " transcribing…")
	case "post_processing":
		return styleBusy.Render(spinner(m.frame) + " polishing…")
	case "injecting":
		return styleBusy.Render(spinner(m.frame) + " pasting…")
	default:
		return styleIdle.Render("○ STANDBY")
	}
}

func spinner(frame int) string {
	frames := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	return frames[frame%len(frames)]
}

// meter renders the live input level as a bar.
func meter(level float64, width int) string {
	if width < 4 {
		width = 4
	}
	filled := int(level * 3.5 * float64(width))
	if filled > width {
		filled = width
	}
	var sb strings.Builder
	for i := 0; i < width; i++ {
		switch {
		case i >= filled:
			sb.WriteString(styleFaint.Render("·"))
		case float64(i) > float64(width)*0.8:
			sb.WriteString(styleMeterHi.Render("█"))
		default:
			sb.WriteString(styleMeterOn.Render("█"))
		}
	}
	return sb.String()
}

func (m tuiModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var lines []string
	lines = append(lines, "")
	lines = append(lines, " "+m.statusLine())

	if m.state == "recording" {
		lines = append(lines, " "+meter(m.level, 40))
		if m.warning {
			lines = append(lines, " "+styleWarn.Render("⚠ no voice detected"))
		}
	}

	lines = append(lines, "")
	if m.modeLine != "" {
		lines = append(lines, " "+styleFaint.Render(m.modeLine))
	}
	if m.deviceLine != "" {
		lines = append(lines, " "+styleFaint.Render(m.deviceLine))
	}
	if m.hasCredits {
		lines = append(lines, " "+styleFaint.Render(fmt.Sprintf("credits: %.1f", m.credits)))
	}

	lines = append(lines, "")
	if m.lastErr != "" {
		lines = append(lines, " "+styleErr.Render("✗ "+m.lastErr))
		lines = append(lines, "")
	}

	if m.lastText != "" {
		lines = append(lines, " "+styleFaint.Render(fmt.Sprintf("Last dictation (#%d)", m.msgCount)))
		wrapWidth := m.width - 4
		if wrapWidth > 76 {
			wrapWidth = 76
		}
		for _, l := range wrapText(m.lastText, wrapWidth) {
			lines = append(lines, "   "+styleText.Render(l))
		}
	} else if m.lastErr == "" {
		lines = append(lines, " "+styleFaint.Render("No dictations yet"))
	}

	lines = append(lines, "")
	lines = append(lines, " "+styleHelpKey.Render(m.hotkeyHint)+styleHelp.Render(" hold to talk, double-tap to toggle"))
	lines = append(lines, " "+styleHelp.Render("ctrl+c to quit"))

	return strings.Join(lines, "\n")
}

func wrapText(text string, width int) []string {
	if len(text) == 0 {
		return []string{""}
	}
	if width <= 0 {
		width = 1
	}

	var lines []string
	for len(text) > width {
		splitAt := width
		for i := width; i > 0; i-- {
			if text[i] == ' ' {
				splitAt = i
				break
			}
		}
		lines = append(lines, text[:splitAt])
		text = strings.TrimLeft(text[splitAt:], " ")
	}
	if len(text) > 0 {
		lines = append(lines, text)
	}
	return lines
}
