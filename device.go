package main

import (
	"fmt"
	"os"

	"github.com/halz/chotto-voice/audio"

	"golang.org/x/term"
)

type pickerAction int

const (
	pickNone pickerAction = iota
	pickUp
	pickDown
	pickConfirm
	pickAbort
	pickNumber
)

// decodeKey maps one raw stdin read to a picker action. Arrow keys
// arrive as a three-byte CSI sequence.
func decodeKey(buf []byte, n int) (pickerAction, int) {
	if n == 3 && buf[0] == 0x1b && buf[1] == '[' {
		switch buf[2] {
		case 'A':
			return pickUp, 0
		case 'B':
			return pickDown, 0
		}
		return pickNone, 0
	}
	if n != 1 {
		return pickNone, 0
	}
	switch c := buf[0]; {
	case c == '\r':
		return pickConfirm, 0
	case c == 3 || c == 'q':
		return pickAbort, 0
	case c == 'k':
		return pickUp, 0
	case c == 'j':
		return pickDown, 0
	case c >= '1' && c <= '9':
		return pickNumber, int(c - '1')
	}
	return pickNone, 0
}

// selectDevice runs a terminal picker over the available microphones.
// With a single device there is nothing to pick.
func selectDevice(ctx audio.Context) (*audio.DeviceInfo, error) {
	devices, err := ctx.Devices()
	if err != nil {
		return nil, fmt.Errorf("enumerating devices: %w", err)
	}
	if len(devices) == 0 {
		return nil, fmt.Errorf("no capture devices found")
	}
	if len(devices) == 1 {
		fmt.Printf("Using microphone: %s\n", devices[0].Name)
		return &devices[0], nil
	}

	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("setting raw mode: %w", err)
	}
	defer term.Restore(fd, oldState)

	cursor := 0
	draw := func() {
		fmt.Print("\r\x1b[J")
		fmt.Print("Select microphone (↑/↓ or number, Enter to confirm):\r\n\r\n")
		for i, d := range devices {
			marker, style, reset := " ", "", ""
			if i == cursor {
				marker, style, reset = "▶", "\x1b[1;36m", "\x1b[0m"
			}
			hint := ""
			if audio.IsBluetooth(d.Name) {
				hint = " \x1b[33m(bluetooth, reduced quality)\x1b[0m"
			}
			fmt.Printf("  %s%s %d. %s%s%s\r\n", style, marker, i+1, d.Name, reset, hint)
		}
	}
	draw()

	buf := make([]byte, 3)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil {
			return nil, fmt.Errorf("reading input: %w", err)
		}

		action, idx := decodeKey(buf, n)
		switch action {
		case pickConfirm:
			fmt.Print("\r\n")
			term.Restore(fd, oldState)
			return &devices[cursor], nil
		case pickAbort:
			fmt.Print("\r\n")
			term.Restore(fd, oldState)
			os.Exit(0)
		case pickUp:
			if cursor > 0 {
				cursor--
			}
		case pickDown:
			if cursor < len(devices)-1 {
				cursor++
			}
		case pickNumber:
			if idx < len(devices) {
				fmt.Print("\r\n")
				term.Restore(fd, oldState)
				return &devices[idx], nil
			}
		}

		fmt.Printf("\x1b[%dA", len(devices)+2)
		draw()
	}
}
