package hotkey

import (
	"fmt"
	"strings"
)

type Hotkey interface {
	Register() error
	Unregister()
	Keydown() <-chan struct{}
	Keyup() <-chan struct{}
}

// Binding is a parsed hotkey combination, e.g. "ctrl+shift+space".
type Binding struct {
	Mods []string // "ctrl", "shift", "alt"
	Key  string   // "space" or a single letter
}

func (b Binding) String() string {
	return strings.Join(append(append([]string{}, b.Mods...), b.Key), "+")
}

// ParseBinding parses a "+"-separated combination. The last part is the main
// key; everything before it must be a modifier.
func ParseBinding(s string) (Binding, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "+")
	if len(parts) == 0 || parts[len(parts)-1] == "" {
		return Binding{}, fmt.Errorf("empty hotkey binding")
	}

	b := Binding{Key: strings.TrimSpace(parts[len(parts)-1])}
	for _, p := range parts[:len(parts)-1] {
		switch strings.TrimSpace(p) {
		case "ctrl", "control":
			b.Mods = append(b.Mods, "ctrl")
		case "shift":
			b.Mods = append(b.Mods, "shift")
		case "alt", "option":
			b.Mods = append(b.Mods, "alt")
		default:
			return Binding{}, fmt.Errorf("unknown modifier %q in binding %q", p, s)
		}
	}

	if b.Key != "space" && (len(b.Key) != 1 || b.Key[0] < 'a' || b.Key[0] > 'z') {
		return Binding{}, fmt.Errorf("unsupported key %q in binding %q (use space or a letter)", b.Key, s)
	}
	return b, nil
}

// DefaultBinding matches the binding the settings file ships with.
var DefaultBinding = Binding{Mods: []string{"ctrl", "shift"}, Key: "space"}
