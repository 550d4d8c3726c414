// Package shutdown delivers termination signals with the right set per
// platform. Windows has no SIGTERM, so only Interrupt is watched there.
package shutdown

import (
	"os"
	"os/signal"
)

// Listen returns a channel that receives one value per termination
// signal. The channel is buffered so a signal arriving before anyone
// reads is not lost.
func Listen() <-chan os.Signal {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, signals...)
	return ch
}
