package tray

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"
)

var (
	iconIdle   []byte
	iconIdleHi []byte
	iconRecHi  []byte
	iconWarnHi []byte
)

var (
	micRed    = color.RGBA{R: 255, G: 59, B: 48, A: 255}
	badgeGold = color.RGBA{R: 255, G: 204, B: 0, A: 255}
	badgeInk  = color.RGBA{R: 40, G: 40, B: 40, A: 255}
)

func init() {
	iconIdle = encodePNG(renderMic(22, color.RGBA{A: 255}, false))
	iconIdleHi = encodePNG(renderMic(44, color.RGBA{A: 255}, false))
	iconRecHi = encodePNG(renderMic(44, micRed, false))
	iconWarnHi = encodePNG(renderMic(44, micRed, true))
}

func encodePNG(img image.Image) []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic("encodePNG: " + err.Error())
	}
	return buf.Bytes()
}

// renderMic draws a microphone glyph: a rounded capsule, a cradle arc
// around its lower half, and a short stem with a base. badge adds the
// silence-warning marker in the corner.
func renderMic(size int, ink color.RGBA, badge bool) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	s := float64(size)

	capW := s * 0.30
	capTop := s * 0.08
	capBot := s * 0.52
	cx := s / 2

	arcR := s * 0.28
	arcCY := capBot - arcR*0.35
	arcW := s * 0.055

	stemTop := arcCY + arcR
	stemBot := s * 0.88
	baseHW := s * 0.16

	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			fx, fy := float64(x)+0.5, float64(y)+0.5
			if inCapsule(fx, fy, cx, capTop, capBot, capW/2) ||
				inArc(fx, fy, cx, arcCY, arcR, arcW) ||
				inStem(fx, fy, cx, stemTop, stemBot, arcW, baseHW) {
				img.Set(x, y, ink)
			}
		}
	}

	if badge {
		drawBadge(img, size)
	}
	return img
}

func inCapsule(fx, fy, cx, top, bot, hw float64) bool {
	if math.Abs(fx-cx) > hw {
		return false
	}
	switch {
	case fy < top+hw:
		return math.Hypot(fx-cx, fy-(top+hw)) <= hw
	case fy > bot-hw:
		return math.Hypot(fx-cx, fy-(bot-hw)) <= hw
	default:
		return fy >= top && fy <= bot
	}
}

func inArc(fx, fy, cx, cy, r, w float64) bool {
	if fy < cy {
		return false
	}
	d := math.Hypot(fx-cx, fy-cy)
	return d >= r-w && d <= r+w
}

func inStem(fx, fy, cx, top, bot, hw, baseHW float64) bool {
	if fy >= top && fy <= bot && math.Abs(fx-cx) <= hw {
		return true
	}
	// base plate
	return fy >= bot-hw && fy <= bot+hw && math.Abs(fx-cx) <= baseHW
}

// drawBadge overlays a small round marker with an exclamation bar in
// the bottom-right corner.
func drawBadge(img *image.RGBA, size int) {
	s := float64(size)
	r := s * 0.30
	cx, cy := s-r, s-r
	barHW := r * 0.22

	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			fx, fy := float64(x)+0.5, float64(y)+0.5
			if math.Hypot(fx-cx, fy-cy) > r {
				continue
			}
			ny := (fy - (cy - r*0.65)) / (r * 1.3)
			if math.Abs(fx-cx) <= barHW && (ny >= 0.08 && ny <= 0.58 || ny >= 0.70 && ny <= 0.86) {
				img.Set(x, y, badgeInk)
			} else {
				img.Set(x, y, badgeGold)
			}
		}
	}
}
