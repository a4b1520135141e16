// Package pattern holds the strip animations. Patterns are pure: Render
// fills a frame for a step number and keeps no state between calls, so the
// same step always yields the same frame.
package pattern

import (
	"image/color"
	"time"
)

// Mode is the wire number of a pattern.
type Mode int

// Known modes. ModeNone is reported while idle.
const (
	ModeNone    Mode = 0
	ModeRainbow Mode = 1
	ModeChase   Mode = 2
	ModeFade    Mode = 3
)

// Modes lists the valid modes in wire order.
var Modes = []Mode{ModeRainbow, ModeChase, ModeFade}

// Valid reports whether m names a pattern.
func (m Mode) Valid() bool {
	return m >= ModeRainbow && m <= ModeFade
}

func (m Mode) String() string {
	switch m {
	case ModeRainbow:
		return "rainbow"
	case ModeChase:
		return "chase"
	case ModeFade:
		return "fade"
	case ModeNone:
		return "none"
	default:
		return "invalid"
	}
}

// Pattern renders animation frames.
type Pattern interface {
	Mode() Mode
	Name() string
	// Delay is the pause between two frames.
	Delay() time.Duration
	// Render writes the frame for step into frame. The strip length is len(frame).
	Render(step int, frame []color.RGBA)
}

var off = color.RGBA{}

// Rainbow shows one palette color on the whole strip, advancing one entry
// per frame.
type Rainbow struct {
	Palette    []color.RGBA
	FrameDelay time.Duration
}

func (r *Rainbow) Mode() Mode           { return ModeRainbow }
func (r *Rainbow) Name() string         { return ModeRainbow.String() }
func (r *Rainbow) Delay() time.Duration { return r.FrameDelay }

func (r *Rainbow) Render(step int, frame []color.RGBA) {
	c := off
	if n := len(r.Palette); n > 0 {
		c = r.Palette[step%n]
	}
	for i := range frame {
		frame[i] = c
	}
}

// Chase lights a single pixel that walks along the strip.
type Chase struct {
	Color      color.RGBA
	FrameDelay time.Duration
}

func (c *Chase) Mode() Mode           { return ModeChase }
func (c *Chase) Name() string         { return ModeChase.String() }
func (c *Chase) Delay() time.Duration { return c.FrameDelay }

func (c *Chase) Render(step int, frame []color.RGBA) {
	if len(frame) == 0 {
		return
	}
	lit := step % len(frame)
	for i := range frame {
		if i == lit {
			frame[i] = c.Color
		} else {
			frame[i] = off
		}
	}
}

// fadePeriod is the number of frames in one brightness cycle: 5..255 up,
// 250..0 down.
const fadePeriod = 102

// Fade pulses a warm tint up and down in brightness steps of 5.
type Fade struct {
	FrameDelay time.Duration
}

func (f *Fade) Mode() Mode           { return ModeFade }
func (f *Fade) Name() string         { return ModeFade.String() }
func (f *Fade) Delay() time.Duration { return f.FrameDelay }

func (f *Fade) Render(step int, frame []color.RGBA) {
	c := FadeColor(FadeBrightness(step))
	for i := range frame {
		frame[i] = c
	}
}

// FadeBrightness returns the brightness of frame step: 5, 10, ..., 255,
// 250, ..., 0, 5, ...
func FadeBrightness(step int) int {
	p := (step + 1) % fadePeriod
	if p <= fadePeriod/2 {
		return 5 * p
	}
	return 5 * (fadePeriod - p)
}

// FadeColor derives the fade tint for brightness b.
func FadeColor(b int) color.RGBA {
	return color.RGBA{
		R: uint8(b),
		G: uint8(float64(b) * 0.5),
		B: uint8(float64(b) * 0.8),
		A: 0xff,
	}
}
