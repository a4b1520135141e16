package pattern

import (
	"encoding/hex"
	"errors"
	"fmt"
	"image/color"
	"strings"
	"time"
)

// ErrInvalidColor is returned for colors that are not "#rrggbb".
var ErrInvalidColor = errors.New("invalid color")

// Settings is the user-tunable part of the pattern set, as stored in TOML.
// Empty fields fall back to the defaults.
type Settings struct {
	Rainbow RainbowSettings `toml:"rainbow" json:"rainbow"`
	Chase   ChaseSettings   `toml:"chase" json:"chase"`
	Fade    FadeSettings    `toml:"fade" json:"fade"`
}

// RainbowSettings configures the rainbow cycle.
type RainbowSettings struct {
	Palette []string `toml:"palette" json:"palette"`
	Delay   string   `toml:"delay" json:"delay"`
}

// ChaseSettings configures the chase.
type ChaseSettings struct {
	Color string `toml:"color" json:"color"`
	Delay string `toml:"delay" json:"delay"`
}

// FadeSettings configures the fade.
type FadeSettings struct {
	Delay string `toml:"delay" json:"delay"`
}

// DefaultSettings returns red/green/blue at 500ms, a red chase at 50ms and
// a 20ms fade.
func DefaultSettings() Settings {
	return Settings{
		Rainbow: RainbowSettings{
			Palette: []string{"#ff0000", "#00ff00", "#0000ff"},
			Delay:   "500ms",
		},
		Chase: ChaseSettings{Color: "#ff0000", Delay: "50ms"},
		Fade:  FadeSettings{Delay: "20ms"},
	}
}

// Set holds one pattern per mode.
type Set struct {
	patterns map[Mode]Pattern
}

// DefaultSet builds the set from DefaultSettings.
func DefaultSet() *Set {
	s, err := DefaultSettings().Build()
	if err != nil {
		panic(err)
	}
	return s
}

// Build validates the settings and constructs the pattern set.
func (s Settings) Build() (*Set, error) {
	def := DefaultSettings()

	paletteSrc := s.Rainbow.Palette
	if len(paletteSrc) == 0 {
		paletteSrc = def.Rainbow.Palette
	}
	palette := make([]color.RGBA, 0, len(paletteSrc))
	for _, hexColor := range paletteSrc {
		c, err := ParseColor(hexColor)
		if err != nil {
			return nil, fmt.Errorf("rainbow palette: %w", err)
		}
		palette = append(palette, c)
	}

	rainbowDelay, err := parseDelay(s.Rainbow.Delay, def.Rainbow.Delay)
	if err != nil {
		return nil, fmt.Errorf("rainbow delay: %w", err)
	}

	chaseColorSrc := s.Chase.Color
	if chaseColorSrc == "" {
		chaseColorSrc = def.Chase.Color
	}
	chaseColor, err := ParseColor(chaseColorSrc)
	if err != nil {
		return nil, fmt.Errorf("chase color: %w", err)
	}
	chaseDelay, err := parseDelay(s.Chase.Delay, def.Chase.Delay)
	if err != nil {
		return nil, fmt.Errorf("chase delay: %w", err)
	}

	fadeDelay, err := parseDelay(s.Fade.Delay, def.Fade.Delay)
	if err != nil {
		return nil, fmt.Errorf("fade delay: %w", err)
	}

	return &Set{patterns: map[Mode]Pattern{
		ModeRainbow: &Rainbow{Palette: palette, FrameDelay: rainbowDelay},
		ModeChase:   &Chase{Color: chaseColor, FrameDelay: chaseDelay},
		ModeFade:    &Fade{FrameDelay: fadeDelay},
	}}, nil
}

// Get returns the pattern for mode.
func (s *Set) Get(m Mode) (Pattern, bool) {
	p, ok := s.patterns[m]
	return p, ok
}

func parseDelay(s, fallback string) (time.Duration, error) {
	if s == "" {
		s = fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("delay must be positive, got %s", s)
	}
	return d, nil
}

// ParseColor parses "#rrggbb" (the leading # is optional).
func ParseColor(s string) (color.RGBA, error) {
	raw := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(raw) != 6 {
		return color.RGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	b, err := hex.DecodeString(raw)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	return color.RGBA{R: b[0], G: b[1], B: b[2], A: 0xff}, nil
}
