package pattern

import (
	"errors"
	"image/color"
	"testing"
	"time"
)

var (
	red   = color.RGBA{R: 255, A: 255}
	green = color.RGBA{G: 255, A: 255}
	blue  = color.RGBA{B: 255, A: 255}
)

func TestRainbowCyclesPalette(t *testing.T) {
	r := &Rainbow{Palette: []color.RGBA{red, green, blue}, FrameDelay: 500 * time.Millisecond}
	frame := make([]color.RGBA, 20)

	want := []color.RGBA{red, green, blue, red}
	for step, c := range want {
		r.Render(step, frame)
		for i, px := range frame {
			if px != c {
				t.Fatalf("step %d pixel %d = %v, want %v", step, i, px, c)
			}
		}
	}
}

func TestChaseLightsOnePixel(t *testing.T) {
	c := &Chase{Color: red, FrameDelay: 50 * time.Millisecond}
	frame := make([]color.RGBA, 5)

	for _, step := range []int{0, 3, 5, 12} {
		c.Render(step, frame)
		lit := 0
		for i, px := range frame {
			if px == red {
				lit++
				if i != step%5 {
					t.Errorf("step %d lit pixel %d, want %d", step, i, step%5)
				}
			} else if px != (color.RGBA{}) {
				t.Errorf("step %d pixel %d = %v, want off", step, i, px)
			}
		}
		if lit != 1 {
			t.Errorf("step %d lit %d pixels, want 1", step, lit)
		}
	}

	// An empty strip must not panic.
	c.Render(1, nil)
}

func TestFadeBrightnessSequence(t *testing.T) {
	var got []int
	for step := 0; step < 2*fadePeriod+1; step++ {
		got = append(got, FadeBrightness(step))
	}

	checks := map[int]int{
		0:   5,
		1:   10,
		50:  255,
		51:  250,
		100: 5,
		101: 0,
		102: 5,
		152: 255,
	}
	for step, want := range checks {
		if got[step] != want {
			t.Errorf("FadeBrightness(%d) = %d, want %d", step, got[step], want)
		}
	}

	for i := 1; i < len(got); i++ {
		diff := got[i] - got[i-1]
		if diff != 5 && diff != -5 {
			t.Fatalf("step %d jumps from %d to %d", i, got[i-1], got[i])
		}
	}
}

func TestFadeColorTruncates(t *testing.T) {
	tests := []struct {
		b    int
		want color.RGBA
	}{
		{0, color.RGBA{A: 255}},
		{5, color.RGBA{R: 5, G: 2, B: 4, A: 255}},
		{255, color.RGBA{R: 255, G: 127, B: 204, A: 255}},
	}
	for _, tt := range tests {
		if got := FadeColor(tt.b); got != tt.want {
			t.Errorf("FadeColor(%d) = %v, want %v", tt.b, got, tt.want)
		}
	}
}

func TestRenderIsDeterministic(t *testing.T) {
	set := DefaultSet()
	for _, m := range Modes {
		p, ok := set.Get(m)
		if !ok {
			t.Fatalf("mode %d missing from default set", m)
		}
		a := make([]color.RGBA, 8)
		b := make([]color.RGBA, 8)
		p.Render(7, a)
		p.Render(3, b)
		p.Render(7, b)
		for i := range a {
			if a[i] != b[i] {
				t.Errorf("%s: step 7 differs at pixel %d", p.Name(), i)
			}
		}
	}
}

func TestDefaultSetDelays(t *testing.T) {
	set := DefaultSet()
	want := map[Mode]time.Duration{
		ModeRainbow: 500 * time.Millisecond,
		ModeChase:   50 * time.Millisecond,
		ModeFade:    20 * time.Millisecond,
	}
	for m, d := range want {
		p, _ := set.Get(m)
		if p.Delay() != d {
			t.Errorf("%s delay = %v, want %v", m, p.Delay(), d)
		}
		if p.Mode() != m {
			t.Errorf("pattern for %d reports mode %d", m, p.Mode())
		}
	}
	if _, ok := set.Get(ModeNone); ok {
		t.Error("ModeNone must not resolve to a pattern")
	}
}

func TestSettingsBuild(t *testing.T) {
	s := Settings{
		Rainbow: RainbowSettings{Palette: []string{"#ffffff", "000080"}, Delay: "1s"},
		Chase:   ChaseSettings{Color: "#00ff00"},
	}
	set, err := s.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	p, _ := set.Get(ModeRainbow)
	rb := p.(*Rainbow)
	if len(rb.Palette) != 2 || rb.Palette[1] != (color.RGBA{B: 0x80, A: 255}) {
		t.Errorf("palette = %v", rb.Palette)
	}
	if rb.Delay() != time.Second {
		t.Errorf("rainbow delay = %v, want 1s", rb.Delay())
	}

	p, _ = set.Get(ModeChase)
	if ch := p.(*Chase); ch.Color != green || ch.Delay() != 50*time.Millisecond {
		t.Errorf("chase = %+v", ch)
	}
}

func TestSettingsBuildErrors(t *testing.T) {
	tests := []struct {
		name string
		s    Settings
	}{
		{"bad palette", Settings{Rainbow: RainbowSettings{Palette: []string{"#zz0000"}}}},
		{"short color", Settings{Chase: ChaseSettings{Color: "#fff"}}},
		{"bad delay", Settings{Fade: FadeSettings{Delay: "fast"}}},
		{"zero delay", Settings{Chase: ChaseSettings{Delay: "0s"}}},
	}
	for _, tt := range tests {
		if _, err := tt.s.Build(); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}

	if _, err := ParseColor("red"); !errors.Is(err, ErrInvalidColor) {
		t.Errorf("ParseColor(red) error = %v, want ErrInvalidColor", err)
	}
}

func TestModeValid(t *testing.T) {
	for m := Mode(-1); m <= 4; m++ {
		want := m >= 1 && m <= 3
		if m.Valid() != want {
			t.Errorf("Mode(%d).Valid() = %v, want %v", m, m.Valid(), want)
		}
	}
}
