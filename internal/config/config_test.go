package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/spf13/cobra"
)

type testOptions struct {
	Config string `help:"Config file path"`

	Port        string        `toml:"server.port" env:"SERVER_PORT"`
	IdleTimeout time.Duration `toml:"server.idle_timeout" env:"SERVER_IDLE_TIMEOUT"`
	StripCount  int           `toml:"strip.count" env:"STRIP_COUNT"`
	StatusLED   bool          `toml:"features.status_led" env:"FEATURES_STATUS_LED"`
	Palette     []string      `toml:"rainbow.palette" env:"RAINBOW_PALETTE"`
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

const sampleTOML = `
[server]
port = ":9999"
idle_timeout = "30s"

[strip]
count = 60

[features]
status_led = true

[rainbow]
palette = ["#ff0000", "#ffffff"]
`

func TestLoadConfigFromTOML(t *testing.T) {
	opts := &testOptions{Config: writeFile(t, sampleTOML)}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if opts.Port != ":9999" {
		t.Errorf("Port = %q, want :9999", opts.Port)
	}
	if opts.IdleTimeout != 30*time.Second {
		t.Errorf("IdleTimeout = %v, want 30s", opts.IdleTimeout)
	}
	if opts.StripCount != 60 {
		t.Errorf("StripCount = %d, want 60", opts.StripCount)
	}
	if !opts.StatusLED {
		t.Error("StatusLED = false, want true")
	}
	if want := []string{"#ff0000", "#ffffff"}; !reflect.DeepEqual(opts.Palette, want) {
		t.Errorf("Palette = %v, want %v", opts.Palette, want)
	}
}

func TestLoadConfigEnvOverridesTOML(t *testing.T) {
	t.Setenv("PIXELNODE_SERVER_PORT", ":7000")
	t.Setenv("PIXELNODE_SERVER_IDLE_TIMEOUT", "2m")
	t.Setenv("PIXELNODE_RAINBOW_PALETTE", " #000001 , #000002 ")

	opts := &testOptions{Config: writeFile(t, sampleTOML)}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if opts.Port != ":7000" {
		t.Errorf("Port = %q, want env value :7000", opts.Port)
	}
	if opts.IdleTimeout != 2*time.Minute {
		t.Errorf("IdleTimeout = %v, want 2m", opts.IdleTimeout)
	}
	if opts.StripCount != 60 {
		t.Errorf("StripCount = %d, want TOML value 60", opts.StripCount)
	}
	if want := []string{"#000001", "#000002"}; !reflect.DeepEqual(opts.Palette, want) {
		t.Errorf("Palette = %v, want %v", opts.Palette, want)
	}
}

func TestLoadConfigCLIWins(t *testing.T) {
	t.Setenv("PIXELNODE_STRIP_COUNT", "10")

	var count int
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().IntVar(&count, "strip-count", 20, "")
	cmd.Flags().String("port", ":8888", "")
	if err := cmd.Flags().Parse([]string{"--strip-count=5"}); err != nil {
		t.Fatalf("flag parse: %v", err)
	}

	opts := &testOptions{Config: writeFile(t, sampleTOML), StripCount: 5}
	if err := LoadConfig(opts, cmd); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if opts.StripCount != 5 {
		t.Errorf("StripCount = %d, want CLI value 5", opts.StripCount)
	}
	if opts.Port != ":9999" {
		t.Errorf("Port = %q, want TOML value since flag was not set", opts.Port)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	opts := &testOptions{Config: filepath.Join(t.TempDir(), "absent.toml"), Port: ":8888"}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig should not fail for missing file: %v", err)
	}
	if opts.Port != ":8888" {
		t.Errorf("Port changed to %q", opts.Port)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		toml string
		env  map[string]string
	}{
		{name: "invalid toml", toml: "[server\nport ="},
		{name: "wrong type", toml: "[strip]\ncount = \"many\"\n"},
		{name: "bad duration", toml: "[server]\nidle_timeout = \"soon\"\n"},
		{name: "bad env int", env: map[string]string{"PIXELNODE_STRIP_COUNT": "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			opts := &testOptions{Config: writeFile(t, tt.toml)}
			if err := LoadConfig(opts, nil); err == nil {
				t.Error("expected error")
			}
		})
	}

	if err := LoadConfig(testOptions{}, nil); err == nil {
		t.Error("expected error for non-pointer options")
	}
}

func TestFieldNameToFlag(t *testing.T) {
	tests := map[string]string{
		"Port":              "port",
		"StripDevice":       "strip-device",
		"FeaturesStatusLED": "features-status-led",
		"LoggingLevel":      "logging-level",
		"HTTPPort":          "http-port",
		"NatsURL":           "nats-url",
		"LoggingAPI":        "logging-api",
	}
	for in, want := range tests {
		if got := fieldNameToFlag(in); got != want {
			t.Errorf("fieldNameToFlag(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestGetNestedValue(t *testing.T) {
	data := map[string]any{
		"strip": map[string]any{
			"spi":   map[string]any{"device": "/dev/spidev0.0"},
			"count": int64(20),
		},
		"root": "value",
	}

	tests := []struct {
		path string
		want any
	}{
		{"root", "value"},
		{"strip.count", int64(20)},
		{"strip.spi.device", "/dev/spidev0.0"},
		{"missing", nil},
		{"root.child", nil},
		{"strip.missing", nil},
	}
	for _, tt := range tests {
		if got := getNestedValue(data, tt.path); got != tt.want {
			t.Errorf("getNestedValue(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestSetFieldValueDuration(t *testing.T) {
	var s struct{ D time.Duration }
	field := reflect.ValueOf(&s).Elem().Field(0)

	if err := setFieldValue(field, "250ms"); err != nil || s.D != 250*time.Millisecond {
		t.Errorf("string duration: got %v, err %v", s.D, err)
	}
	if err := setFieldValue(field, int64(3)); err != nil || s.D != 3*time.Second {
		t.Errorf("integer seconds: got %v, err %v", s.D, err)
	}
	if err := setFieldValue(field, true); err == nil {
		t.Error("expected error for bool duration")
	}
}
