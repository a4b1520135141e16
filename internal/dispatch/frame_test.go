package dispatch

import (
	"strings"
	"testing"
)

func frameStrings(frames []frame) []string {
	out := make([]string, len(frames))
	for i, f := range frames {
		if f.oversized {
			out[i] = "<oversized>"
		} else {
			out[i] = string(f.data)
		}
	}
	return out
}

func TestFramerFeed(t *testing.T) {
	tests := []struct {
		name   string
		chunks []string
		want   []string
	}{
		{"one line", []string{`{"command":"stop"}` + "\n"}, []string{`{"command":"stop"}`}},
		{"no terminator", []string{`{"command":"stop"}`}, []string{`{"command":"stop"}`}},
		{"split object", []string{`{"command":`, `"off"}` + "\n"}, []string{`{"command":"off"}`}},
		{"truncated line", []string{`{"command": "status"` + "\n"}, []string{`{"command": "status"`}},
		{"two lines", []string{"{oops\n{\"command\":\"stop\"}\n"}, []string{"{oops", `{"command":"stop"}`}},
		{"syntax error without newline", []string{`{oops`}, []string{`{oops`}},
		{"partial waits", []string{`{"command":"sta`}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var fr framer
			var got []string
			for _, c := range tt.chunks {
				got = append(got, frameStrings(fr.feed([]byte(c)))...)
			}
			if strings.Join(got, "|") != strings.Join(tt.want, "|") || len(got) != len(tt.want) {
				t.Errorf("frames = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFramerOversized(t *testing.T) {
	var fr framer
	long := `{"command":"` + strings.Repeat("x", maxLineSize)

	got := frameStrings(fr.feed([]byte(long)))
	if len(got) != 1 || got[0] != "<oversized>" {
		t.Fatalf("frames = %q, want one oversized", got)
	}
	if got := fr.feed([]byte(`xxxx"}` + "\n" + `{"command":"off"}` + "\n")); len(got) != 1 || string(got[0].data) != `{"command":"off"}` {
		t.Errorf("after oversized = %q", frameStrings(got))
	}
	if len(fr.pending) != 0 || fr.discard {
		t.Errorf("framer not reset: pending=%d discard=%v", len(fr.pending), fr.discard)
	}
}

func TestFramerFlush(t *testing.T) {
	var fr framer
	fr.feed([]byte(`{"command": "mode", "mode": 1`))
	got := frameStrings(fr.flush())
	if len(got) != 1 || got[0] != `{"command": "mode", "mode": 1` {
		t.Errorf("flush = %q", got)
	}
	if fr.flush() != nil {
		t.Error("second flush returned frames")
	}
}
