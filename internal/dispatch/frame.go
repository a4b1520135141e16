package dispatch

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
)

// maxLineSize bounds one command line. Longer lines are answered with
// "invalid JSON" and dropped up to the next newline.
const maxLineSize = 64 * 1024

// frame is one unit of client input: a line, or a newline-less write
// that already holds complete JSON.
type frame struct {
	data      []byte
	oversized bool
}

// framer splits a session byte stream into frames. Commands normally end
// with a newline; a client that sends one object per write without a
// terminator is served as soon as the buffered bytes form complete JSON.
type framer struct {
	pending []byte
	discard bool // inside an oversized line
}

// feed consumes data and returns the frames it completes.
func (f *framer) feed(data []byte) []frame {
	var out []frame
	for len(data) > 0 {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			if !f.discard {
				f.pending = append(f.pending, data...)
			}
			break
		}
		line := data[:i]
		data = data[i+1:]

		if f.discard {
			f.discard = false
			continue
		}
		if len(f.pending)+len(line) > maxLineSize {
			f.pending = nil
			out = append(out, frame{oversized: true})
			continue
		}
		out = append(out, frame{data: append(f.pending, line...)})
		f.pending = nil
	}

	switch {
	case len(f.pending) > maxLineSize:
		f.pending = nil
		f.discard = true
		out = append(out, frame{oversized: true})
	case !incomplete(f.pending):
		out = append(out, frame{data: f.pending})
		f.pending = nil
	}
	return out
}

// flush returns whatever is left once the client stops sending.
func (f *framer) flush() []frame {
	if f.discard || len(bytes.TrimSpace(f.pending)) == 0 {
		return nil
	}
	out := []frame{{data: f.pending}}
	f.pending = nil
	return out
}

// incomplete reports whether b is blank or ends inside a JSON value, so
// more input could still complete it. Syntax errors are complete: no later
// byte can repair them.
func incomplete(b []byte) bool {
	if len(bytes.TrimSpace(b)) == 0 {
		return true
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	for {
		var v json.RawMessage
		err := dec.Decode(&v)
		switch {
		case err == nil:
			continue
		case errors.Is(err, io.EOF):
			return false
		default:
			return errors.Is(err, io.ErrUnexpectedEOF)
		}
	}
}
