package strip

import (
	"sync"
	"sync/atomic"
	"time"
)

const memoryHistory = 1024

// Pixel is one native-order pixel as recorded by Memory.
type Pixel [3]uint8

// Frame is a pushed frame captured by Memory.
type Frame struct {
	Pixels []Pixel
	At     time.Time
}

// Memory is an in-process driver that records every pushed frame. It also
// flags overlapping driver calls, which the runner must never produce.
type Memory struct {
	mu      sync.Mutex
	buf     []Pixel
	frames  []Frame
	pushes  int
	failAt  int
	failErr error

	active   atomic.Int32
	overlaps atomic.Int32
}

// NewMemory creates a recording driver for count pixels.
func NewMemory(count int) *Memory {
	return &Memory{buf: make([]Pixel, count)}
}

func (m *Memory) enter() func() {
	if m.active.Add(1) > 1 {
		m.overlaps.Add(1)
	}
	return func() { m.active.Add(-1) }
}

// SetPixel implements Driver.
func (m *Memory) SetPixel(i int, c1, c2, c3 uint8) {
	defer m.enter()()
	m.mu.Lock()
	defer m.mu.Unlock()
	if i < 0 || i >= len(m.buf) {
		return
	}
	m.buf[i] = Pixel{c1, c2, c3}
}

// Fill implements Driver.
func (m *Memory) Fill(c1, c2, c3 uint8) {
	defer m.enter()()
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.buf {
		m.buf[i] = Pixel{c1, c2, c3}
	}
}

// Push implements Driver. A failure armed with FailAfter is returned once the
// push count is reached, and the frame is not recorded.
func (m *Memory) Push() error {
	defer m.enter()()
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pushes++
	if m.failErr != nil && m.pushes >= m.failAt {
		return m.failErr
	}

	m.frames = append(m.frames, Frame{Pixels: append([]Pixel(nil), m.buf...), At: time.Now()})
	if len(m.frames) > memoryHistory {
		m.frames = m.frames[len(m.frames)-memoryHistory:]
	}
	return nil
}

// Clear implements Driver.
func (m *Memory) Clear() error {
	m.Fill(0, 0, 0)
	return m.Push()
}

// Len implements Driver.
func (m *Memory) Len() int {
	return len(m.buf)
}

// Close implements Driver.
func (m *Memory) Close() error {
	return nil
}

// FailAfter makes the n-th and every later Push return err. A nil err disarms it.
func (m *Memory) FailAfter(n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAt = m.pushes + n
	m.failErr = err
}

// Frames returns a copy of the recorded frames, oldest first.
func (m *Memory) Frames() []Frame {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Frame(nil), m.frames...)
}

// Last returns the most recently pushed frame.
func (m *Memory) Last() (Frame, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.frames) == 0 {
		return Frame{}, false
	}
	return m.frames[len(m.frames)-1], true
}

// Pushes returns the number of Push calls, including failed ones.
func (m *Memory) Pushes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pushes
}

// Overlaps reports how many driver calls started while another was running.
func (m *Memory) Overlaps() int {
	return int(m.overlaps.Load())
}

// Reset drops the recorded frames.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames = nil
}

// Dark reports whether every pixel of the frame is off.
func (f Frame) Dark() bool {
	for _, p := range f.Pixels {
		if p != (Pixel{}) {
			return false
		}
	}
	return true
}
