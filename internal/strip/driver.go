// Package strip defines the addressable LED strip driver contract and the
// drivers pixelnode ships with.
//
// Drivers take channel values in their own transmission order (WS2812 parts
// expect green, red, blue). Pattern code never calls a Driver directly; it
// hands color.RGBA frames to a Painter, which owns the single mapping from
// RGB intent to native order.
package strip

import (
	"errors"
	"fmt"
	"image/color"
	"strings"
)

// Driver is a frame buffer in front of the strip hardware. All channel
// arguments are in the driver's native transmission order.
type Driver interface {
	// SetPixel buffers one pixel. Out of range indices are ignored.
	SetPixel(i int, c1, c2, c3 uint8)
	// Fill buffers the same value for every pixel.
	Fill(c1, c2, c3 uint8)
	// Push transmits the buffered frame to the hardware.
	Push() error
	// Clear fills the buffer with zero and pushes it.
	Clear() error
	// Len returns the number of pixels on the strip.
	Len() int
	// Close releases the device.
	Close() error
}

var (
	// ErrUnknownOrder is returned for channel orders other than permutations of "rgb".
	ErrUnknownOrder = errors.New("unknown channel order")
	// ErrUnknownDriver is returned by New for unsupported driver names.
	ErrUnknownDriver = errors.New("unknown strip driver")
)

// Order names the native channel transmission order, e.g. "grb".
type Order string

// Common orders.
const (
	OrderRGB Order = "rgb"
	OrderGRB Order = "grb"
	OrderBRG Order = "brg"
)

// ParseOrder validates a channel order string.
func ParseOrder(s string) (Order, error) {
	o := Order(strings.ToLower(strings.TrimSpace(s)))
	if len(o) != 3 || !strings.Contains(string(o), "r") || !strings.Contains(string(o), "g") || !strings.Contains(string(o), "b") {
		return "", fmt.Errorf("%w: %q", ErrUnknownOrder, s)
	}
	return o, nil
}

// Native maps an RGB intent to the three native channel values.
func (o Order) Native(c color.RGBA) (c1, c2, c3 uint8) {
	var out [3]uint8
	for i := 0; i < 3 && i < len(o); i++ {
		switch o[i] {
		case 'r':
			out[i] = c.R
		case 'g':
			out[i] = c.G
		case 'b':
			out[i] = c.B
		}
	}
	return out[0], out[1], out[2]
}

// Painter writes RGB frames to a Driver using one channel order.
type Painter struct {
	driver Driver
	order  Order
}

// NewPainter creates a Painter for driver with the given native order.
func NewPainter(driver Driver, order Order) *Painter {
	return &Painter{driver: driver, order: order}
}

// Len returns the strip length.
func (p *Painter) Len() int {
	return p.driver.Len()
}

// Order returns the native channel order used by this painter.
func (p *Painter) Order() Order {
	return p.order
}

// Show buffers frame and pushes it. Pixels beyond the strip length are dropped.
func (p *Painter) Show(frame []color.RGBA) error {
	n := min(len(frame), p.driver.Len())
	for i := 0; i < n; i++ {
		c1, c2, c3 := p.order.Native(frame[i])
		p.driver.SetPixel(i, c1, c2, c3)
	}
	return p.driver.Push()
}

// Blank turns every pixel off.
func (p *Painter) Blank() error {
	p.driver.Fill(0, 0, 0)
	return p.driver.Push()
}

// Close closes the underlying driver.
func (p *Painter) Close() error {
	return p.driver.Close()
}
