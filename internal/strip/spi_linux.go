//go:build linux

package strip

import (
	"os"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// SPI_IOC_WR_MAX_SPEED_HZ from linux/spi/spidev.h.
const spiIOCWrMaxSpeedHz = 0x40046b04

// spi drives a WS2812 strip through a spidev character device.
type spi struct {
	mu     sync.Mutex
	file   *os.File
	pixels []byte
	tx     []byte
	reset  int
}

func openSPI(device string, count, frequencyKHz int) (*spi, error) {
	f, err := os.OpenFile(device, os.O_RDWR, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", device)
	}

	if err := unix.IoctlSetPointerInt(int(f.Fd()), spiIOCWrMaxSpeedHz, spiClockHz(frequencyKHz)); err != nil {
		f.Close()
		return nil, errors.Wrap(err, "set spi clock")
	}

	return &spi{
		file:   f,
		pixels: make([]byte, count*3),
		reset:  resetLen(frequencyKHz),
	}, nil
}

func (s *spi) SetPixel(i int, c1, c2, c3 uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i*3 >= len(s.pixels) {
		return
	}
	s.pixels[i*3], s.pixels[i*3+1], s.pixels[i*3+2] = c1, c2, c3
}

func (s *spi) Fill(c1, c2, c3 uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < len(s.pixels); i += 3 {
		s.pixels[i], s.pixels[i+1], s.pixels[i+2] = c1, c2, c3
	}
}

func (s *spi) Push() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return errors.New("spi device closed")
	}
	s.tx = encodeSPI(s.tx, s.pixels, s.reset)
	if _, err := s.file.Write(s.tx); err != nil {
		return errors.Wrap(err, "spi write")
	}
	return nil
}

func (s *spi) Clear() error {
	s.Fill(0, 0, 0)
	return s.Push()
}

func (s *spi) Len() int {
	return len(s.pixels) / 3
}

func (s *spi) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return errors.Wrap(err, "close spi device")
}
