//go:build !linux

package strip

import "github.com/pkg/errors"

type spi struct{ noop }

func openSPI(device string, _, _ int) (*spi, error) {
	return nil, errors.Errorf("spi driver for %s requires linux spidev", device)
}
