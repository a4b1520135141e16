package strip

// WS2812 bits are shaped on the SPI MOSI line: with the bus clocked at eight
// times the signal frequency, every data bit becomes one SPI byte whose
// high-time encodes the bit.
const (
	spiBitOne  byte = 0xF8
	spiBitZero byte = 0xC0

	// resetMicros is the latch low-time appended after each frame.
	resetMicros = 300
)

// spiClockHz returns the SPI bus clock for a WS2812 signal frequency in kHz.
func spiClockHz(frequencyKHz int) int {
	return frequencyKHz * 1000 * 8
}

// resetLen returns the number of zero bytes needed to hold the line low for
// resetMicros at the given signal frequency.
func resetLen(frequencyKHz int) int {
	return frequencyKHz * resetMicros / 1000
}

// encodeSPI expands native channel bytes into SPI bytes, MSB first, followed
// by the reset tail. dst is reused when large enough.
func encodeSPI(dst, pixels []byte, reset int) []byte {
	need := len(pixels)*8 + reset
	if cap(dst) < need {
		dst = make([]byte, need)
	}
	dst = dst[:need]

	i := 0
	for _, v := range pixels {
		for bit := 7; bit >= 0; bit-- {
			if v&(1<<uint(bit)) != 0 {
				dst[i] = spiBitOne
			} else {
				dst[i] = spiBitZero
			}
			i++
		}
	}
	clear(dst[i:])
	return dst
}
