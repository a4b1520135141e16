package strip

import "log/slog"

// noop keeps a frame buffer but transmits nothing. Used on hosts without a
// strip attached.
type noop struct {
	logger *slog.Logger
	pixels int
	pushes uint64
}

func newNoop(count int, logger *slog.Logger) *noop {
	return &noop{logger: logger, pixels: count}
}

func (n *noop) SetPixel(int, uint8, uint8, uint8) {}

func (n *noop) Fill(uint8, uint8, uint8) {}

func (n *noop) Push() error {
	n.pushes++
	if n.logger != nil && n.pushes%1000 == 1 {
		n.logger.Debug("Strip push discarded (no-op driver)", "pixels", n.pixels, "pushes", n.pushes)
	}
	return nil
}

func (n *noop) Clear() error {
	return n.Push()
}

func (n *noop) Len() int {
	return n.pixels
}

func (n *noop) Close() error {
	return nil
}
