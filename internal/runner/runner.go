package runner

import (
	"errors"
	"image/color"
	"log/slog"
	"sync"
	"time"

	"github.com/smazurov/pixelnode/internal/events"
	"github.com/smazurov/pixelnode/internal/logging"
	"github.com/smazurov/pixelnode/internal/metrics"
	"github.com/smazurov/pixelnode/internal/pattern"
	"github.com/smazurov/pixelnode/internal/strip"
)

var (
	// ErrInvalidMode is returned for modes outside 1-3 and nil patterns.
	ErrInvalidMode = errors.New("invalid mode")
	// ErrStripBusy is returned when a previous worker is still writing to
	// the strip after its stop deadline.
	ErrStripBusy = errors.New("previous pattern did not stop")
	// ErrClosed is returned by Start after Shutdown.
	ErrClosed = errors.New("runner shut down")
)

const (
	defaultStopFloor  = time.Second
	defaultStopFactor = 4
)

// Options configures a Runner.
type Options struct {
	// Patterns resolves modes; defaults to pattern.DefaultSet.
	Patterns *pattern.Set
	// StopTimeoutFloor is the minimum wait for a worker to exit.
	StopTimeoutFloor time.Duration
	// StopTimeoutFactor multiplies the frame delay for the exit wait.
	StopTimeoutFactor int
	// Bus receives state events. They are published under the state lock,
	// so subscribers must not call back into the Runner synchronously.
	Bus    *events.Bus
	Logger *slog.Logger
}

// Status is a snapshot of the runner state.
type Status struct {
	Mode       pattern.Mode
	Pattern    string
	Running    bool
	Generation uint64
}

type worker struct {
	gen     uint64
	pattern pattern.Pattern
	quit    chan struct{}
	done    chan struct{}
}

// Runner drives a strip with one pattern at a time.
type Runner struct {
	painter    *strip.Painter
	bus        *events.Bus
	logger     *slog.Logger
	stopFloor  time.Duration
	stopFactor int

	// transition serializes state changes and strip writes outside workers.
	transition sync.Mutex
	straggler  *worker
	closed     bool

	mu         sync.RWMutex
	patterns   *pattern.Set
	active     pattern.Pattern
	running    bool
	current    *worker
	generation uint64
}

// New creates an idle runner that owns painter.
func New(painter *strip.Painter, opts Options) *Runner {
	r := &Runner{
		painter:    painter,
		bus:        opts.Bus,
		logger:     opts.Logger,
		stopFloor:  opts.StopTimeoutFloor,
		stopFactor: opts.StopTimeoutFactor,
		patterns:   opts.Patterns,
	}
	if r.logger == nil {
		r.logger = logging.GetLogger("runner")
	}
	if r.stopFloor <= 0 {
		r.stopFloor = defaultStopFloor
	}
	if r.stopFactor <= 0 {
		r.stopFactor = defaultStopFactor
	}
	if r.patterns == nil {
		r.patterns = pattern.DefaultSet()
	}
	return r
}

// StartMode starts the pattern registered for m, replacing any running one.
func (r *Runner) StartMode(m pattern.Mode) error {
	if !m.Valid() {
		return ErrInvalidMode
	}

	r.transition.Lock()
	defer r.transition.Unlock()

	r.mu.RLock()
	p, ok := r.patterns.Get(m)
	r.mu.RUnlock()
	if !ok {
		return ErrInvalidMode
	}
	return r.startLocked(p)
}

// Start runs p, replacing any running pattern. Starting the pattern that is
// already running restarts it from its first frame.
func (r *Runner) Start(p pattern.Pattern) error {
	if p == nil || !p.Mode().Valid() {
		return ErrInvalidMode
	}

	r.transition.Lock()
	defer r.transition.Unlock()
	return r.startLocked(p)
}

func (r *Runner) startLocked(p pattern.Pattern) error {
	if r.closed {
		return ErrClosed
	}
	if _, err := r.retireLocked(); err != nil {
		return err
	}

	w := &worker{
		pattern: p,
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}

	// Observers see events in the order state changes: the gauge and the
	// start event are emitted inside the same critical section.
	r.mu.Lock()
	r.generation++
	w.gen = r.generation
	r.active, r.running, r.current = p, true, w
	metrics.SetActiveMode(int(p.Mode()))
	r.bus.Publish(startEvent(p, w.gen))
	r.mu.Unlock()

	go r.run(w)

	r.logger.Info("Pattern started", "pattern", p.Name(), "mode", int(p.Mode()), "generation", w.gen)
	metrics.IncStarts(p.Name())
	return nil
}

// Stop ends the running pattern and blanks the strip. Stopping an idle
// runner does nothing. Stop always succeeds: the runner is idle on return
// even when the blank write failed or a straggler still holds the strip;
// both are logged and counted.
func (r *Runner) Stop() error {
	r.transition.Lock()
	defer r.transition.Unlock()

	wasRunning, _ := r.retireLocked()
	if wasRunning {
		r.publishIdle(events.ReasonStop)
	}
	return nil
}

// Off stops any running pattern and blanks the strip unconditionally. A
// failed blank write is logged and counted but not returned. Off fails only
// with ErrStripBusy, when an abandoned worker may still be writing.
func (r *Runner) Off() error {
	r.transition.Lock()
	defer r.transition.Unlock()

	wasRunning, err := r.retireLocked()
	if err == nil && !wasRunning {
		err = r.blank()
	}
	r.publishIdle(events.ReasonOff)
	if errors.Is(err, ErrStripBusy) {
		return err
	}
	return nil
}

// Shutdown stops the runner for good and leaves the strip dark. Later
// starts fail with ErrClosed.
func (r *Runner) Shutdown() error {
	r.transition.Lock()
	defer r.transition.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	wasRunning, err := r.retireLocked()
	if err == nil && !wasRunning {
		err = r.blank()
	}
	r.publishIdle(events.ReasonShutdown)
	r.logger.Info("Runner shut down")
	return err
}

// Reload swaps the pattern set. A running pattern is restarted with its
// replacement; reports whether that happened.
func (r *Runner) Reload(set *pattern.Set) (bool, error) {
	if set == nil {
		return false, errors.New("nil pattern set")
	}

	r.transition.Lock()
	defer r.transition.Unlock()

	r.mu.Lock()
	r.patterns = set
	active, running := r.active, r.running
	r.mu.Unlock()

	if !running || r.closed {
		return false, nil
	}
	p, ok := set.Get(active.Mode())
	if !ok {
		return false, ErrInvalidMode
	}
	r.logger.Info("Restarting pattern with reloaded settings", "pattern", p.Name())
	return true, r.startLocked(p)
}

// Status returns the current mode and running flag. It never waits for a
// transition or touches the strip.
func (r *Runner) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := Status{Running: r.running, Generation: r.generation}
	if r.active != nil {
		s.Mode = r.active.Mode()
		s.Pattern = r.active.Name()
	}
	return s
}

// retireLocked clears the state, stops the current worker and blanks the
// strip once that worker has exited. It reports whether a worker was
// running; an idle, clean strip is left untouched. Must hold transition.
func (r *Runner) retireLocked() (bool, error) {
	// A straggler that finally exited left its last frame on the strip.
	staleFrame := false
	if r.straggler != nil {
		if !r.await(r.straggler) {
			r.logger.Error("Previous worker still holds the strip", "generation", r.straggler.gen)
			return false, ErrStripBusy
		}
		r.logger.Info("Straggling worker exited", "generation", r.straggler.gen)
		r.straggler = nil
		staleFrame = true
	}

	r.mu.Lock()
	w := r.current
	r.active, r.running, r.current = nil, false, nil
	if w != nil {
		metrics.SetActiveMode(0)
	}
	r.mu.Unlock()

	if w == nil {
		if staleFrame {
			return false, r.blank()
		}
		return false, nil
	}

	close(w.quit)
	if !r.await(w) {
		r.logger.Error("Worker did not stop before deadline, skipping blank",
			"pattern", w.pattern.Name(),
			"generation", w.gen,
			"timeout", r.stopTimeout(w))
		metrics.IncUnresponsiveWorkers()
		r.straggler = w
		return true, ErrStripBusy
	}
	return true, r.blank()
}

func (r *Runner) stopTimeout(w *worker) time.Duration {
	return max(r.stopFloor, time.Duration(r.stopFactor)*w.pattern.Delay())
}

// await waits for w to exit, bounded by its stop timeout.
func (r *Runner) await(w *worker) bool {
	t := time.NewTimer(r.stopTimeout(w))
	defer t.Stop()
	select {
	case <-w.done:
		return true
	case <-t.C:
		return false
	}
}

func (r *Runner) blank() error {
	if err := r.painter.Blank(); err != nil {
		r.logger.Error("Failed to blank strip", "error", err)
		metrics.IncDriverErrors()
		return err
	}
	return nil
}

// run is the worker loop: render, push, then wait one frame delay or until
// quit is closed.
func (r *Runner) run(w *worker) {
	frame := make([]color.RGBA, r.painter.Len())
	name := w.pattern.Name()
	delay := w.pattern.Delay()

	timer := time.NewTimer(delay)
	defer timer.Stop()

	for step := 0; ; step++ {
		select {
		case <-w.quit:
			close(w.done)
			return
		default:
		}

		w.pattern.Render(step, frame)
		if err := r.painter.Show(frame); err != nil {
			r.fail(w, err)
			return
		}
		metrics.IncFrames(name)

		timer.Reset(delay)
		select {
		case <-w.quit:
			close(w.done)
			return
		case <-timer.C:
		}
	}
}

// fail ends a worker after a driver error. The best-effort blank happens
// before done is closed so no other writer can overlap it; the shared state
// is cleared only if w is still the current worker.
func (r *Runner) fail(w *worker, err error) {
	r.logger.Error("Strip write failed, stopping pattern",
		"pattern", w.pattern.Name(),
		"generation", w.gen,
		"error", err)
	metrics.IncDriverErrors()

	if blankErr := r.painter.Blank(); blankErr != nil {
		r.logger.Debug("Best-effort blank failed", "error", blankErr)
	}
	close(w.done)

	r.bus.Publish(events.DriverErrorEvent{
		Pattern:   w.pattern.Name(),
		Error:     err.Error(),
		Timestamp: now(),
	})

	// No transition lock here: state, gauge and idle event change in one
	// critical section so a racing start is ordered after all three.
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current != w {
		return
	}
	r.active, r.running, r.current = nil, false, nil
	metrics.SetActiveMode(0)
	r.bus.Publish(idleEvent(events.ReasonDriverError, w.gen))
}

// publishIdle announces an idle runner. Must hold transition.
func (r *Runner) publishIdle(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bus.Publish(idleEvent(reason, r.generation))
}

func startEvent(p pattern.Pattern, gen uint64) events.ModeChangedEvent {
	return events.ModeChangedEvent{
		Mode:       int(p.Mode()),
		Pattern:    p.Name(),
		Running:    true,
		Reason:     events.ReasonStart,
		Generation: gen,
		Timestamp:  now(),
	}
}

func idleEvent(reason string, gen uint64) events.ModeChangedEvent {
	return events.ModeChangedEvent{
		Mode:       int(pattern.ModeNone),
		Pattern:    pattern.ModeNone.String(),
		Reason:     reason,
		Generation: gen,
		Timestamp:  now(),
	}
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
