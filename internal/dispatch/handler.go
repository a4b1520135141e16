package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/smazurov/pixelnode/internal/metrics"
	"github.com/smazurov/pixelnode/internal/pattern"
	"github.com/smazurov/pixelnode/internal/runner"
)

// Controller is the part of the runner the handler drives.
type Controller interface {
	StartMode(m pattern.Mode) error
	Stop() error
	Off() error
	Status() runner.Status
}

// Handler executes commands against a Controller.
type Handler struct {
	ctrl   Controller
	logger *slog.Logger
}

// NewHandler creates a command handler.
func NewHandler(ctrl Controller, logger *slog.Logger) *Handler {
	return &Handler{ctrl: ctrl, logger: logger}
}

// Handle runs cmd and returns the reply. It never panics on malformed input;
// every failure becomes an error response.
func (h *Handler) Handle(ctx context.Context, cmd Command) Response {
	resp := h.handle(ctx, cmd)
	metrics.ObserveCommand(cmd.Command, resp.Status)
	if resp.Status == StatusError {
		h.logger.Debug("Command rejected", "command", cmd.Command, "message", resp.Message)
	}
	return resp
}

// HandleJSON decodes a single message and runs it. Message transports use it
// in place of the TCP stream decoder.
func (h *Handler) HandleJSON(ctx context.Context, data []byte) Response {
	var cmd Command
	err := json.Unmarshal(data, &cmd)
	var typeErr *json.UnmarshalTypeError
	switch {
	case err == nil:
		return h.Handle(ctx, cmd)
	case errors.As(err, &typeErr):
		metrics.ObserveCommand("", StatusError)
		return failure(MsgUnknown)
	default:
		metrics.ObserveCommand("", StatusError)
		return failure(MsgInvalidJSON)
	}
}

func (h *Handler) handle(ctx context.Context, cmd Command) Response {
	if err := ctx.Err(); err != nil {
		return failure(err.Error())
	}

	switch cmd.Command {
	case CommandMode:
		n, ok := parseMode(cmd.Mode)
		if !ok || !pattern.Mode(n).Valid() {
			return failure(MsgInvalidMode)
		}
		if err := h.ctrl.StartMode(pattern.Mode(n)); err != nil {
			return h.runnerError("mode", err)
		}
		return success(modeStarted(n))

	case CommandStop:
		if err := h.ctrl.Stop(); err != nil {
			return h.runnerError("stop", err)
		}
		return success(MsgModeStopped)

	case CommandOff:
		if err := h.ctrl.Off(); err != nil {
			return h.runnerError("off", err)
		}
		return success(MsgLEDsOff)

	case CommandStatus:
		return StatusResponse(h.ctrl.Status())

	default:
		return failure(MsgUnknown)
	}
}

func (h *Handler) runnerError(op string, err error) Response {
	if errors.Is(err, runner.ErrInvalidMode) {
		return failure(MsgInvalidMode)
	}
	h.logger.Warn("Runner operation failed", "op", op, "error", err)
	return failure(err.Error())
}

// StatusResponse renders a runner status in the wire shape; an idle runner
// reports a null mode.
func StatusResponse(s runner.Status) Response {
	state := &State{Running: s.Running}
	if s.Running {
		m := int(s.Mode)
		state.CurrentMode = &m
	}
	return Response{Status: StatusSuccess, State: state}
}
