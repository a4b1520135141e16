package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/pixelnode/internal/api/models"
	"github.com/smazurov/pixelnode/internal/dispatch"
)

func (s *Server) registerCommandRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-status",
		Method:      http.MethodGet,
		Path:        "/api/status",
		Summary:     "Status",
		Description: "Active mode and whether a pattern is running",
		Tags:        []string{"strip"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(ctx context.Context, _ *struct{}) (*models.StatusResponse, error) {
		resp := s.options.Handler.Handle(ctx, dispatch.Command{Command: dispatch.CommandStatus})
		if resp.State == nil {
			return nil, commandError(resp)
		}
		return &models.StatusResponse{
			Body: models.StatusData{
				Status:      resp.Status,
				CurrentMode: resp.State.CurrentMode,
				Running:     resp.State.Running,
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "start-mode",
		Method:      http.MethodPost,
		Path:        "/api/mode",
		Summary:     "Start mode",
		Description: "Start pattern 1 (rainbow), 2 (chase) or 3 (fade), replacing any running one",
		Tags:        []string{"strip"},
		Security:    withAuth(),
		Errors:      []int{400, 401, 503},
	}, func(ctx context.Context, input *models.ModeRequest) (*models.CommandResponse, error) {
		return s.run(ctx, dispatch.Command{Command: dispatch.CommandMode, Mode: input.Body.Mode})
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "stop",
		Method:      http.MethodPost,
		Path:        "/api/stop",
		Summary:     "Stop",
		Description: "Stop the running pattern and blank the strip",
		Tags:        []string{"strip"},
		Security:    withAuth(),
		Errors:      []int{401, 503},
	}, func(ctx context.Context, _ *struct{}) (*models.CommandResponse, error) {
		return s.run(ctx, dispatch.Command{Command: dispatch.CommandStop})
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "off",
		Method:      http.MethodPost,
		Path:        "/api/off",
		Summary:     "Off",
		Description: "Stop any pattern and turn every pixel off",
		Tags:        []string{"strip"},
		Security:    withAuth(),
		Errors:      []int{401, 503},
	}, func(ctx context.Context, _ *struct{}) (*models.CommandResponse, error) {
		return s.run(ctx, dispatch.Command{Command: dispatch.CommandOff})
	})
}

func (s *Server) run(ctx context.Context, cmd dispatch.Command) (*models.CommandResponse, error) {
	resp := s.options.Handler.Handle(ctx, cmd)
	if resp.Status != dispatch.StatusSuccess {
		return nil, commandError(resp)
	}
	return &models.CommandResponse{
		Body: models.CommandData{Status: resp.Status, Message: resp.Message},
	}, nil
}

// commandError maps a dispatch error reply to an HTTP status. Bad input is
// the caller's fault; anything else means the strip could not be driven.
func commandError(resp dispatch.Response) error {
	switch resp.Message {
	case dispatch.MsgInvalidMode, dispatch.MsgUnknown:
		return huma.Error400BadRequest(resp.Message)
	default:
		return huma.Error503ServiceUnavailable(resp.Message)
	}
}
