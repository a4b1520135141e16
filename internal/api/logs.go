package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/pixelnode/internal/api/models"
	"github.com/smazurov/pixelnode/internal/logging"
)

func (s *Server) registerLogRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-logs",
		Method:      http.MethodGet,
		Path:        "/api/logs",
		Summary:     "Recent logs",
		Description: "Newest entries from the in-memory log buffer",
		Tags:        []string{"logs"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, input *models.LogsRequest) (*models.LogsResponse, error) {
		entries := s.options.Logs.Query(logging.Query{
			Limit:  input.Limit,
			Module: input.Module,
			Level:  input.Level,
		})
		body := models.LogsData{Count: len(entries)}
		if input.Format == "text" {
			body.Lines = make([]string, len(entries))
			for i, e := range entries {
				body.Lines[i] = logging.FormatLogLine(e)
			}
		} else {
			body.Entries = entries
		}
		return &models.LogsResponse{Body: body}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "set-log-level",
		Method:      http.MethodPut,
		Path:        "/api/logs/level",
		Summary:     "Set module log level",
		Tags:        []string{"logs"},
		Security:    withAuth(),
		Errors:      []int{400, 401},
	}, func(_ context.Context, input *models.LogLevelRequest) (*struct{}, error) {
		if !logging.SetModuleLevel(input.Body.Module, input.Body.Level) {
			return nil, huma.Error400BadRequest("unknown log level " + input.Body.Level)
		}
		s.logger.Info("Log level changed", "module", input.Body.Module, "level", input.Body.Level)
		return nil, nil
	})
}
