// Package models holds the request and response bodies of the HTTP API.
package models

import (
	"github.com/smazurov/pixelnode/internal/logging"
	"github.com/smazurov/pixelnode/internal/version"
)

type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
}

type HealthResponse struct {
	Body HealthData
}

type VersionResponse struct {
	Body version.Info
}

// ModeRequest selects a pattern. The range is checked by the command
// handler so that HTTP and TCP clients get the same error text.
type ModeRequest struct {
	Body struct {
		Mode int `json:"mode" example:"2" doc:"Pattern number: 1 rainbow, 2 chase, 3 fade"`
	}
}

// CommandData mirrors the TCP success reply.
type CommandData struct {
	Status  string `json:"status" example:"success" doc:"Always success; failures use the error model"`
	Message string `json:"message" example:"mode 2 started" doc:"Human-readable result"`
}

type CommandResponse struct {
	Body CommandData
}

// StatusData mirrors the TCP status reply.
type StatusData struct {
	Status      string `json:"status" example:"success"`
	CurrentMode *int   `json:"current_mode" nullable:"true" example:"2" doc:"Active mode, null when idle"`
	Running     bool   `json:"running" example:"true" doc:"Whether a pattern is running"`
}

type StatusResponse struct {
	Body StatusData
}

type LogsRequest struct {
	Limit  int    `query:"limit" minimum:"0" maximum:"500" default:"100" doc:"Newest entries to return, 0 for all"`
	Format string `query:"format" enum:"json,text" default:"json" doc:"text renders one line per entry"`
	Module string `query:"module" example:"runner" doc:"Only entries from this module"`
	Level  string `query:"level" enum:"debug,info,warn,error" doc:"Minimum level"`
}

type LogsData struct {
	Entries []logging.LogEntry `json:"entries,omitempty" doc:"Log entries, oldest first"`
	Lines   []string           `json:"lines,omitempty" doc:"Rendered entries when format=text"`
	Count   int                `json:"count" example:"100"`
}

type LogLevelRequest struct {
	Body struct {
		Module string `json:"module" example:"runner" doc:"Logger module name"`
		Level  string `json:"level" enum:"debug,info,warn,error" example:"debug"`
	}
}

type LogsResponse struct {
	Body LogsData
}
