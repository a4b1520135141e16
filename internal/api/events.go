package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/smazurov/pixelnode/internal/events"
)

// registerEventStream streams runner events over SSE.
func registerEventStream(api huma.API, bus *events.Bus) {
	sse.Register(api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Event stream",
		Description: "Mode changes, driver errors and settings reloads as Server-Sent Events",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"mode-changed":      events.ModeChangedEvent{},
		"driver-error":      events.DriverErrorEvent{},
		"settings-reloaded": events.SettingsReloadedEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		modeCh := make(chan events.ModeChangedEvent, 16)
		errCh := make(chan events.DriverErrorEvent, 4)
		reloadCh := make(chan events.SettingsReloadedEvent, 4)

		defer events.SubscribeToChannel[events.ModeChangedEvent](bus, modeCh)()
		defer events.SubscribeToChannel[events.DriverErrorEvent](bus, errCh)()
		defer events.SubscribeToChannel[events.SettingsReloadedEvent](bus, reloadCh)()

		for {
			var err error
			select {
			case <-ctx.Done():
				return
			case e := <-modeCh:
				err = send.Data(e)
			case e := <-errCh:
				err = send.Data(e)
			case e := <-reloadCh:
				err = send.Data(e)
			}
			if err != nil {
				return
			}
		}
	})
}
