package nats

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/smazurov/pixelnode/internal/dispatch"
	"github.com/smazurov/pixelnode/internal/events"
)

// ErrNotStarted is returned when publishing through a bridge that is not connected.
var ErrNotStarted = errors.New("nats bridge not started")

// Commander executes raw JSON commands. *dispatch.Handler implements it.
type Commander interface {
	HandleJSON(ctx context.Context, data []byte) dispatch.Response
}

// Bridge answers commands on <prefix>.command and publishes runner state on
// <prefix>.state.
type Bridge struct {
	url      string
	prefix   string
	commands Commander
	bus      *events.Bus
	logger   *slog.Logger

	mu    sync.Mutex
	conn  *nats.Conn
	sub   *nats.Subscription
	unsub func()
}

// NewBridge creates a bridge. bus may be nil, in which case no state is published.
func NewBridge(url, prefix string, commands Commander, bus *events.Bus, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		url:      url,
		prefix:   prefix,
		commands: commands,
		bus:      bus,
		logger:   logger.With("component", "nats-bridge"),
	}
}

// Start connects and subscribes. The connection reconnects forever.
func (b *Bridge) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	conn, err := nats.Connect(b.url,
		nats.Name("pixelnode"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				b.logger.Warn("NATS bridge disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			b.logger.Info("NATS bridge reconnected")
		}),
	)
	if err != nil {
		return err
	}

	sub, err := conn.Subscribe(SubjectCommand(b.prefix), b.handleCommand)
	if err != nil {
		conn.Close()
		return err
	}

	b.conn = conn
	b.sub = sub
	if b.bus != nil {
		b.unsub = b.bus.Subscribe(func(e events.ModeChangedEvent) {
			if err := b.PublishState(NewStateMessage(e)); err != nil {
				b.logger.Debug("Failed to publish state", "error", err)
			}
		})
	}

	b.logger.Info("NATS bridge connected", "url", b.url, "subject", SubjectCommand(b.prefix))
	return nil
}

func (b *Bridge) handleCommand(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resp := b.commands.HandleJSON(ctx, msg.Data)
	if msg.Reply == "" {
		b.logger.Debug("Command without reply subject", "status", resp.Status, "message", resp.Message)
		return
	}

	data, err := resp.MarshalJSON()
	if err != nil {
		b.logger.Warn("Failed to encode reply", "error", err)
		return
	}
	if err := msg.Respond(data); err != nil {
		b.logger.Warn("Failed to send reply", "error", err)
	}
}

// PublishState publishes m on the state subject.
func (b *Bridge) PublishState(m StateMessage) error {
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()
	if conn == nil {
		return ErrNotStarted
	}

	data, err := m.Marshal()
	if err != nil {
		return err
	}
	return conn.Publish(SubjectState(b.prefix), data)
}

// Stop drops the bus subscription and drains the connection so in-flight
// commands still get replies.
func (b *Bridge) Stop() {
	b.mu.Lock()
	unsub, conn := b.unsub, b.conn
	b.unsub, b.conn, b.sub = nil, nil, nil
	b.mu.Unlock()

	// The state callback takes b.mu, so unsubscribe without holding it.
	if unsub != nil {
		unsub()
	}
	if conn != nil {
		if err := conn.Drain(); err != nil {
			conn.Close()
		}
	}
	b.logger.Info("NATS bridge stopped")
}

// IsConnected reports whether the bridge holds a live connection.
func (b *Bridge) IsConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn != nil && b.conn.IsConnected()
}
