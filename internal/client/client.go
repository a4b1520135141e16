// Package client talks to a pixelnode command server.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/smazurov/pixelnode/internal/dispatch"
)

// DefaultPort is the command server port.
const DefaultPort = 8888

const defaultTimeout = 5 * time.Second

// ErrUnknownShorthand is returned by ParseShorthand.
var ErrUnknownShorthand = errors.New("unknown command")

// Client keeps one connection open and redials after a transport error.
// It is safe for concurrent use; requests are serialized.
type Client struct {
	addr    string
	timeout time.Duration

	mu   sync.Mutex
	conn net.Conn
	dec  *json.Decoder
}

// New creates a client for addr ("host:port"). timeout bounds each request
// when the context has no deadline; zero means five seconds.
func New(addr string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{addr: addr, timeout: timeout}
}

// Addr joins host and port, defaulting the port.
func Addr(host string, port int) string {
	if port == 0 {
		port = DefaultPort
	}
	return net.JoinHostPort(host, fmt.Sprint(port))
}

// Do sends cmd and waits for its reply.
func (c *Client) Do(ctx context.Context, cmd dispatch.Command) (dispatch.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.connect(ctx); err != nil {
		return dispatch.Response{}, err
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.timeout)
	}
	c.conn.SetDeadline(deadline)

	payload, err := json.Marshal(cmd)
	if err != nil {
		return dispatch.Response{}, err
	}
	if _, err := c.conn.Write(append(payload, '\n')); err != nil {
		c.reset()
		return dispatch.Response{}, fmt.Errorf("send command: %w", err)
	}

	var resp dispatch.Response
	if err := c.dec.Decode(&resp); err != nil {
		c.reset()
		return dispatch.Response{}, fmt.Errorf("read response: %w", err)
	}
	return resp, nil
}

// Mode starts mode n.
func (c *Client) Mode(ctx context.Context, n int) (dispatch.Response, error) {
	return c.Do(ctx, dispatch.Command{Command: dispatch.CommandMode, Mode: n})
}

// Stop stops the running pattern.
func (c *Client) Stop(ctx context.Context) (dispatch.Response, error) {
	return c.Do(ctx, dispatch.Command{Command: dispatch.CommandStop})
}

// Off turns every LED off.
func (c *Client) Off(ctx context.Context) (dispatch.Response, error) {
	return c.Do(ctx, dispatch.Command{Command: dispatch.CommandOff})
}

// Status queries the current mode.
func (c *Client) Status(ctx context.Context) (dispatch.Response, error) {
	return c.Do(ctx, dispatch.Command{Command: dispatch.CommandStatus})
}

// Close drops the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn, c.dec = nil, nil
	return err
}

func (c *Client) connect(ctx context.Context) error {
	if c.conn != nil {
		return nil
	}
	d := net.Dialer{Timeout: c.timeout}
	conn, err := d.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return fmt.Errorf("connect %s: %w", c.addr, err)
	}
	c.conn = conn
	c.dec = json.NewDecoder(conn)
	return nil
}

func (c *Client) reset() {
	if c.conn != nil {
		c.conn.Close()
	}
	c.conn, c.dec = nil, nil
}

// ParseShorthand turns "mode1".."mode3", "stop", "off" or "status" into a
// command. Input is case-insensitive.
func ParseShorthand(s string) (dispatch.Command, error) {
	switch v := strings.ToLower(strings.TrimSpace(s)); v {
	case "mode1", "mode2", "mode3":
		return dispatch.Command{Command: dispatch.CommandMode, Mode: int(v[4] - '0')}, nil
	case dispatch.CommandStop, dispatch.CommandOff, dispatch.CommandStatus:
		return dispatch.Command{Command: v}, nil
	default:
		return dispatch.Command{}, fmt.Errorf("%w: %s", ErrUnknownShorthand, s)
	}
}

// ErrorResponse wraps a transport failure in the wire error shape, the way
// the CLI reports it.
func ErrorResponse(err error) dispatch.Response {
	return dispatch.Response{Status: dispatch.StatusError, Message: err.Error()}
}
