package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultPingInterval = 15 * time.Second
	writeTimeout        = 5 * time.Second
	eventBuffer         = 16
)

// ErrClosed is returned by Call once the connection is gone.
var ErrClosed = errors.New("backend connection closed")

// RemoteError is an error reported by the backend for a call.
type RemoteError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("backend error %d: %s", e.Code, e.Message)
}

type request struct {
	ID     string `json:"id"`
	Method string `json:"method"`
	Params any    `json:"params,omitempty"`
}

// frame is any message read from the backend: a call response or a push event.
type frame struct {
	ID      string          `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RemoteError    `json:"error,omitempty"`
	Event   string          `json:"event,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Client talks to the backend over a websocket.
type Client struct {
	conn         *websocket.Conn
	logger       *zap.Logger
	pingInterval time.Duration

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[string]chan frame

	events chan Event
	done   chan struct{}
	once   sync.Once
}

// Dial connects to the backend websocket at url.
func Dial(ctx context.Context, url string, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to backend %s: %w", url, err)
	}
	return &Client{
		conn:         conn,
		logger:       logger,
		pingInterval: defaultPingInterval,
		pending:      map[string]chan frame{},
		events:       make(chan Event, eventBuffer),
		done:         make(chan struct{}),
	}, nil
}

// Events returns push events. The channel is closed when Run returns.
func (c *Client) Events() <-chan Event {
	return c.events
}

// Run reads frames and keeps the connection alive until ctx is cancelled or
// the connection fails. It closes the connection before returning.
func (c *Client) Run(ctx context.Context) error {
	defer close(c.events)
	defer c.shutdown()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.readLoop(gctx)
	})
	g.Go(func() error {
		return c.pingLoop(gctx)
	})
	g.Go(func() error {
		select {
		case <-gctx.Done():
			c.shutdown()
		case <-c.done:
		}
		return nil
	})

	err := g.Wait()
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// Close closes the connection. Run returns shortly after.
func (c *Client) Close() error {
	c.shutdown()
	return nil
}

func (c *Client) shutdown() {
	c.once.Do(func() {
		close(c.done)
		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		if err := c.conn.Close(); err != nil {
			// Best-effort close.
			_ = err
		}
	})
}

func (c *Client) readLoop(ctx context.Context) error {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				return nil
			default:
			}
			return fmt.Errorf("failed to read from backend: %w", err)
		}
		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			c.logger.Warn("discarding malformed frame", zap.Error(err), zap.Int("bytes", len(data)))
			continue
		}
		if f.Event != "" {
			c.logger.Debug("push event", zap.String("event", f.Event), zap.Int("bytes", len(f.Payload)))
			select {
			case c.events <- Event{Name: f.Event, Payload: f.Payload}:
			case <-ctx.Done():
				return nil
			case <-c.done:
				return nil
			}
			continue
		}
		c.mu.Lock()
		ch, ok := c.pending[f.ID]
		delete(c.pending, f.ID)
		c.mu.Unlock()
		if !ok {
			c.logger.Debug("response without caller", zap.String("id", f.ID))
			continue
		}
		ch <- f
	}
}

func (c *Client) pingLoop(ctx context.Context) error {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-c.done:
			return nil
		case <-ticker.C:
			c.writeMu.Lock()
			err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
			c.writeMu.Unlock()
			if err != nil {
				return fmt.Errorf("failed to ping backend: %w", err)
			}
		}
	}
}

// Call sends a request and decodes the result into out, which may be nil.
func (c *Client) Call(ctx context.Context, method string, params, out any) error {
	id := uuid.NewString()
	ch := make(chan frame, 1)

	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	c.writeMu.Lock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	err := c.conn.WriteJSON(request{ID: id, Method: method, Params: params})
	c.writeMu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to send %s: %w", method, err)
	}
	c.logger.Debug("call", zap.String("method", method), zap.String("id", id))

	select {
	case f := <-ch:
		if f.Error != nil {
			return f.Error
		}
		if out == nil || len(f.Result) == 0 {
			return nil
		}
		if err := json.Unmarshal(f.Result, out); err != nil {
			return fmt.Errorf("failed to decode %s result: %w", method, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrClosed
	}
}

// CurrentEncounter fetches the snapshot of the ongoing encounter.
func (c *Client) CurrentEncounter(ctx context.Context) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.Call(ctx, "current_encounter", nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// ResetEncounter asks the backend to start a fresh encounter.
func (c *Client) ResetEncounter(ctx context.Context) error {
	return c.Call(ctx, "reset_encounter", nil, nil)
}

// TogglePause asks the backend to pause or resume the encounter.
func (c *Client) TogglePause(ctx context.Context) error {
	return c.Call(ctx, "toggle_pause", nil, nil)
}

// SaveEncounter asks the backend to persist the ongoing encounter.
func (c *Client) SaveEncounter(ctx context.Context) error {
	return c.Call(ctx, "save_encounter", nil, nil)
}
