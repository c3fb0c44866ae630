// Package stream maintains the websocket connection that carries camera frames
// to the AI trainer service and rep-count feedback back.
package stream

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gorilla/websocket"
)

// Config controls the trainer connection.
type Config struct {
	// BaseURL is the endpoint prefix; the remote exercise id is appended.
	BaseURL       string
	FrameInterval time.Duration
	JPEGQuality   int
	BackoffBase   time.Duration
	BackoffStep   time.Duration
	BackoffMax    time.Duration
}

func (c Config) withDefaults() Config {
	if c.FrameInterval <= 0 {
		c.FrameInterval = 200 * time.Millisecond
	}
	if c.JPEGQuality <= 0 || c.JPEGQuality > 100 {
		c.JPEGQuality = 70
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = 500 * time.Millisecond
	}
	if c.BackoffStep <= 0 {
		c.BackoffStep = time.Second
	}
	if c.BackoffMax <= 0 {
		c.BackoffMax = 30 * time.Second
	}
	return c
}

// FrameSource supplies the frames to send.
type FrameSource interface {
	Frame() (image.Image, error)
}

// Handler receives connection events. Methods are called from the client's
// goroutines and must stop blocking once the client has been closed.
type Handler interface {
	Connected(remoteID string)
	Feedback(fb Feedback)
	Disconnected(err error, retryIn time.Duration)
	CaptureFailed(err error)
}

// Dialer opens exercise-scoped trainer connections.
type Dialer struct {
	cfg Config
	ws  *websocket.Dialer
	log *slog.Logger
}

// NewDialer creates a Dialer for the given trainer endpoint.
func NewDialer(cfg Config, log *slog.Logger) *Dialer {
	return &Dialer{
		cfg: cfg.withDefaults(),
		ws: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
		},
		log: log,
	}
}

// Open creates a client for one exercise and starts connecting.
func (d *Dialer) Open(exerciseID string, frames FrameSource, h Handler) *Client {
	c := d.NewClient(exerciseID, frames, h)
	c.Start()
	return c
}

// NewClient creates an idle client for one exercise.
func (d *Dialer) NewClient(exerciseID string, frames FrameSource, h Handler) *Client {
	remote := RemoteExerciseID(exerciseID)
	return &Client{
		cfg:      d.cfg,
		ws:       d.ws,
		log:      d.log,
		remoteID: remote,
		url:      strings.TrimRight(d.cfg.BaseURL, "/") + "/" + remote,
		frames:   frames,
		h:        h,
		backoff:  &LinearBackOff{Base: d.cfg.BackoffBase, Step: d.cfg.BackoffStep, Max: d.cfg.BackoffMax},
		done:     make(chan struct{}),
	}
}

type clientState int

const (
	stateIdle clientState = iota
	stateRunning
	stateClosed
)

// Client is one exercise-scoped trainer connection with automatic reconnect.
type Client struct {
	cfg      Config
	ws       *websocket.Dialer
	log      *slog.Logger
	remoteID string
	url      string
	frames   FrameSource
	h        Handler
	backoff  *LinearBackOff

	mu     sync.Mutex
	state  clientState
	conn   *websocket.Conn
	cancel context.CancelFunc
	done   chan struct{}
}

// URL returns the endpoint this client connects to.
func (c *Client) URL() string { return c.url }

// Start begins connecting. It is a no-op while connecting, open, or after Close.
func (c *Client) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != stateIdle {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.state = stateRunning
	go c.run(ctx)
}

// Connected reports whether a websocket is currently open.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Close tears the connection down, suppresses reconnection and waits for the
// frame sender and reader to stop.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.state == stateClosed {
		c.mu.Unlock()
		return nil
	}
	wasRunning := c.state == stateRunning
	c.state = stateClosed
	if c.cancel != nil {
		c.cancel()
	}
	conn := c.conn
	c.mu.Unlock()

	if conn != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = conn.Close()
	}
	if wasRunning {
		<-c.done
	}
	return nil
}

func (c *Client) run(ctx context.Context) {
	defer close(c.done)

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := c.session(ctx)
		if ctx.Err() != nil {
			return struct{}{}, backoff.Permanent(ctx.Err())
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(c.backoff),
		// Reconnect for as long as the client stays open.
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.log.Warn("trainer connection lost", "exercise", c.remoteID, "retry_in", next, "error", err)
			c.h.Disconnected(err, next)
		}),
	)
	if err != nil && !errors.Is(err, context.Canceled) {
		c.log.Error("trainer connection gave up", "exercise", c.remoteID, "error", err)
	}
}

// session dials once and pumps frames and feedback until the connection ends.
// It always returns a non-nil error.
func (c *Client) session(ctx context.Context) error {
	conn, _, err := c.ws.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dialing %s: %w", c.url, err)
	}

	c.mu.Lock()
	if c.state == stateClosed {
		c.mu.Unlock()
		_ = conn.Close()
		return context.Canceled
	}
	c.conn = conn
	c.mu.Unlock()

	c.backoff.Reset()
	c.log.Info("trainer connected", "exercise", c.remoteID)
	c.h.Connected(c.remoteID)

	sendCtx, stopSending := context.WithCancel(ctx)
	sent := make(chan struct{})
	go func() {
		defer close(sent)
		c.sendFrames(sendCtx, conn)
	}()

	err = c.readFeedback(conn)

	stopSending()
	<-sent
	c.mu.Lock()
	c.conn = nil
	c.mu.Unlock()
	_ = conn.Close()
	return err
}

func (c *Client) readFeedback(conn *websocket.Conn) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("reading feedback: %w", err)
		}
		fb, err := ParseFeedback(data)
		if err != nil {
			c.log.Warn("dropping malformed trainer message", "exercise", c.remoteID, "error", err)
			continue
		}
		c.h.Feedback(fb)
	}
}

func (c *Client) sendFrames(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(c.cfg.FrameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		img, err := c.frames.Frame()
		if err != nil {
			c.h.CaptureFailed(err)
			continue
		}
		if !c.writable(conn) {
			continue
		}
		payload, err := EncodeFrame(img, c.cfg.JPEGQuality)
		if err != nil {
			c.log.Warn("frame encode failed", "error", err)
			continue
		}
		_ = conn.SetWriteDeadline(time.Now().Add(2 * c.cfg.FrameInterval))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			c.log.Debug("frame send failed", "exercise", c.remoteID, "error", err)
			// Unblock the reader so the session ends and reconnects.
			_ = conn.Close()
			return
		}
	}
}

// writable reports whether conn is still the live connection of an open client.
func (c *Client) writable(conn *websocket.Conn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == stateRunning && c.conn == conn
}
