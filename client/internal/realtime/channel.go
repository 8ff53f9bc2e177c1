// Package realtime keeps a client's websocket subscription to realtime-svc
// open and folds the pushed events into local state.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"zestro/domain"
)

const (
	DefaultMinBackoff = time.Second
	DefaultMaxBackoff = 30 * time.Second
)

// WebsocketURL turns a gateway base URL into the /ws endpoint for token.
func WebsocketURL(base, token string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse gateway url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported gateway scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	u.RawQuery = url.Values{"token": {token}}.Encode()
	return u.String(), nil
}

// Channel is one identity's event stream. Run dials, reads and redials with
// capped exponential backoff until its context ends.
type Channel struct {
	URL        string
	Dialer     *websocket.Dialer
	Handle     func(domain.Event)
	OnConnect  func(ctx context.Context)
	MinBackoff time.Duration
	MaxBackoff time.Duration

	mu        sync.Mutex
	connected bool
	connects  int
}

func NewChannel(wsURL string, handle func(domain.Event), onConnect func(ctx context.Context)) *Channel {
	return &Channel{
		URL:        wsURL,
		Dialer:     websocket.DefaultDialer,
		Handle:     handle,
		OnConnect:  onConnect,
		MinBackoff: DefaultMinBackoff,
		MaxBackoff: DefaultMaxBackoff,
	}
}

func (c *Channel) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Connects counts successful dials, including the first.
func (c *Channel) Connects() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connects
}

func (c *Channel) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	if v {
		c.connects++
	}
	c.mu.Unlock()
}

// Run blocks until ctx is done.
func (c *Channel) Run(ctx context.Context) {
	backoff := c.MinBackoff
	for {
		err := c.session(ctx)
		if ctx.Err() != nil {
			return
		}
		if errors.Is(err, errSessionEstablished) {
			backoff = c.MinBackoff
		} else {
			log.Printf("[realtime] dial failed: %v", err)
		}

		log.Printf("[realtime] reconnecting in %s", backoff)
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > c.MaxBackoff {
			backoff = c.MaxBackoff
		}
	}
}

var errSessionEstablished = errors.New("connection closed")

// session dials once and reads until the connection drops. It returns
// errSessionEstablished when the dial succeeded.
func (c *Channel) session(ctx context.Context) error {
	dialer := c.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, _, err := dialer.DialContext(ctx, c.URL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	c.setConnected(true)
	defer c.setConnected(false)

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			conn.Close()
		case <-stop:
		}
	}()

	if c.OnConnect != nil {
		c.OnConnect(ctx)
	}

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				log.Printf("[realtime] connection lost: %v", err)
			}
			return errSessionEstablished
		}
		var e domain.Event
		if err := json.Unmarshal(raw, &e); err != nil {
			log.Printf("[realtime] dropping undecodable frame: %v", err)
			continue
		}
		if c.Handle != nil {
			c.Handle(e)
		}
	}
}
