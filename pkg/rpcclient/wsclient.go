package rpcclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/compactmint/compactmint/pkg/core/state"
	"github.com/compactmint/compactmint/pkg/rpc"
	"github.com/gorilla/websocket"
)

const (
	wsDialTimeout  = 5 * time.Second
	wsWriteTimeout = 5 * time.Second
)

// WSClient is a websocket client receiving ledger notifications. It has
// no request capability, pair it with a Client for that.
type WSClient struct {
	ws *websocket.Conn

	// Notifications is fed with incoming events until the connection is
	// closed, after which it's closed too. Always drain it.
	Notifications chan state.Notification

	closeOnce sync.Once
	closeErr  error
	done      chan struct{}
}

// NewWS connects to the given websocket endpoint (ws:// or wss://
// scheme) and starts delivering events.
func NewWS(endpoint string) (*WSClient, error) {
	dialer := websocket.Dialer{HandshakeTimeout: wsDialTimeout}
	ws, resp, err := dialer.Dial(endpoint, nil)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", endpoint, err)
	}
	c := &WSClient{
		ws:            ws,
		Notifications: make(chan state.Notification, 64),
		done:          make(chan struct{}),
	}
	go c.readEvents()
	return c, nil
}

func (c *WSClient) readEvents() {
	defer close(c.Notifications)
	for {
		var event rpc.Notification
		if err := c.ws.ReadJSON(&event); err != nil {
			c.setCloseErr(err)
			return
		}
		if event.Method != rpc.EventMethod || len(event.Params) == 0 {
			continue
		}
		var ntf state.Notification
		if err := json.Unmarshal(event.Params[0], &ntf); err != nil {
			c.setCloseErr(fmt.Errorf("failed to unmarshal event: %w", err))
			return
		}
		select {
		case c.Notifications <- ntf:
		case <-c.done:
			return
		}
	}
}

func (c *WSClient) setCloseErr(err error) {
	c.closeOnce.Do(func() {
		if !errors.Is(err, websocket.ErrCloseSent) &&
			!websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			c.closeErr = err
		}
		close(c.done)
	})
}

// Close terminates the connection. The Notifications channel is closed
// once the reader drains.
func (c *WSClient) Close() {
	c.setCloseErr(nil)
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(wsWriteTimeout))
	c.ws.Close()
}

// CloseErr returns the error that terminated the connection, nil after
// a clean Close.
func (c *WSClient) CloseErr() error {
	select {
	case <-c.done:
		return c.closeErr
	default:
		return nil
	}
}
