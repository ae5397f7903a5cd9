package ws

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mlsorensen/govcp/pkg/vcs"
	"github.com/mlsorensen/govcp/pkg/vcs/comms"
)

// Notification is a value pushed by the renderer.
type Notification struct {
	Characteristic comms.Characteristic
	Value          []byte
}

// RequestError is a request the renderer rejected with an ATT code.
type RequestError struct {
	Code    byte
	Message string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("request rejected (0x%02X): %s", e.Code, e.Message)
}

// Client talks to a renderer's websocket binding.
type Client struct {
	conn *websocket.Conn

	writeMu sync.Mutex
	mu      sync.Mutex
	pending map[string]chan Message
	closed  bool

	notifications chan Notification
	done          chan struct{}
	err           error
}

// Dial connects to url, e.g. "ws://localhost:8844/vcs".
func Dial(ctx context.Context, url string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("could not dial %s: %w", url, err)
	}
	c := &Client{
		conn:          conn,
		pending:       make(map[string]chan Message),
		notifications: make(chan Notification, 64),
		done:          make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Notifications delivers pushed values. It is closed when the connection ends.
// Values are dropped while the channel is full.
func (c *Client) Notifications() <-chan Notification {
	return c.notifications
}

func (c *Client) readLoop() {
	defer close(c.notifications)
	defer close(c.done)

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			c.mu.Lock()
			c.err = err
			c.closed = true
			for id, ch := range c.pending {
				close(ch)
				delete(c.pending, id)
			}
			c.mu.Unlock()
			return
		}

		if msg.Type == TypeNotify {
			ch, err := comms.ParseCharacteristic(msg.Characteristic)
			if err != nil {
				continue
			}
			select {
			case c.notifications <- Notification{Characteristic: ch, Value: msg.Data}:
			default:
			}
			continue
		}

		c.mu.Lock()
		ch, ok := c.pending[msg.ID]
		delete(c.pending, msg.ID)
		c.mu.Unlock()
		if ok {
			ch <- msg
		}
	}
}

func (c *Client) request(ctx context.Context, msg Message) (Message, error) {
	msg.ID = uuid.New().String()
	reply := make(chan Message, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Message{}, errors.New("connection closed")
	}
	c.pending[msg.ID] = reply
	c.mu.Unlock()

	c.writeMu.Lock()
	err := c.conn.WriteJSON(msg)
	c.writeMu.Unlock()
	if err != nil {
		c.mu.Lock()
		delete(c.pending, msg.ID)
		c.mu.Unlock()
		return Message{}, fmt.Errorf("could not send %s request: %w", msg.Type, err)
	}

	select {
	case m, ok := <-reply:
		if !ok {
			return Message{}, errors.New("connection closed")
		}
		if m.Type == TypeError {
			return m, errors.New(m.Error)
		}
		if m.Code != 0 {
			return m, &RequestError{Code: m.Code, Message: m.Error}
		}
		return m, nil
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, msg.ID)
		c.mu.Unlock()
		return Message{}, ctx.Err()
	}
}

// Subscribe enables or disables notifications for a characteristic.
func (c *Client) Subscribe(ctx context.Context, ch comms.Characteristic, enabled bool) error {
	_, err := c.request(ctx, Message{Type: TypeSubscribe, Characteristic: ch.String(), Enabled: enabled})
	return err
}

// Write sends a raw control point request and returns the byte count the
// renderer consumed.
func (c *Client) Write(ctx context.Context, data []byte) (int, error) {
	m, err := c.request(ctx, Message{Type: TypeWrite, Data: data})
	if err != nil {
		return 0, err
	}
	return m.Count, nil
}

// Read reads a characteristic value from offset.
func (c *Client) Read(ctx context.Context, ch comms.Characteristic, offset int) ([]byte, error) {
	m, err := c.request(ctx, Message{Type: TypeRead, Characteristic: ch.String(), Offset: offset})
	if err != nil {
		return nil, err
	}
	return m.Data, nil
}

// ReadState reads and decodes the volume state.
func (c *Client) ReadState(ctx context.Context) (vcs.State, error) {
	b, err := c.Read(ctx, comms.CharacteristicState, 0)
	if err != nil {
		return vcs.State{}, err
	}
	return vcs.DecodeState(b)
}

// Apply reads the current change counter and sends op with it. A stale
// counter is retried once after re-reading the state.
func (c *Client) Apply(ctx context.Context, op comms.Opcode, operand ...uint8) (vcs.State, error) {
	for attempt := 0; ; attempt++ {
		state, err := c.ReadState(ctx)
		if err != nil {
			return vcs.State{}, err
		}
		_, err = c.Write(ctx, comms.Encode(op, state.ChangeCounter, operand...))
		var reqErr *RequestError
		if errors.As(err, &reqErr) && reqErr.Code == comms.ATTInvalidChangeCounter && attempt == 0 {
			continue
		}
		if err != nil {
			return vcs.State{}, err
		}
		return c.ReadState(ctx)
	}
}

// Close closes the connection and waits for the read loop to end.
func (c *Client) Close() error {
	c.writeMu.Lock()
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()
	err := c.conn.Close()
	<-c.done
	return err
}
