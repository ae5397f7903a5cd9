package ws

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mlsorensen/govcp/pkg/vcs"
	"github.com/mlsorensen/govcp/pkg/vcs/comms"
)

// writeTimeout keeps a slow observer from stalling the control point.
const writeTimeout = 100 * time.Millisecond

// peer is one websocket connection and its gateway.
type peer struct {
	id   string
	conn *websocket.Conn
	gw   *vcs.Gateway

	writeMu sync.Mutex
}

func (p *peer) source() string {
	return "ws:" + p.id
}

func (p *peer) send(msg Message) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	_ = p.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return p.conn.WriteJSON(msg)
}

// Deliver implements vcs.Sink.
func (p *peer) Deliver(c comms.Characteristic, value []byte) error {
	if err := p.send(Message{Type: TypeNotify, Characteristic: c.String(), Data: value}); err != nil {
		return fmt.Errorf("notify %s: %w", p.id, err)
	}
	return nil
}

// hub tracks connected peers.
type hub struct {
	mu    sync.Mutex
	peers map[string]*peer
}

func newHub() *hub {
	return &hub{peers: make(map[string]*peer)}
}

// add attaches a gateway for conn and tracks the peer.
func (h *hub) add(conn *websocket.Conn, svc *vcs.Service) *peer {
	p := &peer{id: uuid.New().String(), conn: conn}
	p.gw = svc.Attach(p, p.source())

	h.mu.Lock()
	defer h.mu.Unlock()
	h.peers[p.id] = p
	return p
}

func (h *hub) remove(p *peer, svc *vcs.Service) {
	h.mu.Lock()
	_, ok := h.peers[p.id]
	delete(h.peers, p.id)
	h.mu.Unlock()

	if ok {
		svc.Detach(p.gw)
		_ = p.conn.Close()
	}
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.peers)
}

// closeAll closes every connection; their read loops then clean up.
func (h *hub) closeAll(logger *slog.Logger) {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.peers))
	for _, p := range h.peers {
		conns = append(conns, p.conn)
	}
	h.mu.Unlock()

	for _, c := range conns {
		if err := c.Close(); err != nil {
			logger.Debug("closing websocket", slog.String("error", err.Error()))
		}
	}
}
