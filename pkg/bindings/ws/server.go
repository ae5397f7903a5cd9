package ws

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mlsorensen/govcp"
	"github.com/mlsorensen/govcp/pkg/vcs"
	"github.com/mlsorensen/govcp/pkg/vcs/comms"
)

// DefaultListen is the default listen address of the websocket binding.
const DefaultListen = ":8844"

// Path is the websocket endpoint.
const Path = "/vcs"

func init() {
	govcp.Register("ws", New)
}

var _ govcp.Binding = (*Binding)(nil)

// Binding serves the websocket endpoint.
type Binding struct {
	listen string
	logger *slog.Logger

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	handler  *Handler
}

func New(opts govcp.Options) govcp.Binding {
	listen := opts.Listen
	if listen == "" {
		listen = DefaultListen
	}
	return &Binding{
		listen: listen,
		logger: opts.Log().With(slog.String("binding", "ws")),
	}
}

func (b *Binding) Name() string {
	return "ws"
}

// Addr is the bound address once started.
func (b *Binding) Addr() net.Addr {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.listener == nil {
		return nil
	}
	return b.listener.Addr()
}

func (b *Binding) Start(ctx context.Context, svc *vcs.Service) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.server != nil {
		return errors.New("ws binding is already started")
	}

	ln, err := net.Listen("tcp", b.listen)
	if err != nil {
		return fmt.Errorf("could not listen on %s: %w", b.listen, err)
	}

	b.handler = NewHandler(svc, b.logger)
	mux := http.NewServeMux()
	mux.Handle(Path, b.handler)

	b.listener = ln
	b.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	server := b.server
	go func() {
		b.logger.Info("serving websocket endpoint", slog.String("addr", ln.Addr().String()), slog.String("path", Path))
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			b.logger.Error("websocket server stopped", slog.String("error", err.Error()))
		}
	}()

	go func() {
		<-ctx.Done()
		_ = b.Stop()
	}()
	return nil
}

func (b *Binding) Stop() error {
	b.mu.Lock()
	server, handler := b.server, b.handler
	b.server = nil
	b.mu.Unlock()

	if server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// hijacked websocket connections are not closed by Shutdown
	handler.hub.closeAll(b.logger)
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("websocket server shutdown failed: %w", err)
	}
	return nil
}

// Handler upgrades requests to websocket and serves the protocol.
type Handler struct {
	svc      *vcs.Service
	hub      *hub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

func NewHandler(svc *vcs.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		svc: svc,
		hub: newHub(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// Peers is the number of connected clients.
func (h *Handler) Peers() int {
	return h.hub.count()
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	p := h.hub.add(conn, h.svc)
	h.svc.LogConnection(p.source(), true)
	h.logger.Info("client connected", slog.String("peer", p.source()), slog.String("remote", r.RemoteAddr))

	defer func() {
		h.hub.remove(p, h.svc)
		h.svc.LogConnection(p.source(), false)
		h.logger.Info("client disconnected", slog.String("peer", p.source()))
	}()

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("read loop ended", slog.String("peer", p.source()), slog.String("error", err.Error()))
			}
			return
		}
		reply := h.handle(p, msg)
		if err := p.send(reply); err != nil {
			h.logger.Debug("reply not sent", slog.String("peer", p.source()), slog.String("error", err.Error()))
			return
		}
	}
}

func (h *Handler) handle(p *peer, msg Message) Message {
	switch msg.Type {
	case TypeSubscribe:
		c, err := comms.ParseCharacteristic(msg.Characteristic)
		if err != nil {
			return Message{Type: TypeError, ID: msg.ID, Error: err.Error()}
		}
		if !c.Notifiable() {
			return Message{Type: TypeError, ID: msg.ID, Error: fmt.Sprintf("%s is not notifiable", c)}
		}
		p.gw.Subscribe(vcs.SubscriptionEvent{Characteristic: c, Enabled: msg.Enabled})
		return Message{Type: TypeAck, ID: msg.ID, Characteristic: c.String(), Enabled: msg.Enabled}

	case TypeWrite:
		count, err := h.svc.WriteControlPoint(p.source(), msg.Offset, msg.Data)
		reply := Message{Type: TypeResult, ID: msg.ID, Count: count}
		if err != nil {
			reply.Code, _ = vcs.ATTCode(err)
			reply.Error = err.Error()
		}
		return reply

	case TypeRead:
		c, err := comms.ParseCharacteristic(msg.Characteristic)
		if err != nil {
			return Message{Type: TypeError, ID: msg.ID, Error: err.Error()}
		}
		value, err := h.svc.Read(p.source(), c, msg.Offset, msg.MaxLen)
		reply := Message{Type: TypeValue, ID: msg.ID, Characteristic: c.String(), Data: value}
		if err != nil {
			reply.Code, _ = vcs.ATTCode(err)
			reply.Error = err.Error()
		}
		return reply

	default:
		return Message{Type: TypeError, ID: msg.ID, Error: fmt.Sprintf("unknown message type %q", msg.Type)}
	}
}
