// Package signal is the websocket transport adapter: it owns the
// upgrade, the per-connection pumps and the live-connection table,
// and feeds inbound events to the lifecycle handler.
package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/ankern/pairline/internal/app"
	"github.com/ankern/pairline/internal/config"
	"github.com/ankern/pairline/internal/domain"
)

var ErrBackpressure = errors.New("backpressure")

// Conn is the adapter-side view of one live connection. Concrete type
// is WsSignalConn; tests plug in fakes.
type Conn interface {
	TrySend(data []byte) error
	Close()
}

// ConnTable maps live connection identities to their transports.
// Entries exist exactly as long as the connection does.
type ConnTable struct {
	mu    sync.RWMutex
	conns map[domain.ConnID]Conn
}

func NewConnTable() *ConnTable {
	return &ConnTable{conns: make(map[domain.ConnID]Conn)}
}

func (t *ConnTable) Add(cid domain.ConnID, c Conn) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.conns[cid] = c
}

func (t *ConnTable) Remove(cid domain.ConnID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.conns, cid)
}

func (t *ConnTable) Get(cid domain.ConnID) (Conn, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	c, ok := t.conns[cid]
	return c, ok
}

type WsSignalConn struct {
	conn *websocket.Conn
	send chan []byte

	mu     sync.RWMutex
	closed bool
}

func (c *WsSignalConn) TrySend(data []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- data:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type Controller struct {
	Handler *app.Handler

	cfg     *config.Config
	conns   *ConnTable
	limiter *JoinRateLimiter
}

func NewController(h *app.Handler, cfg *config.Config) *Controller {
	return &Controller{
		Handler: h,
		cfg:     cfg,
		conns:   NewConnTable(),
		limiter: NewJoinRateLimiter(cfg.JoinLimit, cfg.JoinInterval),
	}
}

// HandleSignal upgrades the request, mints a fresh connection
// identity and starts the pumps. The identity lives exactly as long
// as the connection; a reconnect gets a new one.
func (ctl *Controller) HandleSignal(ctx context.Context, c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	ws.SetReadLimit(ctl.cfg.ReadLimit)

	cid := domain.ConnID(uuid.NewString())
	log.Info().Str("module", "signal").Str("conn", string(cid)).Msg("new WS connection")

	conn := &WsSignalConn{
		conn: ws,
		send: make(chan []byte, 32),
	}
	ctl.conns.Add(cid, conn)

	// Queue identity-assigned before the read pump starts so it is
	// the first event the client sees.
	ctl.dispatch(ctl.Handler.OnConnect(cid))

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, cid, conn)
}
