package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/ankern/pairline/internal/app"
	"github.com/ankern/pairline/internal/domain"
)

const writeWait = 5 * time.Second

func (ctl *Controller) writePump(ctx context.Context, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.cfg.PingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Msg("writePump ctx done")
			return
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

// readPump is the single exit point of a connection: when the read
// loop ends, for whatever reason, disconnect cleanup runs exactly
// once.
func (ctl *Controller) readPump(ctx context.Context, cancel context.CancelFunc, cid domain.ConnID, c *WsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("conn", string(cid)).Msg("readPump closing")
		ctl.conns.Remove(cid)
		ctl.limiter.Forget(cid)
		ctl.dispatch(ctl.Handler.OnDisconnect(cid))
		cancel()
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Str("conn", string(cid)).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				log.Debug().Err(err).Str("module", "signal").Str("conn", string(cid)).Msg("readPump read error")
				return
			}
			ctl.handleSignal(cid, c, data)
		}
	}
}

func (ctl *Controller) handleSignal(cid domain.ConnID, c *WsSignalConn, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("conn", string(cid)).Msg("bad json")
		return
	}

	switch env.Type {
	case app.EvtJoinRoom:
		ctl.handleJoin(cid, c, data)
	case app.EvtLeaveRoom:
		ctl.handleLeave(cid, c, data)
	case app.EvtDirectCallInvite:
		ctl.handleDirectInvite(cid, c, data)
	case app.EvtCallOffer:
		ctl.handleOffer(cid, c, data)
	case app.EvtCallAnswer:
		ctl.handleAnswer(cid, c, data)
	case app.EvtIceCandidate:
		ctl.handleCandidate(cid, c, data)
	case app.EvtPing:
		ctl.dispatch(ctl.Handler.OnPing(cid))
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown signal")
	}
}

// dispatch delivers notifications best-effort: a gone target or a
// backed-up send channel drops the event, never blocks.
func (ctl *Controller) dispatch(notes []app.Notification) {
	for _, n := range notes {
		b, err := json.Marshal(n.Event)
		if err != nil {
			log.Error().Err(err).Str("module", "signal").Msg("dispatch marshal")
			continue
		}
		conn, ok := ctl.conns.Get(n.To)
		if !ok {
			log.Debug().Str("module", "signal").Str("to", string(n.To)).Msg("dispatch target gone")
			continue
		}
		if err := conn.TrySend(b); err != nil {
			log.Debug().Err(err).Str("module", "signal").Str("to", string(n.To)).Msg("dispatch dropped")
		}
	}
}

func (ctl *Controller) sendError(c Conn, reason string) {
	b, err := json.Marshal(app.ErrorEvent{Type: app.EvtError, Error: reason})
	if err != nil {
		return
	}
	_ = c.TrySend(b)
}
