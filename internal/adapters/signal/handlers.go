package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/ankern/pairline/internal/domain"
)

func (ctl *Controller) handleJoin(cid domain.ConnID, c *WsSignalConn, data []byte) {
	var p struct {
		Type   string `json:"type"`
		RoomID string `json:"roomId"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("bad join payload")
		ctl.sendError(c, "bad_payload")
		return
	}
	if !ctl.limiter.Allow(cid) {
		log.Warn().Str("module", "signal").Str("conn", string(cid)).Msg("join rate limited")
		ctl.sendError(c, "too many join attempts")
		return
	}
	ctl.dispatch(ctl.Handler.OnJoin(cid, domain.RoomID(p.RoomID)))
}

func (ctl *Controller) handleLeave(cid domain.ConnID, c *WsSignalConn, data []byte) {
	var p struct {
		Type   string `json:"type"`
		RoomID string `json:"roomId"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("bad leave payload")
		ctl.sendError(c, "bad_payload")
		return
	}
	ctl.dispatch(ctl.Handler.OnLeave(cid, domain.RoomID(p.RoomID)))
}

func (ctl *Controller) handleDirectInvite(cid domain.ConnID, c *WsSignalConn, data []byte) {
	var p struct {
		Type               string          `json:"type"`
		TargetConnectionID string          `json:"targetConnectionId"`
		SignalData         json.RawMessage `json:"signalData"`
		From               string          `json:"from"`
		Name               string          `json:"name"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("bad direct invite payload")
		ctl.sendError(c, "bad_payload")
		return
	}
	ctl.dispatch(ctl.Handler.OnDirectInvite(cid, domain.ConnID(p.TargetConnectionID), p.SignalData, p.From, p.Name))
}

func (ctl *Controller) handleOffer(cid domain.ConnID, c *WsSignalConn, data []byte) {
	var p struct {
		Type       string          `json:"type"`
		RoomID     string          `json:"roomId"`
		SignalData json.RawMessage `json:"signalData"`
		From       string          `json:"from"`
		Name       string          `json:"name"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("bad offer payload")
		ctl.sendError(c, "bad_payload")
		return
	}
	ctl.dispatch(ctl.Handler.OnOffer(cid, domain.RoomID(p.RoomID), p.SignalData, p.From, p.Name))
}

func (ctl *Controller) handleAnswer(cid domain.ConnID, c *WsSignalConn, data []byte) {
	var p struct {
		Type       string          `json:"type"`
		RoomID     string          `json:"roomId"`
		SignalData json.RawMessage `json:"signalData"`
		To         string          `json:"to"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("bad answer payload")
		ctl.sendError(c, "bad_payload")
		return
	}
	ctl.dispatch(ctl.Handler.OnAnswer(cid, domain.RoomID(p.RoomID), p.SignalData, p.To))
}

func (ctl *Controller) handleCandidate(cid domain.ConnID, c *WsSignalConn, data []byte) {
	var p struct {
		Type      string          `json:"type"`
		RoomID    string          `json:"roomId"`
		Candidate json.RawMessage `json:"candidate"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("bad candidate payload")
		ctl.sendError(c, "bad_payload")
		return
	}
	ctl.dispatch(ctl.Handler.OnCandidate(cid, domain.RoomID(p.RoomID), p.Candidate))
}
