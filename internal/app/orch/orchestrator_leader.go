package orch

import (
	"context"
	"encoding/json"

	"github.com/dkeye/apod/internal/core"
	"github.com/dkeye/apod/internal/domain"
	"github.com/rs/zerolog/log"
)

func (o *Orchestrator) handleLeaderCommand(ctx context.Context, sess core.MemberSession, msg domain.Message) {
	switch msg.Event {
	case domain.EventLeaderJoined:
		o.handleLeaderJoined(sess)
	case domain.EventPickSaveDir:
		o.handlePickSaveDir(ctx, sess)
	}
}

// handleLeaderJoined answers the leader directly: LAN address first, then
// the current save directory.
func (o *Orchestrator) handleLeaderJoined(sess core.MemberSession) {
	log.Info().Str("module", "orch").Int("slot", int(sess.Meta().Slot)).Str("lan", o.LANAddr).Msg("leader joined")
	o.reply(sess, domain.NewLANIPReply(o.LANAddr))
	o.reply(sess, domain.NewSaveDirReply(o.Registry.SaveDir()))
}

// handlePickSaveDir opens the dialog off the read loop so the leader's
// session and everyone else keep relaying while it is open. Only one
// dialog runs at a time. The dialog outlives the leader's session, so a
// leader that reconnects still gets its choice applied.
func (o *Orchestrator) handlePickSaveDir(ctx context.Context, sess core.MemberSession) {
	if o.Picker == nil {
		log.Warn().Str("module", "orch").Msg("pick-savedir without picker")
		return
	}
	if !o.picking.CompareAndSwap(false, true) {
		log.Info().Str("module", "orch").Msg("directory picker already open")
		return
	}
	slot := sess.Meta().Slot
	ctx = context.WithoutCancel(ctx)
	go func() {
		defer o.picking.Store(false)
		o.pickSaveDir(ctx, slot)
	}()
}

func (o *Orchestrator) pickSaveDir(ctx context.Context, slot domain.Slot) {
	dir, ok, err := o.Picker.PickDir(ctx)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Msg("directory picker failed")
		return
	}
	if !ok {
		log.Info().Str("module", "orch").Msg("directory pick cancelled")
		return
	}

	o.Registry.SetSaveDir(dir)

	b, err := json.Marshal(domain.NewSaveDirReply(dir))
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Msg("reply marshal")
		return
	}
	if err := o.Registry.Send(slot, b); err != nil {
		log.Warn().Err(err).Str("module", "orch").Int("slot", int(slot)).Msg("save dir reply not delivered")
	}
}
