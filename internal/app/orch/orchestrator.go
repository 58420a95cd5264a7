package orch

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"github.com/dkeye/apod/internal/app"
	"github.com/dkeye/apod/internal/app/segment"
	"github.com/dkeye/apod/internal/core"
	"github.com/dkeye/apod/internal/domain"
	"github.com/rs/zerolog/log"
)

// DirPicker is the native directory dialog. ok is false when the user
// cancelled.
type DirPicker interface {
	PickDir(ctx context.Context) (dir string, ok bool, err error)
}

type Orchestrator struct {
	Registry *app.Registry
	Segments *segment.Writer
	Picker   DirPicker
	// LANAddr is reported to the leader on leader-joined.
	LANAddr string

	picking atomic.Bool
}

// OnConnect registers a freshly accepted session. cancel tears down the
// connection's pumps when the registry drops it.
func (o *Orchestrator) OnConnect(sess core.MemberSession, cancel context.CancelFunc) domain.Slot {
	return o.Registry.Register(sess, cancel)
}

func (o *Orchestrator) OnDisconnect(slot domain.Slot) {
	o.Registry.Unregister(slot)
}

// OnMessage relays a text frame to every session, the sender included,
// then lets the leader command processor look at it. Frames that are not
// JSON objects are dropped without a reply.
func (o *Orchestrator) OnMessage(ctx context.Context, sess core.MemberSession, data []byte) {
	meta := sess.Meta()
	msg, err := domain.ParseMessage(data)
	if err != nil {
		log.Debug().Err(err).Str("module", "orch").Int("slot", int(meta.Slot)).Msg("dropping malformed message")
		return
	}

	res := o.Registry.Broadcast(core.Frame(msg.Raw))
	if len(res.Evicted) > 0 {
		log.Info().Str("module", "orch").Int("slot", int(meta.Slot)).Ints("evicted", slotsToInts(res.Evicted)).Msg("evicted dead sessions during relay")
	}

	if meta.IsLeader() {
		o.handleLeaderCommand(ctx, sess, msg)
	}
}

func (o *Orchestrator) reply(sess core.MemberSession, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Msg("reply marshal")
		return
	}
	if err := sess.Signal().TrySend(b); err != nil {
		log.Warn().Err(err).Str("module", "orch").Int("slot", int(sess.Meta().Slot)).Msg("reply not delivered")
	}
}

func slotsToInts(slots []domain.Slot) []int {
	out := make([]int, len(slots))
	for i, s := range slots {
		out[i] = int(s)
	}
	return out
}
