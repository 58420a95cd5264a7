package app

import (
	"context"
	"sync"

	"github.com/dkeye/apod/internal/core"
	"github.com/dkeye/apod/internal/domain"
	"github.com/rs/zerolog/log"
)

type sessionEntry struct {
	Slot    domain.Slot
	Session core.MemberSession
	Cancel  context.CancelFunc
}

// Registry is the process-wide set of live sessions plus the current save
// directory. One mutex covers register, unregister, save dir access and
// the broadcast pass. TrySend only enqueues, so no network I/O happens
// under the lock.
type Registry struct {
	mu       sync.Mutex
	entries  []*sessionEntry
	nextSlot domain.Slot
	saveDir  string
	policy   Policy
}

func NewRegistry(saveDir string, policy Policy) *Registry {
	if policy == nil {
		policy = SimplePolicy{}
	}
	return &Registry{
		saveDir: saveDir,
		policy:  policy,
	}
}

// Register appends sess and stamps its slot. cancel, when set, is called
// if the session is later evicted or unregistered.
func (r *Registry) Register(sess core.MemberSession, cancel context.CancelFunc) domain.Slot {
	r.mu.Lock()
	defer r.mu.Unlock()
	slot := r.nextSlot
	r.nextSlot++
	sess.Meta().Slot = slot
	r.entries = append(r.entries, &sessionEntry{Slot: slot, Session: sess, Cancel: cancel})
	log.Info().Str("module", "app.registry").
		Int("slot", int(slot)).
		Str("role", sess.Meta().Role.String()).
		Str("sid", string(sess.Meta().ID)).
		Int("count", len(r.entries)).
		Msg("registered session")
	return slot
}

// Unregister removes slot and releases its transport. Absent slots are a no-op.
func (r *Registry) Unregister(slot domain.Slot) bool {
	r.mu.Lock()
	e := r.removeLocked(slot)
	count := len(r.entries)
	r.mu.Unlock()
	if e == nil {
		return false
	}
	release(e)
	log.Info().Str("module", "app.registry").Int("slot", int(slot)).Int("count", count).Msg("unregistered session")
	return true
}

func (r *Registry) removeLocked(slot domain.Slot) *sessionEntry {
	for i, e := range r.entries {
		if e.Slot == slot {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return e
		}
	}
	return nil
}

func release(e *sessionEntry) {
	if e.Cancel != nil {
		e.Cancel()
	}
	e.Session.Signal().Close()
}

// Broadcast attempts delivery of data to every session in insertion order,
// the sender included. Every recipient whose delivery fails and whose
// failure the policy maps to EvictMember is removed before returning.
func (r *Registry) Broadcast(data core.Frame) core.PublishResult {
	res := core.PublishResult{}
	var evicted []*sessionEntry

	r.mu.Lock()
	kept := r.entries[:0]
	for _, e := range r.entries {
		err := e.Session.Signal().TrySend(data)
		if err == nil {
			res.SentTo++
			kept = append(kept, e)
			continue
		}
		if r.policy.OnDeliveryFailure(e.Session, err) == DropFrame {
			log.Warn().Err(err).Str("module", "app.registry").Int("slot", int(e.Slot)).Msg("frame dropped")
			kept = append(kept, e)
			continue
		}
		log.Warn().Err(err).Str("module", "app.registry").Int("slot", int(e.Slot)).Msg("delivery failed, evicting")
		evicted = append(evicted, e)
		res.Evicted = append(res.Evicted, e.Slot)
	}
	for i := len(kept); i < len(r.entries); i++ {
		r.entries[i] = nil
	}
	r.entries = kept
	r.mu.Unlock()

	for _, e := range evicted {
		release(e)
	}
	log.Debug().Str("module", "app.registry").Int("sent_to", res.SentTo).Int("evicted", len(res.Evicted)).Msg("broadcast result")
	return res
}

// Send delivers data to a single slot. Used for direct replies.
func (r *Registry) Send(slot domain.Slot, data core.Frame) error {
	r.mu.Lock()
	var sess core.MemberSession
	for _, e := range r.entries {
		if e.Slot == slot {
			sess = e.Session
			break
		}
	}
	r.mu.Unlock()
	if sess == nil {
		return core.ErrConnectionClosed
	}
	return sess.Signal().TrySend(data)
}

// Get returns the live session at slot.
func (r *Registry) Get(slot domain.Slot) (core.MemberSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.Slot == slot {
			return e.Session, true
		}
	}
	return nil, false
}

// Len is the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Slots returns live slots in insertion order.
func (r *Registry) Slots() []domain.Slot {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Slot, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Slot)
	}
	return out
}

func (r *Registry) SaveDir() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saveDir
}

func (r *Registry) SetSaveDir(dir string) {
	r.mu.Lock()
	r.saveDir = dir
	r.mu.Unlock()
	log.Info().Str("module", "app.registry").Str("save_dir", dir).Msg("updated save dir")
}
