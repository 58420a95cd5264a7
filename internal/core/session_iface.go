package core

import "github.com/dkeye/apod/internal/domain"

// MemberSession binds domain.Member and its transport endpoint.
// This is what the registry stores and fans out to.
type MemberSession interface {
	Meta() *domain.Member
	Signal() SignalConnection
}

// PublishResult reports delivery stats of one broadcast pass.
type PublishResult struct {
	SentTo  int
	Evicted []domain.Slot
}
