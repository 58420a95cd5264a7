package app

import (
	"errors"

	"github.com/dkeye/apod/internal/core"
)

type DeliveryAction int

const (
	EvictMember DeliveryAction = iota
	DropFrame
)

// Policy decides what a failed TrySend during a broadcast means for the
// recipient.
type Policy interface {
	OnDeliveryFailure(member core.MemberSession, err error) DeliveryAction
}

// SimplePolicy evicts on every failure.
type SimplePolicy struct{}

func (SimplePolicy) OnDeliveryFailure(core.MemberSession, error) DeliveryAction {
	return EvictMember
}

// TolerantPolicy keeps slow peers and only drops the frame for them.
// Closed connections are still evicted.
type TolerantPolicy struct{}

func (TolerantPolicy) OnDeliveryFailure(_ core.MemberSession, err error) DeliveryAction {
	if errors.Is(err, core.ErrBackpressure) {
		return DropFrame
	}
	return EvictMember
}

// PolicyByName maps the backpressure_policy config value.
func PolicyByName(name string) Policy {
	if name == "drop" {
		return TolerantPolicy{}
	}
	return SimplePolicy{}
}
