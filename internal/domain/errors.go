package domain

import "errors"

var (
	errNotObject   = errors.New("message is not a JSON object")
	ErrInvalidSlot = errors.New("participant slot out of range")
)
