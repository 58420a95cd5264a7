// Package domain contains entities without transport or lifecycle logic.
package domain

import "github.com/google/uuid"

type (
	// Slot is the position a session was registered at. Stable for the
	// connection lifetime and never reused while that session is alive.
	Slot   int
	UserID string
)

// Member is the meta of one participant connection.
type Member struct {
	ID          UserID
	Slot        Slot
	Role        Role
	ClientToken string
}

// NewMember stamps a fresh id; the slot is assigned by the registry.
func NewMember(role Role, clientToken string) *Member {
	return &Member{
		ID:          UserID(uuid.NewString()),
		Role:        role,
		ClientToken: clientToken,
	}
}

func (m *Member) IsLeader() bool { return m.Role == RoleLeader }
