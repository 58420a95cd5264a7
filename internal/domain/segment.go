package domain

import (
	"fmt"
	"path/filepath"
	"strconv"
)

// MaxParticipantSlot is the highest upload endpoint, /save/9.
const MaxParticipantSlot = 9

type ParticipantSlot int

func ParseParticipantSlot(s string) (ParticipantSlot, error) {
	n, err := strconv.Atoi(s)
	if err != nil || len(s) != 1 || n < 0 || n > MaxParticipantSlot {
		return 0, ErrInvalidSlot
	}
	return ParticipantSlot(n), nil
}

func SegmentName(slot ParticipantSlot, index int) string {
	return fmt.Sprintf("video%d_segment%d.webm", slot, index)
}

func SegmentPath(dir string, slot ParticipantSlot, index int) string {
	return filepath.Join(dir, SegmentName(slot, index))
}
