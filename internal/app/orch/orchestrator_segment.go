package orch

import (
	"context"

	"github.com/dkeye/apod/internal/domain"
	"github.com/rs/zerolog/log"
)

// SaveSegment stores one uploaded chunk under the current save directory.
// Failures are logged only; callers always acknowledge the upload.
func (o *Orchestrator) SaveSegment(ctx context.Context, slot domain.ParticipantSlot, data []byte) {
	dir := o.Registry.SaveDir()
	path, err := o.Segments.Save(ctx, dir, slot, data)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Int("participant", int(slot)).Str("path", path).Msg("segment write failed")
		return
	}
	log.Info().Str("module", "orch").Int("participant", int(slot)).Str("path", path).Int("bytes", len(data)).Msg("segment saved")
}
