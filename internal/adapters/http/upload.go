package http

import (
	"context"
	"io"
	"net/http"

	"github.com/dkeye/apod/internal/adapters/assets"
	"github.com/dkeye/apod/internal/app/orch"
	"github.com/dkeye/apod/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const uploadAck = "saved"

type uploadHandler struct {
	orch     *orch.Orchestrator
	maxBytes int64
	store    *assets.Store
}

func (h *uploadHandler) saveDefault(c *gin.Context) {
	h.save(c, 0)
}

func (h *uploadHandler) saveSlot(c *gin.Context) {
	slot, err := domain.ParseParticipantSlot(c.Param("slot"))
	if err != nil {
		notFound(c, h.store)
		return
	}
	h.save(c, slot)
}

// save always acknowledges; read and write failures are only logged.
func (h *uploadHandler) save(c *gin.Context, slot domain.ParticipantSlot) {
	body := http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes)
	data, err := io.ReadAll(body)
	if err != nil {
		log.Warn().Err(err).Str("module", "adapters.http").Int("participant", int(slot)).Int("read", len(data)).Msg("upload body rejected")
	} else {
		// the peer hanging up must not cut a write short
		h.orch.SaveSegment(context.WithoutCancel(c.Request.Context()), slot, data)
	}
	c.String(http.StatusOK, uploadAck)
}
