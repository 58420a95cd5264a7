package http

import (
	"net/http"
	"strings"

	"github.com/dkeye/apod/internal/adapters/assets"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type staticHandler struct {
	store *assets.Store
}

func (h *staticHandler) serve(c *gin.Context) {
	name := assets.Name(c.Request.URL.Path)

	// Only the local machine may become the leader.
	if strings.EqualFold(name, assets.LeaderPage) && !isLoopback(c) {
		log.Warn().Str("module", "adapters.http").Str("remote", c.Request.RemoteAddr).Msg("leader page denied")
		notFound(c, h.store)
		return
	}

	data, ct, ok := h.store.Get(name)
	if !ok {
		notFound(c, h.store)
		return
	}
	c.Data(http.StatusOK, ct, data)
}

func notFound(c *gin.Context, store *assets.Store) {
	c.Data(http.StatusNotFound, "text/html; charset=utf-8", store.NotFound())
}
