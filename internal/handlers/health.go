package handlers

import (
	"context"
	"math/big"
	"net/http"
	"time"

	"bootcamp-cert-minter/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ChainPinger is satisfied by the registry client.
type ChainPinger interface {
	ChainID(ctx context.Context) (*big.Int, error)
}

// DatabasePinger is satisfied by the supabase database client.
type DatabasePinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	chain  ChainPinger
	db     DatabasePinger
	logger *zap.Logger
}

// NewHealthHandler checks chain on every request, and db too when it is
// not nil.
func NewHealthHandler(chain ChainPinger, db DatabasePinger, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{chain: chain, db: db, logger: logger}
}

// Health returns "ok" when the ledger node and the database answer,
// "degraded" otherwise. It always answers 200 so the process is not
// restarted over a dependency outage.
func (h *HealthHandler) Health(c *gin.Context) {
	response := models.HealthResponse{Status: "ok"}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	if h.chain != nil {
		chainID, err := h.chain.ChainID(ctx)
		if err != nil {
			h.logger.Warn("Ledger node unreachable", zap.Error(err))
			response.Status = "degraded"
		} else {
			response.ChainID = chainID.String()
		}
	}

	if h.db != nil {
		if err := h.db.Ping(ctx); err != nil {
			h.logger.Warn("Database unreachable", zap.Error(err))
			response.Status = "degraded"
			response.Database = "unreachable"
		} else {
			response.Database = "ok"
		}
	}

	c.JSON(http.StatusOK, response)
}
