package handlers

import (
	"net/http"

	"bootcamp-cert-minter/internal/config"
	"bootcamp-cert-minter/internal/middleware"
	"bootcamp-cert-minter/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// NewRouter registers the public health and metrics endpoints and the
// operator API under /api/v1.
func NewRouter(cfg *config.Config, health *HealthHandler, certs *CertificatesHandler, logger *zap.Logger) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(logger))
	router.MaxMultipartMemory = maxUploadBytes

	router.GET("/health", health.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(cfg))
	{
		api.GET("/accounts", certs.ListAccounts)
		api.GET("/certificates", certs.ListMints)
		api.GET("/certificates/:id", certs.GetMint)
		api.POST("/certificates", certs.Mint)
		api.POST("/certificates/preview", certs.Preview)
		api.POST("/certificates/batch", certs.Batch)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "not found"})
	})

	return router
}
