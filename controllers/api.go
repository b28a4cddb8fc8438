package controllers

import (
	"net/http"

	"tunman/internal/models"
	"tunman/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// APIController exposes the registry-level operations of the daemon.
type APIController struct {
	registry    *services.SupervisorRegistry
	definitions []models.TunnelDefinition
}

func NewAPIController(registry *services.SupervisorRegistry, definitions []models.TunnelDefinition) *APIController {
	return &APIController{
		registry:    registry,
		definitions: definitions,
	}
}

// RegisterRoutes attaches the global routes to the Gin engine.
func (a *APIController) RegisterRoutes(r *gin.Engine) {
	r.GET("/tunman/api/v1/stats", a.GetStats)
	r.POST("/tunman/api/v1/shutdown", a.Shutdown)
	r.GET("/healthz", a.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// GetStats returns the supervision snapshot
//
//	@Summary		Tunnel fleet status
//	@Description	Per-definition liveness, restart history and global counters
//	@Tags			Stats
//	@Produce		json
//	@Success		200	{object}	models.TunnelStats			"Status snapshot"
//	@Failure		500	{object}	models.ErrorResponse		"Registry lock timeout"
//	@Router			/tunman/api/v1/stats [get]
func (a *APIController) GetStats(c *gin.Context) {
	stats, err := a.registry.GetStats(a.definitions)
	if err != nil {
		c.JSON(http.StatusInternalServerError, &models.ErrorResponse{
			Error: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Shutdown stops supervision and kills all tunnel processes
//
//	@Summary		Shut down the tunnel fleet
//	@Description	Sets the termination flag and kills every supervised process; safe to call twice
//	@Tags			Stats
//	@Produce		json
//	@Success		200	{object}	models.TunnelResponse		"Shutdown initiated"
//	@Failure		500	{object}	models.ErrorResponse		"Registry lock timeout"
//	@Router			/tunman/api/v1/shutdown [post]
func (a *APIController) Shutdown(c *gin.Context) {
	if err := a.registry.Shutdown(); err != nil {
		c.JSON(http.StatusInternalServerError, &models.ErrorResponse{
			Error: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, &models.TunnelResponse{
		Status:  "success",
		Message: "Shutdown initiated, all tunnels are being closed",
	})
}

// Healthz reports daemon health
//
//	@Summary		Daemon health
//	@Tags			Stats
//	@Produce		json
//	@Success		200	{object}	models.HealthResponse
//	@Router			/healthz [get]
func (a *APIController) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, &models.HealthResponse{
		Status:        "ok",
		TotalRequests: services.GetTotalRequestCount(),
		ErrorRequests: services.GetTotalErrorCount(),
		IsTerminating: a.registry.IsTerminating(),
	})
}
