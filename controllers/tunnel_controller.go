package controllers

import (
	"fmt"
	"net/http"

	"tunman/internal/models"
	"tunman/services"

	"github.com/gin-gonic/gin"
)

// TunnelController handles per-tunnel HTTP requests.
type TunnelController struct {
	registry     *services.SupervisorRegistry
	procRegistry *services.ProcessRegistry
	definitions  []models.TunnelDefinition
}

func NewTunnelController(registry *services.SupervisorRegistry, procRegistry *services.ProcessRegistry, definitions []models.TunnelDefinition) *TunnelController {
	return &TunnelController{
		registry:     registry,
		procRegistry: procRegistry,
		definitions:  definitions,
	}
}

// RegisterRoutes attaches the tunnel routes to the Gin engine.
func (tc *TunnelController) RegisterRoutes(r *gin.Engine) {
	r.GET("/tunman/api/v1/tunnels", tc.ListTunnels)
	r.DELETE("/tunman/api/v1/tunnels", tc.KillTunnel)
}

// ListTunnels lists the per-definition status map
//
//	@Summary		List supervised tunnels
//	@Description	Status of every configured forwarding, keyed by signature
//	@Tags			Tunnels
//	@Produce		json
//	@Success		200	{object}	map[string]models.DefinitionStatus	"Status per signature"
//	@Failure		500	{object}	models.ErrorResponse				"Registry lock timeout"
//	@Router			/tunman/api/v1/tunnels [get]
func (tc *TunnelController) ListTunnels(c *gin.Context) {
	stats, err := tc.registry.GetStats(tc.definitions)
	if err != nil {
		c.JSON(http.StatusInternalServerError, &models.ErrorResponse{
			Error: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, stats.Status)
}

// KillTunnel kills every process matching a signature
//
//	@Summary		Kill tunnel processes by signature
//	@Description	Sweeps the process table and kills all matches; the supervisor relaunches the tunnel on its next check
//	@Tags			Tunnels
//	@Produce		json
//	@Param			signature	query		string						true	"Forwarding signature"
//	@Success		200			{object}	models.TunnelResponse		"Kill result"
//	@Failure		400			{object}	models.ErrorResponse		"Missing signature"
//	@Router			/tunman/api/v1/tunnels [delete]
func (tc *TunnelController) KillTunnel(c *gin.Context) {
	signature := c.Query("signature")
	if signature == "" {
		c.JSON(http.StatusBadRequest, &models.ErrorResponse{
			Error: "Missing signature parameter",
		})
		return
	}

	killed := tc.procRegistry.KillAllMatching(signature)
	c.JSON(http.StatusOK, &models.TunnelResponse{
		Signature: signature,
		Status:    "success",
		Message:   fmt.Sprintf("Killed %d matching processes", killed),
	})
}
