// Package handler provides HTTP handlers for the aqstream read API.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/aqstream/aqstream/internal/api/models"
	"github.com/aqstream/aqstream/internal/api/response"
)

// SubsystemCheck probes one dependency for the status endpoint.
type SubsystemCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	checks    []SubsystemCheck
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(version, buildTime string, checks []SubsystemCheck) *OpsHandler {
	return &OpsHandler{
		version:   version,
		buildTime: buildTime,
		checks:    checks,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   time.Now(),
		Details: map[string]interface{}{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /v1/ops/ready - readiness check. Ready means
// every registered subsystem check passes.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := models.HealthStatusOK
	code := http.StatusOK
	for _, c := range h.checks {
		if err := c.Check(ctx); err != nil {
			status = models.HealthStatusDegraded
			code = http.StatusServiceUnavailable
			break
		}
	}

	response.JSON(w, r, code, models.Health{
		Status: status,
		Time:   time.Now(),
	})
}

// SystemStatus handles GET /v1/ops/status - per-subsystem status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	overall := models.HealthStatusOK
	subsystems := make([]models.SubsystemStatus, 0, len(h.checks))
	for _, c := range h.checks {
		s := models.HealthStatusOK
		if err := c.Check(ctx); err != nil {
			s = models.HealthStatusDegraded
			overall = models.HealthStatusDegraded
		}
		subsystems = append(subsystems, models.SubsystemStatus{
			Name:   c.Name,
			Status: s,
		})
	}

	response.JSON(w, r, http.StatusOK, models.SystemStatus{
		Status:     overall,
		Time:       time.Now(),
		Subsystems: subsystems,
	})
}
