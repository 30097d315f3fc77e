package handlers

import (
	"context"
	"net/http"

	"stockbill/internal/common"
	"stockbill/internal/config"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// JobStatusProvider reports the registered background jobs.
type JobStatusProvider interface {
	GetJobStatus() map[string]interface{}
}

// DashboardRefresher rebuilds one tenant's cached dashboard.
type DashboardRefresher interface {
	RefreshDashboard(ctx context.Context, tenantID uuid.UUID) error
}

type JobHandlers struct {
	scheduler JobStatusProvider
	refresher DashboardRefresher
	logger    logrus.FieldLogger
}

func NewJobHandlers(scheduler JobStatusProvider, refresher DashboardRefresher, logger logrus.FieldLogger) *JobHandlers {
	return &JobHandlers{
		scheduler: scheduler,
		refresher: refresher,
		logger:    logger,
	}
}

// JobStatus handles GET /jobs/status
func (h *JobHandlers) JobStatus(c echo.Context) error {
	if h.scheduler == nil {
		return c.JSON(http.StatusOK, map[string]interface{}{"total_jobs": 0, "jobs": []string{}})
	}
	return c.JSON(http.StatusOK, h.scheduler.GetJobStatus())
}

// RefreshDashboard handles POST /jobs/dashboard-refresh, rebuilding the caller's
// cached dashboard without waiting for the scheduled run.
func (h *JobHandlers) RefreshDashboard(c echo.Context) error {
	tenantID, err := tenantFromRequest(c)
	if err != nil {
		return err
	}

	if err := h.refresher.RefreshDashboard(c.Request().Context(), tenantID); err != nil {
		config.LogError(h.logger, "jobs", "RefreshDashboard", tenantID, err)
		return common.SendError(c, "dashboard", err)
	}
	return c.JSON(http.StatusAccepted, map[string]string{"message": "Dashboard refreshed"})
}
