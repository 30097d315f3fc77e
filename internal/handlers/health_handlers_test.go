package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func check(err error) DependencyCheck {
	return func(context.Context) error { return err }
}

func TestHealthCheck(t *testing.T) {
	e := echo.New()

	t.Run("all healthy", func(t *testing.T) {
		logger, _ := test.NewNullLogger()
		h := NewHealthHandlers(map[string]DependencyCheck{"database": check(nil), "redis": check(nil)}, []string{"database"}, "1.0.0", logger)

		c, rec := newContext(e, httptest.NewRequest(http.MethodGet, "/health", nil), uuid.Nil)
		require.NoError(t, h.HealthCheck(c))

		require.Equal(t, http.StatusOK, rec.Code)
		var status HealthStatus
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
		assert.Equal(t, "healthy", status.Status)
		assert.Equal(t, map[string]string{"database": "healthy", "redis": "healthy"}, status.Services)
		assert.Equal(t, "1.0.0", status.Version)
	})

	t.Run("degraded when a dependency fails", func(t *testing.T) {
		logger, hook := test.NewNullLogger()
		h := NewHealthHandlers(map[string]DependencyCheck{"database": check(nil), "storage": check(errors.New("bucket missing"))}, []string{"database"}, "1.0.0", logger)

		c, rec := newContext(e, httptest.NewRequest(http.MethodGet, "/health", nil), uuid.Nil)
		require.NoError(t, h.HealthCheck(c))

		assert.Equal(t, http.StatusPartialContent, rec.Code)
		assert.Contains(t, rec.Body.String(), `"storage":"unhealthy"`)
		require.NotNil(t, hook.LastEntry())
		assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
		assert.Equal(t, "storage", hook.LastEntry().Data["service"])
	})
}

func TestReadinessCheck(t *testing.T) {
	e := echo.New()
	logger, _ := test.NewNullLogger()

	t.Run("non critical failure stays ready", func(t *testing.T) {
		h := NewHealthHandlers(map[string]DependencyCheck{"database": check(nil), "redis": check(errors.New("down"))}, []string{"database"}, "1.0.0", logger)
		c, rec := newContext(e, httptest.NewRequest(http.MethodGet, "/health/ready", nil), uuid.Nil)
		require.NoError(t, h.ReadinessCheck(c))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("critical failure", func(t *testing.T) {
		h := NewHealthHandlers(map[string]DependencyCheck{"database": check(errors.New("refused"))}, []string{"database"}, "1.0.0", logger)
		c, rec := newContext(e, httptest.NewRequest(http.MethodGet, "/health/ready", nil), uuid.Nil)
		require.NoError(t, h.ReadinessCheck(c))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestLivenessCheck(t *testing.T) {
	logger, _ := test.NewNullLogger()
	h := NewHealthHandlers(nil, nil, "1.0.0", logger)
	c, rec := newContext(echo.New(), httptest.NewRequest(http.MethodGet, "/health/live", nil), uuid.Nil)

	require.NoError(t, h.LivenessCheck(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"alive"`)
}

type stubJobStatus map[string]interface{}

func (s stubJobStatus) GetJobStatus() map[string]interface{} { return s }

func TestJobHandlers(t *testing.T) {
	e := echo.New()
	logger, _ := test.NewNullLogger()
	tenantID := uuid.New()

	t.Run("status", func(t *testing.T) {
		h := NewJobHandlers(stubJobStatus{"total_jobs": 2, "jobs": []string{"low-stock-alerts", "report-cache-refresh"}}, new(MockReportService), logger)
		c, rec := newContext(e, httptest.NewRequest(http.MethodGet, "/jobs/status", nil), tenantID)

		require.NoError(t, h.JobStatus(c))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"total_jobs":2`)
	})

	t.Run("refresh own dashboard", func(t *testing.T) {
		refresher := new(MockReportService)
		refresher.On("RefreshDashboard", mock.Anything, tenantID).Return(nil).Once()
		h := NewJobHandlers(nil, refresher, logger)
		c, rec := newContext(e, httptest.NewRequest(http.MethodPost, "/jobs/dashboard-refresh", nil), tenantID)

		require.NoError(t, h.RefreshDashboard(c))
		assert.Equal(t, http.StatusAccepted, rec.Code)
		refresher.AssertExpectations(t)
	})

	t.Run("refresh failure", func(t *testing.T) {
		refresher := new(MockReportService)
		refresher.On("RefreshDashboard", mock.Anything, tenantID).Return(assert.AnError)
		h := NewJobHandlers(nil, refresher, logger)
		c, rec := newContext(e, httptest.NewRequest(http.MethodPost, "/jobs/dashboard-refresh", nil), tenantID)

		require.NoError(t, h.RefreshDashboard(c))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}
