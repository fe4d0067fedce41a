package services

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggingMiddlewareRecordsRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ms := NewMonitoringService(time.UTC)

	r := gin.New()
	r.Use(ms.LoggingMiddleware())
	r.GET("/api/v1/inventory", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{}) })
	r.GET("/api/v1/monitoring/logs", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{}) })

	for _, path := range []string{"/api/v1/inventory", "/api/v1/inventory", "/api/v1/monitoring/logs"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
	}

	data := ms.GetDashboardData(1)
	// モニタリング自身のアクセスは記録されない
	assert.Equal(t, 2, data.Endpoints["/api/v1/inventory"])
	assert.NotContains(t, data.Endpoints, "/api/v1/monitoring/logs")
}

func TestGetDashboardDataStatusCodes(t *testing.T) {
	ms := NewMonitoringService(time.UTC)
	now := time.Now()

	ms.LogRequest(LogEntry{Timestamp: now, Path: "/a", Method: "GET", StatusCode: 200})
	ms.LogRequest(LogEntry{Timestamp: now, Path: "/a", Method: "GET", StatusCode: 404})
	ms.LogRequest(LogEntry{Timestamp: now, Path: "/b", Method: "POST", StatusCode: 500})
	// 期間外のログは集計されない
	ms.LogRequest(LogEntry{Timestamp: now.Add(-2 * time.Hour), Path: "/old", Method: "GET", StatusCode: 200})

	data := ms.GetDashboardData(1)

	counts := make(map[string]int)
	for _, sc := range data.StatusCodes {
		counts[sc["name"].(string)] = sc["value"].(int)
	}
	assert.Equal(t, 1, counts["2xx Success"])
	assert.Equal(t, 1, counts["4xx Client Error"])
	assert.Equal(t, 1, counts["5xx Server Error"])

	assert.NotContains(t, data.Endpoints, "/old")

	require.Len(t, data.RecentErrors, 1)
	assert.Equal(t, "/b", data.RecentErrors[0].Path)
}

func TestGetDashboardDataBucketCount(t *testing.T) {
	ms := NewMonitoringService(time.UTC)
	data := ms.GetDashboardData(24)
	assert.Len(t, data.RequestsOverTime, 24)
}
