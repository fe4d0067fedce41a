package handlers

import (
	"errors"
	"math"
	"net/http"
	"time"

	"smartcare-api/pkg/models"
	"smartcare-api/pkg/services"

	"github.com/gin-gonic/gin"
)

// cleanNum 境界を越える数値の後処理：非負クランプと小数2桁への丸め
func cleanNum(x float64) float64 {
	return math.Round(math.Max(0, x)*100) / 100
}

// round3 確率表示用の小数3桁への丸め
func round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}

// todayString クリニックのタイムゾーンでの本日（YYYY-MM-DD）
func todayString(loc *time.Location) string {
	return time.Now().In(loc).Format("2006-01-02")
}

// statusForError エラー分類をHTTPステータスに対応付ける
func statusForError(err error) int {
	var invalidErr *models.InvalidInputError
	var historyErr *models.InsufficientHistoryError
	var missingErr *models.ArtifactMissingError
	var upstreamErr *models.UpstreamError

	switch {
	case errors.As(err, &invalidErr):
		return http.StatusBadRequest
	case errors.As(err, &historyErr):
		return http.StatusBadRequest
	case errors.As(err, &missingErr):
		return http.StatusNotFound
	case errors.Is(err, services.ErrNoArtifacts), errors.Is(err, services.ErrNoPredictions):
		return http.StatusNotFound
	case errors.As(err, &upstreamErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// abortWithError エラー分類に応じたJSONエラーレスポンスを返す
func abortWithError(c *gin.Context, err error) {
	c.JSON(statusForError(err), gin.H{"error": err.Error()})
}

// HealthCheck ヘルスチェックエンドポイント
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "SmartCare API",
	})
}
