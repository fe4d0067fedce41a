package handlers

import (
	"net/http"
	"time"

	"smartcare-api/pkg/models"
	"smartcare-api/pkg/services"

	"github.com/gin-gonic/gin"
)

// NurseLogHandler 看護師記録APIのハンドラー
type NurseLogHandler struct {
	nurseLogService *services.NurseLogService
	location        *time.Location
}

// NewNurseLogHandler 新しい看護師記録ハンドラーを作成
func NewNurseLogHandler(nurseLogService *services.NurseLogService, location *time.Location) *NurseLogHandler {
	return &NurseLogHandler{
		nurseLogService: nurseLogService,
		location:        location,
	}
}

// PostLog 症状記録を加算マージで保存する（日付省略時はクリニックの本日）
func (nh *NurseLogHandler) PostLog(c *gin.Context) {
	var req models.NurseLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to parse request: " + err.Error()})
		return
	}

	saved, err := nh.nurseLogService.Append(req.Date, todayString(nh.location), req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":    true,
		"saved": saved,
	})
}

// GetLog 指定日の症状記録を返す
func (nh *NurseLogHandler) GetLog(c *gin.Context) {
	dateNorm, entry, err := nh.nurseLogService.Get(c.Param("date"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"date": dateNorm,
		"log":  entry,
	})
}
