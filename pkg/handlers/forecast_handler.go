package handlers

import (
	"net/http"
	"time"

	"smartcare-api/pkg/models"
	"smartcare-api/pkg/services"

	"github.com/gin-gonic/gin"
)

// ModelVersion 公開するモデルバージョン（アーティファクト一式の世代）
const ModelVersion = "v0.3.0"

// ForecastHandler 予測APIのハンドラー
type ForecastHandler struct {
	historyService   *services.HistoryService
	predictorService *services.PredictorService
	location         *time.Location
}

// NewForecastHandler 新しい予測ハンドラーを作成
func NewForecastHandler(historyService *services.HistoryService, predictorService *services.PredictorService, location *time.Location) *ForecastHandler {
	return &ForecastHandler{
		historyService:   historyService,
		predictorService: predictorService,
		location:         location,
	}
}

// PredictVolume 来院数予測を実行
func (fh *ForecastHandler) PredictVolume(c *gin.Context) {
	hist, err := fh.historyService.GetMergedHistory()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	fc, err := fh.predictorService.PredictVolume(hist)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.VolumeResponse{
		PredictedVisits: cleanNum(fc.Point),
		P10:             cleanNum(fc.Lower),
		P90:             cleanNum(fc.Upper),
		ModelVersion:    ModelVersion,
		ForDate:         todayString(fh.location),
	})
}

// PredictDemand 需要予測をバッチ実行
func (fh *ForecastHandler) PredictDemand(c *gin.Context) {
	var req models.DemandRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to parse request: " + err.Error()})
		return
	}

	hist, err := fh.historyService.GetMergedHistory()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	forecasts, err := fh.predictorService.PredictDemandBatch(hist, req.Items)
	if err != nil {
		abortWithError(c, err)
		return
	}

	out := make([]models.DemandForecastItem, 0, len(forecasts))
	for _, fc := range forecasts {
		out = append(out, models.DemandForecastItem{
			ItemCode: fc.ItemCode,
			Yhat:     cleanNum(fc.Yhat),
			P10:      cleanNum(fc.P10),
			P90:      cleanNum(fc.P90),
		})
	}
	c.JSON(http.StatusOK, out)
}

// PredictSyndromes 症候群予測を実行し、確率降順の上位N件を返す
func (fh *ForecastHandler) PredictSyndromes(c *gin.Context) {
	req := models.SyndromesRequest{TopN: 3}
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to parse request: " + err.Error()})
		return
	}
	if req.TopN < 1 {
		req.TopN = 1
	}

	hist, err := fh.historyService.GetMergedHistory()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ranked, err := fh.predictorService.PredictSyndromesTopN(hist, req.TopN, req.Syndromes)
	if err != nil {
		abortWithError(c, err)
		return
	}

	for i := range ranked {
		ranked[i].Probability = round3(ranked[i].Probability)
	}
	c.JSON(http.StatusOK, ranked)
}
