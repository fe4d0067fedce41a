package handlers

import (
	"math"
	"net/http"
	"os"
	"time"

	"smartcare-api/pkg/models"
	"smartcare-api/pkg/services"

	"github.com/gin-gonic/gin"
)

// DashboardHandler モバイル向けダッシュボードとアラートAPIのハンドラー
type DashboardHandler struct {
	historyService   *services.HistoryService
	predictorService *services.PredictorService
	alertService     *services.AlertService
	inventoryStore   *services.InventoryStore
	nurseLogService  *services.NurseLogService
	location         *time.Location
}

// NewDashboardHandler 新しいダッシュボードハンドラーを作成
func NewDashboardHandler(
	historyService *services.HistoryService,
	predictorService *services.PredictorService,
	alertService *services.AlertService,
	inventoryStore *services.InventoryStore,
	nurseLogService *services.NurseLogService,
	location *time.Location,
) *DashboardHandler {
	return &DashboardHandler{
		historyService:   historyService,
		predictorService: predictorService,
		alertService:     alertService,
		inventoryStore:   inventoryStore,
		nurseLogService:  nurseLogService,
		location:         location,
	}
}

// GetMobileToday 日次運用スナップショットを返す。
// 来院数予測・需要予測・症候群予測・アラート・看護師記録を1レスポンスに集約する。
func (dh *DashboardHandler) GetMobileToday(c *gin.Context) {
	hist, err := dh.historyService.GetMergedHistory()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// 来院数予測（単一エンティティなので失敗はリクエスト全体の失敗）
	vol, err := dh.predictorService.PredictVolume(hist)
	if err != nil {
		abortWithError(c, err)
		return
	}
	expected := cleanNum(vol.Point)

	// 需要予測とアラート（失敗時は空で継続）
	var alerts []models.Alert
	var highAlerts []models.Alert
	var preview []models.DemandPreviewItem
	demand, err := dh.predictorService.PredictDemandBatch(hist, nil)
	if err == nil {
		alerts = dh.alertService.ComputeAlerts(demand, dh.inventoryStore.GetAll())
		for _, a := range alerts {
			if a.Severity == services.SeverityHigh {
				highAlerts = append(highAlerts, a)
			}
		}
		for i, d := range demand {
			if i >= 3 {
				break
			}
			preview = append(preview, models.DemandPreviewItem{
				ItemCode: d.ItemCode,
				Yhat:     cleanNum(d.Yhat),
			})
		}
	}

	// 症候群予測（失敗時は空で継続）
	topSyndromes, err := dh.predictorService.PredictSyndromesTopN(hist, 3, nil)
	if err != nil {
		topSyndromes = []models.SyndromeRankItem{}
	}
	for i := range topSyndromes {
		topSyndromes[i].Probability = round3(topSyndromes[i].Probability)
	}

	// 前日比（履歴が足りない場合は0）
	deltaPct := 0.0
	if len(hist.Records) >= 2 {
		if yday, ok := hist.Records[len(hist.Records)-2].Get("total_patients"); ok {
			denom := yday
			if denom < 1.0 {
				denom = 1.0
			}
			deltaPct = round1((expected - yday) / denom * 100)
		}
	}

	today := todayString(dh.location)

	c.JSON(http.StatusOK, models.TodaySnapshot{
		ExpectedPatients:    expected,
		DeltaVsYesterdayPct: deltaPct,
		Status: models.StatusInfo{
			Level:  dh.alertService.ClassifyStatus(expected, hist.ColumnValues("total_patients")),
			Reason: "Based on percentile thresholds (last 90 days)",
		},
		TopSyndromes:   topSyndromes,
		CriticalAlerts: highAlerts,
		DemandPreview:  preview,
		NurseLogToday:  dh.nurseLogService.Today(today),
		ForDate:        today,
	})
}

// GetAlerts 全アイテムの需要予測と在庫から全アラートを返す
func (dh *DashboardHandler) GetAlerts(c *gin.Context) {
	hist, err := dh.historyService.GetMergedHistory()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	demand, err := dh.predictorService.PredictDemandBatch(hist, nil)
	if err != nil {
		abortWithError(c, err)
		return
	}

	alerts := dh.alertService.ComputeAlerts(demand, dh.inventoryStore.GetAll())
	c.JSON(http.StatusOK, gin.H{"alerts": alerts})
}

// GetStatusThresholds 現在有効な混雑ステータスしきい値を返す（デバッグ用）
func (dh *DashboardHandler) GetStatusThresholds(c *gin.Context) {
	hist, err := dh.historyService.GetMergedHistory()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, dh.alertService.CurrentThresholds(hist.ColumnValues("total_patients")))
}

// GetDebugEnv APIキーの設定有無のみを返す（値は返さない）
func (dh *DashboardHandler) GetDebugEnv(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"OPENWEATHERMAP_API_KEY_present": os.Getenv("OPENWEATHERMAP_API_KEY") != "",
	})
}

// round1 前日比表示用の小数1桁への丸め
func round1(x float64) float64 {
	return math.Round(x*10) / 10
}
