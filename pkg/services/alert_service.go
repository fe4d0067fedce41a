package services

import (
	"fmt"
	"math"
	"sort"

	"smartcare-api/pkg/models"
)

// アラート重大度
const (
	SeverityHigh   = "HIGH"
	SeverityMedium = "MEDIUM"
	SeverityLow    = "LOW"
)

// アラート種別
const (
	AlertStockoutRisk = "stockout_risk"
	AlertReorder      = "reorder"
)

// AlertService 需要予測と在庫状態を運用アラートに集約するサービス
type AlertService struct{}

// NewAlertService 新しいアラートサービスを作成
func NewAlertService() *AlertService {
	return &AlertService{}
}

// ComputeAlerts 需要予測と在庫から重大度付きアラートを生成する。
// 各アイテムに対して在庫水準チェックと需要予測チェックを独立に実行し、両方発火しうる
// （在庫枯渇と需要急増は別個の運用シグナルであり、互いに抑制しない）。
// 在庫に存在しないアイテムの予測は黙ってスキップする。
func (s *AlertService) ComputeAlerts(forecasts []models.DemandForecastItem, inv map[string]models.InventoryRecord) []models.Alert {
	var alerts []models.Alert

	for _, d := range forecasts {
		row, ok := inv[d.ItemCode]
		if !ok {
			continue
		}

		need := math.Max(0, d.Yhat)
		highToday := math.Max(0, d.P90)
		if d.P90 == 0 {
			highToday = need
		}
		weeklyHigh := highToday * 7.0

		// 在庫水準チェック（予測とは独立に、現在庫と発注点の比率で判定）
		severity := ""
		switch {
		case float64(row.OnHand) < float64(row.ReorderPoint)*0.25:
			severity = SeverityHigh
		case float64(row.OnHand) < float64(row.ReorderPoint)*0.5:
			severity = SeverityMedium
		case row.OnHand <= row.ReorderPoint:
			severity = SeverityLow
		}

		if severity != "" {
			alerts = append(alerts, models.Alert{
				Type:     AlertStockoutRisk,
				Severity: severity,
				Message:  fmt.Sprintf("%s: only %d left (reorder level %d)", row.Name, row.OnHand, row.ReorderPoint),
				ItemCode: d.ItemCode,
			})
		}

		// 需要予測チェック（週間高位予測と在庫/発注点の比較）
		if weeklyHigh > float64(row.OnHand) {
			alerts = append(alerts, models.Alert{
				Type:     AlertStockoutRisk,
				Severity: SeverityHigh,
				Message:  fmt.Sprintf("%s: need %.0f, only %d in stock", row.Name, weeklyHigh, row.OnHand),
				ItemCode: d.ItemCode,
			})
		} else if weeklyHigh > float64(row.ReorderPoint) {
			alerts = append(alerts, models.Alert{
				Type:     AlertReorder,
				Severity: SeverityMedium,
				Message:  fmt.Sprintf("%s: need %.0f, reorder level %d", row.Name, weeklyHigh, row.ReorderPoint),
				ItemCode: d.ItemCode,
			})
		}
	}

	// HIGH → MEDIUM → LOW の順に安定ソート（同順位は生成順を維持）
	sort.SliceStable(alerts, func(i, j int) bool {
		return severityRank(alerts[i].Severity) < severityRank(alerts[j].Severity)
	})
	return alerts
}

// severityRank 重大度の順位（小さいほど先頭）
func severityRank(severity string) int {
	switch severity {
	case SeverityHigh:
		return 0
	case SeverityMedium:
		return 1
	default:
		return 2
	}
}

// ClassifyStatus 来院数予測を信号レベル（GREEN/YELLOW/RED）に分類する。
// 直近90日のうち10件未満しか値が無い場合は固定しきい値（<50 GREEN, <80 YELLOW）、
// それ以外はその窓の60/85パーセンタイルを使う。しきい値は呼び出しごとに再計算する。
func (s *AlertService) ClassifyStatus(yhat float64, recent []float64) string {
	window := recentWindow(recent, 90)

	if len(window) < 10 {
		if yhat < 50 {
			return "GREEN"
		}
		if yhat < 80 {
			return "YELLOW"
		}
		return "RED"
	}

	p60 := calculatePercentile(window, 60)
	p85 := calculatePercentile(window, 85)
	if yhat <= p60 {
		return "GREEN"
	}
	if yhat <= p85 {
		return "YELLOW"
	}
	return "RED"
}

// StatusThresholds 現在有効なステータスしきい値を返す（デバッグ用）
type StatusThresholds struct {
	Mode         string  `json:"mode"` // "fallback" or "percentile"
	GreenLt      float64 `json:"green_lt,omitempty"`
	YellowLt     float64 `json:"yellow_lt,omitempty"`
	P60GreenMax  float64 `json:"p60_green_max,omitempty"`
	P85YellowMax float64 `json:"p85_yellow_max,omitempty"`
}

// CurrentThresholds 現在の履歴窓に基づくしきい値情報を返す
func (s *AlertService) CurrentThresholds(recent []float64) StatusThresholds {
	window := recentWindow(recent, 90)
	if len(window) < 10 {
		return StatusThresholds{Mode: "fallback", GreenLt: 50, YellowLt: 80}
	}
	return StatusThresholds{
		Mode:         "percentile",
		P60GreenMax:  math.Round(calculatePercentile(window, 60)*100) / 100,
		P85YellowMax: math.Round(calculatePercentile(window, 85)*100) / 100,
	}
}

// recentWindow 末尾n件の窓を返す
func recentWindow(values []float64, n int) []float64 {
	if len(values) <= n {
		return values
	}
	return values[len(values)-n:]
}
