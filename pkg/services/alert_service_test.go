package services

import (
	"testing"

	"smartcare-api/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeAlertsBothChecksMayFire(t *testing.T) {
	s := NewAlertService()

	inv := map[string]models.InventoryRecord{
		"ors_packets": {Name: "ORS Sachets", OnHand: 10, ReorderPoint: 40},
	}
	forecasts := []models.DemandForecastItem{
		{ItemCode: "ors_packets", Yhat: 5, P90: 8},
	}

	alerts := s.ComputeAlerts(forecasts, inv)

	// 在庫水準チェック: 10 < 40*0.25 → HIGH
	// 需要予測チェック: weeklyHigh = 8*7 = 56 > 10 → HIGH (stockout_risk)
	require.Len(t, alerts, 2)
	assert.Equal(t, SeverityHigh, alerts[0].Severity)
	assert.Equal(t, SeverityHigh, alerts[1].Severity)
	assert.Equal(t, "ors_packets", alerts[0].ItemCode)
	assert.Equal(t, "ors_packets", alerts[1].ItemCode)
}

func TestComputeAlertsSkipsItemsAbsentFromInventory(t *testing.T) {
	s := NewAlertService()

	forecasts := []models.DemandForecastItem{
		{ItemCode: "unknown_item", Yhat: 100, P90: 200},
	}

	alerts := s.ComputeAlerts(forecasts, map[string]models.InventoryRecord{})
	assert.Empty(t, alerts)
}

func TestComputeAlertsAtMostTwoPerItem(t *testing.T) {
	s := NewAlertService()

	inv := map[string]models.InventoryRecord{
		"paracetamol": {Name: "Paracetamol 500mg", OnHand: 1, ReorderPoint: 100},
	}
	forecasts := []models.DemandForecastItem{
		{ItemCode: "paracetamol", Yhat: 50, P90: 80},
	}

	alerts := s.ComputeAlerts(forecasts, inv)

	perItem := make(map[string]int)
	for _, a := range alerts {
		perItem[a.ItemCode]++
	}
	for item, count := range perItem {
		assert.LessOrEqual(t, count, 2, "item %s", item)
	}
}

func TestComputeAlertsStockLevelSeverities(t *testing.T) {
	s := NewAlertService()

	cases := []struct {
		name     string
		onHand   int
		expected string
	}{
		{"below quarter", 9, SeverityHigh},    // 9 < 40*0.25
		{"below half", 15, SeverityMedium},    // 15 < 40*0.5
		{"at reorder point", 40, SeverityLow}, // 40 <= 40
		{"above reorder point", 41, ""},       // アラートなし
	}

	for _, tc := range cases {
		inv := map[string]models.InventoryRecord{
			"item": {Name: "Item", OnHand: tc.onHand, ReorderPoint: 40},
		}
		// 需要側が発火しないよう予測はゼロにする
		forecasts := []models.DemandForecastItem{{ItemCode: "item", Yhat: 0, P90: 0}}

		alerts := s.ComputeAlerts(forecasts, inv)
		if tc.expected == "" {
			assert.Empty(t, alerts, tc.name)
		} else {
			require.Len(t, alerts, 1, tc.name)
			assert.Equal(t, tc.expected, alerts[0].Severity, tc.name)
		}
	}
}

func TestComputeAlertsReorderCheck(t *testing.T) {
	s := NewAlertService()

	inv := map[string]models.InventoryRecord{
		"item": {Name: "Item", OnHand: 100, ReorderPoint: 50},
	}
	// weeklyHigh = 8*7 = 56: 在庫100未満だが発注点50超 → reorder MEDIUM のみ
	forecasts := []models.DemandForecastItem{{ItemCode: "item", Yhat: 5, P90: 8}}

	alerts := s.ComputeAlerts(forecasts, inv)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertReorder, alerts[0].Type)
	assert.Equal(t, SeverityMedium, alerts[0].Severity)
}

func TestComputeAlertsUsesYhatWhenP90Absent(t *testing.T) {
	s := NewAlertService()

	inv := map[string]models.InventoryRecord{
		"item": {Name: "Item", OnHand: 60, ReorderPoint: 5},
	}
	// P90が無い場合はyhatを使う: weeklyHigh = 10*7 = 70 > 60 → HIGH
	forecasts := []models.DemandForecastItem{{ItemCode: "item", Yhat: 10, P90: 0}}

	alerts := s.ComputeAlerts(forecasts, inv)
	require.Len(t, alerts, 1)
	assert.Equal(t, SeverityHigh, alerts[0].Severity)
	assert.Equal(t, AlertStockoutRisk, alerts[0].Type)
}

func TestComputeAlertsSortedBySeverity(t *testing.T) {
	s := NewAlertService()

	inv := map[string]models.InventoryRecord{
		"low_item":  {Name: "Low", OnHand: 40, ReorderPoint: 40},  // 在庫水準LOW
		"med_item":  {Name: "Med", OnHand: 100, ReorderPoint: 50}, // reorder MEDIUM
		"high_item": {Name: "High", OnHand: 1, ReorderPoint: 100}, // HIGH x2
	}
	forecasts := []models.DemandForecastItem{
		{ItemCode: "low_item", Yhat: 0, P90: 0},
		{ItemCode: "med_item", Yhat: 5, P90: 8},
		{ItemCode: "high_item", Yhat: 50, P90: 80},
	}

	alerts := s.ComputeAlerts(forecasts, inv)
	require.NotEmpty(t, alerts)

	// 重大度は非減少（HIGH→MEDIUM→LOW）の順に並ぶ
	for i := 1; i < len(alerts); i++ {
		assert.LessOrEqual(t, severityRank(alerts[i-1].Severity), severityRank(alerts[i].Severity))
	}
	assert.Equal(t, SeverityHigh, alerts[0].Severity)
	assert.Equal(t, SeverityLow, alerts[len(alerts)-1].Severity)
}

func TestClassifyStatusFallback(t *testing.T) {
	s := NewAlertService()

	// 10件未満の履歴では固定しきい値を使う（<50 GREEN, <80 YELLOW）
	recent := []float64{50}

	assert.Equal(t, "GREEN", s.ClassifyStatus(49.9, recent))
	assert.Equal(t, "YELLOW", s.ClassifyStatus(50, recent)) // 境界は排他的（50は>= 50なのでYELLOW）
	assert.Equal(t, "YELLOW", s.ClassifyStatus(79.9, recent))
	assert.Equal(t, "RED", s.ClassifyStatus(80, recent))
}

func TestClassifyStatusPercentile(t *testing.T) {
	s := NewAlertService()

	// 1..100の系列: p60=60.4, p85=85.15
	recent := make([]float64, 100)
	for i := range recent {
		recent[i] = float64(i + 1)
	}

	assert.Equal(t, "GREEN", s.ClassifyStatus(60, recent))
	assert.Equal(t, "YELLOW", s.ClassifyStatus(70, recent))
	assert.Equal(t, "RED", s.ClassifyStatus(90, recent))
}

func TestClassifyStatusUsesLast90(t *testing.T) {
	s := NewAlertService()

	// 古い高値は窓の外に落ち、直近90件だけでしきい値が決まる
	recent := make([]float64, 0, 200)
	for i := 0; i < 110; i++ {
		recent = append(recent, 1000)
	}
	for i := 0; i < 90; i++ {
		recent = append(recent, 10)
	}

	assert.Equal(t, "RED", s.ClassifyStatus(100, recent))
}

func TestCurrentThresholdsModes(t *testing.T) {
	s := NewAlertService()

	fallback := s.CurrentThresholds([]float64{1, 2, 3})
	assert.Equal(t, "fallback", fallback.Mode)
	assert.Equal(t, 50.0, fallback.GreenLt)
	assert.Equal(t, 80.0, fallback.YellowLt)

	recent := make([]float64, 100)
	for i := range recent {
		recent[i] = float64(i + 1)
	}
	pct := s.CurrentThresholds(recent)
	assert.Equal(t, "percentile", pct.Mode)
	assert.Greater(t, pct.P85YellowMax, pct.P60GreenMax)
}
