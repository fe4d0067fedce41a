package models

import "time"

// HistoryRecord 履歴テーブルの1日分のレコード。
// 数値カラムはValuesに格納し、欠損値はキー自体を持たない（ゼロ埋めしない）。
type HistoryRecord struct {
	Date   time.Time          `json:"date"`
	Values map[string]float64 `json:"values"`
}

// Get returns the value for a column and whether it is present.
func (r HistoryRecord) Get(column string) (float64, bool) {
	v, ok := r.Values[column]
	return v, ok
}

// History 日付昇順・重複なしのマージ済み履歴テーブル
type History struct {
	Columns []string        `json:"columns"` // ヘッダー順のカラム名（dateを除く）
	Records []HistoryRecord `json:"records"`
}

// HasColumn reports whether the history contains the named column.
func (h *History) HasColumn(name string) bool {
	for _, c := range h.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// ColumnValues returns the column as a float64 slice, skipping missing days.
func (h *History) ColumnValues(name string) []float64 {
	var out []float64
	for _, r := range h.Records {
		if v, ok := r.Values[name]; ok {
			out = append(out, v)
		}
	}
	return out
}

// FeatureRow 特徴量行列の1行
type FeatureRow struct {
	Date   time.Time
	Values map[string]float64
	Valid  bool // 全てのlag/roll特徴量が定義済みかどうか
}

// FeatureMatrix 特徴量行列。Columnsは構築順のカラム名リスト。
type FeatureMatrix struct {
	Columns []string
	Rows    []FeatureRow
}

// ValidRows returns only the rows with full lag/rolling context.
func (m *FeatureMatrix) ValidRows() []FeatureRow {
	var out []FeatureRow
	for _, r := range m.Rows {
		if r.Valid {
			out = append(out, r)
		}
	}
	return out
}

// RegressionForecast 回帰エンティティの予測結果（未クランプの生値）
type RegressionForecast struct {
	Point   float64   `json:"point"`
	Lower   float64   `json:"lower"`
	Upper   float64   `json:"upper"`
	ForDate time.Time `json:"for_date"`
}

// SyndromeForecast 分類エンティティの予測結果
type SyndromeForecast struct {
	Syndrome    string  `json:"syndrome"`
	Probability float64 `json:"prob"`
	Threshold   float64 `json:"threshold"`
}

// InventoryRecord 在庫レコード（item_codeをキーに永続化される）
type InventoryRecord struct {
	Name         string `json:"name"`
	OnHand       int    `json:"on_hand"`
	ReorderPoint int    `json:"reorder_point"`
}

// Alert 在庫・需要アラート。集計のたびに生成され、永続化はしない。
type Alert struct {
	Type     string `json:"type"`     // "stockout_risk" or "reorder"
	Severity string `json:"severity"` // "HIGH" / "MEDIUM" / "LOW"
	Message  string `json:"message"`
	ItemCode string `json:"item_code"`
}

// WeatherOverride 日付単位の気象補正。nilのフィールドは元の値を維持する。
type WeatherOverride struct {
	Temperature *float64 `json:"temperature"`
	Rainfall    *float64 `json:"rainfall"`
	Humidity    *float64 `json:"humidity"`
}

// NurseLogEntry 看護師による1日分の症状記録
type NurseLogEntry struct {
	Date     string `json:"date"`
	Fever    int    `json:"fever"`
	Cough    int    `json:"cough"`
	Diarrhea int    `json:"diarrhea"`
	Vomiting int    `json:"vomiting"`
	Cold     int    `json:"cold"`
	Notes    string `json:"notes,omitempty"`
	By       string `json:"by,omitempty"`
}

// ---- リクエスト/レスポンス構造体 ----

// VolumeResponse represents the volume forecast response
type VolumeResponse struct {
	PredictedVisits float64 `json:"predicted_visits"`
	P10             float64 `json:"p10"`
	P90             float64 `json:"p90"`
	ModelVersion    string  `json:"model_version"`
	ForDate         string  `json:"for_date"`
}

// DemandRequest represents a demand forecast request
type DemandRequest struct {
	Items []string `json:"items,omitempty"` // 省略時は利用可能な全アイテム
}

// DemandForecastItem 1アイテム分の需要予測
type DemandForecastItem struct {
	ItemCode string  `json:"item_code"`
	Yhat     float64 `json:"yhat"`
	P10      float64 `json:"p10"`
	P90      float64 `json:"p90"`
}

// SyndromesRequest represents a syndrome forecast request
type SyndromesRequest struct {
	TopN      int      `json:"top_n"`
	Syndromes []string `json:"syndromes,omitempty"`
}

// SyndromeRankItem ランク付けされた症候群予測
type SyndromeRankItem struct {
	Syndrome    string  `json:"syndrome"`
	Probability float64 `json:"prob"`
	Rank        int     `json:"rank"`
}

// WeatherUpsertRequest 気象補正の登録リクエスト
type WeatherUpsertRequest struct {
	Date        string   `json:"date" binding:"required"` // "YYYY-MM-DD"
	Temperature *float64 `json:"temperature"`
	Rainfall    *float64 `json:"rainfall"`
	Humidity    *float64 `json:"humidity"`
}

// WeatherFetchRequest 外部気象APIからの取得リクエスト。
// lat/lon省略時はクリニックの既定座標（CLINIC_LAT/CLINIC_LON）を使う。
type WeatherFetchRequest struct {
	Date  string   `json:"date,omitempty"` // 省略時は本日（クリニックのタイムゾーン）
	Lat   *float64 `json:"lat,omitempty"`
	Lon   *float64 `json:"lon,omitempty"`
	Units string   `json:"units,omitempty"`
}

// NurseLogRequest 看護師記録の登録リクエスト。症状カウントは加算マージされる。
type NurseLogRequest struct {
	Date     string  `json:"date,omitempty"`
	Fever    *int    `json:"fever"`
	Cough    *int    `json:"cough"`
	Diarrhea *int    `json:"diarrhea"`
	Vomiting *int    `json:"vomiting"`
	Cold     *int    `json:"cold"`
	Notes    *string `json:"notes"`
	By       *string `json:"by"`
}

// InventoryUpsertRequest 在庫の部分更新リクエスト
type InventoryUpsertRequest struct {
	ItemCode     string  `json:"item_code" binding:"required"`
	Name         *string `json:"name"`
	OnHand       *int    `json:"on_hand"`
	ReorderPoint *int    `json:"reorder_point"`
}

// StatusInfo ダッシュボードの混雑ステータス
type StatusInfo struct {
	Level  string `json:"level"` // GREEN / YELLOW / RED
	Reason string `json:"reason"`
}

// DemandPreviewItem ダッシュボードの需要プレビュー項目
type DemandPreviewItem struct {
	ItemCode string  `json:"item_code"`
	Yhat     float64 `json:"yhat"`
}

// TodaySnapshot モバイル向けの日次ダッシュボード
type TodaySnapshot struct {
	ExpectedPatients    float64             `json:"expected_patients"`
	DeltaVsYesterdayPct float64             `json:"delta_vs_yesterday_pct"`
	Status              StatusInfo          `json:"status"`
	TopSyndromes        []SyndromeRankItem  `json:"top_syndromes"`
	CriticalAlerts      []Alert             `json:"critical_alerts"`
	DemandPreview       []DemandPreviewItem `json:"demand_preview"`
	NurseLogToday       *NurseLogEntry      `json:"nurse_log_today"`
	ForDate             string              `json:"for_date"`
}
