package services

import (
	"fmt"
	"time"

	"smartcare-api/pkg/models"
)

// lag/rollingのウィンドウ設定（学習時と同一でなければならない）
var (
	lagOffsets     = []int{1, 7, 14, 28}
	rollingWindows = []int{7, 14, 28}
)

// covariateColumns 特徴量にコピーされる環境共変量
var covariateColumns = []string{"temperature", "rainfall", "humidity"}

// FeatureService 履歴テーブルからlag/rolling/カレンダー特徴量を構築するサービス
type FeatureService struct{}

// NewFeatureService 新しい特徴量サービスを作成
func NewFeatureService() *FeatureService {
	return &FeatureService{}
}

// FeatureOptions 特徴量構築のオプション
type FeatureOptions struct {
	// FillMissingTarget trueの場合、対象カラムの欠損値を0として扱う（症候群カウント用）
	FillMissingTarget bool
	// TotalPatientsContext trueの場合、total_patientsのlag/rolling文脈特徴量を追加する
	TotalPatientsContext bool
}

// BuildFeatures 対象カラムのlag・rolling・カレンダー特徴量行列を構築する。
// 各行のValidフラグは全てのlag/rolling特徴量が定義済みの場合のみtrue。
// カレンダー・共変量はこのフィルタの影響を受けない。
func (fs *FeatureService) BuildFeatures(hist *models.History, targetColumn string, opts FeatureOptions) (*models.FeatureMatrix, error) {
	if !hist.HasColumn(targetColumn) {
		return nil, &models.SchemaError{Column: targetColumn}
	}

	n := len(hist.Records)

	// 対象系列を位置順に展開。欠損はNaNではなくokフラグで表現する。
	target := make([]float64, n)
	defined := make([]bool, n)
	for i, rec := range hist.Records {
		if v, ok := rec.Get(targetColumn); ok {
			target[i] = v
			defined[i] = true
		} else if opts.FillMissingTarget {
			target[i] = 0
			defined[i] = true
		}
	}

	var tp []float64
	var tpDefined []bool
	if opts.TotalPatientsContext && hist.HasColumn("total_patients") {
		tp = make([]float64, n)
		tpDefined = make([]bool, n)
		for i, rec := range hist.Records {
			if v, ok := rec.Get("total_patients"); ok {
				tp[i] = v
				tpDefined[i] = true
			}
		}
	}

	matrix := &models.FeatureMatrix{
		Columns: fs.columnOrder(hist, tp != nil),
		Rows:    make([]models.FeatureRow, 0, n),
	}

	for i, rec := range hist.Records {
		values := make(map[string]float64)
		valid := true

		// lag特徴量: 位置i-kの対象値（i<kなら未定義）
		for _, k := range lagOffsets {
			name := fmt.Sprintf("lag_%d", k)
			if i >= k && defined[i-k] {
				values[name] = target[i-k]
			} else {
				valid = false
			}
		}

		// rolling特徴量: 位置iで終わるw個の値の平均・標準偏差（w個未満なら未定義）
		for _, w := range rollingWindows {
			meanName := fmt.Sprintf("roll_mean_%d", w)
			stdName := fmt.Sprintf("roll_std_%d", w)
			window, ok := trailingWindow(target, defined, i, w)
			if ok {
				values[meanName] = calculateMean(window)
				values[stdName] = calculateSampleStandardDeviation(window)
			} else {
				valid = false
			}
		}

		// カレンダー特徴量（日付から導出されるため欠損しない）
		values["dow"] = float64(pythonWeekday(rec.Date.Weekday()))
		values["month"] = float64(rec.Date.Month())
		if isWeekend(rec.Date) {
			values["is_weekend"] = 1
		} else {
			values["is_weekend"] = 0
		}

		// total_patientsの文脈特徴量（症候群予測用、未定義でもValidには影響しない）
		if tp != nil {
			if i >= 1 && tpDefined[i-1] {
				values["tp_lag_1"] = tp[i-1]
			}
			if i >= 7 && tpDefined[i-7] {
				values["tp_lag_7"] = tp[i-7]
			}
			if window, ok := trailingWindow(tp, tpDefined, i, 7); ok {
				values["tp_mean_7"] = calculateMean(window)
			}
		}

		// 共変量は存在する場合のみコピー（合成しない）
		for _, col := range covariateColumns {
			if v, ok := rec.Get(col); ok {
				values[col] = v
			}
		}

		matrix.Rows = append(matrix.Rows, models.FeatureRow{
			Date:   rec.Date,
			Values: values,
			Valid:  valid,
		})
	}

	return matrix, nil
}

// columnOrder 構築順のカラム名リスト（volumeのfeatures.jsonフォールバック用の正準順序）
func (fs *FeatureService) columnOrder(hist *models.History, withTP bool) []string {
	var cols []string
	for _, k := range lagOffsets {
		cols = append(cols, fmt.Sprintf("lag_%d", k))
	}
	for _, w := range rollingWindows {
		cols = append(cols, fmt.Sprintf("roll_mean_%d", w), fmt.Sprintf("roll_std_%d", w))
	}
	cols = append(cols, "dow", "month", "is_weekend")
	if withTP {
		cols = append(cols, "tp_lag_1", "tp_lag_7", "tp_mean_7")
	}
	for _, col := range covariateColumns {
		if hist.HasColumn(col) {
			cols = append(cols, col)
		}
	}
	return cols
}

// trailingWindow 位置iで終わるw個の値を返す。1つでも欠損があれば失敗。
func trailingWindow(values []float64, defined []bool, i, w int) ([]float64, bool) {
	if i+1 < w {
		return nil, false
	}
	window := make([]float64, 0, w)
	for j := i - w + 1; j <= i; j++ {
		if !defined[j] {
			return nil, false
		}
		window = append(window, values[j])
	}
	return window, true
}

// pythonWeekday 月曜=0の曜日番号（学習時のpandas dayofweekと揃える）
func pythonWeekday(d time.Weekday) int {
	if d == time.Sunday {
		return 6
	}
	return int(d) - 1
}

// isWeekend 土日判定
func isWeekend(t time.Time) bool {
	return t.Weekday() == time.Saturday || t.Weekday() == time.Sunday
}
