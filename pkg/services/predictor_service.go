package services

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"smartcare-api/pkg/models"
)

// バッチ予測が全件失敗した場合のエラー
var (
	ErrNoArtifacts   = errors.New("no artifacts found")
	ErrNoPredictions = errors.New("no predictions produced")
)

// PredictorService 特徴量構築・アーティファクト整列・モデル適用のパイプライン。
// 返す値は未クランプの生値で、非負クランプと丸めは境界層（ハンドラー）が行う。
type PredictorService struct {
	featureService  *FeatureService
	artifactService *ArtifactService
}

// NewPredictorService 新しい予測サービスを作成
func NewPredictorService(featureService *FeatureService, artifactService *ArtifactService) *PredictorService {
	return &PredictorService{
		featureService:  featureService,
		artifactService: artifactService,
	}
}

// PredictVolume 来院数（総患者数）の予測
func (ps *PredictorService) PredictVolume(hist *models.History) (*models.RegressionForecast, error) {
	return ps.predictRegression(hist, KindVolume, KindVolume, "total_patients", FeatureOptions{})
}

// PredictDemandItem 1アイテム分の需要予測。対象カラムは "<item>_used" という命名規約で導出する。
func (ps *PredictorService) PredictDemandItem(hist *models.History, itemCode string) (*models.RegressionForecast, error) {
	return ps.predictRegression(hist, KindDemand, itemCode, itemCode+"_used", FeatureOptions{})
}

// PredictSyndrome 1症候群分の発生確率予測。対象カラムは "<syn>_cases"。
func (ps *PredictorService) PredictSyndrome(hist *models.History, synCode string) (*models.SyndromeForecast, error) {
	matrix, err := ps.featureService.BuildFeatures(hist, synCode+"_cases", FeatureOptions{
		FillMissingTarget:    true,
		TotalPatientsContext: true,
	})
	if err != nil {
		return nil, err
	}

	art, err := ps.artifactService.LoadArtifact(KindSyndromes, synCode)
	if err != nil {
		return nil, err
	}

	vector, _, err := latestAlignedVector(matrix, art, synCode)
	if err != nil {
		return nil, err
	}

	return &models.SyndromeForecast{
		Syndrome:    synCode,
		Probability: art.Model.Predict(vector),
		Threshold:   art.Threshold,
	}, nil
}

// predictRegression 回帰エンティティ共通のパイプライン
func (ps *PredictorService) predictRegression(hist *models.History, kind, entityID, targetColumn string, opts FeatureOptions) (*models.RegressionForecast, error) {
	matrix, err := ps.featureService.BuildFeatures(hist, targetColumn, opts)
	if err != nil {
		return nil, err
	}

	art, err := ps.artifactService.LoadArtifact(kind, entityID)
	if err != nil {
		return nil, err
	}

	vector, forDate, err := latestAlignedVector(matrix, art, entityID)
	if err != nil {
		return nil, err
	}

	point := art.Model.Predict(vector)
	return &models.RegressionForecast{
		Point:   point,
		Lower:   point + art.Intervals.P10,
		Upper:   point + art.Intervals.P90,
		ForDate: forDate,
	}, nil
}

// PredictDemandBatch 複数アイテムの需要をまとめて予測する。
// アーティファクト欠落・カラム欠落・履歴不足のアイテムはスキップし、
// 1件も成功しなかった場合のみエラーを返す。
func (ps *PredictorService) PredictDemandBatch(hist *models.History, items []string) ([]models.DemandForecastItem, error) {
	if len(items) == 0 {
		items = ps.artifactService.ListEntities(KindDemand)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("demand: %w", ErrNoArtifacts)
	}

	var out []models.DemandForecastItem
	for _, item := range items {
		fc, err := ps.PredictDemandItem(hist, item)
		if err != nil {
			if isSkippable(err) {
				log.Printf("demand prediction skipped for '%s': %v", item, err)
				continue
			}
			return nil, fmt.Errorf("error predicting item '%s': %w", item, err)
		}
		out = append(out, models.DemandForecastItem{
			ItemCode: item,
			Yhat:     fc.Point,
			P10:      fc.Lower,
			P90:      fc.Upper,
		})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("demand: %w", ErrNoPredictions)
	}
	return out, nil
}

// PredictSyndromesTopN 全症候群（または指定サブセット）を予測し、確率降順の上位topNを返す。
// ランクは1始まり。失敗した症候群はスキップする。
func (ps *PredictorService) PredictSyndromesTopN(hist *models.History, topN int, syndromes []string) ([]models.SyndromeRankItem, error) {
	if len(syndromes) == 0 {
		syndromes = ps.artifactService.ListEntities(KindSyndromes)
	}
	if len(syndromes) == 0 {
		return nil, fmt.Errorf("syndromes: %w", ErrNoArtifacts)
	}

	var forecasts []models.SyndromeForecast
	for _, syn := range syndromes {
		fc, err := ps.PredictSyndrome(hist, syn)
		if err != nil {
			log.Printf("syndrome prediction skipped for '%s': %v", syn, err)
			continue
		}
		forecasts = append(forecasts, *fc)
	}
	if len(forecasts) == 0 {
		return nil, fmt.Errorf("syndromes: %w", ErrNoPredictions)
	}

	sort.SliceStable(forecasts, func(i, j int) bool {
		return forecasts[i].Probability > forecasts[j].Probability
	})

	if topN < 1 {
		topN = 1
	}
	if topN > len(forecasts) {
		topN = len(forecasts)
	}

	out := make([]models.SyndromeRankItem, 0, topN)
	for i := 0; i < topN; i++ {
		out = append(out, models.SyndromeRankItem{
			Syndrome:    forecasts[i].Syndrome,
			Probability: forecasts[i].Probability,
			Rank:        i + 1,
		})
	}
	return out, nil
}

// latestAlignedVector 有効行の最終行をアーティファクトの期待スキーマに整列して返す。
// 整列: 期待リストに無い構築済みカラムは捨て、構築されていない期待カラムは0、順序は期待リストそのもの。
func latestAlignedVector(matrix *models.FeatureMatrix, art *ModelArtifact, entityID string) ([]float64, time.Time, error) {
	valid := matrix.ValidRows()
	if len(valid) == 0 {
		return nil, time.Time{}, &models.InsufficientHistoryError{EntityID: entityID}
	}

	last := valid[len(valid)-1]

	featureList := art.Features
	if featureList == nil {
		// volumeのfeatures.json省略時は構築順の全カラムを使う
		featureList = matrix.Columns
	}

	vector := make([]float64, len(featureList))
	for i, name := range featureList {
		if v, ok := last.Values[name]; ok {
			vector[i] = v
		}
	}
	return vector, last.Date, nil
}

// isSkippable エンティティ単位で回復可能（スキップすべき）なエラーかどうか
func isSkippable(err error) bool {
	var schemaErr *models.SchemaError
	var missingErr *models.ArtifactMissingError
	var histErr *models.InsufficientHistoryError
	return errors.As(err, &schemaErr) || errors.As(err, &missingErr) || errors.As(err, &histErr)
}
