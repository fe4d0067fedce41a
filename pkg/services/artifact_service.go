package services

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"smartcare-api/pkg/models"
)

// エンティティ種別
const (
	KindVolume    = "volume"
	KindDemand    = "demand"
	KindSyndromes = "syndromes"
)

// Model is a fitted predictor loaded from an artifact. Predictions are
// deterministic functions of the aligned feature vector.
type Model interface {
	// Predict 整列済み特徴量ベクトルに対する点予測（分類モデルは確率を返す）
	Predict(features []float64) float64
}

// linearModel 回帰エンティティ用の線形モデル
type linearModel struct {
	Intercept float64
	Weights   []float64
}

func (m *linearModel) Predict(features []float64) float64 {
	return m.score(features)
}

func (m *linearModel) score(features []float64) float64 {
	out := m.Intercept
	for i, w := range m.Weights {
		if i < len(features) {
			out += w * features[i]
		}
	}
	return out
}

// logisticModel 分類エンティティ用のロジスティックモデル。Predictは確率を返す。
type logisticModel struct {
	linearModel
}

func (m *logisticModel) Predict(features []float64) float64 {
	return 1.0 / (1.0 + math.Exp(-m.score(features)))
}

// ResidualIntervals 回帰アーティファクトの残差オフセット（p10は負、p90は正が通常）
type ResidualIntervals struct {
	P10 float64
	P90 float64
}

// ModelArtifact 1エンティティ分の読み込み済みアーティファクト。読み込み後は不変。
type ModelArtifact struct {
	Kind      string
	EntityID  string
	Model     Model
	Features  []string // 学習時の特徴量カラム名リスト（順序が予測精度を決める）。nilならフォールバック。
	Intervals ResidualIntervals
	Threshold float64 // 分類エンティティの判定しきい値
}

// ArtifactService 学習済みアーティファクトのレジストリ。
// プロセス存続期間キャッシュ（初回利用時に読み込み、以後読み取り専用）。
type ArtifactService struct {
	baseDir string
	mu      sync.RWMutex
	cache   map[string]*ModelArtifact // "<kind>/<entityID>" -> artifact
}

// NewArtifactService 新しいアーティファクトレジストリを作成
func NewArtifactService(baseDir string) *ArtifactService {
	return &ArtifactService{
		baseDir: baseDir,
		cache:   make(map[string]*ModelArtifact),
	}
}

// ListEntities 指定種別のアーティファクトを持つエンティティIDをソート済みで返す。
// ディレクトリが存在しない場合は空リスト（エラーにしない）。
func (as *ArtifactService) ListEntities(kind string) []string {
	if kind == KindVolume {
		if _, err := os.Stat(filepath.Join(as.baseDir, KindVolume)); err != nil {
			return nil
		}
		return []string{KindVolume}
	}

	entries, err := os.ReadDir(filepath.Join(as.baseDir, kind))
	if err != nil {
		return nil
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	sort.Strings(ids)
	return ids
}

// LoadArtifact アーティファクトを読み込む（キャッシュ済みならそれを返す）。
// 必須ファイルが欠けている場合はArtifactMissingErrorで欠落ファイル名を報告する。
func (as *ArtifactService) LoadArtifact(kind, entityID string) (*ModelArtifact, error) {
	key := kind + "/" + entityID

	as.mu.RLock()
	if art, ok := as.cache[key]; ok {
		as.mu.RUnlock()
		return art, nil
	}
	as.mu.RUnlock()

	art, err := as.loadFromDisk(kind, entityID)
	if err != nil {
		return nil, err
	}

	as.mu.Lock()
	as.cache[key] = art
	as.mu.Unlock()
	return art, nil
}

// modelFile model.jsonのディスク上の表現
type modelFile struct {
	Type      string    `json:"type"` // "linear" or "logistic"
	Intercept float64   `json:"intercept"`
	Weights   []float64 `json:"weights"`
}

// featuresFile features.jsonのディスク上の表現
type featuresFile struct {
	Features []string `json:"features"`
}

// intervalsFile intervals.jsonのディスク上の表現
type intervalsFile struct {
	ResidualP10 *float64 `json:"residual_p10"`
	ResidualP90 *float64 `json:"residual_p90"`
}

// metaFile meta.jsonのディスク上の表現（分類エンティティ）
type metaFile struct {
	Threshold *float64 `json:"threshold"`
}

func (as *ArtifactService) loadFromDisk(kind, entityID string) (*ModelArtifact, error) {
	var dir string
	if kind == KindVolume {
		dir = filepath.Join(as.baseDir, KindVolume)
	} else {
		dir = filepath.Join(as.baseDir, kind, entityID)
	}

	art := &ModelArtifact{
		Kind:      kind,
		EntityID:  entityID,
		Intervals: ResidualIntervals{P10: -1.0, P90: 1.0},
		Threshold: 0.5,
	}

	// model.json（全種別で必須）
	var mf modelFile
	if err := readArtifactJSON(dir, "model.json", &mf); err != nil {
		return nil, &models.ArtifactMissingError{Kind: kind, EntityID: entityID, File: "model.json"}
	}
	lm := linearModel{Intercept: mf.Intercept, Weights: mf.Weights}
	switch mf.Type {
	case "logistic":
		art.Model = &logisticModel{linearModel: lm}
	case "linear", "":
		art.Model = &lm
	default:
		return nil, fmt.Errorf("unsupported model type %q for %s/%s", mf.Type, kind, entityID)
	}

	// features.json（volumeのみ省略可：構築順の全カラムを使うフォールバック）
	var ff featuresFile
	if err := readArtifactJSON(dir, "features.json", &ff); err != nil {
		if kind != KindVolume {
			return nil, &models.ArtifactMissingError{Kind: kind, EntityID: entityID, File: "features.json"}
		}
	} else {
		art.Features = ff.Features
	}

	// intervals.json（回帰）/ meta.json（分類）
	if kind == KindSyndromes {
		var meta metaFile
		if err := readArtifactJSON(dir, "meta.json", &meta); err != nil {
			return nil, &models.ArtifactMissingError{Kind: kind, EntityID: entityID, File: "meta.json"}
		}
		if meta.Threshold != nil {
			art.Threshold = *meta.Threshold
		}
	} else {
		var intv intervalsFile
		if err := readArtifactJSON(dir, "intervals.json", &intv); err != nil {
			return nil, &models.ArtifactMissingError{Kind: kind, EntityID: entityID, File: "intervals.json"}
		}
		if intv.ResidualP10 != nil {
			art.Intervals.P10 = *intv.ResidualP10
		}
		if intv.ResidualP90 != nil {
			art.Intervals.P90 = *intv.ResidualP90
		}
	}

	return art, nil
}

// readArtifactJSON reads and unmarshals one artifact file.
func readArtifactJSON(dir, name string, out interface{}) error {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return nil
}
