package models

import "fmt"

// SchemaError 期待されたカラムが履歴テーブルに存在しない場合のエラー。
// バッチ予測ではこのエンティティをスキップして処理を継続する。
type SchemaError struct {
	Column string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("column '%s' not found in history", e.Column)
}

// ArtifactMissingError 学習済みアーティファクトの必須ファイルが存在しない場合のエラー
type ArtifactMissingError struct {
	Kind     string
	EntityID string
	File     string
}

func (e *ArtifactMissingError) Error() string {
	return fmt.Sprintf("artifact file '%s' not found for %s entity '%s'", e.File, e.Kind, e.EntityID)
}

// InsufficientHistoryError lag/rolling特徴量を構成できるだけの履歴がない場合のエラー
type InsufficientHistoryError struct {
	EntityID string
}

func (e *InsufficientHistoryError) Error() string {
	if e.EntityID == "" {
		return "not enough history to form features (lags/rollings)"
	}
	return fmt.Sprintf("not enough history to predict '%s'", e.EntityID)
}

// InvalidInputError 不正な日付や範囲外の座標など、計算前に拒否される入力エラー
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return e.Reason
}

// UpstreamError 外部気象APIの呼び出し失敗。リトライ可能なエラーとして呼び出し元に返す。
type UpstreamError struct {
	Provider string
	Reason   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("weather provider %s error: %s", e.Provider, e.Reason)
}
