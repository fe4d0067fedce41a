package services

import (
	"path/filepath"

	"smartcare-api/pkg/models"
)

// NurseLogService 看護師の日次症状記録を管理するサービス。
// 症状カウントは同じ日付への追記で加算され、メモ・記入者は上書きされる。
type NurseLogService struct {
	store          *JSONStore
	historyService *HistoryService
}

// NewNurseLogService 新しい看護師記録サービスを作成
func NewNurseLogService(dataDir string, historyService *HistoryService) *NurseLogService {
	return &NurseLogService{
		store:          NewJSONStore(filepath.Join(dataDir, "nurse_log.json")),
		historyService: historyService,
	}
}

// Append 指定日（rawDateが空なら today）に記録を加算マージして保存し、保存後の値を返す。
func (ns *NurseLogService) Append(rawDate, today string, req models.NurseLogRequest) (models.NurseLogEntry, error) {
	dateNorm := today
	if rawDate != "" {
		var err error
		dateNorm, err = ns.historyService.NormalizeDate(rawDate)
		if err != nil {
			return models.NurseLogEntry{}, err
		}
	}

	logs := make(map[string]models.NurseLogEntry)
	_ = ns.store.Load(&logs)

	entry := logs[dateNorm] // 無ければゼロ値（全症状0）
	entry.Date = dateNorm

	// 症状カウントは加算（全キーが常に存在するようゼロ値を維持）
	addCount(&entry.Fever, req.Fever)
	addCount(&entry.Cough, req.Cough)
	addCount(&entry.Diarrhea, req.Diarrhea)
	addCount(&entry.Vomiting, req.Vomiting)
	addCount(&entry.Cold, req.Cold)

	// メモ・記入者は指定された場合のみ上書き
	if req.Notes != nil {
		entry.Notes = *req.Notes
	}
	if req.By != nil {
		entry.By = *req.By
	}

	logs[dateNorm] = entry
	if err := ns.store.Save(logs); err != nil {
		return models.NurseLogEntry{}, err
	}
	return entry, nil
}

// Get 指定日の記録を返す（無ければnil）
func (ns *NurseLogService) Get(rawDate string) (string, *models.NurseLogEntry, error) {
	dateNorm, err := ns.historyService.NormalizeDate(rawDate)
	if err != nil {
		return "", nil, err
	}

	logs := make(map[string]models.NurseLogEntry)
	_ = ns.store.Load(&logs)

	if entry, ok := logs[dateNorm]; ok {
		return dateNorm, &entry, nil
	}
	return dateNorm, nil, nil
}

// Today 本日分の記録を返す（無ければnil）
func (ns *NurseLogService) Today(today string) *models.NurseLogEntry {
	logs := make(map[string]models.NurseLogEntry)
	_ = ns.store.Load(&logs)
	if entry, ok := logs[today]; ok {
		return &entry
	}
	return nil
}

// addCount nilでないカウントを加算する
func addCount(dst *int, v *int) {
	if v != nil {
		*dst += *v
	}
}
