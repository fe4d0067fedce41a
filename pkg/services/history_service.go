package services

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"smartcare-api/pkg/models"

	"github.com/xuri/excelize/v2"
)

// HistoryService loads the clinic's daily history table and merges dated weather
// overrides into it. The base series lives in history.csv (or history.xlsx) under
// dataDir; overrides live in weather_overrides.json keyed by "YYYY-MM-DD".
// The series is re-read on every request so that edits reflect immediately.
type HistoryService struct {
	dataDir       string
	overrideStore *JSONStore
	dateLayouts   []string
}

// NewHistoryService creates a new HistoryService.
func NewHistoryService(dataDir string) *HistoryService {
	return &HistoryService{
		dataDir:       dataDir,
		overrideStore: NewJSONStore(filepath.Join(dataDir, "weather_overrides.json")),
		dateLayouts: []string{
			time.RFC3339,
			"2006-01-02",
			"2006-1-2",
			"2006/01/02",
			"2006/1/2",
			"02-01-2006",
		},
	}
}

// overrideColumns 気象補正の対象カラム
var overrideColumns = []string{"temperature", "rainfall", "humidity"}

// GetMergedHistory 基礎系列を読み込み、気象補正を日付・フィールド単位でマージして返す。
// 補正はフィールド独立（nilのフィールドは基礎值を維持する）。
func (hs *HistoryService) GetMergedHistory() (*models.History, error) {
	hist, err := hs.loadBase()
	if err != nil {
		return nil, err
	}

	overrides := make(map[string]models.WeatherOverride)
	_ = hs.overrideStore.Load(&overrides)
	if len(overrides) == 0 {
		return hist, nil
	}

	for i := range hist.Records {
		key := hist.Records[i].Date.Format("2006-01-02")
		ovr, ok := overrides[key]
		if !ok {
			continue
		}
		applyOverride(hist.Records[i].Values, "temperature", ovr.Temperature)
		applyOverride(hist.Records[i].Values, "rainfall", ovr.Rainfall)
		applyOverride(hist.Records[i].Values, "humidity", ovr.Humidity)
	}

	// 補正でカラムが増えた場合もHasColumnが成立するよう補完する
	for _, col := range overrideColumns {
		if !hist.HasColumn(col) && columnPresent(hist.Records, col) {
			hist.Columns = append(hist.Columns, col)
		}
	}

	return hist, nil
}

// SaveOverride 指定日の気象補正を保存する（同じ日付の既存エントリは全体上書き）。
func (hs *HistoryService) SaveOverride(date string, ovr models.WeatherOverride) error {
	overrides := make(map[string]models.WeatherOverride)
	_ = hs.overrideStore.Load(&overrides)
	overrides[date] = ovr
	return hs.overrideStore.Save(overrides)
}

// NormalizeDate parses a date string against the accepted layouts and returns
// the canonical "YYYY-MM-DD" form.
func (hs *HistoryService) NormalizeDate(raw string) (string, error) {
	t, err := hs.parseDate(raw)
	if err != nil {
		return "", &models.InvalidInputError{Reason: "Invalid date format. Use YYYY-MM-DD."}
	}
	return t.Format("2006-01-02"), nil
}

// loadBase 基礎系列をCSV（無ければXLSX）から読み込む
func (hs *HistoryService) loadBase() (*models.History, error) {
	csvPath := filepath.Join(hs.dataDir, "history.csv")
	if _, err := os.Stat(csvPath); err == nil {
		rows, err := readCSVRows(csvPath)
		if err != nil {
			return nil, err
		}
		return hs.parseRows(rows)
	}

	xlsxPath := filepath.Join(hs.dataDir, "history.xlsx")
	if _, err := os.Stat(xlsxPath); err == nil {
		rows, err := readXLSXRows(xlsxPath)
		if err != nil {
			return nil, err
		}
		return hs.parseRows(rows)
	}

	return nil, fmt.Errorf("history file not found under %s (expected history.csv or history.xlsx)", hs.dataDir)
}

// readCSVRows reads all rows from a CSV file.
func readCSVRows(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV %s: %w", path, err)
	}
	return rows, nil
}

// readXLSXRows reads all rows from the first sheet of an XLSX workbook.
func readXLSXRows(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open XLSX %s: %w", path, err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("failed to read XLSX rows: %w", err)
	}
	return rows, nil
}

// parseRows ヘッダー行付きの表をHistoryに変換する。
// date以外のカラムは数値として解釈し、解釈できないセルは欠損として扱う（ゼロ埋めしない）。
func (hs *HistoryService) parseRows(rows [][]string) (*models.History, error) {
	if len(rows) < 2 {
		return nil, fmt.Errorf("history table has no data rows")
	}

	header := rows[0]
	dateIdx := -1
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), "date") {
			dateIdx = i
			break
		}
	}
	if dateIdx < 0 {
		return nil, fmt.Errorf("history table has no 'date' column")
	}

	var columns []string
	for i, h := range header {
		if i != dateIdx {
			columns = append(columns, strings.TrimSpace(h))
		}
	}

	byDate := make(map[time.Time]models.HistoryRecord)
	for _, row := range rows[1:] {
		if dateIdx >= len(row) {
			continue
		}
		date, err := hs.parseDate(strings.TrimSpace(row[dateIdx]))
		if err != nil {
			continue // 日付が読めない行はスキップ
		}

		values := make(map[string]float64)
		ci := 0
		for i := range header {
			if i == dateIdx {
				continue
			}
			if i < len(row) {
				cell := strings.TrimSpace(row[i])
				if cell != "" {
					if v, err := strconv.ParseFloat(cell, 64); err == nil {
						values[columns[ci]] = v
					}
				}
			}
			ci++
		}
		// 同じ日付は後勝ち
		byDate[date] = models.HistoryRecord{Date: date, Values: values}
	}

	records := make([]models.HistoryRecord, 0, len(byDate))
	for _, rec := range byDate {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Date.Before(records[j].Date)
	})

	return &models.History{Columns: columns, Records: records}, nil
}

// parseDate tries each accepted layout in order.
func (hs *HistoryService) parseDate(raw string) (time.Time, error) {
	for _, layout := range hs.dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Truncate(24 * time.Hour), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date: %q", raw)
}

// applyOverride 補正値がnilでない場合のみ基礎値を置き換える
func applyOverride(values map[string]float64, column string, v *float64) {
	if v != nil {
		values[column] = *v
	}
}

// columnPresent reports whether any record carries the column.
func columnPresent(records []models.HistoryRecord, column string) bool {
	for _, r := range records {
		if _, ok := r.Values[column]; ok {
			return true
		}
	}
	return false
}
