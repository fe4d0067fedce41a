package services

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	config "smartcare-api/configs"
	"smartcare-api/pkg/models"
)

// WeatherService 気象補正の管理と外部気象APIからの取得を行うサービス
type WeatherService struct {
	cfg            *config.OpenWeatherMapConfig
	historyService *HistoryService
	client         *http.Client
	defaultLat     float64 // リクエストで座標が省略された場合のクリニック既定座標
	defaultLon     float64
}

// NewWeatherService 新しい気象データサービスを作成
func NewWeatherService(cfg *config.OpenWeatherMapConfig, historyService *HistoryService, defaultLat, defaultLon float64) *WeatherService {
	return &WeatherService{
		cfg:            cfg,
		historyService: historyService,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		defaultLat: defaultLat,
		defaultLon: defaultLon,
	}
}

// openWeatherResponse OpenWeatherMap current weather APIのレスポンス（必要部分のみ）
type openWeatherResponse struct {
	Main struct {
		Temp     *float64 `json:"temp"`
		Humidity *float64 `json:"humidity"`
	} `json:"main"`
	Rain struct {
		OneHour   *float64 `json:"1h"`
		ThreeHour *float64 `json:"3h"`
	} `json:"rain"`
}

// UpsertOverride 指定日の気象補正を正規化して保存する
func (ws *WeatherService) UpsertOverride(req models.WeatherUpsertRequest) (string, error) {
	dateNorm, err := ws.historyService.NormalizeDate(req.Date)
	if err != nil {
		return "", err
	}
	ovr := models.WeatherOverride{
		Temperature: req.Temperature,
		Rainfall:    req.Rainfall,
		Humidity:    req.Humidity,
	}
	if err := ws.historyService.SaveOverride(dateNorm, ovr); err != nil {
		return "", err
	}
	return dateNorm, nil
}

// TodayWeather マージ済み履歴の最終行から本日の気象値を返す
func (ws *WeatherService) TodayWeather() (date string, values map[string]*float64, err error) {
	hist, err := ws.historyService.GetMergedHistory()
	if err != nil {
		return "", nil, err
	}
	if len(hist.Records) == 0 {
		return "", nil, fmt.Errorf("no history")
	}

	last := hist.Records[len(hist.Records)-1]
	values = make(map[string]*float64)
	for _, col := range overrideColumns {
		if v, ok := last.Get(col); ok {
			vv := v
			values[col] = &vv
		} else {
			values[col] = nil
		}
	}
	return last.Date.Format("2006-01-02"), values, nil
}

// FetchLive 外部気象APIから現在の気象を取得し、指定日（省略時は本日）の補正として保存する。
// 保存は取得・解析が成功した場合のみ行う（失敗時に永続状態を汚さない）。
func (ws *WeatherService) FetchLive(req models.WeatherFetchRequest, today string) (string, models.WeatherOverride, error) {
	if ws.cfg.APIKey == "" {
		return "", models.WeatherOverride{}, fmt.Errorf("server misconfig: OPENWEATHERMAP_API_KEY is missing")
	}

	// 座標省略時はクリニックの既定座標を使う
	lat := ws.defaultLat
	if req.Lat != nil {
		lat = *req.Lat
	}
	lon := ws.defaultLon
	if req.Lon != nil {
		lon = *req.Lon
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return "", models.WeatherOverride{}, &models.InvalidInputError{Reason: "Invalid lat/lon"}
	}

	dateNorm := today
	if req.Date != "" {
		var err error
		dateNorm, err = ws.historyService.NormalizeDate(req.Date)
		if err != nil {
			return "", models.WeatherOverride{}, err
		}
	}

	units := req.Units
	if units == "" {
		units = "metric"
	}

	params := url.Values{}
	params.Set("lat", fmt.Sprintf("%f", lat))
	params.Set("lon", fmt.Sprintf("%f", lon))
	params.Set("appid", ws.cfg.APIKey)
	params.Set("units", units)

	resp, err := ws.client.Get(ws.cfg.BaseURL + "/weather?" + params.Encode())
	if err != nil {
		return "", models.WeatherOverride{}, &models.UpstreamError{Provider: "openweather", Reason: err.Error()}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode == http.StatusUnauthorized {
		return "", models.WeatherOverride{}, &models.UpstreamError{Provider: "openweather", Reason: fmt.Sprintf("auth error (401): %s", truncate(string(body), 200))}
	}
	if resp.StatusCode >= 400 {
		return "", models.WeatherOverride{}, &models.UpstreamError{Provider: "openweather", Reason: fmt.Sprintf("status %d: %s", resp.StatusCode, truncate(string(body), 200))}
	}

	var data openWeatherResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return "", models.WeatherOverride{}, &models.UpstreamError{Provider: "openweather", Reason: "unparsable response: " + err.Error()}
	}

	rain := data.Rain.OneHour
	if rain == nil {
		rain = data.Rain.ThreeHour
	}

	ovr := models.WeatherOverride{
		Temperature: data.Main.Temp,
		Rainfall:    rain,
		Humidity:    data.Main.Humidity,
	}

	// ここまで成功した場合のみ補正を書き込む
	if err := ws.historyService.SaveOverride(dateNorm, ovr); err != nil {
		return "", models.WeatherOverride{}, err
	}
	return dateNorm, ovr, nil
}

// truncate 長いエラーレスポンスの持ち回りを防ぐ
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
