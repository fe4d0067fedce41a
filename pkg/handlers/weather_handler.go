package handlers

import (
	"net/http"
	"time"

	"smartcare-api/pkg/models"
	"smartcare-api/pkg/services"

	"github.com/gin-gonic/gin"
)

// WeatherHandler 気象データAPIのハンドラー
type WeatherHandler struct {
	weatherService *services.WeatherService
	location       *time.Location
}

// NewWeatherHandler 新しい気象ハンドラーを作成
func NewWeatherHandler(weatherService *services.WeatherService, location *time.Location) *WeatherHandler {
	return &WeatherHandler{
		weatherService: weatherService,
		location:       location,
	}
}

// UpsertWeather 指定日の気象補正を登録する
func (wh *WeatherHandler) UpsertWeather(c *gin.Context) {
	var req models.WeatherUpsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to parse request: " + err.Error()})
		return
	}

	dateNorm, err := wh.weatherService.UpsertOverride(req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":   true,
		"date": dateNorm,
		"applied": gin.H{
			"temperature": req.Temperature,
			"rainfall":    req.Rainfall,
			"humidity":    req.Humidity,
		},
	})
}

// GetTodayWeather マージ済み履歴の最終行の気象値を返す
func (wh *WeatherHandler) GetTodayWeather(c *gin.Context) {
	date, values, err := wh.weatherService.TodayWeather()
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	out := gin.H{"date": date}
	for col, v := range values {
		if v != nil {
			out[col] = cleanNum(*v)
		} else {
			out[col] = nil
		}
	}
	c.JSON(http.StatusOK, out)
}

// FetchWeather 外部気象APIから現在の気象を取得して補正として保存する
func (wh *WeatherHandler) FetchWeather(c *gin.Context) {
	var req models.WeatherFetchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to parse request: " + err.Error()})
		return
	}

	dateNorm, applied, err := wh.weatherService.FetchLive(req, todayString(wh.location))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":      true,
		"date":    dateNorm,
		"source":  "openweather",
		"applied": applied,
	})
}
