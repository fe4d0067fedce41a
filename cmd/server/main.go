package main

import (
	"log"
	"net/http"
	"strconv"
	"time"

	config "smartcare-api/configs"
	"smartcare-api/pkg/handlers"
	"smartcare-api/pkg/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// .envファイルを読み込み
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or could not be loaded: %v", err)
	}

	// 設定の読み込み
	cfg := config.LoadConfig()

	// クリニックのタイムゾーン（日次の境界を決める）
	location, err := time.LoadLocation(cfg.ClinicTimezone)
	if err != nil {
		log.Printf("Warning: invalid CLINIC_TIMEZONE %q, falling back to UTC: %v", cfg.ClinicTimezone, err)
		location = time.UTC
	}

	// クリニックの既定座標（/weather/fetch で座標が省略された場合に使う）
	clinicLat := parseCoordinate("CLINIC_LAT", cfg.ClinicLat)
	clinicLon := parseCoordinate("CLINIC_LON", cfg.ClinicLon)

	// Ginルーターの初期化
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()

	// サービスの初期化
	monitoringService := services.NewMonitoringService(location)
	historyService := services.NewHistoryService(cfg.DataDir)
	featureService := services.NewFeatureService()
	artifactService := services.NewArtifactService(cfg.ArtifactsDir)
	predictorService := services.NewPredictorService(featureService, artifactService)
	alertService := services.NewAlertService()
	inventoryStore := services.NewInventoryStore(cfg.DataDir)
	nurseLogService := services.NewNurseLogService(cfg.DataDir, historyService)
	weatherService := services.NewWeatherService(config.GetOpenWeatherMapConfig(), historyService, clinicLat, clinicLon)

	// ハンドラーの初期化
	forecastHandler := handlers.NewForecastHandler(historyService, predictorService, location)
	dashboardHandler := handlers.NewDashboardHandler(historyService, predictorService, alertService, inventoryStore, nurseLogService, location)
	inventoryHandler := handlers.NewInventoryHandler(inventoryStore)
	weatherHandler := handlers.NewWeatherHandler(weatherService, location)
	nurseLogHandler := handlers.NewNurseLogHandler(nurseLogService, location)
	monitoringHandler := handlers.NewMonitoringHandler(monitoringService)

	// ミドルウェアの登録
	r.Use(monitoringService.LoggingMiddleware()) // ロギングミドルウェアをグローバルに適用
	r.Use(cors.Default())

	// 認証ミドルウェア
	authMiddleware := func(apiKey string) gin.HandlerFunc {
		return func(c *gin.Context) {
			if apiKey == "" || apiKey == "default_secret_key" {
				c.Next()
				return
			}
			providedKey := c.GetHeader("X-API-KEY")
			if providedKey != apiKey {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
				return
			}
			c.Next()
		}
	}

	// ヘルスチェックエンドポイント
	r.GET("/health", handlers.HealthCheck)

	// APIバージョン1のルートグループ
	v1 := r.Group("/api/v1")
	v1.Use(authMiddleware(cfg.APIKey))
	{
		// 予測API
		predict := v1.Group("/predict")
		{
			predict.POST("/volume", forecastHandler.PredictVolume)
			predict.POST("/demand", forecastHandler.PredictDemand)
			predict.POST("/syndromes", forecastHandler.PredictSyndromes)
		}

		// モバイル向けダッシュボードAPI
		v1.GET("/mobile/today", dashboardHandler.GetMobileToday)
		v1.GET("/alerts", dashboardHandler.GetAlerts)

		// 在庫API
		v1.GET("/inventory", inventoryHandler.GetInventory)
		v1.POST("/inventory/upsert", inventoryHandler.UpsertInventory)

		// 気象データAPI
		weather := v1.Group("/weather")
		{
			weather.POST("/upsert", weatherHandler.UpsertWeather)
			weather.GET("/today", weatherHandler.GetTodayWeather)
			weather.POST("/fetch", weatherHandler.FetchWeather)
		}

		// 看護師記録API
		nurse := v1.Group("/nurse")
		{
			nurse.POST("/log", nurseLogHandler.PostLog)
			nurse.GET("/log/:date", nurseLogHandler.GetLog)
		}

		// デバッグAPI
		debug := v1.Group("/debug")
		{
			debug.GET("/status-thresholds", dashboardHandler.GetStatusThresholds)
			debug.GET("/env", dashboardHandler.GetDebugEnv)
		}

		// モニタリングAPI
		monitoring := v1.Group("/monitoring")
		{
			monitoring.GET("/logs", monitoringHandler.GetLogs)
		}
	}

	log.Printf("Starting SmartCare API server on :%s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}

// parseCoordinate 設定された座標文字列を数値にする。読めない値は0（検証は取得時に行う）。
func parseCoordinate(name, raw string) float64 {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Printf("Warning: invalid %s %q, falling back to 0: %v", name, raw, err)
		return 0
	}
	return v
}
