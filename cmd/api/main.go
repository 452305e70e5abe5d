package main

import (
	"context"
	"database/sql"
	"errors"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/cleberrangel/pert-estimator-api/internal/config"
	"github.com/cleberrangel/pert-estimator-api/internal/database"
	"github.com/cleberrangel/pert-estimator-api/internal/handler"
	"github.com/cleberrangel/pert-estimator-api/internal/i18n"
	"github.com/cleberrangel/pert-estimator-api/internal/logger"
	"github.com/cleberrangel/pert-estimator-api/internal/metrics"
	"github.com/cleberrangel/pert-estimator-api/internal/middleware"
	"github.com/cleberrangel/pert-estimator-api/internal/migration"
	"github.com/cleberrangel/pert-estimator-api/internal/preferences"
	"github.com/cleberrangel/pert-estimator-api/internal/render"
	"github.com/cleberrangel/pert-estimator-api/internal/repository"
	"github.com/cleberrangel/pert-estimator-api/internal/service"
	"github.com/cleberrangel/pert-estimator-api/internal/session"
	"github.com/cleberrangel/pert-estimator-api/internal/websocket"
	"github.com/gin-gonic/gin"
)

const Version = "1.0.0"

func main() {
	// Carrega configurações
	cfg, err := config.Load()
	if err != nil {
		stdlog.Fatalf("Erro ao carregar configurações: %v", err)
	}

	// Inicializa logger estruturado
	logger.Init(cfg.LogLevel, cfg.LogJSON)
	log := logger.Global()
	log.Info().
		Str("version", Version).
		Str("port", cfg.Port).
		Str("log_level", cfg.LogLevel).
		Bool("log_json", cfg.LogJSON).
		Str("default_language", cfg.DefaultLanguage).
		Msg("PERT Estimator iniciando")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Traduções: falha no carregamento não bloqueia a inicialização
	translator := i18n.NewTranslator(i18n.LoadOrEmpty(cfg.TranslationsPath), cfg.DefaultLanguage)

	// Banco de preferências (opcional)
	db, repo := openPreferences(ctx, cfg)
	if db != nil {
		defer database.Close(db)
	}

	var prefRepo preferences.Repository
	if repo != nil {
		prefRepo = repo
		go cleanupExpiredPreferences(ctx, repo)
	}

	secureCookie := cfg.GinMode == gin.ReleaseMode
	prefs := preferences.NewFactory(prefRepo, secureCookie)

	sessions := session.NewStore(cfg.SessionTTL, cfg.Percentiles)
	defer sessions.Stop()

	metrics.Init()

	renderer, err := render.NewRenderer(translator)
	if err != nil {
		log.Fatal().Err(err).Msg("Erro ao carregar templates")
	}

	// Inicializa dependências
	dispatcher := service.NewDispatcher(translator, metrics.Get())
	exports := service.NewExportService(translator, metrics.Get())

	pageHandler := handler.NewPageHandler(sessions, renderer, prefs, translator, cfg.DefaultTheme)
	sessionHandler := handler.NewSessionHandler(sessions, dispatcher, renderer, exports, prefs)
	estimateHandler := handler.NewEstimateHandler(cfg.Percentiles)
	preferencesHandler := handler.NewPreferencesHandler(prefs, translator, cfg.DefaultTheme)
	translationsHandler := handler.NewTranslationsHandler(translator)

	// O hub para depois do aviso de desligamento, não no sinal
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	hub := websocket.NewHub(sessionHandler.HandleLiveEvent)
	go hub.Run(hubCtx)
	dispatcher.OnRender(handler.LiveUpdates(renderer, hub))

	wsHandler := handler.NewWebSocketHandler(hub)
	healthHandler := handler.NewHealthHandler(db, hub, sessions, translator, Version)

	// Configura modo do Gin
	gin.SetMode(cfg.GinMode)

	// Inicializa router
	r := gin.New()
	r.Use(middleware.RequestID()) // Request ID + logging estruturado
	r.Use(gin.Recovery())
	r.Use(middleware.Visitor(secureCookie))
	r.Use(middleware.MetricsMiddleware())
	r.Use(middleware.AuditMiddleware())

	// Health check (público)
	r.GET("/health/live", healthHandler.LivenessCheck)
	r.GET("/health/ready", healthHandler.ReadinessCheck)

	// Métricas (protegidas por token quando METRICS_TOKEN_HASH está definido)
	metricsGroup := r.Group("/metrics")
	metricsGroup.Use(middleware.BearerAuth(middleware.AuthConfig{
		TokenHash: cfg.MetricsTokenHash,
	}))
	{
		metricsGroup.GET("", healthHandler.GetMetrics)
		metricsGroup.GET("/summary", healthHandler.GetMetricsSummary)
		metricsGroup.GET("/endpoints", healthHandler.GetEndpointMetrics)
		metricsGroup.GET("/websocket", wsHandler.GetConnectionStats)
		metricsGroup.GET("/memory", memoryStats)
		metricsGroup.POST("/gc", forceGC)
	}

	// Página e arquivos estáticos
	r.GET("/", pageHandler.Index)
	r.StaticFS("/static", http.FS(render.Static()))

	// WebSocket da sessão
	r.GET("/ws",
		websocket.SessionMiddleware(middleware.GetVisitorID, sessionHandler.LookupSession),
		wsHandler.HandleConnection,
	)

	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute)

	api := r.Group("/api/v1")
	api.Use(limiter.Middleware())
	{
		api.GET("/sessions/:id", sessionHandler.GetSession)
		api.POST("/sessions/:id/events", sessionHandler.PostEvent)
		api.GET("/sessions/:id/export.csv", sessionHandler.ExportCSV)
		api.GET("/sessions/:id/export.xlsx", sessionHandler.ExportXLSX)

		api.POST("/estimate", estimateHandler.Estimate)

		api.GET("/preferences", preferencesHandler.GetPreferences)
		api.PUT("/preferences", preferencesHandler.UpdatePreferences)

		api.GET("/translations", translationsHandler.ListLanguages)
		api.GET("/translations/:lang", translationsHandler.GetTranslations)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Inicia servidor
	go func() {
		log.Info().Str("port", cfg.Port).Msg("Servidor iniciando")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Erro ao iniciar servidor")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Encerrando servidor")

	hub.Broadcast(websocket.OutMessage{
		Type:      websocket.MessageTypeShutdown,
		Timestamp: time.Now(),
	})
	stopHub()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Erro ao encerrar servidor")
	}
}

// openPreferences conecta ao PostgreSQL e aplica as migrações.
// Qualquer falha desativa o banco e as preferências ficam só nos cookies.
func openPreferences(ctx context.Context, cfg *config.Config) (*sql.DB, *repository.PreferenceRepository) {
	log := logger.Global()
	if !cfg.Database.Enabled() {
		log.Info().Msg("Banco não configurado, preferências somente em cookies")
		return nil, nil
	}

	db, err := database.Connect(ctx, cfg.Database, database.DefaultPool())
	if err != nil {
		log.Warn().Err(err).Msg("Falha ao conectar ao banco, preferências somente em cookies")
		return nil, nil
	}

	applied, err := migration.NewMigrator(db).Run(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Falha ao aplicar migrações, preferências somente em cookies")
		database.Close(db)
		return nil, nil
	}
	log.Info().Int("applied", applied).Msg("Migrações aplicadas")

	return db, repository.NewPreferenceRepository(db)
}

// cleanupExpiredPreferences remove preferências expiradas a cada hora
func cleanupExpiredPreferences(ctx context.Context, repo *repository.PreferenceRepository) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := repo.DeleteExpired(ctx)
			if err != nil {
				logger.Global().Warn().Err(err).Msg("Erro ao remover preferências expiradas")
				continue
			}
			if removed > 0 {
				logger.Global().Info().Int64("removed", removed).Msg("Preferências expiradas removidas")
			}
		}
	}
}

func memoryStats(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	c.JSON(http.StatusOK, gin.H{
		"alloc_mb":       m.Alloc / 1024 / 1024,
		"total_alloc_mb": m.TotalAlloc / 1024 / 1024,
		"sys_mb":         m.Sys / 1024 / 1024,
		"heap_alloc_mb":  m.HeapAlloc / 1024 / 1024,
		"heap_inuse_mb":  m.HeapInuse / 1024 / 1024,
		"heap_objects":   m.HeapObjects,
		"goroutines":     runtime.NumGoroutine(),
		"gc_runs":        m.NumGC,
		"gc_pause_total": m.PauseTotalNs / 1000000, // ms
	})
}

func forceGC(c *gin.Context) {
	runtime.GC()
	debug.FreeOSMemory()
	c.JSON(http.StatusOK, gin.H{"status": "gc_completed"})
}
