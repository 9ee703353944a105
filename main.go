package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"skin-diagnosis-service/config"
	"skin-diagnosis-service/handlers"
	"skin-diagnosis-service/metrics"
	"skin-diagnosis-service/middleware"
	"skin-diagnosis-service/service"
)

func main() {
	// Load .env if present; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	metrics.Register()

	// A backend that fails to initialize (missing credential, unreachable
	// local model) must not kill the process: the service starts anyway
	// and /diagnose answers 503 until it is fixed.
	svc, err := service.NewFromConfig(cfg)
	if err != nil {
		log.WithError(err).Errorf("Failed to initialize AI backend %q, serving unavailable", cfg.Backend)
		svc = service.New(nil, cfg.ImageBudgetKB*1024)
	}

	h := handlers.NewHandlers(svc, cfg.MaxUploadMB)

	router := gin.Default()
	router.Use(middleware.CORS(cfg.AllowedOrigins))

	router.GET("/health", h.HealthCheck)
	router.POST("/diagnose", h.Diagnose)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Infof("Starting HTTP server on port %s (backend: %s)", cfg.Port, svc.SourceName())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Fatal("Server forced to shutdown")
	}

	log.Info("Server exited")
}
