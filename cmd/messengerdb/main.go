package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"messengerdb/internal/sweeper"
	"messengerdb/pkg/api"
	"messengerdb/pkg/banner"
	"messengerdb/pkg/config"
	"messengerdb/pkg/logger"
	"messengerdb/pkg/security"
	"messengerdb/pkg/shutdown"
	"messengerdb/pkg/store"
	"messengerdb/pkg/telemetry"
)

// build metadata - set via ldflags during build/release
var (
	version = "dev"
	commit  = "none"
)

func main() {
	_ = godotenv.Load(".env")
	addrVal, dbVal, cfgVal, setFlags := config.ParseCommandFlags()

	eff, err := config.LoadEffective(cfgVal)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	// flags win over config/env when provided by the user
	if setFlags["addr"] {
		eff.Addr = addrVal
	}
	if setFlags["db"] {
		eff.DBPath = dbVal
	}

	logger.InitWith(eff.Config.Logging.Level, eff.Config.Logging.Format)

	config.SetRuntime(&config.RuntimeConfig{
		DefaultPageSize:         eff.Config.Pagination.DefaultPageSize,
		MaxPageSize:             eff.Config.Pagination.MaxPageSize,
		PreviewMaxLen:           eff.Config.Messaging.PreviewMaxLen,
		SecondaryWriteTimeoutMS: eff.Config.Messaging.SecondaryWriteTimeoutMS,
	})

	if err := store.Open(eff.DBPath); err != nil {
		log.Fatalf("failed to open pebble at %s: %v", eff.DBPath, err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("store_close_failed", "error", err)
		}
	}()

	ctx, cancel := shutdown.SetupSignalHandler(context.Background())
	defer cancel()

	stopSweeper, err := sweeper.Start(ctx, eff.Config)
	if err != nil {
		log.Fatalf("failed to start sweeper: %v", err)
	}
	defer stopSweeper()

	verStr := version
	if commit != "none" {
		verStr = verStr + " (" + commit + ")"
	}
	banner.Print(eff, verStr)

	mux := http.NewServeMux()

	// Liveness probe used by deployment systems and CI
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.Handle("/", telemetry.InstrumentHandler("api", api.Handler()))

	// Swagger UI at /docs and the OpenAPI spec at /openapi.yaml
	mux.Handle("/docs/", httpSwagger.Handler(httpSwagger.URL("/openapi.yaml")))
	mux.Handle("/openapi.yaml", http.FileServer(http.Dir("./docs")))
	mux.Handle("/metrics", promhttp.Handler())

	secCfg := security.SecConfig{
		AllowedOrigins: eff.Config.Security.CORS.AllowedOrigins,
		RPS:            eff.Config.Security.RateLimit.RPS,
		Burst:          eff.Config.Security.RateLimit.Burst,
	}
	wrapped := security.Middleware(secCfg)(mux)

	srv := &http.Server{
		Addr:              eff.Addr,
		Handler:           wrapped,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("http_listen", "addr", eff.Addr)
		cert := eff.Config.Server.TLS.CertFile
		key := eff.Config.Server.TLS.KeyFile
		if cert != "" && key != "" {
			errCh <- srv.ListenAndServeTLS(cert, key)
			return
		}
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shctx, shcancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shcancel()
		if err := srv.Shutdown(shctx); err != nil {
			logger.Error("http_shutdown_failed", "error", err)
		}
		logger.Info("server_stopped")
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server error: %v", err)
		}
	}
}
