package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"mailhub/internal/activity"
	"mailhub/internal/config"
	"mailhub/internal/dispatch"
	"mailhub/internal/httpapi"
	"mailhub/internal/logging"
	"mailhub/internal/mailer"
	"mailhub/internal/observability"
	"mailhub/internal/render"
	"mailhub/internal/store/sqlite"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logging.Init("mailhub", cfg.Server.LogFormat)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	history, err := sqlite.Open(cfg.Server.DBPath)
	if err != nil {
		slog.Error("history db open failed", "err", err)
		os.Exit(1)
	}
	defer history.Close()

	observability.Register(prometheus.DefaultRegisterer)

	log := activity.NewLog()

	knownCIDs := make([]string, 0, len(cfg.Tenants))
	for _, t := range cfg.Tenants {
		knownCIDs = append(knownCIDs, t.CID)
	}
	renderer := render.New(cfg.Server.LogoDir, knownCIDs)

	// one pacing limiter across all tenants; the per-tenant sliding
	// windows are enforced inside the workers
	limiter := rate.NewLimiter(rate.Limit(cfg.Server.SMTPSendRPS), cfg.Server.SMTPSendBurst)

	d := dispatch.New(dispatch.Options{
		Tenants:  cfg.Tenants,
		Renderer: renderer,
		Activity: log,
		History:  history,
		NewMailer: func(tc config.TenantConfig) mailer.Mailer {
			return &mailer.SMTP{
				Tenant:  tc,
				Limiter: limiter,
				Breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
					Name:        tc.Name,
					MaxRequests: 3,
					Timeout:     20 * time.Second,
					ReadyToTrip: func(c gobreaker.Counts) bool { return c.ConsecutiveFailures >= 10 },
				}),
			}
		},
		IdleInterval:    cfg.Server.IdleInterval,
		BackoffInterval: cfg.Server.BackoffInterval,
	})
	d.Start(ctx)

	s := httpapi.New()
	api := &httpapi.API{Dispatcher: d, History: history, StaticDir: cfg.Server.StaticDir}
	api.Register(s.Mux)
	s.Mux.HandleFunc("/healthz", httpapi.Healthz())
	s.Mux.HandleFunc("/readyz", httpapi.Readyz(2*time.Second, history.Ping))

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: s.Handler(),
	}
	metricsSrv := &http.Server{
		Addr:    ":" + cfg.Server.MetricsPort,
		Handler: promhttp.Handler(),
	}

	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server failed", "err", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutdown", "signal", sig.String())
		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
		_ = metricsSrv.Shutdown(shutdownCtx)
	}()

	slog.Info("api listening", "port", cfg.Server.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server failed", "err", err)
		os.Exit(1)
	}

	d.Wait()
}
