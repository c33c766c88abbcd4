package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/joho/godotenv"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"

	"github.com/mmynk/rowflow/internal/archive"
	"github.com/mmynk/rowflow/internal/auth"
	"github.com/mmynk/rowflow/internal/backend"
	"github.com/mmynk/rowflow/internal/config"
	"github.com/mmynk/rowflow/internal/ledger"
	"github.com/mmynk/rowflow/internal/metrics"
	"github.com/mmynk/rowflow/internal/middleware"
	"github.com/mmynk/rowflow/internal/service"
	"github.com/mmynk/rowflow/pkg/api/apiconnect"
	"github.com/mmynk/rowflow/pkg/logging"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	cfg, err := config.Load(".")
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.Log.Level)

	if err := cfg.ValidateServer(); err != nil {
		logger.Error("Invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	store, err := backend.OpenStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer store.Close()
	logger.Info("Storage initialized", "backend", cfg.Storage.Backend, "location", backend.Location(cfg.Storage))

	publisher := backend.OpenPublisher(cfg.AMQP, logger)
	defer publisher.Close()

	m := metrics.New()
	l := ledger.New(store,
		ledger.WithPublisher(publisher),
		ledger.WithMetrics(m),
		ledger.WithLogger(logger),
	)
	directory := auth.NewDirectory(store, l, cfg.Auth.BcryptCost)
	jwtManager := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	trainingOpts := []service.TrainingOption{service.WithTrainingMetrics(m)}
	if cfg.S3.Enabled() {
		archiver, err := archive.New(ctx, cfg.S3)
		if err != nil {
			return err
		}
		trainingOpts = append(trainingOpts, service.WithArchiver(archiver))
		logger.Info("Log archive enabled", "bucket", cfg.S3.Bucket)
	}

	mux := http.NewServeMux()

	authPath, authHandler := apiconnect.NewAuthServiceHandler(
		service.NewAuthService(directory, jwtManager, m, logger),
		connect.WithInterceptors(middleware.LoggingInterceptor(m)),
	)
	mux.Handle(authPath, authHandler)

	trainingPath, trainingHandler := apiconnect.NewTrainingServiceHandler(
		service.NewTrainingService(l, logger, trainingOpts...),
		connect.WithInterceptors(middleware.RequireAuth(jwtManager), middleware.LoggingInterceptor(m)),
	)
	mux.Handle(trainingPath, trainingHandler)

	mux.Handle("/export", middleware.RequireBearer(jwtManager, service.NewExportHandler(l, logger)))
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// h2c serves HTTP/2 without TLS for Connect clients.
	handler := h2c.NewHandler(middleware.Logging(middleware.CORS(mux)), &http2.Server{})

	server := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Connect server starting", "address", cfg.Server.Address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
