// Command pgwire-gateway runs the PostgreSQL-to-managed-SQL wire gateway: a
// long-running process that exposes a PostgreSQL-compatible TCP endpoint
// backed by the AWS RDS Data API.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/rdsdata"

	"github.com/basinlabs/pgwire-gateway/internal/config"
	"github.com/basinlabs/pgwire-gateway/internal/server"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		return 1
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	awsCfg, err := loadAWSConfig(context.Background(), cfg)
	if err != nil {
		logger.Error("failed to load AWS configuration", "error", err)
		return 1
	}

	dataAPI := rdsdata.NewFromConfig(awsCfg)

	metrics := server.NewMetrics()

	handler := server.NewHandler(server.ConnDeps{
		API:           dataAPI,
		ClusterARN:    cfg.ClusterARN,
		SecretARN:     cfg.SecretARN,
		DatabaseName:  cfg.DatabaseName,
		ServerVersion: cfg.ServerVersion,
		Logger:        logger,
		Metrics:       metrics,
	})

	manager := server.New(handler, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var admin *server.AdminServer
	if cfg.HealthEnabled {
		admin = server.NewAdminServer(cfg.HealthAddress(), manager, metrics, cfg.ServerVersion, logger)
		go func() {
			if err := admin.ListenAndServe(); err != nil {
				logger.Error("admin server stopped unexpectedly", "error", err)
			}
		}()
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- manager.ListenAndServe(cfg.ListenAddress())
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, closing connections")
	case err := <-serveErr:
		if err != nil {
			logger.Error("fatal listener error", "error", err)
			return 1
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), server.IdleTimeout())
	defer cancel()

	if err := manager.Shutdown(shutdownCtx); err != nil {
		logger.Error("error during graceful shutdown", "error", err)
		return 1
	}

	if admin != nil {
		if err := admin.Shutdown(); err != nil {
			logger.Warn("error shutting down admin server", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return 0
}

func loadAWSConfig(ctx context.Context, cfg config.Config) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{}

	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	opts = append(opts, awsconfig.WithRetryer(func() aws.Retryer {
		return retry.AddWithMaxAttempts(retry.NewAdaptiveMode(), 3)
	}))

	return awsconfig.LoadDefaultConfig(ctx, opts...)
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	return slog.New(handler)
}
