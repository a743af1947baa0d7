package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/clubrec/internal/domain/recommend/request"
	"github.com/kailas-cloud/clubrec/internal/resilience"
	chiTransport "github.com/kailas-cloud/clubrec/internal/transport/chi"
	healthuc "github.com/kailas-cloud/clubrec/internal/usecase/health"
	recommenduc "github.com/kailas-cloud/clubrec/internal/usecase/recommend"
	"github.com/kailas-cloud/clubrec/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP recommendation API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap(ctx, envName)
	if err != nil {
		return err
	}
	defer a.close()
	cfg := a.cfg

	a.logger.Info("Starting clubrec API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", a.env),
		zap.Int("http_port", cfg.HTTP.Port),
	)

	queryEmbedder := a.buildEmbedder(a.buildProvider(), cfg.Embedding.QueryInstruction)
	index, err := a.buildVectorIndex()
	if err != nil {
		return err
	}
	catalog, err := a.buildCatalog(ctx)
	if err != nil {
		return err
	}

	// Pass nil interfaces, not typed nil pointers, when the catalog is disabled.
	var (
		lookup  recommenduc.Catalog
		catPing healthuc.CatalogPinger
	)
	if catalog != nil {
		lookup, catPing = catalog, catalog
	}

	retries := cfg.Recommend.Retry.Retries()
	backoff := cfg.Recommend.Retry.Backoff()
	recSvc := recommenduc.New(queryEmbedder, index, lookup, cfg.Embedding.Dimensions, a.logger).
		WithOptions(recommenduc.Options{
			Limits: request.Limits{
				MaxQueryBytes: cfg.Recommend.MaxQueryBytes,
				DefaultTopN:   cfg.Recommend.DefaultTopN,
				MaxTopN:       cfg.Recommend.MaxTopN,
			},
			Overfetch: cfg.Recommend.OverfetchFactor,
			Embed: resilience.RetryPolicy{
				MaxRetries: retries, Backoff: backoff, AttemptTimeout: cfg.Embedding.EmbedTimeout(),
			},
			Search: resilience.RetryPolicy{
				MaxRetries: retries, Backoff: backoff, AttemptTimeout: cfg.Index.SearchTimeout(),
			},
			LookupTimeout: cfg.Catalog.LookupTimeout(),
			Concurrency:   cfg.Catalog.Concurrency,
		})

	healthSvc := healthuc.New(a.store, queryEmbedder, catPing)

	server := chiTransport.NewServer(recSvc, healthSvc, a.logger)
	handler := server.Router(chiTransport.Options{
		APIKeys:            cfg.Auth.APIKeys,
		CORSAllowedOrigins: cfg.HTTP.CORSAllowedOrigins,
		RateLimitRequests:  cfg.HTTP.RateLimit.Requests,
		RateLimitWindow:    time.Duration(cfg.HTTP.RateLimit.WindowSec) * time.Second,
		MaxBodyBytes:       int64(cfg.Recommend.MaxQueryBytes) * 4,
	})

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		ReadTimeout:       time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	a.logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("Error during shutdown", zap.Error(err))
	}

	a.logger.Info("Server stopped gracefully")
	return nil
}
