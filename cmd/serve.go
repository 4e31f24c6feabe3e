package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"food-rescue-backend/internal/config"
	"food-rescue-backend/internal/handlers"
	"food-rescue-backend/internal/middleware"
	"food-rescue-backend/internal/services"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newServeCommand(loadConfig func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, WebSocket endpoint and expiry sweeper",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(loadConfig())
		},
	}
}

func serve(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	var push services.PushSender
	if cfg.APNs.Enabled {
		sender, err := services.NewAPNsSender(cfg.APNs.CertFile, cfg.APNs.CertPassword, cfg.APNs.Topic, cfg.APNs.Production)
		if err != nil {
			return fmt.Errorf("failed to create APNs sender: %w", err)
		}
		push = sender
	}

	var images *services.ImageService
	if cfg.AWS.S3Bucket != "" {
		images, err = services.NewImageService(ctx, st.users, services.S3Options{
			Region:    cfg.AWS.Region,
			Bucket:    cfg.AWS.S3Bucket,
			AccessKey: cfg.AWS.AccessKey,
			SecretKey: cfg.AWS.SecretKey,
			Endpoint:  cfg.AWS.Endpoint,
		})
		if err != nil {
			return fmt.Errorf("failed to create image service: %w", err)
		}
	} else {
		log.Warn().Msg("aws.s3_bucket not set, image uploads disabled")
	}

	registry := services.NewConnRegistry()
	notifier := services.NewNotifier(st.notifications, st.users, registry, push)
	userService := services.NewUserService(st.users, cfg.JWT.Secret)
	listingService := services.NewListingService(st.users, st.listings, st.requests, notifier, cfg.Marketplace.NotifyRadiusKm)
	statsService := services.NewStatsService(st.users, st.listings, st.requests, registry)
	sweeper := services.NewExpirySweeper(st.listings, cfg.Marketplace.SweepInterval, cfg.Marketplace.SweepRetryInterval)

	authLimit, err := middleware.RateLimit(cfg.RateLimit.Auth)
	if err != nil {
		return err
	}

	deps := handlers.RouterDeps{
		Users:         userService,
		Listings:      listingService,
		Images:        images,
		Notifier:      notifier,
		Stats:         statsService,
		Registry:      registry,
		AuthRateLimit: authLimit,
	}
	if st.pool != nil {
		deps.DB = st.pool
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      handlers.NewRouter(deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		sweeper.Run(ctx)
	}()

	serverErr := make(chan error, 1)
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		stop()
		<-sweepDone
		return fmt.Errorf("server failed: %w", err)
	}

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	registry.CloseAll()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	<-sweepDone
	notifier.Wait()

	log.Info().Msg("Server exited")
	return nil
}
