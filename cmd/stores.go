package cmd

import (
	"context"
	"fmt"

	"food-rescue-backend/internal/config"
	"food-rescue-backend/internal/database"
	"food-rescue-backend/internal/repository"
	"food-rescue-backend/internal/repository/memory"
	"food-rescue-backend/internal/services"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

type stores struct {
	users         services.UserStore
	listings      services.ListingStore
	requests      services.RequestStore
	notifications services.NotificationStore
	pool          *pgxpool.Pool
}

func (s *stores) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// openStores connects the configured storage driver
func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	switch cfg.Database.Driver {
	case "memory":
		log.Warn().Msg("Using in-memory storage, data is lost on restart")
		m := memory.New()
		return &stores{
			users:         m.Users,
			listings:      m.Listings,
			requests:      m.Requests,
			notifications: m.Notifications,
		}, nil
	case "postgres":
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}

	if cfg.Database.AutoMigrate {
		if err := database.Up(cfg.Database.MigrateURL()); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	db, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	log.Info().Msg("Database connection established")

	return &stores{
		users:         repository.NewUserRepository(db),
		listings:      repository.NewListingRepository(db),
		requests:      repository.NewRequestRepository(db),
		notifications: repository.NewNotificationRepository(db),
		pool:          db,
	}, nil
}
