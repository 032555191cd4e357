//cmd/seeder/main.go
package main

import (
	"context"
	"flag"
	"time"

	"go.uber.org/zap"

	"github.com/unclebandit/nanis-backend/internal/config"
	"github.com/unclebandit/nanis-backend/internal/db"
	"github.com/unclebandit/nanis-backend/internal/logger"
)

func main() {
	ownerID := flag.String("owner", "dev-user", "user id (JWT subject) made owner of the dev organization")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Must("info", "json").Fatal("failed to load config", zap.Error(err))
	}
	log := logger.Must(cfg.Logging.Level, cfg.Logging.Format).Named("seeder")
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	sqlDB, err := db.Open(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer sqlDB.Close()

	if err := db.EnsureSchema(ctx, sqlDB); err != nil {
		log.Fatal("failed to apply schema", zap.Error(err))
	}

	res, err := seed(ctx, sqlDB, *ownerID, log)
	if err != nil {
		log.Fatal("seeding failed", zap.Error(err))
	}

	log.Info("database seeding completed",
		zap.String("organization_id", res.OrganizationID.String()),
		zap.String("owner", *ownerID),
		zap.Int("contacts", res.Contacts),
	)
}
