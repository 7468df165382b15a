package initialize

import (
	"context"
	"time"

	"fitadmin/config"
	memberController "fitadmin/internal/controllers/member"
	"fitadmin/internal/database"
	"fitadmin/internal/logger"
	"fitadmin/internal/repositories"
)

// InitializeTables creates the admin member named by SEED_ADMIN_EMAIL and
// clears expired sessions. It is safe to run repeatedly.
func InitializeTables(ctx context.Context, db database.DB, config config.Config, log logger.Logger) error {
	log = log.Function("InitializeTables")
	log.Info("Initializing essential production data")

	members := memberController.New(
		repositories.NewMember(db),
		time.Duration(config.SessionTTLHours)*time.Hour,
	)

	if config.SeedAdminEmail == "" {
		log.Warn("SEED_ADMIN_EMAIL not set, skipping admin creation")
	} else {
		created, err := members.EnsureAdmin(ctx, config.SeedAdminEmail, "", config.SeedAdminPassword)
		if err != nil {
			return log.Err("failed to ensure admin member", err, "email", config.SeedAdminEmail)
		}
		if !created {
			log.Info("Admin member already exists", "email", config.SeedAdminEmail)
		}
	}

	purged, err := members.PurgeExpiredSessions(ctx)
	if err != nil {
		return log.Err("failed to purge expired sessions", err)
	}
	log.Info("Table initialization complete", "purgedSessions", purged)
	return nil
}
