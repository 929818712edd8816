package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"

	"parley/internal/config"
	"parley/internal/domain/models"
	"parley/internal/domain/repositories"
	"parley/internal/localstore"
	"parley/internal/repository/postgres"
	"parley/internal/service/history"

	"github.com/joho/godotenv"
)

// Pushes a user's local fallback history into the remote store. Chats
// that fail to migrate stay in the local store for a later retry; the
// local copy is cleared only when every chat made it across.
func main() {
	userID := flag.String("user", "", "User id whose local history to migrate")
	flag.Parse()

	if *userID == "" {
		log.Fatalf("User id required (--user flag)")
	}

	// Load .env file
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Create database connection pool
	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	// Open the local fallback store
	local, err := localstore.Open(cfg.LocalStorePath, logger)
	if err != nil {
		log.Fatalf("Failed to open local fallback store: %v", err)
	}
	defer local.Close()

	// Create repositories and service
	tables := postgres.NewTableNames(cfg.TablePrefix)
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	chatStore := postgres.NewChatStore(repoConfig)
	txManager := postgres.NewTransactionManager(pool)

	historyService := history.NewService(chatStore, local, txManager, logger)

	log.Printf("⏫ Migrating local history (user: %s, prefix: %s)", *userID, cfg.TablePrefix)

	result, err := historyService.MigrateToDatabase(ctx, *userID)
	if err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	log.Printf("✅ Migration finished (migrated: %d, skipped: %d)", result.Migrated, result.Skipped)

	if !finishMigration(local, *userID, result) {
		log.Printf("⚠️  %d chat(s) skipped; local copy kept for retry", result.Skipped)
		return
	}
	log.Println("🧹 Local history cleared")
}

// finishMigration drops the user's local copy only when every chat made
// it across, so skipped chats stay eligible for a retry. Reports whether
// the local history was cleared.
func finishMigration(local repositories.FallbackStore, userID string, result *models.MigrationResult) bool {
	if result.Skipped > 0 {
		return false
	}
	local.ClearAll(userID)
	return true
}
