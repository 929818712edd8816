package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"time"

	"parley/internal/config"
	"parley/internal/domain/models"
	"parley/internal/repository/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

func main() {
	// Parse command-line flags
	dropTables := flag.Bool("drop-tables", false, "Drop all tables before seeding (fresh start)")
	schemaOnly := flag.Bool("schema-only", false, "Only set up schema, don't seed chats (for use with shell scripts)")
	clearData := flag.Bool("clear-data", false, "Clear all chats for the seed user (keep schema)")
	fixturesPath := flag.String("fixtures", "cmd/seed/fixtures.yaml", "Path to YAML fixture file")
	seedUser := flag.String("user", os.Getenv("SEED_USER_ID"), "User id to seed chats for")
	flag.Parse()

	// Load .env file
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// SAFETY: Prevent destructive operations in production
	if cfg.Environment == "prod" && (*dropTables || *clearData) {
		log.Fatalf("🚫 BLOCKED: Cannot run destructive operations (--drop-tables or --clear-data) in production environment")
	}

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	if *clearData {
		log.Printf("🧹 Clearing data only (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)
	} else if *schemaOnly {
		log.Printf("🏗️  Setting up schema only (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)
	} else {
		log.Printf("🌱 Seeding database (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)
	}

	// Create database connection pool
	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	// Create table names
	tables := postgres.NewTableNames(cfg.TablePrefix)

	// Drop tables if requested
	if *dropTables {
		log.Println("🗑️  Dropping all tables...")
		if err := dropAllTables(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		log.Println("✅ Tables dropped")
	}

	// Run schema to ensure tables exist
	log.Println("📋 Ensuring database schema is up to date...")
	if err := runSchema(ctx, pool, tables, cfg.TablePrefix); err != nil {
		log.Fatalf("Failed to run schema: %v", err)
	}
	log.Println("✅ Schema ready")

	// Exit early if schema-only mode
	if *schemaOnly {
		log.Println("✅ Schema setup complete (schema-only mode)")
		return
	}

	if *seedUser == "" {
		log.Fatalf("Seed user id required (--user flag or SEED_USER_ID env var)")
	}

	// Exit early if clear-data mode (just clear and exit)
	if *clearData {
		log.Println("🧹 Clearing existing chats...")
		if err := clearUserData(ctx, pool, tables, *seedUser); err != nil {
			log.Fatalf("Failed to clear data: %v", err)
		}
		log.Println("✅ Data cleared successfully")
		return
	}

	// Load fixtures
	fixtures, err := loadFixtures(*fixturesPath)
	if err != nil {
		log.Fatalf("Failed to load fixtures: %v", err)
	}

	// Create repositories
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	chatStore := postgres.NewChatStore(repoConfig)

	// Clear existing data
	log.Println("⚠️  Clearing existing chats...")
	if err := clearUserData(ctx, pool, tables, *seedUser); err != nil {
		log.Printf("Warning: Could not clear data: %v", err)
	}

	// Seed chats
	log.Println("💬 Seeding chats...")

	for i, fx := range fixtures.Chats {
		chat := fx.toChat(*seedUser)
		if err := chatStore.CreateChat(ctx, chat); err != nil {
			log.Printf("❌ Failed to create chat '%s': %v", fx.Title, err)
			continue
		}

		if len(fx.Messages) > 0 {
			msgs := fx.toMessages()
			if err := chatStore.BulkInsertMessages(ctx, chat.ID, msgs); err != nil {
				log.Printf("❌ Failed to insert messages for chat '%s': %v", fx.Title, err)
				continue
			}
		}

		if len(fx.Images) > 0 {
			imgs := fx.toImages()
			if err := chatStore.BulkInsertImages(ctx, *seedUser, chat.ID, imgs); err != nil {
				log.Printf("❌ Failed to insert images for chat '%s': %v", fx.Title, err)
				continue
			}
		}

		log.Printf("✅ Created chat %d/%d: %s (ID: %s, Messages: %d)",
			i+1, len(fixtures.Chats), fx.Title, chat.ID, len(fx.Messages))
	}

	log.Println("🎉 Seeding complete!")
}

// runSchema creates tables if they don't exist
func runSchema(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames, tablePrefix string) error {
	// Enable UUID extension
	_, err := pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\"")
	if err != nil {
		return err
	}

	// Create chats table
	createChats := `
		CREATE TABLE IF NOT EXISTS ` + tables.Chats + ` (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			user_id UUID NOT NULL,
			title TEXT NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			is_closed BOOLEAN NOT NULL DEFAULT FALSE,
			has_image BOOLEAN NOT NULL DEFAULT FALSE,
			image_url TEXT,
			image_name TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	if _, err := pool.Exec(ctx, createChats); err != nil {
		return err
	}

	// Create messages table. BIGSERIAL ids double as the insertion-order
	// tiebreak when created_at timestamps collide.
	createMessages := `
		CREATE TABLE IF NOT EXISTS ` + tables.Messages + ` (
			id BIGSERIAL PRIMARY KEY,
			chat_id UUID NOT NULL REFERENCES ` + tables.Chats + `(id) ON DELETE CASCADE,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			timestamp TEXT NOT NULL DEFAULT '',
			model_used TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	if _, err := pool.Exec(ctx, createMessages); err != nil {
		return err
	}

	// Create chat_images table
	createImages := `
		CREATE TABLE IF NOT EXISTS ` + tables.ChatImages + ` (
			id BIGSERIAL PRIMARY KEY,
			chat_id UUID NOT NULL REFERENCES ` + tables.Chats + `(id) ON DELETE CASCADE,
			user_id UUID NOT NULL,
			image_url TEXT NOT NULL,
			image_name TEXT NOT NULL DEFAULT '',
			file_size BIGINT NOT NULL DEFAULT 0,
			mime_type TEXT NOT NULL DEFAULT '',
			upload_order INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	if _, err := pool.Exec(ctx, createImages); err != nil {
		return err
	}

	// Create indexes
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `chats_user_updated ON ` + tables.Chats + `(user_id, updated_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `messages_chat_id ON ` + tables.Messages + `(chat_id)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `chat_images_chat_id ON ` + tables.ChatImages + `(chat_id, upload_order)`,
	}

	for _, indexSQL := range indexes {
		if _, err := pool.Exec(ctx, indexSQL); err != nil {
			return err
		}
	}

	return nil
}

// dropAllTables drops all tables in reverse order (to respect foreign keys)
func dropAllTables(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames) error {
	tableNames := []string{
		tables.ChatImages,
		tables.Messages,
		tables.Chats,
	}

	for _, table := range tableNames {
		dropSQL := "DROP TABLE IF EXISTS " + table + " CASCADE"
		if _, err := pool.Exec(ctx, dropSQL); err != nil {
			return err
		}
		log.Printf("  ✓ Dropped %s", table)
	}

	return nil
}

// clearUserData deletes every chat owned by the user; messages and images
// cascade.
func clearUserData(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames, userID string) error {
	_, err := pool.Exec(ctx, "DELETE FROM "+tables.Chats+" WHERE user_id = $1", userID)
	return err
}

// fixtureFile is the YAML layout of the seed data.
type fixtureFile struct {
	Chats []chatFixture `yaml:"chats"`
}

type chatFixture struct {
	Title    string           `yaml:"title"`
	IsClosed bool             `yaml:"is_closed"`
	AgeDays  int              `yaml:"age_days"`
	Messages []messageFixture `yaml:"messages"`
	Images   []imageFixture   `yaml:"images"`
}

type messageFixture struct {
	Role      string `yaml:"role"`
	Text      string `yaml:"text"`
	Timestamp string `yaml:"timestamp"`
	ModelUsed string `yaml:"model_used"`
}

type imageFixture struct {
	URL      string `yaml:"url"`
	Name     string `yaml:"name"`
	FileSize int64  `yaml:"file_size"`
	MimeType string `yaml:"mime_type"`
}

func loadFixtures(path string) (*fixtureFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var fixtures fixtureFile
	if err := yaml.Unmarshal(data, &fixtures); err != nil {
		return nil, err
	}

	return &fixtures, nil
}

func (fx *chatFixture) toChat(userID string) *models.Chat {
	created := time.Now().AddDate(0, 0, -fx.AgeDays)
	return &models.Chat{
		UserID:    userID,
		Title:     fx.Title,
		IsActive:  true,
		IsClosed:  fx.IsClosed,
		HasImage:  len(fx.Images) > 0,
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func (fx *chatFixture) toMessages() []models.Message {
	created := time.Now().AddDate(0, 0, -fx.AgeDays)
	msgs := make([]models.Message, 0, len(fx.Messages))
	for i, m := range fx.Messages {
		msgs = append(msgs, models.Message{
			Role:      m.Role,
			Text:      m.Text,
			Timestamp: m.Timestamp,
			ModelUsed: m.ModelUsed,
			CreatedAt: created.Add(time.Duration(i) * time.Minute),
		})
	}
	return msgs
}

func (fx *chatFixture) toImages() []models.ChatImage {
	imgs := make([]models.ChatImage, 0, len(fx.Images))
	for i, im := range fx.Images {
		imgs = append(imgs, models.ChatImage{
			URL:         im.URL,
			Name:        im.Name,
			FileSize:    im.FileSize,
			MimeType:    im.MimeType,
			UploadOrder: i + 1,
		})
	}
	return imgs
}
