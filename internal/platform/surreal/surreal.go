// Package surreal manages the SurrealDB connection shared by the document
// store repository adapters.
package surreal

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	surrealdb "github.com/surrealdb/surrealdb.go"
	"github.com/surrealdb/surrealdb.go/pkg/connection"
	"github.com/surrealdb/surrealdb.go/pkg/connection/gorillaws"
	"github.com/surrealdb/surrealdb.go/surrealcbor"
)

// Config carries the connection settings for a SurrealDB endpoint.
type Config struct {
	URL       string
	Namespace string
	Database  string
	Username  string
	Password  string
}

// Connect dials SurrealDB over WebSocket, authenticates, and selects the
// namespace/database. The surrealcbor codec is required so that time.Time
// and RecordID values round-trip in the format SurrealDB expects.
func Connect(ctx context.Context, cfg Config) (*surrealdb.DB, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, fmt.Errorf("surrealdb URL is empty")
	}
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid surrealdb URL: %w", err)
	}

	conf := connection.NewConfig(u)
	codec := surrealcbor.New()
	conf.Marshaler = codec
	conf.Unmarshaler = codec
	conn := gorillaws.New(conf)

	dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	db, err := surrealdb.FromConnection(dialCtx, conn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to surrealdb: %w", err)
	}
	if cfg.Username != "" && cfg.Password != "" {
		if _, err := db.SignIn(dialCtx, map[string]any{
			"user": cfg.Username,
			"pass": cfg.Password,
		}); err != nil {
			return nil, fmt.Errorf("surrealdb authentication failed: %w", err)
		}
	}
	if err := db.Use(dialCtx, cfg.Namespace, cfg.Database); err != nil {
		return nil, fmt.Errorf("failed to select namespace/database: %w", err)
	}
	return db, nil
}

// ConfigFromEnv fills the namespace, database, and credential settings from
// SURREALDB_* variables. The endpoint URL is the caller's to supply.
func ConfigFromEnv(url string) Config {
	return Config{
		URL:       strings.TrimSpace(url),
		Namespace: envOrDefault("SURREALDB_NAMESPACE", "erp"),
		Database:  envOrDefault("SURREALDB_DATABASE", "erp"),
		Username:  os.Getenv("SURREALDB_USER"),
		Password:  os.Getenv("SURREALDB_PASS"),
	}
}

// ConnectOptional dials SurrealDB when cfg.URL is set and returns the DB
// plus a cleanup function. When the URL is missing or the connection fails,
// it logs and returns nil with a no-op cleanup so callers can fall back to
// another store.
func ConnectOptional(ctx context.Context, cfg Config, logger *slog.Logger) (*surrealdb.DB, func()) {
	if strings.TrimSpace(cfg.URL) == "" {
		if logger != nil {
			logger.Warn("surrealdb URL not set, document store disabled")
		}
		return nil, func() {}
	}
	db, err := Connect(ctx, cfg)
	if err != nil {
		if logger != nil {
			logger.Warn("failed to connect to surrealdb, document store disabled", slog.String("error", err.Error()))
		}
		return nil, func() {}
	}
	if logger != nil {
		logger.Info("surrealdb connection established",
			slog.String("namespace", cfg.Namespace),
			slog.String("database", cfg.Database))
	}
	return db, func() { _ = db.Close(context.Background()) }
}

func envOrDefault(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}
