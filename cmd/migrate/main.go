package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"taskquest/adapters/sqlstore"
	"taskquest/internal/config"
	"taskquest/internal/migration"
	"taskquest/ports"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// importOrder writes parents before the rows that reference them
var importOrder = []string{
	"projects", "goals", "tasks", "goal_progress", "contacts", "contact_interactions",
	"wellness_entries", "notification_preferences", "integration_tokens", "sync_mappings",
}

// Usage: migrate [-import <dir>]
//
// Runs schema migrations against the configured database. With -import, every
// *.json file under dir is read as {"<table>": [rows...]} and upserted.
func main() {
	importDir := flag.String("import", "", "directory of JSON exports to load after migrating")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found, using system environment variables")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	runner := migration.NewRunner()
	log.WithFields(log.Fields{"driver": db.DriverName(), "version": runner.Version()}).Info("Running migrations")
	if err := runner.Run(ctx, db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Info("Schema is up to date")

	if *importDir == "" {
		return
	}

	files, err := findExportFiles(*importDir)
	if err != nil {
		log.Fatalf("Failed to find export files: %v", err)
	}
	log.Infof("Found %d export files to import", len(files))

	store := sqlstore.New(db)
	imported, skipped := 0, 0
	for _, file := range files {
		n, err := importFile(ctx, store, file)
		if err != nil {
			log.WithError(err).WithField("file", filepath.Base(file)).Warn("Skipping export file")
			skipped++
			continue
		}
		imported += n
		log.WithFields(log.Fields{"file": filepath.Base(file), "rows": n}).Info("Imported export file")
	}
	log.Infof("Import complete: %d rows imported, %d files skipped", imported, skipped)
}

func openDatabase(ctx context.Context, cfg *config.Config) (*sqlx.DB, error) {
	switch cfg.Backend.Kind {
	case config.BackendSQLite:
		return sqlstore.OpenSQLite(ctx, cfg.Database.SQLitePath)
	case config.BackendSupabase:
		return nil, fmt.Errorf("supabase schemas are managed by the hosted project")
	default:
		return sqlstore.OpenPostgres(cfg.Database)
	}
}

func findExportFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && strings.HasSuffix(path, ".json") {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}

// importFile upserts one export file table by table; it returns the number of rows written
func importFile(ctx context.Context, backend ports.Backend, file string) (int, error) {
	raw, err := os.ReadFile(file)
	if err != nil {
		return 0, err
	}
	var export map[string][]map[string]any
	if err := json.Unmarshal(raw, &export); err != nil {
		return 0, fmt.Errorf("invalid export: %w", err)
	}

	total := 0
	for _, table := range importOrder {
		rows := export[table]
		if len(rows) == 0 {
			continue
		}
		prepared := make([]ports.Row, len(rows))
		for i, r := range rows {
			prepared[i] = prepareRow(r, file, table, i)
		}
		if _, err := backend.Upsert(ctx, table, prepared, conflictKey(table)); err != nil {
			return total, fmt.Errorf("failed to import %s: %w", table, err)
		}
		total += len(rows)
	}
	return total, nil
}

// prepareRow parses timestamp columns and gives rows without an id a stable one,
// so importing the same file twice updates instead of duplicating
func prepareRow(r map[string]any, file, table string, index int) ports.Row {
	row := make(ports.Row, len(r)+1)
	for k, v := range r {
		if s, ok := v.(string); ok && isTimeColumn(k) {
			if t, err := time.Parse(time.RFC3339, s); err == nil {
				row[k] = t
				continue
			}
		}
		row[k] = v
	}
	if _, ok := row["id"]; !ok && hasIDColumn(table) {
		name := fmt.Sprintf("%s#%s#%d", filepath.Base(file), table, index)
		row["id"] = uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
	}
	return row
}

func isTimeColumn(column string) bool {
	return strings.HasSuffix(column, "_at") || strings.HasSuffix(column, "_date")
}

func hasIDColumn(table string) bool {
	switch table {
	case "notification_preferences", "integration_tokens":
		return false
	}
	return true
}

func conflictKey(table string) []string {
	switch table {
	case "notification_preferences":
		return []string{"user_id"}
	case "integration_tokens":
		return []string{"user_id", "provider"}
	case "sync_mappings":
		return []string{"user_id", "provider", "external_id"}
	}
	return []string{"id"}
}
