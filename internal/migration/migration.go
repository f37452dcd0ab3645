package migration

import (
	"context"
	"fmt"

	"taskquest/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner handles database schema migrations for Postgres and SQLite
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Step is one idempotent migration statement
type Step struct {
	Name string
	SQL  string
}

// Steps returns the statements Run executes, in order, for the given driver
func (r *MigrationRunner) Steps(driver string) []Step {
	ts := "TIMESTAMP WITH TIME ZONE"
	if driver == "sqlite" {
		ts = "TIMESTAMP"
	}

	return []Step{
		{"create tasks table", r.tasksTable(ts)},
		{"create projects table", r.projectsTable(ts)},
		{"create goals table", r.goalsTable(ts)},
		{"create goal_progress table", r.goalProgressTable(ts)},
		{"create contacts table", r.contactsTable(ts)},
		{"create contact_interactions table", r.interactionsTable(ts)},
		{"create wellness_entries table", r.wellnessTable(ts)},
		{"create insights table", r.insightsTable(ts)},
		{"create integration_tokens table", r.integrationTokensTable(ts)},
		{"create sync_mappings table", r.syncMappingsTable(ts)},
		{"create notification_preferences table", r.notificationPreferencesTable(ts)},
		{"create tasks user index", "CREATE INDEX IF NOT EXISTS idx_tasks_user_created ON tasks (user_id, created_at)"},
		{"create tasks completed index", "CREATE INDEX IF NOT EXISTS idx_tasks_user_completed ON tasks (user_id, completed_at)"},
		{"create goals user index", "CREATE INDEX IF NOT EXISTS idx_goals_user ON goals (user_id)"},
		{"create goal_progress index", "CREATE INDEX IF NOT EXISTS idx_goal_progress_goal ON goal_progress (goal_id, recorded_at)"},
		{"create interactions index", "CREATE INDEX IF NOT EXISTS idx_interactions_user ON contact_interactions (user_id, occurred_at)"},
		{"create wellness index", "CREATE INDEX IF NOT EXISTS idx_wellness_user ON wellness_entries (user_id, recorded_at)"},
	}
}

// Run executes all database migrations in the correct order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	for _, s := range r.Steps(db.DriverName()) {
		if _, err := db.ExecContext(ctx, s.SQL); err != nil {
			return errors.DatabaseError(fmt.Sprintf("failed to %s", s.Name), err)
		}
	}
	return nil
}

func (r *MigrationRunner) tasksTable(ts string) string {
	return fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			project_id TEXT,
			goal_id TEXT,
			title TEXT NOT NULL,
			description TEXT,
			status VARCHAR(20) NOT NULL DEFAULT 'todo',
			priority VARCHAR(20),
			complexity VARCHAR(20),
			xp_reward INTEGER NOT NULL DEFAULT 0,
			estimated_minutes INTEGER NOT NULL DEFAULT 0,
			due_date %[1]s,
			completed_at %[1]s,
			created_at %[1]s NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at %[1]s NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`, ts)
}

func (r *MigrationRunner) projectsTable(ts string) string {
	return fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS projects (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'active',
			created_at %[1]s NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`, ts)
}

func (r *MigrationRunner) goalsTable(ts string) string {
	return fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS goals (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			title TEXT NOT NULL,
			category VARCHAR(50),
			target_value DOUBLE PRECISION NOT NULL DEFAULT 0,
			current_value DOUBLE PRECISION NOT NULL DEFAULT 0,
			status VARCHAR(20) NOT NULL DEFAULT 'active',
			start_date %[1]s NOT NULL DEFAULT CURRENT_TIMESTAMP,
			target_date %[1]s,
			completed_at %[1]s,
			created_at %[1]s NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`, ts)
}

func (r *MigrationRunner) goalProgressTable(ts string) string {
	return fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS goal_progress (
			id TEXT PRIMARY KEY,
			goal_id TEXT NOT NULL REFERENCES goals(id) ON DELETE CASCADE,
			user_id TEXT NOT NULL,
			value DOUBLE PRECISION NOT NULL,
			recorded_at %[1]s NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`, ts)
}

func (r *MigrationRunner) contactsTable(ts string) string {
	return fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS contacts (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			company TEXT,
			category VARCHAR(50),
			last_contacted_at %[1]s,
			created_at %[1]s NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`, ts)
}

func (r *MigrationRunner) interactionsTable(ts string) string {
	return fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS contact_interactions (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			contact_id TEXT NOT NULL REFERENCES contacts(id) ON DELETE CASCADE,
			kind VARCHAR(30) NOT NULL DEFAULT 'other',
			sentiment DOUBLE PRECISION NOT NULL DEFAULT 0,
			occurred_at %[1]s NOT NULL
		)
	`, ts)
}

func (r *MigrationRunner) wellnessTable(ts string) string {
	return fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS wellness_entries (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			stress DOUBLE PRECISION NOT NULL DEFAULT 0,
			energy DOUBLE PRECISION NOT NULL DEFAULT 0,
			work_life_balance DOUBLE PRECISION NOT NULL DEFAULT 0,
			satisfaction DOUBLE PRECISION NOT NULL DEFAULT 0,
			sleep DOUBLE PRECISION NOT NULL DEFAULT 0,
			social DOUBLE PRECISION NOT NULL DEFAULT 0,
			workload DOUBLE PRECISION NOT NULL DEFAULT 0,
			recorded_at %[1]s NOT NULL
		)
	`, ts)
}

func (r *MigrationRunner) insightsTable(ts string) string {
	return fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS insights (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			section VARCHAR(30) NOT NULL,
			title TEXT NOT NULL,
			description TEXT,
			category VARCHAR(30),
			confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
			recommendations TEXT NOT NULL DEFAULT '[]',
			generated_at %[1]s NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (user_id, section)
		)
	`, ts)
}

func (r *MigrationRunner) integrationTokensTable(ts string) string {
	return fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS integration_tokens (
			user_id TEXT NOT NULL,
			provider VARCHAR(30) NOT NULL,
			access_token TEXT NOT NULL,
			refresh_token TEXT,
			scope TEXT,
			expires_at %[1]s,
			updated_at %[1]s NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (user_id, provider)
		)
	`, ts)
}

func (r *MigrationRunner) syncMappingsTable(ts string) string {
	return fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS sync_mappings (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			provider VARCHAR(30) NOT NULL,
			external_id TEXT NOT NULL,
			task_id TEXT NOT NULL,
			created_at %[1]s NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (user_id, provider, external_id)
		)
	`, ts)
}

func (r *MigrationRunner) notificationPreferencesTable(ts string) string {
	return fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS notification_preferences (
			user_id TEXT PRIMARY KEY,
			email_enabled BOOLEAN NOT NULL DEFAULT true,
			push_enabled BOOLEAN NOT NULL DEFAULT true,
			slack_enabled BOOLEAN NOT NULL DEFAULT false,
			min_priority VARCHAR(20) NOT NULL DEFAULT 'medium',
			quiet_hours_start INTEGER NOT NULL DEFAULT 22,
			quiet_hours_end INTEGER NOT NULL DEFAULT 7,
			digest_frequency VARCHAR(20) NOT NULL DEFAULT 'weekly',
			timezone VARCHAR(64) NOT NULL DEFAULT 'UTC',
			last_digest_at %[1]s,
			updated_at %[1]s NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`, ts)
}
