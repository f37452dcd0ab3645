package sqlstore

// tableSchema lists the columns a caller may read or write and the default conflict key for upserts
type tableSchema struct {
	Columns     []string
	ConflictKey []string
}

func (t tableSchema) has(column string) bool {
	for _, c := range t.Columns {
		if c == column {
			return true
		}
	}
	return false
}

// tables is the whitelist every query is checked against; identifiers never come from callers unchecked
var tables = map[string]tableSchema{
	"tasks": {
		Columns: []string{"id", "user_id", "project_id", "goal_id", "title", "description", "status", "priority",
			"complexity", "xp_reward", "estimated_minutes", "due_date", "completed_at", "created_at", "updated_at"},
		ConflictKey: []string{"id"},
	},
	"projects": {
		Columns:     []string{"id", "user_id", "name", "status", "created_at"},
		ConflictKey: []string{"id"},
	},
	"goals": {
		Columns: []string{"id", "user_id", "title", "category", "target_value", "current_value", "status",
			"start_date", "target_date", "completed_at", "created_at"},
		ConflictKey: []string{"id"},
	},
	"goal_progress": {
		Columns:     []string{"id", "goal_id", "user_id", "value", "recorded_at"},
		ConflictKey: []string{"id"},
	},
	"contacts": {
		Columns:     []string{"id", "user_id", "name", "company", "category", "last_contacted_at", "created_at"},
		ConflictKey: []string{"id"},
	},
	"contact_interactions": {
		Columns:     []string{"id", "user_id", "contact_id", "kind", "sentiment", "occurred_at"},
		ConflictKey: []string{"id"},
	},
	"wellness_entries": {
		Columns: []string{"id", "user_id", "stress", "energy", "work_life_balance", "satisfaction", "sleep",
			"social", "workload", "recorded_at"},
		ConflictKey: []string{"id"},
	},
	"insights": {
		Columns: []string{"id", "user_id", "section", "title", "description", "category", "confidence",
			"recommendations", "generated_at"},
		ConflictKey: []string{"user_id", "section"},
	},
	"integration_tokens": {
		Columns:     []string{"user_id", "provider", "access_token", "refresh_token", "scope", "expires_at", "updated_at"},
		ConflictKey: []string{"user_id", "provider"},
	},
	"sync_mappings": {
		Columns:     []string{"id", "user_id", "provider", "external_id", "task_id", "created_at"},
		ConflictKey: []string{"user_id", "provider", "external_id"},
	},
	"notification_preferences": {
		Columns: []string{"user_id", "email_enabled", "push_enabled", "slack_enabled", "min_priority",
			"quiet_hours_start", "quiet_hours_end", "digest_frequency", "timezone", "last_digest_at", "updated_at"},
		ConflictKey: []string{"user_id"},
	},
}

// Tables returns the names of every table the store will touch
func Tables() []string {
	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	return names
}
