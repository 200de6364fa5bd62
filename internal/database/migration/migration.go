// Package migration creates the side-effect journal schema on first start.
package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

type migrationStep struct {
	Name string
	SQL  string
}

// sentinelTable is checked before running; its presence means the schema is in place.
const sentinelTable = "public.side_effects"

var steps = []migrationStep{
	{
		Name: "create_table_side_effects",
		SQL: `CREATE TABLE IF NOT EXISTS side_effects (
  id          UUID        PRIMARY KEY,
  request_id  TEXT        NOT NULL DEFAULT '',
  route       TEXT        NOT NULL,
  kind        TEXT        NOT NULL,
  target      TEXT        NOT NULL DEFAULT '',
  success     BOOLEAN     NOT NULL,
  error       TEXT        NOT NULL DEFAULT '',
  duration_ms BIGINT      NOT NULL CHECK (duration_ms >= 0),
  created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_side_effects_created_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_side_effects_created_at ON side_effects (created_at DESC);`,
	},
	{
		Name: "create_index_side_effects_route_kind",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_side_effects_route_kind ON side_effects (route, kind);`,
	},
	{
		Name: "create_index_side_effects_failed",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_side_effects_failed ON side_effects (created_at) WHERE NOT success;`,
	},
}

// EnsureMigrated runs every step unless the sentinel table already exists.
func EnsureMigrated(ctx context.Context, db *sql.DB, log zerolog.Logger, dbHost string) error {
	start := time.Now()
	log = log.With().Str("component", "database").Str("db_host", dbHost).Logger()

	log.Info().Str("event", "db_migration_check").Str("status", "starting").Send()

	var exists bool
	if err := db.QueryRowContext(ctx, "SELECT to_regclass($1) IS NOT NULL", sentinelTable).Scan(&exists); err != nil {
		log.Error().
			Str("event", "db_migration_failed").
			Str("status", "error").
			Err(err).
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Msg("failed to check sentinel table")
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		log.Info().
			Str("event", "db_migration_skip").
			Str("status", "success").
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Msg("schema already exists, skipping migration")
		return nil
	}

	log.Info().Str("event", "db_migration_start").Str("status", "in_progress").Send()

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			log.Error().
				Str("event", "db_migration_failed").
				Str("status", "error").
				Str("migration_step", step.Name).
				Err(err).
				Int64("duration_ms", time.Since(start).Milliseconds()).
				Int64("step_duration_ms", time.Since(stepStart).Milliseconds()).
				Send()
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		log.Info().
			Str("event", "db_migration_step").
			Str("status", "success").
			Str("migration_step", step.Name).
			Int64("step_duration_ms", time.Since(stepStart).Milliseconds()).
			Send()
	}

	log.Info().
		Str("event", "db_migration_success").
		Str("status", "success").
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Send()
	return nil
}
