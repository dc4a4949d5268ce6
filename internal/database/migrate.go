package database

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/Varun5711/tokenqueue/internal/storage/migrations"
	"github.com/pressly/goose/v3"
)

// goose keeps its settings in package globals.
var gooseMu sync.Mutex

// Migrate brings the schema owned by one bounded context up to date. Each
// context records its versions in its own goose table.
func Migrate(ctx context.Context, db *sql.DB, boundedContext string) error {
	switch boundedContext {
	case migrations.ContextUsers, migrations.ContextAuth:
	default:
		return fmt.Errorf("unknown bounded context %q", boundedContext)
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrations.FS)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	goose.SetTableName(boundedContext + "_schema_version")

	if err := goose.UpContext(ctx, db, boundedContext); err != nil {
		return fmt.Errorf("failed to migrate %s schema: %w", boundedContext, err)
	}

	return nil
}

func (m *DBManager) Migrate(ctx context.Context, boundedContext string) error {
	return Migrate(ctx, m.primaryDB, boundedContext)
}
