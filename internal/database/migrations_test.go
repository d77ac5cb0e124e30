package database

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newMigrationTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	f, err := os.CreateTemp("", "inviterd-migrations-test-*.db")
	require.NoError(t, err)
	require.NoError(t, f.Close())
	t.Cleanup(func() { _ = os.Remove(f.Name()) })

	logger := zaptest.NewLogger(t).Sugar()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s", f.Name())), &gorm.Config{
		Logger: NewLogger(logger),
	})
	require.NoError(t, err)
	return db
}

func TestMigrateToAndRollback(t *testing.T) {
	db := newMigrationTestDB(t)
	m := Migrations()
	ctx := context.Background()

	count, err := m.CountMigrationsApplied(db)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	require.NoError(t, m.MigrateTo(ctx, db, "20250601-0000"))

	count, err = m.CountMigrationsApplied(db)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.True(t, db.Migrator().HasTable("invitations"))
	assert.True(t, db.Migrator().HasTable("accounts"))

	require.NoError(t, m.RollbackLast(ctx, db))

	count, err = m.CountMigrationsApplied(db)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.False(t, db.Migrator().HasTable("invitations"))
	assert.False(t, db.Migrator().HasTable("accounts"))
	// an empty migration table is dropped along with the last rollback
	assert.False(t, db.Migrator().HasTable(m.GormOptions.TableName))
}
