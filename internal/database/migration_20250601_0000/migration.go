package migration_20250601_0000

import (
	"time"

	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/inviterd-io/inviterd/internal/database/migrations"
)

// Migrations rules:
//
//  1. IDs are numerical timestamps that must sort ascending.
//     Use YYYYMMDD-HHMM w/ 24 hour time for format
//     Example: August 21 2018 at 2:54pm would be 20180821-1454.
//
//  2. Include models inline with migrations to see the evolution of the object
//     over time. Using the internal type models directly in the first migration
//     would fail in future clean installations.
//
//  3. Migrations must be backwards compatible. There are no new required fields
//     allowed.

type Invitation struct {
	ID          uint       `gorm:"primarykey"`
	Code        string     `gorm:"size:50;not null"`
	InviterID   int64      `gorm:"not null"`
	InvitedID   *int64     ``
	Status      string     `gorm:"size:20;not null;default:pending"`
	CreatedAt   time.Time  ``
	CompletedAt *time.Time ``
}

type Account struct {
	UserID    int64     `gorm:"primarykey;autoIncrement:false"`
	Balance   int64     `gorm:"not null;default:0"`
	CreatedAt time.Time ``
	UpdatedAt time.Time ``
}

func Migrate() *gormigrate.Migration {
	migrationId := "20250601-0000"

	return migrations.CreateMigrationFromActions(migrationId,
		migrations.CreateTableAction(&Invitation{}),
		// create the unique index manually so migrations behave the same on
		// cockroach, see https://github.com/go-gorm/gorm/issues/5752
		migrations.ExecAction(
			`CREATE UNIQUE INDEX IF NOT EXISTS "idx_invitations_code" ON "invitations" ("code")`,
			`DROP INDEX IF EXISTS "idx_invitations_code"`,
		),
		migrations.ExecAction(
			`CREATE INDEX IF NOT EXISTS "idx_invitations_inviter_id" ON "invitations" ("inviter_id")`,
			`DROP INDEX IF EXISTS "idx_invitations_inviter_id"`,
		),
		migrations.CreateTableAction(&Account{}),
	)
}
