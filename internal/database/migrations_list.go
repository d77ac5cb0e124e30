package database

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/inviterd-io/inviterd/internal/database/migration_20250601_0000"
	"github.com/inviterd-io/inviterd/internal/database/migrations"
)

func Migrations() *migrations.Migrations {
	return &migrations.Migrations{
		GormOptions: &gormigrate.Options{
			TableName:      "apiserver_migrations",
			IDColumnName:   "id",
			IDColumnSize:   40,
			UseTransaction: false,
		},
		Migrations: []*gormigrate.Migration{
			migration_20250601_0000.Migrate(),
		},
	}
}
