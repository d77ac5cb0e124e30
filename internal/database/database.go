package database

import (
	"context"
	"fmt"
	"os"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// DSN builds the postgres connection string used both by gorm and by the
// lib/pq listener of the signal bus.
func DSN(host, user, password, dbname, port, sslmode string) string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		host, user, password, dbname, port, sslmode)
}

// NewDatabase connects to postgres, retrying with an exponential backoff
// until the database comes up.
func NewDatabase(logger *zap.SugaredLogger, dsn string) (*gorm.DB, error) {
	var db *gorm.DB
	connectDb := func() error {
		var err error
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
			Logger: NewLogger(logger),
		})
		if err != nil {
			logger.Warnf("database connection failed, retrying: %s", err)
			return err
		}
		return nil
	}
	if err := backoff.Retry(connectDb, backoff.NewExponentialBackOff()); err != nil {
		return nil, err
	}
	return db, nil
}

// NewTestDatabase opens a throwaway sqlite database with the full migration
// set applied. The file backed store keeps concurrent test writers working,
// with a busy timeout instead of immediate lock errors.
func NewTestDatabase(logger *zap.SugaredLogger) (*gorm.DB, error) {
	f, err := os.CreateTemp("", "inviterd-test-*.db")
	if err != nil {
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", f.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: NewLogger(logger),
	})
	if err != nil {
		return nil, err
	}
	if err := Migrations().Migrate(context.Background(), db); err != nil {
		return nil, err
	}
	return db, nil
}
