package invitations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/inviterd-io/inviterd/internal/database"
	"github.com/inviterd-io/inviterd/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Ledger is the external balance store consumed by the settlement engine.
// CreditPoints must be an atomic increment at the storage layer; the
// coordinator never reads a balance to write it back.
type Ledger interface {
	// EnsureAccount is the idempotent registration floor: it guarantees a
	// minimal account row exists for the user, whatever the redemption
	// outcome ends up being.
	EnsureAccount(ctx context.Context, userID int64) error
	// CreditPoints applies a non-negative delta to the user's balance.
	CreditPoints(ctx context.Context, userID int64, amount int64) error
	// Balance reads the current account row, ErrNotFound if the user has
	// no account row yet.
	Balance(ctx context.Context, userID int64) (*models.Account, error)
}

// GormLedger keeps balances in the accounts table of the same database the
// invitation ledger lives in.
type GormLedger struct {
	logger      *zap.SugaredLogger
	db          *gorm.DB
	transaction database.TransactionFunc
}

var _ Ledger = &GormLedger{}

func NewGormLedger(logger *zap.SugaredLogger, db *gorm.DB) (*GormLedger, error) {
	transactionFunc, _, err := database.GetTransactionFunc(db)
	if err != nil {
		return nil, err
	}
	return &GormLedger{
		logger:      logger,
		db:          db,
		transaction: transactionFunc,
	}, nil
}

func (l *GormLedger) EnsureAccount(ctx context.Context, userID int64) error {
	ctx, span := tracer.Start(ctx, "EnsureAccount")
	defer span.End()

	return l.ensureAccount(l.db.WithContext(ctx), userID)
}

func (l *GormLedger) ensureAccount(tx *gorm.DB, userID int64) error {
	account := models.Account{UserID: userID}
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&account)
	return res.Error
}

func (l *GormLedger) CreditPoints(ctx context.Context, userID int64, amount int64) error {
	ctx, span := tracer.Start(ctx, "CreditPoints")
	defer span.End()

	if amount < 0 {
		return fmt.Errorf("credit amount must not be negative: %d", amount)
	}
	if amount == 0 {
		return nil
	}

	// The increment itself is a single atomic statement. The transaction
	// only ties it to the account upsert, and buys the client-side retry
	// loop on cockroach.
	return l.transaction(ctx, func(tx *gorm.DB) error {
		if err := l.ensureAccount(tx, userID); err != nil {
			return err
		}
		res := tx.Model(&models.Account{}).
			Where("user_id = ?", userID).
			UpdateColumns(map[string]interface{}{
				"balance":    gorm.Expr("balance + ?", amount),
				"updated_at": time.Now().UTC(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return fmt.Errorf("credit did not apply for user %d", userID)
		}
		return nil
	})
}

func (l *GormLedger) Balance(ctx context.Context, userID int64) (*models.Account, error) {
	ctx, span := tracer.Start(ctx, "Balance")
	defer span.End()

	var account models.Account
	if res := l.db.WithContext(ctx).First(&account, "user_id = ?", userID); res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, res.Error
	}
	return &account, nil
}
