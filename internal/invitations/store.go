// Package invitations is the invitation ledger and redemption settlement
// engine. All exclusivity is enforced by the storage layer: the unique index
// on the code arbitrates concurrent generation, and a conditional update
// arbitrates concurrent redemption. No in-process locking is involved, so the
// guarantees hold across multiple apiserver instances sharing one database.
package invitations

import (
	"context"
	"errors"
	"time"

	"github.com/inviterd-io/inviterd/internal/database"
	"github.com/inviterd-io/inviterd/internal/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var tracer trace.Tracer

func init() {
	tracer = otel.Tracer("github.com/inviterd-io/inviterd/internal/invitations")
}

var (
	// ErrDuplicateCode is returned by Insert when the code is already taken.
	// The generator treats it as a signal to discard the token and retry.
	ErrDuplicateCode = errors.New("invitation code already exists")

	// ErrNotFound is returned on lookups of codes or accounts that were
	// never recorded.
	ErrNotFound = errors.New("not found")
)

// Store owns invitation persistence. It is the sole arbiter of the code
// uniqueness and single-transition invariants; callers never mutate records
// directly.
type Store struct {
	logger *zap.SugaredLogger
	db     *gorm.DB
}

func NewStore(logger *zap.SugaredLogger, db *gorm.DB) *Store {
	return &Store{
		logger: logger,
		db:     db,
	}
}

// Insert records a new pending invitation. A unique constraint violation on
// the code comes back as ErrDuplicateCode, distinct from other storage
// errors, so the caller can retry with a fresh token.
func (s *Store) Insert(ctx context.Context, code string, inviterID int64) (*models.Invitation, error) {
	ctx, span := tracer.Start(ctx, "Insert")
	defer span.End()

	invitation := models.Invitation{
		Code:      code,
		InviterID: inviterID,
		Status:    models.InvitationPending,
	}
	if res := s.db.WithContext(ctx).Create(&invitation); res.Error != nil {
		if database.IsDuplicateError(res.Error) {
			return nil, ErrDuplicateCode
		}
		return nil, res.Error
	}
	return &invitation, nil
}

// GetByCode is a read-only lookup with no side effects.
func (s *Store) GetByCode(ctx context.Context, code string) (*models.Invitation, error) {
	ctx, span := tracer.Start(ctx, "GetByCode")
	defer span.End()

	var invitation models.Invitation
	if res := s.db.WithContext(ctx).First(&invitation, "code = ?", code); res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, res.Error
	}
	return &invitation, nil
}

// TransitionToCompleted flips a pending invitation to completed, setting
// invited_id and completed_at in the same write. The status check and the
// update are one conditional statement, never a read followed by a write, so
// out of any number of concurrent redemption attempts exactly one observes
// true. A false return with no error means another redemption won the race
// or the invitation was already completed.
func (s *Store) TransitionToCompleted(ctx context.Context, code string, invitedID int64) (bool, error) {
	ctx, span := tracer.Start(ctx, "TransitionToCompleted")
	defer span.End()

	now := time.Now().UTC()
	res := s.db.WithContext(ctx).
		Model(&models.Invitation{}).
		Where("code = ? AND status = ?", code, models.InvitationPending).
		Updates(map[string]interface{}{
			"status":       models.InvitationCompleted,
			"invited_id":   invitedID,
			"completed_at": now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// CountAllCompleted returns the total number of settled invitations across
// all inviters.
func (s *Store) CountAllCompleted(ctx context.Context) (int64, error) {
	ctx, span := tracer.Start(ctx, "CountAllCompleted")
	defer span.End()

	var count int64
	res := s.db.WithContext(ctx).
		Model(&models.Invitation{}).
		Where("status = ?", models.InvitationCompleted).
		Count(&count)
	if res.Error != nil {
		return 0, res.Error
	}
	return count, nil
}

// CountCompleted returns how many invitations by the given inviter have been
// redeemed. Monotonic non-decreasing, since completed records are never
// deleted or reverted.
func (s *Store) CountCompleted(ctx context.Context, inviterID int64) (int64, error) {
	ctx, span := tracer.Start(ctx, "CountCompleted")
	defer span.End()

	var count int64
	res := s.db.WithContext(ctx).
		Model(&models.Invitation{}).
		Where("inviter_id = ? AND status = ?", inviterID, models.InvitationCompleted).
		Count(&count)
	if res.Error != nil {
		return 0, res.Error
	}
	return count, nil
}
