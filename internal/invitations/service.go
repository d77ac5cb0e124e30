package invitations

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/inviterd-io/inviterd/internal/models"
	"github.com/inviterd-io/inviterd/internal/notifications"
	"github.com/inviterd-io/inviterd/internal/signalbus"
	"github.com/inviterd-io/inviterd/internal/util"
	"go.uber.org/zap"
)

// Config is the immutable per-call snapshot of the reward settings. The
// service never stores it; the caller re-fetches current values at the
// boundary for every request, so a settings change between issuance and
// redemption changes the payout of already-issued codes.
type Config struct {
	Enabled       bool
	InviterPoints int64
	InvitedPoints int64
}

// ReconciliationError reports the one partially-applied state this engine
// can leave behind: the invitation transitioned to completed, but a reward
// credit failed afterwards. It carries the full invitation context so an
// operator can settle the difference by hand.
type ReconciliationError struct {
	Code          string
	InviterID     int64
	InvitedID     int64
	InviterPoints int64
	InvitedPoints int64
	Err           error
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("invitation %s completed but reward credit failed (inviter %d, invited %d): %v",
		e.Code, e.InviterID, e.InvitedID, e.Err)
}

func (e *ReconciliationError) Unwrap() error {
	return e.Err
}

// Service coordinates redemption: validation, the pending to completed
// transition, and reward crediting, in that order. The transition is the
// commit point; crediting before it landed would risk a double payout on a
// lost race.
type Service struct {
	logger    *zap.SugaredLogger
	store     *Store
	generator *Generator
	ledger    Ledger
	notifier  notifications.Notifier
	signalBus signalbus.SignalBus
}

func NewService(
	logger *zap.SugaredLogger,
	store *Store,
	ledger Ledger,
	notifier notifications.Notifier,
	signalBus signalbus.SignalBus,
) *Service {
	return &Service{
		logger:    logger,
		store:     store,
		generator: NewGenerator(logger, store),
		ledger:    ledger,
		notifier:  notifier,
		signalBus: signalBus,
	}
}

// CreateInvitation issues a fresh single-use code owned by inviterID.
func (s *Service) CreateInvitation(ctx context.Context, inviterID int64) (*models.Invitation, error) {
	ctx, span := tracer.Start(ctx, "CreateInvitation")
	defer span.End()

	return s.generator.Generate(ctx, inviterID)
}

// Redeem consumes code on behalf of userID. The returned result is a typed
// outcome; an error is only returned for storage failures and for the
// reconciliation case, never for rejected redemptions.
func (s *Service) Redeem(ctx context.Context, code string, userID int64, cfg Config) (models.RedemptionResult, error) {
	ctx, span := tracer.Start(ctx, "Redeem")
	defer span.End()

	code = strings.TrimSpace(code)

	// Registration floor: the redeeming user ends up with at least a bare
	// account row no matter how the redemption goes. Idempotent, and not
	// part of the settlement invariants, so a failure is only logged.
	if err := s.ledger.EnsureAccount(ctx, userID); err != nil {
		util.WithTrace(ctx, s.logger).Warnw("could not ensure base account",
			"user_id", userID, "error", err)
	}

	invitation, err := s.store.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return models.RedemptionResult{Outcome: models.OutcomeInvalidCode}, nil
		}
		return models.RedemptionResult{}, err
	}
	if invitation.Status != models.InvitationPending {
		return models.RedemptionResult{Outcome: models.OutcomeAlreadyUsed}, nil
	}
	if invitation.InviterID == userID {
		return models.RedemptionResult{Outcome: models.OutcomeSelfInvite}, nil
	}

	// The lookup above is only advisory: another redemption may land between
	// it and this conditional update. Whoever lands the update first wins;
	// everyone else sees false here.
	won, err := s.store.TransitionToCompleted(ctx, code, userID)
	if err != nil {
		return models.RedemptionResult{}, err
	}
	if !won {
		return models.RedemptionResult{Outcome: models.OutcomeAlreadyUsed}, nil
	}

	s.signalBus.Notify(notifications.SignalInvitationCompleted)

	result := models.RedemptionResult{Outcome: models.OutcomeCompleted}
	if cfg.Enabled {
		result.InviterPoints = cfg.InviterPoints
		result.InvitedPoints = cfg.InvitedPoints
	}

	// Strictly after the transition: the invitation can complete at most
	// once, so each credit is issued at most once. Zero amounts are skipped
	// inside the ledger.
	if err := s.ledger.CreditPoints(ctx, invitation.InviterID, result.InviterPoints); err != nil {
		return result, s.reconciliationRequired(ctx, invitation, userID, result, err)
	}
	if err := s.ledger.CreditPoints(ctx, userID, result.InvitedPoints); err != nil {
		return result, s.reconciliationRequired(ctx, invitation, userID, result, err)
	}

	s.notifier.Notify(ctx, invitation.InviterID, notifications.EventInviteAccepted, map[string]interface{}{
		"code":       code,
		"invited_id": userID,
		"points":     result.InviterPoints,
	})
	s.notifier.Notify(ctx, userID, notifications.EventRewardCredited, map[string]interface{}{
		"code":       code,
		"inviter_id": invitation.InviterID,
		"points":     result.InvitedPoints,
	})

	return result, nil
}

func (s *Service) reconciliationRequired(ctx context.Context, invitation *models.Invitation, userID int64, result models.RedemptionResult, err error) error {
	recErr := &ReconciliationError{
		Code:          invitation.Code,
		InviterID:     invitation.InviterID,
		InvitedID:     userID,
		InviterPoints: result.InviterPoints,
		InvitedPoints: result.InvitedPoints,
		Err:           err,
	}
	// This is the one place exactly-once is not guaranteed end-to-end.
	// Loud on purpose: an operator has to settle it.
	util.WithTrace(ctx, s.logger).Errorw("RECONCILIATION REQUIRED: invitation completed but credit failed",
		"code", invitation.Code,
		"inviter_id", invitation.InviterID,
		"invited_id", userID,
		"inviter_points", result.InviterPoints,
		"invited_points", result.InvitedPoints,
		"error", err,
	)
	return recErr
}

// InviterStats reports how many of the inviter's codes have been redeemed,
// with the display value of those referrals priced at the currently
// configured reward.
func (s *Service) InviterStats(ctx context.Context, inviterID int64, cfg Config) (models.InviterStats, error) {
	ctx, span := tracer.Start(ctx, "InviterStats")
	defer span.End()

	count, err := s.store.CountCompleted(ctx, inviterID)
	if err != nil {
		return models.InviterStats{}, err
	}
	stats := models.InviterStats{
		SuccessfulInvites: count,
	}
	if cfg.Enabled {
		stats.PointsEarned = count * cfg.InviterPoints
	}
	return stats, nil
}

// GetByCode exposes a read-only invitation lookup for the API layer.
func (s *Service) GetByCode(ctx context.Context, code string) (*models.Invitation, error) {
	return s.store.GetByCode(ctx, strings.TrimSpace(code))
}

// Balance exposes the ledger account for the API layer.
func (s *Service) Balance(ctx context.Context, userID int64) (*models.Account, error) {
	return s.ledger.Balance(ctx, userID)
}
