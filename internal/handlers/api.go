package handlers

import (
	"context"

	"github.com/inviterd-io/inviterd/internal/fflags"
	"github.com/inviterd-io/inviterd/internal/invitations"
	"github.com/inviterd-io/inviterd/internal/notifications"
	"github.com/inviterd-io/inviterd/internal/signalbus"
	"github.com/inviterd-io/inviterd/internal/util"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var tracer trace.Tracer

func init() {
	tracer = otel.Tracer("github.com/inviterd-io/inviterd/internal/handlers")
}

type API struct {
	logger      *zap.SugaredLogger
	db          *gorm.DB
	fflags      *fflags.FFlags
	signalBus   signalbus.SignalBus
	invitations *invitations.Service
}

func NewAPI(
	parent context.Context,
	logger *zap.SugaredLogger,
	db *gorm.DB,
	fflags *fflags.FFlags,
	signalBus signalbus.SignalBus,
	notifier notifications.Notifier,
) (*API, error) {

	fflags.RegisterEnvFlag("invitations", "INVD_FFLAG_INVITATIONS", true)

	_, span := tracer.Start(parent, "NewAPI")
	defer span.End()

	store := invitations.NewStore(logger, db)
	ledger, err := invitations.NewGormLedger(logger, db)
	if err != nil {
		return nil, err
	}

	api := &API{
		logger:      logger,
		db:          db,
		fflags:      fflags,
		signalBus:   signalBus,
		invitations: invitations.NewService(logger, store, ledger, notifier, signalBus),
	}
	return api, nil
}

// rewardConfig takes the per-request snapshot of the invitation settings.
// Values are re-read at every call on purpose: the payout of an already
// issued code follows the configuration at redemption time.
func (api *API) rewardConfig() (invitations.Config, error) {
	enabled, err := api.fflags.GetFlag("invitations")
	if err != nil {
		return invitations.Config{}, err
	}
	inviterPoints, err := util.GetenvInt("INVD_INVITER_POINTS", "0")
	if err != nil {
		return invitations.Config{}, err
	}
	invitedPoints, err := util.GetenvInt("INVD_INVITED_POINTS", "0")
	if err != nil {
		return invitations.Config{}, err
	}
	return invitations.Config{
		Enabled:       enabled,
		InviterPoints: int64(inviterPoints),
		InvitedPoints: int64(invitedPoints),
	}, nil
}
