// Package notifications is the best-effort side channel for telling users
// about settled invitations. Delivery failures are logged and dropped, they
// never affect settlement.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/inviterd-io/inviterd/internal/util"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const deliveryTimeout = 5 * time.Second

// Event names understood by the client frontends.
const (
	EventInviteAccepted = "invite.accepted"
	EventRewardCredited = "reward.credited"
)

// SignalInvitationCompleted is raised on the signal bus whenever a
// redemption settles. Subscribers on any replica refresh their derived
// state from it, like the settled-invitations gauge.
const SignalInvitationCompleted = "invitation.completed"

// Envelope is the wire format published to the per-user channel.
type Envelope struct {
	ID      string      `json:"id"`
	UserID  int64       `json:"user_id"`
	Event   string      `json:"event"`
	Payload interface{} `json:"payload,omitempty"`
	SentAt  time.Time   `json:"sent_at"`
}

// Notifier delivers a single event to a single user. Implementations must be
// fire-and-forget: no retries, no backpressure to the caller.
type Notifier interface {
	Notify(ctx context.Context, userID int64, event string, payload interface{})
}

// RedisNotifier publishes events to a per-user redis Pub/Sub channel that the
// client frontends subscribe to.
type RedisNotifier struct {
	logger  *zap.SugaredLogger
	client  *redis.Client
	limiter Limiter
}

func NewRedisNotifier(logger *zap.SugaredLogger, client *redis.Client) *RedisNotifier {
	return &RedisNotifier{
		logger:  logger,
		client:  client,
		limiter: NewLimiter(32),
	}
}

func channelFor(userID int64) string {
	return fmt.Sprintf("inviterd.notify.%d", userID)
}

func (n *RedisNotifier) Notify(ctx context.Context, userID int64, event string, payload interface{}) {
	envelope := Envelope{
		ID:      uuid.NewString(),
		UserID:  userID,
		Event:   event,
		Payload: payload,
		SentAt:  time.Now().UTC(),
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		n.logger.Errorw("could not encode notification", "user_id", userID, "event", event, "error", err)
		return
	}

	// Detach from the request context so delivery is not cut short when the
	// response is written, but keep the trace.
	ctx = context.WithoutCancel(ctx)
	util.GoWithWaitGroup(nil, func() {
		deliverCtx, cancel := context.WithTimeout(ctx, deliveryTimeout)
		defer cancel()
		canceled := n.limiter.Do(deliverCtx, func() {
			if err := n.client.Publish(deliverCtx, channelFor(userID), data).Err(); err != nil {
				util.WithTrace(deliverCtx, n.logger).Warnw("notification delivery failed",
					"user_id", userID, "event", event, "error", err)
			}
		})
		if canceled {
			n.logger.Warnw("notification delivery timed out", "user_id", userID, "event", event)
		}
	})
}

// NoopNotifier drops everything. Used when no broker is configured and in
// tests that do not care about dispatch.
type NoopNotifier struct {
	logger *zap.SugaredLogger
}

func NewNoopNotifier(logger *zap.SugaredLogger) *NoopNotifier {
	return &NoopNotifier{logger: logger}
}

func (n *NoopNotifier) Notify(ctx context.Context, userID int64, event string, payload interface{}) {
	n.logger.Debugw("notification dropped, no dispatcher configured", "user_id", userID, "event", event)
}
