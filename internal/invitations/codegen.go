package invitations

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/inviterd-io/inviterd/internal/models"
	"github.com/inviterd-io/inviterd/internal/util"
	"go.uber.org/zap"
)

const (
	// 6 random bytes hex-encoded: 12 characters, 48 bits of entropy.
	codeBytes = 6

	// maxGenerateAttempts bounds how many fresh tokens we try before giving
	// up. With 48 bits of entropy, running out of attempts means the store
	// is unhealthy, not that the code space is crowded.
	maxGenerateAttempts = 10

	insertRetryWait  = 100 * time.Millisecond
	insertRetryCount = 2
)

// ErrGenerationExhausted is returned when no unique code could be stored
// within the attempt budget.
var ErrGenerationExhausted = errors.New("could not generate a unique invitation code")

// Generator produces collision-free invitation codes. A probe-then-insert
// sequence would race with other generators, so it inserts optimistically
// and lets the store's unique constraint arbitrate.
type Generator struct {
	logger *zap.SugaredLogger
	store  *Store

	// overridable for tests
	randomCode func() (string, error)
}

func NewGenerator(logger *zap.SugaredLogger, store *Store) *Generator {
	return &Generator{
		logger:     logger,
		store:      store,
		randomCode: randomCode,
	}
}

func randomCode() (string, error) {
	buf := make([]byte, codeBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// Generate creates and persists a new pending invitation for inviterID,
// returning the stored record. Duplicate-key conflicts burn an attempt;
// other storage errors get a short bounded retry before surfacing.
func (g *Generator) Generate(ctx context.Context, inviterID int64) (*models.Invitation, error) {
	ctx, span := tracer.Start(ctx, "Generate")
	defer span.End()

	for attempt := 0; attempt < maxGenerateAttempts; attempt++ {
		code, err := g.randomCode()
		if err != nil {
			return nil, err
		}

		var invitation *models.Invitation
		err = util.RetryOperation(ctx, insertRetryWait, insertRetryCount, func() error {
			var insertErr error
			invitation, insertErr = g.store.Insert(ctx, code, inviterID)
			if errors.Is(insertErr, ErrDuplicateCode) {
				// not transient, a fresh token is needed
				return backoff.Permanent(insertErr)
			}
			return insertErr
		})
		if err == nil {
			return invitation, nil
		}
		if errors.Is(err, ErrDuplicateCode) {
			g.logger.Debugw("invitation code collision, retrying with a fresh token",
				"inviter_id", inviterID, "attempt", attempt+1)
			continue
		}
		return nil, err
	}

	g.logger.Errorw("invitation code generation exhausted its attempt budget",
		"inviter_id", inviterID, "attempts", maxGenerateAttempts)
	return nil, ErrGenerationExhausted
}
