package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/inviterd-io/inviterd/internal/invitations"
	"github.com/inviterd-io/inviterd/internal/models"
)

// CreateInvitation issues a new single-use invitation code
// @Summary      Create an Invitation
// @Description  Issues a new single-use invitation code owned by the inviter
// @Id			 CreateInvitation
// @Tags         Invitations
// @Accept       json
// @Produce      json
// @Param        Invitation  body     models.AddInvitation  true  "Add Invitation"
// @Success      201  {object}  models.Invitation
// @Failure      400  {object}  models.ValidationError
// @Failure      405  {object}  models.NotAllowedError
// @Failure		 429  {object}  models.BaseError
// @Failure      503  {object}  models.ServiceUnavailableError
// @Failure      500  {object}  models.BaseError
// @Router       /api/invitations [post]
func (api *API) CreateInvitation(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "CreateInvitation")
	defer span.End()
	invitationsEnabled, err := api.fflags.GetFlag("invitations")
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.NewApiInternalError(err))
		return
	}
	if !invitationsEnabled {
		c.JSON(http.StatusMethodNotAllowed, models.NewNotAllowedError("invitation support is disabled"))
		return
	}
	var request models.AddInvitation
	if err := c.BindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, models.NewBadPayloadError())
		return
	}
	if request.InviterID <= 0 {
		c.JSON(http.StatusBadRequest, models.NewFieldValidationError("inviter_id", "must be a positive user id"))
		return
	}

	invitation, err := api.invitations.CreateInvitation(ctx, request.InviterID)
	if err != nil {
		if errors.Is(err, invitations.ErrGenerationExhausted) {
			c.JSON(http.StatusServiceUnavailable, models.NewServiceUnavailableError("could not allocate a unique invitation code"))
			return
		}
		c.JSON(http.StatusInternalServerError, models.NewApiInternalError(err))
		return
	}
	c.JSON(http.StatusCreated, invitation)
}

// RedeemInvitation redeems an invitation code
// @Summary      Redeem an Invitation
// @Description  Redeems an invitation code on behalf of a user and settles the rewards
// @Id			 RedeemInvitation
// @Tags         Invitations
// @Accept       json
// @Produce      json
// @Param        code        path     string                   true  "Invitation Code"
// @Param        Redemption  body     models.RedeemInvitation  true  "Redeem Invitation"
// @Success      200  {object}  models.RedemptionResult
// @Failure      400  {object}  models.ValidationError
// @Failure		 429  {object}  models.BaseError
// @Failure      500  {object}  models.BaseError
// @Router       /api/invitations/{code}/redeem [post]
func (api *API) RedeemInvitation(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "RedeemInvitation")
	defer span.End()
	code := c.Param("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, models.NewBadPathParameterError("code"))
		return
	}
	var request models.RedeemInvitation
	if err := c.BindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, models.NewBadPayloadError())
		return
	}
	if request.UserID <= 0 {
		c.JSON(http.StatusBadRequest, models.NewFieldValidationError("user_id", "must be a positive user id"))
		return
	}
	cfg, err := api.rewardConfig()
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.NewApiInternalError(err))
		return
	}

	result, err := api.invitations.Redeem(ctx, code, request.UserID, cfg)
	if err != nil {
		var recErr *invitations.ReconciliationError
		if errors.As(err, &recErr) {
			// The code is consumed but a credit did not land. Surfaced as a
			// server error so the caller does not mistake it for a settled
			// redemption.
			c.JSON(http.StatusInternalServerError, models.NewApiInternalError(recErr))
			return
		}
		c.JSON(http.StatusInternalServerError, models.NewApiInternalError(err))
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetInvitation gets an invitation by code
// @Summary      Get an Invitation
// @Description  Gets an invitation by its code
// @Id			 GetInvitation
// @Tags         Invitations
// @Accept       json
// @Produce      json
// @Param        code  path     string  true  "Invitation Code"
// @Success      200  {object}  models.Invitation
// @Failure      400  {object}  models.ValidationError
// @Failure      404  {object}  models.NotFoundError
// @Failure		 429  {object}  models.BaseError
// @Failure      500  {object}  models.BaseError
// @Router       /api/invitations/{code} [get]
func (api *API) GetInvitation(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "GetInvitation")
	defer span.End()
	code := c.Param("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, models.NewBadPathParameterError("code"))
		return
	}

	invitation, err := api.invitations.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, invitations.ErrNotFound) {
			c.JSON(http.StatusNotFound, models.NewNotFoundError("invitation"))
			return
		}
		c.JSON(http.StatusInternalServerError, models.NewApiInternalError(err))
		return
	}
	c.JSON(http.StatusOK, invitation)
}

// GetInviterStats gets the referral statistics for an inviter
// @Summary      Get Inviter Stats
// @Description  Gets the completed referral count and earned points for an inviter
// @Id			 GetInviterStats
// @Tags         Invitations
// @Accept       json
// @Produce      json
// @Param        id   path     integer  true  "User ID"
// @Success      200  {object}  models.InviterStats
// @Failure      400  {object}  models.ValidationError
// @Failure		 429  {object}  models.BaseError
// @Failure      500  {object}  models.BaseError
// @Router       /api/users/{id}/invitation-stats [get]
func (api *API) GetInviterStats(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "GetInviterStats")
	defer span.End()
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || userID <= 0 {
		c.JSON(http.StatusBadRequest, models.NewBadPathParameterError("id"))
		return
	}
	cfg, err := api.rewardConfig()
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.NewApiInternalError(err))
		return
	}

	stats, err := api.invitations.InviterStats(ctx, userID, cfg)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.NewApiInternalError(err))
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetAccountBalance gets the reward balance for a user
// @Summary      Get Account Balance
// @Description  Gets the accumulated reward balance for a user
// @Id			 GetAccountBalance
// @Tags         Accounts
// @Accept       json
// @Produce      json
// @Param        id   path     integer  true  "User ID"
// @Success      200  {object}  models.Account
// @Failure      400  {object}  models.ValidationError
// @Failure      404  {object}  models.NotFoundError
// @Failure		 429  {object}  models.BaseError
// @Failure      500  {object}  models.BaseError
// @Router       /api/users/{id}/balance [get]
func (api *API) GetAccountBalance(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "GetAccountBalance")
	defer span.End()
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || userID <= 0 {
		c.JSON(http.StatusBadRequest, models.NewBadPathParameterError("id"))
		return
	}

	account, err := api.invitations.Balance(ctx, userID)
	if err != nil {
		if errors.Is(err, invitations.ErrNotFound) {
			c.JSON(http.StatusNotFound, models.NewNotFoundError("account"))
			return
		}
		c.JSON(http.StatusInternalServerError, models.NewApiInternalError(err))
		return
	}
	c.JSON(http.StatusOK, account)
}
