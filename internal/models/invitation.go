package models

import (
	"time"
)

// InvitationStatus is the lifecycle state of an invitation. The only legal
// transition is pending -> completed.
type InvitationStatus string

const (
	InvitationPending   InvitationStatus = "pending"
	InvitationCompleted InvitationStatus = "completed"
)

// Invitation is a single-use referral code issued by one user and redeemed by
// another. The code is generated once and never reused; invited_id is set
// exactly once, together with the transition to completed.
type Invitation struct {
	ID          uint             `gorm:"primarykey" json:"id"`
	Code        string           `gorm:"size:50;not null" json:"code" example:"9f1c5a8e02b4"`
	InviterID   int64            `gorm:"not null" json:"inviter_id" example:"100000001"`
	InvitedID   *int64           `json:"invited_id,omitempty" example:"200000002"`
	Status      InvitationStatus `gorm:"size:20;not null;default:pending" json:"status" example:"pending"`
	CreatedAt   time.Time        `json:"created_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}

// AddInvitation is the request body to issue a new invitation code.
type AddInvitation struct {
	InviterID int64 `json:"inviter_id" binding:"required" example:"100000001"`
}

// RedeemInvitation is the request body to redeem an invitation code.
type RedeemInvitation struct {
	UserID int64 `json:"user_id" binding:"required" example:"200000002"`
}

// RedemptionOutcome is the terminal result of a redemption attempt.
type RedemptionOutcome string

const (
	OutcomeCompleted   RedemptionOutcome = "completed"
	OutcomeInvalidCode RedemptionOutcome = "invalid_code"
	OutcomeAlreadyUsed RedemptionOutcome = "already_used"
	OutcomeSelfInvite  RedemptionOutcome = "self_invite"
)

// RedemptionResult reports what a redemption attempt settled to. Points are
// only non-zero on a completed outcome.
type RedemptionResult struct {
	Outcome       RedemptionOutcome `json:"outcome" example:"completed"`
	InviterPoints int64             `json:"inviter_points" example:"10"`
	InvitedPoints int64             `json:"invited_points" example:"5"`
}

// InviterStats summarizes completed referrals for one inviter. PointsEarned
// is derived from the currently configured reward, not from historic payouts.
type InviterStats struct {
	SuccessfulInvites int64 `json:"successful_invites" example:"3"`
	PointsEarned      int64 `json:"points_earned" example:"30"`
}
