package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/inviterd-io/inviterd/internal/models"
)

func (suite *HandlerTestSuite) TestCreateInvitation() {
	require := suite.Require()
	assert := suite.Assert()

	body, err := json.Marshal(models.AddInvitation{InviterID: TestInviterID})
	require.NoError(err)

	_, res, err := suite.ServeRequest(http.MethodPost, "/api/invitations", "/api/invitations",
		suite.api.CreateInvitation, bytes.NewBuffer(body))
	require.NoError(err)
	require.Equal(http.StatusCreated, res.Code)

	var invitation models.Invitation
	require.NoError(json.Unmarshal(res.Body.Bytes(), &invitation))
	assert.Len(invitation.Code, 12)
	assert.Equal(TestInviterID, invitation.InviterID)
	assert.Equal(models.InvitationPending, invitation.Status)
	assert.Nil(invitation.InvitedID)
}

func (suite *HandlerTestSuite) TestCreateInvitationBadPayload() {
	require := suite.Require()

	tt := []struct {
		name string
		body string
		code int
	}{
		{name: "not json", body: "not json", code: http.StatusBadRequest},
		{name: "missing inviter", body: "{}", code: http.StatusBadRequest},
		{name: "negative inviter", body: `{"inviter_id":-1}`, code: http.StatusBadRequest},
	}
	for _, tc := range tt {
		_, res, err := suite.ServeRequest(http.MethodPost, "/api/invitations", "/api/invitations",
			suite.api.CreateInvitation, bytes.NewBufferString(tc.body))
		require.NoError(err, tc.name)
		require.Equal(tc.code, res.Code, tc.name)
	}
}

func (suite *HandlerTestSuite) TestCreateInvitationDisabled() {
	require := suite.Require()
	suite.T().Setenv("INVD_FFLAG_INVITATIONS", "false")

	body, err := json.Marshal(models.AddInvitation{InviterID: TestInviterID})
	require.NoError(err)

	_, res, err := suite.ServeRequest(http.MethodPost, "/api/invitations", "/api/invitations",
		suite.api.CreateInvitation, bytes.NewBuffer(body))
	require.NoError(err)
	require.Equal(http.StatusMethodNotAllowed, res.Code)
}

func (suite *HandlerTestSuite) TestRedeemInvitation() {
	require := suite.Require()
	assert := suite.Assert()

	invitation, err := suite.api.invitations.CreateInvitation(context.Background(), TestInviterID)
	require.NoError(err)

	body, err := json.Marshal(models.RedeemInvitation{UserID: TestInvitedID})
	require.NoError(err)

	uri := fmt.Sprintf("/api/invitations/%s/redeem", invitation.Code)
	_, res, err := suite.ServeRequest(http.MethodPost, "/api/invitations/:code/redeem", uri,
		suite.api.RedeemInvitation, bytes.NewBuffer(body))
	require.NoError(err)
	require.Equal(http.StatusOK, res.Code)

	var result models.RedemptionResult
	require.NoError(json.Unmarshal(res.Body.Bytes(), &result))
	assert.Equal(models.OutcomeCompleted, result.Outcome)
	assert.Equal(int64(10), result.InviterPoints)
	assert.Equal(int64(5), result.InvitedPoints)

	// a second attempt on the consumed code settles as already used
	_, res, err = suite.ServeRequest(http.MethodPost, "/api/invitations/:code/redeem", uri,
		suite.api.RedeemInvitation, bytes.NewBuffer(body))
	require.NoError(err)
	require.Equal(http.StatusOK, res.Code)
	require.NoError(json.Unmarshal(res.Body.Bytes(), &result))
	assert.Equal(models.OutcomeAlreadyUsed, result.Outcome)

	// the stored invitation reflects the settlement
	_, res, err = suite.ServeRequest(http.MethodGet, "/api/invitations/:code",
		fmt.Sprintf("/api/invitations/%s", invitation.Code), suite.api.GetInvitation, nil)
	require.NoError(err)
	require.Equal(http.StatusOK, res.Code)
	var stored models.Invitation
	require.NoError(json.Unmarshal(res.Body.Bytes(), &stored))
	assert.Equal(models.InvitationCompleted, stored.Status)
	require.NotNil(stored.InvitedID)
	assert.Equal(TestInvitedID, *stored.InvitedID)
	assert.NotNil(stored.CompletedAt)

	// both parties were credited
	_, res, err = suite.ServeRequest(http.MethodGet, "/api/users/:id/balance",
		fmt.Sprintf("/api/users/%d/balance", TestInviterID), suite.api.GetAccountBalance, nil)
	require.NoError(err)
	require.Equal(http.StatusOK, res.Code)
	var account models.Account
	require.NoError(json.Unmarshal(res.Body.Bytes(), &account))
	assert.Equal(int64(10), account.Balance)

	_, res, err = suite.ServeRequest(http.MethodGet, "/api/users/:id/balance",
		fmt.Sprintf("/api/users/%d/balance", TestInvitedID), suite.api.GetAccountBalance, nil)
	require.NoError(err)
	require.Equal(http.StatusOK, res.Code)
	require.NoError(json.Unmarshal(res.Body.Bytes(), &account))
	assert.Equal(int64(5), account.Balance)
}

func (suite *HandlerTestSuite) TestRedeemInvitationUnknownCode() {
	require := suite.Require()
	assert := suite.Assert()

	body, err := json.Marshal(models.RedeemInvitation{UserID: TestInvitedID})
	require.NoError(err)

	_, res, err := suite.ServeRequest(http.MethodPost, "/api/invitations/:code/redeem",
		"/api/invitations/nosuchcode00/redeem", suite.api.RedeemInvitation, bytes.NewBuffer(body))
	require.NoError(err)
	require.Equal(http.StatusOK, res.Code)

	var result models.RedemptionResult
	require.NoError(json.Unmarshal(res.Body.Bytes(), &result))
	assert.Equal(models.OutcomeInvalidCode, result.Outcome)
	assert.Equal(int64(0), result.InviterPoints)
	assert.Equal(int64(0), result.InvitedPoints)
}

func (suite *HandlerTestSuite) TestRedeemInvitationSelfInvite() {
	require := suite.Require()
	assert := suite.Assert()

	invitation, err := suite.api.invitations.CreateInvitation(context.Background(), TestInviterID)
	require.NoError(err)

	body, err := json.Marshal(models.RedeemInvitation{UserID: TestInviterID})
	require.NoError(err)

	uri := fmt.Sprintf("/api/invitations/%s/redeem", invitation.Code)
	_, res, err := suite.ServeRequest(http.MethodPost, "/api/invitations/:code/redeem", uri,
		suite.api.RedeemInvitation, bytes.NewBuffer(body))
	require.NoError(err)
	require.Equal(http.StatusOK, res.Code)

	var result models.RedemptionResult
	require.NoError(json.Unmarshal(res.Body.Bytes(), &result))
	assert.Equal(models.OutcomeSelfInvite, result.Outcome)

	// the code is still live for someone else
	_, res, err = suite.ServeRequest(http.MethodGet, "/api/invitations/:code",
		fmt.Sprintf("/api/invitations/%s", invitation.Code), suite.api.GetInvitation, nil)
	require.NoError(err)
	require.Equal(http.StatusOK, res.Code)
	var stored models.Invitation
	require.NoError(json.Unmarshal(res.Body.Bytes(), &stored))
	assert.Equal(models.InvitationPending, stored.Status)
}

func (suite *HandlerTestSuite) TestRedeemInvitationBadPayload() {
	require := suite.Require()

	_, res, err := suite.ServeRequest(http.MethodPost, "/api/invitations/:code/redeem",
		"/api/invitations/abc123abc123/redeem", suite.api.RedeemInvitation, bytes.NewBufferString("{}"))
	require.NoError(err)
	require.Equal(http.StatusBadRequest, res.Code)
}

func (suite *HandlerTestSuite) TestGetInvitationNotFound() {
	require := suite.Require()

	_, res, err := suite.ServeRequest(http.MethodGet, "/api/invitations/:code",
		"/api/invitations/nosuchcode00", suite.api.GetInvitation, nil)
	require.NoError(err)
	require.Equal(http.StatusNotFound, res.Code)
}

func (suite *HandlerTestSuite) TestGetInviterStats() {
	require := suite.Require()
	assert := suite.Assert()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		invitation, err := suite.api.invitations.CreateInvitation(ctx, TestInviterID)
		require.NoError(err)

		body, err := json.Marshal(models.RedeemInvitation{UserID: TestInvitedID + int64(i)})
		require.NoError(err)
		uri := fmt.Sprintf("/api/invitations/%s/redeem", invitation.Code)
		_, res, err := suite.ServeRequest(http.MethodPost, "/api/invitations/:code/redeem", uri,
			suite.api.RedeemInvitation, bytes.NewBuffer(body))
		require.NoError(err)
		require.Equal(http.StatusOK, res.Code)
	}
	// one pending code does not count
	_, err := suite.api.invitations.CreateInvitation(ctx, TestInviterID)
	require.NoError(err)

	_, res, err := suite.ServeRequest(http.MethodGet, "/api/users/:id/invitation-stats",
		fmt.Sprintf("/api/users/%d/invitation-stats", TestInviterID), suite.api.GetInviterStats, nil)
	require.NoError(err)
	require.Equal(http.StatusOK, res.Code)

	var stats models.InviterStats
	require.NoError(json.Unmarshal(res.Body.Bytes(), &stats))
	assert.Equal(int64(3), stats.SuccessfulInvites)
	assert.Equal(int64(30), stats.PointsEarned)
}

func (suite *HandlerTestSuite) TestGetAccountBalanceNotFound() {
	require := suite.Require()

	_, res, err := suite.ServeRequest(http.MethodGet, "/api/users/:id/balance",
		"/api/users/987654321/balance", suite.api.GetAccountBalance, nil)
	require.NoError(err)
	require.Equal(http.StatusNotFound, res.Code)
}

func (suite *HandlerTestSuite) TestBadUserIDPathParameter() {
	require := suite.Require()

	_, res, err := suite.ServeRequest(http.MethodGet, "/api/users/:id/invitation-stats",
		"/api/users/abc/invitation-stats", suite.api.GetInviterStats, nil)
	require.NoError(err)
	require.Equal(http.StatusBadRequest, res.Code)

	_, res, err = suite.ServeRequest(http.MethodGet, "/api/users/:id/balance",
		"/api/users/abc/balance", suite.api.GetAccountBalance, nil)
	require.NoError(err)
	require.Equal(http.StatusBadRequest, res.Code)
}
