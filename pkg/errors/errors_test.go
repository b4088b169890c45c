package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"fitquest/domain/competition"
	"fitquest/domain/identity"
	"fitquest/domain/shared"

	"github.com/stretchr/testify/assert"
)

func TestFromDomainError(t *testing.T) {
	week, _ := shared.ParseWeekID("2025-W11")
	cases := []struct {
		name   string
		err    error
		code   ErrorCode
		status int
	}{
		{"validation", shared.NewValidationError("user", "email", "bad email"), CodeValidation, http.StatusBadRequest},
		{"result validation", shared.FromResultError("points_profile", shared.ValidationError("points must be positive")), CodeValidation, http.StatusBadRequest},
		{"not found", identity.NewUserNotFoundError("u1"), CodeNotFound, http.StatusNotFound},
		{"email exists", identity.NewEmailAlreadyExistsError("a@b.co"), CodeEmailExists, http.StatusConflict},
		{"already joined", competition.NewMemberAlreadyJoinedError(competition.MemberKey{UserID: "u1", WeekID: week}), CodeAlreadyJoined, http.StatusConflict},
		{"concurrent", fmt.Errorf("award: %w", shared.NewConcurrentModificationError("league_member", "u1")), CodeConcurrentModified, http.StatusConflict},
		{"forbidden", shared.NewForbiddenError("points_profile", "no scope"), CodePermissionNotGranted, http.StatusForbidden},
		{"unavailable", shared.UnavailableError("push channel down"), CodeUnavailable, http.StatusServiceUnavailable},
		{"timeout", context.DeadlineExceeded, CodeTimeout, http.StatusGatewayTimeout},
		{"infrastructure", errors.New("dial tcp: refused"), CodeInternal, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			appErr := FromDomainError(tc.err)
			assert.Equal(t, tc.code, appErr.Code)
			assert.Equal(t, tc.status, appErr.HTTPStatusCode())
			assert.ErrorIs(t, appErr, tc.err)
		})
	}
}

func TestFromDomainError_HidesInfrastructureDetail(t *testing.T) {
	appErr := FromDomainError(errors.New("password=secret"))
	assert.Equal(t, "internal server error", appErr.Message)
}

func TestFromDomainError_KeepsField(t *testing.T) {
	appErr := FromDomainError(shared.NewValidationError("user", "email", "bad email"))
	assert.Equal(t, "email", appErr.Field)
	assert.Equal(t, "bad email", appErr.Message)
}

func TestFromDomainError_PassesAppErrorThrough(t *testing.T) {
	orig := Unauthorized("missing token")
	assert.Same(t, orig, FromDomainError(fmt.Errorf("wrapped: %w", orig)))
	assert.Nil(t, FromDomainError(nil))
	assert.True(t, Is(orig, CodeUnauthorized))
}
