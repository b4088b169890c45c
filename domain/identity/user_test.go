package identity

import (
	"errors"
	"slices"
	"testing"
	"time"

	"fitquest/domain/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, time.April, 2, 8, 0, 0, 0, time.UTC)

func TestRegister(t *testing.T) {
	r := Register("sub-1", "Ada", " Ada@Example.com ", now)
	require.True(t, r.IsSuccess())
	u := r.Value()

	assert.Equal(t, "ada@example.com", u.Email().Value())
	assert.True(t, u.IsNew())

	events := slices.Collect(u.RecordedEvents())
	require.Len(t, events, 1)
	created := events[0].(UserCreated)
	assert.Equal(t, EventTypeUserCreated, created.EventType())
	assert.Equal(t, "sub-1", created.UserID)
	assert.Equal(t, "Ada", created.DisplayName)
	assert.Equal(t, now, created.OccurredAt())
}

func TestRegister_Validation(t *testing.T) {
	cases := []struct{ id, name, email string }{
		{"", "Ada", "ada@example.com"},
		{"sub", "", "ada@example.com"},
		{"sub", "Ada", "not-an-email"},
	}
	for _, c := range cases {
		r := Register(c.id, c.name, c.email, now)
		assert.True(t, r.IsFailure())
		assert.Equal(t, shared.CodeValidation, r.Error().Code)
	}
}

func TestGrantHealthPermission(t *testing.T) {
	u := Register("sub-1", "Ada", "ada@example.com", now).Value()
	u.ClearRecordedEvents()

	require.True(t, u.GrantHealthPermission(ScopeSteps, now).IsSuccess())
	require.True(t, u.GrantHealthPermission(ScopeSteps, now).IsSuccess())
	assert.True(t, u.HasPermission(ScopeSteps))
	assert.False(t, u.HasPermission(ScopeSleep))

	events := slices.Collect(u.RecordedEvents())
	require.Len(t, events, 1, "granting twice is idempotent")
	assert.Equal(t, ScopeSteps, events[0].(HealthPermissionGranted).Scope)

	r := u.GrantHealthPermission("dna", now)
	assert.Equal(t, shared.CodeValidation, r.Error().Code)
}

func TestRegisterDevice(t *testing.T) {
	u := Register("sub-1", "Ada", "ada@example.com", now).Value()
	require.True(t, u.RegisterDevice("tok-1", now).IsSuccess())
	require.True(t, u.RegisterDevice("tok-1", now).IsSuccess())
	assert.Equal(t, []string{"tok-1"}, u.DeviceTokens())
	assert.True(t, u.RegisterDevice("", now).IsFailure())
}

func TestRebuildFromDTO_RoundTrip(t *testing.T) {
	u := Register("sub-1", "Ada", "ada@example.com", now).Value()
	require.True(t, u.GrantHealthPermission(ScopeWorkouts, now).IsSuccess())

	rebuilt := RebuildFromDTO(u.ToDTO())
	assert.Equal(t, u.ToDTO(), rebuilt.ToDTO())
	assert.False(t, rebuilt.IsNew())
	assert.Empty(t, slices.Collect(rebuilt.RecordedEvents()))
}

func TestEmailAlreadyExistsError(t *testing.T) {
	err := NewEmailAlreadyExistsError("ada@example.com")
	assert.True(t, errors.Is(err, ErrEmailAlreadyExists))
	assert.True(t, errors.Is(err, shared.ErrConflict))
}
