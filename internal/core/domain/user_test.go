package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/ticketroute/helpdesk-backend/internal/core/errors"
)

func TestNewUser(t *testing.T) {
	t.Run("normalizes name and email", func(t *testing.T) {
		user, err := NewUser("  Marie Dupont ", " Marie.Dupont@Example.FR ", "motdepasse", RoleTechnician)
		require.NoError(t, err)
		assert.Equal(t, "Marie Dupont", user.FullName)
		assert.Equal(t, "marie.dupont@example.fr", user.Email)
		assert.Equal(t, RoleTechnician, user.Role)
		assert.True(t, user.IsActive)
		assert.NotEqual(t, "motdepasse", user.PasswordHash)
	})

	t.Run("rejects blank fields", func(t *testing.T) {
		_, err := NewUser("", "a@b.fr", "x", RoleRequester)
		assert.ErrorIs(t, err, apperrors.ErrBadRequest)

		_, err = NewUser("Nom", "  ", "x", RoleRequester)
		assert.ErrorIs(t, err, apperrors.ErrBadRequest)
	})

	t.Run("rejects unknown role", func(t *testing.T) {
		_, err := NewUser("Nom", "a@b.fr", "x", "ADMIN")
		assert.ErrorIs(t, err, apperrors.ErrBadRequest)
	})
}

func TestCheckPassword(t *testing.T) {
	user, err := NewUser("Jean Martin", "jean@example.fr", "secret-suffisant", RoleRequester)
	require.NoError(t, err)

	assert.NoError(t, user.CheckPassword("secret-suffisant"))
	assert.ErrorIs(t, user.CheckPassword("mauvais"), apperrors.ErrInvalidCredentials)
}

func TestTechnicianWorkloadOpenCount(t *testing.T) {
	w := TechnicianWorkload{AssignedCount: 2, InProgressCount: 3}
	assert.EqualValues(t, 5, w.OpenCount())
}
