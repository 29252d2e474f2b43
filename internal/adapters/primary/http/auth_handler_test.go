package http

import (
	"encoding/json"
	stdhttp "net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ticketroute/helpdesk-backend/internal/core/domain"
	apperrors "github.com/ticketroute/helpdesk-backend/internal/core/errors"
	"github.com/ticketroute/helpdesk-backend/internal/core/mocks"
)

func newAuthRouter(authService *mocks.MockAuthService) *chi.Mux {
	logger := testLogger()
	handler := NewAuthHandler(authService, newTestTokenManager(), NewErrorHandler(logger), logger)
	r := chi.NewRouter()
	r.Route("/auth", handler.RegisterRoutes)
	return r
}

func TestAuthHandler_Login(t *testing.T) {
	t.Run("valid credentials return a token and the user", func(t *testing.T) {
		authService := new(mocks.MockAuthService)
		router := newAuthRouter(authService)

		user := &domain.User{
			ID:       uuid.New(),
			FullName: "Marie Dupont",
			Email:    "marie@example.fr",
			Role:     domain.RoleDispatcher,
			IsActive: true,
		}
		authService.On("Login", mock.Anything, "marie@example.fr", "motdepasse8").Return(user, nil)

		recorder := doJSON(t, router, stdhttp.MethodPost, "/auth/login", "", map[string]string{
			"email":    "marie@example.fr",
			"password": "motdepasse8",
		})

		require.Equal(t, stdhttp.StatusOK, recorder.Code)
		var resp LoginResponse
		require.NoError(t, json.NewDecoder(recorder.Body).Decode(&resp))
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, "DSI", resp.User.Role)
		assert.Equal(t, user.ID.String(), resp.User.ID)

		// The token round-trips through the token manager.
		claims, err := newTestTokenManager().ValidateToken(resp.Token)
		require.NoError(t, err)
		assert.Equal(t, user.ID, claims.UserID)
		assert.Equal(t, domain.RoleDispatcher, claims.Role)
	})

	t.Run("bad credentials return 401", func(t *testing.T) {
		authService := new(mocks.MockAuthService)
		router := newAuthRouter(authService)

		authService.On("Login", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, apperrors.ErrInvalidCredentials)

		recorder := doJSON(t, router, stdhttp.MethodPost, "/auth/login", "", map[string]string{
			"email":    "marie@example.fr",
			"password": "mauvais",
		})

		assert.Equal(t, stdhttp.StatusUnauthorized, recorder.Code)
		assert.Equal(t, "INVALID_CREDENTIALS", decodeError(t, recorder).Code)
	})

	t.Run("malformed email fails validation", func(t *testing.T) {
		authService := new(mocks.MockAuthService)
		router := newAuthRouter(authService)

		recorder := doJSON(t, router, stdhttp.MethodPost, "/auth/login", "", map[string]string{
			"email":    "pas-un-email",
			"password": "x",
		})

		assert.Equal(t, stdhttp.StatusUnprocessableEntity, recorder.Code)
		authService.AssertNotCalled(t, "Login", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestAuthHandler_Register(t *testing.T) {
	t.Run("creates the account", func(t *testing.T) {
		authService := new(mocks.MockAuthService)
		router := newAuthRouter(authService)

		user := &domain.User{
			ID:       uuid.New(),
			FullName: "Jean Petit",
			Email:    "jean.petit@example.fr",
			Role:     domain.RoleTechnician,
			IsActive: true,
		}
		authService.On("Register", mock.Anything, "Jean Petit", "jean.petit@example.fr", "motdepasse8", domain.RoleTechnician).
			Return(user, nil)

		recorder := doJSON(t, router, stdhttp.MethodPost, "/auth/register", "", map[string]string{
			"fullName": "Jean Petit",
			"email":    "jean.petit@example.fr",
			"password": "motdepasse8",
			"role":     "TECHNICIEN",
		})

		require.Equal(t, stdhttp.StatusCreated, recorder.Code)
		var dto UserDTO
		require.NoError(t, json.NewDecoder(recorder.Body).Decode(&dto))
		assert.Equal(t, user.ID.String(), dto.ID)
		assert.Equal(t, "TECHNICIEN", dto.Role)
		authService.AssertExpectations(t)
	})

	t.Run("unknown role fails validation", func(t *testing.T) {
		authService := new(mocks.MockAuthService)
		router := newAuthRouter(authService)

		recorder := doJSON(t, router, stdhttp.MethodPost, "/auth/register", "", map[string]string{
			"fullName": "Jean Petit",
			"email":    "jean.petit@example.fr",
			"password": "motdepasse8",
			"role":     "ADMIN",
		})

		assert.Equal(t, stdhttp.StatusUnprocessableEntity, recorder.Code)
		authService.AssertNotCalled(t, "Register",
			mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}
