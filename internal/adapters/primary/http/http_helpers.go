package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	mw "github.com/ticketroute/helpdesk-backend/internal/adapters/primary/http/middleware"
	"github.com/ticketroute/helpdesk-backend/internal/auth"
	apperrors "github.com/ticketroute/helpdesk-backend/internal/core/errors"
	"github.com/ticketroute/helpdesk-backend/internal/core/ports"
)

// getClaims extracts the validated JWT claims placed in the context by
// the auth middleware.
func getClaims(r *http.Request) (*auth.Claims, error) {
	claims, ok := mw.ClaimsFromContext(r.Context())
	if !ok {
		return nil, apperrors.NewUnauthorizedError("Authentication required")
	}
	return claims, nil
}

// getActor converts the request claims into the core Actor identity.
func getActor(r *http.Request) (ports.Actor, error) {
	claims, err := getClaims(r)
	if err != nil {
		return ports.Actor{}, err
	}
	return ports.Actor{ID: claims.UserID, Role: claims.Role}, nil
}

// parseUUIDParam parses a chi URL parameter as a UUID.
func parseUUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperrors.NewBadRequestError(err, "Invalid "+name)
	}
	return id, nil
}
