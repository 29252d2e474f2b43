package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ticketroute/helpdesk-backend/internal/adapters/primary/validation"
	"github.com/ticketroute/helpdesk-backend/internal/auth"
	"github.com/ticketroute/helpdesk-backend/internal/core/domain"
	"github.com/ticketroute/helpdesk-backend/internal/core/ports"
)

type AuthHandler struct {
	authService  ports.AuthService
	tokenManager *auth.TokenManager
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

func NewAuthHandler(authService ports.AuthService, tokenManager *auth.TokenManager, errorHandler *ErrorHandler, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		tokenManager: tokenManager,
		errorHandler: errorHandler,
		logger:       logger,
	}
}

func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/login", h.Login)
	r.Post("/register", h.Register)
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (req *LoginRequest) Validate() error {
	v := validation.NewValidator()
	v.Required("email", req.Email).
		Email("email", req.Email).
		Required("password", req.Password)
	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

type LoginResponse struct {
	Token string  `json:"token"`
	User  UserDTO `json:"user"`
}

type UserDTO struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

func toUserDTO(u *domain.User) UserDTO {
	return UserDTO{
		ID:       u.ID.String(),
		FullName: u.FullName,
		Email:    u.Email,
		Role:     string(u.Role),
	}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	req, err := validation.DecodeAndValidate[LoginRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	user, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	token, err := h.tokenManager.GenerateToken(user.ID, user.Role)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "user logged in", "user_id", user.ID, "role", user.Role)
	WriteJSON(w, http.StatusOK, LoginResponse{Token: token, User: toUserDTO(user)})
}

type RegisterRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (req *RegisterRequest) Validate() error {
	v := validation.NewValidator()
	v.Required("fullName", req.FullName).
		Required("email", req.Email).
		Email("email", req.Email).
		Required("password", req.Password).
		OneOf("role", req.Role, []string{
			string(domain.RoleRequester), string(domain.RoleDispatcher), string(domain.RoleTechnician),
		})
	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	req, err := validation.DecodeAndValidate[RegisterRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	user, err := h.authService.Register(r.Context(), req.FullName, req.Email, req.Password, domain.Role(req.Role))
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "user registered", "user_id", user.ID, "role", user.Role)
	WriteCreated(w, toUserDTO(user))
}
