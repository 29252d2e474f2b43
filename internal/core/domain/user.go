package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/ticketroute/helpdesk-backend/internal/core/errors"
)

// Role determines which ticket actions a user may perform.
type Role string

const (
	RoleRequester  Role = "UTILISATEUR" // creates tickets, validates resolutions
	RoleDispatcher Role = "DSI"         // triages, assigns, escalates, closes
	RoleTechnician Role = "TECHNICIEN"  // works assigned tickets
)

func (r Role) IsValid() bool {
	return r == RoleRequester || r == RoleDispatcher || r == RoleTechnician
}

type User struct {
	ID             uuid.UUID
	FullName       string
	Email          string
	PasswordHash   string
	Role           Role
	Specialization string // free-form, only meaningful for technicians
	IsActive       bool
	CreatedAt      time.Time
}

// TechnicianWorkload pairs a technician with their current open ticket
// counts, for the dispatch assignment screen.
type TechnicianWorkload struct {
	User            User
	AssignedCount   int64 // status ASSIGNE_TECHNICIEN
	InProgressCount int64 // status EN_COURS
}

// OpenCount is the load figure shown to dispatchers.
func (w TechnicianWorkload) OpenCount() int64 {
	return w.AssignedCount + w.InProgressCount
}

func NewUser(fullName, email, password string, role Role) (*User, error) {
	fullName = strings.TrimSpace(fullName)
	email = strings.ToLower(strings.TrimSpace(email))
	if fullName == "" || email == "" {
		return nil, apperrors.ErrBadRequest
	}
	if !role.IsValid() {
		return nil, apperrors.ErrBadRequest
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return &User{
		ID:           uuid.New(),
		FullName:     fullName,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// CheckPassword compares the given plaintext password with the stored
// bcrypt hash.
func (u *User) CheckPassword(password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return apperrors.ErrInvalidCredentials
	}
	return nil
}
