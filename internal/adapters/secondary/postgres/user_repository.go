package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ticketroute/helpdesk-backend/internal/core/domain"
	apperrors "github.com/ticketroute/helpdesk-backend/internal/core/errors"
	"github.com/ticketroute/helpdesk-backend/internal/core/ports"
)

type UserRepository struct {
	pool *pgxpool.Pool
}

var _ ports.UserRepository = (*UserRepository)(nil)

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

const userColumns = `id, full_name, email, password_hash, role, specialization, is_active, created_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.FullName, &u.Email, &u.PasswordHash, &u.Role, &u.Specialization, &u.IsActive, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	db := GetDBTX(ctx, r.pool)
	query := `
		INSERT INTO users (id, full_name, email, password_hash, role, specialization, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := db.Exec(ctx, query,
		user.ID, user.FullName, user.Email, user.PasswordHash, user.Role,
		user.Specialization, user.IsActive, user.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	db := GetDBTX(ctx, r.pool)
	user, err := scanUser(db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	db := GetDBTX(ctx, r.pool)
	user, err := scanUser(db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return user, nil
}

func (r *UserRepository) ListActiveByRole(ctx context.Context, role domain.Role) ([]*domain.User, error) {
	db := GetDBTX(ctx, r.pool)
	query := `SELECT ` + userColumns + ` FROM users WHERE role = $1 AND is_active = true ORDER BY full_name`
	rows, err := db.Query(ctx, query, role)
	if err != nil {
		return nil, fmt.Errorf("list users by role: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (r *UserRepository) ListTechnicianWorkloads(ctx context.Context) ([]*domain.TechnicianWorkload, error) {
	db := GetDBTX(ctx, r.pool)
	query := `
		SELECT u.id, u.full_name, u.email, u.password_hash, u.role, u.specialization, u.is_active, u.created_at,
			COUNT(t.id) FILTER (WHERE t.status = 'ASSIGNE_TECHNICIEN') AS assigned_count,
			COUNT(t.id) FILTER (WHERE t.status = 'EN_COURS') AS in_progress_count
		FROM users u
		LEFT JOIN tickets t ON t.technician_id = u.id
		WHERE u.role = 'TECHNICIEN' AND u.is_active = true
		GROUP BY u.id, u.full_name, u.email, u.password_hash, u.role, u.specialization, u.is_active, u.created_at
		ORDER BY u.full_name`
	rows, err := db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list technician workloads: %w", err)
	}
	defer rows.Close()

	var workloads []*domain.TechnicianWorkload
	for rows.Next() {
		var w domain.TechnicianWorkload
		err := rows.Scan(
			&w.User.ID, &w.User.FullName, &w.User.Email, &w.User.PasswordHash,
			&w.User.Role, &w.User.Specialization, &w.User.IsActive, &w.User.CreatedAt,
			&w.AssignedCount, &w.InProgressCount,
		)
		if err != nil {
			return nil, fmt.Errorf("scan technician workload: %w", err)
		}
		workloads = append(workloads, &w)
	}
	return workloads, rows.Err()
}
