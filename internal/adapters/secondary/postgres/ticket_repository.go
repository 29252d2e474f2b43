package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ticketroute/helpdesk-backend/internal/core/domain"
	apperrors "github.com/ticketroute/helpdesk-backend/internal/core/errors"
	"github.com/ticketroute/helpdesk-backend/internal/core/ports"
)

type TicketRepository struct {
	pool *pgxpool.Pool
}

var _ ports.TicketRepository = (*TicketRepository)(nil)

func NewTicketRepository(pool *pgxpool.Pool) *TicketRepository {
	return &TicketRepository{pool: pool}
}

const ticketColumns = `id, number, title, description, category, priority, status,
	creator_id, technician_id, version, created_at, updated_at,
	assigned_at, resolved_at, closed_at, auto_closed_at`

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var t domain.Ticket
	err := row.Scan(
		&t.ID, &t.Number, &t.Title, &t.Description, &t.Category, &t.Priority, &t.Status,
		&t.CreatorID, &t.TechnicianID, &t.Version, &t.CreatedAt, &t.UpdatedAt,
		&t.AssignedAt, &t.ResolvedAt, &t.ClosedAt, &t.AutoClosedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TicketRepository) Create(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	db := GetDBTX(ctx, r.pool)
	query := `
		INSERT INTO tickets (id, title, description, category, priority, status,
			creator_id, technician_id, version, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + ticketColumns
	created, err := scanTicket(db.QueryRow(ctx, query,
		ticket.ID, ticket.Title, ticket.Description, ticket.Category, ticket.Priority,
		ticket.Status, ticket.CreatorID, ticket.TechnicianID, ticket.Version, ticket.CreatedAt,
	))
	if err != nil {
		return nil, fmt.Errorf("insert ticket: %w", err)
	}
	return created, nil
}

func (r *TicketRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Ticket, error) {
	db := GetDBTX(ctx, r.pool)
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id = $1`
	ticket, err := scanTicket(db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrTicketNotFound
		}
		return nil, fmt.Errorf("get ticket: %w", err)
	}
	return ticket, nil
}

func (r *TicketRepository) List(ctx context.Context, filter ports.TicketFilter) ([]*domain.Ticket, int64, error) {
	db := GetDBTX(ctx, r.pool)

	where := " WHERE 1=1"
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.Status != nil {
		where += " AND status = " + arg(*filter.Status)
	}
	if filter.Priority != nil {
		where += " AND priority = " + arg(*filter.Priority)
	}
	if filter.CreatorID != nil {
		where += " AND creator_id = " + arg(*filter.CreatorID)
	}
	if filter.TechnicianID != nil {
		where += " AND technician_id = " + arg(*filter.TechnicianID)
	}

	var total int64
	if err := db.QueryRow(ctx, "SELECT COUNT(*) FROM tickets"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count tickets: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + ticketColumns + ` FROM tickets` + where +
		` ORDER BY created_at DESC LIMIT ` + arg(limit) + ` OFFSET ` + arg(filter.Offset)

	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list tickets: %w", err)
	}
	defer rows.Close()

	var tickets []*domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan ticket: %w", err)
		}
		tickets = append(tickets, ticket)
	}
	return tickets, total, rows.Err()
}

// UpdateVersioned is the optimistic concurrency write. The WHERE clause
// matches the version read at the start of the transition; if another
// transaction committed in between, zero rows match and the caller gets
// ErrStaleState.
func (r *TicketRepository) UpdateVersioned(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	db := GetDBTX(ctx, r.pool)
	query := `
		UPDATE tickets
		SET title = $2, description = $3, category = $4, priority = $5, status = $6,
			technician_id = $7, updated_at = $8, assigned_at = $9, resolved_at = $10,
			closed_at = $11, auto_closed_at = $12, version = version + 1
		WHERE id = $1 AND version = $13
		RETURNING ` + ticketColumns
	updated, err := scanTicket(db.QueryRow(ctx, query,
		ticket.ID, ticket.Title, ticket.Description, ticket.Category, ticket.Priority,
		ticket.Status, ticket.TechnicianID, ticket.UpdatedAt, ticket.AssignedAt,
		ticket.ResolvedAt, ticket.ClosedAt, ticket.AutoClosedAt, ticket.Version,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Distinguish a deleted ticket from a lost version race.
			var exists bool
			if checkErr := db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM tickets WHERE id = $1)`, ticket.ID).Scan(&exists); checkErr != nil {
				return nil, fmt.Errorf("check ticket existence: %w", checkErr)
			}
			if !exists {
				return nil, apperrors.ErrTicketNotFound
			}
			return nil, apperrors.ErrStaleState
		}
		return nil, fmt.Errorf("update ticket: %w", err)
	}
	return updated, nil
}

func (r *TicketRepository) ListEscalatable(ctx context.Context, priority domain.TicketPriority, cutoff time.Time) ([]*domain.Ticket, error) {
	db := GetDBTX(ctx, r.pool)
	query := `
		SELECT ` + ticketColumns + `
		FROM tickets
		WHERE priority = $1
		  AND status IN ('EN_ATTENTE_ANALYSE', 'ASSIGNE_TECHNICIEN', 'EN_COURS')
		  AND created_at <= $2
		ORDER BY created_at`
	return r.queryTickets(ctx, db, query, priority, cutoff)
}

func (r *TicketRepository) ListResolvedBefore(ctx context.Context, cutoff time.Time) ([]*domain.Ticket, error) {
	db := GetDBTX(ctx, r.pool)
	query := `
		SELECT ` + ticketColumns + `
		FROM tickets
		WHERE status = 'RESOLU' AND resolved_at <= $1
		ORDER BY resolved_at`
	return r.queryTickets(ctx, db, query, cutoff)
}

func (r *TicketRepository) queryTickets(ctx context.Context, db DBTX, query string, args ...any) ([]*domain.Ticket, error) {
	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tickets: %w", err)
	}
	defer rows.Close()

	var tickets []*domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		tickets = append(tickets, ticket)
	}
	return tickets, rows.Err()
}
