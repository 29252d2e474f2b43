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

// HistoryRepository persists the append-only transition ledger. Rows
// are never updated or deleted.
type HistoryRepository struct {
	pool *pgxpool.Pool
}

var _ ports.HistoryRepository = (*HistoryRepository)(nil)

func NewHistoryRepository(pool *pgxpool.Pool) *HistoryRepository {
	return &HistoryRepository{pool: pool}
}

func (r *HistoryRepository) Append(ctx context.Context, entry *domain.HistoryEntry) error {
	db := GetDBTX(ctx, r.pool)
	query := `
		INSERT INTO ticket_history (id, ticket_id, action, old_status, new_status, actor_id, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	var actorID *uuid.UUID
	if entry.ActorID != uuid.Nil {
		actorID = &entry.ActorID
	}
	_, err := db.Exec(ctx, query,
		entry.ID, entry.TicketID, entry.Action, entry.OldStatus, entry.NewStatus,
		actorID, entry.Reason, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append history entry: %w", err)
	}
	return nil
}

func (r *HistoryRepository) ListByTicket(ctx context.Context, ticketID uuid.UUID) ([]*domain.HistoryEntry, error) {
	db := GetDBTX(ctx, r.pool)
	query := `
		SELECT id, ticket_id, action, old_status, new_status, actor_id, reason, created_at
		FROM ticket_history
		WHERE ticket_id = $1
		ORDER BY created_at, id`
	rows, err := db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var entries []*domain.HistoryEntry
	for rows.Next() {
		var (
			e       domain.HistoryEntry
			actorID *uuid.UUID
		)
		err := rows.Scan(&e.ID, &e.TicketID, &e.Action, &e.OldStatus, &e.NewStatus, &actorID, &e.Reason, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		if actorID != nil {
			e.ActorID = *actorID
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

func (r *HistoryRepository) LatestRejectionReason(ctx context.Context, ticketID uuid.UUID) (string, error) {
	db := GetDBTX(ctx, r.pool)
	query := `
		SELECT reason
		FROM ticket_history
		WHERE ticket_id = $1 AND new_status = 'REJETE'
		ORDER BY created_at DESC, id DESC
		LIMIT 1`
	var reason string
	if err := db.QueryRow(ctx, query, ticketID).Scan(&reason); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperrors.ErrNotFound
		}
		return "", fmt.Errorf("latest rejection reason: %w", err)
	}
	return reason, nil
}

func (r *HistoryRepository) WasResumed(ctx context.Context, ticketID uuid.UUID) (bool, error) {
	db := GetDBTX(ctx, r.pool)
	query := `
		SELECT EXISTS(
			SELECT 1 FROM ticket_history
			WHERE ticket_id = $1 AND old_status = 'REJETE' AND new_status = 'EN_COURS'
		)`
	var resumed bool
	if err := db.QueryRow(ctx, query, ticketID).Scan(&resumed); err != nil {
		return false, fmt.Errorf("was resumed: %w", err)
	}
	return resumed, nil
}
