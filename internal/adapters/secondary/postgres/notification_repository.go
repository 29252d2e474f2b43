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

type NotificationRepository struct {
	pool *pgxpool.Pool
}

var _ ports.NotificationRepository = (*NotificationRepository)(nil)

func NewNotificationRepository(pool *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{pool: pool}
}

func (r *NotificationRepository) CreateBatch(ctx context.Context, notifications []*domain.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	db := GetDBTX(ctx, r.pool)
	query := `
		INSERT INTO notifications (id, recipient_id, ticket_id, ticket_number, type, message, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	for _, n := range notifications {
		_, err := db.Exec(ctx, query,
			n.ID, n.RecipientID, n.TicketID, n.TicketNumber, n.Type, n.Message, n.Read, n.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert notification: %w", err)
		}
	}
	return nil
}

func (r *NotificationRepository) ListByRecipient(ctx context.Context, recipientID uuid.UUID, onlyUnread bool, limit, offset int) ([]*domain.Notification, error) {
	db := GetDBTX(ctx, r.pool)
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, recipient_id, ticket_id, ticket_number, type, message, read, read_at, created_at
		FROM notifications
		WHERE recipient_id = $1 AND ($2 = false OR read = false)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`
	rows, err := db.Query(ctx, query, recipientID, onlyUnread, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*domain.Notification
	for rows.Next() {
		var n domain.Notification
		err := rows.Scan(&n.ID, &n.RecipientID, &n.TicketID, &n.TicketNumber, &n.Type, &n.Message, &n.Read, &n.ReadAt, &n.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, &n)
	}
	return notifications, rows.Err()
}

func (r *NotificationRepository) CountUnread(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	db := GetDBTX(ctx, r.pool)
	var count int64
	err := db.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE recipient_id = $1 AND read = false`,
		recipientID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

func (r *NotificationRepository) ListSentTypes(ctx context.Context, ticketID, recipientID uuid.UUID, types []domain.NotificationType) ([]domain.NotificationType, error) {
	db := GetDBTX(ctx, r.pool)
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	query := `
		SELECT DISTINCT type
		FROM notifications
		WHERE ticket_id = $1 AND recipient_id = $2 AND type = ANY($3)`
	rows, err := db.Query(ctx, query, ticketID, recipientID, names)
	if err != nil {
		return nil, fmt.Errorf("list sent notification types: %w", err)
	}
	defer rows.Close()

	var sent []domain.NotificationType
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan notification type: %w", err)
		}
		sent = append(sent, domain.NotificationType(t))
	}
	return sent, rows.Err()
}

// MarkRead is idempotent: re-marking a read notification succeeds and
// keeps the original read_at.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, recipientID uuid.UUID) (*domain.Notification, error) {
	db := GetDBTX(ctx, r.pool)
	query := `
		UPDATE notifications
		SET read = true, read_at = COALESCE(read_at, now())
		WHERE id = $1 AND recipient_id = $2
		RETURNING id, recipient_id, ticket_id, ticket_number, type, message, read, read_at, created_at`
	var n domain.Notification
	err := db.QueryRow(ctx, query, id, recipientID).
		Scan(&n.ID, &n.RecipientID, &n.TicketID, &n.TicketNumber, &n.Type, &n.Message, &n.Read, &n.ReadAt, &n.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotificationNotFound
		}
		return nil, fmt.Errorf("mark notification read: %w", err)
	}
	return &n, nil
}
