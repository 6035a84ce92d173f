package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"siwarga/internal/notification"
	"siwarga/internal/platform/postgres"
	id "siwarga/pkg/domain"
	"siwarga/pkg/platform/sentinel"
	"siwarga/pkg/platform/tx"
)

// PostgresStore persists notifications in the notifications table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const notificationColumns = `id, user_id, type, title, message, is_read, read_at, priority,
	source_kind, source_id, payload, created_at, scheduled_for, expires_at`

// visibleClause filters by owner ($1), visibility at $2 and the include-expired flag $3.
const visibleClause = `user_id = $1
	AND (scheduled_for IS NULL OR scheduled_for <= $2)
	AND ($3 OR expires_at IS NULL OR expires_at > $2)`

func (s *PostgresStore) Create(ctx context.Context, n *notification.Notification) error {
	payload, err := json.Marshal(n.Payload)
	if err != nil {
		return fmt.Errorf("encode notification payload: %w", err)
	}
	query := `INSERT INTO notifications (` + notificationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err = tx.Executor(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(n.ID), uuid.UUID(n.UserID), string(n.Type), n.Title, n.Message, n.IsRead, nullTime(n.ReadAt),
		string(n.Priority), n.Source.Kind, n.Source.ID, payload, n.CreatedAt,
		nullTime(n.ScheduledFor), nullTime(n.ExpiresAt))
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return fmt.Errorf("create notification: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, userID id.UserID, q Query) ([]*notification.Notification, int, error) {
	var (
		isRead sql.NullBool
		kind   sql.NullString
	)
	if q.IsRead != nil {
		isRead = sql.NullBool{Bool: *q.IsRead, Valid: true}
	}
	if q.Type != nil {
		kind = sql.NullString{String: string(*q.Type), Valid: true}
	}
	where := visibleClause + `
		AND ($4::boolean IS NULL OR is_read = $4)
		AND ($5::text IS NULL OR type = $5)`
	args := []any{uuid.UUID(userID), q.Now, q.IncludeExpired, isRead, kind}

	exec := tx.Executor(ctx, s.db)
	var total int
	if err := exec.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}

	limit := sql.NullInt64{Int64: int64(q.Limit), Valid: q.Limit > 0}
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE ` + where + `
		ORDER BY created_at DESC, id DESC
		LIMIT $6 OFFSET $7`
	rows, err := exec.QueryContext(ctx, query, append(args, limit, max(0, q.Offset))...)
	if err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []*notification.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}
	return out, total, nil
}

func (s *PostgresStore) CountUnread(ctx context.Context, userID id.UserID, now time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM notifications WHERE ` + visibleClause + ` AND NOT is_read`
	var count int
	if err := tx.Executor(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(userID), now, false).Scan(&count); err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) MarkRead(ctx context.Context, userID id.UserID, notificationID id.NotificationID, now time.Time) error {
	query := `UPDATE notifications SET is_read = TRUE, read_at = COALESCE(read_at, $3)
		WHERE id = $1 AND user_id = $2`
	res, err := tx.Executor(ctx, s.db).ExecContext(ctx, query, uuid.UUID(notificationID), uuid.UUID(userID), now)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return requireAffected(res, "mark notification read")
}

func (s *PostgresStore) MarkAllRead(ctx context.Context, userID id.UserID, now time.Time) (int, error) {
	query := `UPDATE notifications SET is_read = TRUE, read_at = $2 WHERE user_id = $1 AND NOT is_read`
	res, err := tx.Executor(ctx, s.db).ExecContext(ctx, query, uuid.UUID(userID), now)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	return int(n), nil
}

func (s *PostgresStore) Delete(ctx context.Context, userID id.UserID, notificationID id.NotificationID) error {
	res, err := tx.Executor(ctx, s.db).ExecContext(ctx,
		`DELETE FROM notifications WHERE id = $1 AND user_id = $2`, uuid.UUID(notificationID), uuid.UUID(userID))
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	return requireAffected(res, "delete notification")
}

func (s *PostgresStore) DeleteAllRead(ctx context.Context, userID id.UserID) (int, error) {
	res, err := tx.Executor(ctx, s.db).ExecContext(ctx,
		`DELETE FROM notifications WHERE user_id = $1 AND is_read`, uuid.UUID(userID))
	if err != nil {
		return 0, fmt.Errorf("delete read notifications: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete read notifications: %w", err)
	}
	return int(n), nil
}

func requireAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, sentinel.ErrNotFound)
	}
	return nil
}

func scanNotification(rows *sql.Rows) (*notification.Notification, error) {
	var (
		n            notification.Notification
		rawID        uuid.UUID
		rawUser      uuid.UUID
		kind         string
		priority     string
		payload      []byte
		readAt       sql.NullTime
		scheduledFor sql.NullTime
		expiresAt    sql.NullTime
	)
	err := rows.Scan(&rawID, &rawUser, &kind, &n.Title, &n.Message, &n.IsRead, &readAt, &priority,
		&n.Source.Kind, &n.Source.ID, &payload, &n.CreatedAt, &scheduledFor, &expiresAt)
	if err != nil {
		return nil, err
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &n.Payload); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
	}
	n.ID = id.NotificationID(rawID)
	n.UserID = id.UserID(rawUser)
	n.Type = notification.Type(kind)
	n.Priority = notification.Priority(priority)
	n.ReadAt = timePtr(readAt)
	n.ScheduledFor = timePtr(scheduledFor)
	n.ExpiresAt = timePtr(expiresAt)
	return &n, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
