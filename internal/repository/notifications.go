package repository

import (
	"context"
	"time"

	"github.com/sysu-ecnc-dev/publication-portal/backend/internal/domain"
)

// InsertNotification 写入一条通知记录。
// event_id 上有唯一约束，重复投递同一个事件时第二次插入会被忽略（inserted 返回 false），
// 这是消息队列 at-least-once 语义下的去重手段
func (r *Repository) InsertNotification(notification *domain.Notification) (bool, error) {
	query := `
		INSERT INTO notifications (event_id, recipient_id, type, title, message, submission_id, delivery_status, attempts, last_error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (event_id) DO NOTHING
		RETURNING id, created_at
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	args := []any{
		notification.EventID,
		notification.RecipientID,
		notification.Type,
		notification.Title,
		notification.Message,
		notification.SubmissionID,
		notification.DeliveryStatus,
		notification.Attempts,
		notification.LastError,
	}

	rows, err := r.dbpool.QueryContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	defer rows.Close()

	if !rows.Next() {
		// 冲突未插入，说明这个事件已经有通知记录了
		return false, rows.Err()
	}

	if err := rows.Scan(&notification.ID, &notification.CreatedAt); err != nil {
		return false, err
	}

	return true, rows.Err()
}

func (r *Repository) GetNotificationByEventID(eventID string) (*domain.Notification, error) {
	query := `
		SELECT id, recipient_id, type, title, message, submission_id, read, delivery_status, attempts, last_error, created_at
		FROM notifications WHERE event_id = $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	notification := &domain.Notification{
		EventID: eventID,
	}

	dst := []any{&notification.ID, &notification.RecipientID, &notification.Type, &notification.Title, &notification.Message, &notification.SubmissionID, &notification.Read, &notification.DeliveryStatus, &notification.Attempts, &notification.LastError, &notification.CreatedAt}
	if err := r.dbpool.QueryRowContext(ctx, query, eventID).Scan(dst...); err != nil {
		return nil, err
	}

	return notification, nil
}

// UpdateNotificationDelivery 由 notifier worker 在每次投递尝试之后调用
func (r *Repository) UpdateNotificationDelivery(eventID string, status domain.DeliveryStatus, attempts int32, lastError string) error {
	query := `
		UPDATE notifications
		SET delivery_status = $1, attempts = $2, last_error = $3
		WHERE event_id = $4
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	_, err := r.dbpool.ExecContext(ctx, query, status, attempts, lastError, eventID)
	return err
}

func (r *Repository) ListNotificationsByRecipient(recipientID string) ([]*domain.Notification, error) {
	query := `
		SELECT id, event_id, type, title, message, submission_id, read, delivery_status, attempts, last_error, created_at
		FROM notifications
		WHERE recipient_id = $1
		ORDER BY created_at DESC
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, recipientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notifications := make([]*domain.Notification, 0)
	for rows.Next() {
		n := &domain.Notification{
			RecipientID: recipientID,
		}
		dst := []any{&n.ID, &n.EventID, &n.Type, &n.Title, &n.Message, &n.SubmissionID, &n.Read, &n.DeliveryStatus, &n.Attempts, &n.LastError, &n.CreatedAt}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return notifications, nil
}

// ListFailedNotifications 是投递失败通知的运维队列，按失败时间从旧到新排列
func (r *Repository) ListFailedNotifications() ([]*domain.Notification, error) {
	query := `
		SELECT id, event_id, type, title, message, submission_id, read, delivery_status, attempts, last_error, created_at, recipient_id
		FROM notifications
		WHERE delivery_status = $1
		ORDER BY created_at ASC
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, domain.DeliveryStatusFailed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notifications := make([]*domain.Notification, 0)
	for rows.Next() {
		n := &domain.Notification{}
		dst := []any{&n.ID, &n.EventID, &n.Type, &n.Title, &n.Message, &n.SubmissionID, &n.Read, &n.DeliveryStatus, &n.Attempts, &n.LastError, &n.CreatedAt, &n.RecipientID}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return notifications, nil
}

// MarkNotificationRead 只允许收件人本人标记已读，通知的其余内容不可变
func (r *Repository) MarkNotificationRead(id int64, recipientID string) error {
	query := `
		UPDATE notifications
		SET read = TRUE
		WHERE id = $1 AND recipient_id = $2
		RETURNING id
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	var updatedID int64
	if err := r.dbpool.QueryRowContext(ctx, query, id, recipientID).Scan(&updatedID); err != nil {
		return err
	}

	return nil
}
