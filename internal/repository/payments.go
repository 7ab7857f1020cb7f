package repository

import (
	"context"
	"time"

	"github.com/sysu-ecnc-dev/publication-portal/backend/internal/domain"
)

// 支付记录由外部的支付流程写入，本系统对 payments 表只有只读访问

func (r *Repository) GetRevenueSummary() (*domain.RevenueSummary, error) {
	query := `
		SELECT
			COALESCE(SUM(amount), 0),
			COALESCE(SUM(amount) FILTER (WHERE status = 'completed'), 0),
			COALESCE(SUM(amount) FILTER (WHERE status = 'pending'), 0),
			COUNT(*)
		FROM payments
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	summary := &domain.RevenueSummary{}

	dst := []any{&summary.TotalAmount, &summary.CompletedAmount, &summary.PendingAmount, &summary.PaymentCount}
	if err := r.dbpool.QueryRowContext(ctx, query).Scan(dst...); err != nil {
		return nil, err
	}

	return summary, nil
}

// InsertPayment 仅供 seed 使用，模拟外部支付流程的写入
func (r *Repository) InsertPayment(payment *domain.Payment) error {
	query := `
		INSERT INTO payments (submission_id, amount, status, reference)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	args := []any{payment.SubmissionID, payment.Amount, payment.Status, payment.Reference}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&payment.ID, &payment.CreatedAt); err != nil {
		return err
	}

	return nil
}

func (r *Repository) ListRecentPayments(limit int) ([]*domain.Payment, error) {
	query := `
		SELECT id, submission_id, amount, status, reference, created_at
		FROM payments
		ORDER BY created_at DESC
		LIMIT $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := make([]*domain.Payment, 0)
	for rows.Next() {
		payment := &domain.Payment{}
		dst := []any{&payment.ID, &payment.SubmissionID, &payment.Amount, &payment.Status, &payment.Reference, &payment.CreatedAt}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return payments, nil
}
