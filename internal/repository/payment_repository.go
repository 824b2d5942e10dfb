package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/civicfix/civicfix-server/internal/domain"
)

const paymentColumns = `id, session_id, type, issue_id, user_email, amount, currency, created_at`

type paymentRepository struct {
	db dbtx
}

func (r *paymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	const query = `
        INSERT INTO payments (id, session_id, type, issue_id, user_email, amount, currency, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	_, err := r.db.Exec(ctx, query,
		payment.ID,
		payment.SessionID,
		payment.Type,
		payment.IssueID,
		payment.UserEmail,
		payment.Amount,
		payment.Currency,
		payment.CreatedAt,
	)
	return mapPgError(err)
}

func (r *paymentRepository) GetBySessionID(ctx context.Context, sessionID string) (*domain.Payment, error) {
	payment, err := scanPayment(r.db.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE session_id=$1`, sessionID))
	if err != nil {
		return nil, mapPgError(err)
	}
	return payment, nil
}

func (r *paymentRepository) List(ctx context.Context, filter PaymentFilter) ([]domain.Payment, error) {
	limit, offset := normalizePage(filter.Limit, filter.Offset)
	where, args := "1=1", []any{}
	if filter.UserEmail != nil {
		args = append(args, *filter.UserEmail)
		where = "LOWER(user_email)=LOWER($1)"
	}
	query := fmt.Sprintf(`SELECT %s FROM payments WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		paymentColumns, where, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Payment{}
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *payment)
	}
	return result, rows.Err()
}

func (r *paymentRepository) Summary(ctx context.Context) (PaymentSummary, error) {
	var summary PaymentSummary
	err := r.db.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(amount), 0) FROM payments`).Scan(&summary.Count, &summary.Revenue)
	return summary, err
}

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var payment domain.Payment
	if err := row.Scan(
		&payment.ID,
		&payment.SessionID,
		&payment.Type,
		&payment.IssueID,
		&payment.UserEmail,
		&payment.Amount,
		&payment.Currency,
		&payment.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &payment, nil
}
