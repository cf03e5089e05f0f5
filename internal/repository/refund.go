package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rookgm/marinapay/internal/models"
	"github.com/rookgm/marinapay/internal/repository/postgres"
)

const (
	insertRefundQuery = `
						INSERT INTO order_refunds (id, order_id, refund_id, status, amount)
						VALUES ($1, $2, $3, $4, $5)
						RETURNING created_at
`
	selectRefundByProviderIDQuery = `
						SELECT id, order_id, refund_id, status, amount, created_at
						FROM order_refunds
						WHERE refund_id = $1
`
	selectRefundsByOrderQuery = `
						SELECT id, order_id, refund_id, status, amount, created_at
						FROM order_refunds
						WHERE order_id = $1
						ORDER BY created_at
`
	updateRefundStatusQuery = `UPDATE order_refunds SET status = $1 WHERE id = $2`

	insertRefundLogEntryQuery = `
						INSERT INTO order_refund_log_entries (id, refund_id, from_status, to_status, comment)
						VALUES ($1, $2, $3, $4, $5)
`
)

// RefundRepository stores refunds and their audit trail.
type RefundRepository struct {
	db *postgres.DB
}

// NewRefundRepository creates new RefundRepository instance
func NewRefundRepository(db *postgres.DB) *RefundRepository {
	return &RefundRepository{db: db}
}

// CreateRefund inserts new refund to database
func (rr *RefundRepository) CreateRefund(ctx context.Context, refund *models.OrderRefund) error {
	if refund.ID == uuid.Nil {
		refund.ID = uuid.New()
	}
	err := rr.db.QueryRow(ctx, insertRefundQuery,
		refund.ID, refund.OrderID, refund.RefundID, refund.Status, refund.Amount,
	).Scan(&refund.CreatedAt)
	if err != nil {
		if errCode := rr.db.ErrorCode(err); errCode == pgErrUniqueViolationCode {
			return models.ErrConflictData
		}
		return err
	}
	return nil
}

// GetRefundByProviderID returns the refund keyed by the provider refund id.
func (rr *RefundRepository) GetRefundByProviderID(ctx context.Context, refundID string) (*models.OrderRefund, error) {
	refund := models.OrderRefund{}
	err := rr.db.QueryRow(ctx, selectRefundByProviderIDQuery, refundID).Scan(
		&refund.ID, &refund.OrderID, &refund.RefundID, &refund.Status, &refund.Amount, &refund.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrDataNotFound
		}
		return nil, err
	}
	return &refund, nil
}

// ListRefundsByOrder returns the refunds of an order, oldest first.
func (rr *RefundRepository) ListRefundsByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderRefund, error) {
	rows, err := rr.db.Query(ctx, selectRefundsByOrderQuery, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	refunds := []models.OrderRefund{}

	for rows.Next() {
		refund := models.OrderRefund{}
		err := rows.Scan(&refund.ID, &refund.OrderID, &refund.RefundID,
			&refund.Status, &refund.Amount, &refund.CreatedAt)
		if err != nil {
			return nil, err
		}
		refunds = append(refunds, refund)
	}

	return refunds, rows.Err()
}

// UpdateRefundStatus persists a new refund status.
func (rr *RefundRepository) UpdateRefundStatus(ctx context.Context, id uuid.UUID, status models.OrderRefundStatus) error {
	cmd, err := rr.db.Exec(ctx, updateRefundStatusQuery, status, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return models.ErrDataNotFound
	}
	return nil
}

// CreateRefundLogEntry appends a row to the refund audit trail.
func (rr *RefundRepository) CreateRefundLogEntry(ctx context.Context, entry *models.OrderRefundLogEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	_, err := rr.db.Exec(ctx, insertRefundLogEntryQuery,
		entry.ID, entry.RefundID, entry.FromStatus, entry.ToStatus, entry.Comment)
	return err
}
