package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rookgm/marinapay/internal/models"
	"github.com/rookgm/marinapay/internal/repository/postgres"
)

const (
	insertOrderQuery = `
						INSERT INTO orders (id, order_number, customer_id, order_type, status,
							product_kind, product_id, lease_kind, lease_id,
							price, tax_percentage, due_date, comment,
							customer_first_name, customer_last_name, customer_email,
							customer_phone, customer_address, customer_zip_code, customer_city,
							talpa_ecom_id)
						VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
							$14, $15, $16, $17, $18, $19, $20, $21)
						RETURNING created_at
`
	selectOrderByIDQuery     = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	selectOrderByNumberQuery = `SELECT ` + orderColumns + ` FROM orders WHERE order_number = $1`
	selectOrderByTalpaQuery  = `SELECT ` + orderColumns + ` FROM orders WHERE talpa_ecom_id = $1`

	selectWaitingPastDueQuery = `
						SELECT ` + orderColumns + ` FROM orders
						WHERE status IN ('offered', 'waiting') AND due_date < $1
`
	selectFailedLeaseOrdersQuery = `
						SELECT ` + orderColumns + ` FROM orders
						WHERE status = 'error'
							AND order_type = 'lease_order'
							AND lease_kind = $1
							AND lease_id IN (
								SELECT id FROM leases WHERE kind = $1 AND date_part('year', start_date) = $2
							)
						ORDER BY created_at
`
	selectLatestPaidLeaseOrderQuery = `
						SELECT ` + orderColumns + ` FROM orders
						WHERE lease_id = $1
							AND order_type = 'lease_order'
							AND status IN ('paid', 'paid_man')
						ORDER BY created_at DESC
						LIMIT 1
`

	updateOrderStatusQuery   = `UPDATE orders SET status = $1 WHERE id = $2`
	updateOrderCommentQuery  = `UPDATE orders SET comment = $1 WHERE id = $2`
	updateOrderDueDateQuery  = `UPDATE orders SET due_date = $1 WHERE id = $2`
	updateOrderTalpaIDQuery  = `UPDATE orders SET talpa_ecom_id = $1 WHERE id = $2`
	updateOrderCustomerQuery = `
						UPDATE orders
						SET customer_first_name = $1, customer_last_name = $2,
							customer_email = $3, customer_phone = $4,
							customer_address = $5, customer_zip_code = $6, customer_city = $7
						WHERE id = $8
`
	updateOrderNotifiedQuery = `UPDATE orders SET payment_notification_sent = $1 WHERE id = $2`

	insertOrderLineQuery = `
						INSERT INTO order_lines (id, order_id, product_id, quantity, price, tax_percentage)
						VALUES ($1, $2, $3, $4, $5, $6)
						RETURNING created_at
`
	selectOrderLinesQuery = `
						SELECT l.id, l.order_id, l.product_id, l.quantity, l.price, l.tax_percentage, l.created_at,
							p.id, p.service, p.period, p.price_value, p.price_unit, p.tax_percentage, p.created_at
						FROM order_lines l
						JOIN additional_products p ON p.id = l.product_id
						WHERE l.order_id = $1
						ORDER BY l.created_at
`

	insertLogEntryQuery = `
						INSERT INTO order_log_entries (id, order_id, from_status, to_status, comment)
						VALUES ($1, $2, $3, $4, $5)
`
	selectLogEntriesQuery = `
						SELECT id, order_id, from_status, to_status, comment, created_at
						FROM order_log_entries
						WHERE order_id = $1
						ORDER BY created_at
`

	insertTokenQuery = `
						INSERT INTO order_tokens (id, order_id, token, valid_until)
						VALUES ($1, $2, $3, $4)
`
	selectValidTokenQuery = `
						SELECT id, order_id, token, valid_until, cancelled, created_at
						FROM order_tokens
						WHERE order_id = $1 AND NOT cancelled AND token <> '' AND valid_until > $2
						ORDER BY created_at DESC
						LIMIT 1
`
	selectLatestTokenQuery = `
						SELECT id, order_id, token, valid_until, cancelled, created_at
						FROM order_tokens
						WHERE order_id = $1
						ORDER BY created_at DESC
						LIMIT 1
`
	invalidateTokensQuery = `UPDATE order_tokens SET cancelled = TRUE WHERE order_id = $1`
)

// OrderRepository stores orders, their lines, tokens and audit trail.
type OrderRepository struct {
	db *postgres.DB
}

// NewOrderRepository creates new OrderRepository instance
func NewOrderRepository(db *postgres.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// CreateOrder inserts new order to database
func (or *OrderRepository) CreateOrder(ctx context.Context, order *models.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if order.OrderNumber == "" {
		order.OrderNumber = models.GenerateOrderNumber()
	}

	err := or.db.QueryRow(ctx, insertOrderQuery,
		order.ID, order.OrderNumber, order.CustomerID, order.OrderType, order.Status,
		order.ProductKind, order.ProductID, order.LeaseKind, order.LeaseID,
		order.Price, order.TaxPercentage, order.DueDate, order.Comment,
		order.CustomerFirstName, order.CustomerLastName, order.CustomerEmail,
		order.CustomerPhone, order.CustomerAddress, order.CustomerZipCode, order.CustomerCity,
		order.TalpaEcomID,
	).Scan(&order.CreatedAt)
	if err != nil {
		if errCode := or.db.ErrorCode(err); errCode == pgErrUniqueViolationCode {
			return models.ErrConflictData
		}
		return err
	}

	return nil
}

func scanOrder(row pgx.Row) (*models.Order, error) {
	order := models.Order{}
	err := row.Scan(
		&order.ID, &order.OrderNumber, &order.CustomerID, &order.OrderType, &order.Status,
		&order.ProductKind, &order.ProductID, &order.LeaseKind, &order.LeaseID,
		&order.Price, &order.TaxPercentage, &order.DueDate, &order.Comment,
		&order.CustomerFirstName, &order.CustomerLastName, &order.CustomerEmail,
		&order.CustomerPhone, &order.CustomerAddress, &order.CustomerZipCode, &order.CustomerCity,
		&order.PaymentNotificationSent, &order.TalpaEcomID, &order.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrDataNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (or *OrderRepository) getOrder(ctx context.Context, query string, arg any) (*models.Order, error) {
	order, err := scanOrder(or.db.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, err
	}

	lines, err := or.GetOrderLines(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	order.Lines = lines

	return order, nil
}

// GetOrderByID returns the order with its lines.
func (or *OrderRepository) GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return or.getOrder(ctx, selectOrderByIDQuery, id)
}

// GetOrderByNumber returns the order with its lines.
func (or *OrderRepository) GetOrderByNumber(ctx context.Context, number string) (*models.Order, error) {
	return or.getOrder(ctx, selectOrderByNumberQuery, number)
}

// GetOrderByTalpaID returns the order correlated with a Talpa eCom order id.
func (or *OrderRepository) GetOrderByTalpaID(ctx context.Context, talpaID string) (*models.Order, error) {
	return or.getOrder(ctx, selectOrderByTalpaQuery, talpaID)
}

func (or *OrderRepository) listOrders(ctx context.Context, query string, args ...any) ([]models.Order, error) {
	rows, err := or.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := []models.Order{}

	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range orders {
		lines, err := or.GetOrderLines(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Lines = lines
	}

	return orders, nil
}

// ListWaitingPastDue returns unpaid orders whose due date has passed.
func (or *OrderRepository) ListWaitingPastDue(ctx context.Context, now time.Time) ([]models.Order, error) {
	return or.listOrders(ctx, selectWaitingPastDueQuery, now)
}

// ListFailedLeaseOrders returns errored lease orders of the given kind for
// the season starting in seasonYear.
func (or *OrderRepository) ListFailedLeaseOrders(ctx context.Context, kind models.LeaseKind, seasonYear int) ([]models.Order, error) {
	return or.listOrders(ctx, selectFailedLeaseOrdersQuery, kind, seasonYear)
}

// LatestPaidLeaseOrder returns the most recent settled lease order for the
// lease, used as the percentage-product base.
func (or *OrderRepository) LatestPaidLeaseOrder(ctx context.Context, leaseID uuid.UUID) (*models.Order, error) {
	return or.getOrder(ctx, selectLatestPaidLeaseOrderQuery, leaseID)
}

// UpdateOrderStatus persists a new order status.
func (or *OrderRepository) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) error {
	cmd, err := or.db.Exec(ctx, updateOrderStatusQuery, status, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return models.ErrDataNotFound
	}
	return nil
}

// UpdateOrderComment persists the order comment.
func (or *OrderRepository) UpdateOrderComment(ctx context.Context, id uuid.UUID, comment string) error {
	_, err := or.db.Exec(ctx, updateOrderCommentQuery, comment, id)
	return err
}

// UpdateOrderDueDate persists the order due date, nil clears it.
func (or *OrderRepository) UpdateOrderDueDate(ctx context.Context, id uuid.UUID, dueDate *time.Time) error {
	_, err := or.db.Exec(ctx, updateOrderDueDateQuery, dueDate, id)
	return err
}

// UpdateOrderTalpaID stores the provider correlation id on the order.
func (or *OrderRepository) UpdateOrderTalpaID(ctx context.Context, id uuid.UUID, talpaID string) error {
	_, err := or.db.Exec(ctx, updateOrderTalpaIDQuery, talpaID, id)
	return err
}

// UpdateOrderCustomerInfo persists the denormalized contact snapshot.
func (or *OrderRepository) UpdateOrderCustomerInfo(ctx context.Context, order *models.Order) error {
	_, err := or.db.Exec(ctx, updateOrderCustomerQuery,
		order.CustomerFirstName, order.CustomerLastName, order.CustomerEmail,
		order.CustomerPhone, order.CustomerAddress, order.CustomerZipCode, order.CustomerCity,
		order.ID)
	return err
}

// MarkPaymentNotificationSent records when the payment request went out.
func (or *OrderRepository) MarkPaymentNotificationSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := or.db.Exec(ctx, updateOrderNotifiedQuery, at, id)
	return err
}

// CreateOrderLine inserts a line. Line prices are never recomputed afterwards.
func (or *OrderRepository) CreateOrderLine(ctx context.Context, line *models.OrderLine) error {
	if line.ID == uuid.Nil {
		line.ID = uuid.New()
	}
	return or.db.QueryRow(ctx, insertOrderLineQuery,
		line.ID, line.OrderID, line.ProductID, line.Quantity, line.Price, line.TaxPercentage,
	).Scan(&line.CreatedAt)
}

// GetOrderLines returns the lines of an order with their products.
func (or *OrderRepository) GetOrderLines(ctx context.Context, orderID uuid.UUID) ([]models.OrderLine, error) {
	rows, err := or.db.Query(ctx, selectOrderLinesQuery, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lines := []models.OrderLine{}

	for rows.Next() {
		line := models.OrderLine{}
		product := models.AdditionalProduct{}
		err := rows.Scan(
			&line.ID, &line.OrderID, &line.ProductID, &line.Quantity, &line.Price, &line.TaxPercentage, &line.CreatedAt,
			&product.ID, &product.Service, &product.Period, &product.PriceValue, &product.PriceUnit, &product.TaxPercentage, &product.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		line.Product = &product
		lines = append(lines, line)
	}

	return lines, rows.Err()
}

// CreateLogEntry appends a row to the status audit trail.
func (or *OrderRepository) CreateLogEntry(ctx context.Context, entry *models.OrderLogEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	_, err := or.db.Exec(ctx, insertLogEntryQuery,
		entry.ID, entry.OrderID, entry.FromStatus, entry.ToStatus, entry.Comment)
	return err
}

// ListLogEntries returns the full audit trail of an order, oldest first.
func (or *OrderRepository) ListLogEntries(ctx context.Context, orderID uuid.UUID) ([]models.OrderLogEntry, error) {
	rows, err := or.db.Query(ctx, selectLogEntriesQuery, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []models.OrderLogEntry{}

	for rows.Next() {
		entry := models.OrderLogEntry{}
		err := rows.Scan(&entry.ID, &entry.OrderID, &entry.FromStatus, &entry.ToStatus, &entry.Comment, &entry.CreatedAt)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// CreateToken stores a payment session token.
func (or *OrderRepository) CreateToken(ctx context.Context, token *models.OrderToken) error {
	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	_, err := or.db.Exec(ctx, insertTokenQuery, token.ID, token.OrderID, token.Token, token.ValidUntil)
	return err
}

// GetValidToken returns the live token for the order, if any.
func (or *OrderRepository) GetValidToken(ctx context.Context, orderID uuid.UUID, now time.Time) (*models.OrderToken, error) {
	return or.scanToken(or.db.QueryRow(ctx, selectValidTokenQuery, orderID, now))
}

// GetLatestToken returns the newest token regardless of validity.
func (or *OrderRepository) GetLatestToken(ctx context.Context, orderID uuid.UUID) (*models.OrderToken, error) {
	return or.scanToken(or.db.QueryRow(ctx, selectLatestTokenQuery, orderID))
}

func (or *OrderRepository) scanToken(row pgx.Row) (*models.OrderToken, error) {
	token := models.OrderToken{}
	err := row.Scan(&token.ID, &token.OrderID, &token.Token, &token.ValidUntil, &token.Cancelled, &token.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrDataNotFound
		}
		return nil, err
	}
	return &token, nil
}

// InvalidateTokens cancels every token of the order.
func (or *OrderRepository) InvalidateTokens(ctx context.Context, orderID uuid.UUID) error {
	_, err := or.db.Exec(ctx, invalidateTokensQuery, orderID)
	return err
}
