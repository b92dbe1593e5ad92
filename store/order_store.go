package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"grocery-order-service/models"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	// ErrCannotCancel means the group has left Processing and may no
	// longer be cancelled.
	ErrCannotCancel = errors.New("order cannot be cancelled in its current state")
	// ErrPaymentConflict means a payment confirmation arrived for a group
	// that is no longer payable (e.g. cancelled while the shopper was on
	// the provider's site).
	ErrPaymentConflict = errors.New("order is not in a payable state")
)

// OrderStore is the durable order ledger: one row per purchased line item,
// grouped by order_id. All group-wide status changes are expressed as a
// single conditional multi-row UPDATE (match order_id AND current status)
// so a racing callback and cancellation cannot both win.
type OrderStore struct {
	db *sql.DB
}

func NewOrderStore(db *sql.DB) *OrderStore {
	return &OrderStore{db: db}
}

// CreateOrder persists every line item of one checkout in a single
// transaction: all rows or none.
func (s *OrderStore) CreateOrder(ctx context.Context, items []models.OrderLineItem) error {
	if len(items) == 0 {
		return errors.New("order must contain at least one line item")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	for _, item := range items {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO order_items
				(order_id, user_id, product_id, product_name, product_image,
				 quantity, price_per_unit, item_total, payment_method,
				 payment_status, order_status, delivery_address_id,
				 created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NOW(), NOW())`,
			item.OrderID, item.UserID, item.ProductID, item.ProductName, item.ProductImage,
			item.Quantity, item.PricePerUnit, item.ItemTotal, item.PaymentMethod,
			item.PaymentStatus, item.OrderStatus, item.DeliveryAddressID,
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("insert line item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit order: %w", err)
	}
	return nil
}

// ListOrderGroups pages over whole checkouts, newest first. Groups are
// aggregated before pagination: the page boundary falls between groups,
// never through one.
func (s *OrderStore) ListOrderGroups(ctx context.Context, userID, page, limit int) ([]models.OrderGroup, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 6
	}

	var total int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT order_id) FROM order_items WHERE user_id = ?`,
		userID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count order groups: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT order_id, MIN(created_at) AS first_created
		FROM order_items
		WHERE user_id = ?
		GROUP BY order_id
		ORDER BY first_created DESC
		LIMIT ? OFFSET ?`,
		userID, limit, (page-1)*limit,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("page order groups: %w", err)
	}
	defer rows.Close()

	var orderIDs []string
	for rows.Next() {
		var orderID string
		var firstCreated sql.NullTime
		if err := rows.Scan(&orderID, &firstCreated); err != nil {
			return nil, 0, fmt.Errorf("scan order group: %w", err)
		}
		orderIDs = append(orderIDs, orderID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	groups := make([]models.OrderGroup, 0, len(orderIDs))
	for _, orderID := range orderIDs {
		group, err := s.GetOrderGroup(ctx, userID, orderID)
		if err != nil {
			return nil, 0, err
		}
		groups = append(groups, *group)
	}
	return groups, total, nil
}

// GetOrderGroup loads every line item of one checkout and projects the
// group-level view. The shared fields are read off the first member; the
// mutation paths keep all members identical, so any member is
// representative.
func (s *OrderStore) GetOrderGroup(ctx context.Context, userID int, orderID string) (*models.OrderGroup, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, order_id, user_id, product_id, product_name, product_image,
		       quantity, price_per_unit, item_total, payment_method,
		       payment_status, order_status, delivery_address_id,
		       payment_id, payment_date, created_at, updated_at
		FROM order_items
		WHERE user_id = ? AND order_id = ?
		ORDER BY id ASC`,
		userID, orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("load order group: %w", err)
	}
	defer rows.Close()

	var items []models.OrderLineItem
	for rows.Next() {
		var item models.OrderLineItem
		var paymentDate sql.NullTime
		if err := rows.Scan(
			&item.ID, &item.OrderID, &item.UserID, &item.ProductID,
			&item.ProductName, &item.ProductImage, &item.Quantity,
			&item.PricePerUnit, &item.ItemTotal, &item.PaymentMethod,
			&item.PaymentStatus, &item.OrderStatus, &item.DeliveryAddressID,
			&item.PaymentID, &paymentDate, &item.CreatedAt, &item.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan line item: %w", err)
		}
		if paymentDate.Valid {
			item.PaymentDate = &paymentDate.Time
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrOrderNotFound
	}

	group := &models.OrderGroup{
		OrderID:           orderID,
		CreatedAt:         items[0].CreatedAt,
		Status:            items[0].OrderStatus,
		PaymentStatus:     items[0].PaymentStatus,
		PaymentMethod:     items[0].PaymentMethod,
		DeliveryAddressID: items[0].DeliveryAddressID,
		Items:             items,
	}
	for _, item := range items {
		group.TotalAmount += item.ItemTotal
	}
	return group, nil
}

// CancelOrderGroup cancels a whole checkout, legal only while it is still
// Processing. The status check and the write are one statement, so a
// payment callback that confirmed the order a moment earlier wins the race.
func (s *OrderStore) CancelOrderGroup(ctx context.Context, userID int, orderID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE order_items
		SET order_status = ?, updated_at = NOW()
		WHERE user_id = ? AND order_id = ? AND order_status = ?`,
		models.OrderCancelled, userID, orderID, models.OrderProcessing,
	)
	if err != nil {
		return fmt.Errorf("cancel order: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	var status models.OrderStatus
	err = s.db.QueryRowContext(ctx,
		`SELECT order_status FROM order_items WHERE user_id = ? AND order_id = ? LIMIT 1`,
		userID, orderID,
	).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrOrderNotFound
	}
	if err != nil {
		return fmt.Errorf("check order status: %w", err)
	}
	return ErrCannotCancel
}

// MarkPaid applies a confirmed payment to the whole group: payment status
// Paid, order status Confirmed, provider transaction id and payment date
// recorded. A Failed payment may still go Paid (the shopper retried inside
// the provider window). Replays of an already-applied confirmation are
// no-ops: they match zero rows and are reported as success without
// touching payment_date again.
func (s *OrderStore) MarkPaid(ctx context.Context, orderID, transactionNo string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE order_items
		SET payment_status = ?, order_status = ?, payment_id = ?,
		    payment_date = NOW(), updated_at = NOW()
		WHERE order_id = ? AND order_status = ? AND payment_status IN (?, ?)`,
		models.PaymentPaid, models.OrderConfirmed, transactionNo,
		orderID, models.OrderProcessing, models.PaymentPending, models.PaymentFailed,
	)
	if err != nil {
		return fmt.Errorf("mark paid: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	var status models.PaymentStatus
	err = s.db.QueryRowContext(ctx,
		`SELECT payment_status FROM order_items WHERE order_id = ? LIMIT 1`,
		orderID,
	).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrOrderNotFound
	}
	if err != nil {
		return fmt.Errorf("check payment status: %w", err)
	}
	if status == models.PaymentPaid {
		// Duplicate callback for an order already settled.
		return nil
	}
	return ErrPaymentConflict
}

// FailPayment records a declined or expired online payment attempt. The
// order itself stays Processing so the shopper can retry; only a still
// Pending payment is touched.
func (s *OrderStore) FailPayment(ctx context.Context, orderID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE order_items
		SET payment_status = ?, updated_at = NOW()
		WHERE order_id = ? AND payment_method = ? AND payment_status = ?`,
		models.PaymentFailed, orderID, models.PaymentOnline, models.PaymentPending,
	)
	if err != nil {
		return fmt.Errorf("fail payment: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	var exists int
	err = s.db.QueryRowContext(ctx,
		`SELECT 1 FROM order_items WHERE order_id = ? LIMIT 1`,
		orderID,
	).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrOrderNotFound
	}
	if err != nil {
		return fmt.Errorf("check order: %w", err)
	}
	// Already Failed or settled; nothing to record.
	return nil
}

// PaymentInfo returns the payment view of one checkout.
func (s *OrderStore) PaymentInfo(ctx context.Context, orderID string) (*models.PaymentInfo, error) {
	info := &models.PaymentInfo{OrderID: orderID}
	err := s.db.QueryRowContext(ctx, `
		SELECT payment_status, order_status, payment_method, payment_id
		FROM order_items
		WHERE order_id = ?
		LIMIT 1`,
		orderID,
	).Scan(&info.PaymentStatus, &info.OrderStatus, &info.PaymentMethod, &info.PaymentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load payment info: %w", err)
	}
	return info, nil
}
