package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/buildtall-systems/kitchen/internal/order"
)

// ErrDuplicateOrder indicates an order id that is already recorded.
var ErrDuplicateOrder = errors.New("order already recorded")

// RegisterOrder stores a processed order. Returns ErrDuplicateOrder if the id
// exists; the stored record is left untouched.
func (db *DB) RegisterOrder(ctx context.Context, rec order.Record) error {
	items, err := json.Marshal(rec.Items)
	if err != nil {
		return fmt.Errorf("encoding items of order %d: %w", rec.ID, err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO orders (order_id, items, status) VALUES (?, ?, ?)
	`, rec.ID, string(items), string(rec.Status))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %d", ErrDuplicateOrder, rec.ID)
		}
		return fmt.Errorf("registering order %d: %w", rec.ID, err)
	}
	return nil
}

// DecrementInventory takes quantity of item off the stock only if enough is
// left. Returns false, not an error, when the condition fails.
func (db *DB) DecrementInventory(ctx context.Context, item string, quantity int) (bool, error) {
	if quantity <= 0 {
		return false, nil
	}
	result, err := db.ExecContext(ctx, `
		UPDATE inventory
		SET stock = stock - ?
		WHERE item = ? AND stock >= ?
	`, quantity, item, quantity)
	if err != nil {
		return false, fmt.Errorf("decrementing %s: %w", item, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking rows affected: %w", err)
	}
	return rows > 0, nil
}

// ListOrders returns every recorded order by id.
func (db *DB) ListOrders(ctx context.Context) ([]order.Record, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT order_id, items, status FROM orders ORDER BY order_id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying orders: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []order.Record
	for rows.Next() {
		var (
			rec    order.Record
			items  string
			status string
		)
		if err := rows.Scan(&rec.ID, &items, &status); err != nil {
			return nil, fmt.Errorf("scanning order: %w", err)
		}
		if err := json.Unmarshal([]byte(items), &rec.Items); err != nil {
			return nil, fmt.Errorf("decoding items of order %d: %w", rec.ID, err)
		}
		rec.Status = order.Status(status)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating orders: %w", err)
	}
	return records, nil
}

// ListInventory returns the durable stock of every item.
func (db *DB) ListInventory(ctx context.Context) (map[string]int, error) {
	rows, err := db.QueryContext(ctx, `SELECT item, stock FROM inventory`)
	if err != nil {
		return nil, fmt.Errorf("querying inventory: %w", err)
	}
	defer func() { _ = rows.Close() }()

	stock := make(map[string]int)
	for rows.Next() {
		var (
			item string
			qty  int
		)
		if err := rows.Scan(&item, &qty); err != nil {
			return nil, fmt.Errorf("scanning inventory: %w", err)
		}
		stock[item] = qty
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating inventory: %w", err)
	}
	return stock, nil
}

// Reset removes every order and inventory row.
func (db *DB) Reset(ctx context.Context) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM orders`); err != nil {
		return fmt.Errorf("clearing orders: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM inventory`); err != nil {
		return fmt.Errorf("clearing inventory: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Seed inserts starting stock. Items that already exist keep their stock.
func (db *DB) Seed(ctx context.Context, stock map[string]int) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for item, qty := range stock {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO inventory (item, stock) VALUES (?, ?)
			ON CONFLICT(item) DO NOTHING
		`, item, qty)
		if err != nil {
			return fmt.Errorf("seeding %s: %w", item, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// isUniqueViolation checks if the error is a unique constraint violation.
func isUniqueViolation(err error) bool {
	// SQLite reports primary key collisions as "UNIQUE constraint failed"
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
