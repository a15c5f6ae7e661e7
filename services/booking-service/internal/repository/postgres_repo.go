package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"roomstay-system/services/booking-service/internal/domain"
)

var ErrOptimisticLock = errors.New("optimistic locking failed")

type txKey struct{}

// PostgresRepo persists orders, rooms and customers. Order updates are
// guarded by an optimistic version column so the confirmation path can
// detect concurrent writers and retry.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(connStr string) (*PostgresRepo, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &PostgresRepo{db: db}, nil
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *PostgresRepo) q(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return r.db
}

// WithTx runs fn in a transaction; a nested call joins the outer one.
func (r *PostgresRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}
	return tx.Commit()
}

const orderColumns = `id, customer_id, room_id, check_in, check_out, nights,
	total_price, status, check_in_code, cancel_reason, cancelled_at, version, created_at`

func (r *PostgresRepo) Create(ctx context.Context, order *domain.Order) error {
	query := `INSERT INTO orders (` + orderColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	order.Version = 1
	_, err := r.q(ctx).ExecContext(ctx, query,
		order.ID,
		order.CustomerID,
		order.RoomID,
		order.CheckIn,
		order.CheckOut,
		order.Nights,
		order.TotalPrice,
		order.Status,
		order.CheckInCode,
		nullString(order.CancelReason),
		order.CancelledAt,
		order.Version,
		order.CreatedAt,
	)
	return err
}

func (r *PostgresRepo) Update(ctx context.Context, order *domain.Order) error {
	query := `UPDATE orders
	          SET status = $1, cancel_reason = $2, cancelled_at = $3, total_price = $4,
	              version = version + 1
	          WHERE id = $5 AND version = $6`
	result, err := r.q(ctx).ExecContext(ctx, query,
		order.Status,
		nullString(order.CancelReason),
		order.CancelledAt,
		order.TotalPrice,
		order.ID,
		order.Version,
	)
	if err != nil {
		return err
	}
	if rowsAffected, _ := result.RowsAffected(); rowsAffected == 0 {
		return ErrOptimisticLock
	}
	order.Version++
	return nil
}

func (r *PostgresRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	return r.scanOrder(r.q(ctx).QueryRowContext(ctx, query, id))
}

func (r *PostgresRepo) GetForUpdate(ctx context.Context, id string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`
	return r.scanOrder(r.q(ctx).QueryRowContext(ctx, query, id))
}

func (r *PostgresRepo) scanOrder(row *sql.Row) (*domain.Order, error) {
	order := &domain.Order{}
	var cancelReason sql.NullString
	var cancelledAt sql.NullTime
	err := row.Scan(
		&order.ID,
		&order.CustomerID,
		&order.RoomID,
		&order.CheckIn,
		&order.CheckOut,
		&order.Nights,
		&order.TotalPrice,
		&order.Status,
		&order.CheckInCode,
		&cancelReason,
		&cancelledAt,
		&order.Version,
		&order.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	order.CancelReason = cancelReason.String
	if cancelledAt.Valid {
		t := cancelledAt.Time
		order.CancelledAt = &t
	}
	return order, nil
}

// FindExpiredPending returns pending orders created before the cutoff, in
// batches to keep the sweeper cheap.
func (r *PostgresRepo) FindExpiredPending(ctx context.Context, olderThan time.Time) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders
	          WHERE status = $1 AND created_at < $2 LIMIT 100`
	rows, err := r.q(ctx).QueryContext(ctx, query, domain.StatusPending, olderThan)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		order := &domain.Order{}
		var cancelReason sql.NullString
		var cancelledAt sql.NullTime
		err := rows.Scan(
			&order.ID,
			&order.CustomerID,
			&order.RoomID,
			&order.CheckIn,
			&order.CheckOut,
			&order.Nights,
			&order.TotalPrice,
			&order.Status,
			&order.CheckInCode,
			&cancelReason,
			&cancelledAt,
			&order.Version,
			&order.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		order.CancelReason = cancelReason.String
		if cancelledAt.Valid {
			t := cancelledAt.Time
			order.CancelledAt = &t
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

func (r *PostgresRepo) GetRoomByID(ctx context.Context, id string) (*domain.Room, error) {
	query := `SELECT id, hotel_id, number, type, nightly_rate FROM rooms WHERE id = $1`
	room := &domain.Room{}
	err := r.q(ctx).QueryRowContext(ctx, query, id).Scan(
		&room.ID, &room.HotelID, &room.Number, &room.Type, &room.NightlyRate,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	return room, nil
}

func (r *PostgresRepo) GetCustomerByID(ctx context.Context, id string) (*domain.Customer, error) {
	query := `SELECT id, name, email, phone FROM customers WHERE id = $1`
	customer := &domain.Customer{}
	err := r.q(ctx).QueryRowContext(ctx, query, id).Scan(
		&customer.ID, &customer.Name, &customer.Email, &customer.Phone,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrCustomerNotFound
	}
	if err != nil {
		return nil, err
	}
	return customer, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
