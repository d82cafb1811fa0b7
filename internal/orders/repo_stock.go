package orders

import (
	"context"
	"errors"
	"fmt"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"slices"
)

type StockRepo struct{ DB *pgxpool.Pool }

// Restock adds delivered quantities to stock in one transaction. Repeated
// medicine ids are summed. An unknown medicine fails the whole delivery.
func (r *StockRepo) Restock(ctx context.Context, deliveredBy string, items []RestockItem) ([]StockLevel, error) {
	qty := map[string]int{}
	ids := []string{}
	for _, it := range items {
		if _, ok := qty[it.MedicineID]; !ok {
			ids = append(ids, it.MedicineID)
		}
		qty[it.MedicineID] += it.Quantity
	}
	slices.Sort(ids)

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	levels := make([]StockLevel, 0, len(ids))
	for _, id := range ids {
		var lv StockLevel
		err := tx.QueryRow(ctx, `
			UPDATE medicines SET stock = stock + $2, updated_at = now()
			WHERE id=$1
			RETURNING id, name, stock, low_stock_threshold`, id, qty[id]).
			Scan(&lv.MedicineID, &lv.Name, &lv.Stock, &lv.LowStockThreshold)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("medicine %s: %w", id, ErrNotFound)
		}
		if err != nil {
			return nil, err
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO deliveries(medicine_id, quantity, delivered_by)
			VALUES ($1, $2, NULLIF($3, ''))`, id, qty[id], deliveredBy); err != nil {
			return nil, err
		}
		levels = append(levels, lv)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return levels, nil
}

type ReportRepo struct{ DB *pgxpool.Pool }

// Summary aggregates administered medicines over all time.
func (r *ReportRepo) Summary(ctx context.Context) (Summary, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT name, SUM(quantity)::int, SUM(quantity * unit_price)::bigint
		FROM administration_lines
		WHERE kind = 'medicine'
		GROUP BY name
		ORDER BY 2 DESC, name`)
	if err != nil {
		return Summary{}, err
	}
	defer rows.Close()

	var table []SummaryRow
	for rows.Next() {
		var row SummaryRow
		if err := rows.Scan(&row.Name, &row.Qty, &row.Sum); err != nil {
			return Summary{}, err
		}
		table = append(table, row)
	}
	if err := rows.Err(); err != nil {
		return Summary{}, err
	}
	return summarize(table), nil
}

type UserRepo struct{ DB *pgxpool.Pool }

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (User, error) {
	var u User
	err := r.DB.QueryRow(ctx, `
		SELECT id, name, email, role, password_hash, created_at
		FROM users WHERE lower(email) = lower($1)`, email).
		Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, fmt.Errorf("user %s: %w", email, ErrNotFound)
	}
	return u, err
}

func (r *UserRepo) Create(ctx context.Context, u User) (User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	err := r.DB.QueryRow(ctx, `
		INSERT INTO users(id, name, email, role, password_hash)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		u.ID, u.Name, u.Email, u.Role, u.PasswordHash).Scan(&u.CreatedAt)
	if err != nil {
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}
