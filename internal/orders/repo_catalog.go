package orders

import (
	"context"
	"errors"
	"fmt"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CatalogRepo struct{ DB *pgxpool.Pool }

const medicineCols = `id, name, price, stock, low_stock_threshold, created_at, updated_at`

func scanMedicine(row pgx.Row) (Medicine, error) {
	var m Medicine
	err := row.Scan(&m.ID, &m.Name, &m.Price, &m.Stock, &m.LowStockThreshold, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

func (r *CatalogRepo) listMedicines(ctx context.Context, order string) ([]Medicine, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+medicineCols+` FROM medicines ORDER BY `+order)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Medicine{}
	for rows.Next() {
		m, err := scanMedicine(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *CatalogRepo) ListMedicines(ctx context.Context) ([]Medicine, error) {
	return r.listMedicines(ctx, "name")
}

// ListMedicinesForDelivery puts the emptiest shelves first.
func (r *CatalogRepo) ListMedicinesForDelivery(ctx context.Context) ([]Medicine, error) {
	return r.listMedicines(ctx, "stock, name")
}

func (r *CatalogRepo) GetMedicine(ctx context.Context, id string) (Medicine, error) {
	m, err := scanMedicine(r.DB.QueryRow(ctx, `SELECT `+medicineCols+` FROM medicines WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Medicine{}, fmt.Errorf("medicine %s: %w", id, ErrNotFound)
	}
	return m, err
}

func (r *CatalogRepo) CreateMedicine(ctx context.Context, in MedicineInput) (Medicine, error) {
	stock := 0
	if in.Stock != nil {
		stock = *in.Stock
	}
	return scanMedicine(r.DB.QueryRow(ctx, `
		INSERT INTO medicines(id, name, price, stock, low_stock_threshold)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+medicineCols,
		uuid.NewString(), in.Name, in.Price, stock, in.LowStockThreshold))
}

// UpdateMedicine changes name, price and threshold. Stock only moves through
// administrations and deliveries, so an explicit stock is ignored here.
func (r *CatalogRepo) UpdateMedicine(ctx context.Context, id string, in MedicineInput) (Medicine, error) {
	m, err := scanMedicine(r.DB.QueryRow(ctx, `
		UPDATE medicines
		SET name=$2, price=$3, low_stock_threshold=$4, updated_at=now()
		WHERE id=$1
		RETURNING `+medicineCols,
		id, in.Name, in.Price, in.LowStockThreshold))
	if errors.Is(err, pgx.ErrNoRows) {
		return Medicine{}, fmt.Errorf("medicine %s: %w", id, ErrNotFound)
	}
	return m, err
}

func (r *CatalogRepo) DeleteMedicine(ctx context.Context, id string) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM medicines WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("medicine %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *CatalogRepo) ListServices(ctx context.Context) ([]Service, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT s.id, s.name, s.created_at, v.label, v.count, v.price
		FROM services s
		LEFT JOIN service_variants v ON v.service_id = s.id
		ORDER BY s.name, s.id, v.position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Service{}
	for rows.Next() {
		var (
			s     Service
			label *string
			count *int
			price *int64
		)
		if err := rows.Scan(&s.ID, &s.Name, &s.CreatedAt, &label, &count, &price); err != nil {
			return nil, err
		}
		if n := len(out); n == 0 || out[n-1].ID != s.ID {
			s.Variants = []Variant{}
			out = append(out, s)
		}
		if label != nil {
			last := &out[len(out)-1]
			last.Variants = append(last.Variants, Variant{Label: *label, Count: *count, Price: *price})
		}
	}
	return out, rows.Err()
}

func (r *CatalogRepo) CreateService(ctx context.Context, in ServiceInput) (Service, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Service{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	s := Service{ID: uuid.NewString(), Name: in.Name, Variants: in.Variants}
	if err := tx.QueryRow(ctx, `
		INSERT INTO services(id, name) VALUES ($1, $2) RETURNING created_at`,
		s.ID, s.Name).Scan(&s.CreatedAt); err != nil {
		return Service{}, err
	}
	for i, v := range in.Variants {
		if _, err := tx.Exec(ctx, `
			INSERT INTO service_variants(service_id, label, count, price, position)
			VALUES ($1, $2, $3, $4, $5)`,
			s.ID, v.Label, v.Count, v.Price, i); err != nil {
			return Service{}, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return Service{}, err
	}
	return s, nil
}

func (r *CatalogRepo) DeleteService(ctx context.Context, id string) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM services WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("service %s: %w", id, ErrNotFound)
	}
	return nil
}
