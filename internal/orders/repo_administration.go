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

type AdministrationRepo struct{ DB *pgxpool.Pool }

// Commit records a bulk administration and takes its medicines out of stock,
// all or nothing. It is idempotent via submission_id: a repeated submission
// returns the order that was already committed (Idempotent=true).
// Prices come from the database, never from the request.
func (r *AdministrationRepo) Commit(ctx context.Context, nurseID string, req AdministrationRequest) (AdministrationResult, error) {
	if res, ok, err := r.existing(ctx, req.SubmissionID); err != nil || ok {
		return res, err
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return AdministrationResult{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	meds, err := lockMedicines(ctx, tx, req.Items)
	if err != nil {
		return AdministrationResult{}, err
	}
	svcs, err := loadServices(ctx, tx, req.Items)
	if err != nil {
		return AdministrationResult{}, err
	}

	lines, total, err := priceLines(req.Items, meds, svcs)
	if err != nil {
		return AdministrationResult{}, err
	}

	orderID := uuid.NewString()
	ct, err := tx.Exec(ctx, `
		INSERT INTO administrations(id, submission_id, patient_name, nurse_id, total)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5)
		ON CONFLICT (submission_id) DO NOTHING`,
		orderID, req.SubmissionID, req.PatientName, nurseID, total)
	if err != nil {
		return AdministrationResult{}, err
	}
	if ct.RowsAffected() == 0 {
		// a concurrent retry of the same submission won the race
		_ = tx.Rollback(ctx)
		res, _, err := r.existing(ctx, req.SubmissionID)
		return res, err
	}

	remaining := make([]StockLevel, 0, len(meds))
	for i, l := range lines {
		if _, err := tx.Exec(ctx, `
			INSERT INTO administration_lines(administration_id, position, kind, item_id, name, variant, quantity, unit_price)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			orderID, i, l.Kind, l.ItemID, l.Name, l.Variant, l.Quantity, l.Price); err != nil {
			return AdministrationResult{}, err
		}
		if l.Kind != KindMedicine {
			continue
		}
		var left int
		if err := tx.QueryRow(ctx, `
			UPDATE medicines SET stock = stock - $2, updated_at = now()
			WHERE id=$1 RETURNING stock`, l.ItemID, l.Quantity).Scan(&left); err != nil {
			return AdministrationResult{}, err
		}
		m := meds[l.ItemID]
		remaining = append(remaining, StockLevel{
			MedicineID: m.ID, Name: m.Name, Stock: left, LowStockThreshold: m.LowStockThreshold,
		})
	}

	if err := tx.Commit(ctx); err != nil {
		return AdministrationResult{}, err
	}
	return AdministrationResult{OrderID: orderID, Total: total, Remaining: remaining}, nil
}

func (r *AdministrationRepo) existing(ctx context.Context, submissionID string) (AdministrationResult, bool, error) {
	var res AdministrationResult
	err := r.DB.QueryRow(ctx, `SELECT id, total FROM administrations WHERE submission_id=$1`, submissionID).
		Scan(&res.OrderID, &res.Total)
	if errors.Is(err, pgx.ErrNoRows) {
		return AdministrationResult{}, false, nil
	}
	if err != nil {
		return AdministrationResult{}, false, err
	}
	res.Idempotent = true
	return res, true, nil
}

// lockMedicines locks every requested medicine row in id order so two
// administrations touching the same medicines cannot deadlock.
func lockMedicines(ctx context.Context, tx pgx.Tx, items []AdministrationItem) (map[string]Medicine, error) {
	ids := itemIDs(items, KindMedicine)
	out := make(map[string]Medicine, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := tx.Query(ctx, `
		SELECT `+medicineCols+` FROM medicines
		WHERE id = ANY($1) ORDER BY id FOR UPDATE`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		m, err := scanMedicine(rows)
		if err != nil {
			return nil, err
		}
		out[m.ID] = m
	}
	return out, rows.Err()
}

func loadServices(ctx context.Context, tx pgx.Tx, items []AdministrationItem) (map[string]Service, error) {
	ids := itemIDs(items, KindService)
	out := make(map[string]Service, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := tx.Query(ctx, `
		SELECT s.id, s.name, v.label, v.count, v.price
		FROM services s
		JOIN service_variants v ON v.service_id = s.id
		WHERE s.id = ANY($1)
		ORDER BY s.id, v.position`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id, name string
			v        Variant
		)
		if err := rows.Scan(&id, &name, &v.Label, &v.Count, &v.Price); err != nil {
			return nil, err
		}
		s := out[id]
		s.ID, s.Name = id, name
		s.Variants = append(s.Variants, v)
		out[id] = s
	}
	return out, rows.Err()
}

func itemIDs(items []AdministrationItem, kind ItemKind) []string {
	var ids []string
	for _, it := range items {
		if it.Kind == kind && !slices.Contains(ids, it.ItemID) {
			ids = append(ids, it.ItemID)
		}
	}
	slices.Sort(ids)
	return ids
}

// Receipt loads a committed administration with its lines.
func (r *AdministrationRepo) Receipt(ctx context.Context, orderID string) (Administration, error) {
	var (
		a       Administration
		nurseID *string
	)
	err := r.DB.QueryRow(ctx, `
		SELECT id, submission_id, patient_name, nurse_id, total, created_at
		FROM administrations WHERE id=$1`, orderID).
		Scan(&a.ID, &a.SubmissionID, &a.PatientName, &nurseID, &a.Total, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Administration{}, fmt.Errorf("administration %s: %w", orderID, ErrNotFound)
	}
	if err != nil {
		return Administration{}, err
	}
	if nurseID != nil {
		a.NurseID = *nurseID
	}

	rows, err := r.DB.Query(ctx, `
		SELECT kind, item_id, name, variant, quantity, unit_price
		FROM administration_lines WHERE administration_id=$1 ORDER BY position`, orderID)
	if err != nil {
		return Administration{}, err
	}
	defer rows.Close()
	a.Items = []AdministrationLine{}
	for rows.Next() {
		var l AdministrationLine
		if err := rows.Scan(&l.Kind, &l.ItemID, &l.Name, &l.Variant, &l.Quantity, &l.Price); err != nil {
			return Administration{}, err
		}
		a.Items = append(a.Items, l)
	}
	return a, rows.Err()
}
