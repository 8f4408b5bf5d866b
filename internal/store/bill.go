// ABOUTME: Store methods for bills: CRUD, visibility-scoped listing, and the
// ABOUTME: due-soon queries the reminder worker drives.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/kevinhervieux-koveo/koveo-gestion-saas-sub014/internal/access"
)

// Bill statuses.
const (
	BillStatusUnpaid  = "unpaid"
	BillStatusPaid    = "paid"
	BillStatusOverdue = "overdue"
)

// Bill is a charge attached to a residence or a building.
type Bill struct {
	ID               uuid.UUID
	ResidenceID      *uuid.UUID
	BuildingID       *uuid.UUID
	Title            string
	AmountCents      int64
	DueDate          time.Time
	Status           string
	VisibleToTenants bool
	CreatedBy        uuid.UUID
	ReminderSentAt   *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

const billColumns = `id, residence_id, building_id, title, amount_cents,
	due_date, status, is_visible_to_tenants, created_by, reminder_sent_at,
	created_at, updated_at`

func scanBill(row pgx.Row) (*Bill, error) {
	var b Bill
	err := row.Scan(&b.ID, &b.ResidenceID, &b.BuildingID, &b.Title,
		&b.AmountCents, &b.DueDate, &b.Status, &b.VisibleToTenants,
		&b.CreatedBy, &b.ReminderSentAt, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// AccessResource returns the bill's scope-relevant shape for the resolver.
// CreatedBy stands in for the uploader in ownership checks.
func (b *Bill) AccessResource() access.Resource {
	return access.Resource{
		ResidenceID:      b.ResidenceID,
		BuildingID:       b.BuildingID,
		VisibleToTenants: b.VisibleToTenants,
		UploadedBy:       b.CreatedBy,
	}
}

// CreateBillParams holds the fields for creating a bill.
type CreateBillParams struct {
	ResidenceID      *uuid.UUID
	BuildingID       *uuid.UUID
	Title            string
	AmountCents      int64
	DueDate          time.Time
	VisibleToTenants bool
	CreatedBy        uuid.UUID
}

// CreateBill inserts an unpaid bill.
func (s *Store) CreateBill(ctx context.Context, p CreateBillParams) (*Bill, error) {
	b, err := scanBill(s.pool.QueryRow(ctx, `
		INSERT INTO bills (residence_id, building_id, title, amount_cents,
			due_date, is_visible_to_tenants, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+billColumns,
		p.ResidenceID, p.BuildingID, p.Title, p.AmountCents, p.DueDate,
		p.VisibleToTenants, p.CreatedBy))
	if err != nil {
		return nil, fmt.Errorf("create bill: %w", err)
	}
	return b, nil
}

// GetBill returns the bill, or (nil, nil) if not found.
func (s *Store) GetBill(ctx context.Context, id uuid.UUID) (*Bill, error) {
	b, err := scanBill(s.pool.QueryRow(ctx,
		`SELECT `+billColumns+` FROM bills WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("get bill: %w", err)
	}
	return b, nil
}

// UpdateBillParams holds the mutable bill fields.
type UpdateBillParams struct {
	Title            string
	AmountCents      int64
	DueDate          time.Time
	Status           string
	VisibleToTenants bool
}

// UpdateBill updates a bill. Returns (nil, nil) if not found.
func (s *Store) UpdateBill(ctx context.Context, id uuid.UUID, p UpdateBillParams) (*Bill, error) {
	b, err := scanBill(s.pool.QueryRow(ctx, `
		UPDATE bills
		SET title = $2, amount_cents = $3, due_date = $4, status = $5,
			is_visible_to_tenants = $6, updated_at = now()
		WHERE id = $1
		RETURNING `+billColumns,
		id, p.Title, p.AmountCents, p.DueDate, p.Status, p.VisibleToTenants))
	if err != nil {
		return nil, fmt.Errorf("update bill: %w", err)
	}
	return b, nil
}

// DeleteBill removes a bill row.
func (s *Store) DeleteBill(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM bills WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete bill: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// BillFilter narrows a bill list query.
type BillFilter struct {
	ResidenceID *uuid.UUID
	BuildingID  *uuid.UUID
	Status      string
	Limit       int
	Offset      int
}

// ListBillsFor returns the bills visible to req, soonest due first. Shares the
// visibility predicate with documents so both surfaces scope identically.
func (s *Store) ListBillsFor(ctx context.Context, req access.Requester, f BillFilter) ([]Bill, error) {
	q := sq.Select(
		"bl.id", "bl.residence_id", "bl.building_id", "bl.title",
		"bl.amount_cents", "bl.due_date", "bl.status", "bl.is_visible_to_tenants",
		"bl.created_by", "bl.reminder_sent_at", "bl.created_at", "bl.updated_at").
		From("bills bl").
		LeftJoin("residences r ON r.id = bl.residence_id").
		LeftJoin("buildings b ON b.id = COALESCE(bl.building_id, r.building_id)").
		OrderBy("bl.due_date", "bl.id").
		PlaceholderFormat(sq.Dollar)

	pred, ok := visibilityPredicate(req, "bl")
	if !ok {
		return nil, nil
	}
	q = q.Where(pred)
	if f.ResidenceID != nil {
		q = q.Where(sq.Eq{"bl.residence_id": *f.ResidenceID})
	}
	if f.BuildingID != nil {
		q = q.Where(sq.Eq{"bl.building_id": *f.BuildingID})
	}
	if f.Status != "" {
		q = q.Where(sq.Eq{"bl.status": f.Status})
	}
	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q = q.Limit(uint64(limit)).Offset(uint64(f.Offset)) //nolint:gosec // G115: bounded above

	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build bill list query: %w", err)
	}
	rows, err := s.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}
	defer rows.Close()

	var out []Bill
	for rows.Next() {
		var bl Bill
		if err := rows.Scan(&bl.ID, &bl.ResidenceID, &bl.BuildingID, &bl.Title,
			&bl.AmountCents, &bl.DueDate, &bl.Status, &bl.VisibleToTenants,
			&bl.CreatedBy, &bl.ReminderSentAt, &bl.CreatedAt, &bl.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan bill: %w", err)
		}
		out = append(out, bl)
	}
	return out, rows.Err()
}

// ListBillsDueWithin returns unpaid bills due within the window that have not
// had a reminder sent yet. The worker enqueues one reminder per row.
func (s *Store) ListBillsDueWithin(ctx context.Context, window time.Duration, limit int) ([]Bill, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+billColumns+`
		FROM bills
		WHERE status = 'unpaid'
		  AND reminder_sent_at IS NULL
		  AND due_date <= (CURRENT_DATE + $1::int)
		ORDER BY due_date
		LIMIT $2`,
		int(window.Hours()/24), limit)
	if err != nil {
		return nil, fmt.Errorf("list bills due: %w", err)
	}
	defer rows.Close()

	var out []Bill
	for rows.Next() {
		var b Bill
		if err := rows.Scan(&b.ID, &b.ResidenceID, &b.BuildingID, &b.Title,
			&b.AmountCents, &b.DueDate, &b.Status, &b.VisibleToTenants,
			&b.CreatedBy, &b.ReminderSentAt, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan bill: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// MarkBillReminderSent stamps reminder_sent_at so a bill is reminded at most once.
func (s *Store) MarkBillReminderSent(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE bills SET reminder_sent_at = now(), updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark bill reminder sent: %w", err)
	}
	return nil
}
