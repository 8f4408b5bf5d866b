// ABOUTME: Store methods for invitations: issuing org- or residence-scoped
// ABOUTME: invites and the transactional accept flow that grants membership.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Invitation is a pending invite into an organization, optionally pinned to a
// residence. Residence-scoped invites grant residence membership on accept;
// org-scoped invites grant org membership.
type Invitation struct {
	ID          uuid.UUID
	OrgID       uuid.UUID
	ResidenceID *uuid.UUID
	Email       string
	Role        string
	Token       string
	CreatedBy   uuid.UUID
	ExpiresAt   time.Time
	AcceptedAt  *time.Time
	CreatedAt   time.Time
}

const invitationColumns = `id, org_id, residence_id, email, role, token,
	created_by, expires_at, accepted_at, created_at`

func scanInvitation(row pgx.Row) (*Invitation, error) {
	var inv Invitation
	err := row.Scan(&inv.ID, &inv.OrgID, &inv.ResidenceID, &inv.Email,
		&inv.Role, &inv.Token, &inv.CreatedBy, &inv.ExpiresAt,
		&inv.AcceptedAt, &inv.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// Expired reports whether the invitation is past its expiry.
func (inv *Invitation) Expired(now time.Time) bool {
	return now.After(inv.ExpiresAt)
}

// CreateInvitationParams holds the fields for issuing an invitation.
type CreateInvitationParams struct {
	OrgID       uuid.UUID
	ResidenceID *uuid.UUID
	Email       string
	Role        string
	Token       string
	CreatedBy   uuid.UUID
	ExpiresAt   time.Time
}

// CreateInvitation inserts a pending invitation.
func (s *Store) CreateInvitation(ctx context.Context, p CreateInvitationParams) (*Invitation, error) {
	inv, err := scanInvitation(s.pool.QueryRow(ctx, `
		INSERT INTO invitations (org_id, residence_id, email, role, token,
			created_by, expires_at)
		VALUES ($1, $2, lower($3), $4, $5, $6, $7)
		RETURNING `+invitationColumns,
		p.OrgID, p.ResidenceID, p.Email, p.Role, p.Token, p.CreatedBy, p.ExpiresAt))
	if err != nil {
		return nil, fmt.Errorf("create invitation: %w", err)
	}
	return inv, nil
}

// GetInvitationByToken returns the invitation, or (nil, nil) if not found.
// Expiry and accepted-state checks are the caller's to make so the API layer
// can distinguish "gone" from "expired" in its error mapping.
func (s *Store) GetInvitationByToken(ctx context.Context, token string) (*Invitation, error) {
	inv, err := scanInvitation(s.pool.QueryRow(ctx,
		`SELECT `+invitationColumns+` FROM invitations WHERE token = $1`, token))
	if err != nil {
		return nil, fmt.Errorf("get invitation by token: %w", err)
	}
	return inv, nil
}

// GetInvitationByID returns the invitation, or (nil, nil) if not found.
func (s *Store) GetInvitationByID(ctx context.Context, id uuid.UUID) (*Invitation, error) {
	inv, err := scanInvitation(s.pool.QueryRow(ctx,
		`SELECT `+invitationColumns+` FROM invitations WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("get invitation by id: %w", err)
	}
	return inv, nil
}

// ListOrgInvitations returns an org's invitations, pending first.
func (s *Store) ListOrgInvitations(ctx context.Context, orgID uuid.UUID) ([]Invitation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+invitationColumns+`
		FROM invitations
		WHERE org_id = $1
		ORDER BY (accepted_at IS NOT NULL), created_at DESC`, orgID)
	if err != nil {
		return nil, fmt.Errorf("list org invitations: %w", err)
	}
	defer rows.Close()

	var out []Invitation
	for rows.Next() {
		var inv Invitation
		if err := rows.Scan(&inv.ID, &inv.OrgID, &inv.ResidenceID, &inv.Email,
			&inv.Role, &inv.Token, &inv.CreatedBy, &inv.ExpiresAt,
			&inv.AcceptedAt, &inv.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan invitation: %w", err)
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

// CancelInvitation deletes a pending, unaccepted invitation within its org.
func (s *Store) CancelInvitation(ctx context.Context, orgID, id uuid.UUID) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM invitations
		WHERE id = $1 AND org_id = $2 AND accepted_at IS NULL`, id, orgID)
	if err != nil {
		return false, fmt.Errorf("cancel invitation: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// AcceptInvitation marks the invitation accepted and grants the user the
// membership it carries, in one transaction. Residence-scoped invites add a
// residence_members row; every accept adds org membership. Returns false when
// the invitation was already accepted (lost race).
func (s *Store) AcceptInvitation(ctx context.Context, invID, userID uuid.UUID) (bool, error) {
	var accepted bool
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		var orgID uuid.UUID
		var residenceID *uuid.UUID
		err := tx.QueryRow(ctx, `
			UPDATE invitations SET accepted_at = now()
			WHERE id = $1 AND accepted_at IS NULL
			RETURNING org_id, residence_id`, invID).Scan(&orgID, &residenceID)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO org_members (org_id, user_id) VALUES ($1, $2)
			ON CONFLICT DO NOTHING`, orgID, userID); err != nil {
			return err
		}
		if residenceID != nil {
			if _, err := tx.Exec(ctx, `
				INSERT INTO residence_members (residence_id, user_id) VALUES ($1, $2)
				ON CONFLICT DO NOTHING`, *residenceID, userID); err != nil {
				return err
			}
		}
		accepted = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("accept invitation: %w", err)
	}
	return accepted, nil
}

// DeleteExpiredInvitations prunes unaccepted invitations past expiry.
func (s *Store) DeleteExpiredInvitations(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM invitations
		WHERE accepted_at IS NULL AND expires_at < now()`)
	if err != nil {
		return 0, fmt.Errorf("delete expired invitations: %w", err)
	}
	return tag.RowsAffected(), nil
}
