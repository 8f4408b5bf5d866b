// ABOUTME: Job handlers for the invitation_email and bill_reminder queues.
// ABOUTME: Both are idempotent: stale or already-handled jobs succeed silently.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/kevinhervieux-koveo/koveo-gestion-saas-sub014/internal/access"
	"github.com/kevinhervieux-koveo/koveo-gestion-saas-sub014/internal/notify"
	"github.com/kevinhervieux-koveo/koveo-gestion-saas-sub014/internal/store"
)

// InvitationEmailPayload is the payload for invitation_email jobs.
type InvitationEmailPayload struct {
	InvitationID uuid.UUID `json:"invitation_id"`
}

// BillReminderPayload is the payload for bill_reminder jobs.
type BillReminderPayload struct {
	BillID uuid.UUID `json:"bill_id"`
}

// Handlers bundles the dependencies of the queue handlers.
type Handlers struct {
	Store       *store.Store
	Smtp        notify.SmtpConfig
	ExternalURL string
}

// RegisterAll attaches every queue handler to the pool.
func (h *Handlers) RegisterAll(p *Pool) {
	p.Register(QueueInvitationEmail, h.HandleInvitationEmail)
	p.Register(QueueBillReminder, h.HandleBillReminder)
}

// HandleInvitationEmail sends the invitation email for the payload's
// invitation. Missing, expired, or already-accepted invitations are treated
// as success so retries do not spin on stale state.
func (h *Handlers) HandleInvitationEmail(ctx context.Context, payload json.RawMessage) error {
	var p InvitationEmailPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("invitation payload: %w", err)
	}

	inv, err := h.Store.GetInvitationByID(ctx, p.InvitationID)
	if err != nil {
		return err
	}
	if inv == nil || inv.AcceptedAt != nil {
		slog.Info("skipping stale invitation job", "invitation_id", p.InvitationID)
		return nil
	}

	org, err := h.Store.GetOrgByID(ctx, inv.OrgID)
	if err != nil {
		return err
	}
	if org == nil {
		slog.Info("skipping invitation for missing org", "invitation_id", inv.ID)
		return nil
	}

	var label string
	if inv.ResidenceID != nil {
		label, err = h.residenceLabel(ctx, *inv.ResidenceID)
		if err != nil {
			return err
		}
	}

	subject, htmlBody, textBody, err := notify.RenderInvitation(notify.InvitationTemplateData{
		OrgName:        org.Name,
		Role:           roleLabel(inv.Role),
		ResidenceLabel: label,
		AcceptURL:      fmt.Sprintf("%s/invitations/%s", h.ExternalURL, inv.Token),
		ExpiresAt:      inv.ExpiresAt.Format("2006-01-02"),
	})
	if err != nil {
		return err
	}
	return notify.EmailSend(ctx, h.Smtp, []string{inv.Email}, subject, htmlBody, textBody)
}

// HandleBillReminder emails everyone who can see the bill that it is due
// soon, then stamps reminder_sent_at. Paid, missing, or already-reminded
// bills succeed silently.
func (h *Handlers) HandleBillReminder(ctx context.Context, payload json.RawMessage) error {
	var p BillReminderPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("bill reminder payload: %w", err)
	}

	bill, err := h.Store.GetBill(ctx, p.BillID)
	if err != nil {
		return err
	}
	if bill == nil || bill.Status != store.BillStatusUnpaid || bill.ReminderSentAt != nil {
		slog.Info("skipping stale bill reminder job", "bill_id", p.BillID)
		return nil
	}

	recipients, err := h.billRecipients(ctx, bill)
	if err != nil {
		return err
	}
	if len(recipients) == 0 {
		slog.Info("bill has no reminder recipients", "bill_id", bill.ID)
		return h.Store.MarkBillReminderSent(ctx, bill.ID)
	}

	var label string
	if bill.ResidenceID != nil {
		label, err = h.residenceLabel(ctx, *bill.ResidenceID)
		if err != nil {
			return err
		}
	}

	subject, htmlBody, textBody, err := notify.RenderBillReminder(notify.BillReminderTemplateData{
		BillTitle:      bill.Title,
		Amount:         notify.FormatCents(bill.AmountCents),
		DueDate:        bill.DueDate.Format("2006-01-02"),
		ResidenceLabel: label,
		PortalURL:      h.ExternalURL + "/bills",
	})
	if err != nil {
		return err
	}
	if err := notify.EmailSend(ctx, h.Smtp, recipients, subject, htmlBody, textBody); err != nil {
		return err
	}
	return h.Store.MarkBillReminderSent(ctx, bill.ID)
}

// billRecipients resolves the members who should receive a reminder: the
// bill's residence members, or every member in the building for building
// scoped bills. Tenants are excluded when the bill is not tenant-visible,
// matching what they can see in the portal.
func (h *Handlers) billRecipients(ctx context.Context, bill *store.Bill) ([]string, error) {
	var residenceIDs []uuid.UUID
	switch {
	case bill.ResidenceID != nil:
		residenceIDs = []uuid.UUID{*bill.ResidenceID}
	case bill.BuildingID != nil:
		residences, err := h.Store.ListBuildingResidences(ctx, *bill.BuildingID)
		if err != nil {
			return nil, err
		}
		for _, r := range residences {
			residenceIDs = append(residenceIDs, r.ID)
		}
	}

	seen := make(map[string]struct{})
	var out []string
	for _, rid := range residenceIDs {
		members, err := h.Store.ListResidenceMembers(ctx, rid)
		if err != nil {
			return nil, err
		}
		for _, m := range members {
			if !bill.VisibleToTenants && access.TierOf(m.Role) == access.TierTenant {
				continue
			}
			if _, dup := seen[m.Email]; dup {
				continue
			}
			seen[m.Email] = struct{}{}
			out = append(out, m.Email)
		}
	}
	return out, nil
}

// residenceLabel renders "unité 101, Le Plateau" for email bodies.
func (h *Handlers) residenceLabel(ctx context.Context, residenceID uuid.UUID) (string, error) {
	res, err := h.Store.GetResidence(ctx, residenceID)
	if err != nil || res == nil {
		return "", err
	}
	bld, err := h.Store.GetBuilding(ctx, res.BuildingID)
	if err != nil {
		return "", err
	}
	if bld == nil {
		return "unité " + res.UnitNumber, nil
	}
	return fmt.Sprintf("unité %s, %s", res.UnitNumber, bld.Name), nil
}

// roleLabel maps a role string to its French display form for emails.
func roleLabel(role string) string {
	switch role {
	case "manager", "demo_manager":
		return "gestionnaire"
	case "resident", "demo_resident":
		return "résident"
	case "tenant", "demo_tenant":
		return "locataire"
	case "admin":
		return "administrateur"
	default:
		return role
	}
}
