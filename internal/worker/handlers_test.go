// ABOUTME: Integration tests for the queue handlers and scheduler — stale-job
// ABOUTME: idempotency, recipient selection, and due-bill enqueueing.
package worker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/kevinhervieux-koveo/koveo-gestion-saas-sub014/internal/store"
	"github.com/kevinhervieux-koveo/koveo-gestion-saas-sub014/internal/testutil"
)

type fixture struct {
	org       *store.Organization
	building  *store.Building
	residence *store.Residence
	resident  *store.User
	tenant    *store.User
}

func seed(t *testing.T, s *testutil.TestDB) *fixture {
	t.Helper()
	ctx := context.Background()

	f := &fixture{}
	var err error
	if f.org, err = s.CreateOrg(ctx, "Org"); err != nil {
		t.Fatalf("seed org: %v", err)
	}
	if f.building, err = s.CreateBuilding(ctx, f.org.ID, store.CreateBuildingParams{
		Name: "Bâtiment A", Address: "1 rue Principale", City: "Montréal", PostalCode: "H1H 1H1",
	}); err != nil {
		t.Fatalf("seed building: %v", err)
	}
	if f.residence, err = s.CreateResidence(ctx, f.building.ID, "101", nil); err != nil {
		t.Fatalf("seed residence: %v", err)
	}
	if f.resident, err = s.CreateUser(ctx, "res@example.com", "Res", "resident", "x"); err != nil {
		t.Fatalf("seed resident: %v", err)
	}
	if f.tenant, err = s.CreateUser(ctx, "ten@example.com", "Ten", "tenant", "x"); err != nil {
		t.Fatalf("seed tenant: %v", err)
	}
	if err := s.AddResidenceMember(ctx, f.residence.ID, f.resident.ID); err != nil {
		t.Fatalf("seed resident membership: %v", err)
	}
	if err := s.AddResidenceMember(ctx, f.residence.ID, f.tenant.ID); err != nil {
		t.Fatalf("seed tenant membership: %v", err)
	}
	return f
}

func TestHandleInvitationEmail_MissingInvitationSucceeds(t *testing.T) {
	t.Parallel()
	s := testutil.NewTestDB(t)
	h := &Handlers{Store: s.Store, ExternalURL: "https://app.test"}

	payload, _ := json.Marshal(InvitationEmailPayload{InvitationID: uuid.New()})
	if err := h.HandleInvitationEmail(context.Background(), payload); err != nil {
		t.Errorf("missing invitation should succeed, got %v", err)
	}
}

func TestHandleBillReminder_SkipsNonUnpaid(t *testing.T) {
	t.Parallel()
	s := testutil.NewTestDB(t)
	f := seed(t, s)
	ctx := context.Background()
	h := &Handlers{Store: s.Store, ExternalURL: "https://app.test"}

	bill, err := s.CreateBill(ctx, store.CreateBillParams{
		ResidenceID: &f.residence.ID, Title: "Loyer", AmountCents: 100000,
		DueDate: time.Now(), VisibleToTenants: true, CreatedBy: f.resident.ID,
	})
	if err != nil {
		t.Fatalf("CreateBill: %v", err)
	}
	if _, err := s.UpdateBill(ctx, bill.ID, store.UpdateBillParams{
		Title: bill.Title, AmountCents: bill.AmountCents, DueDate: bill.DueDate,
		Status: store.BillStatusPaid, VisibleToTenants: true,
	}); err != nil {
		t.Fatalf("UpdateBill: %v", err)
	}

	payload, _ := json.Marshal(BillReminderPayload{BillID: bill.ID})
	if err := h.HandleBillReminder(ctx, payload); err != nil {
		t.Errorf("paid bill should be skipped, got %v", err)
	}
	got, _ := s.GetBill(ctx, bill.ID)
	if got.ReminderSentAt != nil {
		t.Error("skipped bill must not be stamped as reminded")
	}
}

func TestBillRecipients_TenantVisibility(t *testing.T) {
	t.Parallel()
	s := testutil.NewTestDB(t)
	f := seed(t, s)
	ctx := context.Background()
	h := &Handlers{Store: s.Store}

	hidden, _ := s.CreateBill(ctx, store.CreateBillParams{
		ResidenceID: &f.residence.ID, Title: "Travaux", AmountCents: 50000,
		DueDate: time.Now(), VisibleToTenants: false, CreatedBy: f.resident.ID,
	})
	got, err := h.billRecipients(ctx, hidden)
	if err != nil {
		t.Fatalf("billRecipients: %v", err)
	}
	if len(got) != 1 || got[0] != "res@example.com" {
		t.Errorf("hidden bill recipients = %v, want only resident", got)
	}

	visible, _ := s.CreateBill(ctx, store.CreateBillParams{
		ResidenceID: &f.residence.ID, Title: "Loyer", AmountCents: 100000,
		DueDate: time.Now(), VisibleToTenants: true, CreatedBy: f.resident.ID,
	})
	got, err = h.billRecipients(ctx, visible)
	if err != nil {
		t.Fatalf("billRecipients: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("visible bill recipients = %v, want resident and tenant", got)
	}
}

func TestBillRecipients_BuildingScoped(t *testing.T) {
	t.Parallel()
	s := testutil.NewTestDB(t)
	f := seed(t, s)
	ctx := context.Background()
	h := &Handlers{Store: s.Store}

	// A second residence with its own member, same building.
	other, _ := s.CreateResidence(ctx, f.building.ID, "102", nil)
	u, _ := s.CreateUser(ctx, "res2@example.com", "Res2", "resident", "x")
	_ = s.AddResidenceMember(ctx, other.ID, u.ID)

	bill, _ := s.CreateBill(ctx, store.CreateBillParams{
		BuildingID: &f.building.ID, Title: "Assurance", AmountCents: 300000,
		DueDate: time.Now(), VisibleToTenants: true, CreatedBy: f.resident.ID,
	})
	got, err := h.billRecipients(ctx, bill)
	if err != nil {
		t.Fatalf("billRecipients: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("building bill recipients = %v, want all 3 members", got)
	}
}

func TestScheduler_EnqueuesDueBills(t *testing.T) {
	t.Parallel()
	s := testutil.NewTestDB(t)
	f := seed(t, s)
	ctx := context.Background()

	due, _ := s.CreateBill(ctx, store.CreateBillParams{
		ResidenceID: &f.residence.ID, Title: "Loyer", AmountCents: 100000,
		DueDate: time.Now().AddDate(0, 0, 3), VisibleToTenants: true, CreatedBy: f.resident.ID,
	})
	_, _ = s.CreateBill(ctx, store.CreateBillParams{
		ResidenceID: &f.residence.ID, Title: "Loin", AmountCents: 100000,
		DueDate: time.Now().AddDate(0, 3, 0), VisibleToTenants: true, CreatedBy: f.resident.ID,
	})

	sched := &Scheduler{Store: s.Store, ReminderWindow: 7 * 24 * time.Hour}
	sched.enqueueBillReminders(ctx)

	job, err := s.ClaimJob(ctx, QueueBillReminder, "test-worker")
	if err != nil {
		t.Fatalf("ClaimJob: %v", err)
	}
	if job == nil {
		t.Fatal("scheduler should have enqueued a reminder job")
	}
	var p BillReminderPayload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if p.BillID != due.ID {
		t.Errorf("payload bill = %v, want %v", p.BillID, due.ID)
	}

	// The far-future bill must not be enqueued.
	_ = s.CompleteJob(ctx, job.ID)
	extra, _ := s.ClaimJob(ctx, QueueBillReminder, "test-worker")
	if extra != nil {
		t.Errorf("unexpected extra job: %v", extra)
	}
}
