// ABOUTME: Tests for email template rendering — subject sanitization, escaping,
// ABOUTME: and the currency formatter.
package notify

import (
	"strings"
	"testing"
)

func TestRenderInvitation(t *testing.T) {
	t.Parallel()

	subject, html, text, err := RenderInvitation(InvitationTemplateData{
		OrgName:        "Gestion Tremblay",
		Role:           "locataire",
		ResidenceLabel: "unité 101, Le Plateau",
		AcceptURL:      "https://app.example.com/invitations/tok123",
		ExpiresAt:      "7 septembre 2026",
	})
	if err != nil {
		t.Fatalf("RenderInvitation: %v", err)
	}
	if !strings.Contains(subject, "Gestion Tremblay") {
		t.Errorf("subject %q missing org name", subject)
	}
	for _, body := range []string{html, text} {
		if !strings.Contains(body, "unité 101, Le Plateau") {
			t.Errorf("body missing residence label:\n%s", body)
		}
		if !strings.Contains(body, "https://app.example.com/invitations/tok123") {
			t.Errorf("body missing accept URL:\n%s", body)
		}
	}
}

func TestRenderInvitation_OrgWideOmitsResidence(t *testing.T) {
	t.Parallel()

	_, _, text, err := RenderInvitation(InvitationTemplateData{
		OrgName:   "Gestion Tremblay",
		Role:      "gestionnaire",
		AcceptURL: "https://app.example.com/invitations/tok456",
		ExpiresAt: "7 septembre 2026",
	})
	if err != nil {
		t.Fatalf("RenderInvitation: %v", err)
	}
	if strings.Contains(text, "pour ") && strings.Contains(text, "unité") {
		t.Errorf("org-wide invite should not mention a residence:\n%s", text)
	}
}

func TestRenderInvitation_SubjectInjection(t *testing.T) {
	t.Parallel()

	subject, _, _, err := RenderInvitation(InvitationTemplateData{
		OrgName:   "Evil\r\nBcc: victim@example.com",
		Role:      "locataire",
		AcceptURL: "https://x",
		ExpiresAt: "demain",
	})
	if err != nil {
		t.Fatalf("RenderInvitation: %v", err)
	}
	if strings.ContainsAny(subject, "\r\n") {
		t.Errorf("subject retains CR/LF: %q", subject)
	}
}

func TestRenderInvitation_HTMLEscapesOrgName(t *testing.T) {
	t.Parallel()

	_, html, _, err := RenderInvitation(InvitationTemplateData{
		OrgName:   `<script>alert(1)</script>`,
		Role:      "locataire",
		AcceptURL: "https://x",
		ExpiresAt: "demain",
	})
	if err != nil {
		t.Fatalf("RenderInvitation: %v", err)
	}
	if strings.Contains(html, "<script>") {
		t.Error("org name not escaped in HTML body")
	}
}

func TestRenderBillReminder(t *testing.T) {
	t.Parallel()

	subject, _, text, err := RenderBillReminder(BillReminderTemplateData{
		BillTitle:      "Loyer septembre",
		Amount:         FormatCents(125000),
		DueDate:        "1 septembre 2026",
		ResidenceLabel: "unité 101",
		PortalURL:      "https://app.example.com/bills",
	})
	if err != nil {
		t.Fatalf("RenderBillReminder: %v", err)
	}
	if !strings.Contains(subject, "Loyer septembre") {
		t.Errorf("subject %q missing bill title", subject)
	}
	if !strings.Contains(text, "1 250,00 $") {
		t.Errorf("text body missing formatted amount:\n%s", text)
	}
}

func TestFormatCents(t *testing.T) {
	t.Parallel()

	cases := []struct {
		cents int64
		want  string
	}{
		{0, "0,00 $"},
		{5, "0,05 $"},
		{125000, "1 250,00 $"},
		{100000000, "1 000 000,00 $"},
		{-9950, "-99,50 $"},
	}
	for _, tc := range cases {
		if got := FormatCents(tc.cents); got != tc.want {
			t.Errorf("FormatCents(%d) = %q, want %q", tc.cents, got, tc.want)
		}
	}
}
