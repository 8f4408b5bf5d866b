// ABOUTME: Template rendering for invitation and bill reminder emails.
// ABOUTME: Templates parsed once at init from embedded FS; rendered per delivery.
package notify

import (
	"bytes"
	"embed"
	"fmt"
	htmltpl "html/template"
	"strings"
	texttpl "text/template"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Parsed templates — one per file to avoid {{define}} namespace collisions.
var (
	invitationHTML *htmltpl.Template
	invitationText *texttpl.Template
	reminderHTML   *htmltpl.Template
	reminderText   *texttpl.Template
)

func init() {
	invitationHTML = htmltpl.Must(htmltpl.ParseFS(templateFS, "templates/email_invitation.html.tmpl"))
	invitationText = texttpl.Must(texttpl.ParseFS(templateFS, "templates/email_invitation.txt.tmpl"))
	reminderHTML = htmltpl.Must(htmltpl.ParseFS(templateFS, "templates/email_bill_reminder.html.tmpl"))
	reminderText = texttpl.Must(texttpl.ParseFS(templateFS, "templates/email_bill_reminder.txt.tmpl"))
}

// RenderInvitation renders an invitation email. Returns subject, HTML body,
// and plaintext body.
func RenderInvitation(data InvitationTemplateData) (string, string, string, error) {
	return renderPair(invitationHTML, invitationText, data)
}

// RenderBillReminder renders a bill reminder email. Returns subject, HTML
// body, and plaintext body.
func RenderBillReminder(data BillReminderTemplateData) (string, string, string, error) {
	return renderPair(reminderHTML, reminderText, data)
}

func renderPair(html *htmltpl.Template, text *texttpl.Template, data any) (string, string, string, error) {
	// Render subject from the text template's "subject" block.
	var subjectBuf bytes.Buffer
	if err := text.ExecuteTemplate(&subjectBuf, "subject", data); err != nil {
		return "", "", "", fmt.Errorf("render subject: %w", err)
	}
	subject := sanitizeSubject(subjectBuf.String())

	var htmlBuf bytes.Buffer
	if err := html.ExecuteTemplate(&htmlBuf, "body", data); err != nil {
		return "", "", "", fmt.Errorf("render html: %w", err)
	}

	var textBuf bytes.Buffer
	if err := text.ExecuteTemplate(&textBuf, "body", data); err != nil {
		return "", "", "", fmt.Errorf("render text: %w", err)
	}

	return subject, htmlBuf.String(), textBuf.String(), nil
}

// sanitizeSubject strips CR/LF to prevent email header injection.
func sanitizeSubject(s string) string {
	s = strings.TrimSpace(s)
	return strings.NewReplacer("\r", "", "\n", "").Replace(s)
}
