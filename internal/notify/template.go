// ABOUTME: Template data structs for invitation and bill reminder emails.
package notify

import (
	"fmt"
	"strconv"
)

// InvitationTemplateData is the context passed to invitation email templates.
type InvitationTemplateData struct {
	OrgName        string
	Role           string
	ResidenceLabel string // "unité 101, Le Plateau" — empty for org-wide invites
	AcceptURL      string
	ExpiresAt      string // pre-formatted date
}

// BillReminderTemplateData is the context passed to bill reminder templates.
type BillReminderTemplateData struct {
	BillTitle      string
	Amount         string // pre-formatted "1 250,00 $"
	DueDate        string
	ResidenceLabel string
	PortalURL      string
}

// FormatCents renders an amount in cents as a québécois currency string,
// e.g. 125000 -> "1 250,00 $".
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	dollars := cents / 100
	rem := cents % 100

	// Group thousands with narrow spaces, French style.
	digits := strconv.FormatInt(dollars, 10)
	var grouped []byte
	for i, c := range []byte(digits) {
		if i > 0 && (len(digits)-i)%3 == 0 {
			grouped = append(grouped, ' ')
		}
		grouped = append(grouped, c)
	}
	return fmt.Sprintf("%s%s,%02d $", sign, grouped, rem)
}
