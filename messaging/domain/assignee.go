package domain

import (
	"strings"
)

// UnassignedCode is the assignee code used for customers nobody owns yet.
const UnassignedCode = "UNASSIGNED"

// AssigneeDirectory resolves who gets notified about a customer and which
// number a chat message goes out from. Codes are case-insensitive.
type AssigneeDirectory struct {
	emails       map[string]string
	senders      map[string]string
	defaultEmail string
}

// NewAssigneeDirectory builds an immutable directory. Map keys are assignee codes.
func NewAssigneeDirectory(emails, senders map[string]string, defaultEmail string) *AssigneeDirectory {
	d := &AssigneeDirectory{
		emails:       make(map[string]string, len(emails)),
		senders:      make(map[string]string, len(senders)),
		defaultEmail: strings.TrimSpace(defaultEmail),
	}
	for k, v := range emails {
		if v = strings.TrimSpace(v); v != "" {
			d.emails[NormalizeAssignee(k)] = v
		}
	}
	for k, v := range senders {
		if v = strings.TrimSpace(v); v != "" {
			d.senders[NormalizeAssignee(k)] = v
		}
	}
	return d
}

// NormalizeAssignee upper-cases a code and maps blanks to UnassignedCode.
func NormalizeAssignee(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return UnassignedCode
	}
	return code
}

// NotificationEmail falls back from the assignee's address to the
// unassigned inbox and finally to the default address.
func (d *AssigneeDirectory) NotificationEmail(assignee string) string {
	if d == nil {
		return ""
	}
	if email, ok := d.emails[NormalizeAssignee(assignee)]; ok {
		return email
	}
	if email, ok := d.emails[UnassignedCode]; ok {
		return email
	}
	return d.defaultEmail
}

// Sender returns the chat sender for the assignee, or fallback.
func (d *AssigneeDirectory) Sender(assignee, fallback string) string {
	if d != nil {
		if s, ok := d.senders[NormalizeAssignee(assignee)]; ok {
			return s
		}
	}
	return fallback
}

// DisplayName turns "MARTIN" into "Martin" and UNASSIGNED into "Sales team".
func DisplayName(assignee string) string {
	code := NormalizeAssignee(assignee)
	if code == UnassignedCode {
		return "Sales team"
	}
	lower := strings.ToLower(strings.ReplaceAll(code, "_", " "))
	return strings.ToUpper(lower[:1]) + lower[1:]
}
