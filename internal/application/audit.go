package application

import (
	"strings"
	"time"
)

// MaxAuditEntries caps the audit log. Older entries are dropped silently.
const MaxAuditEntries = 50

// DisplayTimeLayout formats audit timestamps and history dates.
const DisplayTimeLayout = "1/2/2006, 3:04:05 PM"

// SystemActor is recorded when no operator is attached to an action.
const SystemActor = "System"

// Audit actions.
const (
	ActionLogin            = "User Login"
	ActionLogout           = "User Logout"
	ActionSubmissionFailed = "Invoice Submission Failed"

	actionAddedMember   = "Added Team Member: "
	actionDeletedMember = "Deleted Team Member: "
	actionInvoiceSent   = "Invoice Sent: "
)

// AddedMemberAction is the audit action for a created user.
func AddedMemberAction(username string) string { return actionAddedMember + username }

// DeletedMemberAction is the audit action for a removed user.
func DeletedMemberAction(username string) string { return actionDeletedMember + username }

// InvoiceSentAction is the audit action for a delivered invoice.
func InvoiceSentAction(historyID string) string { return actionInvoiceSent + historyID }

// auditRecorder stamps entries with ids and display timestamps.
type auditRecorder struct {
	idGenerator func() string
	now         func() time.Time
}

func (r auditRecorder) entry(action, user string) AuditEntry {
	user = strings.TrimSpace(user)
	if user == "" {
		user = SystemActor
	}
	return AuditEntry{
		ID:        r.idGenerator(),
		Timestamp: r.now().Format(DisplayTimeLayout),
		Action:    action,
		User:      user,
	}
}

// prependAudit returns a new log with e first, truncated to MaxAuditEntries.
func prependAudit(log []AuditEntry, e AuditEntry) []AuditEntry {
	n := len(log) + 1
	if n > MaxAuditEntries {
		n = MaxAuditEntries
	}
	out := make([]AuditEntry, 0, n)
	out = append(out, e)
	out = append(out, log[:n-1]...)
	return out
}

func capAudit(log []AuditEntry) []AuditEntry {
	if len(log) <= MaxAuditEntries {
		return log
	}
	return log[:MaxAuditEntries]
}
