package application

import (
	"time"

	"github.com/bluetech/invoice-desk/internal/invoice"
)

// Role grants access levels inside the desk.
type Role string

const (
	// RoleAdmin may manage users, read history and audit data and reset the desk.
	RoleAdmin Role = "Admin"
	// RoleViewer may edit and submit the draft only.
	RoleViewer Role = "Viewer"
)

// Seeded account present on first run. It can never be deleted.
const (
	DefaultUserID          = "admin-1"
	DefaultUsername        = "admin"
	DefaultUserPassword    = "admin"
	DefaultUserDisplayName = "System Admin"
)

// Principal represents the authenticated user invoking a service method.
type Principal struct {
	UserID   string
	Username string
	Role     Role
}

// IsAdmin reports whether the principal holds the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// Authenticated reports whether the principal came from a valid session.
func (p Principal) Authenticated() bool {
	return p.UserID != ""
}

// User is an operator account. Passwords are kept and compared in plaintext.
type User struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
	Role        Role   `json:"role"`
	IsDefault   bool   `json:"isDefault,omitempty"`
}

// Principal returns the principal acting as u.
func (u User) Principal() Principal {
	return Principal{UserID: u.ID, Username: u.Username, Role: u.Role}
}

// DefaultUser returns the seeded administrator.
func DefaultUser() User {
	return User{
		ID:          DefaultUserID,
		Username:    DefaultUsername,
		Password:    DefaultUserPassword,
		DisplayName: DefaultUserDisplayName,
		Role:        RoleAdmin,
		IsDefault:   true,
	}
}

// UserInput captures caller provided user attributes.
type UserInput struct {
	Username    string `json:"username" validate:"required"`
	Password    string `json:"password" validate:"required"`
	DisplayName string `json:"displayName" validate:"required"`
	Role        Role   `json:"role" validate:"omitempty,oneof=Admin Viewer"`
}

// Session is the single active login.
type Session struct {
	Token     string
	UserID    string
	CreatedAt time.Time
}

// LoginParams captures the data required to authenticate a user.
type LoginParams struct {
	Username string
	Password string
}

// LoginResult captures the outcome of a successful login.
type LoginResult struct {
	Session Session
	User    User
}

// HistoryStatus records the outcome of a submission.
type HistoryStatus string

// HistorySent is the only recorded outcome; failures go to the audit log.
const HistorySent HistoryStatus = "sent"

// HistoryItem is an immutable snapshot of a delivered invoice.
type HistoryItem struct {
	ID         string          `json:"id"`
	Date       string          `json:"date"`
	ClientName string          `json:"clientName"`
	Total      float64         `json:"total"`
	Status     HistoryStatus   `json:"status"`
	Payload    invoice.Payload `json:"payload"`
}

func (h HistoryItem) clone() HistoryItem {
	out := h
	out.Payload.Draft = h.Payload.Draft.Clone()
	return out
}

// AuditEntry records one security relevant or state changing action.
type AuditEntry struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Action    string `json:"action"`
	User      string `json:"user"`
}

// FieldChange is a generic change notification from the input surface.
type FieldChange struct {
	Name  string
	Value string
	// Type is the input type reported by the surface, such as "text" or "number".
	Type string
}

// LineItemChange edits one field of one line item.
type LineItemChange struct {
	Index int
	Field string
	Value string
}

// DraftView pairs the draft with its derived totals.
type DraftView struct {
	Draft      invoice.Draft      `json:"draft"`
	Calculated invoice.Calculated `json:"calculated"`
}

func newDraftView(d invoice.Draft) DraftView {
	return DraftView{Draft: d, Calculated: invoice.Calculate(d)}
}
