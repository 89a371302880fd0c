package domain

import "time"

type ApplicationStatus string

const (
	StatusPending  ApplicationStatus = "pending"
	StatusInReview ApplicationStatus = "in_review"
	StatusApproved ApplicationStatus = "approved"
	StatusRejected ApplicationStatus = "rejected"
)

// ValidStatus reports whether s belongs to the closed status domain.
func ValidStatus(s ApplicationStatus) bool {
	switch s {
	case StatusPending, StatusInReview, StatusApproved, StatusRejected:
		return true
	}
	return false
}

type UserStatus string

const (
	UserActive   UserStatus = "active"
	UserDisabled UserStatus = "disabled"
)

// RoleAdmin is the only role the service checks today. Grants are
// stored as (user, role) pairs so further roles need no schema change.
const RoleAdmin = "admin"

type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Status       UserStatus `json:"status"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// RoleGrant links an identity to a named role. Unique per (UserID, Role).
type RoleGrant struct {
	UserID    string    `json:"userId"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// Application is a persisted onboarding submission. Contact fields are
// denormalized from the payload for fast search and sort; the payload
// keeps the full wizard document.
type Application struct {
	ID            string            `json:"id"`
	UserID        string            `json:"userId,omitempty"`
	ApplicantName string            `json:"applicantName,omitempty"`
	Email         string            `json:"email,omitempty"`
	Phone         string            `json:"phone,omitempty"`
	Status        ApplicationStatus `json:"status"`
	Payload       map[string]any    `json:"payload"`
	SubmittedAt   time.Time         `json:"submittedAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

// VehicleEntry is one truck in a fleet submission. Documents hold object
// storage URLs for roadworthy/insurance uploads.
type VehicleEntry struct {
	Type         string   `json:"type"`
	Capacity     float64  `json:"capacity"`
	Registration string   `json:"registration"`
	Documents    []string `json:"documents,omitempty"`
}

// Complete reports whether the entry has the fields an operator needs to
// review it. Capacity is deliberately excluded.
func (v VehicleEntry) Complete() bool {
	return v.Type != "" && v.Registration != ""
}

type ChangeOp string

const (
	OpInsert ChangeOp = "insert"
	OpUpdate ChangeOp = "update"
	OpDelete ChangeOp = "delete"
)

// ChangeEvent signals that a table changed. It carries no row diff;
// consumers re-fetch whatever they were looking at.
type ChangeEvent struct {
	Table      string    `json:"table"`
	Op         ChangeOp  `json:"op"`
	RecordID   string    `json:"recordId,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// TableApplications is the table name used in change events.
const TableApplications = "applications"
