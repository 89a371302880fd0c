package store

import (
	"fleetonboard/pkg/domain"
)

// ApplicationSortField names the columns the admin board may sort on.
type ApplicationSortField string

const (
	SortSubmittedAt   ApplicationSortField = "submitted_at"
	SortApplicantName ApplicationSortField = "applicant_name"
	SortEmail         ApplicationSortField = "email"
)

// ApplicationQuery composes the admin board's search, filter and sort into
// one backend query. Zero value means: all records, newest first.
type ApplicationQuery struct {
	// Search matches case-insensitively against applicant name OR email.
	Search string
	// Status restricts to an exact match when non-empty.
	Status domain.ApplicationStatus
	// Sort falls back to SortSubmittedAt when empty.
	Sort ApplicationSortField
	// Desc selects descending order.
	Desc bool
}

// Store defines persistence for users, role grants and applications.
type Store interface {
	// users
	SaveUser(domain.User) error
	HasUserEmail(email string) (bool, error)
	GetUserByEmail(email string) (domain.User, bool, error)
	GetUserByID(id string) (domain.User, bool, error)
	UserCount() (int, error)

	// role grants
	GrantRole(userID, role string) error
	HasRole(userID, role string) (bool, error)

	// applications
	InsertApplication(domain.Application) error
	GetApplication(id string) (domain.Application, bool, error)
	ListApplications(q ApplicationQuery) ([]domain.Application, error)
	ListApplicationsByUser(userID string) ([]domain.Application, error)
	UpdateApplicationStatusBulk(ids []string, status domain.ApplicationStatus) (int64, error)
}

// SessionStore issues and resolves session tokens.
type SessionStore interface {
	NewSession(userID string) (string, error)
	GetUserIDByToken(token string) (string, bool, error)
	DeleteSession(token string) error
}
