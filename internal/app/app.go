package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"fleetonboard/pkg/admin"
	"fleetonboard/pkg/auth"
	"fleetonboard/pkg/domain"
	"fleetonboard/pkg/notify"
	"fleetonboard/pkg/storage"
	"fleetonboard/pkg/store"
)

// Config wires the collaborators the service needs. Store, Sessions and
// RefreshTokens are required; Objects and Notifier are optional and
// degrade to "uploads disabled" and "no change feed".
type Config struct {
	Store         store.Store
	Sessions      store.SessionStore
	RefreshTokens store.RefreshTokenStore
	Notifier      notify.Publisher
	Objects       storage.ObjectStore

	RefreshTTL    time.Duration
	PresignExpiry time.Duration
}

// App is the core service wiring storage, auth, uploads and the change
// feed together.
type App struct {
	store         store.Store
	sessions      store.SessionStore
	refreshTokens store.RefreshTokenStore
	notifier      notify.Publisher
	objects       storage.ObjectStore
	refreshTTL    time.Duration
	presignExpiry time.Duration
}

// New constructs the application service.
func New(cfg Config) (*App, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.Sessions == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if cfg.RefreshTokens == nil {
		return nil, fmt.Errorf("refresh token store is required")
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	if cfg.PresignExpiry <= 0 {
		cfg.PresignExpiry = 24 * time.Hour
	}
	return &App{
		store:         cfg.Store,
		sessions:      cfg.Sessions,
		refreshTokens: cfg.RefreshTokens,
		notifier:      cfg.Notifier,
		objects:       cfg.Objects,
		refreshTTL:    cfg.RefreshTTL,
		presignExpiry: cfg.PresignExpiry,
	}, nil
}

// SignUp registers a user and issues a token pair. The first account is
// granted the admin role so a fresh deployment has an operator.
func (a *App) SignUp(email, password string) (domain.User, string, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return domain.User{}, "", "", ErrEmailAndPasswordRequired
	}
	if err := auth.ValidatePassword(password); err != nil {
		return domain.User{}, "", "", err
	}
	exists, err := a.store.HasUserEmail(email)
	if err != nil {
		return domain.User{}, "", "", fmt.Errorf("check email: %w", err)
	}
	if exists {
		return domain.User{}, "", "", ErrEmailAlreadyExists
	}
	count, err := a.store.UserCount()
	if err != nil {
		return domain.User{}, "", "", fmt.Errorf("count users: %w", err)
	}
	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, "", "", fmt.Errorf("hash password: %w", err)
	}
	now := time.Now().UTC()
	user := domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		Status:       domain.UserActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := a.store.SaveUser(user); err != nil {
		return domain.User{}, "", "", fmt.Errorf("save user: %w", err)
	}
	if count == 0 {
		if err := a.store.GrantRole(user.ID, domain.RoleAdmin); err != nil {
			return domain.User{}, "", "", fmt.Errorf("grant admin role: %w", err)
		}
	}
	return a.issueUserTokens(user)
}

// SignIn validates credentials and issues a token pair.
func (a *App) SignIn(email, password string) (domain.User, string, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	user, ok, err := a.store.GetUserByEmail(email)
	if err != nil {
		return domain.User{}, "", "", fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return domain.User{}, "", "", ErrInvalidCredentials
	}
	if user.Status == domain.UserDisabled {
		return domain.User{}, "", "", ErrUserDisabled
	}
	if !auth.CheckPassword(password, user.PasswordHash) {
		return domain.User{}, "", "", ErrInvalidCredentials
	}
	return a.issueUserTokens(user)
}

// Refresh rotates the refresh token and issues a new pair.
func (a *App) Refresh(refreshToken string) (domain.User, string, string, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return domain.User{}, "", "", ErrRefreshTokenRequired
	}
	userID, newRefreshToken, err := a.refreshTokens.RotateToken(refreshToken, a.refreshTTL)
	if err != nil {
		if errors.Is(err, store.ErrInvalidRefreshToken) || errors.Is(err, store.ErrRefreshTokenReplay) {
			return domain.User{}, "", "", ErrInvalidRefreshToken
		}
		return domain.User{}, "", "", fmt.Errorf("rotate refresh token: %w", err)
	}
	user, found, err := a.store.GetUserByID(userID)
	if err != nil {
		return domain.User{}, "", "", fmt.Errorf("fetch user: %w", err)
	}
	if !found || user.Status == domain.UserDisabled {
		_ = a.refreshTokens.DeleteToken(newRefreshToken)
		return domain.User{}, "", "", ErrInvalidRefreshToken
	}
	accessToken, err := a.sessions.NewSession(user.ID)
	if err != nil {
		_ = a.refreshTokens.DeleteToken(newRefreshToken)
		return domain.User{}, "", "", fmt.Errorf("issue access token: %w", err)
	}
	return user, accessToken, newRefreshToken, nil
}

// Logout invalidates the session and optional refresh token.
func (a *App) Logout(accessToken, refreshToken string) error {
	if err := a.sessions.DeleteSession(accessToken); err != nil {
		return err
	}
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil
	}
	return a.refreshTokens.DeleteToken(refreshToken)
}

// UserFromToken resolves a user from a session token.
func (a *App) UserFromToken(token string) (domain.User, bool) {
	uid, ok, err := a.sessions.GetUserIDByToken(token)
	if err != nil || !ok {
		return domain.User{}, false
	}
	user, found, err := a.store.GetUserByID(uid)
	if err != nil || !found {
		return domain.User{}, false
	}
	if user.Status == domain.UserDisabled {
		return domain.User{}, false
	}
	return user, true
}

// HasRole answers role-grant lookups. Resolved fresh on every call:
// grants are never cached across requests.
func (a *App) HasRole(userID, role string) (bool, error) {
	return a.store.HasRole(userID, role)
}

func (a *App) issueUserTokens(user domain.User) (domain.User, string, string, error) {
	accessToken, err := a.sessions.NewSession(user.ID)
	if err != nil {
		return domain.User{}, "", "", fmt.Errorf("issue access token: %w", err)
	}
	refreshToken, err := a.refreshTokens.NewToken(user.ID, a.refreshTTL)
	if err != nil {
		return domain.User{}, "", "", fmt.Errorf("issue refresh token: %w", err)
	}
	return user, accessToken, refreshToken, nil
}

// SubmitApplication persists a wizard submission and announces the
// insert on the change feed. Missing identifiers and timestamps are
// stamped here so callers may pass a bare payload.
func (a *App) SubmitApplication(ctx context.Context, application domain.Application) (string, error) {
	if application.ID == "" {
		application.ID = uuid.NewString()
	}
	if application.Status == "" {
		application.Status = domain.StatusPending
	}
	if !domain.ValidStatus(application.Status) {
		return "", ErrInvalidStatus
	}
	if application.Payload == nil {
		application.Payload = map[string]any{}
	}
	now := time.Now().UTC()
	if application.SubmittedAt.IsZero() {
		application.SubmittedAt = now
	}
	if application.UpdatedAt.Before(application.SubmittedAt) {
		application.UpdatedAt = application.SubmittedAt
	}
	if err := a.store.InsertApplication(application); err != nil {
		return "", fmt.Errorf("insert application: %w", err)
	}
	a.publishChange(ctx, domain.OpInsert, application.ID)
	return application.ID, nil
}

// GetApplication fetches one application.
func (a *App) GetApplication(id string) (domain.Application, bool, error) {
	return a.store.GetApplication(id)
}

// ListMyApplications returns a user's own submissions.
func (a *App) ListMyApplications(userID string) ([]domain.Application, error) {
	return a.store.ListApplicationsByUser(userID)
}

// ListApplications runs the composed admin query.
func (a *App) ListApplications(q store.ApplicationQuery) ([]domain.Application, error) {
	return a.store.ListApplications(q)
}

// BulkUpdateStatus applies one status to the given ids in a single
// backend call and announces the update on the change feed.
func (a *App) BulkUpdateStatus(ctx context.Context, ids []string, status domain.ApplicationStatus) (int64, error) {
	if len(ids) == 0 {
		return 0, ErrNoApplicationIDs
	}
	if !domain.ValidStatus(status) {
		return 0, ErrInvalidStatus
	}
	touched, err := a.store.UpdateApplicationStatusBulk(ids, status)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		a.publishChange(ctx, domain.OpUpdate, id)
	}
	return touched, nil
}

// ExportCSV streams the current query's result set as CSV.
func (a *App) ExportCSV(w io.Writer, q store.ApplicationQuery) error {
	rows, err := a.store.ListApplications(q)
	if err != nil {
		return err
	}
	return admin.WriteCSV(w, rows)
}

// UploadDocument stores a fleet document and returns a pre-signed URL
// plus the storage key. Content is stored opaquely.
func (a *App) UploadDocument(ctx context.Context, filename string, r io.Reader, size int64, contentType string) (string, string, error) {
	if a.objects == nil {
		return "", "", ErrStorageUnavailable
	}
	key := storage.DocumentKey(uuid.NewString(), filename)
	if err := a.objects.Put(ctx, key, r, size, contentType); err != nil {
		return "", "", fmt.Errorf("store document: %w", err)
	}
	url, err := a.objects.PresignGet(ctx, key, a.presignExpiry)
	if err != nil {
		return "", "", fmt.Errorf("presign document: %w", err)
	}
	return url, key, nil
}

func (a *App) publishChange(ctx context.Context, op domain.ChangeOp, recordID string) {
	if a.notifier == nil {
		return
	}
	event := domain.ChangeEvent{
		Table:      domain.TableApplications,
		Op:         op,
		RecordID:   recordID,
		OccurredAt: time.Now().UTC(),
	}
	if err := a.notifier.Publish(ctx, event); err != nil {
		// The feed is advisory; a lost event must never fail the mutation.
		slog.Warn("publish change event failed", "table", event.Table, "op", event.Op, "err", err)
	}
}
