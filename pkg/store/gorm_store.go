package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"fleetonboard/pkg/domain"
)

const migrateLockID int64 = 52115211

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations under an advisory
// lock so concurrent replicas do not race the schema.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := withMigrationLock(db, func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(&UserModel{}, &RoleGrantModel{}, &ApplicationModel{}); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

// SaveUser registers or updates a user.
func (s *GormStore) SaveUser(u domain.User) error {
	model := userToModel(u)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "password_hash", "status", "updated_at"}),
	}).Create(&model).Error
}

// HasUserEmail checks if email exists.
func (s *GormStore) HasUserEmail(email string) (bool, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetUserByEmail looks up a user by email.
func (s *GormStore) GetUserByEmail(email string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.Where("email = ?", email).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetUserByID returns a user by ID.
func (s *GormStore) GetUserByID(id string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// UserCount returns number of users.
func (s *GormStore) UserCount() (int, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

// GrantRole records a role grant; granting twice is a no-op.
func (s *GormStore) GrantRole(userID, role string) error {
	model := RoleGrantModel{UserID: userID, Role: role, CreatedAt: time.Now().UTC()}
	return s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&model).Error
}

// HasRole checks whether the (user, role) grant exists.
func (s *GormStore) HasRole(userID, role string) (bool, error) {
	var count int64
	if err := s.db.Model(&RoleGrantModel{}).
		Where("user_id = ? AND role = ?", userID, role).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// InsertApplication persists a new submission. The payload column is
// never null: an empty document is stored as {}.
func (s *GormStore) InsertApplication(app domain.Application) error {
	model, err := applicationToModel(app)
	if err != nil {
		return err
	}
	return s.db.Create(&model).Error
}

// GetApplication retrieves one application by ID.
func (s *GormStore) GetApplication(id string) (domain.Application, bool, error) {
	var model ApplicationModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Application{}, false, nil
		}
		return domain.Application{}, false, err
	}
	return applicationFromModel(model), true, nil
}

// ListApplications runs the composed admin query: optional ILIKE search
// over name OR email, optional exact status filter, whitelisted sort.
func (s *GormStore) ListApplications(q ApplicationQuery) ([]domain.Application, error) {
	tx := s.db.Model(&ApplicationModel{})
	if search := strings.TrimSpace(q.Search); search != "" {
		pattern := "%" + search + "%"
		tx = tx.Where("applicant_name ILIKE ? OR email ILIKE ?", pattern, pattern)
	}
	if q.Status != "" {
		tx = tx.Where("status = ?", string(q.Status))
	}
	tx = tx.Order(orderClause(q))
	var models []ApplicationModel
	if err := tx.Find(&models).Error; err != nil {
		return nil, err
	}
	return applicationsFromModels(models), nil
}

// ListApplicationsByUser returns a user's own submissions, newest first.
func (s *GormStore) ListApplicationsByUser(userID string) ([]domain.Application, error) {
	var models []ApplicationModel
	if err := s.db.Where("user_id = ?", userID).
		Order("submitted_at DESC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	return applicationsFromModels(models), nil
}

// UpdateApplicationStatusBulk sets status on all listed ids in one
// statement and returns the number of rows touched.
func (s *GormStore) UpdateApplicationStatusBulk(ids []string, status domain.ApplicationStatus) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	if !domain.ValidStatus(status) {
		return 0, fmt.Errorf("invalid status %q", status)
	}
	res := s.db.Model(&ApplicationModel{}).
		Where("id IN ?", ids).
		Updates(map[string]any{
			"status":     string(status),
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

// orderClause maps the whitelisted sort fields to SQL. Anything else
// falls back to submission time.
func orderClause(q ApplicationQuery) string {
	col := "submitted_at"
	switch q.Sort {
	case SortApplicantName:
		col = "applicant_name"
	case SortEmail:
		col = "email"
	case SortSubmittedAt, "":
	}
	dir := "ASC"
	if q.Desc {
		dir = "DESC"
	}
	return col + " " + dir
}

func userToModel(u domain.User) UserModel {
	return UserModel{
		ID:           u.ID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Status:       string(u.Status),
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	status := domain.UserStatus(m.Status)
	if status == "" {
		status = domain.UserActive
	}
	return domain.User{
		ID:           m.ID,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		Status:       status,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func applicationToModel(app domain.Application) (ApplicationModel, error) {
	payload := app.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return ApplicationModel{}, fmt.Errorf("marshal payload: %w", err)
	}
	var userID *string
	if strings.TrimSpace(app.UserID) != "" {
		value := strings.TrimSpace(app.UserID)
		userID = &value
	}
	return ApplicationModel{
		ID:            app.ID,
		UserID:        userID,
		ApplicantName: app.ApplicantName,
		Email:         app.Email,
		Phone:         app.Phone,
		Status:        string(app.Status),
		Payload:       raw,
		SubmittedAt:   app.SubmittedAt,
		UpdatedAt:     app.UpdatedAt,
	}, nil
}

func applicationFromModel(m ApplicationModel) domain.Application {
	userID := ""
	if m.UserID != nil {
		userID = *m.UserID
	}
	payload := map[string]any{}
	if len(m.Payload) > 0 {
		_ = json.Unmarshal(m.Payload, &payload)
	}
	return domain.Application{
		ID:            m.ID,
		UserID:        userID,
		ApplicantName: m.ApplicantName,
		Email:         m.Email,
		Phone:         m.Phone,
		Status:        domain.ApplicationStatus(m.Status),
		Payload:       payload,
		SubmittedAt:   m.SubmittedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func applicationsFromModels(models []ApplicationModel) []domain.Application {
	res := make([]domain.Application, 0, len(models))
	for _, m := range models {
		res = append(res, applicationFromModel(m))
	}
	return res
}
