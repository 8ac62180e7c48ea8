package repositories

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nithinycr7/discipline-ai-health-prod-sub001/domain"
	"gorm.io/gorm"
)

// UserRepositoryImpl implements domain.UserRepository using GORM
type UserRepositoryImpl struct {
	db *gorm.DB
}

// DBUser represents the database model for User (with GORM tags).
// Phone, email and external_auth_id are nullable so the unique indexes only
// apply to accounts that actually carry them.
type DBUser struct {
	ID                    string    `gorm:"primaryKey;size:36"`
	Phone                 *string   `gorm:"uniqueIndex;size:32"`
	Email                 *string   `gorm:"uniqueIndex;size:255"`
	PasswordHash          string    `gorm:"column:password"`
	Name                  string    `gorm:"size:255;not null"`
	Role                  string    `gorm:"index;size:32;not null"`
	Location              string    `gorm:"size:255"`
	Timezone              string    `gorm:"size:64"`
	RelationshipToPatient string    `gorm:"size:64"`
	HospitalName          string    `gorm:"size:255"`
	ExternalAuthID        *string   `gorm:"uniqueIndex;size:128"`
	PhoneVerified         bool      `gorm:"not null;default:false"`
	EmailVerified         bool      `gorm:"not null;default:false"`
	AuthProvider          string    `gorm:"size:16"`
	Tag                   string    `gorm:"size:32"`
	NotifyWeekly          bool      `gorm:"not null;default:true"`
	NotifyDaily           bool      `gorm:"not null;default:false"`
	NotifyAlerts          bool      `gorm:"not null;default:true"`
	CreatedAt             time.Time `gorm:"index"`
	UpdatedAt             time.Time
}

// TableName returns the table name for GORM
func (DBUser) TableName() string {
	return "users"
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) domain.UserRepository {
	return &UserRepositoryImpl{db: db}
}

// Create implements domain.UserRepository
func (r *UserRepositoryImpl) Create(ctx context.Context, user *domain.NewUser) (*domain.User, error) {
	dbUser := r.domainToDB(user)
	if dbUser.ID == "" {
		dbUser.ID = uuid.NewString()
	}
	// Boolean defaults would otherwise swallow explicit false values.
	err := r.db.WithContext(ctx).
		Select("*").
		Create(dbUser).Error
	if err != nil {
		if isDuplicateKey(err) {
			return nil, domain.ErrDuplicateUser
		}
		return nil, err
	}
	return r.dbToDomain(dbUser), nil
}

// FindByID implements domain.UserRepository
func (r *UserRepositoryImpl) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findOne(ctx, "id = ?", id)
}

// FindByPhone implements domain.UserRepository
func (r *UserRepositoryImpl) FindByPhone(ctx context.Context, phone string) (*domain.User, error) {
	if phone == "" {
		return nil, domain.ErrUserNotFound
	}
	return r.findOne(ctx, "phone = ?", phone)
}

// FindByEmail implements domain.UserRepository
func (r *UserRepositoryImpl) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	if email == "" {
		return nil, domain.ErrUserNotFound
	}
	return r.findOne(ctx, "email = ?", email)
}

// FindByExternalAuthID implements domain.UserRepository
func (r *UserRepositoryImpl) FindByExternalAuthID(ctx context.Context, externalAuthID string) (*domain.User, error) {
	if externalAuthID == "" {
		return nil, domain.ErrUserNotFound
	}
	return r.findOne(ctx, "external_auth_id = ?", externalAuthID)
}

// FindCredentialsByEmail implements domain.UserRepository
func (r *UserRepositoryImpl) FindCredentialsByEmail(ctx context.Context, email string) (*domain.Credentials, error) {
	if email == "" {
		return nil, domain.ErrUserNotFound
	}
	var dbUser DBUser
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&dbUser).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return &domain.Credentials{
		User:         *r.dbToDomain(&dbUser),
		PasswordHash: dbUser.PasswordHash,
	}, nil
}

// LinkExternalIdentity implements domain.UserRepository
func (r *UserRepositoryImpl) LinkExternalIdentity(ctx context.Context, userID, externalAuthID string, phoneVerified bool) error {
	updates := map[string]interface{}{"external_auth_id": externalAuthID}
	if phoneVerified {
		updates["phone_verified"] = true
	}

	res := r.db.WithContext(ctx).Model(&DBUser{}).Where("id = ?", userID).Updates(updates)
	if res.Error != nil {
		if isDuplicateKey(res.Error) {
			return domain.ErrDuplicateUser
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepositoryImpl) findOne(ctx context.Context, query string, arg string) (*domain.User, error) {
	var dbUser DBUser
	err := r.db.WithContext(ctx).Omit("password").Where(query, arg).First(&dbUser).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return r.dbToDomain(&dbUser), nil
}

// isDuplicateKey recognises unique violations from both the translated gorm
// error and raw driver messages (sqlite, postgres).
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key")
}

// domainToDB converts domain user to database user
func (r *UserRepositoryImpl) domainToDB(nu *domain.NewUser) *DBUser {
	u := nu.User
	return &DBUser{
		ID:                    u.ID,
		Phone:                 nullable(u.Phone),
		Email:                 nullable(u.Email),
		PasswordHash:          nu.PasswordHash,
		Name:                  u.Name,
		Role:                  string(u.Role),
		Location:              u.Location,
		Timezone:              u.Timezone,
		RelationshipToPatient: u.RelationshipToPatient,
		HospitalName:          u.HospitalName,
		ExternalAuthID:        nullable(u.ExternalAuthID),
		PhoneVerified:         u.PhoneVerified,
		EmailVerified:         u.EmailVerified,
		AuthProvider:          string(u.AuthProvider),
		Tag:                   u.Tag,
		NotifyWeekly:          u.NotificationPreferences.Weekly,
		NotifyDaily:           u.NotificationPreferences.Daily,
		NotifyAlerts:          u.NotificationPreferences.Alerts,
	}
}

// dbToDomain converts database user to domain user
func (r *UserRepositoryImpl) dbToDomain(dbUser *DBUser) *domain.User {
	return &domain.User{
		ID:                    dbUser.ID,
		Phone:                 deref(dbUser.Phone),
		Email:                 deref(dbUser.Email),
		Name:                  dbUser.Name,
		Role:                  domain.Role(dbUser.Role),
		Location:              dbUser.Location,
		Timezone:              dbUser.Timezone,
		RelationshipToPatient: dbUser.RelationshipToPatient,
		HospitalName:          dbUser.HospitalName,
		ExternalAuthID:        deref(dbUser.ExternalAuthID),
		PhoneVerified:         dbUser.PhoneVerified,
		EmailVerified:         dbUser.EmailVerified,
		AuthProvider:          domain.AuthProvider(dbUser.AuthProvider),
		Tag:                   dbUser.Tag,
		NotificationPreferences: domain.NotificationPreferences{
			Weekly: dbUser.NotifyWeekly,
			Daily:  dbUser.NotifyDaily,
			Alerts: dbUser.NotifyAlerts,
		},
		CreatedAt: dbUser.CreatedAt,
		UpdatedAt: dbUser.UpdatedAt,
	}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
