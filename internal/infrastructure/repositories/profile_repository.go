package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/Yashdhankecha/Milkat-post-sub001/domain"
)

// ProfileRepositoryImpl implements domain.ProfileStore using GORM
type ProfileRepositoryImpl struct {
	db *gorm.DB
}

// DBAccount represents the backend account owning role profiles
type DBAccount struct {
	ID        string    `gorm:"primaryKey;size:64"`
	Phone     string    `gorm:"index;size:32"`
	Suspended bool      `gorm:"index"`
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
}

// TableName returns the table name for GORM
func (DBAccount) TableName() string {
	return "accounts"
}

// DBRoleProfile represents one role-scoped profile row
type DBRoleProfile struct {
	ID          string         `gorm:"primaryKey;size:64"`
	AccountID   string         `gorm:"index;size:64"`
	Phone       string         `gorm:"index;size:32"`
	Role        string         `gorm:"index;size:32"`
	DisplayName string         `gorm:"size:255"`
	Suspended   bool           `gorm:"index"`
	CreatedAt   time.Time      `gorm:"index"`
	UpdatedAt   time.Time
	DeletedAt   gorm.DeletedAt `gorm:"index"`
}

// TableName returns the table name for GORM
func (DBRoleProfile) TableName() string {
	return "role_profiles"
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *gorm.DB) domain.ProfileStore {
	return &ProfileRepositoryImpl{db: db}
}

// FindProfilesByPhoneVariants implements domain.ProfileStore.
// Rows with a role this service does not know are skipped.
func (r *ProfileRepositoryImpl) FindProfilesByPhoneVariants(ctx context.Context, variants []string) ([]domain.RoleProfile, error) {
	if len(variants) == 0 {
		return nil, nil
	}

	var rows []DBRoleProfile
	err := r.db.WithContext(ctx).
		Where("phone IN ?", variants).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("find profiles by phone: %w", err)
	}

	profiles := make([]domain.RoleProfile, 0, len(rows))
	for i := range rows {
		p, ok := r.dbToDomain(&rows[i])
		if !ok {
			continue
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

// IsSuspended implements domain.ProfileStore. Unknown accounts are not suspended.
func (r *ProfileRepositoryImpl) IsSuspended(ctx context.Context, accountID string) (bool, error) {
	var account DBAccount
	err := r.db.WithContext(ctx).Where("id = ?", accountID).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("load account %s: %w", accountID, err)
	}
	return account.Suspended, nil
}

// dbToDomain converts a database row to a domain profile
func (r *ProfileRepositoryImpl) dbToDomain(row *DBRoleProfile) (domain.RoleProfile, bool) {
	role, err := domain.ParseRole(row.Role)
	if err != nil {
		return domain.RoleProfile{}, false
	}
	return domain.RoleProfile{
		Role:        role,
		ProfileID:   row.ID,
		AccountID:   row.AccountID,
		DisplayName: row.DisplayName,
		Phone:       row.Phone,
		Suspended:   row.Suspended,
	}, true
}
