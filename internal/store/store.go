package store

import (
	"context"
	"errors"
	"time"

	"github.com/go-linegate/linegate/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Store struct {
	db *gorm.DB
}

func New(driver, dsn string) (*Store, error) {
	dialector, err := GetDialector(driver, dsn)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.LineLogin{},
		&models.LineNotify{},
		&models.NotifyRecord{},
	); err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

// DB exposes the underlying connection for health checks and tests.
func (s *Store) DB() *gorm.DB {
	return s.db
}

func (s *Store) Health(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) GetUserByID(id int64) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *Store) GetUserByEmail(email string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &user, nil
}

// CreateLocalUser creates a password-backed account.
func (s *Store) CreateLocalUser(name, email, passwordHash string) (*models.User, error) {
	user := models.User{
		Name:         name,
		Email:        &email,
		PasswordHash: &passwordHash,
		CreateAt:     time.Now(),
	}
	if err := s.db.Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// TouchLastLogin advances the user's last-login timestamp.
func (s *Store) TouchLastLogin(userID int64) error {
	now := time.Now()
	return s.db.Model(&models.User{}).
		Where("id = ?", userID).
		Update("last_login_at", &now).Error
}

func (s *Store) GetLineLoginByUserID(userID int64) (*models.LineLogin, error) {
	var login models.LineLogin
	if err := s.db.Where("user_id = ?", userID).First(&login).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &login, nil
}

func (s *Store) GetLineLoginBySubject(sub string) (*models.LineLogin, error) {
	var login models.LineLogin
	if err := s.db.Where("sub = ?", sub).First(&login).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &login, nil
}

// LineLoginUpsert carries the identity and tokens reconciled after a
// successful login callback.
type LineLoginUpsert struct {
	Sub          string
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
	Name         string
	Picture      string
	Email        *string
}

// UpsertLineLogin reconciles a LINE identity in a single transaction.
// A previously unseen subject creates the user row and its login row
// together; a returning subject gets fresh tokens and profile fields.
// Either way the user's last-login timestamp advances.
func (s *Store) UpsertLineLogin(in LineLoginUpsert) (*models.User, error) {
	var user models.User

	err := s.db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()

		var login models.LineLogin
		err := tx.Where("sub = ?", in.Sub).First(&login).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			user = models.User{
				Name:        in.Name,
				Email:       in.Email,
				CreateAt:    now,
				LastLoginAt: &now,
			}
			if err := tx.Create(&user).Error; err != nil {
				return err
			}
			login = models.LineLogin{
				UserID:       user.ID,
				Sub:          in.Sub,
				AccessToken:  in.AccessToken,
				RefreshToken: in.RefreshToken,
				ExpiresIn:    in.Expiry,
				Name:         in.Name,
				Picture:      in.Picture,
				Email:        in.Email,
				UpdateAt:     &now,
			}
			return tx.Create(&login).Error
		case err != nil:
			return err
		}

		updates := map[string]any{
			"access_token":  in.AccessToken,
			"refresh_token": in.RefreshToken,
			"expires_in":    in.Expiry,
			"name":          in.Name,
			"picture":       in.Picture,
			"email":         in.Email,
			"update_at":     &now,
		}
		if err := tx.Model(&models.LineLogin{}).
			Where("user_id = ?", login.UserID).
			Updates(updates).Error; err != nil {
			return err
		}

		if err := tx.First(&user, login.UserID).Error; err != nil {
			return err
		}
		return tx.Model(&user).Update("last_login_at", &now).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateLineTokens refreshes the stored access/refresh token pair after
// a refresh grant.
func (s *Store) UpdateLineTokens(userID int64, accessToken, refreshToken string, expiry time.Time) error {
	now := time.Now()
	result := s.db.Model(&models.LineLogin{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"access_token":  accessToken,
			"refresh_token": refreshToken,
			"expires_in":    expiry,
			"update_at":     &now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (s *Store) GetLineNotifyByUserID(userID int64) (*models.LineNotify, error) {
	var grant models.LineNotify
	if err := s.db.Where("user_id = ?", userID).First(&grant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &grant, nil
}

// UpsertLineNotify stores the notification grant for a user. A re-grant
// overwrites the previous token in place and clears any revocation.
func (s *Store) UpsertLineNotify(userID int64, accessToken string) (*models.LineNotify, error) {
	var grant models.LineNotify

	err := s.db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()

		err := tx.Where("user_id = ?", userID).First(&grant).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			grant = models.LineNotify{
				UserID:      userID,
				AccessToken: accessToken,
				IsRevoked:   false,
				CreateAt:    now,
			}
			return tx.Create(&grant).Error
		case err != nil:
			return err
		}

		grant.AccessToken = accessToken
		grant.IsRevoked = false
		grant.UpdateAt = &now
		return tx.Model(&models.LineNotify{}).
			Where("user_id = ?", userID).
			Updates(map[string]any{
				"access_token": accessToken,
				"is_revoked":   false,
				"update_at":    &now,
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return &grant, nil
}

// RevokeLineNotify marks the grant revoked without deleting the row.
func (s *Store) RevokeLineNotify(userID int64) error {
	now := time.Now()
	result := s.db.Model(&models.LineNotify{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"is_revoked": true,
			"update_at":  &now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (s *Store) CreateNotifyRecord(record *models.NotifyRecord) error {
	if record.CreateAt.IsZero() {
		record.CreateAt = time.Now()
	}
	return s.db.Create(record).Error
}

// CountUsers returns the number of registered users.
func (s *Store) CountUsers() (int64, error) {
	var count int64
	err := s.db.Model(&models.User{}).Count(&count).Error
	return count, err
}

// CountActiveNotifyGrants returns the number of unrevoked grants.
func (s *Store) CountActiveNotifyGrants() (int64, error) {
	var count int64
	err := s.db.Model(&models.LineNotify{}).
		Where("is_revoked = ?", false).
		Count(&count).Error
	return count, err
}

// ListNotifyRecords returns a user's sent messages, most recent first.
// A non-positive limit returns all records.
func (s *Store) ListNotifyRecords(userID int64, limit int) ([]models.NotifyRecord, error) {
	var records []models.NotifyRecord
	query := s.db.Where("user_id = ?", userID).Order("create_at DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
