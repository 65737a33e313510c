package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"campusconnect/internal/model"
)

// UserRepository is the credential store. Lookups return gorm.ErrRecordNotFound
// when nothing matches; Create returns gorm.ErrDuplicatedKey when the email is
// taken. Conditional updates report a lost race as gorm.ErrRecordNotFound.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	FindPublicByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByVerificationToken(ctx context.Context, token string, now time.Time) (*model.User, error)
	FindByResetTokenHash(ctx context.Context, hash string, now time.Time) (*model.User, error)
	MarkVerified(ctx context.Context, id uuid.UUID, token string) error
	SetVerificationToken(ctx context.Context, id uuid.UUID, token string, expiresAt time.Time) error
	SetPasswordResetToken(ctx context.Context, id uuid.UUID, hash string, expiresAt time.Time) error
	ConsumePasswordResetToken(ctx context.Context, id uuid.UUID, hash, passwordHash string, now time.Time) error
	UpdateProfile(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	List(ctx context.Context) ([]model.User, error)
}

// ProfileColumns are the only columns UpdateProfile may write.
var ProfileColumns = map[string]bool{
	"first_name":      true,
	"last_name":       true,
	"profile_picture": true,
	"bio":             true,
	"city":            true,
	"websites":        true,
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository builds a GORM-backed repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.User{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindPublicByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Omit("password_hash", "verification_token", "password_reset_token_hash").
		Where("id = ?", id).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByVerificationToken(ctx context.Context, token string, now time.Time) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Where("verification_token = ? AND verification_token_expires_at > ?", token, now).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByResetTokenHash(ctx context.Context, hash string, now time.Time) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Where("password_reset_token_hash = ? AND password_reset_expires_at > ?", hash, now).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// MarkVerified flips the verification flag only while token is still the
// stored one, and clears it in the same statement.
func (r *userRepository) MarkVerified(ctx context.Context, id uuid.UUID, token string) error {
	res := r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ? AND verification_token = ?", id, token).
		Updates(map[string]interface{}{
			"is_verified":                   true,
			"verification_token":            nil,
			"verification_token_expires_at": nil,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *userRepository) SetVerificationToken(ctx context.Context, id uuid.UUID, token string, expiresAt time.Time) error {
	res := r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"verification_token":            token,
			"verification_token_expires_at": expiresAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *userRepository) SetPasswordResetToken(ctx context.Context, id uuid.UUID, hash string, expiresAt time.Time) error {
	res := r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"password_reset_token_hash": hash,
			"password_reset_expires_at": expiresAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ConsumePasswordResetToken stores the new password and clears the reset
// fields, but only if hash is still the live token. Two concurrent confirms
// with the same token cannot both succeed.
func (r *userRepository) ConsumePasswordResetToken(ctx context.Context, id uuid.UUID, hash, passwordHash string, now time.Time) error {
	res := r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ? AND password_reset_token_hash = ? AND password_reset_expires_at > ?", id, hash, now).
		Updates(map[string]interface{}{
			"password_hash":             passwordHash,
			"password_reset_token_hash": nil,
			"password_reset_expires_at": nil,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpdateProfile writes the given profile columns. Keys outside ProfileColumns
// are ignored.
func (r *userRepository) UpdateProfile(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	updates := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		if ProfileColumns[k] {
			updates[k] = v
		}
	}
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(updates).Error
}

func (r *userRepository) List(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := r.db.WithContext(ctx).Omit("password_hash").Order("created_at DESC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}
