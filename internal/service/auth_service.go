package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"campusconnect/internal/auth"
	"campusconnect/internal/cache"
	apperrors "campusconnect/internal/errors"
	"campusconnect/internal/mail"
	"campusconnect/internal/metrics"
	"campusconnect/internal/model"
	"campusconnect/internal/repository"
)

const profileCachePrefix = "user:public:"

// AuthConfig holds the credential policy.
type AuthConfig struct {
	EmailDomain     string
	BcryptCost      int
	VerificationTTL time.Duration
	ProfileCacheTTL time.Duration
}

// RegisterInput carries the fields of a new account.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// LoginResult is a signed token pair and the user it belongs to.
type LoginResult struct {
	AccessToken  string           `json:"accessToken"`
	RefreshToken string           `json:"refreshToken"`
	User         model.PublicUser `json:"user"`
}

// ProfileUpdate holds the profile fields to change. Nil fields are left untouched.
type ProfileUpdate struct {
	FirstName      *string
	LastName       *string
	ProfilePicture *string
	Bio            *string
	City           *string
	Websites       *[]string
}

// AuthService handles account registration, verification, login and profiles.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (model.PublicUser, error)
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	RefreshAccessToken(ctx context.Context, claims *auth.Claims) (string, error)
	VerifyEmail(ctx context.Context, token string) (model.PublicUser, error)
	ResendVerification(ctx context.Context, email string) error
	UpsertProfile(ctx context.Context, userID uuid.UUID, update ProfileUpdate) (model.PublicUser, error)
	PublicProfile(ctx context.Context, id uuid.UUID) (model.PublicUser, error)
	DeleteAccount(ctx context.Context, id uuid.UUID) error
	ListUsers(ctx context.Context) ([]model.PublicUser, error)
}

type authService struct {
	users    repository.UserRepository
	access   *auth.JWTService
	refresh  *auth.JWTService
	notifier mail.Notifier
	cache    *cache.Client
	cfg      AuthConfig
	logger   *zap.Logger
	now      func() time.Time

	checkPassword func(hash, password string) bool
	dummyHash     func() string
}

// NewAuthService creates a new authentication service. access and refresh
// must be built with different secrets.
func NewAuthService(
	users repository.UserRepository,
	access, refresh *auth.JWTService,
	notifier mail.Notifier,
	cacheClient *cache.Client,
	cfg AuthConfig,
	logger *zap.Logger,
) AuthService {
	if cfg.ProfileCacheTTL <= 0 {
		cfg.ProfileCacheTTL = 5 * time.Minute
	}
	return &authService{
		users:    users,
		access:   access,
		refresh:  refresh,
		notifier: notifier,
		cache:    cacheClient,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,

		checkPassword: auth.CheckPassword,
		dummyHash:     sync.OnceValue(func() string {
			hash, _ := auth.HashPassword("campusconnect-unknown-user", cfg.BcryptCost)
			return hash
		}),
	}
}

// NormalizeEmail lower-cases and trims an email for storage and comparison.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an unverified account and mails its verification token.
// If anything after the insert fails, the row is deleted again.
func (s *authService) Register(ctx context.Context, in RegisterInput) (model.PublicUser, error) {
	email := NormalizeEmail(in.Email)

	existing, err := s.users.FindByEmail(ctx, email)
	if err == nil && existing != nil {
		s.logger.Warn("auth.register.duplicate_email", zap.String("email", email))
		metrics.RecordAuth("register", metrics.OutcomeRejected)
		return model.PublicUser{}, apperrors.ErrDuplicateEmail
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return s.registrationFailed("check email", email, err)
	}

	if !strings.HasSuffix(email, s.cfg.EmailDomain) {
		s.logger.Warn("auth.register.invalid_domain", zap.String("email", email))
		metrics.RecordAuth("register", metrics.OutcomeRejected)
		return model.PublicUser{}, apperrors.ErrInvalidDomain
	}

	passwordHash, err := auth.HashPassword(in.Password, s.cfg.BcryptCost)
	if err != nil {
		return s.registrationFailed("hash password", email, err)
	}

	token, err := auth.GenerateSecretToken(auth.SecretTokenBytes)
	if err != nil {
		return s.registrationFailed("generate verification token", email, err)
	}
	expiresAt := s.now().Add(s.cfg.VerificationTTL)

	user := &model.User{
		Email:                      email,
		PasswordHash:               passwordHash,
		FirstName:                  strings.TrimSpace(in.FirstName),
		LastName:                   strings.TrimSpace(in.LastName),
		UserType:                   model.UserTypeStudent,
		IsVerified:                 false,
		VerificationToken:          &token,
		VerificationTokenExpiresAt: &expiresAt,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			s.logger.Warn("auth.register.duplicate_email", zap.String("email", email), zap.Bool("race", true))
			metrics.RecordAuth("register", metrics.OutcomeRejected)
			return model.PublicUser{}, apperrors.ErrDuplicateEmail
		}
		return s.registrationFailed("create user", email, err)
	}

	if err := s.notifier.SendVerificationEmail(ctx, user.Email, token); err != nil {
		if delErr := s.users.Delete(ctx, user.ID); delErr != nil {
			s.logger.Error("auth.register.rollback_failed", zap.String("userId", user.ID.String()), zap.Error(delErr))
		}
		return s.registrationFailed("send verification email", email, err)
	}

	s.logger.Info("auth.register.success", zap.String("userId", user.ID.String()))
	metrics.RecordAuth("register", metrics.OutcomeSuccess)
	return model.NewPublicUser(user), nil
}

func (s *authService) registrationFailed(step, email string, err error) (model.PublicUser, error) {
	s.logger.Error("auth.register.failed", zap.String("step", step), zap.String("email", email), zap.Error(err))
	metrics.RecordAuth("register", metrics.OutcomeError)
	return model.PublicUser{}, fmt.Errorf("%w: %s: %w", apperrors.ErrRegistrationFailed, step, err)
}

// Login checks the verification flag before the password, so an unverified
// account is reported as such whatever password was supplied.
func (s *authService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = NormalizeEmail(email)

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Same bcrypt work as a wrong password.
			s.checkPassword(s.dummyHash(), password)
			s.logger.Warn("auth.login.invalid_credentials")
			metrics.RecordAuth("login", metrics.OutcomeRejected)
			return nil, apperrors.ErrInvalidCredentials
		}
		s.logger.Error("auth.login.failed", zap.Error(err))
		metrics.RecordAuth("login", metrics.OutcomeError)
		return nil, fmt.Errorf("find user: %w", err)
	}

	if !user.IsVerified {
		s.logger.Warn("auth.login.email_not_verified", zap.String("userId", user.ID.String()))
		metrics.RecordAuth("login", metrics.OutcomeRejected)
		return nil, apperrors.ErrEmailNotVerified
	}

	if !s.checkPassword(user.PasswordHash, password) {
		s.logger.Warn("auth.login.invalid_credentials")
		metrics.RecordAuth("login", metrics.OutcomeRejected)
		return nil, apperrors.ErrInvalidCredentials
	}

	claims := auth.Claims{UserID: user.ID.String(), Email: user.Email, UserType: string(user.UserType)}
	accessToken, err := s.access.Sign(claims)
	if err != nil {
		return nil, s.issuanceFailed("login", err)
	}
	refreshToken, err := s.refresh.Sign(claims)
	if err != nil {
		return nil, s.issuanceFailed("login", err)
	}

	s.logger.Info("auth.login.success", zap.String("userId", user.ID.String()))
	metrics.RecordAuth("login", metrics.OutcomeSuccess)
	return &LoginResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         model.NewPublicUser(user),
	}, nil
}

func (s *authService) issuanceFailed(operation string, err error) error {
	s.logger.Error("auth.token.issue_failed", zap.String("operation", operation), zap.Error(err))
	metrics.RecordAuth(operation, metrics.OutcomeError)
	return fmt.Errorf("%w: %w", apperrors.ErrTokenIssuance, err)
}

// RefreshAccessToken signs a new access token for claims already verified by
// the refresh gate.
func (s *authService) RefreshAccessToken(ctx context.Context, claims *auth.Claims) (string, error) {
	if claims == nil {
		return "", s.issuanceFailed("refresh", errors.New("missing claims"))
	}
	token, err := s.access.Sign(claims.IdentityClaims())
	if err != nil {
		return "", s.issuanceFailed("refresh", err)
	}
	s.logger.Info("auth.refresh.success", zap.String("userId", claims.UserID))
	metrics.RecordAuth("refresh", metrics.OutcomeSuccess)
	return token, nil
}

// VerifyEmail marks the account holding token as verified and clears the token.
func (s *authService) VerifyEmail(ctx context.Context, token string) (model.PublicUser, error) {
	if token == "" {
		return model.PublicUser{}, apperrors.ErrInvalidOrExpiredToken
	}

	user, err := s.users.FindByVerificationToken(ctx, token, s.now())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Warn("auth.verify.invalid_token")
			metrics.RecordAuth("verify", metrics.OutcomeRejected)
			return model.PublicUser{}, apperrors.ErrInvalidOrExpiredToken
		}
		metrics.RecordAuth("verify", metrics.OutcomeError)
		return model.PublicUser{}, fmt.Errorf("find verification token: %w", err)
	}

	if err := s.users.MarkVerified(ctx, user.ID, token); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			metrics.RecordAuth("verify", metrics.OutcomeRejected)
			return model.PublicUser{}, apperrors.ErrInvalidOrExpiredToken
		}
		metrics.RecordAuth("verify", metrics.OutcomeError)
		return model.PublicUser{}, fmt.Errorf("mark verified: %w", err)
	}

	user.IsVerified = true
	user.VerificationToken = nil
	user.VerificationTokenExpiresAt = nil
	_ = s.cache.Delete(ctx, profileCachePrefix+user.ID.String())

	s.logger.Info("auth.verify.success", zap.String("userId", user.ID.String()))
	metrics.RecordAuth("verify", metrics.OutcomeSuccess)
	return model.NewPublicUser(user), nil
}

// ResendVerification replaces the verification token and mails the new one.
func (s *authService) ResendVerification(ctx context.Context, email string) error {
	email = NormalizeEmail(email)

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			metrics.RecordAuth("resend_verification", metrics.OutcomeRejected)
			return apperrors.ErrUserNotFound
		}
		return fmt.Errorf("find user: %w", err)
	}
	if user.IsVerified {
		metrics.RecordAuth("resend_verification", metrics.OutcomeRejected)
		return apperrors.ErrAlreadyVerified
	}

	token, err := auth.GenerateSecretToken(auth.SecretTokenBytes)
	if err != nil {
		return fmt.Errorf("generate verification token: %w", err)
	}
	if err := s.users.SetVerificationToken(ctx, user.ID, token, s.now().Add(s.cfg.VerificationTTL)); err != nil {
		s.logger.Error("auth.resend_verification.failed", zap.String("userId", user.ID.String()), zap.Error(err))
		metrics.RecordAuth("resend_verification", metrics.OutcomeError)
		return fmt.Errorf("store verification token: %w", err)
	}
	if err := s.notifier.SendVerificationEmail(ctx, user.Email, token); err != nil {
		s.logger.Error("auth.resend_verification.failed", zap.String("userId", user.ID.String()), zap.Error(err))
		metrics.RecordAuth("resend_verification", metrics.OutcomeError)
		return fmt.Errorf("send verification email: %w", err)
	}

	s.logger.Info("auth.resend_verification.success", zap.String("userId", user.ID.String()))
	metrics.RecordAuth("resend_verification", metrics.OutcomeSuccess)
	return nil
}

// UpsertProfile applies the non-nil fields of update.
func (s *authService) UpsertProfile(ctx context.Context, userID uuid.UUID, update ProfileUpdate) (model.PublicUser, error) {
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.PublicUser{}, apperrors.ErrUserNotFound
		}
		return model.PublicUser{}, fmt.Errorf("find user: %w", err)
	}

	fields := make(map[string]interface{})
	if update.FirstName != nil {
		fields["first_name"] = strings.TrimSpace(*update.FirstName)
	}
	if update.LastName != nil {
		fields["last_name"] = strings.TrimSpace(*update.LastName)
	}
	if update.ProfilePicture != nil {
		fields["profile_picture"] = *update.ProfilePicture
	}
	if update.Bio != nil {
		fields["bio"] = *update.Bio
	}
	if update.City != nil {
		fields["city"] = *update.City
	}
	if update.Websites != nil {
		fields["websites"] = model.StringList(append([]string{}, (*update.Websites)...))
	}

	if len(fields) > 0 {
		if err := s.users.UpdateProfile(ctx, userID, fields); err != nil {
			s.logger.Error("user.profile.upsert.failed", zap.String("userId", userID.String()), zap.Error(err))
			return model.PublicUser{}, fmt.Errorf("update profile: %w", err)
		}
		_ = s.cache.Delete(ctx, profileCachePrefix+userID.String())
	}

	user, err := s.users.FindPublicByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.PublicUser{}, apperrors.ErrUserNotFound
		}
		return model.PublicUser{}, fmt.Errorf("reload user: %w", err)
	}

	s.logger.Debug("user.profile.upsert.success", zap.String("userId", userID.String()), zap.Int("fields", len(fields)))
	return model.NewPublicUser(user), nil
}

// PublicProfile returns the public view of a user, served from cache when possible.
func (s *authService) PublicProfile(ctx context.Context, id uuid.UUID) (model.PublicUser, error) {
	key := profileCachePrefix + id.String()

	var cached model.PublicUser
	if s.cache.GetJSON(ctx, key, &cached) {
		return cached, nil
	}

	user, err := s.users.FindPublicByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.PublicUser{}, apperrors.ErrUserNotFound
		}
		return model.PublicUser{}, fmt.Errorf("find user: %w", err)
	}

	public := model.NewPublicUser(user)
	_ = s.cache.SetJSON(ctx, key, public, s.cfg.ProfileCacheTTL)
	return public, nil
}

// DeleteAccount permanently removes a user. Owned records cascade in the store.
func (s *authService) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrUserNotFound
		}
		s.logger.Error("user.delete.failed", zap.String("userId", id.String()), zap.Error(err))
		return fmt.Errorf("delete user: %w", err)
	}
	_ = s.cache.Delete(ctx, profileCachePrefix+id.String())
	s.logger.Info("user.delete.success", zap.String("userId", id.String()))
	metrics.RecordAuth("delete_account", metrics.OutcomeSuccess)
	return nil
}

// ListUsers returns every account. Only exposed in development.
func (s *authService) ListUsers(ctx context.Context) ([]model.PublicUser, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	out := make([]model.PublicUser, 0, len(users))
	for i := range users {
		out = append(out, model.NewPublicUser(&users[i]))
	}
	s.logger.Info("user.fetch_all.success", zap.Int("userCount", len(out)))
	return out, nil
}
