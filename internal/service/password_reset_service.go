package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"campusconnect/internal/auth"
	apperrors "campusconnect/internal/errors"
	"campusconnect/internal/mail"
	"campusconnect/internal/metrics"
	"campusconnect/internal/repository"
)

const (
	resetRequestedMessage = "If that email exists, a reset link has been sent"
	resetInvalidMessage   = "Invalid or expired reset token"
	resetSuccessMessage   = "Password has been reset successfully"
)

// ResetResult is the business outcome of a reset operation.
type ResetResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ResetConfig holds reset token lifetime and password hashing cost.
type ResetConfig struct {
	TokenTTL   time.Duration
	BcryptCost int
}

// PasswordResetService handles the forgotten-password flow.
type PasswordResetService interface {
	RequestReset(ctx context.Context, email string) (*ResetResult, error)
	ConfirmReset(ctx context.Context, token, newPassword string) (*ResetResult, error)
}

type passwordResetService struct {
	users    repository.UserRepository
	hasher   *auth.TokenHasher
	notifier mail.Notifier
	cfg      ResetConfig
	logger   *zap.Logger
	now      func() time.Time
}

// NewPasswordResetService creates a new password reset service.
func NewPasswordResetService(
	users repository.UserRepository,
	hasher *auth.TokenHasher,
	notifier mail.Notifier,
	cfg ResetConfig,
	logger *zap.Logger,
) PasswordResetService {
	return &passwordResetService{
		users:    users,
		hasher:   hasher,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// RequestReset stores a hashed reset token and mails the raw one. The result
// is identical whether or not the email belongs to an account.
func (s *passwordResetService) RequestReset(ctx context.Context, email string) (*ResetResult, error) {
	email = NormalizeEmail(email)
	generic := &ResetResult{Success: true, Message: resetRequestedMessage}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Warn("password.reset.request_for_nonexistent_email")
			metrics.RecordAuth("reset_request", metrics.OutcomeRejected)
			return generic, nil
		}
		return nil, s.requestFailed(err)
	}

	token, err := auth.GenerateSecretToken(auth.SecretTokenBytes)
	if err != nil {
		return nil, s.requestFailed(err)
	}

	expiresAt := s.now().Add(s.cfg.TokenTTL)
	if err := s.users.SetPasswordResetToken(ctx, user.ID, s.hasher.Hash(token), expiresAt); err != nil {
		return nil, s.requestFailed(err)
	}

	if err := s.notifier.SendPasswordResetEmail(ctx, user.Email, user.FirstName, token); err != nil {
		return nil, s.requestFailed(err)
	}

	s.logger.Info("password.reset.request.success", zap.String("userId", user.ID.String()))
	metrics.RecordAuth("reset_request", metrics.OutcomeSuccess)
	return generic, nil
}

func (s *passwordResetService) requestFailed(err error) error {
	s.logger.Error("password.reset.request.failed", zap.Error(err))
	metrics.RecordAuth("reset_request", metrics.OutcomeError)
	return fmt.Errorf("%w: %w", apperrors.ErrResetProcessingFailed, err)
}

// ConfirmReset sets a new password for the holder of token. The token is
// consumed in the same write, so it works at most once.
func (s *passwordResetService) ConfirmReset(ctx context.Context, token, newPassword string) (*ResetResult, error) {
	if violations := auth.PasswordPolicyViolations(newPassword); len(violations) > 0 {
		metrics.RecordAuth("reset_confirm", metrics.OutcomeRejected)
		return &ResetResult{Success: false, Message: violations[0]}, nil
	}

	invalid := &ResetResult{Success: false, Message: resetInvalidMessage}
	hash := s.hasher.Hash(token)
	now := s.now()

	user, err := s.users.FindByResetTokenHash(ctx, hash, now)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Warn("password.reset.invalid_token", zap.Bool("tokenProvided", token != ""))
			metrics.RecordAuth("reset_confirm", metrics.OutcomeRejected)
			return invalid, nil
		}
		return nil, s.confirmFailed(err)
	}
	if user.PasswordResetTokenHash == nil || !s.hasher.Matches(token, *user.PasswordResetTokenHash) {
		metrics.RecordAuth("reset_confirm", metrics.OutcomeRejected)
		return invalid, nil
	}

	passwordHash, err := auth.HashPassword(newPassword, s.cfg.BcryptCost)
	if err != nil {
		return nil, s.confirmFailed(err)
	}

	if err := s.users.ConsumePasswordResetToken(ctx, user.ID, hash, passwordHash, now); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Warn("password.reset.token_already_used", zap.String("userId", user.ID.String()))
			metrics.RecordAuth("reset_confirm", metrics.OutcomeRejected)
			return invalid, nil
		}
		return nil, s.confirmFailed(err)
	}

	s.logger.Info("password.reset.success", zap.String("userId", user.ID.String()))
	metrics.RecordAuth("reset_confirm", metrics.OutcomeSuccess)
	return &ResetResult{Success: true, Message: resetSuccessMessage}, nil
}

func (s *passwordResetService) confirmFailed(err error) error {
	s.logger.Error("password.reset.failed.unexpectedly", zap.Error(err))
	metrics.RecordAuth("reset_confirm", metrics.OutcomeError)
	return fmt.Errorf("%w: %w", apperrors.ErrResetFailed, err)
}
