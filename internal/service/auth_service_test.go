package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"

	"campusconnect/internal/auth"
	apperrors "campusconnect/internal/errors"
	"campusconnect/internal/model"
	"campusconnect/internal/repository/repositorytest"
)

type authFixture struct {
	svc      *authService
	store    *repositorytest.UserStore
	notifier *MockNotifier
	access   *auth.JWTService
	refresh  *auth.JWTService
	logs     *observer.ObservedLogs
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	store := repositorytest.NewUserStore()
	notifier := &MockNotifier{}
	access := auth.NewJWTService("access-secret", time.Minute)
	refresh := auth.NewJWTService("refresh-secret", time.Hour)

	svc := NewAuthService(store, access, refresh, notifier, nil, AuthConfig{
		EmailDomain:     "@my.csun.edu",
		BcryptCost:      bcrypt.MinCost,
		VerificationTTL: time.Hour,
	}, zap.New(core)).(*authService)

	return &authFixture{svc: svc, store: store, notifier: notifier, access: access, refresh: refresh, logs: logs}
}

// putUser stores a user with the given password and returns it.
func (f *authFixture) putUser(t *testing.T, email, password string, verified bool) model.User {
	t.Helper()
	hash, err := auth.HashPassword(password, bcrypt.MinCost)
	require.NoError(t, err)
	u := model.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		FirstName:    "Alice",
		LastName:     "Nguyen",
		UserType:     model.UserTypeStudent,
		IsVerified:   verified,
		CreatedAt:    time.Now(),
	}
	f.store.Put(u)
	return u
}

func TestAuthService_Register(t *testing.T) {
	tests := []struct {
		name          string
		email         string
		seed          string
		mailErr       error
		expectedError error
		expectedRows  int
	}{
		{
			name:         "successful registration",
			email:        "Alice@My.CSUN.edu",
			expectedRows: 1,
		},
		{
			name:          "outside institutional domain",
			email:         "alice@gmail.com",
			expectedError: apperrors.ErrInvalidDomain,
		},
		{
			name:          "lookalike domain",
			email:         "alice@my.csun.edu.evil.com",
			expectedError: apperrors.ErrInvalidDomain,
		},
		{
			name:          "duplicate email differing in case",
			email:         "ALICE@my.csun.edu",
			seed:          "alice@my.csun.edu",
			expectedError: apperrors.ErrDuplicateEmail,
			expectedRows:  1,
		},
		{
			name:          "mail failure rolls back",
			email:         "alice@my.csun.edu",
			mailErr:       errors.New("smtp unavailable"),
			expectedError: apperrors.ErrRegistrationFailed,
			expectedRows:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthFixture(t)
			if tt.seed != "" {
				f.putUser(t, tt.seed, "Passw0rd!", false)
			}
			f.notifier.On("SendVerificationEmail", mock.Anything, mock.Anything, mock.Anything).Return(tt.mailErr).Maybe()

			user, err := f.svc.Register(context.Background(), RegisterInput{
				Email:     tt.email,
				Password:  "Passw0rd!",
				FirstName: " Alice ",
				LastName:  "Nguyen",
			})

			assert.Equal(t, tt.expectedRows, f.store.Len())
			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "alice@my.csun.edu", user.Email)
			assert.Equal(t, "Alice", user.FirstName)
			assert.Equal(t, model.UserTypeStudent, user.UserType)
			assert.False(t, user.IsVerified)

			stored, ok := f.store.Get(user.ID)
			require.True(t, ok)
			assert.NotEqual(t, "Passw0rd!", stored.PasswordHash)
			require.NotNil(t, stored.VerificationToken)
			assert.Len(t, *stored.VerificationToken, auth.SecretTokenLength)
			assert.WithinDuration(t, time.Now().Add(time.Hour), *stored.VerificationTokenExpiresAt, 5*time.Second)
			f.notifier.AssertCalled(t, "SendVerificationEmail", mock.Anything, "alice@my.csun.edu", *stored.VerificationToken)
		})
	}
}

func TestAuthService_RegisterStoreFailure(t *testing.T) {
	f := newAuthFixture(t)
	f.store.CreateErr = errors.New("connection reset")

	_, err := f.svc.Register(context.Background(), RegisterInput{
		Email: "alice@my.csun.edu", Password: "Passw0rd!", FirstName: "Alice", LastName: "Nguyen",
	})

	assert.ErrorIs(t, err, apperrors.ErrRegistrationFailed)
	f.notifier.AssertNotCalled(t, "SendVerificationEmail", mock.Anything, mock.Anything, mock.Anything)
}

func TestAuthService_RegisterLookupFailure(t *testing.T) {
	repo := &MockUserRepository{}
	repo.On("FindByEmail", mock.Anything, "alice@my.csun.edu").Return(nil, errors.New("timeout"))
	svc := NewAuthService(repo, auth.NewJWTService("a", time.Minute), auth.NewJWTService("r", time.Hour),
		&MockNotifier{}, nil, AuthConfig{EmailDomain: "@my.csun.edu", BcryptCost: bcrypt.MinCost, VerificationTTL: time.Hour}, zap.NewNop())

	_, err := svc.Register(context.Background(), RegisterInput{Email: "alice@my.csun.edu", Password: "Passw0rd!"})

	assert.ErrorIs(t, err, apperrors.ErrRegistrationFailed)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAuthService_RegisterConcurrentSameEmail(t *testing.T) {
	f := newAuthFixture(t)
	f.notifier.On("SendVerificationEmail", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Register(context.Background(), RegisterInput{
				Email: "race@my.csun.edu", Password: "Passw0rd!", FirstName: "Race", LastName: "Condition",
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, apperrors.ErrDuplicateEmail)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, f.store.Len())
}

func TestAuthService_Login(t *testing.T) {
	tests := []struct {
		name          string
		email         string
		password      string
		verified      bool
		expectedError error
	}{
		{name: "successful login", email: "ALICE@my.csun.edu", password: "Passw0rd!", verified: true},
		{name: "unknown email", email: "bob@my.csun.edu", password: "Passw0rd!", verified: true, expectedError: apperrors.ErrInvalidCredentials},
		{name: "wrong password", email: "alice@my.csun.edu", password: "Passw0rd?", verified: true, expectedError: apperrors.ErrInvalidCredentials},
		{name: "unverified with correct password", email: "alice@my.csun.edu", password: "Passw0rd!", expectedError: apperrors.ErrEmailNotVerified},
		{name: "unverified with wrong password", email: "alice@my.csun.edu", password: "nope", expectedError: apperrors.ErrEmailNotVerified},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthFixture(t)
			seeded := f.putUser(t, "alice@my.csun.edu", "Passw0rd!", tt.verified)

			result, err := f.svc.Login(context.Background(), tt.email, tt.password)
			if tt.expectedError != nil {
				assert.Equal(t, tt.expectedError, err)
				assert.Nil(t, result)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, seeded.ID, result.User.ID)

			accessClaims, err := f.access.Verify(result.AccessToken)
			require.NoError(t, err)
			assert.Equal(t, seeded.ID.String(), accessClaims.UserID)
			assert.Equal(t, "student", accessClaims.UserType)

			_, err = f.access.Verify(result.RefreshToken)
			assert.ErrorIs(t, err, auth.ErrTokenMalformed, "refresh token must not verify with the access secret")
			_, err = f.refresh.Verify(result.RefreshToken)
			assert.NoError(t, err)
		})
	}
}

func TestAuthService_LoginFailuresAreIndistinguishable(t *testing.T) {
	f := newAuthFixture(t)
	f.putUser(t, "alice@my.csun.edu", "Passw0rd!", true)

	_, unknown := f.svc.Login(context.Background(), "nobody@my.csun.edu", "Passw0rd!")
	_, wrong := f.svc.Login(context.Background(), "alice@my.csun.edu", "Wr0ng!pass")

	assert.Equal(t, unknown, wrong)
	assert.Equal(t, apperrors.MapErrorToHTTP(unknown), apperrors.MapErrorToHTTP(wrong))
}

func TestAuthService_LoginUnknownEmailRunsBcrypt(t *testing.T) {
	f := newAuthFixture(t)
	seeded := f.putUser(t, "alice@my.csun.edu", "Passw0rd!", true)

	var hashes []string
	f.svc.checkPassword = func(hash, password string) bool {
		hashes = append(hashes, hash)
		return auth.CheckPassword(hash, password)
	}

	_, err := f.svc.Login(context.Background(), "nobody@my.csun.edu", "Passw0rd!")
	assert.Equal(t, apperrors.ErrInvalidCredentials, err)
	_, err = f.svc.Login(context.Background(), "alice@my.csun.edu", "Wr0ng!pass")
	assert.Equal(t, apperrors.ErrInvalidCredentials, err)

	require.Len(t, hashes, 2)
	cost, err := bcrypt.Cost([]byte(hashes[0]))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)
	assert.NotEqual(t, seeded.PasswordHash, hashes[0])
	assert.Equal(t, seeded.PasswordHash, hashes[1])
}

func TestAuthService_VerifyEmail(t *testing.T) {
	f := newAuthFixture(t)
	u := f.putUser(t, "alice@my.csun.edu", "Passw0rd!", false)
	token := strings.Repeat("ab", 32)
	require.NoError(t, f.store.SetVerificationToken(context.Background(), u.ID, token, time.Now().Add(-time.Second)))

	_, err := f.svc.VerifyEmail(context.Background(), token)
	assert.ErrorIs(t, err, apperrors.ErrInvalidOrExpiredToken, "expired token must fail even when it matches")

	require.NoError(t, f.store.SetVerificationToken(context.Background(), u.ID, token, time.Now().Add(time.Hour)))
	_, err = f.svc.VerifyEmail(context.Background(), token[:63]+"c")
	assert.ErrorIs(t, err, apperrors.ErrInvalidOrExpiredToken)

	verified, err := f.svc.VerifyEmail(context.Background(), token)
	require.NoError(t, err)
	assert.True(t, verified.IsVerified)

	stored, _ := f.store.Get(u.ID)
	assert.True(t, stored.IsVerified)
	assert.Nil(t, stored.VerificationToken)
	assert.Nil(t, stored.VerificationTokenExpiresAt)

	_, err = f.svc.VerifyEmail(context.Background(), token)
	assert.ErrorIs(t, err, apperrors.ErrInvalidOrExpiredToken)

	_, err = f.svc.VerifyEmail(context.Background(), "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidOrExpiredToken)
}

func TestAuthService_ResendVerification(t *testing.T) {
	tests := []struct {
		name          string
		email         string
		verified      bool
		expectedError error
	}{
		{name: "unknown email", email: "nobody@my.csun.edu", expectedError: apperrors.ErrUserNotFound},
		{name: "already verified", email: "alice@my.csun.edu", verified: true, expectedError: apperrors.ErrAlreadyVerified},
		{name: "replaces token", email: "Alice@my.csun.edu"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthFixture(t)
			u := f.putUser(t, "alice@my.csun.edu", "Passw0rd!", tt.verified)
			old := strings.Repeat("0", 64)
			require.NoError(t, f.store.SetVerificationToken(context.Background(), u.ID, old, time.Now().Add(time.Hour)))

			var sent string
			f.notifier.On("SendVerificationEmail", mock.Anything, "alice@my.csun.edu", mock.AnythingOfType("string")).
				Run(func(args mock.Arguments) { sent = args.String(2) }).
				Return(nil).Maybe()

			err := f.svc.ResendVerification(context.Background(), tt.email)
			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				f.notifier.AssertNotCalled(t, "SendVerificationEmail", mock.Anything, mock.Anything, mock.Anything)
				return
			}

			require.NoError(t, err)
			assert.NotEqual(t, old, sent)
			_, err = f.svc.VerifyEmail(context.Background(), old)
			assert.ErrorIs(t, err, apperrors.ErrInvalidOrExpiredToken, "previous token is overwritten")
			_, err = f.svc.VerifyEmail(context.Background(), sent)
			assert.NoError(t, err)
		})
	}
}

func TestAuthService_UpsertProfile(t *testing.T) {
	f := newAuthFixture(t)
	u := f.putUser(t, "alice@my.csun.edu", "Passw0rd!", true)

	bio := "CS major"
	websites := []string{"https://alice.dev"}
	updated, err := f.svc.UpsertProfile(context.Background(), u.ID, ProfileUpdate{Bio: &bio, Websites: &websites})
	require.NoError(t, err)
	assert.Equal(t, "Alice", updated.FirstName)
	assert.Equal(t, "Nguyen", updated.LastName)
	require.NotNil(t, updated.Bio)
	assert.Equal(t, "CS major", *updated.Bio)
	assert.Equal(t, []string{"https://alice.dev"}, updated.Websites)
	assert.Nil(t, updated.City)

	city := "Northridge"
	updated, err = f.svc.UpsertProfile(context.Background(), u.ID, ProfileUpdate{City: &city})
	require.NoError(t, err)
	assert.Equal(t, "CS major", *updated.Bio, "earlier fields survive a later partial update")
	assert.Equal(t, "Northridge", *updated.City)

	stored, _ := f.store.Get(u.ID)
	assert.Equal(t, u.PasswordHash, stored.PasswordHash)

	_, err = f.svc.UpsertProfile(context.Background(), uuid.New(), ProfileUpdate{City: &city})
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
}

func TestAuthService_PublicProfileAndDelete(t *testing.T) {
	f := newAuthFixture(t)
	u := f.putUser(t, "alice@my.csun.edu", "Passw0rd!", true)

	profile, err := f.svc.PublicProfile(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Email, profile.Email)

	require.NoError(t, f.svc.DeleteAccount(context.Background(), u.ID))
	assert.ErrorIs(t, f.svc.DeleteAccount(context.Background(), u.ID), apperrors.ErrUserNotFound)

	_, err = f.svc.PublicProfile(context.Background(), u.ID)
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
}

func TestAuthService_ListUsers(t *testing.T) {
	f := newAuthFixture(t)
	f.putUser(t, "alice@my.csun.edu", "Passw0rd!", true)
	f.putUser(t, "bob@my.csun.edu", "Passw0rd!", false)

	users, err := f.svc.ListUsers(context.Background())
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestAuthService_RefreshAccessToken(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.RefreshAccessToken(context.Background(), nil)
	assert.ErrorIs(t, err, apperrors.ErrTokenIssuance)
}

func TestRegisterVerifyLoginRefresh(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	var token string
	f.notifier.On("SendVerificationEmail", mock.Anything, "alice@my.csun.edu", mock.AnythingOfType("string")).
		Run(func(args mock.Arguments) { token = args.String(2) }).
		Return(nil).Once()

	registered, err := f.svc.Register(ctx, RegisterInput{
		Email: "alice@my.csun.edu", Password: "Passw0rd!", FirstName: "Alice", LastName: "Nguyen",
	})
	require.NoError(t, err)
	stored, _ := f.store.Get(registered.ID)
	assert.False(t, stored.IsVerified)

	_, err = f.svc.Login(ctx, "alice@my.csun.edu", "Passw0rd!")
	assert.ErrorIs(t, err, apperrors.ErrEmailNotVerified)

	verified, err := f.svc.VerifyEmail(ctx, token)
	require.NoError(t, err)
	assert.True(t, verified.IsVerified)

	pair, err := f.svc.Login(ctx, "alice@my.csun.edu", "Passw0rd!")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)

	refreshClaims, err := f.refresh.Verify(pair.RefreshToken)
	require.NoError(t, err)
	newAccess, err := f.svc.RefreshAccessToken(ctx, refreshClaims)
	require.NoError(t, err)
	assert.NotEqual(t, pair.AccessToken, newAccess)

	oldClaims, err := f.access.Verify(pair.AccessToken)
	require.NoError(t, err)
	newClaims, err := f.access.Verify(newAccess)
	require.NoError(t, err)
	assert.Equal(t, oldClaims.IdentityClaims(), newClaims.IdentityClaims())

	for _, entry := range f.logs.All() {
		assert.NotContains(t, entry.Message, token)
		for _, field := range entry.Context {
			assert.NotContains(t, field.String, token, "raw verification token leaked in %s", entry.Message)
			assert.NotContains(t, field.String, "Passw0rd!")
		}
	}
}
