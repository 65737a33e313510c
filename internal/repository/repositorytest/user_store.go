// Package repositorytest provides in-memory stores for service and handler tests.
package repositorytest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"campusconnect/internal/model"
	"campusconnect/internal/repository"
)

var _ repository.UserRepository = (*UserStore)(nil)

// UserStore is an in-memory repository.UserRepository with the same error
// contract as the GORM one, including the unique email constraint.
type UserStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]model.User

	// CreateErr and DeleteErr, when set, are returned by Create and Delete.
	CreateErr error
	DeleteErr error
	// Calls counts invocations per method name.
	Calls map[string]int
}

// NewUserStore returns an empty store.
func NewUserStore() *UserStore {
	return &UserStore{users: make(map[uuid.UUID]model.User), Calls: make(map[string]int)}
}

// Put inserts or replaces u without any checks.
func (s *UserStore) Put(u model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	s.users[u.ID] = clone(u)
}

// Get returns a copy of the stored user.
func (s *UserStore) Get(id uuid.UUID) (model.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	return clone(u), ok
}

// Len returns the number of stored users.
func (s *UserStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

// TotalCalls sums Calls over all methods.
func (s *UserStore) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.Calls {
		total += n
	}
	return total
}

func (s *UserStore) Create(_ context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls["Create"]++
	if s.CreateErr != nil {
		return s.CreateErr
	}
	for _, u := range s.users {
		if u.Email == user.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := time.Now()
	user.CreatedAt, user.UpdatedAt = now, now
	s.users[user.ID] = clone(*user)
	return nil
}

func (s *UserStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls["Delete"]++
	if s.DeleteErr != nil {
		return s.DeleteErr
	}
	if _, ok := s.users[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *UserStore) FindByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls["FindByID"]++
	u, ok := s.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := clone(u)
	return &out, nil
}

func (s *UserStore) FindPublicByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls["FindPublicByID"]++
	u, ok := s.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := clone(u)
	out.PasswordHash = ""
	out.VerificationToken = nil
	out.PasswordResetTokenHash = nil
	return &out, nil
}

func (s *UserStore) FindByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls["FindByEmail"]++
	for _, u := range s.users {
		if u.Email == email {
			out := clone(u)
			return &out, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *UserStore) FindByVerificationToken(_ context.Context, token string, now time.Time) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls["FindByVerificationToken"]++
	for _, u := range s.users {
		if u.VerificationToken != nil && *u.VerificationToken == token &&
			u.VerificationTokenExpiresAt != nil && u.VerificationTokenExpiresAt.After(now) {
			out := clone(u)
			return &out, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *UserStore) FindByResetTokenHash(_ context.Context, hash string, now time.Time) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls["FindByResetTokenHash"]++
	for _, u := range s.users {
		if u.PasswordResetTokenHash != nil && *u.PasswordResetTokenHash == hash &&
			u.PasswordResetExpiresAt != nil && u.PasswordResetExpiresAt.After(now) {
			out := clone(u)
			return &out, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *UserStore) MarkVerified(_ context.Context, id uuid.UUID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls["MarkVerified"]++
	u, ok := s.users[id]
	if !ok || u.VerificationToken == nil || *u.VerificationToken != token {
		return gorm.ErrRecordNotFound
	}
	u.IsVerified = true
	u.VerificationToken = nil
	u.VerificationTokenExpiresAt = nil
	u.UpdatedAt = time.Now()
	s.users[id] = u
	return nil
}

func (s *UserStore) SetVerificationToken(_ context.Context, id uuid.UUID, token string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls["SetVerificationToken"]++
	u, ok := s.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.VerificationToken = &token
	u.VerificationTokenExpiresAt = &expiresAt
	s.users[id] = u
	return nil
}

func (s *UserStore) SetPasswordResetToken(_ context.Context, id uuid.UUID, hash string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls["SetPasswordResetToken"]++
	u, ok := s.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.PasswordResetTokenHash = &hash
	u.PasswordResetExpiresAt = &expiresAt
	s.users[id] = u
	return nil
}

func (s *UserStore) ConsumePasswordResetToken(_ context.Context, id uuid.UUID, hash, passwordHash string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls["ConsumePasswordResetToken"]++
	u, ok := s.users[id]
	if !ok || u.PasswordResetTokenHash == nil || *u.PasswordResetTokenHash != hash ||
		u.PasswordResetExpiresAt == nil || !u.PasswordResetExpiresAt.After(now) {
		return gorm.ErrRecordNotFound
	}
	u.PasswordHash = passwordHash
	u.PasswordResetTokenHash = nil
	u.PasswordResetExpiresAt = nil
	s.users[id] = u
	return nil
}

func (s *UserStore) UpdateProfile(_ context.Context, id uuid.UUID, fields map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls["UpdateProfile"]++
	u, ok := s.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for k, v := range fields {
		if !repository.ProfileColumns[k] {
			continue
		}
		switch k {
		case "first_name":
			u.FirstName = v.(string)
		case "last_name":
			u.LastName = v.(string)
		case "profile_picture":
			u.ProfilePicture = stringPtr(v)
		case "bio":
			u.Bio = stringPtr(v)
		case "city":
			u.City = stringPtr(v)
		case "websites":
			u.Websites = append(model.StringList{}, v.(model.StringList)...)
		}
	}
	u.UpdatedAt = time.Now()
	s.users[id] = u
	return nil
}

func (s *UserStore) List(_ context.Context) ([]model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls["List"]++
	out := make([]model.User, 0, len(s.users))
	for _, u := range s.users {
		c := clone(u)
		c.PasswordHash = ""
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func stringPtr(v interface{}) *string {
	switch s := v.(type) {
	case *string:
		if s == nil {
			return nil
		}
		c := *s
		return &c
	case string:
		return &s
	default:
		return nil
	}
}

func clone(u model.User) model.User {
	if u.Websites != nil {
		u.Websites = append(model.StringList{}, u.Websites...)
	}
	return u
}
