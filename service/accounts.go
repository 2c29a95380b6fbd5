package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/agrosite/agrosite/auth"
	"github.com/agrosite/agrosite/store"
)

func isNotFound(err error) bool { return errors.Is(err, store.ErrNotFound) }

// AdminInput carries the editable fields of an admin account. An empty
// Password on update keeps the current password.
type AdminInput struct {
	Username string
	Name     string
	Role     string
	Password string
	IsActive bool
}

// AdminService manages back-office accounts and their logins.
type AdminService struct {
	store store.Store
	cost  int

	check     func(hash, password string) error
	dummyOnce sync.Once
	dummy     string
}

func (s *AdminService) checkPassword(hash, password string) error {
	if s.check != nil {
		return s.check(hash, password)
	}
	return auth.CheckPassword(hash, password)
}

// dummyHash is compared against when the username is unknown, so a failed
// lookup costs the same bcrypt work as a wrong password.
func (s *AdminService) dummyHash() string {
	s.dummyOnce.Do(func() {
		s.dummy, _ = auth.HashPassword("agrosite-unknown-admin", s.cost)
	})
	return s.dummy
}

// Login checks username and password and returns the admin on success.
func (s *AdminService) Login(ctx context.Context, username, password string) (*store.Admin, error) {
	a, err := s.store.Admins().GetByUsername(ctx, strings.TrimSpace(username))
	if isNotFound(err) {
		_ = s.checkPassword(s.dummyHash(), password)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := s.checkPassword(a.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !a.IsActive {
		return nil, ErrInactiveAdmin
	}
	return a, nil
}

// Authenticate resolves an admin id taken from a session or token. Deleted
// admins are unknown and disabled admins are rejected.
func (s *AdminService) Authenticate(ctx context.Context, id int64) (*store.Admin, error) {
	a, err := s.store.Admins().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !a.IsActive {
		return nil, ErrInactiveAdmin
	}
	return a, nil
}

func (s *AdminService) List(ctx context.Context) ([]store.Admin, error) {
	return s.store.Admins().List(ctx)
}

func (s *AdminService) Get(ctx context.Context, id int64) (*store.Admin, error) {
	return s.store.Admins().GetByID(ctx, id)
}

// Create adds an admin with a bcrypt-hashed password. Role defaults to admin.
func (s *AdminService) Create(ctx context.Context, in AdminInput) (*store.Admin, error) {
	hash, err := auth.HashPassword(in.Password, s.cost)
	if err != nil {
		return nil, err
	}
	a := &store.Admin{
		Username:     strings.TrimSpace(in.Username),
		Name:         in.Name,
		Role:         roleOrDefault(in.Role),
		IsActive:     in.IsActive,
		PasswordHash: hash,
	}
	if err := s.store.Admins().Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Update replaces the admin's editable fields.
func (s *AdminService) Update(ctx context.Context, id int64, in AdminInput) (*store.Admin, error) {
	a := &store.Admin{
		ID:       id,
		Username: strings.TrimSpace(in.Username),
		Name:     in.Name,
		Role:     roleOrDefault(in.Role),
		IsActive: in.IsActive,
	}
	if in.Password != "" {
		hash, err := auth.HashPassword(in.Password, s.cost)
		if err != nil {
			return nil, err
		}
		a.PasswordHash = hash
	}
	if err := s.store.Admins().Update(ctx, a); err != nil {
		return nil, err
	}
	return s.store.Admins().GetByID(ctx, id)
}

func (s *AdminService) Delete(ctx context.Context, id int64) error {
	return s.store.Admins().Delete(ctx, id)
}

func roleOrDefault(role string) string {
	if role == "" {
		return store.RoleAdmin
	}
	return role
}

// UserService manages site accounts.
type UserService struct {
	store store.Store
	cost  int
}

// Register creates a user with a bcrypt-hashed password.
func (s *UserService) Register(ctx context.Context, username, password string) (*store.User, error) {
	hash, err := auth.HashPassword(password, s.cost)
	if err != nil {
		return nil, err
	}
	u := &store.User{Username: strings.TrimSpace(username), PasswordHash: hash}
	if err := s.store.Users().Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *UserService) Get(ctx context.Context, id int64) (*store.User, error) {
	return s.store.Users().GetByID(ctx, id)
}

func (s *UserService) List(ctx context.Context) ([]store.User, error) {
	return s.store.Users().List(ctx)
}
