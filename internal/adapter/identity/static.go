// Package identity provides the built-in account directory. Real deployments
// would swap this for an external identity subsystem; the job core only ever
// sees the Identity values it produces.
package identity

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"vidmill/internal/domain"
	"vidmill/internal/port"
)

type Account struct {
	ID       string
	Name     string
	Email    string
	Password string
	Role     domain.Role
}

// DefaultAccounts are the demo users installed out of the box.
func DefaultAccounts(adminPassword, userPassword string) []Account {
	return []Account{
		{ID: "1", Name: "Admin User", Email: "admin@example.com", Password: adminPassword, Role: domain.RoleAdmin},
		{ID: "2", Name: "Regular User", Email: "user@example.com", Password: userPassword, Role: domain.RoleUser},
	}
}

// StaticStore is an immutable in-memory user directory.
type StaticStore struct {
	byID    map[string]*domain.User
	byEmail map[string]*domain.User
}

func NewStaticStore(accounts []Account) (*StaticStore, error) {
	s := &StaticStore{
		byID:    make(map[string]*domain.User, len(accounts)),
		byEmail: make(map[string]*domain.User, len(accounts)),
	}
	for _, acc := range accounts {
		hash, err := bcrypt.GenerateFromPassword([]byte(acc.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password for %s: %w", acc.Email, err)
		}
		user := &domain.User{
			ID:           acc.ID,
			Name:         acc.Name,
			Email:        strings.ToLower(acc.Email),
			PasswordHash: string(hash),
			Role:         acc.Role,
		}
		s.byID[user.ID] = user
		s.byEmail[user.Email] = user
	}
	return s, nil
}

func (s *StaticStore) GetByEmail(email string) (*domain.User, error) {
	user, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return user, nil
}

func (s *StaticStore) GetByID(id string) (*domain.User, error) {
	user, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return user, nil
}

var _ port.UserStore = (*StaticStore)(nil)
