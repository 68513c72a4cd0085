package port

import "vidmill/internal/domain"

// UserStore is the account directory behind the identity provider.
type UserStore interface {
	GetByEmail(email string) (*domain.User, error)
	GetByID(id string) (*domain.User, error)
}
