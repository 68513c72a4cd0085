package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"vidmill/internal/domain"
	"vidmill/internal/port"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("expired token")
	ErrInvalidCreds = errors.New("invalid credentials")
)

const sessionTTL = 7 * 24 * time.Hour

// AuthService is the identity provider. It verifies credentials against the
// user store and issues HMAC-signed session tokens carrying the user id. The
// job core consumes only the resulting Identity and trusts it as-is.
type AuthService struct {
	users     port.UserStore
	secretKey string
}

func NewAuthService(users port.UserStore, secretKey string) *AuthService {
	return &AuthService{users: users, secretKey: secretKey}
}

// Login checks the password and returns a session token.
func (s *AuthService) Login(email, password string) (string, error) {
	user, err := s.users.GetByEmail(email)
	if err != nil {
		return "", ErrInvalidCreds
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", ErrInvalidCreds
	}
	return s.sign(user.ID, time.Now()), nil
}

// ValidateToken resolves a session token to the caller identity.
func (s *AuthService) ValidateToken(token string) (domain.Identity, error) {
	parts := strings.Split(token, ":")
	if len(parts) != 3 {
		return domain.Identity{}, ErrInvalidToken
	}
	timestamp, userID, signature := parts[0], parts[1], parts[2]

	if !hmac.Equal([]byte(signature), []byte(s.signature(timestamp, userID))) {
		return domain.Identity{}, ErrInvalidToken
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return domain.Identity{}, ErrInvalidToken
	}
	if time.Now().After(time.Unix(ts, 0).Add(sessionTTL)) {
		return domain.Identity{}, ErrExpiredToken
	}

	user, err := s.users.GetByID(userID)
	if err != nil {
		return domain.Identity{}, ErrInvalidToken
	}
	return user.Identity(), nil
}

func (s *AuthService) sign(userID string, now time.Time) string {
	timestamp := strconv.FormatInt(now.Unix(), 10)
	return timestamp + ":" + userID + ":" + s.signature(timestamp, userID)
}

func (s *AuthService) signature(timestamp, userID string) string {
	mac := hmac.New(sha256.New, []byte(s.secretKey))
	mac.Write([]byte(timestamp + ":" + userID))
	return base64.URLEncoding.EncodeToString(mac.Sum(nil))
}
