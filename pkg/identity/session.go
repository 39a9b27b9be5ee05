package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/example/foodshop/pkg/config"
	"github.com/example/foodshop/pkg/models"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidSession = errors.New("invalid session")
	ErrSessionExpired = errors.New("session expired")
)

const RoleCustomer = "customer"

type Claims struct {
	Phone string `json:"phone"`
	Name  string `json:"name"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Identity returns the session holder. UID is the database user id.
func (c *Claims) Identity() *Identity {
	return &Identity{UID: c.Subject, Phone: c.Phone, Name: c.Name}
}

type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// SessionManager issues and parses HS256 session tokens for registered users.
type SessionManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewSessionManager(cfg *config.AuthConfig) *SessionManager {
	return &SessionManager{
		secret: []byte(cfg.JWTSecret),
		issuer: cfg.Issuer,
		ttl:    cfg.SessionTTL,
		now:    time.Now,
	}
}

func (m *SessionManager) Issue(user *models.User) (*Session, error) {
	now := m.now()
	expires := now.Add(m.ttl)

	claims := Claims{
		Phone: user.Mobile,
		Name:  user.FullName,
		Role:  RoleCustomer,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign session: %w", err)
	}
	return &Session{Token: signed, ExpiresAt: expires, User: user}, nil
}

func (m *SessionManager) Parse(token string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)

	var claims Claims
	_, err := parser.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrSessionExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	if claims.Subject == "" || claims.Phone == "" {
		return nil, ErrInvalidSession
	}
	return &claims, nil
}
