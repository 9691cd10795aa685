package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"campusvote/internal/platform/middleware"
	"campusvote/internal/user"
)

// Claims is the signed payload of an access token.
type Claims struct {
	Role      string `json:"role"`
	AdminType string `json:"adminType,omitempty"`
	jwt.RegisteredClaims
}

// Service issues and validates HS256 access tokens. It satisfies the
// middleware.JWTValidator interface.
type Service struct {
	signingKey []byte
	issuer     string
	ttl        time.Duration
	now        func() time.Time
}

func NewService(signingKey, issuer string, ttl time.Duration) *Service {
	return &Service{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		ttl:        ttl,
		now:        time.Now,
	}
}

// WithClock overrides the time source for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Issue mints a signed access token for the user.
func (s *Service) Issue(u *user.User) (string, error) {
	now := s.now()
	claims := Claims{
		Role:      string(u.Role),
		AdminType: string(u.AdminType),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and verifies a token string, rejecting anything not
// signed with our key, issued by us, and still valid.
func (s *Service) ValidateToken(tokenString string) (*middleware.JWTClaims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(tokenString, &claims,
		func(t *jwt.Token) (any, error) { return s.signingKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	return &middleware.JWTClaims{
		UserID:    claims.Subject,
		Role:      claims.Role,
		AdminType: claims.AdminType,
	}, nil
}
