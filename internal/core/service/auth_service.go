package service

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "buddybox"

// BackupRoles are allowed to manage backups.
var BackupRoles = []string{"admin", "backup_admin"}

// TokenClaims is the capability token presented to the backup API.
type TokenClaims struct {
	Role   string   `json:"role"`
	Scopes []string `json:"scopes,omitempty"`
	jwt.RegisteredClaims
}

// HasAnyRole reports whether the token grants one of roles, either as its
// role claim or as a scope.
func (c *TokenClaims) HasAnyRole(roles ...string) bool {
	if slices.Contains(roles, c.Role) {
		return true
	}
	for _, s := range c.Scopes {
		if slices.Contains(roles, s) {
			return true
		}
	}
	return false
}

// AuthService verifies capability tokens. Tokens are minted by the
// dashboard's login flow or by "buddybox token" for automation.
type AuthService struct {
	jwtSecret    string
	jwtAlgorithm string
}

func NewAuthService(jwtSecret, jwtAlgorithm string) *AuthService {
	if jwtAlgorithm == "" {
		jwtAlgorithm = "HS256"
	}
	return &AuthService{jwtSecret: jwtSecret, jwtAlgorithm: jwtAlgorithm}
}

func (s *AuthService) signingMethod() (jwt.SigningMethod, error) {
	switch s.jwtAlgorithm {
	case "HS256":
		return jwt.SigningMethodHS256, nil
	case "HS384":
		return jwt.SigningMethodHS384, nil
	case "HS512":
		return jwt.SigningMethodHS512, nil
	default:
		return nil, fmt.Errorf("unsupported jwt algorithm %q", s.jwtAlgorithm)
	}
}

// ValidateToken validates a JWT and returns its claims.
func (s *AuthService) ValidateToken(tokenString string) (*TokenClaims, error) {
	if s.jwtSecret == "" {
		return nil, errors.New("token verification is not configured")
	}

	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != s.jwtAlgorithm {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// IssueToken signs a token for subject with the given role.
func (s *AuthService) IssueToken(subject, role string, ttl time.Duration) (string, error) {
	if s.jwtSecret == "" {
		return "", errors.New("jwt_secret_key is not configured")
	}
	method, err := s.signingMethod()
	if err != nil {
		return "", err
	}

	now := time.Now()
	claims := TokenClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(method, claims).SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
