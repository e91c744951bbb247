package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/iheejigoro/apiserver/types"
)

// DefaultTokenTTL is the lifetime of an issued token (one year). Tokens
// cannot be revoked, so a deployment should shorten this through JWT_TTL
// rather than editing call sites.
const DefaultTokenTTL = 31556926 * time.Second

var (
	// ErrInvalidToken is returned for malformed tokens, bad signatures,
	// unexpected signing methods and missing subjects.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired is returned for a correctly signed token past its expiry.
	ErrTokenExpired = errors.New("token expired")
)

// Claims is the identity snapshot embedded in a token. It is taken at login
// time and is not refreshed when the profile changes.
type Claims struct {
	UserID       string `json:"id"`
	NameOfVendor string `json:"nameofvendor"`
	Email        string `json:"email,omitempty"`
	Phone        string `json:"phone,omitempty"`
	Sex          string `json:"sex,omitempty"`
	State        string `json:"state,omitempty"`
	Avatar       string `json:"avatar,omitempty"`
	jwt.RegisteredClaims
}

// ClaimsFromUser builds the claims snapshot for user.
func ClaimsFromUser(user types.User) Claims {
	return Claims{
		UserID:       user.ID,
		NameOfVendor: user.NameOfVendor,
		Email:        user.Email,
		Phone:        user.Phone,
		Sex:          user.Sex,
		State:        user.State,
		Avatar:       user.Avatar.URL,
	}
}

// TokenManager issues and verifies HS256 tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager creates a manager with the provided secret and lifetime.
// A non-positive ttl selects DefaultTokenTTL.
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenManager{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// WithClock returns a copy of the manager that reads the current time from now.
func (t *TokenManager) WithClock(now func() time.Time) *TokenManager {
	clone := *t
	clone.now = now
	return &clone
}

// TTL returns the lifetime applied to issued tokens.
func (t *TokenManager) TTL() time.Duration {
	return t.ttl
}

// Issue signs claims and returns the compact token string.
func (t *TokenManager) Issue(claims Claims) (string, error) {
	if strings.TrimSpace(claims.UserID) == "" {
		return "", errors.New("issue token: missing user id")
	}

	now := t.now()
	claims.Subject = claims.UserID
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(t.ttl))

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry of tokenString and returns its claims.
func (t *TokenManager) Verify(tokenString string) (Claims, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return Claims{}, ErrInvalidToken
	}
	if strings.TrimSpace(claims.UserID) == "" || claims.Subject != claims.UserID {
		return Claims{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims, nil
}
