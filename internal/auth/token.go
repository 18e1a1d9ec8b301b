package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

var (
	ErrTokenInvalid = errors.New("auth: token invalid")
	ErrTokenExpired = errors.New("auth: token expired")
)

// Claims carried by access tokens. The subject is the user id.
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// IssuedToken is a signed access token and its expiry.
type IssuedToken struct {
	Token     string
	ExpiresAt time.Time
}

// TokenIssuer signs and verifies HS256 access tokens.
type TokenIssuer struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
}

func NewTokenIssuer(secret, issuer, audience string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
		ttl:      ttl,
		now:      time.Now,
	}
}

func (t *TokenIssuer) Issue(caller Caller) (IssuedToken, error) {
	now := t.now().UTC()
	expiresAt := now.Add(t.ttl)

	claims := Claims{
		Email: caller.Email,
		Name:  caller.Name,
		Role:  strings.ToUpper(caller.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   caller.UserID,
			Issuer:    t.issuer,
			Audience:  jwt.ClaimStrings{t.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return IssuedToken{}, fmt.Errorf("sign token: %w", err)
	}

	return IssuedToken{Token: signed, ExpiresAt: expiresAt}, nil
}

// Verify parses raw and returns the caller it identifies. Tokens signed with
// any other method, issuer or audience are rejected.
func (t *TokenIssuer) Verify(raw string) (*Caller, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	claims := &Claims{}
	_, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	})
	if err != nil {
		var validationErr *jwt.ValidationError
		if errors.As(err, &validationErr) && validationErr.Errors&jwt.ValidationErrorExpired != 0 {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	if !claims.VerifyIssuer(t.issuer, true) {
		return nil, fmt.Errorf("%w: unexpected issuer", ErrTokenInvalid)
	}
	if !claims.VerifyAudience(t.audience, true) {
		return nil, fmt.Errorf("%w: unexpected audience", ErrTokenInvalid)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}

	return &Caller{
		UserID: claims.Subject,
		Email:  claims.Email,
		Name:   claims.Name,
		Role:   strings.ToUpper(claims.Role),
	}, nil
}
