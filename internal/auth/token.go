package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// Issuer is stamped into every token this service signs.
	Issuer = "community-auth-service"

	// Type discriminators. A structurally valid token of the wrong kind must
	// never pass validation for the other kind.
	TokenTypeAccess  = "community_access"
	TokenTypeRefresh = "refresh"

	defaultAccessTTL = 7 * 24 * time.Hour
	refreshTTL       = 30 * 24 * time.Hour
)

// Token validation failure taxonomy. Callers map all three to an
// unauthenticated response.
var (
	ErrTokenExpired   = errors.New("auth: token expired")
	ErrTokenMalformed = errors.New("auth: token malformed")
	ErrWrongTokenType = errors.New("auth: wrong token type")
)

// AccessClaims is the signed snapshot of a user's identity and role at
// issuance time. It is not refreshed per request; callers needing fresh role
// data must re-issue.
type AccessClaims struct {
	UserID      string `json:"user_id"`
	ExternalID  string `json:"external_id"`
	Email       string `json:"email"`
	FullName    string `json:"full_name"`
	Role        string `json:"role"`
	UnitNumber  string `json:"unit_number,omitempty"`
	IsActive    bool   `json:"is_active"`
	TokenType   string `json:"type"`
	jwt.RegisteredClaims
}

// RefreshClaims carries only the user id and the type discriminator.
type RefreshClaims struct {
	UserID    string `json:"user_id"`
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

// TokenService issues and validates both token kinds. Validity is purely a
// function of signature and expiry; there is no revocation store.
type TokenService struct {
	secret    []byte
	accessTTL time.Duration
	now       func() time.Time
}

// TokenOption configures TokenService behavior.
type TokenOption func(*TokenService)

// WithAccessTTL overrides the access token lifetime.
func WithAccessTTL(ttl time.Duration) TokenOption {
	return func(s *TokenService) {
		if ttl > 0 {
			s.accessTTL = ttl
		}
	}
}

// WithTokenClock overrides the time source (useful for tests).
func WithTokenClock(fn func() time.Time) TokenOption {
	return func(s *TokenService) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewTokenService constructs a TokenService around a signing secret.
func NewTokenService(secret string, opts ...TokenOption) (*TokenService, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("auth: signing secret is required")
	}
	svc := &TokenService{
		secret:    []byte(secret),
		accessTTL: defaultAccessTTL,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// IssueAccess signs an access token embedding a snapshot of u.
func (s *TokenService) IssueAccess(u User) (string, time.Time, error) {
	now := s.now().UTC()
	exp := now.Add(s.accessTTL)
	claims := AccessClaims{
		UserID:     u.ID,
		ExternalID: u.ExternalID,
		Email:      u.Email,
		FullName:   u.FullName,
		Role:       string(NormalizeRole(string(u.Role))),
		UnitNumber: u.UnitNumber,
		IsActive:   u.IsActive,
		TokenType:  TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, exp, nil
}

// IssueRefresh signs a refresh token for the given user id. The lifetime is
// fixed at thirty days.
func (s *TokenService) IssueRefresh(userID string) (string, time.Time, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", time.Time{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	now := s.now().UTC()
	exp := now.Add(refreshTTL)
	claims := RefreshClaims{
		UserID:    userID,
		TokenType: TokenTypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign refresh token: %w", err)
	}
	return signed, exp, nil
}

// ValidateAccess verifies signature and expiry and checks the access type
// discriminator. The role claim is normalized so downstream comparisons only
// ever see canonical roles.
func (s *TokenService) ValidateAccess(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := s.parse(token, claims); err != nil {
		return nil, err
	}
	if claims.TokenType != TokenTypeAccess {
		return nil, ErrWrongTokenType
	}
	if strings.TrimSpace(claims.UserID) == "" {
		return nil, ErrTokenMalformed
	}
	claims.Role = string(NormalizeRole(claims.Role))
	return claims, nil
}

// ValidateRefresh verifies signature and expiry and rejects any token whose
// type discriminator is not "refresh", including otherwise valid access
// tokens.
func (s *TokenService) ValidateRefresh(token string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := s.parse(token, claims); err != nil {
		return nil, err
	}
	if claims.TokenType != TokenTypeRefresh {
		return nil, ErrWrongTokenType
	}
	if strings.TrimSpace(claims.UserID) == "" {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}

func (s *TokenService) parse(token string, claims jwt.Claims) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrTokenMalformed
	}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrTokenMalformed
		}
		return s.secret, nil
	},
		jwt.WithTimeFunc(func() time.Time { return s.now().UTC() }),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return ErrTokenMalformed
	}
	if !parsed.Valid {
		return ErrTokenMalformed
	}
	return nil
}
