// Package auth issues and validates the bearer tokens used by the API.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Values of the typ claim.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Token lifetimes.
const (
	AccessTokenTTL  = 15 * time.Minute
	RefreshTokenTTL = 7 * 24 * time.Hour
)

// DefaultLeeway absorbs clock skew between the API and clients.
const DefaultLeeway = 30 * time.Second

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
	ErrEmptyUserID  = errors.New("userID cannot be empty")
)

// Claims carries the identity encoded in a SwipeHire token.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role,omitempty"` // "seeker" or "recruiter", access tokens only
	Type string `json:"typ"`
}

// Config configures a JWTService. PreviousSecret is set only while a secret
// rotation is in progress. A zero Leeway falls back to DefaultLeeway.
type Config struct {
	CurrentSecret  string
	PreviousSecret string
	Leeway         time.Duration
}

// JWTService signs tokens with the current secret and accepts tokens signed
// with either the current or the previous secret, so secrets rotate without
// invalidating outstanding sessions.
type JWTService struct {
	currentSecret  []byte
	previousSecret []byte
	leeway         time.Duration
}

func NewJWTService(cfg Config) *JWTService {
	svc := &JWTService{
		currentSecret: []byte(cfg.CurrentSecret),
		leeway:        cfg.Leeway,
	}
	if cfg.PreviousSecret != "" {
		svc.previousSecret = []byte(cfg.PreviousSecret)
	}
	if svc.leeway == 0 {
		svc.leeway = DefaultLeeway
	}
	return svc
}

// GenerateAccessToken signs a short-lived access token carrying the profile role.
func (s *JWTService) GenerateAccessToken(userID, role string) (string, error) {
	if userID == "" {
		return "", ErrEmptyUserID
	}
	return s.sign(Claims{
		RegisteredClaims: registered(userID, AccessTokenTTL),
		Role:             role,
		Type:             TokenTypeAccess,
	})
}

// GenerateRefreshToken signs a long-lived refresh token. Refresh tokens carry
// no role and are rejected as bearer credentials.
func (s *JWTService) GenerateRefreshToken(userID string) (string, error) {
	if userID == "" {
		return "", ErrEmptyUserID
	}
	return s.sign(Claims{
		RegisteredClaims: registered(userID, RefreshTokenTTL),
		Type:             TokenTypeRefresh,
	})
}

func registered(userID string, ttl time.Duration) jwt.RegisteredClaims {
	now := time.Now()
	return jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

func (s *JWTService) sign(claims Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.currentSecret)
}

// ValidateToken parses a token and returns its claims. The current secret is
// tried first, then the previous secret when one is configured.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	secrets := [][]byte{s.currentSecret}
	if s.previousSecret != nil {
		secrets = append(secrets, s.previousSecret)
	}

	var lastErr error
	for _, secret := range secrets {
		token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
			if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
				return nil, ErrInvalidToken
			}
			return secret, nil
		}, jwt.WithLeeway(s.leeway))
		if err != nil {
			lastErr = err
			continue
		}
		if claims, ok := token.Claims.(*Claims); ok && token.Valid {
			return claims, nil
		}
		lastErr = ErrInvalidToken
	}

	if errors.Is(lastErr, jwt.ErrTokenExpired) {
		return nil, ErrExpiredToken
	}
	return nil, ErrInvalidToken
}
