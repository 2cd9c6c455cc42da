package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrExpiredToken  = errors.New("token has expired")
	ErrInvalidClaims = errors.New("invalid token claims")
)

// JWTConfig holds token signing configuration
type JWTConfig struct {
	Secret        string
	Expiry        time.Duration
	RefreshExpiry time.Duration
	Issuer        string
}

// Claims carries the identity a token asserts. TokenVersion lets a password
// change or an admin action invalidate every token issued before it.
type Claims struct {
	UserID       uint   `json:"user_id"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	TokenType    string `json:"token_type"` // "access" or "refresh"
	TokenVersion int    `json:"token_version"`
	jwt.RegisteredClaims
}

// JWTManager issues and validates signed tokens
type JWTManager struct {
	config JWTConfig
}

// NewJWTManager creates a new JWT manager
func NewJWTManager(config JWTConfig) *JWTManager {
	return &JWTManager{config: config}
}

// GenerateAccessToken issues a short-lived access token, returning the
// signed token and its JTI for blacklist bookkeeping
func (j *JWTManager) GenerateAccessToken(userID uint, email string, role string, tokenVersion int) (string, string, error) {
	return j.generate(userID, email, role, "access", tokenVersion, j.config.Expiry)
}

// GenerateRefreshToken issues a refresh token, returning the signed token
// and its JTI
func (j *JWTManager) GenerateRefreshToken(userID uint, email string, role string, tokenVersion int) (string, string, error) {
	return j.generate(userID, email, role, "refresh", tokenVersion, j.config.RefreshExpiry)
}

func (j *JWTManager) generate(userID uint, email, role, tokenType string, tokenVersion int, expiry time.Duration) (string, string, error) {
	now := time.Now()
	jti := uuid.New().String()

	claims := Claims{
		UserID:       userID,
		Email:        email,
		Role:         role,
		TokenType:    tokenType,
		TokenVersion: tokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    j.config.Issuer,
			Subject:   email,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString([]byte(j.config.Secret))
	return signedToken, jti, err
}

// ValidateToken checks the signature and expiry and returns the claims
func (j *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(j.config.Secret), nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}

	return claims, nil
}

// GetTokenExpiry reads the expiry of a token without validating it; logout
// uses this to size the blacklist window for already-issued tokens
func (j *JWTManager) GetTokenExpiry(tokenString string) (time.Time, error) {
	token, _, err := jwt.NewParser().ParseUnverified(tokenString, &Claims{})
	if err != nil {
		return time.Time{}, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return time.Time{}, ErrInvalidClaims
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, errors.New("token has no expiry")
	}

	return claims.ExpiresAt.Time, nil
}
