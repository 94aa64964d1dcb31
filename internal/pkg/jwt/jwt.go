package jwt

import (
	"context"
	"errors"
	"time"

	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/user"
	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

const (
	TokenTypeAccess = "access"
	TokenTypeSSE    = "sse"
)

var ErrInvalidTokenType = errors.New("unexpected token type")

// Claims are the fields the engine reads from a verified token.
type Claims struct {
	UserID    string
	CompanyID string
	Role      user.Role
}

// Service verifies access tokens issued by the HRIS auth service and mints
// the short-lived tokens used by EventSource clients, which cannot send an
// Authorization header.
type Service interface {
	JWTAuth() *jwtauth.JWTAuth
	GenerateAccessToken(claims Claims, ttl time.Duration) (token string, expiresAt int64, err error)
	GenerateSSEToken(claims Claims) (token string, expiresIn int, err error)
	ValidateSSEToken(tokenString string) (Claims, error)
}

type JWTService struct {
	tokenAuth   *jwtauth.JWTAuth
	sseTokenTTL time.Duration
	now         func() time.Time
}

func NewJWTService(secretKey string, sseTokenTTL time.Duration) Service {
	if sseTokenTTL <= 0 {
		sseTokenTTL = 5 * time.Minute
	}
	return &JWTService{
		tokenAuth:   jwtauth.New("HS256", []byte(secretKey), nil, jwt.WithAcceptableSkew(30*time.Second)),
		sseTokenTTL: sseTokenTTL,
		now:         time.Now,
	}
}

func (j *JWTService) JWTAuth() *jwtauth.JWTAuth {
	return j.tokenAuth
}

// GenerateAccessToken signs an access token. Production tokens come from the
// auth service; this is used by the recompute CLI and by tests.
func (j *JWTService) GenerateAccessToken(claims Claims, ttl time.Duration) (token string, expiresAt int64, err error) {
	expiresAt = j.now().Add(ttl).Unix()
	_, token, err = j.tokenAuth.Encode(map[string]interface{}{
		"user_id":    claims.UserID,
		"company_id": claims.CompanyID,
		"role":       string(claims.Role),
		"type":       TokenTypeAccess,
		"exp":        expiresAt,
	})
	return token, expiresAt, err
}

// GenerateSSEToken generates a short-lived token for SSE connections
func (j *JWTService) GenerateSSEToken(claims Claims) (token string, expiresIn int, err error) {
	expiresAt := j.now().Add(j.sseTokenTTL).Unix()

	_, token, err = j.tokenAuth.Encode(map[string]interface{}{
		"user_id":    claims.UserID,
		"company_id": claims.CompanyID,
		"type":       TokenTypeSSE,
		"exp":        expiresAt,
	})
	if err != nil {
		return "", 0, err
	}

	return token, int(j.sseTokenTTL.Seconds()), nil
}

// ValidateSSEToken validates an SSE token and returns its claims
func (j *JWTService) ValidateSSEToken(tokenString string) (Claims, error) {
	token, err := jwtauth.VerifyToken(j.tokenAuth, tokenString)
	if err != nil {
		return Claims{}, err
	}

	claims, err := token.AsMap(context.Background())
	if err != nil {
		return Claims{}, err
	}
	if tokenType, _ := claims["type"].(string); tokenType != TokenTypeSSE {
		return Claims{}, ErrInvalidTokenType
	}

	return FromMap(claims), nil
}

// FromMap reads Claims out of a decoded claim set.
func FromMap(m map[string]interface{}) Claims {
	var c Claims
	c.UserID, _ = m["user_id"].(string)
	c.CompanyID, _ = m["company_id"].(string)
	role, _ := m["role"].(string)
	c.Role = user.Role(role)
	return c
}
