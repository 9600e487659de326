package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "yeirin/pkg/domain"
	dErrors "yeirin/pkg/domain-errors"
)

// Claims represents the JWT claims for access tokens. RegisteredClaims.ID is
// the jti checked against the revocation list.
type Claims struct {
	UserID        string `json:"user_id"`
	Role          string `json:"role"`
	InstitutionID string `json:"institution_id,omitempty"`
	jwt.RegisteredClaims
}

// IssuedToken is a freshly signed access token.
type IssuedToken struct {
	Token     string
	JTI       string
	ExpiresAt time.Time
}

// JWTService handles JWT creation and validation
type JWTService struct {
	signingKey []byte
	issuer     string
	ttl        time.Duration
	now        func() time.Time
}

func NewJWTService(signingKey string, issuer string, ttl time.Duration) *JWTService {
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		ttl:        ttl,
		now:        time.Now,
	}
}

// TTL is the lifetime of issued tokens. Revocation entries live as long.
func (s *JWTService) TTL() time.Duration { return s.ttl }

func (s *JWTService) GenerateAccessToken(userID id.UserID, role id.Role, institutionID id.InstitutionID) (IssuedToken, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)
	jti := uuid.NewString()

	claims := Claims{
		UserID: userID.String(),
		Role:   role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			ID:        jti,
		},
	}
	if !institutionID.IsNil() {
		claims.InstitutionID = institutionID.String()
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return IssuedToken{}, err
	}
	return IssuedToken{Token: signed, JTI: jti, ExpiresAt: expiresAt}, nil
}

func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		return s.signingKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return claims, nil
}
