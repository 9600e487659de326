package jwttoken

import (
	authmw "yeirin/pkg/platform/middleware/auth"
)

// JWTServiceAdapter exposes JWTService through the auth middleware's
// validator interface.
type JWTServiceAdapter struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

func (a *JWTServiceAdapter) ValidateToken(tokenString string) (*authmw.JWTClaims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return &authmw.JWTClaims{
		UserID:        claims.UserID,
		Role:          claims.Role,
		InstitutionID: claims.InstitutionID,
		JTI:           claims.ID,
	}, nil
}
