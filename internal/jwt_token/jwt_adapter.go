package jwttoken

import (
	id "securitypassport/pkg/domain"
	dErrors "securitypassport/pkg/domain-errors"
	authmw "securitypassport/pkg/platform/middleware/auth"
)

// JWTServiceAdapter satisfies authmw.JWTValidator. It also rejects tokens
// whose subject or tenant is not a UUID, so every export is attributed to a
// real tenant and user.
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
	if _, err := id.ParseUserID(claims.Subject); err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token subject is not a user id")
	}
	if _, err := id.ParseTenantID(claims.TenantID); err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token tenant is not a tenant id")
	}
	return &authmw.JWTClaims{UserID: claims.Subject, TenantID: claims.TenantID}, nil
}
