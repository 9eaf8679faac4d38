package model

import "github.com/golang-jwt/jwt"

// UserClaims are the JWT claims issued by the dashboard login service.
type UserClaims struct {
	UserName string `json:"user_name"`
	jwt.StandardClaims
}

// UserID prefers the subject claim and falls back to the issuer.
func (c UserClaims) UserID() string {
	if c.Subject != "" {
		return c.Subject
	}
	return c.Issuer
}
