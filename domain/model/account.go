package model

import "time"

// Account is a connected TikTok creator. Token fields hold ciphertext only.
type Account struct {
	ID               string     `json:"id" bson:"_id"`
	UserID           string     `json:"user_id" bson:"user_id"`
	OpenID           string     `json:"open_id" bson:"open_id"`
	Username         string     `json:"username" bson:"username"`
	AccessTokenEnc   string     `json:"-" bson:"access_token_enc"`
	RefreshTokenEnc  *string    `json:"-" bson:"refresh_token_enc,omitempty"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty" bson:"expires_at,omitempty"`
	RefreshExpiresAt *time.Time `json:"refresh_expires_at,omitempty" bson:"refresh_expires_at,omitempty"`
	Scopes           string     `json:"scopes" bson:"scopes"`
	CreatedAt        time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" bson:"updated_at"`
}

// AccountTokenUpdate is the write path applied after a successful refresh.
type AccountTokenUpdate struct {
	AccessTokenEnc   string
	RefreshTokenEnc  string
	ExpiresAt        *time.Time
	RefreshExpiresAt *time.Time
}

// TokenPair is a decrypted access/refresh token pair held in memory for one attempt.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	ExpiresAt        *time.Time
	RefreshExpiresAt *time.Time
}
