package domain

import "time"

// Account models a registered identity. Username is always stored normalized.
type Account struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	Credential string    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

// Claims is the fixed claim set carried by an access token.
type Claims struct {
	AccountID string
	Username  string
	IssuedAt  time.Time
	ExpiresAt time.Time
}
