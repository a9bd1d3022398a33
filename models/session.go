package models

import "time"

// UserSession is the lightweight identity held in the local session cache.
type UserSession struct {
	UID string `json:"uid"`
}

type AuthTokens struct {
	IDToken     string    `json:"idToken,omitempty"`
	LastRefresh time.Time `json:"lastRefresh"`
}

// SessionData is the auth session record kept in the key-value store.
// Considered expired when now - Timestamp exceeds seven days.
type SessionData struct {
	User      UserSession `json:"user"`
	Tokens    AuthTokens  `json:"tokens"`
	Timestamp time.Time   `json:"timestamp"`
}
