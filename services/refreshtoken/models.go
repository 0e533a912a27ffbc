package refreshtoken

import (
	"time"
)

// RefreshToken is the persisted half of a refresh token. Only the SHA-256
// hash of the raw value is stored.
type RefreshToken struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	UserID     uint      `json:"user_id" gorm:"not null;index"`
	TokenHash  string    `json:"-" gorm:"uniqueIndex;size:64;not null"`
	ExpiresAt  time.Time `json:"expires_at" gorm:"not null;index"`
	CreatedAt  time.Time `json:"created_at"`
	DeviceInfo string    `json:"device_info" gorm:"size:255"`
	IPAddress  string    `json:"ip_address" gorm:"size:64"`
}

func (RefreshToken) TableName() string {
	return "refresh_tokens"
}

type SessionInfo struct {
	IPAddress string
	UserAgent string
}

// Generated is a freshly minted token. Token is handed to the client once and
// never persisted.
type Generated struct {
	Token     string
	Hash      string
	ExpiresAt time.Time
}
