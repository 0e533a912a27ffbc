package user

import (
	"time"

	"github.com/tech-arch1tect/authapi/services/refreshtoken"
)

type User struct {
	ID           uint       `json:"id" gorm:"primaryKey"`
	PhoneNumber  string     `json:"phone_number" gorm:"uniqueIndex;size:20;not null"`
	FullName     string     `json:"full_name" gorm:"size:150;not null"`
	Username     string     `json:"username" gorm:"uniqueIndex;size:30;not null"`
	PasswordHash string     `json:"-" gorm:"size:255;not null"`
	IsActive     bool       `json:"is_active" gorm:"not null;default:true"`
	LastLoginAt  *time.Time `json:"last_login_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	RefreshTokens []refreshtoken.RefreshToken `json:"-" gorm:"constraint:OnDelete:CASCADE"`
}

func (User) TableName() string {
	return "users"
}

// Models lists every table this service owns, in migration order.
func Models() []any {
	return []any{&User{}, &refreshtoken.RefreshToken{}}
}
