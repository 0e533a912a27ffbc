package testutils

import (
	"time"

	"github.com/tech-arch1tect/authapi/config"
	"golang.org/x/crypto/bcrypt"
)

func GetTestConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Name:        "Test App",
			Environment: "test",
		},
		Server: config.ServerConfig{
			Host:            "localhost",
			Port:            "0",
			ShutdownTimeout: 2 * time.Second,
		},
		Log: config.LogConfig{
			Level:  "debug",
			Format: "console",
			Output: "stdout",
		},
		Database: config.DatabaseConfig{
			Driver:       "sqlite",
			DSN:          ":memory:",
			AutoMigrate:  true,
			QueryTimeout: 2 * time.Second,
			MaxOpenConns: 1,
			MaxIdleConns: 1,
		},
		Auth: config.AuthConfig{
			BcryptCost:      bcrypt.MinCost,
			MinLength:       8,
			RequireUpper:    true,
			RequireNumber:   true,
			HashConcurrency: 4,
		},
		JWT: config.JWTConfig{
			SecretKey:    "unit-key-0123456789abcdefghijklmnop",
			AccessExpiry: 15 * time.Minute,
			Issuer:       "test-issuer",
		},
		RefreshToken: config.RefreshTokenConfig{
			Expiry:      7 * 24 * time.Hour,
			TokenLength: 48,
		},
		RateLimit: config.RateLimitConfig{
			CleanupInterval: time.Minute,
			SignupLimit:     10,
			SignupWindow:    15 * time.Minute,
			LoginLimit:      5,
			LoginWindow:     15 * time.Minute,
			APILimit:        100,
			APIWindow:       time.Minute,
		},
	}
}

var TestPasswords = struct {
	Valid    string
	Other    string
	TooShort string
	NoUpper  string
	NoNumber string
}{
	Valid:    "Passw0rd",
	Other:    "Wr0ngPassword",
	TooShort: "Pa1",
	NoUpper:  "passw0rd",
	NoNumber: "Password",
}

type SignupFixture struct {
	PhoneNumber string
	FullName    string
	Username    string
	Password    string
}

var TestUsers = struct {
	Valid  SignupFixture
	Second SignupFixture
}{
	Valid: SignupFixture{
		PhoneNumber: "+919876543210",
		FullName:    "A B",
		Username:    "ab_99",
		Password:    "Passw0rd",
	},
	Second: SignupFixture{
		PhoneNumber: "+14155550123",
		FullName:    "Grace Hopper",
		Username:    "Grace_H",
		Password:    "C0bolRules",
	},
}
