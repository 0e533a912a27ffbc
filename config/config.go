package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// MinRefreshTokenLength is the smallest number of random bytes a refresh token may carry.
const MinRefreshTokenLength = 48

type Config struct {
	App          AppConfig          `envPrefix:"APP_"`
	Server       ServerConfig       `envPrefix:"SERVER_"`
	Log          LogConfig          `envPrefix:"LOG_"`
	Database     DatabaseConfig     `envPrefix:"DATABASE_"`
	Auth         AuthConfig         `envPrefix:"AUTH_"`
	JWT          JWTConfig          `envPrefix:"JWT_"`
	RefreshToken RefreshTokenConfig `envPrefix:"REFRESH_TOKEN_"`
	RateLimit    RateLimitConfig    `envPrefix:"RATE_LIMIT_"`
}

type AppConfig struct {
	Name        string `env:"NAME" envDefault:"authapi"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
}

type ServerConfig struct {
	Port            string        `env:"PORT" envDefault:"8080"`
	Host            string        `env:"HOST" envDefault:"localhost"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// TrustProxy takes the client address from X-Forwarded-For.
	TrustProxy bool `env:"TRUST_PROXY" envDefault:"false"`
}

type LogConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"json"`
	Output string `env:"OUTPUT" envDefault:"stdout"`
}

type DatabaseConfig struct {
	Driver          string        `env:"DRIVER" envDefault:"sqlite"`
	DSN             string        `env:"DSN" envDefault:"authapi.db"`
	AutoMigrate     bool          `env:"AUTO_MIGRATE" envDefault:"true"`
	QueryTimeout    time.Duration `env:"QUERY_TIMEOUT" envDefault:"5s"`
	MaxOpenConns    int           `env:"MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns    int           `env:"MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME" envDefault:"30m"`
}

type AuthConfig struct {
	BcryptCost      int  `env:"BCRYPT_COST" envDefault:"12"`
	MinLength       int  `env:"PASSWORD_MIN_LENGTH" envDefault:"8"`
	RequireUpper    bool `env:"REQUIRE_UPPER" envDefault:"true"`
	RequireNumber   bool `env:"REQUIRE_NUMBER" envDefault:"true"`
	HashConcurrency int  `env:"HASH_CONCURRENCY" envDefault:"0"`
	// GenericConflict hides which unique field collided on signup.
	GenericConflict bool `env:"GENERIC_CONFLICT" envDefault:"false"`
}

type JWTConfig struct {
	SecretKey    string        `env:"SECRET_KEY"`
	AccessExpiry time.Duration `env:"ACCESS_EXPIRY" envDefault:"15m"`
	Issuer       string        `env:"ISSUER" envDefault:"auth-api"`
}

type RefreshTokenConfig struct {
	Expiry          time.Duration `env:"EXPIRY" envDefault:"168h"`
	TokenLength     int           `env:"LENGTH" envDefault:"48"`
	CleanupInterval time.Duration `env:"CLEANUP_INTERVAL" envDefault:"0"`
}

type RateLimitConfig struct {
	CleanupInterval time.Duration `env:"CLEANUP_INTERVAL" envDefault:"5m"`
	SignupLimit     int           `env:"SIGNUP_LIMIT" envDefault:"10"`
	SignupWindow    time.Duration `env:"SIGNUP_WINDOW" envDefault:"15m"`
	LoginLimit      int           `env:"LOGIN_LIMIT" envDefault:"5"`
	LoginWindow     time.Duration `env:"LOGIN_WINDOW" envDefault:"15m"`
	APILimit        int           `env:"API_LIMIT" envDefault:"120"`
	APIWindow       time.Duration `env:"API_WINDOW" envDefault:"1m"`
}

func LoadConfig(cfg any) error {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	if err := env.Parse(cfg); err != nil {
		return err
	}

	if c, ok := cfg.(*Config); ok {
		return c.Validate()
	}

	return nil
}

func (c *Config) Validate() error {
	if err := validateJWTConfig(&c.JWT); err != nil {
		return err
	}
	if err := validateAuthConfig(&c.Auth); err != nil {
		return err
	}
	if err := validateRefreshTokenConfig(&c.RefreshToken); err != nil {
		return err
	}
	return validateRateLimitConfig(&c.RateLimit)
}

var weakSecretPatterns = []string{"password", "secret", "change", "default", "example"}

func validateJWTConfig(cfg *JWTConfig) error {
	if cfg.SecretKey == "" {
		return errors.New("JWT secret key is required (set JWT_SECRET_KEY)")
	}
	if len(cfg.SecretKey) < 32 {
		return errors.New("JWT secret key must be at least 32 characters long")
	}

	lower := strings.ToLower(cfg.SecretKey)
	for _, pattern := range weakSecretPatterns {
		if strings.Contains(lower, pattern) {
			return fmt.Errorf("JWT secret key contains weak patterns (%q)", pattern)
		}
	}

	if cfg.AccessExpiry <= 0 {
		return errors.New("JWT access expiry must be positive")
	}
	return nil
}

func validateAuthConfig(cfg *AuthConfig) error {
	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("bcrypt cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if cfg.MinLength < 1 {
		return errors.New("password minimum length must be at least 1")
	}
	if cfg.HashConcurrency < 0 {
		return errors.New("hash concurrency cannot be negative")
	}
	return nil
}

func validateRefreshTokenConfig(cfg *RefreshTokenConfig) error {
	if cfg.TokenLength < MinRefreshTokenLength {
		return fmt.Errorf("refresh token length must be at least %d bytes", MinRefreshTokenLength)
	}
	if cfg.TokenLength > 256 {
		return errors.New("refresh token length cannot exceed 256 bytes")
	}
	if cfg.Expiry <= 0 {
		return errors.New("refresh token expiry must be positive")
	}
	return nil
}

func validateRateLimitConfig(cfg *RateLimitConfig) error {
	if cfg.SignupLimit < 1 || cfg.LoginLimit < 1 || cfg.APILimit < 1 {
		return errors.New("rate limits must be at least 1")
	}
	if cfg.SignupWindow <= 0 || cfg.LoginWindow <= 0 || cfg.APIWindow <= 0 {
		return errors.New("rate limit windows must be positive")
	}
	return nil
}
