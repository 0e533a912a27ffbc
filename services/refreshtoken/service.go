package refreshtoken

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/mileusna/useragent"
	"github.com/tech-arch1tect/authapi/config"
	"github.com/tech-arch1tect/authapi/internal/clock"
	"github.com/tech-arch1tect/authapi/services/logging"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrRefreshTokenNotFound  = errors.New("refresh token not found")
	ErrRefreshTokenExpired   = errors.New("refresh token expired")
	ErrTokenGenerationFailed = errors.New("failed to generate secure token")
)

type Service struct {
	db           *gorm.DB
	clock        clock.Clock
	logger       *logging.Service
	tokenLength  int
	expiry       time.Duration
	queryTimeout time.Duration
	cleanup      time.Duration
}

func NewService(db *gorm.DB, cfg *config.Config, clk clock.Clock, logger *logging.Service) *Service {
	if clk == nil {
		clk = clock.Real{}
	}

	tokenLength := cfg.RefreshToken.TokenLength
	if tokenLength < config.MinRefreshTokenLength {
		tokenLength = config.MinRefreshTokenLength
	}

	if logger != nil {
		logger.Info("initializing refresh token service",
			zap.Duration("token_expiry", cfg.RefreshToken.Expiry),
			zap.Int("token_length", tokenLength),
			zap.Duration("cleanup_interval", cfg.RefreshToken.CleanupInterval))
	}

	return &Service{
		db:           db,
		clock:        clk,
		logger:       logger,
		tokenLength:  tokenLength,
		expiry:       cfg.RefreshToken.Expiry,
		queryTimeout: cfg.Database.QueryTimeout,
		cleanup:      cfg.RefreshToken.CleanupInterval,
	}
}

// Generate mints a new hex encoded token from crypto/rand. Nothing is stored.
func (s *Service) Generate() (*Generated, error) {
	raw := make([]byte, s.tokenLength)
	if _, err := rand.Read(raw); err != nil {
		if s.logger != nil {
			s.logger.Error("failed to read random bytes for refresh token", zap.Error(err))
		}
		return nil, fmt.Errorf("%w: %w", ErrTokenGenerationFailed, err)
	}

	token := hex.EncodeToString(raw)

	return &Generated{
		Token:     token,
		Hash:      Hash(token),
		ExpiresAt: s.clock.Now().Add(s.expiry),
	}, nil
}

// Hash is the lookup key stored for a token.
func Hash(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (s *Service) Store(ctx context.Context, userID uint, generated *Generated, info SessionInfo) (*RefreshToken, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	record := RefreshToken{
		UserID:     userID,
		TokenHash:  generated.Hash,
		ExpiresAt:  generated.ExpiresAt,
		CreatedAt:  s.clock.Now(),
		DeviceInfo: DescribeDevice(info.UserAgent),
		IPAddress:  truncate(info.IPAddress, maxIPAddressLength),
	}

	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		if s.logger != nil {
			s.logger.Error("failed to store refresh token",
				zap.Uint("user_id", userID),
				zap.Error(err))
		}
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	if s.logger != nil {
		s.logger.Debug("refresh token stored",
			zap.Uint("user_id", userID),
			zap.Uint("token_id", record.ID),
			zap.Time("expires_at", record.ExpiresAt))
	}

	return &record, nil
}

// Validate looks a raw token up by its hash. An expired row is deleted on
// sight and reported as ErrRefreshTokenExpired.
func (s *Service) Validate(ctx context.Context, token string) (*RefreshToken, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var record RefreshToken
	err := s.db.WithContext(ctx).Where("token_hash = ?", Hash(token)).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRefreshTokenNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if !s.clock.Now().Before(record.ExpiresAt) {
		if s.logger != nil {
			s.logger.Info("refresh token expired",
				zap.Uint("token_id", record.ID),
				zap.Uint("user_id", record.UserID),
				zap.Time("expired_at", record.ExpiresAt))
		}
		if err := s.db.WithContext(ctx).Delete(&record).Error; err != nil && s.logger != nil {
			s.logger.Warn("failed to delete expired refresh token",
				zap.Uint("token_id", record.ID),
				zap.Error(err))
		}
		return nil, ErrRefreshTokenExpired
	}

	return &record, nil
}

// Revoke deletes the row for token. Unknown tokens are not an error.
func (s *Service) Revoke(ctx context.Context, token string) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	tokenHash := Hash(token)
	result := s.db.WithContext(ctx).Where("token_hash = ?", tokenHash).Delete(&RefreshToken{})
	if result.Error != nil {
		return false, fmt.Errorf("failed to revoke refresh token: %w", result.Error)
	}

	if s.logger != nil {
		s.logger.Info("refresh token revoked",
			zap.String("token_hash", tokenHash[:16]+"..."),
			zap.Int64("affected_rows", result.RowsAffected))
	}

	return result.RowsAffected > 0, nil
}

func (s *Service) RevokeAllForUser(ctx context.Context, userID uint) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	result := s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&RefreshToken{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to revoke refresh tokens for user: %w", result.Error)
	}

	if s.logger != nil {
		s.logger.Info("all user refresh tokens revoked",
			zap.Uint("user_id", userID),
			zap.Int64("count", result.RowsAffected))
	}

	return result.RowsAffected, nil
}

// PurgeExpired deletes every row whose expiry is not in the future.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	result := s.db.WithContext(ctx).Where("expires_at <= ?", s.clock.Now()).Delete(&RefreshToken{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to purge expired refresh tokens: %w", result.Error)
	}

	if result.RowsAffected > 0 && s.logger != nil {
		s.logger.Info("purged expired refresh tokens", zap.Int64("count", result.RowsAffected))
	}

	return result.RowsAffected, nil
}

// StartCleanupWorker purges on a ticker until ctx is cancelled. It is a no-op
// when no cleanup interval is configured; purging then only happens on login.
func (s *Service) StartCleanupWorker(ctx context.Context) bool {
	if s.cleanup <= 0 {
		return false
	}

	go func() {
		ticker := time.NewTicker(s.cleanup)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.PurgeExpired(ctx); err != nil && s.logger != nil {
					s.logger.Error("refresh token cleanup worker failed", zap.Error(err))
				}
			}
		}
	}()

	if s.logger != nil {
		s.logger.Info("started refresh token cleanup worker", zap.Duration("interval", s.cleanup))
	}

	return true
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.queryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.queryTimeout)
}

// Column sizes of RefreshToken.DeviceInfo and RefreshToken.IPAddress.
const (
	maxDeviceInfoLength = 255
	maxIPAddressLength  = 64
)

// DescribeDevice condenses a User-Agent header into a short label such as
// "Chrome 120 on Windows (desktop)". The label never exceeds 255 bytes.
func DescribeDevice(userAgent string) string {
	return truncate(deviceLabel(userAgent), maxDeviceInfoLength)
}

func deviceLabel(userAgent string) string {
	if userAgent == "" {
		return ""
	}

	ua := useragent.Parse(userAgent)
	if ua.Name == "" {
		return userAgent
	}

	label := ua.Name
	if ua.Version != "" {
		major := ua.Version
		for i, r := range ua.Version {
			if r == '.' {
				major = ua.Version[:i]
				break
			}
		}
		label += " " + major
	}
	if ua.OS != "" {
		label += " on " + ua.OS
	}

	switch {
	case ua.Bot:
		label += " (bot)"
	case ua.Mobile:
		label += " (mobile)"
	case ua.Tablet:
		label += " (tablet)"
	case ua.Desktop:
		label += " (desktop)"
	}

	return label
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
