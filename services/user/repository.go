package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/tech-arch1tect/authapi/config"
	"github.com/tech-arch1tect/authapi/internal/clock"
	"github.com/tech-arch1tect/authapi/services/logging"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound = errors.New("user not found")
	// ErrDuplicate means a unique constraint rejected the write.
	ErrDuplicate = errors.New("user already exists")
)

type Repository struct {
	db           *gorm.DB
	clock        clock.Clock
	logger       *logging.Service
	queryTimeout time.Duration
}

func NewRepository(db *gorm.DB, cfg *config.Config, clk clock.Clock, logger *logging.Service) *Repository {
	if clk == nil {
		clk = clock.Real{}
	}

	return &Repository{
		db:           db,
		clock:        clk,
		logger:       logger,
		queryTimeout: cfg.Database.QueryTimeout,
	}
}

func (r *Repository) PhoneExists(ctx context.Context, phone string) (bool, error) {
	return r.exists(ctx, "phone_number = ?", phone)
}

func (r *Repository) UsernameExists(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, "username = ?", strings.ToLower(username))
}

func (r *Repository) exists(ctx context.Context, query string, arg any) (bool, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var count int64
	if err := r.db.WithContext(ctx).Model(&User{}).Where(query, arg).Limit(1).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	return count > 0, nil
}

// Create inserts u inside a transaction. The unique indexes on phone number
// and username are the final word on conflicts; a violation surfaces as
// ErrDuplicate no matter what any earlier existence check said.
func (r *Repository) Create(ctx context.Context, u *User) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	u.Username = strings.ToLower(u.Username)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(u).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			if r.logger != nil {
				r.logger.Info("user insert rejected by unique constraint",
					zap.String("username", u.Username))
			}
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

func (r *Repository) FindByPhone(ctx context.Context, phone string) (*User, error) {
	return r.first(ctx, "phone_number = ?", phone)
}

func (r *Repository) FindByID(ctx context.Context, id uint) (*User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *Repository) first(ctx context.Context, query string, arg any) (*User, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var u User
	if err := r.db.WithContext(ctx).Where(query, arg).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &u, nil
}

// TouchLastLogin stamps the current time as the user's last login.
func (r *Repository) TouchLastLogin(ctx context.Context, id uint) (time.Time, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	now := r.clock.Now()
	result := r.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).Update("last_login_at", now)
	if result.Error != nil {
		return time.Time{}, fmt.Errorf("failed to update last login: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return time.Time{}, ErrUserNotFound
	}
	return now, nil
}

func (r *Repository) SetActive(ctx context.Context, id uint, active bool) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	result := r.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).Update("is_active", active)
	if result.Error != nil {
		return fmt.Errorf("failed to update user status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}

	if r.logger != nil {
		r.logger.Info("user status changed", zap.Uint("user_id", id), zap.Bool("active", active))
	}
	return nil
}

func (r *Repository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.queryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.queryTimeout)
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}

	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
