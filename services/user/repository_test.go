package user

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tech-arch1tect/authapi/internal/clock"
	"github.com/tech-arch1tect/authapi/services/refreshtoken"
	"github.com/tech-arch1tect/authapi/testutils"
	"gorm.io/gorm"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestRepository(t *testing.T) (*Repository, *gorm.DB, *clock.Fake) {
	t.Helper()

	db := testutils.SetupTestDB(t, Models()...)
	clk := clock.NewFake(epoch)

	return NewRepository(db, testutils.GetTestConfig(), clk, nil), db, clk
}

func newUser(phone, username string) *User {
	return &User{
		PhoneNumber:  phone,
		FullName:     "Test User",
		Username:     username,
		PasswordHash: "$2a$04$placeholder",
		IsActive:     true,
	}
}

func TestRepository_CreateAndFind(t *testing.T) {
	repo, _, _ := newTestRepository(t)
	ctx := context.Background()

	u := newUser("+919876543210", "Ab_99")
	require.NoError(t, repo.Create(ctx, u))
	assert.NotZero(t, u.ID)
	assert.Equal(t, "ab_99", u.Username)

	byPhone, err := repo.FindByPhone(ctx, "+919876543210")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byPhone.ID)
	assert.True(t, byPhone.IsActive)
	assert.Nil(t, byPhone.LastLoginAt)

	byID, err := repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "+919876543210", byID.PhoneNumber)

	_, err = repo.FindByPhone(ctx, "+10000000000")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = repo.FindByID(ctx, 999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestRepository_Exists(t *testing.T) {
	repo, _, _ := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newUser("+919876543210", "ab_99")))

	exists, err := repo.PhoneExists(ctx, "+919876543210")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.PhoneExists(ctx, "+14155550123")
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = repo.UsernameExists(ctx, "AB_99")
	require.NoError(t, err)
	assert.True(t, exists, "username lookups are case insensitive")

	exists, err = repo.UsernameExists(ctx, "someone_else")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRepository_CreateDuplicate(t *testing.T) {
	repo, _, _ := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newUser("+919876543210", "ab_99")))

	t.Run("same phone", func(t *testing.T) {
		err := repo.Create(ctx, newUser("+919876543210", "other"))
		assert.ErrorIs(t, err, ErrDuplicate)
	})

	t.Run("same username different case", func(t *testing.T) {
		err := repo.Create(ctx, newUser("+14155550123", "AB_99"))
		assert.ErrorIs(t, err, ErrDuplicate)
	})
}

func TestRepository_CreateRace(t *testing.T) {
	repo, db, _ := newTestRepository(t)
	ctx := context.Background()

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)

	for i := range attempts {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = repo.Create(ctx, newUser("+919876543210", fmt.Sprintf("racer_%d", i)))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrDuplicate)
	}
	assert.Equal(t, 1, succeeded)

	var count int64
	require.NoError(t, db.Model(&User{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRepository_TouchLastLogin(t *testing.T) {
	repo, _, clk := newTestRepository(t)
	ctx := context.Background()

	u := newUser("+919876543210", "ab_99")
	require.NoError(t, repo.Create(ctx, u))

	clk.Advance(time.Hour)
	stamped, err := repo.TouchLastLogin(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, epoch.Add(time.Hour), stamped)

	reloaded, err := repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.LastLoginAt)
	assert.True(t, reloaded.LastLoginAt.Equal(stamped))

	_, err = repo.TouchLastLogin(ctx, 999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestRepository_SetActive(t *testing.T) {
	repo, _, _ := newTestRepository(t)
	ctx := context.Background()

	u := newUser("+919876543210", "ab_99")
	require.NoError(t, repo.Create(ctx, u))

	require.NoError(t, repo.SetActive(ctx, u.ID, false))

	reloaded, err := repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.IsActive)

	assert.ErrorIs(t, repo.SetActive(ctx, 999, true), ErrUserNotFound)
}

func TestRepository_CascadeDeletesRefreshTokens(t *testing.T) {
	repo, db, _ := newTestRepository(t)
	ctx := context.Background()

	u := newUser("+919876543210", "ab_99")
	require.NoError(t, repo.Create(ctx, u))

	require.NoError(t, db.Create(&refreshtoken.RefreshToken{
		UserID:    u.ID,
		TokenHash: refreshtoken.Hash("token"),
		ExpiresAt: epoch.Add(time.Hour),
	}).Error)

	require.NoError(t, db.Delete(&User{}, u.ID).Error)

	var count int64
	require.NoError(t, db.Model(&refreshtoken.RefreshToken{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestRepository_RefreshTokenRequiresUser(t *testing.T) {
	_, db, _ := newTestRepository(t)

	err := db.Create(&refreshtoken.RefreshToken{
		UserID:    42,
		TokenHash: refreshtoken.Hash("orphan"),
		ExpiresAt: epoch.Add(time.Hour),
	}).Error

	assert.Error(t, err)
}

func TestRepository_CancelledContext(t *testing.T) {
	repo, _, _ := newTestRepository(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.PhoneExists(ctx, "+919876543210")
	assert.Error(t, err)

	err = repo.Create(ctx, newUser("+919876543210", "ab_99"))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrDuplicate)
}

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"gorm translated", gorm.ErrDuplicatedKey, true},
		{"wrapped gorm translated", fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey), true},
		{"postgres unique", &pgconn.PgError{Code: "23505"}, true},
		{"postgres other", &pgconn.PgError{Code: "23503"}, false},
		{"mysql duplicate entry", &mysql.MySQLError{Number: 1062}, true},
		{"mysql other", &mysql.MySQLError{Number: 1452}, false},
		{"sqlite message", errors.New("UNIQUE constraint failed: users.phone_number"), true},
		{"unrelated", errors.New("connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isUniqueViolation(tt.err))
		})
	}
}
