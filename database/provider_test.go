package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tech-arch1tect/authapi/config"
	"github.com/tech-arch1tect/authapi/services/logging"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func createTestConfig(driver, dsn string, autoMigrate bool) config.Config {
	return config.Config{
		Log: config.LogConfig{Level: "debug"},
		Database: config.DatabaseConfig{
			Driver:       driver,
			DSN:          dsn,
			AutoMigrate:  autoMigrate,
			MaxOpenConns: 4,
			MaxIdleConns: 2,
		},
	}
}

type Parent struct {
	ID       uint    `gorm:"primaryKey"`
	Email    string  `gorm:"uniqueIndex;size:255"`
	Children []Child `gorm:"constraint:OnDelete:CASCADE"`
}

type Child struct {
	ID       uint `gorm:"primaryKey"`
	ParentID uint `gorm:"not null;index"`
}

func TestWithModels(t *testing.T) {
	option := WithModels(&Parent{}, &Child{})

	require.NotNil(t, option)
	assert.Len(t, option.models, 2)
}

func TestProvideDatabase(t *testing.T) {
	t.Run("sqlite in memory with migration", func(t *testing.T) {
		cfg := createTestConfig("sqlite", ":memory:", true)

		db, err := ProvideDatabase(cfg, WithModels(&Parent{}, &Child{}), logging.FromZap(zap.NewNop()))
		require.NoError(t, err)

		assert.True(t, db.Migrator().HasTable(&Parent{}))
		assert.True(t, db.Migrator().HasTable(&Child{}))

		sqlDB, err := db.DB()
		require.NoError(t, err)
		assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
	})

	t.Run("auto migrate disabled", func(t *testing.T) {
		cfg := createTestConfig("sqlite", ":memory:", false)

		db, err := ProvideDatabase(cfg, WithModels(&Parent{}), nil)
		require.NoError(t, err)

		assert.False(t, db.Migrator().HasTable(&Parent{}))
	})

	t.Run("file database uses pool settings", func(t *testing.T) {
		cfg := createTestConfig("sqlite", filepath.Join(t.TempDir(), "test.db"), true)

		db, err := ProvideDatabase(cfg, WithModels(&Parent{}), nil)
		require.NoError(t, err)

		sqlDB, err := db.DB()
		require.NoError(t, err)
		defer sqlDB.Close()
		assert.Equal(t, 4, sqlDB.Stats().MaxOpenConnections)
	})

	t.Run("unsupported driver", func(t *testing.T) {
		cfg := createTestConfig("oracle", "whatever", false)

		_, err := ProvideDatabase(cfg, nil, nil)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported database driver")
	})
}

func TestProvideDatabase_Constraints(t *testing.T) {
	cfg := createTestConfig("sqlite", ":memory:", true)

	db, err := ProvideDatabase(cfg, WithModels(&Parent{}, &Child{}), nil)
	require.NoError(t, err)

	t.Run("unique violation is translated", func(t *testing.T) {
		require.NoError(t, db.Create(&Parent{Email: "a@example.com"}).Error)

		err := db.Create(&Parent{Email: "a@example.com"}).Error
		assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
	})

	t.Run("foreign keys are enforced", func(t *testing.T) {
		err := db.Create(&Child{ParentID: 999}).Error
		assert.Error(t, err)
	})

	t.Run("delete cascades", func(t *testing.T) {
		parent := Parent{Email: "b@example.com"}
		require.NoError(t, db.Create(&parent).Error)
		require.NoError(t, db.Create(&Child{ParentID: parent.ID}).Error)

		require.NoError(t, db.Delete(&parent).Error)

		var count int64
		require.NoError(t, db.Model(&Child{}).Where("parent_id = ?", parent.ID).Count(&count).Error)
		assert.Zero(t, count)
	})
}

func TestSQLiteDSN(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"authapi.db", "authapi.db?_foreign_keys=on"},
		{"authapi.db?cache=shared", "authapi.db?cache=shared&_foreign_keys=on"},
		{":memory:", "file::memory:?_foreign_keys=on"},
		{"file::memory:?cache=shared", "file::memory:?cache=shared&_foreign_keys=on"},
		{"authapi.db?_foreign_keys=off", "authapi.db?_foreign_keys=off"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, sqliteDSN(tt.in), tt.in)
	}
}

func TestMySQLDSN(t *testing.T) {
	assert.Equal(t, "u:p@tcp(db:3306)/auth?parseTime=true", mysqlDSN("u:p@tcp(db:3306)/auth"))
	assert.Equal(t, "u:p@tcp(db:3306)/auth?charset=utf8mb4&parseTime=true", mysqlDSN("u:p@tcp(db:3306)/auth?charset=utf8mb4"))
	assert.Equal(t, "u:p@/auth?parseTime=false", mysqlDSN("u:p@/auth?parseTime=false"))
}

func TestModule(t *testing.T) {
	app := fxtest.New(t,
		Module,
		fx.Provide(func() *config.Config {
			cfg := createTestConfig("sqlite", ":memory:", true)
			return &cfg
		}),
		fx.Provide(func() *logging.Service { return nil }),
		fx.Supply(WithModels(&Parent{})),
		fx.Invoke(func(db *gorm.DB) {
			assert.True(t, db.Migrator().HasTable(&Parent{}))
		}),
	)

	app.RequireStart()
	app.RequireStop()
}

func TestProvideDatabaseFx_Error(t *testing.T) {
	cfg := createTestConfig("oracle", "", false)

	_, err := ProvideDatabaseFx(fxtest.NewLifecycle(t), &cfg, nil, nil)

	assert.Error(t, err)
}
