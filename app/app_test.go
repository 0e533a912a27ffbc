package app

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tech-arch1tect/authapi/internal/clock"
	"github.com/tech-arch1tect/authapi/services/auth"
	"github.com/tech-arch1tect/authapi/testutils"
	"go.uber.org/fx"
)

func TestBuild_Errors(t *testing.T) {
	t.Run("nil config", func(t *testing.T) {
		_, err := NewApp().WithConfig(nil).Build()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "config cannot be nil")
	})

	t.Run("nil clock", func(t *testing.T) {
		_, err := NewApp().WithConfig(testutils.GetTestConfig()).WithClock(nil).Build()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "clock cannot be nil")
	})

	t.Run("invalid config", func(t *testing.T) {
		cfg := testutils.GetTestConfig()
		cfg.JWT.SecretKey = ""

		_, err := NewApp().WithConfig(cfg).Build()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "JWT secret key is required")
	})

	t.Run("broken graph", func(t *testing.T) {
		_, err := NewApp().
			WithConfig(testutils.GetTestConfig()).
			WithFxOptions(fx.Invoke(func() error { return assert.AnError })).
			Build()
		require.Error(t, err)
		assert.Contains(t, err.Error(), assert.AnError.Error())
	})
}

func TestBuild_WiresGraph(t *testing.T) {
	fake := clock.NewFake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	var (
		clk         clock.Clock
		authService *auth.Service
	)
	a, err := NewApp().
		WithConfig(testutils.GetTestConfig()).
		WithClock(fake).
		WithFxOptions(fx.Populate(&clk, &authService)).
		Build()
	require.NoError(t, err)

	assert.Same(t, fake, clk)
	assert.NotNil(t, authService)
	assert.NotNil(t, a.Logger())
	assert.NotNil(t, a.DB())
	assert.NotNil(t, a.Server())
	assert.NotNil(t, a.Echo())
	assert.Equal(t, "Test App", a.Config().App.Name)

	assert.True(t, a.DB().Migrator().HasTable("users"))
	assert.True(t, a.DB().Migrator().HasTable("refresh_tokens"))
}

func TestApp_ServesOverTCP(t *testing.T) {
	a, err := NewApp().WithConfig(testutils.GetTestConfig()).Build()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, a.Start(ctx))
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer stopCancel()
		assert.NoError(t, a.Stop(stopCtx))
	}()

	base := "http://" + a.Server().Addr()

	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	body := `{"phone_number":"+919876543210","full_name":"A B","username":"ab_99","password":"Passw0rd"}`
	resp, err := http.Post(base+"/api/auth/signup", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))

	var envelope struct {
		Success bool `json:"success"`
		Data    struct {
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	assert.True(t, envelope.Success)

	req, err := http.NewRequest(http.MethodGet, base+"/api/me", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+envelope.Data.AccessToken)

	me, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer me.Body.Close()
	assert.Equal(t, http.StatusOK, me.StatusCode)
}
