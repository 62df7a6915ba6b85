package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/applejunice/Applehome/internal/config"
)

func TestNewRootCmd(t *testing.T) {
	cmd := newRootCmd()

	names := make([]string, 0)
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Contains(t, names, "serve")
	assert.Contains(t, names, "migrate")

	migrate, _, err := cmd.Find([]string{"migrate", "down"})
	require.NoError(t, err)
	assert.NotNil(t, migrate.Flags().Lookup("steps"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))
}

func TestMigrateRequiresPostgres(t *testing.T) {
	t.Setenv("LEDGER_JWT_SECRET_KEY", "secret")
	t.Setenv("LEDGER_ADMIN_PASSWORD", "admin-secret")
	t.Setenv("LEDGER_DATABASE_DRIVER", "memory")

	cmd := newRootCmd()
	cmd.SetArgs([]string{"migrate", "up"})
	err := cmd.Execute()
	assert.ErrorContains(t, err, "database.driver=postgres")
}

func TestNewLogger(t *testing.T) {
	logger, err := newLogger(config.LogConfig{Level: "debug"})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zap.DebugLevel))

	_, err = newLogger(config.LogConfig{Level: "loud"})
	assert.Error(t, err)
}

func TestNewApp_MemoryStore(t *testing.T) {
	t.Setenv("LEDGER_JWT_SECRET_KEY", "secret")
	t.Setenv("LEDGER_ADMIN_PASSWORD", "admin-secret")
	t.Setenv("LEDGER_DATABASE_DRIVER", "memory")
	t.Setenv("LEDGER_REDIS_ENABLED", "false")

	v, err := config.New("")
	require.NoError(t, err)
	cfg, err := config.Load(v)
	require.NoError(t, err)

	a, err := newApp(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer a.close()

	assert.Nil(t, a.redis)
	assert.NotNil(t, a.limiter)

	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
