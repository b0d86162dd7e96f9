package di

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/portfoliobot/internal/config"
	"github.com/aristath/portfoliobot/internal/server"
)

func wireForTest(t *testing.T, cfg *config.Config) (*Container, *JobInstances) {
	t.Helper()
	container, jobs, err := Wire(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { container.Close() })
	return container, jobs
}

func TestWire(t *testing.T) {
	container, jobs := wireForTest(t, testConfig(t))

	assert.NotNil(t, container.MarketData)
	assert.NotNil(t, container.OrderService)
	assert.NotNil(t, container.Engine)
	assert.NotNil(t, container.PortfolioService)
	assert.NotNil(t, container.ExecutionFeed)
	assert.Nil(t, container.ArchiveService, "archives need an S3 bucket")
	assert.Len(t, container.Modules(), 3)

	require.NotNil(t, jobs.Scheduler)
	assert.NotNil(t, jobs.OrderCheck)
	assert.NotNil(t, jobs.WALCheckpoint)
	assert.NotNil(t, jobs.CacheCleanup)
	assert.NotNil(t, jobs.Vacuum)
	assert.NotNil(t, jobs.DailyBackup)
}

func TestWire_BackupsDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Backup.Enabled = false

	_, jobs := wireForTest(t, cfg)
	assert.Nil(t, jobs.DailyBackup)
}

func TestWire_AlpacaProvider(t *testing.T) {
	cfg := testConfig(t)
	cfg.MarketDataProvider = config.ProviderAlpaca
	cfg.AlpacaAPIKey = "key"
	cfg.AlpacaAPISecret = "secret"

	container, _ := wireForTest(t, cfg)
	assert.NotNil(t, container.MarketData)
}

func TestWire_UnknownProvider(t *testing.T) {
	cfg := testConfig(t)
	cfg.MarketDataProvider = "bloomberg"

	_, _, err := Wire(cfg, zerolog.Nop())
	assert.Error(t, err)
}

func TestWire_ServesModuleRoutes(t *testing.T) {
	cfg := testConfig(t)
	container, _ := wireForTest(t, cfg)

	srv := server.New(server.Config{
		Log:        zerolog.Nop(),
		DevMode:    true,
		DataDir:    cfg.DataDir,
		Databases:  container.Databases(),
		EventBus:   container.EventBus,
		MarketData: container.MarketData,
		Engine:     container.Engine,
		Archives:   container.ArchiveService,
		Modules:    container.Modules(),
	})

	req := httptest.NewRequest(http.MethodPost, "/api/accounts", strings.NewReader(`{"username":"alice"}`))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/api/accounts/alice", nil)
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/orders/engine/status", nil)
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "pending_executions")
}
