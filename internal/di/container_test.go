package di

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lpp-backend/internal/config"
	"lpp-backend/internal/events"
	"lpp-backend/internal/ledger"
	"lpp-backend/internal/ledger/memledger"
	"lpp-backend/internal/ledger/rpc"
)

func memoryConfig() *config.Config {
	cfg := config.Defaults()
	cfg.Ledger.Mode = config.LedgerModeMemory
	cfg.LogLevel = "error"
	return cfg
}

func TestInitializeContainerMemoryMode(t *testing.T) {
	container, cleanup, err := InitializeContainer(context.Background(), memoryConfig())
	require.NoError(t, err)
	defer cleanup()

	assert.IsType(t, &memledger.Ledger{}, container.Gateway)
	assert.IsType(t, events.NopNotifier{}, container.Notifier)
	assert.NotNil(t, container.Metrics)
	assert.Nil(t, container.Tracing)

	handler := container.Handler()

	body := `{"name":"Asha","title":"Ainu","description":"Folk song","Category":"Endangered"}`
	req := httptest.NewRequest("POST", "/api/v1/artifacts", strings.NewReader(body))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/artifacts?prefetch=false", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"Asha"`)
}

func TestInitializeContainerRPCMode(t *testing.T) {
	cfg := config.Defaults()
	cfg.EnableMetrics = false
	container, cleanup, err := InitializeContainer(context.Background(), cfg)
	require.NoError(t, err)
	defer cleanup()

	assert.IsType(t, &rpc.Client{}, container.Gateway)
	assert.Nil(t, container.Metrics)

	// Publishing stays disabled without a payer key file.
	w := httptest.NewRecorder()
	container.Handler().ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/artifacts", strings.NewReader("{}")))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = httptest.NewRecorder()
	container.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProvidePayerFromFile(t *testing.T) {
	kp, err := ledger.NewKeypair()
	require.NoError(t, err)

	// Key files hold the 64-byte secret as a JSON array of numbers.
	var ints []int
	for _, b := range kp.Secret() {
		ints = append(ints, int(b))
	}
	data, err := json.Marshal(ints)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "payer.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	cfg := config.Defaults()
	cfg.Ledger.PayerKeypairPath = path
	logging, err := ProvideLogging(cfg)
	require.NoError(t, err)

	payer, err := ProvidePayer(cfg, logging.Logger)
	require.NoError(t, err)
	assert.Equal(t, kp.PublicKey(), payer.PublicKey())
}

func TestProvideProgramIDRejectsGarbage(t *testing.T) {
	cfg := config.Defaults()
	cfg.Ledger.ProgramID = "not base58 0OIl"
	_, err := ProvideProgramID(cfg)
	assert.Error(t, err)
}
