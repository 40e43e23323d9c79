package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-zulfiqar/arb-social-trading/internal/cache"
	"github.com/aman-zulfiqar/arb-social-trading/internal/config"
	"github.com/aman-zulfiqar/arb-social-trading/internal/constants"
	"github.com/aman-zulfiqar/arb-social-trading/internal/flags"
	"github.com/aman-zulfiqar/arb-social-trading/internal/models"
	"github.com/aman-zulfiqar/arb-social-trading/internal/server"
)

const (
	testAPIAddr = ":8091"
	testAPIKey  = "test-api-key-integration"
	baseURL     = "http://localhost:8091"
)

// memStore is an in-memory trade store keyed by tx hash.
type memStore struct {
	rows map[string]*models.TradeRow
}

func (m *memStore) InsertTrade(_ context.Context, t *models.TradeRecord) (*models.TradeRow, bool, error) {
	if row, ok := m.rows[t.TxHash]; ok {
		return row, false, nil
	}
	row := &models.TradeRow{ID: int64(len(m.rows) + 1), TradeRecord: *t, CreatedAt: time.Now().UTC()}
	m.rows[t.TxHash] = row
	return row, true, nil
}

func (m *memStore) TradesByFID(_ context.Context, fid, chain int64, limit int) ([]*models.TradeRow, error) {
	out := []*models.TradeRow{}
	for _, row := range m.rows {
		if row.FID == fid && (chain == 0 || row.Chain == chain) && len(out) < limit {
			out = append(out, row)
		}
	}
	return out, nil
}

func (m *memStore) Ping(context.Context) error { return nil }
func (m *memStore) Close()                     {}

func setupIntegrationTest(t *testing.T) (*redis.Client, *cache.PubSubManager, func()) {
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: redisAddr,
		DB:   3,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for integration tests: %v", err)
	}
	_ = redisClient.FlushDB(ctx).Err()

	cfg := &config.Config{
		APIAddr: testAPIAddr,
		APIKey:  testAPIKey,
		DevMode: true,
	}

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	flagStore, err := flags.NewStore(redisClient)
	require.NoError(t, err)
	feed := cache.NewPubSubManager(redisClient, logger)

	handlers := &server.Handlers{
		TokenCache: cache.NewRedisCache(redisClient),
		Trades:     &memStore{rows: map[string]*models.TradeRow{}},
		Feed:       feed,
		Flags:      flagStore,
		HealthChecks: map[string]func(context.Context) error{
			"redis": func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		},
		DevMode: cfg.DevMode,
		Logger:  logger,
	}

	srv, err := server.NewServer(server.ServerDeps{
		Handlers: handlers,
		Config: server.ServerConfig{
			Addr:    cfg.APIAddr,
			DevMode: cfg.DevMode,
			APIKey:  cfg.APIKey,
		},
	})
	require.NoError(t, err)

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			t.Logf("Server error: %v", err)
		}
	}()

	// Wait for server to be ready
	time.Sleep(100 * time.Millisecond)

	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = srv.Shutdown(ctx)
		_ = redisClient.FlushDB(ctx).Err()
		_ = redisClient.Close()
	}

	return redisClient, feed, cleanup
}

func makeRequest(t *testing.T, method, url string, body interface{}, expectedStatus int) *http.Response {
	var reqBody *bytes.Buffer = &bytes.Buffer{}
	if body != nil {
		jsonBody, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, url, reqBody)
	require.NoError(t, err)

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", testAPIKey)

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	require.NoError(t, err)

	assert.Equal(t, expectedStatus, resp.StatusCode, "Expected status %d, got %d", expectedStatus, resp.StatusCode)

	return resp
}

func TestIntegration_Health(t *testing.T) {
	_, _, cleanup := setupIntegrationTest(t)
	defer cleanup()

	resp := makeRequest(t, http.MethodGet, baseURL+"/health", nil, http.StatusOK)
	defer resp.Body.Close()

	var response server.HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&response))
	assert.True(t, response.OK)
	assert.Equal(t, "ok", response.Checks["redis"])
}

func TestIntegration_CapabilityFlags(t *testing.T) {
	_, _, cleanup := setupIntegrationTest(t)
	defer cleanup()

	resp := makeRequest(t, http.MethodGet, baseURL+"/tokens/curated", nil, http.StatusOK)
	resp.Body.Close()

	resp = makeRequest(t, http.MethodPost, baseURL+"/flags", map[string]interface{}{"key": flags.CapabilityCuratedList, "value": false}, http.StatusOK)
	resp.Body.Close()

	resp = makeRequest(t, http.MethodGet, baseURL+"/tokens/curated", nil, http.StatusForbidden)
	resp.Body.Close()

	resp = makeRequest(t, http.MethodGet, baseURL+"/capabilities", nil, http.StatusOK)
	defer resp.Body.Close()

	var caps flags.Capabilities
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&caps))
	assert.False(t, caps.CuratedList)
	assert.True(t, caps.Search)
}

func TestIntegration_FlagsCRUD(t *testing.T) {
	_, _, cleanup := setupIntegrationTest(t)
	defer cleanup()

	resp := makeRequest(t, http.MethodPost, baseURL+"/flags", map[string]interface{}{"key": "test.flag", "value": true}, http.StatusOK)
	defer resp.Body.Close()

	var upsertResponse flags.Flag
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&upsertResponse))
	assert.Equal(t, "test.flag", upsertResponse.Key)
	assert.True(t, upsertResponse.Value)

	resp = makeRequest(t, http.MethodPut, baseURL+"/flags/test.flag", map[string]interface{}{"value": false}, http.StatusOK)
	defer resp.Body.Close()

	resp = makeRequest(t, http.MethodGet, baseURL+"/flags", nil, http.StatusOK)
	defer resp.Body.Close()

	var listResponse struct {
		Items []*flags.Flag `json:"items"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listResponse))
	require.Len(t, listResponse.Items, 1)
	assert.False(t, listResponse.Items[0].Value)

	resp = makeRequest(t, http.MethodDelete, baseURL+"/flags/test.flag", nil, http.StatusNoContent)
	defer resp.Body.Close()

	resp = makeRequest(t, http.MethodGet, baseURL+"/flags/test.flag", nil, http.StatusNotFound)
	defer resp.Body.Close()
}

func TestIntegration_TradePublishedToFeed(t *testing.T) {
	_, feed, cleanup := setupIntegrationTest(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	trades, err := feed.SubscribeTrades(ctx, constants.PubSubChannelTrades)
	require.NoError(t, err)

	tx := "0x" + strings.Repeat("9f", 32)
	body := map[string]interface{}{
		"fid":       3,
		"tx_hash":   tx,
		"timestamp": "2025-01-02T03:04:05Z",
		"amount_in": 1,
	}
	resp := makeRequest(t, http.MethodPost, baseURL+"/trade", body, http.StatusOK)
	defer resp.Body.Close()

	var out server.TradeResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.True(t, out.Success)

	select {
	case got := <-trades:
		assert.Equal(t, tx, got.TxHash)
		assert.Equal(t, out.Data.ID, got.ID)
	case <-ctx.Done():
		t.Fatal("trade was not published")
	}
}

func TestIntegration_Authentication(t *testing.T) {
	_, _, cleanup := setupIntegrationTest(t)
	defer cleanup()

	client := &http.Client{Timeout: 5 * time.Second}

	// Public endpoints need no key
	resp, err := client.Get(baseURL + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, baseURL+"/flags", nil)
	require.NoError(t, err)
	req.Header.Set("X-API-Key", "invalid-key")

	resp, err = client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestIntegration_ConcurrentRequests(t *testing.T) {
	_, _, cleanup := setupIntegrationTest(t)
	defer cleanup()

	const numRequests = 50
	const numGoroutines = 10

	results := make(chan int, numRequests)

	for i := 0; i < numGoroutines; i++ {
		go func() {
			client := &http.Client{Timeout: 5 * time.Second}
			for j := 0; j < numRequests/numGoroutines; j++ {
				resp, err := client.Get(baseURL + "/health")
				if err != nil {
					results <- 0
					continue
				}
				resp.Body.Close()
				results <- resp.StatusCode
			}
		}()
	}

	for i := 0; i < numRequests; i++ {
		assert.Equal(t, http.StatusOK, <-results)
	}
}
