package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmynk/receiptbook/internal/auth"
	"github.com/mmynk/receiptbook/internal/middleware"
	"github.com/mmynk/receiptbook/internal/models"
	"github.com/mmynk/receiptbook/internal/service"
	"github.com/mmynk/receiptbook/internal/storage/sqlstore"
)

type testClient struct {
	t     *testing.T
	srv   *httptest.Server
	token string
	clock *int64
}

// setupTestServer serves the API over a fresh SQLite database.
func setupTestServer(t *testing.T) *testClient {
	t.Helper()
	ms := int64(1000)
	store, err := sqlstore.Open(context.Background(),
		sqlstore.Config{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "api.db")},
		sqlstore.WithClock(func() time.Time { return time.UnixMilli(ms) }),
	)
	require.NoError(t, err)

	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	callers := service.NewCallers(store.Users, store.Devices)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := Services{
		Accounts:   service.NewAccountService(auth.NewPasswordAuthenticator(store.Users, bcrypt.MinCost), jwtManager, store.Devices, callers, logger),
		Budgets:    service.NewBudgetService(store.Budgets, callers),
		Categories: service.NewCategoryService(store.Categories, callers),
		Receipts:   service.NewReceiptService(store.Receipts, callers),
		Sync:       service.NewSyncService(store.BudgetFeed, store.CategoryFeed, store.ReceiptFeed, callers),
	}
	srv := httptest.NewServer(NewServer(svc, jwtManager, func(ctx context.Context) error {
		return store.Conn().DB().PingContext(ctx)
	}))
	t.Cleanup(func() {
		srv.Close()
		store.Close()
	})
	return &testClient{t: t, srv: srv, clock: &ms}
}

func (c *testClient) do(method, path string, body any, headers ...string) (int, []byte) {
	c.t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(c.t, err)
		r = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, c.srv.URL+path, r)
	require.NoError(c.t, err)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	return resp.StatusCode, out
}

func (c *testClient) signUp() {
	c.t.Helper()
	status, body := c.do("POST", "/v1/auth/register", map[string]string{
		"email": "ana@example.com", "display_name": "Ana", "password": "password123",
	})
	require.Equal(c.t, http.StatusOK, status, string(body))
	var session service.Session
	require.NoError(c.t, json.Unmarshal(body, &session))
	c.token = session.Token
}

func TestAuthRequired(t *testing.T) {
	c := setupTestServer(t)

	status, body := c.do("GET", "/v1/budgets", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	var e middleware.ErrorBody
	require.NoError(t, json.Unmarshal(body, &e))
	assert.Equal(t, "unauthenticated", e.Error)

	c.token = "garbage"
	status, _ = c.do("GET", "/v1/budgets", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestMe(t *testing.T) {
	c := setupTestServer(t)
	c.signUp()

	status, body := c.do("GET", "/v1/me", nil)
	require.Equal(t, http.StatusOK, status, string(body))
	var user models.User
	require.NoError(t, json.Unmarshal(body, &user))
	assert.Equal(t, "ana@example.com", user.Email)
	assert.NotContains(t, string(body), "password")
}

func TestBudgetConflictOverHTTP(t *testing.T) {
	c := setupTestServer(t)
	c.signUp()

	status, body := c.do("PUT", "/v1/budgets/B", map[string]any{"month": "2024-05", "amount": 1500, "version": 0})
	require.Equal(t, http.StatusOK, status, string(body))

	status, body = c.do("PUT", "/v1/budgets/B", map[string]any{"month": "2024-05", "amount": 1200, "version": 0})
	require.Equal(t, http.StatusOK, status, string(body))
	var b models.Budget
	require.NoError(t, json.Unmarshal(body, &b))
	assert.Equal(t, int64(1), b.Version)
	assert.Equal(t, 1200.0, b.Amount)

	status, body = c.do("PUT", "/v1/budgets/B", map[string]any{"month": "2024-05", "amount": 900, "version": 0})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, ConflictMessage, string(body))

	status, body = c.do("GET", "/v1/budgets/B", nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(body, &b))
	assert.Equal(t, int64(1), b.Version)
	assert.Equal(t, 1200.0, b.Amount)
}

func TestErrorStatusCodes(t *testing.T) {
	c := setupTestServer(t)
	c.signUp()

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"missing budget", "GET", "/v1/budgets/nope", nil, http.StatusNotFound},
		{"delete missing receipt", "DELETE", "/v1/receipts/nope?version=0", nil, http.StatusNotFound},
		{"delete without version", "DELETE", "/v1/receipts/nope", nil, http.StatusBadRequest},
		{"bad month", "PUT", "/v1/budgets/x", map[string]any{"month": "soon"}, http.StatusBadRequest},
		{"mismatched ids", "PUT", "/v1/budgets/x", map[string]any{"id": "y", "month": "2024-05"}, http.StatusBadRequest},
		{"unknown change kind", "GET", "/v1/changes/invoices", nil, http.StatusBadRequest},
		{"bad since", "GET", "/v1/changes/budgets?since=yesterday", nil, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := c.do(tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, status, string(body))
			if tt.want == http.StatusBadRequest {
				var e middleware.ErrorBody
				require.NoError(t, json.Unmarshal(body, &e))
				assert.Equal(t, "validation_error", e.Error)
				assert.NotEmpty(t, e.Message)
			}
		})
	}
}

func TestUnregisteredDeviceIsBadRequest(t *testing.T) {
	c := setupTestServer(t)
	c.signUp()

	status, _ := c.do("GET", "/v1/receipts", nil, middleware.DeviceHeader, "unknown-device")
	assert.Equal(t, http.StatusBadRequest, status)

	status, body := c.do("POST", "/v1/devices", map[string]string{"id": "phone", "name": "Phone", "platform": "android"})
	require.Equal(t, http.StatusOK, status, string(body))

	status, body = c.do("GET", "/v1/receipts", nil, middleware.DeviceHeader, "phone")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, string(body))
}

func TestReceiptChangeFeedOverHTTP(t *testing.T) {
	c := setupTestServer(t)
	c.signUp()

	*c.clock = 5000
	status, body := c.do("PUT", "/v1/receipts/R", map[string]any{
		"date": "2024-05-01", "currency": "EUR", "total_amount": 4, "category": "food",
		"items": []map[string]any{
			{"id": "i1", "description": "Milk", "amount": 1, "category": "supermarket"},
			{"id": "i2", "description": "Cheese", "amount": 3, "category": "supermarket"},
		},
	})
	require.Equal(t, http.StatusOK, status, string(body))

	status, body = c.do("GET", "/v1/changes/receipts?since=4999", nil)
	require.Equal(t, http.StatusOK, status, string(body))

	var records []struct {
		Action string `json:"action"`
		ID     string `json:"id"`
		Body   *struct {
			Version    int64    `json:"version"`
			Categories []string `json:"categories"`
		} `json:"body"`
	}
	require.NoError(t, json.Unmarshal(body, &records))
	require.Len(t, records, 1)
	assert.Equal(t, "create", records[0].Action)
	require.NotNil(t, records[0].Body)
	assert.Equal(t, []string{"supermarket"}, records[0].Body.Categories)

	*c.clock = 6000
	status, _ = c.do("DELETE", "/v1/receipts/R?version=0", nil)
	require.Equal(t, http.StatusOK, status)

	status, body = c.do("GET", "/v1/changes/receipts?since=5000", nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[{"action":"delete","id":"R","updated_at":6000,"body":null}]`, string(body))
}

func TestHealthAndMetrics(t *testing.T) {
	c := setupTestServer(t)

	status, body := c.do("GET", "/healthz", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))

	status, body = c.do("GET", "/metrics", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), "receiptbook_http_requests_total")
}
