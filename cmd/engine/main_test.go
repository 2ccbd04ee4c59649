package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fritter/internal/config"
	"fritter/internal/middleware"
	"fritter/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryConfig() *config.Config {
	return &config.Config{
		Server:         &config.ServerConfig{Host: "127.0.0.1", Port: 0, MetricsEnabled: true, RequestTimeout: 5 * time.Second},
		Database:       &config.DatabaseConfig{Type: "memory"},
		Auth:           &config.AuthConfig{JWTSecret: "integration-secret", TokenExpiration: time.Hour},
		RateLimit:      &config.RateLimitConfig{RequestsPerSecond: 100, Burst: 100},
		Reputation:     &config.ReputationConfig{RankingCacheSize: 16, WriteRetries: 3},
		AllowedOrigins: []string{"*"},
	}
}

func TestOpenStoreRejectsUnknownType(t *testing.T) {
	_, _, err := openStore(&config.DatabaseConfig{Type: "postgres"})
	assert.Error(t, err)
}

func TestIntegrationFlow(t *testing.T) {
	app, err := NewApp(memoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { app.System.Shutdown() })

	ts := httptest.NewServer(app.Server.Routes())
	defer ts.Close()

	auth := middleware.NewAuthenticator("integration-secret", time.Hour)
	call := func(user uuid.UUID, method, path string, body interface{}) *http.Response {
		var buf bytes.Buffer
		if body != nil {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
		req, err := http.NewRequest(method, ts.URL+path, &buf)
		require.NoError(t, err)
		token, err := auth.GenerateToken(user)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	author := uuid.New()
	resp := call(author, http.MethodPost, "/freets", map[string]string{"content": "integration"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var freet models.Freet
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&freet))

	for i := 0; i < 3; i++ {
		user := uuid.New()
		resp = call(user, http.MethodPost, "/freets/"+freet.ID.String()+"/approve", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp = call(user, http.MethodPost, "/freets/"+freet.ID.String()+"/links/approve",
			map[string]string{"url": "https://example.com/source"})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp = call(author, http.MethodGet, "/freets/"+freet.ID.String(), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var stored models.Freet
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stored))
	assert.Equal(t, 3, stored.Approves)
	assert.Equal(t, 3, stored.ApproveLinks["https://example.com/source"])

	resp = call(author, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
