package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"fritter/internal/database"
	"fritter/internal/engine"
	"fritter/internal/middleware"
	"fritter/internal/models"
	"fritter/internal/reputation"
	"fritter/internal/utils"
	"fritter/internal/websocket"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testAPI struct {
	server *httptest.Server
	auth   *middleware.Authenticator
	hub    *websocket.Hub
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	store := database.NewMemoryStore()
	metrics := utils.NewMetricsCollector()
	coord, err := reputation.NewCoordinator(store, reputation.Options{Metrics: metrics})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	hub := websocket.NewHub()
	go hub.Run(ctx)

	system := actor.NewActorSystem()
	eng := engine.NewEngine(system, coord, hub, metrics, 5*time.Second)
	auth := middleware.NewAuthenticator("test-secret", time.Hour)
	limiter, err := middleware.NewUserRateLimiter(1000, 1000)
	require.NoError(t, err)
	srv := NewServer(eng, metrics, hub, auth, limiter,
		middleware.DefaultCORSConfig([]string{"http://localhost:3000"}))

	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(func() {
		ts.Close()
		cancel()
		system.Shutdown()
	})
	return &testAPI{server: ts, auth: auth, hub: hub}
}

func (a *testAPI) do(t *testing.T, user uuid.UUID, method, path string, body interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, a.server.URL+path, &buf)
	require.NoError(t, err)
	if user != uuid.Nil {
		token, err := a.auth.GenerateToken(user)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func (a *testAPI) createFreet(t *testing.T, author uuid.UUID, content string) *models.Freet {
	t.Helper()
	resp := a.do(t, author, http.MethodPost, "/freets", FreetRequest{Content: content})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[*models.Freet](t, resp)
}

func TestHealthIsPublic(t *testing.T) {
	api := newTestAPI(t)

	resp := api.do(t, uuid.Nil, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]interface{}](t, resp)
	assert.Equal(t, "healthy", body["status"])
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	api := newTestAPI(t)

	resp := api.do(t, uuid.Nil, http.MethodGet, "/freets", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestReputationFlowOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	author, alice, bob := uuid.New(), uuid.New(), uuid.New()
	freet := api.createFreet(t, author, "the moon is made of cheese")
	base := "/freets/" + freet.ID.String()

	resp := api.do(t, alice, http.MethodPost, base+"/disapprove", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	summary := decode[models.ReputationSummary](t, resp)
	assert.Equal(t, 1, summary.Disapproves)
	assert.Equal(t, models.Disapprove, summary.Polarity)

	// the opposite polarity is refused while the first is held
	resp = api.do(t, alice, http.MethodPost, base+"/approve", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	appErr := decode[utils.AppError](t, resp)
	assert.Equal(t, utils.ErrAlreadyReacted, appErr.Code)

	resp = api.do(t, bob, http.MethodPost, base+"/disapprove", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	nasa := "https://nasa.gov/moon"
	wiki := "https://en.wikipedia.org/wiki/Moon"
	for _, u := range []uuid.UUID{alice, bob} {
		resp = api.do(t, u, http.MethodPost, base+"/links/disapprove", LinkRequest{URL: nasa})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}
	resp = api.do(t, bob, http.MethodPost, base+"/links/disapprove", LinkRequest{URL: wiki})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	link := decode[models.LinkResult](t, resp)
	assert.Equal(t, 1, link.Count)

	// the legacy polarity spelling resolves to disapprove
	resp = api.do(t, author, http.MethodGet, base+"/links/disprove", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	ranked := decode[RankedLinksResponse](t, resp)
	assert.Equal(t, models.Disapprove, ranked.Polarity)
	assert.Equal(t, []string{nasa, wiki}, ranked.URLs)
	require.Len(t, ranked.Links, 2)
	assert.Equal(t, 2, ranked.Links[0].Count)

	resp = api.do(t, alice, http.MethodGet, base+"/reactions/me", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	state := decode[models.ReactionState](t, resp)
	assert.Equal(t, models.Disapprove, state.Polarity)
	assert.Equal(t, []string{nasa}, state.Links)

	resp = api.do(t, bob, http.MethodDelete, base+"/links/disapprove?url="+url.QueryEscape(wiki), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = api.do(t, bob, http.MethodDelete, base+"/links/disapprove?url="+url.QueryEscape(wiki), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = api.do(t, alice, http.MethodDelete, base+"/reactions/disapprove", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	summary = decode[models.ReputationSummary](t, resp)
	assert.Equal(t, 1, summary.Disapproves)

	resp = api.do(t, author, http.MethodGet, base+"/links/disapprove", nil)
	ranked = decode[RankedLinksResponse](t, resp)
	require.Len(t, ranked.Links, 1)
	assert.Equal(t, nasa, ranked.Links[0].URL)
	assert.Equal(t, 1, ranked.Links[0].Count)
}

func TestAttachWithoutReactionIsForbidden(t *testing.T) {
	api := newTestAPI(t)
	freet := api.createFreet(t, uuid.New(), "hello")

	resp := api.do(t, uuid.New(), http.MethodPost, "/freets/"+freet.ID.String()+"/links/approve",
		LinkRequest{URL: "https://example.com"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, utils.ErrNotReacted, decode[utils.AppError](t, resp).Code)
}

func TestBadInputs(t *testing.T) {
	api := newTestAPI(t)
	user := uuid.New()
	freet := api.createFreet(t, user, "hello")

	resp := api.do(t, user, http.MethodPost, "/freets/not-a-uuid/approve", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = api.do(t, user, http.MethodGet, "/freets/"+freet.ID.String()+"/links/sideways", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = api.do(t, user, http.MethodPost, "/freets/"+uuid.NewString()+"/approve", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = api.do(t, user, http.MethodPost, "/freets", FreetRequest{Content: strings.Repeat("x", 141)})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = api.do(t, user, http.MethodGet, "/freets?limit=-1", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestFreetLifecycleOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	author, fan := uuid.New(), uuid.New()
	freet := api.createFreet(t, author, "first draft")
	path := "/freets/" + freet.ID.String()

	resp := api.do(t, fan, http.MethodPut, path, FreetRequest{Content: "hijacked"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = api.do(t, author, http.MethodPut, path, FreetRequest{Content: "final draft"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "final draft", decode[*models.Freet](t, resp).Content)

	resp = api.do(t, fan, http.MethodPost, path+"/like", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, decode[models.ReputationSummary](t, resp).Likes)

	resp = api.do(t, fan, http.MethodGet, "/users/me/likes", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	liked := decode[[]*models.Freet](t, resp)
	require.Len(t, liked, 1)
	assert.Equal(t, freet.ID, liked[0].ID)

	resp = api.do(t, fan, http.MethodGet, "/freets?sort=popular", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]*models.Freet](t, resp), 1)

	resp = api.do(t, fan, http.MethodGet, "/freets?author="+author.String(), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]*models.Freet](t, resp), 1)

	resp = api.do(t, author, http.MethodDelete, path, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = api.do(t, fan, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWebSocketReceivesFreetEvents(t *testing.T) {
	api := newTestAPI(t)
	author, voter := uuid.New(), uuid.New()
	freet := api.createFreet(t, author, "watch me")

	token, err := api.auth.GenerateToken(author)
	require.NoError(t, err)
	wsURL := "ws" + strings.TrimPrefix(api.server.URL, "http") +
		"/ws?token=" + token + "&freet=" + freet.ID.String()
	conn, _, err := ws.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return api.hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	resp := api.do(t, voter, http.MethodPost, "/freets/"+freet.ID.String()+"/approve", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var event models.ReputationEvent
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, "approved", event.Type)
	assert.Equal(t, freet.ID, event.FreetID)
	assert.Equal(t, voter, event.ActorID)
}

func TestWebSocketRejectsMissingToken(t *testing.T) {
	api := newTestAPI(t)

	resp := api.do(t, uuid.Nil, http.MethodGet, "/ws", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
