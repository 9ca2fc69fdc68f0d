package credits

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/cvforge/server/internal/auth"
	"codeberg.org/cvforge/server/internal/counter"
	"codeberg.org/cvforge/server/internal/notify"
	"codeberg.org/cvforge/server/internal/quota"
)

const testUserID = "3f0c2a52-8a8e-4f55-9a57-52f1c43b7e10"

// counter store whose reads always fail
type brokenStore struct {
	counter.Store
}

func (brokenStore) Get(context.Context, string, string) (*counter.Record, error) {
	return nil, errors.New("connection refused")
}

// counter store whose first read waits until released
type gatedStore struct {
	counter.Store
	reading chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedStore) Get(ctx context.Context, userID, date string) (*counter.Record, error) {
	g.once.Do(func() {
		close(g.reading)
		<-g.release
	})

	return g.Store.Get(ctx, userID, date)
}

func setup(t *testing.T, store counter.Store) (*gin.Engine, *quota.Service, *notify.Hub, string) {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret-key-for-testing-only")
	gin.SetMode(gin.TestMode)

	clock := quartz.NewMock(t)
	clock.Set(time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC))

	svc := quota.NewService(store, quota.WithClock(clock))

	hub := notify.NewHub()
	go hub.Run()
	t.Cleanup(func() {
		hub.Shutdown()
		<-hub.Done()
	})

	svc.OnChange(hub.NotifyCredits)

	upgrader := &websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

	router := gin.New()
	RegisterRoutes(router.Group("/api/v1"), svc, hub, upgrader, func(c *gin.Context) { c.Next() })

	token, err := auth.GenerateJWT(testUserID, "ada@example.com")
	require.NoError(t, err)

	return router, svc, hub, token
}

func getCredits(router *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/credits", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	return w
}

func TestGetCredits_Fresh(t *testing.T) {
	router, _, _, token := setup(t, counter.NewMemoryStore())

	w := getCredits(router, token)
	require.Equal(t, http.StatusOK, w.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, Response{
		Remaining: 3,
		Used:      0,
		Total:     3,
		Date:      "2026-03-14",
		ResetTime: "00:00 UTC",
	}, resp)
}

func TestGetCredits_ReflectsUsage(t *testing.T) {
	store := counter.NewMemoryStore()
	store.Put(counter.Record{UserID: testUserID, Date: "2026-03-14", Count: 2})
	store.Put(counter.Record{UserID: testUserID, Date: "2026-03-13", Count: 3})

	router, _, _, token := setup(t, store)

	w := getCredits(router, token)
	require.Equal(t, http.StatusOK, w.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, 1, resp.Remaining)
	assert.Equal(t, 2, resp.Used)
}

func TestGetCredits_RequiresAuth(t *testing.T) {
	router, _, _, _ := setup(t, counter.NewMemoryStore())

	w := getCredits(router, "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetCredits_StoreFailure(t *testing.T) {
	router, _, _, token := setup(t, brokenStore{Store: counter.NewMemoryStore()})

	w := getCredits(router, token)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestWatchCredits_InitialAndUpdates(t *testing.T) {
	router, svc, hub, token := setup(t, counter.NewMemoryStore())

	server := httptest.NewServer(router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/credits/ws?token=" + token

	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	readSnapshot := func() quota.Snapshot {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

		var msg notify.Message
		require.NoError(t, conn.ReadJSON(&msg))
		assert.Equal(t, notify.TypeCreditsUpdated, msg.Type)

		var snap quota.Snapshot
		require.NoError(t, json.Unmarshal(msg.Payload, &snap))
		return snap
	}

	assert.Equal(t, 3, readSnapshot().Remaining)

	require.Eventually(t, func() bool {
		return hub.ClientCount(testUserID) == 1
	}, 2*time.Second, 10*time.Millisecond)

	_, err = svc.Consume(context.Background(), testUserID)
	require.NoError(t, err)

	assert.Equal(t, 2, readSnapshot().Remaining)
}

func TestWatchCredits_RequiresToken(t *testing.T) {
	router, _, _, _ := setup(t, counter.NewMemoryStore())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/credits/ws", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func wsURL(server *httptest.Server, token string) string {
	return "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/credits/ws?token=" + token
}

func TestWatchCredits_ConsumeDuringInitialReadIsDelivered(t *testing.T) {
	store := &gatedStore{
		Store:   counter.NewMemoryStore(),
		reading: make(chan struct{}),
		release: make(chan struct{}),
	}
	router, svc, hub, token := setup(t, store)

	server := httptest.NewServer(router)
	defer server.Close()

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(server, token), nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	<-store.reading

	// the client is already registered while its initial snapshot is read
	assert.Equal(t, 1, hub.ClientCount(testUserID))

	_, err = svc.Consume(context.Background(), testUserID)
	require.NoError(t, err)
	close(store.release)

	for {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

		var msg notify.Message
		require.NoError(t, conn.ReadJSON(&msg))

		var snap quota.Snapshot
		require.NoError(t, json.Unmarshal(msg.Payload, &snap))

		if snap.Remaining == 2 {
			return
		}
	}
}

func TestWatchCredits_ShutdownReleasesIPSlot(t *testing.T) {
	router, _, hub, token := setup(t, counter.NewMemoryStore())

	hub.Shutdown()
	<-hub.Done()

	server := httptest.NewServer(router)
	defer server.Close()

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(server, token), nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	require.Error(t, err, "the server closes the connection")

	assert.Equal(t, 0, hub.IPConnectionCount("127.0.0.1"))
}
