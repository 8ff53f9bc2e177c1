package tests

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zestro/auth"
	"zestro/domain"
	httpapi "zestro/realtime-svc/internal/api/http"
	"zestro/realtime-svc/internal/hub"
	"zestro/realtime-svc/internal/storage"
)

type hubFixture struct {
	hub      *hub.Hub
	presence *storage.PresenceStore
	tokens   *auth.Tokens
	server   *httptest.Server
}

func newHubFixture(t *testing.T) *hubFixture {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	f := &hubFixture{
		presence: storage.NewPresenceStore(rdb),
		tokens:   auth.NewTokens("test-secret", time.Hour),
	}
	f.hub = hub.New(f.presence)
	go f.hub.Run(ctx)

	r := mux.NewRouter()
	httpapi.NewHandler(f.hub, f.presence, f.tokens).RegisterRoutes(r)
	f.server = httptest.NewServer(r)
	t.Cleanup(f.server.Close)
	return f
}

func (f *hubFixture) dial(t *testing.T, userID string, role domain.Role) *websocket.Conn {
	t.Helper()

	token, err := f.tokens.Issue(userID, role)
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return f.hub.Connections(userID) > 0 }, time.Second, 10*time.Millisecond)
	return conn
}

func TestHub_DeliversToRecipients(t *testing.T) {
	f := newHubFixture(t)
	customer := f.dial(t, "cust-1", domain.RoleCustomer)
	other := f.dial(t, "cust-2", domain.RoleCustomer)

	err := f.hub.Dispatch(context.Background(), domain.Event{
		Type:       domain.EventStatusChanged,
		OrderID:    "o1",
		Status:     domain.StatusReady,
		Recipients: []string{"cust-1", "owner-1"},
	})
	require.NoError(t, err)

	customer.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, frame, err := customer.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(frame), `"type":"ORDER_STATUS_UPDATE"`)
	assert.Contains(t, string(frame), `"status":"READY"`)
	assert.NotContains(t, string(frame), "recipients")

	other.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, _, err = other.ReadMessage()
	assert.Error(t, err)
}

func TestHub_RoleBroadcast(t *testing.T) {
	f := newHubFixture(t)
	riderA := f.dial(t, "rider-1", domain.RoleRider)
	riderB := f.dial(t, "rider-2", domain.RoleRider)

	require.NoError(t, f.hub.Dispatch(context.Background(), domain.Event{
		Type:    domain.EventAssignmentChanged,
		OrderID: "o1",
		Roles:   []domain.Role{domain.RoleRider},
	}))

	for _, conn := range []*websocket.Conn{riderA, riderB} {
		var e domain.Event
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		require.NoError(t, conn.ReadJSON(&e))
		assert.Equal(t, domain.EventAssignmentChanged, e.Type)
		assert.Empty(t, e.Roles)
	}
}

func TestHub_TracksPresence(t *testing.T) {
	f := newHubFixture(t)
	conn := f.dial(t, "rider-1", domain.RoleRider)

	require.Eventually(t, func() bool {
		online, err := f.presence.IsOnline(context.Background(), "rider-1", domain.RoleRider)
		return err == nil && online
	}, 2*time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool {
		online, err := f.presence.IsOnline(context.Background(), "rider-1", domain.RoleRider)
		return err == nil && !online
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWebSocket_RequiresToken(t *testing.T) {
	f := newHubFixture(t)

	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)

	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHealthCheck(t *testing.T) {
	f := newHubFixture(t)
	f.dial(t, "cust-1", domain.RoleCustomer)

	resp, err := http.Get(f.server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
