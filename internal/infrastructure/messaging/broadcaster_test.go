package messaging

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/observability/logging"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func dial(t *testing.T, srvURL string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srvURL, "http"), nil)
	require.NoError(t, err)
	return conn
}

func waitForClients(t *testing.T, h *ReactionHub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return h.ClientCount() == n }, 2*time.Second, 10*time.Millisecond)
}

func TestHubBroadcastsToClients(t *testing.T) {
	hub := NewReactionHub(logging.NewDiscardLogger(), nil)
	srv := httptest.NewServer(httpHandler(hub))
	defer srv.Close()

	a := dial(t, srv.URL)
	b := dial(t, srv.URL)
	waitForClients(t, hub, 2)

	hub.Broadcast(Update{Kind: "artist", ID: "7", Reaction: "loves", Count: 43, State: "pending"})

	for _, conn := range []*websocket.Conn{a, b} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var got Update
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, Update{Kind: "artist", ID: "7", Reaction: "loves", Count: 43, State: "pending"}, got)
	}

	a.Close()
	waitForClients(t, hub, 1)

	hub.Close()
	b.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := b.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
	b.Close()
	assert.Equal(t, 0, hub.ClientCount())
}

func TestHubRejectsForeignOrigins(t *testing.T) {
	hub := NewReactionHub(logging.NewDiscardLogger(), []string{"https://guild.example"})
	srv := httptest.NewServer(httpHandler(hub))
	defer srv.Close()
	defer hub.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, map[string][]string{"Origin": {"https://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 403, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, map[string][]string{"Origin": {"https://guild.example"}})
	require.NoError(t, err)
	conn.Close()
}

func TestRemoveClientIsIdempotent(t *testing.T) {
	hub := NewReactionHub(logging.NewDiscardLogger(), nil)
	ch := hub.AddClient()
	hub.RemoveClient(ch)
	hub.RemoveClient(ch)
	hub.Close()
	assert.Nil(t, hub.AddClient())
}
