package app

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"chat-relay/internal/client"
	"chat-relay/internal/config"
	"chat-relay/internal/models"
	"chat-relay/internal/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type e2e struct {
	srv      *Server
	base     string
	wsURL    string
	ada, bob models.User
	direct   models.Chat
	group    models.Chat
}

func startServer(t *testing.T) *e2e {
	t.Helper()
	cfg := config.Config{
		Store:          config.StoreMemory,
		JWTSecret:      "e2e-secret",
		UploadDir:      filepath.Join(t.TempDir(), "uploads"),
		MaxUploadBytes: 1 << 20,
		TypingWindow:   200 * time.Millisecond,
		AllowedOrigins: "*",
	}

	env := &e2e{
		ada: models.User{ID: uuid.NewString(), Name: "Ada"},
		bob: models.User{ID: uuid.NewString(), Name: "Bob"},
	}
	env.direct = models.Chat{ID: uuid.NewString(), Users: []models.User{env.ada, env.bob}}
	env.group = models.Chat{ID: uuid.NewString(), ChatName: "Team", IsGroupChat: true, Users: []models.User{env.ada, env.bob}}

	store := services.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.PutChat(ctx, env.direct))
	require.NoError(t, store.PutChat(ctx, env.group))

	srv, err := New(cfg, store, nil, nil)
	require.NoError(t, err)
	env.srv = srv

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = srv.App.Listener(ln) }()
	t.Cleanup(func() {
		_ = srv.CloseRealtime()
		_ = srv.App.Shutdown()
	})

	env.base = "http://" + ln.Addr().String()
	env.wsURL = "ws://" + ln.Addr().String() + "/ws"
	return env
}

func (e *e2e) login(t *testing.T, ctx context.Context, u models.User) (*client.Session, *client.HTTPAPI) {
	t.Helper()
	token, err := e.srv.Tokens.Issue(u.ID, u.Name)
	require.NoError(t, err)
	api := client.NewHTTPAPI(e.base, token)

	s, err := client.Dial(ctx, e.wsURL, token, api)
	require.NoError(t, err)
	require.Equal(t, u.ID, s.UserID())
	go func() { _ = s.Run(ctx) }()
	t.Cleanup(func() { _ = s.Close() })
	return s, api
}

func TestEndToEnd_MessageReachesViewerAndNotifiesElsewhere(t *testing.T) {
	env := startServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ada, _ := env.login(t, ctx, env.ada)
	bob, _ := env.login(t, ctx, env.bob)

	require.NoError(t, bob.OpenChat(ctx, env.direct.ID))
	require.NoError(t, ada.OpenChat(ctx, env.direct.ID))
	require.Eventually(t, func() bool {
		return env.srv.Registry.UserInRoom(env.bob.ID, env.direct.ID) &&
			env.srv.Registry.UserInRoom(env.ada.ID, env.direct.ID)
	}, 2*time.Second, 10*time.Millisecond)

	composer := client.NewComposer(ada)
	composer.Type("hi bob")
	require.Eventually(t, func() bool {
		return len(bob.TypingIn(env.direct.ID)) == 1
	}, 2*time.Second, 10*time.Millisecond, "bob sees ada typing")

	sent, err := composer.Send(ctx)
	require.NoError(t, err)
	assert.Equal(t, "hi bob", sent.Content)

	require.Eventually(t, func() bool {
		return bob.Transcript.Len() == 1 && len(bob.TypingIn(env.direct.ID)) == 0
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, sent.ID, bob.Transcript.Messages()[0].ID)
	assert.Equal(t, 0, bob.Notifications.Len())
	assert.Equal(t, 1, ada.Transcript.Len())

	// a message in a chat bob is not viewing lands in his unseen list
	require.NoError(t, ada.OpenChat(ctx, env.group.ID))
	groupComposer := client.NewComposer(ada)
	groupComposer.Type("team update")
	_, err = groupComposer.Send(ctx)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return bob.Notifications.CountFor(env.group.ID) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "Team", bob.Notifications.Items()[0].ChatName)
	assert.Equal(t, 1, bob.Transcript.Len())

	require.NoError(t, bob.OpenChat(ctx, env.group.ID))
	assert.Equal(t, 0, bob.Notifications.Len())
	assert.Equal(t, 1, bob.Transcript.Len())
}

func TestEndToEnd_UploadThenSendAttachment(t *testing.T) {
	env := startServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ada, api := env.login(t, ctx, env.ada)
	require.NoError(t, ada.OpenChat(ctx, env.direct.ID))

	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("meeting notes"), 0o644))

	res, err := api.Upload(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", res.FileName)
	assert.Equal(t, int64(len("meeting notes")), res.FileSize)

	resp, err := http.Get(env.base + res.FileURL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	composer := client.NewComposer(ada)
	composer.Attach(res)
	msg, err := composer.Send(ctx)
	require.NoError(t, err)
	require.NotNil(t, msg.Attachment)
	assert.Empty(t, msg.Content)

	list, err := api.List(ctx, env.direct.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, res.FileURL, list[0].Attachment.URL)
}

func TestEndToEnd_DisconnectCleansRegistry(t *testing.T) {
	env := startServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ada, _ := env.login(t, ctx, env.ada)
	require.NoError(t, ada.OpenChat(ctx, env.direct.ID))
	require.Eventually(t, func() bool {
		return env.srv.Registry.UserInRoom(env.ada.ID, env.direct.ID)
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, ada.Close())

	require.Eventually(t, func() bool {
		return env.srv.Registry.ConnectionCount() == 0 && env.srv.Registry.RoomCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWebSocketRequiresUpgradeAndToken(t *testing.T) {
	env := startServer(t)

	resp, err := env.srv.App.Test(httptest.NewRequest(http.MethodGet, "/ws", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err = client.Dial(ctx, env.wsURL, "bogus", nil)
	assert.Error(t, err)
}

func TestHealthReportsCounts(t *testing.T) {
	env := startServer(t)

	resp, err := env.srv.App.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
