package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path"
	"strings"
	"sync"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/joinkeeper/internal/config"
)

type apiCall struct {
	method string
	chatID string
	text   string
}

type fakeTelegram struct {
	mu    sync.Mutex
	calls []apiCall
}

func (f *fakeTelegram) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	call := apiCall{method: path.Base(r.URL.Path)}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var body map[string]any
		dec := json.NewDecoder(r.Body)
		dec.UseNumber()
		_ = dec.Decode(&body)
		call.chatID = fmt.Sprint(body["chat_id"])
		call.text = fmt.Sprint(body["text"])
	} else {
		_ = r.ParseMultipartForm(1 << 20)
		call.chatID = r.FormValue("chat_id")
		call.text = r.FormValue("text")
	}

	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, `{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":1,"type":"private"}}}`)
}

func (f *fakeTelegram) sent() []apiCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []apiCall
	for _, c := range f.calls {
		if c.method == "sendMessage" {
			out = append(out, c)
		}
	}
	return out
}

func newTestBot(t *testing.T) (*bot.Bot, *fakeTelegram) {
	t.Helper()

	fake := &fakeTelegram{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	b, err := bot.New("123456:TEST", bot.WithServerURL(srv.URL), bot.WithSkipGetMe())
	require.NoError(t, err)
	return b, fake
}

type fakeMembership struct {
	requests []*models.ChatJoinRequest
	updates  []*models.ChatMemberUpdated
	err      error
}

func (f *fakeMembership) HandleJoinRequest(ctx context.Context, req *models.ChatJoinRequest) error {
	f.requests = append(f.requests, req)
	return f.err
}

func (f *fakeMembership) HandleMemberUpdate(ctx context.Context, upd *models.ChatMemberUpdated) error {
	f.updates = append(f.updates, upd)
	return f.err
}

type fakeStats struct {
	admins  map[int64]bool
	current string
	err     error
}

func (f *fakeStats) Current(ctx context.Context) (string, error) {
	return f.current, f.err
}

func (f *fakeStats) IsAdminOfTrackedChat(ctx context.Context, userID int64) (bool, error) {
	return f.admins[userID], nil
}

func newTestDeps() (HandlerDeps, *fakeMembership, *fakeStats) {
	cfg := &config.Config{}
	cfg.Messages.Start = "hello"
	cfg.Messages.StatsForbidden = "forbidden"

	membership := &fakeMembership{}
	stats := &fakeStats{admins: map[int64]bool{7: true}, current: "numbers"}
	return HandlerDeps{
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		Config:     cfg,
		Membership: membership,
		Stats:      stats,
	}, membership, stats
}

func privateMessage(userID int64, text string) *models.Update {
	return &models.Update{
		ID: 1,
		Message: &models.Message{
			ID:   1,
			Text: text,
			Chat: models.Chat{ID: userID, Type: models.ChatTypePrivate},
			From: &models.User{ID: userID},
		},
	}
}

func TestMatchers(t *testing.T) {
	t.Parallel()

	assert.True(t, IsJoinRequest(&models.Update{ChatJoinRequest: &models.ChatJoinRequest{}}))
	assert.False(t, IsJoinRequest(&models.Update{ChatMember: &models.ChatMemberUpdated{}}))
	assert.True(t, IsChatMemberUpdate(&models.Update{ChatMember: &models.ChatMemberUpdated{}}))
	assert.False(t, IsChatMemberUpdate(&models.Update{Message: &models.Message{}}))
}

func TestJoinRequestHandler(t *testing.T) {
	t.Parallel()

	deps, membership, _ := newTestDeps()
	membership.err = errors.New("db down")
	h := NewJoinRequestHandler(deps)

	req := &models.ChatJoinRequest{Chat: models.Chat{ID: -1}, From: models.User{ID: 2}}
	h(context.Background(), nil, &models.Update{ChatJoinRequest: req})
	h(context.Background(), nil, &models.Update{Message: &models.Message{}})

	require.Len(t, membership.requests, 1)
	assert.Same(t, req, membership.requests[0])
}

func TestChatMemberHandler(t *testing.T) {
	t.Parallel()

	deps, membership, _ := newTestDeps()
	h := NewChatMemberHandler(deps)

	upd := &models.ChatMemberUpdated{Chat: models.Chat{ID: -1}}
	h(context.Background(), nil, &models.Update{ChatMember: upd})

	require.Len(t, membership.updates, 1)
	assert.Same(t, upd, membership.updates[0])
}

func TestStartHandler(t *testing.T) {
	t.Parallel()

	deps, _, _ := newTestDeps()
	b, fake := newTestBot(t)

	NewStartHandler(deps)(context.Background(), b, privateMessage(5, "/start"))

	sent := fake.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "5", sent[0].chatID)
	assert.Equal(t, "hello", sent[0].text)
}

func TestHelpText(t *testing.T) {
	t.Parallel()

	text := HelpText()
	for _, cmd := range Commands() {
		assert.Contains(t, text, "/"+cmd.Command)
	}
	assert.Contains(t, text, "/stats - получить статистику по всем каналам")
}

func TestStatsCommand(t *testing.T) {
	t.Parallel()

	deps, _, _ := newTestDeps()
	h := applyMiddleware(NewStatsHandler(deps), PrivateOnly(deps), TrackedChatAdminOnly(deps))

	t.Run("admin gets statistics", func(t *testing.T) {
		t.Parallel()
		b, fake := newTestBot(t)
		h(context.Background(), b, privateMessage(7, "/stats"))

		sent := fake.sent()
		require.Len(t, sent, 1)
		assert.Equal(t, "numbers", sent[0].text)
	})

	t.Run("non admin is refused", func(t *testing.T) {
		t.Parallel()
		b, fake := newTestBot(t)
		h(context.Background(), b, privateMessage(8, "/stats"))

		sent := fake.sent()
		require.Len(t, sent, 1)
		assert.Equal(t, "forbidden", sent[0].text)
	})

	t.Run("group messages are ignored", func(t *testing.T) {
		t.Parallel()
		b, fake := newTestBot(t)
		update := privateMessage(7, "/stats")
		update.Message.Chat = models.Chat{ID: -100, Type: models.ChatTypeSupergroup}
		h(context.Background(), b, update)

		assert.Empty(t, fake.sent())
	})
}

func TestStatsHandler_ReadFailure(t *testing.T) {
	t.Parallel()

	deps, _, stats := newTestDeps()
	stats.err = errors.New("db down")
	b, fake := newTestBot(t)

	NewStatsHandler(deps)(context.Background(), b, privateMessage(7, "/stats"))

	sent := fake.sent()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].text, "❌")
}

func TestRegisterAllHandlers(t *testing.T) {
	t.Parallel()

	deps, _, _ := newTestDeps()
	handlers := RegisterAllHandlers(deps)

	names := make([]string, 0, len(handlers))
	for _, h := range handlers {
		require.NotNil(t, h.Handler, h.Name)
		names = append(names, h.Name)
	}
	assert.Equal(t, []string{"join_request", "chat_member", "/start", "/help", "/stats"}, names)
}

func applyMiddleware(h bot.HandlerFunc, mw ...bot.Middleware) bot.HandlerFunc {
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	return h
}
