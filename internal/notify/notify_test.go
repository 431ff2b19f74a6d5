package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	name   string
	err    error
	titles []string
}

func (r *recordingSender) Send(_ context.Context, title, _ string) error {
	r.titles = append(r.titles, title)
	return r.err
}

func (r *recordingSender) Name() string { return r.name }

func TestNotifier_Filter(t *testing.T) {
	s := &recordingSender{name: "rec"}
	n := NewNotifier([]Sender{s}, []string{EventPositionClosed, " "}, nil)

	require.NoError(t, n.Notify(context.Background(), EventPositionOpened, "AAPL open", ""))
	require.NoError(t, n.Notify(context.Background(), EventPositionClosed, "AAPL closed", ""))
	require.NoError(t, n.NotifyAll(context.Background(), "startup", ""))

	assert.Equal(t, []string{"[positionbook] AAPL closed", "[positionbook] startup"}, s.titles)
}

func TestNotifier_EmptyFilterAllowsAll(t *testing.T) {
	n := NewNotifier(nil, nil, nil)
	for _, e := range KnownEvents {
		assert.True(t, n.Allows(e))
	}
	assert.False(t, n.Enabled())
}

func TestNotifier_NilIsNoop(t *testing.T) {
	var n *Notifier
	assert.NoError(t, n.Notify(context.Background(), EventPositionOpened, "t", "m"))
	assert.NoError(t, n.NotifyAll(context.Background(), "t", "m"))
}

func TestNotifier_SenderFailureDoesNotStopOthers(t *testing.T) {
	bad := &recordingSender{name: "bad", err: errors.New("boom")}
	good := &recordingSender{name: "good"}
	n := NewNotifier([]Sender{bad, good}, nil, nil)

	err := n.Notify(context.Background(), EventPlanRollbackFailed, "orphan", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad: boom")
	assert.Len(t, good.titles, 1)
}

func TestTelegramSender(t *testing.T) {
	var got map[string]string
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewTelegramSender("tok", "42")
	s.baseURL = srv.URL

	require.NoError(t, s.Send(context.Background(), "AAPL closed", "pos_1 done"))
	assert.Equal(t, "/bottok/sendMessage", path)
	assert.Equal(t, "42", got["chat_id"])
	assert.Equal(t, "*AAPL closed*\npos\\_1 done", got["text"])
	assert.Equal(t, "telegram", s.Name())
}

func TestDiscordSender(t *testing.T) {
	var got map[string]string
	status := http.StatusNoContent
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(status)
	}))
	defer srv.Close()

	s := NewDiscordSender(srv.URL)
	require.NoError(t, s.Send(context.Background(), "title", "body"))
	assert.Equal(t, "**title**\nbody", got["content"])

	require.NoError(t, s.Send(context.Background(), "long", strings.Repeat("x", 3000)))
	assert.Len(t, []rune(got["content"]), discordContentLimit)

	status = http.StatusBadRequest
	assert.Error(t, s.Send(context.Background(), "t", "m"))
}
