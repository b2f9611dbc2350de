package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"crusade/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingSender struct {
	mu    sync.Mutex
	chats []int64
	texts []string
}

func (s *recordingSender) SendMsg(chatID int64, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats = append(s.chats, chatID)
	s.texts = append(s.texts, text)
	return nil
}

var pushSubscriptionColumns = []string{"id", "user_id", "kind", "endpoint", "p256dh", "auth", "chat_id", "created_at"}

func TestNotifyPenitentDeliversToEverySubscription(t *testing.T) {
	db, mock := newMockDB(t)

	var relayed []relayMessage
	var mu sync.Mutex
	relay := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var msg relayMessage
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		mu.Lock()
		relayed = append(relayed, msg)
		mu.Unlock()
		w.WriteHeader(http.StatusAccepted)
	}))
	defer relay.Close()

	sender := &recordingSender{}
	service := &ServiceNotification{
		postgresDB: db,
		config:     staticConfig{},
		telegram:   sender,
		relayURL:   relay.URL,
		logger:     zap.NewNop(),
	}

	now := time.Now()
	mock.ExpectQuery(`SELECT .* FROM "push_subscription"`).WillReturnRows(sqlmock.NewRows(pushSubscriptionColumns).
		AddRow("s1", "google:1", "telegram", "telegram:42", "", "", int64(42), now).
		AddRow("s2", "google:1", "webpush", "https://push.example/abc", "key", "secret", int64(0), now),
	)

	service.NotifyPenitent(context.Background(), "google:1", 100)
	service.Flush()

	require.Len(t, sender.chats, 1)
	assert.Equal(t, int64(42), sender.chats[0])
	assert.True(t, strings.Contains(sender.texts[0], "Corruption has reached 100"))

	require.Len(t, relayed, 1)
	assert.Equal(t, "https://push.example/abc", relayed[0].Endpoint)
	assert.Equal(t, "key", relayed[0].Keys.P256dh)
	assert.Equal(t, sender.texts[0], relayed[0].Body)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubscribeNormalizesTelegram(t *testing.T) {
	db, mock := newMockDB(t)
	service := &ServiceNotification{postgresDB: db, config: staticConfig{}, logger: zap.NewNop()}

	_, err := service.Subscribe(context.Background(), "google:1", &models.PushSubscriptionInput{Kind: "pager"})
	assert.ErrorIs(t, err, models.ErrInvalidSubscriptionKind)

	mock.ExpectQuery(`INSERT INTO "push_subscription" .*'telegram:42'.* ON CONFLICT \(user_id, endpoint\) DO UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("s1", time.Now()))

	sub, err := service.Subscribe(context.Background(), "google:1", &models.PushSubscriptionInput{Kind: models.SubscriptionTelegram, ChatID: 42})
	require.NoError(t, err)
	assert.Equal(t, "telegram:42", sub.Endpoint)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBotSendMsg(t *testing.T) {
	var got map[string]any
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/sendMessage") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":7,"chat":{"id":42,"type":"private"},"date":0,"text":"hi"}}`))
	}))
	defer api.Close()

	bot, err := NewBot("123:abc", api.URL)
	require.NoError(t, err)

	require.NoError(t, bot.SendMsg(42, "<b>hi</b>"))
	assert.Equal(t, "42", got["chat_id"])
	assert.Equal(t, "HTML", got["parse_mode"])
}
