package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"crusade/internal/datastore"
	"crusade/internal/datastore/redis_store"
	"crusade/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

type notificationConfig interface {
	GetStringConfig(ctx context.Context, key string, defaultValue string) (string, error)
	GetIntConfig(ctx context.Context, key string, defaultValue int) (int, error)
}

type ServiceNotification struct {
	ServiceHTTP
	postgresDB bun.IDB
	redisDB    redis.Cmdable
	config     notificationConfig
	telegram   TelegramSender
	relayURL   string
	logger     *zap.Logger

	wg sync.WaitGroup
}

func NewServiceNotification(container *do.Injector) (*ServiceNotification, error) {
	postgresDB, err := do.Invoke[*bun.DB](container)
	if err != nil {
		return nil, err
	}

	redisDB, err := do.InvokeNamed[redis.UniversalClient](container, "redis-db")
	if err != nil {
		return nil, err
	}

	serviceConfig, err := do.Invoke[*ServiceConfig](container)
	if err != nil {
		return nil, err
	}

	logger, err := do.Invoke[*zap.Logger](container)
	if err != nil {
		return nil, err
	}

	// both delivery channels are optional
	var telegram TelegramSender
	if bot, err := do.Invoke[*Bot](container); err == nil {
		telegram = bot
	}
	relayURL, _ := do.InvokeNamed[string](container, "notify-relay-url")

	return &ServiceNotification{
		postgresDB: postgresDB,
		redisDB:    redisDB,
		config:     serviceConfig,
		telegram:   telegram,
		relayURL:   relayURL,
		logger:     logger.Named("notification"),
	}, nil
}

func (service *ServiceNotification) Subscribe(ctx context.Context, userID string, input *models.PushSubscriptionInput) (*models.PushSubscription, error) {
	if err := input.Normalize(); err != nil {
		return nil, err
	}

	sub := &models.PushSubscription{
		ID:       uuid.NewString(),
		UserID:   userID,
		Kind:     input.Kind,
		Endpoint: input.Endpoint,
		P256dh:   input.Keys.P256dh,
		Auth:     input.Keys.Auth,
		ChatID:   input.ChatID,
	}
	if err := datastore.UpsertPushSubscription(ctx, service.postgresDB, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

func (service *ServiceNotification) List(ctx context.Context, userID string) ([]models.PushSubscription, error) {
	return datastore.ListPushSubscriptions(ctx, service.postgresDB, userID)
}

func (service *ServiceNotification) Unsubscribe(ctx context.Context, userID, id string) error {
	return datastore.DeletePushSubscription(ctx, service.postgresDB, userID, id)
}

// LastPenitentNotice returns the notice still cooling down, or nil.
func (service *ServiceNotification) LastPenitentNotice(ctx context.Context, userID string) (*redis_store.PenitentNotice, error) {
	if service.redisDB == nil {
		return nil, nil
	}
	return redis_store.GetPenitentNotice(ctx, service.redisDB, userID)
}

// NotifyPenitent delivers in the background, at most once per cooldown.
func (service *ServiceNotification) NotifyPenitent(ctx context.Context, userID string, corruption float64) {
	ctx = context.WithoutCancel(ctx)

	service.wg.Add(1)
	go func() {
		defer service.wg.Done()

		if !service.markPenitent(ctx, userID, corruption) {
			return
		}
		service.deliverPenitent(ctx, userID, corruption)
	}()
}

// markPenitent reports whether the cooldown allows a new notice.
func (service *ServiceNotification) markPenitent(ctx context.Context, userID string, corruption float64) bool {
	if service.redisDB == nil {
		return true
	}

	hours, err := service.config.GetIntConfig(ctx, CONFIG_PENITENT_NOTIFY_COOLDOWN_HOURS, DEFAULT_PENITENT_NOTIFY_COOLDOWN_HOURS)
	if err != nil {
		service.logger.Warn("notify cooldown config", zap.Error(err))
	}

	notice := &redis_store.PenitentNotice{UserID: userID, Corruption: corruption, NotifiedAt: time.Now()}
	ok, err := redis_store.MarkPenitentNotice(ctx, service.redisDB, notice, time.Duration(hours)*time.Hour)
	if err != nil {
		service.logger.Error("mark penitent notice", zap.String("user_id", userID), zap.Error(err))
		return false
	}
	return ok
}

// Flush blocks until pending deliveries have finished.
func (service *ServiceNotification) Flush() {
	service.wg.Wait()
}

func (service *ServiceNotification) deliverPenitent(ctx context.Context, userID string, corruption float64) {
	subs, err := datastore.ListPushSubscriptions(ctx, service.postgresDB, userID)
	if err != nil {
		service.logger.Error("list push subscriptions", zap.String("user_id", userID), zap.Error(err))
		return
	}

	format, err := service.config.GetStringConfig(ctx, CONFIG_PENITENT_NOTIFY_TEXT, DEFAULT_PENITENT_NOTIFY_TEXT)
	if err != nil {
		service.logger.Warn("notify text config", zap.Error(err))
	}
	text := fmt.Sprintf(format, corruption)

	for _, sub := range subs {
		switch sub.Kind {
		case models.SubscriptionTelegram:
			err = service.sendTelegram(sub, text)
		default:
			err = service.sendRelay(sub, text)
		}
		if err != nil {
			service.logger.Warn("deliver penitent notice",
				zap.String("user_id", userID),
				zap.String("subscription_id", sub.ID),
				zap.String("kind", string(sub.Kind)),
				zap.Error(err),
			)
		}
	}
}

func (service *ServiceNotification) sendTelegram(sub models.PushSubscription, text string) error {
	if service.telegram == nil {
		return ErrProviderDisabled
	}
	return service.telegram.SendMsg(sub.ChatID, text)
}

type relayMessage struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

// sendRelay hands a web push to the relay, which owns the VAPID keys.
func (service *ServiceNotification) sendRelay(sub models.PushSubscription, text string) error {
	if service.relayURL == "" {
		return ErrProviderDisabled
	}

	msg := relayMessage{Endpoint: sub.Endpoint, Title: "Penitent mode", Body: text}
	msg.Keys.P256dh = sub.P256dh
	msg.Keys.Auth = sub.Auth

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	headers := http.Header{}
	headers.Set("Content-Type", "application/json")
	resp, err := service.httpClient(HTTP_TIMEOUT).Post(service.relayURL, bytes.NewReader(body), headers)
	if err != nil {
		return err
	}
	return decodeJSONResponse(resp, nil)
}
