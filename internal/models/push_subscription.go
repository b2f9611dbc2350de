package models

import (
	"errors"
	"strconv"
	"time"

	"github.com/uptrace/bun"
)

type SubscriptionKind string

const (
	SubscriptionWebPush  SubscriptionKind = "webpush"
	SubscriptionTelegram SubscriptionKind = "telegram"
)

var (
	ErrInvalidSubscriptionKind = errors.New("kind must be webpush or telegram")
	ErrEndpointRequired        = errors.New("endpoint is required")
	ErrChatIDRequired          = errors.New("chat_id is required")
)

type PushSubscription struct {
	bun.BaseModel `bun:"table:push_subscription"`
	ID            string           `bun:"id,pk" json:"id"`
	UserID        string           `bun:"user_id,unique:push_subscription_user_endpoint" json:"-"`
	Kind          SubscriptionKind `bun:"kind" json:"kind"`
	Endpoint      string           `bun:"endpoint,unique:push_subscription_user_endpoint" json:"endpoint"`
	P256dh        string           `bun:"p256dh" json:"p256dh,omitempty"`
	Auth          string           `bun:"auth" json:"auth,omitempty"`
	ChatID        int64            `bun:"chat_id" json:"chat_id,omitempty"`
	CreatedAt     time.Time        `bun:"created_at,default:current_timestamp" json:"created_at"`
}

type PushSubscriptionInput struct {
	Kind     SubscriptionKind `json:"kind"`
	Endpoint string           `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
	ChatID int64 `json:"chat_id"`
}

// Normalize validates the input; telegram subscriptions use the chat id as endpoint.
func (in *PushSubscriptionInput) Normalize() error {
	if in.Kind == "" {
		in.Kind = SubscriptionWebPush
	}
	switch in.Kind {
	case SubscriptionWebPush:
		if in.Endpoint == "" {
			return ErrEndpointRequired
		}
	case SubscriptionTelegram:
		if in.ChatID == 0 {
			return ErrChatIDRequired
		}
		in.Endpoint = "telegram:" + strconv.FormatInt(in.ChatID, 10)
	default:
		return ErrInvalidSubscriptionKind
	}
	return nil
}
