package handler

import (
	"crusade/internal/datastore/redis_store"
	"crusade/internal/models"
	"crusade/internal/services"

	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/hiendaovinh/toolkit/pkg/httpx-echo"
	"github.com/labstack/echo/v4"
	"github.com/samber/do"
)

type groupNotification struct {
	container *do.Injector
}

func (gr *groupNotification) List(c echo.Context) error {
	serviceNotification, err := do.Invoke[*services.ServiceNotification](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	ctx := c.Request().Context()
	user, err := ResolveValidUser(ctx)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	subscriptions, err := serviceNotification.List(ctx, user.ID)
	if err != nil {
		return httpx.RestAbort(c, nil, wrapServiceError(err))
	}

	// cooldown state is informative only
	notice, _ := serviceNotification.LastPenitentNotice(ctx, user.ID)

	return httpx.RestAbort(c, struct {
		Subscriptions      []models.PushSubscription   `json:"subscriptions"`
		LastPenitentNotice *redis_store.PenitentNotice `json:"last_penitent_notice"`
	}{
		Subscriptions:      subscriptions,
		LastPenitentNotice: notice,
	}, nil)
}

func (gr *groupNotification) Subscribe(c echo.Context) error {
	serviceNotification, err := do.Invoke[*services.ServiceNotification](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	ctx := c.Request().Context()
	user, err := ResolveValidUser(ctx)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	var payload models.PushSubscriptionInput
	if err := c.Bind(&payload); err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Invalid))
	}

	subscription, err := serviceNotification.Subscribe(ctx, user.ID, &payload)
	if err != nil {
		return httpx.RestAbort(c, nil, wrapServiceError(err))
	}

	return httpx.RestAbort(c, subscription, nil)
}

func (gr *groupNotification) Unsubscribe(c echo.Context) error {
	serviceNotification, err := do.Invoke[*services.ServiceNotification](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	ctx := c.Request().Context()
	user, err := ResolveValidUser(ctx)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	if err := serviceNotification.Unsubscribe(ctx, user.ID, c.Param("id")); err != nil {
		return httpx.RestAbort(c, nil, wrapServiceError(err))
	}

	return httpx.RestAbort(c, true, nil)
}
