package handler

import (
	"crusade/internal/models"
	"crusade/internal/services"

	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/hiendaovinh/toolkit/pkg/httpx-echo"
	"github.com/labstack/echo/v4"
	"github.com/samber/do"
)

type groupGameState struct {
	container *do.Injector
}

type recruitPayload struct {
	Count int `json:"count"`
}

type engagePayload struct {
	Sector string `json:"sector"`
}

// prepare resolves the service and the session user shared by every route.
func (gr *groupGameState) prepare(c echo.Context) (*services.ServiceGameState, *models.UserFromAuth, error) {
	serviceGameState, err := do.Invoke[*services.ServiceGameState](gr.container)
	if err != nil {
		return nil, nil, errorx.Wrap(err, errorx.Service)
	}

	user, err := ResolveValidUser(c.Request().Context())
	if err != nil {
		return nil, nil, err
	}

	return serviceGameState, user, nil
}

func (gr *groupGameState) Get(c echo.Context) error {
	serviceGameState, user, err := gr.prepare(c)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	state, err := serviceGameState.Get(c.Request().Context(), user.ID)
	return httpx.RestAbort(c, state, wrapServiceError(err))
}

func (gr *groupGameState) Summary(c echo.Context) error {
	serviceGameState, user, err := gr.prepare(c)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	summary, err := serviceGameState.Summary(c.Request().Context(), user.ID)
	return httpx.RestAbort(c, summary, wrapServiceError(err))
}

func (gr *groupGameState) Sync(c echo.Context) error {
	serviceGameState, user, err := gr.prepare(c)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	var payload models.GameStatePatch
	if err := c.Bind(&payload); err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Invalid))
	}

	state, err := serviceGameState.Sync(c.Request().Context(), user.ID, &payload)
	return httpx.RestAbort(c, state, wrapServiceError(err))
}

func (gr *groupGameState) Cleanse(c echo.Context) error {
	serviceGameState, user, err := gr.prepare(c)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	state, err := serviceGameState.Cleanse(c.Request().Context(), user.ID)
	return httpx.RestAbort(c, state, wrapServiceError(err))
}

func (gr *groupGameState) Requisition(c echo.Context) error {
	serviceGameState, user, err := gr.prepare(c)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	result, err := serviceGameState.Requisition(c.Request().Context(), user.ID)
	return httpx.RestAbort(c, result, wrapServiceError(err))
}

func (gr *groupGameState) Recruit(c echo.Context) error {
	serviceGameState, user, err := gr.prepare(c)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	payload := recruitPayload{Count: 1}
	if err := c.Bind(&payload); err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Invalid))
	}

	state, err := serviceGameState.Recruit(c.Request().Context(), user.ID, c.Param("unit"), payload.Count)
	return httpx.RestAbort(c, state, wrapServiceError(err))
}

func (gr *groupGameState) EngageSector(c echo.Context) error {
	serviceGameState, user, err := gr.prepare(c)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	var payload engagePayload
	if err := c.Bind(&payload); err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Invalid))
	}

	result, err := serviceGameState.EngageSector(c.Request().Context(), user.ID, payload.Sector)
	return httpx.RestAbort(c, result, wrapServiceError(err))
}

func (gr *groupGameState) SaveActivity(c echo.Context) error {
	serviceGameState, user, err := gr.prepare(c)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	var payload models.RitualActivity
	if err := c.Bind(&payload); err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Invalid))
	}

	state, err := serviceGameState.SaveActivity(c.Request().Context(), user.ID, payload)
	return httpx.RestAbort(c, state, wrapServiceError(err))
}

func (gr *groupGameState) DeleteActivity(c echo.Context) error {
	serviceGameState, user, err := gr.prepare(c)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	state, err := serviceGameState.DeleteActivity(c.Request().Context(), user.ID, c.Param("id"))
	return httpx.RestAbort(c, state, wrapServiceError(err))
}

func (gr *groupGameState) PerformRitual(c echo.Context) error {
	serviceGameState, user, err := gr.prepare(c)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	state, err := serviceGameState.PerformRitual(c.Request().Context(), user.ID, c.Param("id"))
	return httpx.RestAbort(c, state, wrapServiceError(err))
}

func (gr *groupGameState) UnlockUpgrade(c echo.Context) error {
	serviceGameState, user, err := gr.prepare(c)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	result, err := serviceGameState.UnlockUpgrade(c.Request().Context(), user.ID, c.Param("id"))
	return httpx.RestAbort(c, result, wrapServiceError(err))
}
