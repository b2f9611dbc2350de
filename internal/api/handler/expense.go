package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"crusade/internal/models"
	"crusade/internal/services"

	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/hiendaovinh/toolkit/pkg/httpx-echo"
	"github.com/labstack/echo/v4"
	"github.com/samber/do"
)

type groupExpense struct {
	container *do.Injector
}

func (gr *groupExpense) prepare(c echo.Context) (*services.ServiceExpense, *models.UserFromAuth, error) {
	serviceExpense, err := do.Invoke[*services.ServiceExpense](gr.container)
	if err != nil {
		return nil, nil, errorx.Wrap(err, errorx.Service)
	}

	user, err := ResolveValidUser(c.Request().Context())
	if err != nil {
		return nil, nil, err
	}

	return serviceExpense, user, nil
}

func (gr *groupExpense) List(c echo.Context) error {
	serviceExpense, user, err := gr.prepare(c)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	archived := false
	if v := c.QueryParam("archived"); v != "" {
		archived, err = strconv.ParseBool(v)
		if err != nil {
			return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Invalid))
		}
	}

	expenses, err := serviceExpense.List(c.Request().Context(), user.ID, archived)
	return httpx.RestAbort(c, expenses, wrapServiceError(err))
}

func (gr *groupExpense) Create(c echo.Context) error {
	serviceExpense, user, err := gr.prepare(c)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	var payload models.ExpenseInput
	if err := c.Bind(&payload); err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Invalid))
	}

	expense, err := serviceExpense.Create(c.Request().Context(), user.ID, &payload)
	return httpx.RestAbort(c, expense, wrapServiceError(err))
}

func (gr *groupExpense) Update(c echo.Context) error {
	serviceExpense, user, err := gr.prepare(c)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	var payload models.ExpensePatch
	if err := c.Bind(&payload); err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Invalid))
	}

	expense, err := serviceExpense.Update(c.Request().Context(), user.ID, c.Param("id"), &payload)
	return httpx.RestAbort(c, expense, wrapServiceError(err))
}

func (gr *groupExpense) Delete(c echo.Context) error {
	serviceExpense, user, err := gr.prepare(c)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	if err := serviceExpense.Delete(c.Request().Context(), user.ID, c.Param("id")); err != nil {
		return httpx.RestAbort(c, nil, wrapServiceError(err))
	}

	return httpx.RestAbort(c, true, nil)
}

func (gr *groupExpense) Summary(c echo.Context) error {
	serviceExpense, user, err := gr.prepare(c)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	summary, err := serviceExpense.Summary(c.Request().Context(), user.ID)
	return httpx.RestAbort(c, summary, wrapServiceError(err))
}

func (gr *groupExpense) Archive(c echo.Context) error {
	serviceExpense, user, err := gr.prepare(c)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	archived, err := serviceExpense.ArchiveAll(c.Request().Context(), user.ID)
	if err != nil {
		return httpx.RestAbort(c, nil, wrapServiceError(err))
	}

	return httpx.RestAbort(c, map[string]int64{"archived": archived}, nil)
}

func (gr *groupExpense) Export(c echo.Context) error {
	serviceExpense, user, err := gr.prepare(c)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	filename := fmt.Sprintf("ledger-%s.csv", time.Now().UTC().Format("2006-01-02"))
	c.Response().Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	c.Response().WriteHeader(http.StatusOK)

	return serviceExpense.ExportCSV(c.Request().Context(), user.ID, c.Response())
}
