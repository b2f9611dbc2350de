package handler

import (
	"crusade/internal/services"

	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/hiendaovinh/toolkit/pkg/httpx-echo"
	"github.com/labstack/echo/v4"
	"github.com/samber/do"
)

type groupHealth struct {
	container *do.Injector
}

func (gr *groupHealth) Health(c echo.Context) error {
	serviceCorruption, err := do.Invoke[*services.ServiceCorruption](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	tick, err := serviceCorruption.LastTick(c.Request().Context())
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	return httpx.RestAbort(c, map[string]any{"status": "ok", "last_tick": tick}, nil)
}
