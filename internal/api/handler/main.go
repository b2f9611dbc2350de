package handler

import (
	"net/http"

	"crusade/internal/services"

	"github.com/hiendaovinh/toolkit/pkg/httpx-echo"
	"github.com/labstack/echo-contrib/pprof"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/samber/do"
	"go.uber.org/zap"
)

type Config struct {
	Container *do.Injector
	Mode      string
	Origins   []string
}

func New(cfg *Config) (http.Handler, error) {
	logger, err := do.Invoke[*zap.Logger](cfg.Container)
	if err != nil {
		return nil, err
	}

	r := echo.New()
	r.Pre(middleware.RemoveTrailingSlash())
	if cfg.Mode == "debug" {
		r.Debug = true
		pprof.Register(r)
	}

	r.JSONSerializer = httpx.SegmentJSONSerializer{}
	r.Use(RequestLogger(logger.Named("http")))
	r.Use(middleware.Recover())

	r.GET("", func(c echo.Context) error {
		return c.String(http.StatusOK, "⚔️")
	})

	routesAPI := r.Group("/api")
	{
		authentication, err := do.Invoke[*services.Authentication](cfg.Container)
		if err != nil {
			return nil, err
		}
		cors := middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:     cfg.Origins,
			AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
			AllowCredentials: true,
			MaxAge:           60 * 60,
		})

		routesAPI.Use(cors)
		routesAPI.Use(Authn(authentication)) // Authn will NOT terminate unauthenticated request.
		h := groupHealth{cfg.Container}
		routesAPI.GET("/health", h.Health)

		a := groupAuth{cfg.Container}
		routesAPI.POST("/auth/login", a.Login)
		routesAPI.GET("/auth/me", a.Me)

		routesAPITasks := routesAPI.Group("/tasks")
		{
			t := groupTask{cfg.Container}
			routesAPITasks.GET("", t.List)
			routesAPITasks.POST("", t.Create)
			routesAPITasks.PATCH("/:id", t.Update)
			routesAPITasks.DELETE("/:id", t.Delete)
			routesAPITasks.POST("/:id/complete", t.Complete)
		}

		routesAPIProjects := routesAPI.Group("/projects")
		{
			p := groupProject{cfg.Container}
			routesAPIProjects.GET("", p.List)
			routesAPIProjects.POST("", p.Create)
			routesAPIProjects.PATCH("/:id", p.Update)
			routesAPIProjects.DELETE("/:id", p.Delete)
			routesAPIProjects.POST("/:id/subtasks/:subtask/toggle", p.ToggleSubTask)
		}

		routesAPIGameState := routesAPI.Group("/game-state")
		{
			g := groupGameState{cfg.Container}
			routesAPIGameState.GET("", g.Get)
			routesAPIGameState.PATCH("", g.Sync)
			routesAPIGameState.GET("/summary", g.Summary)
			routesAPIGameState.POST("/cleanse", g.Cleanse)
			routesAPIGameState.POST("/requisition", g.Requisition)
			routesAPIGameState.POST("/units/:unit/recruit", g.Recruit)
			routesAPIGameState.POST("/sectors/engage", g.EngageSector)
			routesAPIGameState.POST("/activities", g.SaveActivity)
			routesAPIGameState.DELETE("/activities/:id", g.DeleteActivity)
			routesAPIGameState.POST("/activities/:id/perform", g.PerformRitual)
			routesAPIGameState.POST("/upgrades/:id/unlock", g.UnlockUpgrade)
		}

		routesAPILedger := routesAPI.Group("/ledger")
		{
			e := groupExpense{cfg.Container}
			routesAPILedger.GET("", e.List)
			routesAPILedger.POST("", e.Create)
			routesAPILedger.GET("/summary", e.Summary)
			routesAPILedger.POST("/archive", e.Archive)
			routesAPILedger.GET("/export", e.Export)
			routesAPILedger.PATCH("/:id", e.Update)
			routesAPILedger.DELETE("/:id", e.Delete)
		}

		l := groupResourceLog{cfg.Container}
		routesAPI.GET("/logs", l.List)
		routesAPI.POST("/logs", l.Append)

		n := groupNotification{cfg.Container}
		routesAPI.GET("/notifications", n.List)
		routesAPI.POST("/notifications", n.Subscribe)
		routesAPI.DELETE("/notifications/:id", n.Unsubscribe)

		m := groupMigration{cfg.Container}
		routesAPI.POST("/migration/claim", m.Claim)
	}

	return r, nil
}
