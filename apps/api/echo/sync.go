package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/bebohany644546654/physica/sync"
)

type syncApi struct {
	co *sync.Coordinator
}

func registerSyncAPI(g *echo.Group, jwt echo.MiddlewareFunc, co *sync.Coordinator) {
	api := syncApi{co: co}

	sg := g.Group("/sync", jwt, adminMiddleware())
	sg.GET("/status", api.status)
	sg.POST("", api.syncNow)
}

// Handlers

func (api *syncApi) status(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.co.Report())
}

// syncNow triggers the manual "sync now" action and reports the
// resulting state.
func (api *syncApi) syncNow(ctx echo.Context) error {
	api.co.Sync()
	return ctx.JSON(http.StatusOK, api.co.Report())
}
