package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/bebohany644546654/physica/core"
	"github.com/bebohany644546654/physica/core/library"
)

type libraryApi struct {
	svc *library.Service
}

func registerLibraryAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *library.Service) {
	api := libraryApi{svc: svc}

	vg := g.Group("/videos", jwt)
	vg.POST("", api.createVideo, adminMiddleware())
	vg.PUT("/:id", api.updateVideo, adminMiddleware())
	vg.DELETE("/:id", api.destroyVideo, adminMiddleware())
	vg.GET("", api.queryVideos)
	vg.GET("/:id", api.retrieveVideo)
	vg.POST("/:id/view", api.recordView)

	bg := g.Group("/books", jwt)
	bg.POST("", api.createBook, adminMiddleware())
	bg.DELETE("/:id", api.destroyBook, adminMiddleware())
	bg.GET("", api.queryBooks)

	rg := g.Group("/resources", jwt)
	rg.POST("", api.createResource, adminMiddleware())
	rg.DELETE("/:id", api.destroyResource, adminMiddleware())
	rg.GET("", api.queryResources)
}

// gradeFilter reads an optional ?grade= query param.
func gradeFilter(ctx echo.Context) (core.GradeLevel, error) {
	grade := core.GradeLevel(ctx.QueryParam("grade"))
	if grade != "" && !grade.Valid() {
		return "", echo.NewHTTPError(http.StatusBadRequest, "unknown grade")
	}
	return grade, nil
}

// Handlers

func (api *libraryApi) createVideo(ctx echo.Context) error {
	var data library.NewVideo
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewVideo")
	}
	v, err := api.svc.AddVideo(data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, v)
}

func (api *libraryApi) updateVideo(ctx echo.Context) error {
	var data library.UpdateVideo
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateVideo")
	}
	v, err := api.svc.UpdateVideo(ctx.Param("id"), data)
	if err != nil {
		if err == library.ErrVideoNotFound {
			return errHttpNotFound
		}
		return err
	}
	return ctx.JSON(http.StatusOK, v)
}

func (api *libraryApi) retrieveVideo(ctx echo.Context) error {
	v, err := api.svc.GetVideo(ctx.Param("id"))
	if err != nil {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, v)
}

func (api *libraryApi) recordView(ctx echo.Context) error {
	v, err := api.svc.RecordView(ctx.Param("id"))
	if err != nil {
		if err == library.ErrVideoNotFound {
			return errHttpNotFound
		}
		return err
	}
	return ctx.JSON(http.StatusOK, v)
}

func (api *libraryApi) queryVideos(ctx echo.Context) error {
	grade, err := gradeFilter(ctx)
	if err != nil {
		return err
	}
	if grade != "" {
		return ctx.JSON(http.StatusOK, api.svc.VideosByGrade(grade))
	}
	return ctx.JSON(http.StatusOK, api.svc.QueryAllVideos())
}

func (api *libraryApi) destroyVideo(ctx echo.Context) error {
	if err := api.svc.DeleteVideo(ctx.Param("id")); err != nil {
		if err == library.ErrVideoNotFound {
			return errHttpNotFound
		}
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *libraryApi) createBook(ctx echo.Context) error {
	var data library.NewBook
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewBook")
	}
	b, err := api.svc.AddBook(data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, b)
}

func (api *libraryApi) queryBooks(ctx echo.Context) error {
	grade, err := gradeFilter(ctx)
	if err != nil {
		return err
	}
	if grade != "" {
		return ctx.JSON(http.StatusOK, api.svc.BooksByGrade(grade))
	}
	return ctx.JSON(http.StatusOK, api.svc.QueryAllBooks())
}

func (api *libraryApi) destroyBook(ctx echo.Context) error {
	if err := api.svc.DeleteBook(ctx.Param("id")); err != nil {
		if err == library.ErrBookNotFound {
			return errHttpNotFound
		}
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *libraryApi) createResource(ctx echo.Context) error {
	var data library.NewResource
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewResource")
	}
	r, err := api.svc.AddResource(data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, r)
}

func (api *libraryApi) queryResources(ctx echo.Context) error {
	grade, err := gradeFilter(ctx)
	if err != nil {
		return err
	}
	if grade != "" {
		return ctx.JSON(http.StatusOK, api.svc.ResourcesByGrade(grade))
	}
	return ctx.JSON(http.StatusOK, api.svc.QueryAllResources())
}

func (api *libraryApi) destroyResource(ctx echo.Context) error {
	if err := api.svc.DeleteResource(ctx.Param("id")); err != nil {
		if err == library.ErrResourceNotFound {
			return errHttpNotFound
		}
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
