package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/bebohany644546654/physica/core"
	"github.com/bebohany644546654/physica/core/student"
)

type studentApi struct {
	svc *student.Service
}

func registerStudentAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *student.Service) {
	api := studentApi{svc: svc}

	sg := g.Group("/students", jwt)

	// admin endpoints
	sg.POST("", api.create, adminMiddleware())
	sg.GET("", api.query, adminMiddleware())
	sg.PUT("/:id", api.update, adminMiddleware())
	sg.DELETE("/:id", api.destroy, adminMiddleware())

	sg.GET("/:id", api.retrieve, selfOrAdminMiddleware(svc))

	// guardian accounts
	pg := g.Group("/parents", jwt)
	pg.POST("", api.createParent, adminMiddleware())
	pg.GET("", api.queryParents, adminMiddleware())
	pg.DELETE("/:id", api.destroyParent, adminMiddleware())
}

// Handlers

func (api *studentApi) create(ctx echo.Context) error {
	var data student.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}

	stu, pwd, err := api.svc.Create(data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, CreatedAccountResponse{Student: &stu, Password: pwd})
}

func (api *studentApi) query(ctx echo.Context) error {
	if grade := core.GradeLevel(ctx.QueryParam("grade")); grade != "" {
		if !grade.Valid() {
			return echo.NewHTTPError(http.StatusBadRequest, "unknown grade")
		}
		return ctx.JSON(http.StatusOK, api.svc.FilterByGrade(grade))
	}
	if group := ctx.QueryParam("group"); group != "" {
		return ctx.JSON(http.StatusOK, api.svc.FilterByGroup(group))
	}
	return ctx.JSON(http.StatusOK, api.svc.QueryAll())
}

func (api *studentApi) retrieve(ctx echo.Context) error {
	stu, err := api.svc.GetByID(ctx.Param("id"))
	if err != nil {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, stu)
}

func (api *studentApi) update(ctx echo.Context) error {
	var data student.UpdateStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}

	stu, err := api.svc.Update(ctx.Param("id"), data)
	if err != nil {
		if err == student.ErrNotFound {
			return errHttpNotFound
		}
		return err
	}
	return ctx.JSON(http.StatusOK, stu)
}

func (api *studentApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Param("id")); err != nil {
		if err == student.ErrNotFound {
			return errHttpNotFound
		}
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *studentApi) createParent(ctx echo.Context) error {
	var data student.NewParent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewParent")
	}

	par, pwd, err := api.svc.CreateParent(data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, CreatedAccountResponse{Parent: &par, Password: pwd})
}

func (api *studentApi) queryParents(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.svc.QueryAllParents())
}

func (api *studentApi) destroyParent(ctx echo.Context) error {
	if err := api.svc.DeleteParent(ctx.Param("id")); err != nil {
		if err == student.ErrParentNotFound {
			return errHttpNotFound
		}
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
