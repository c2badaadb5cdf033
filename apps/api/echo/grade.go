package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/bebohany644546654/physica/core/grade"
	"github.com/bebohany644546654/physica/core/student"
)

type gradeApi struct {
	svc *grade.Service
}

func registerGradeAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *grade.Service, studentSvc *student.Service) {
	api := gradeApi{svc: svc}

	gg := g.Group("/grades", jwt)

	// admin endpoints
	gg.POST("", api.create, adminMiddleware())
	gg.GET("", api.query, adminMiddleware())
	gg.PUT("/:id", api.update, adminMiddleware())
	gg.DELETE("/:id", api.destroy, adminMiddleware())

	g.GET("/students/:id/grades", api.byStudent, jwt, selfOrAdminMiddleware(studentSvc))
}

// gradeResponse decorates a grade with its computed performance bucket.
type gradeResponse struct {
	grade.Grade
	Performance grade.Performance `json:"performance"`
}

func toGradeResponses(grades []grade.Grade) []gradeResponse {
	out := make([]gradeResponse, 0, len(grades))
	for _, g := range grades {
		out = append(out, gradeResponse{Grade: g, Performance: g.Performance()})
	}
	return out
}

// Handlers

func (api *gradeApi) create(ctx echo.Context) error {
	var data grade.NewGrade
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGrade")
	}

	g, err := api.svc.Add(data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, gradeResponse{Grade: g, Performance: g.Performance()})
}

func (api *gradeApi) query(ctx echo.Context) error {
	if group := ctx.QueryParam("group"); group != "" {
		return ctx.JSON(http.StatusOK, toGradeResponses(api.svc.ByGroup(group)))
	}
	return ctx.JSON(http.StatusOK, toGradeResponses(api.svc.QueryAll()))
}

func (api *gradeApi) byStudent(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, toGradeResponses(api.svc.ByStudent(ctx.Param("id"))))
}

func (api *gradeApi) update(ctx echo.Context) error {
	var data grade.UpdateGrade
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateGrade")
	}

	g, err := api.svc.Update(ctx.Param("id"), data)
	if err != nil {
		if err == grade.ErrNotFound {
			return errHttpNotFound
		}
		return err
	}
	return ctx.JSON(http.StatusOK, gradeResponse{Grade: g, Performance: g.Performance()})
}

func (api *gradeApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Param("id")); err != nil {
		if err == grade.ErrNotFound {
			return errHttpNotFound
		}
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
