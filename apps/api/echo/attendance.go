package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/bebohany644546654/physica/core/attendance"
	"github.com/bebohany644546654/physica/core/student"
)

type attendanceApi struct {
	svc        *attendance.Service
	studentSvc *student.Service
}

func registerAttendanceAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *attendance.Service, studentSvc *student.Service) {
	api := attendanceApi{svc: svc, studentSvc: studentSvc}

	ag := g.Group("/attendance", jwt)

	// admin endpoints
	ag.POST("", api.record, adminMiddleware())
	ag.GET("", api.query, adminMiddleware())
	ag.DELETE("/:id", api.destroy, adminMiddleware())

	g.GET("/students/:id/attendance", api.byStudent, jwt, selfOrAdminMiddleware(studentSvc))
}

// Handlers

// record marks a student present or absent, typically from a QR scan of
// their login code.
func (api *attendanceApi) record(ctx echo.Context) error {
	var data AttendanceRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AttendanceRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	stu, err := api.studentSvc.GetByID(data.StudentID)
	if err != nil {
		// QR scans send the printed code rather than the id
		if stu, err = api.studentSvc.GetByCode(data.StudentID); err != nil {
			return errHttpNotFound
		}
	}

	rec, err := api.svc.Add(stu.ID, stu.Name, attendance.Status(data.Status))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, rec)
}

func (api *attendanceApi) query(ctx echo.Context) error {
	if studentID := ctx.QueryParam("student_id"); studentID != "" {
		return ctx.JSON(http.StatusOK, api.svc.ByStudent(studentID))
	}
	return ctx.JSON(http.StatusOK, api.svc.QueryAll())
}

func (api *attendanceApi) byStudent(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.svc.ByStudent(ctx.Param("id")))
}

func (api *attendanceApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Param("id")); err != nil {
		if err == attendance.ErrNotFound {
			return errHttpNotFound
		}
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
