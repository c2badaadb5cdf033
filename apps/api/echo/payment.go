package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/bebohany644546654/physica/core/payment"
	"github.com/bebohany644546654/physica/core/student"
)

type paymentApi struct {
	svc *payment.Service
}

func registerPaymentAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *payment.Service, studentSvc *student.Service) {
	api := paymentApi{svc: svc}

	pg := g.Group("/payments", jwt)

	// admin endpoints
	pg.POST("", api.record, adminMiddleware())
	pg.GET("", api.query, adminMiddleware())

	g.GET("/students/:id/payment", api.byStudent, jwt, selfOrAdminMiddleware(studentSvc))
}

// paymentResponse decorates the account with its computed status.
type paymentResponse struct {
	payment.Payment
	Status payment.Status `json:"status"`
}

// Handlers

func (api *paymentApi) record(ctx echo.Context) error {
	var data PaymentRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PaymentRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	p, err := api.svc.Add(data.StudentID, data.Months)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, api.toResponse(p))
}

func (api *paymentApi) query(ctx echo.Context) error {
	accounts := api.svc.QueryAll()
	out := make([]paymentResponse, 0, len(accounts))
	for _, p := range accounts {
		out = append(out, api.toResponse(p))
	}
	return ctx.JSON(http.StatusOK, out)
}

func (api *paymentApi) byStudent(ctx echo.Context) error {
	p, err := api.svc.ForStudent(ctx.Param("id"))
	if err != nil {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, api.toResponse(p))
}

func (api *paymentApi) toResponse(p payment.Payment) paymentResponse {
	status, err := api.svc.Status(p.StudentID)
	if err != nil {
		status = payment.StatusBehind
	}
	return paymentResponse{Payment: p, Status: status}
}
