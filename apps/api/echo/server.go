package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/bebohany644546654/physica/core"
	"github.com/bebohany644546654/physica/core/attendance"
	"github.com/bebohany644546654/physica/core/grade"
	"github.com/bebohany644546654/physica/core/library"
	"github.com/bebohany644546654/physica/core/payment"
	"github.com/bebohany644546654/physica/core/student"
	"github.com/bebohany644546654/physica/sync"
)

type ServerDeps struct {
	Logger         core.Logger
	Coordinator    *sync.Coordinator
	StudentSvc     *student.Service
	AttendanceSvc  *attendance.Service
	GradeSvc       *grade.Service
	PaymentSvc     *payment.Service
	LibrarySvc     *library.Service
	DisableReqLogs bool
}

type Server struct {
	deps       ServerDeps
	app        *echo.Echo
	errCh      chan error
	shutdownCh chan os.Signal
}

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:       deps,
		app:        echo.New(),
		errCh:      make(chan error, 1),
		shutdownCh: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdownCh, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(core.Conf.Debug || core.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.signalShutdown)
	s.app.Debug = core.Conf.Debug
	s.app.HideBanner = true

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(appJWTConfig)

	registerAuthAPI(v1, jwt, s.deps.StudentSvc)
	registerStudentAPI(v1, jwt, s.deps.StudentSvc)
	registerAttendanceAPI(v1, jwt, s.deps.AttendanceSvc, s.deps.StudentSvc)
	registerGradeAPI(v1, jwt, s.deps.GradeSvc, s.deps.StudentSvc)
	registerPaymentAPI(v1, jwt, s.deps.PaymentSvc, s.deps.StudentSvc)
	registerLibraryAPI(v1, jwt, s.deps.LibrarySvc)
	registerSyncAPI(v1, jwt, s.deps.Coordinator)
}

func (s *Server) Start() {
	if err := s.app.Start(core.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errCh <- err
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) Errors() <-chan error {
	return s.errCh
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdownCh
}

func (s *Server) signalShutdown() {
	s.shutdownCh <- syscall.SIGTERM
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+core.Conf.AppName+" API!")
}
