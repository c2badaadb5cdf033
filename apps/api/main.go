package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"os"

	echoapi "github.com/bebohany644546654/physica/apps/api/echo"
	"github.com/bebohany644546654/physica/core"
	"github.com/bebohany644546654/physica/core/attendance"
	"github.com/bebohany644546654/physica/core/grade"
	"github.com/bebohany644546654/physica/core/library"
	"github.com/bebohany644546654/physica/core/payment"
	"github.com/bebohany644546654/physica/core/student"
	emailsvc "github.com/bebohany644546654/physica/services/email"
	logsvc "github.com/bebohany644546654/physica/services/logger"
	localstore "github.com/bebohany644546654/physica/storage/local"
	remotestore "github.com/bebohany644546654/physica/storage/remote"
	"github.com/bebohany644546654/physica/sync"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.Conf

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	// remote document store + connectivity monitor
	db, err := remotestore.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			logger.Error("closing database", err)
		}
	}()

	remote := remotestore.NewPgStore(db, conf.Sync.PollInterval, logger)
	monitor := remotestore.NewPingMonitor(db, conf.Sync.PingInterval)
	stopMonitor := monitor.Start()
	defer stopMonitor()

	// on-device store
	local, err := localstore.NewFileStore(conf.Sync.DataDir)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening local store: %v", err), err)
	}

	// =========================================================================
	// Replicated collections

	co := sync.NewCoordinator(local, remote, monitor, logger)
	students := sync.Register[student.Student](co, student.Collection)
	parents := sync.Register[student.Parent](co, student.ParentCollection)
	attendanceRecs := sync.Register[attendance.Record](co, attendance.Collection)
	grades := sync.Register[grade.Grade](co, grade.Collection)
	payments := sync.Register[payment.Payment](co, payment.Collection)
	videos := sync.Register[library.Video](co, library.VideoCollection)
	books := sync.Register[library.Book](co, library.BookCollection)
	resources := sync.Register[library.Resource](co, library.ResourceCollection)

	co.Start()
	defer co.Stop()

	// =========================================================================
	// Services

	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService()
	} else {
		mailSvc = emailsvc.NewSendgridService(logger)
	}

	stuSvc := student.NewService(students, parents, mailSvc, logger)
	paySvc := payment.NewService(payments, stuSvc, logger)
	stuSvc.BindPayments(paySvc)
	attSvc := attendance.NewService(attendanceRecs, logger)
	gradeSvc := grade.NewService(grades, stuSvc, logger)
	libSvc := library.NewService(videos, books, resources, logger)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(echoapi.ServerDeps{
		Logger:        logger,
		Coordinator:   co,
		StudentSvc:    stuSvc,
		AttendanceSvc: attSvc,
		GradeSvc:      gradeSvc,
		PaymentSvc:    paySvc,
		LibrarySvc:    libSvc,
	})

	go server.Start()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}
