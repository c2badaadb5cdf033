package main

import (
	"log"
	"os"

	"github.com/bebohany644546654/physica/core"
	"github.com/bebohany644546654/physica/core/student"
	localstore "github.com/bebohany644546654/physica/storage/local"
	remotestore "github.com/bebohany644546654/physica/storage/remote"
	"github.com/bebohany644546654/physica/sync"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	conf := core.Conf

	// set up the document store
	db, err := remotestore.Open(conf)
	errAndDie(err)
	defer db.Close()

	remote := remotestore.NewPgStore(db, conf.Sync.PollInterval, core.NopLogger{})
	monitor := remotestore.NewPingMonitor(db, conf.Sync.PingInterval)
	local, err := localstore.NewFileStore(conf.Sync.DataDir)
	errAndDie(err)

	co := sync.NewCoordinator(local, remote, monitor, core.NopLogger{})
	students := sync.Register[student.Student](co, student.Collection)
	parents := sync.Register[student.Parent](co, student.ParentCollection)
	co.Start()
	defer co.Stop()

	// start CLI
	cli := commandLine{
		db:     db,
		stuSvc: student.NewService(students, parents, nil, core.NopLogger{}),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
