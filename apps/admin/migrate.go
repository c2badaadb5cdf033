package main

import (
	"github.com/trezcool/goose"

	"github.com/bebohany644546654/physica/core"
	appfs "github.com/bebohany644546654/physica/fs"
	remotestore "github.com/bebohany644546654/physica/storage/remote"
)

var gooseRunFunc = goose.RunFS // mockable

func (cli *commandLine) migrate(args []string) error {
	arguments := make([]string, 0)
	if len(args) > 1 {
		arguments = append(arguments, args[1:]...)
	}
	return gooseRunFunc(args[0], cli.db.DB, appfs.FS, "migrations", arguments...)
}

func (cli *commandLine) createDB() error {
	if err := remotestore.CreateIfNotExist(core.Conf); err != nil {
		return err
	}
	return remotestore.Migrate(cli.db)
}
