package main

import (
	"github.com/pressly/goose/v3"

	appfs "github.com/tabunganku/backend/fs"
)

var gooseRunFunc = goose.Run // mockable

func (cli *commandLine) migrate(args []string) error {
	if len(args) == 0 {
		cli.printUsage()
		return errHelp
	}
	goose.SetBaseFS(appfs.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return gooseRunFunc(args[0], cli.db, "migrations", args[1:]...)
}
