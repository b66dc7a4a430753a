package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"syscall"

	"golang.org/x/term"

	"github.com/tabunganku/backend/core/profile"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db          *sql.DB
	profileRepo profile.Repository
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  createadmin -email EMAIL -name \"FULL NAME\" - create the admin account, or refresh it if one exists")
	fmt.Println("  resetpassword -email EMAIL - reset an account's password")
	fmt.Println("  migrate COMMAND [args...] - run database migrations; COMMAND is any goose command (up, down, status, ...)")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	createAdminCmd := flag.NewFlagSet("createadmin", flag.ExitOnError)
	createAdminEmail := createAdminCmd.String("email", "", "The admin's email. The password will be prompted next.")
	createAdminName := createAdminCmd.String("name", "", "The admin's full name.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ExitOnError)
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The account's email. The password will be prompted next.")

	switch args[1] {
	case "createadmin":
		if err := createAdminCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *createAdminEmail == "" || *createAdminName == "" {
			createAdminCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			createAdminCmd.Usage()
			return errHelp
		}
		return cli.createAdmin(*createAdminEmail, *createAdminName, pwd)

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordEmail == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordEmail, pwd)

	case "migrate":
		return cli.migrate(args[2:])

	default:
		cli.printUsage()
		return errHelp
	}
}

func promptPassword() (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(syscall.Stdin)
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}
