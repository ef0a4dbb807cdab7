package main

import (
	"errors"
	"flag"
	"fmt"
	"syscall"

	"golang.org/x/term"
	"gorm.io/gorm"

	"github.com/shuleapp/shule/core"
	"github.com/shuleapp/shule/core/distribution"
	"github.com/shuleapp/shule/core/reminder"
	"github.com/shuleapp/shule/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db        *gorm.DB
	usrRepo   user.Repository
	usrSvc    *user.Service
	engine    *distribution.Engine
	scheduler *reminder.Scheduler
	clock     core.Clock
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate - apply database migrations")
	fmt.Println("  createadmin -username USERNAME -email EMAIL - create or update an admin account; the password is prompted next")
	fmt.Println("  repair - back-fill missed assignment notifications")
	fmt.Println("  remind - run the deadline reminder sweep once")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	createAdminCmd := flag.NewFlagSet("createadmin", flag.ExitOnError)
	createAdminUname := createAdminCmd.String("username", "", "The admin's username.")
	createAdminEmail := createAdminCmd.String("email", "", "The admin's email.")

	switch args[1] {
	case "migrate":
		return cli.migrate()
	case "createadmin":
		if err := createAdminCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *createAdminUname == "" || *createAdminEmail == "" {
			createAdminCmd.Usage()
			return errHelp
		}
		fmt.Print("Enter password:")
		pwd, err := readPasswordFunc(syscall.Stdin)
		fmt.Println()
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			createAdminCmd.Usage()
			return errHelp
		}
		return cli.createAdmin(*createAdminUname, *createAdminEmail, string(pwd))
	case "repair":
		return cli.repair()
	case "remind":
		return cli.remind()
	default:
		cli.printUsage()
		return errHelp
	}
}
