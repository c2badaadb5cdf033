package main

import (
	"errors"
	"flag"
	"fmt"
	"syscall"

	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/bebohany644546654/physica/core"
	"github.com/bebohany644546654/physica/core/student"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db     *sqlx.DB
	stuSvc *student.Service
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  addstudent -name NAME -phone PHONE -parentphone PHONE [-group GROUP] [-grade first|second|third] [-email EMAIL] - register a student")
	fmt.Println("  resetpassword -code CODE - reset a student's password (prompted next)")
	fmt.Println("  createdb - create the database and run migrations")
	fmt.Println("  migrate COMMAND [args] - run a goose migration command")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addStudentCmd := flag.NewFlagSet("addstudent", flag.ExitOnError)
	addStudentName := addStudentCmd.String("name", "", "The student's full name.")
	addStudentPhone := addStudentCmd.String("phone", "", "The student's phone number.")
	addStudentParentPhone := addStudentCmd.String("parentphone", "", "The guardian's phone number.")
	addStudentGroup := addStudentCmd.String("group", "", "The student's class group.")
	addStudentGrade := addStudentCmd.String("grade", string(core.GradeFirst), "The student's grade: first|second|third.")
	addStudentEmail := addStudentCmd.String("email", "", "The student's email (optional).")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ExitOnError)
	resetPasswordCode := resetPasswordCmd.String("code", "", "The student's login code. The password will be prompted next.")

	switch args[1] {
	case "addstudent":
		if err := addStudentCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addStudentName == "" || *addStudentPhone == "" || *addStudentParentPhone == "" {
			addStudentCmd.Usage()
			return errHelp
		}
		return cli.addStudent(
			*addStudentName, *addStudentPhone, *addStudentParentPhone,
			*addStudentGroup, *addStudentGrade, *addStudentEmail,
		)
	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordCode == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		fmt.Print("Enter password:")
		pwd, err := readPasswordFunc(syscall.Stdin)
		fmt.Println()
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordCode, string(pwd))
	case "createdb":
		return cli.createDB()
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	default:
		cli.printUsage()
		return errHelp
	}
}
