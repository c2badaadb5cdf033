package main

import (
	"github.com/bebohany644546654/physica/core/student"
)

func (cli *commandLine) resetPassword(code, pwd string) error {
	stu, err := cli.stuSvc.GetByCode(code)
	if err != nil {
		return err
	}
	_, err = cli.stuSvc.Update(stu.ID, student.UpdateStudent{Password: pwd})
	return err
}
