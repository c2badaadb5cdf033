package main

import (
	"fmt"

	"github.com/bebohany644546654/physica/core"
	"github.com/bebohany644546654/physica/core/student"
)

// addStudent registers a student and prints the generated login code
// and password, the only time the password is visible.
func (cli *commandLine) addStudent(name, phone, parentPhone, group, grade, email string) error {
	stu, pwd, err := cli.stuSvc.Create(student.NewStudent{
		Name:        name,
		Phone:       phone,
		ParentPhone: parentPhone,
		Email:       email,
		Group:       group,
		Grade:       core.GradeLevel(grade),
	})
	if err != nil {
		return err
	}
	fmt.Printf("student created\n  code: %s\n  password: %s\n", stu.Code, pwd)
	return nil
}
