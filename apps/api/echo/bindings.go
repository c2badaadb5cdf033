package echoapi

import (
	"github.com/bebohany644546654/physica/core"
	"github.com/bebohany644546654/physica/core/student"
)

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (lr *LoginRequest) Validate() error {
	lr.Username = core.CleanString(lr.Username)
	return core.Validate.Struct(lr)
}

type LoginResponse struct {
	Token string `json:"token"`
}

// CreatedAccountResponse carries the generated plaintext password; it
// is shown exactly once, at creation.
type CreatedAccountResponse struct {
	Student  *student.Student `json:"student,omitempty"`
	Parent   *student.Parent  `json:"parent,omitempty"`
	Password string           `json:"password"`
}

type AttendanceRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	Status    string `json:"status" validate:"required,oneof=present absent"`
}

func (ar *AttendanceRequest) Validate() error {
	ar.StudentID = core.CleanString(ar.StudentID)
	ar.Status = core.CleanString(ar.Status, true /* lower */)
	return core.Validate.Struct(ar)
}

type PaymentRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	Months    int    `json:"months" validate:"required,gte=1"`
}

func (pr *PaymentRequest) Validate() error {
	pr.StudentID = core.CleanString(pr.StudentID)
	return core.Validate.Struct(pr)
}
