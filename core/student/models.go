package student

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/bebohany644546654/physica/core"
)

// Collection names in the sync layer.
const (
	Collection       = "students"
	ParentCollection = "parents"
)

const (
	CodeLength     = 6
	passwordLength = 8
)

type Student struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Phone       string          `json:"phone"`
	ParentPhone string          `json:"parentPhone"`
	Email       string          `json:"email,omitempty"`
	Group       string          `json:"group"`
	Grade       core.GradeLevel `json:"grade"`
	// Code is the unique 6-digit numeric login code printed on the
	// student's QR card.
	Code         string    `json:"code"`
	PasswordHash []byte    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"` // UTC
	UpdatedAt    time.Time `json:"updatedAt"` // UTC
}

func (s Student) EntityID() string { return s.ID }

func (s *Student) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	s.PasswordHash = hash
	return nil
}

func (s *Student) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(s.PasswordHash, []byte(pwd))
}

// Parent is a guardian account tied to a student by code value, not by
// reference. StudentName is a write-time copy.
type Parent struct {
	ID           string    `json:"id"`
	Phone        string    `json:"phone"`
	Email        string    `json:"email,omitempty"`
	StudentCode  string    `json:"studentCode"`
	StudentName  string    `json:"studentName"`
	PasswordHash []byte    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"` // UTC
}

func (p Parent) EntityID() string { return p.ID }

func (p *Parent) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	p.PasswordHash = hash
	return nil
}

func (p *Parent) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(p.PasswordHash, []byte(pwd))
}

// NewStudent contains information needed to register a new Student.
// Code and password are generated, not supplied.
type NewStudent struct {
	Name        string          `json:"name" validate:"required"`
	Phone       string          `json:"phone" validate:"required,phone"`
	ParentPhone string          `json:"parent_phone" validate:"required,phone"`
	Email       string          `json:"email" validate:"omitempty,email"`
	Group       string          `json:"group"`
	Grade       core.GradeLevel `json:"grade" validate:"required,gradelevel"`
}

func (ns *NewStudent) Validate() error {
	ns.Name = core.CleanString(ns.Name)
	ns.Phone = core.CleanString(ns.Phone)
	ns.ParentPhone = core.CleanString(ns.ParentPhone)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	ns.Group = core.CleanString(ns.Group)
	return core.Validate.Struct(ns)
}

// UpdateStudent defines what information may be provided to modify an
// existing Student. Empty fields keep their current value.
type UpdateStudent struct {
	Name        string          `json:"name"`
	Phone       string          `json:"phone" validate:"omitempty,phone"`
	ParentPhone string          `json:"parent_phone" validate:"omitempty,phone"`
	Email       string          `json:"email" validate:"omitempty,email"`
	Group       string          `json:"group"`
	Grade       core.GradeLevel `json:"grade" validate:"omitempty,gradelevel"`
	Password    string          `json:"password" validate:"omitempty"`
}

func (us *UpdateStudent) Validate(orig Student) error {
	if name := core.CleanString(us.Name); name != "" {
		us.Name = name
	} else {
		us.Name = orig.Name
	}
	if phone := core.CleanString(us.Phone); phone != "" {
		us.Phone = phone
	} else {
		us.Phone = orig.Phone
	}
	if pphone := core.CleanString(us.ParentPhone); pphone != "" {
		us.ParentPhone = pphone
	} else {
		us.ParentPhone = orig.ParentPhone
	}
	if email := core.CleanString(us.Email, true /* lower */); email != "" {
		us.Email = email
	}
	if us.Group == "" {
		us.Group = orig.Group
	}
	if us.Grade == "" {
		us.Grade = orig.Grade
	}
	return core.Validate.Struct(us)
}

// NewParent contains information needed to register a guardian account.
// The student code must reference an existing Student at creation time.
type NewParent struct {
	Phone       string `json:"phone" validate:"required,phone"`
	Email       string `json:"email" validate:"omitempty,email"`
	StudentCode string `json:"student_code" validate:"required,len=6,numeric"`
}

func (np *NewParent) Validate() error {
	np.Phone = core.CleanString(np.Phone)
	np.Email = core.CleanString(np.Email, true /* lower */)
	np.StudentCode = core.CleanString(np.StudentCode)
	return core.Validate.Struct(np)
}
