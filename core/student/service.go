package student

import (
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"

	"github.com/bebohany644546654/physica/core"
	"github.com/bebohany644546654/physica/sync"
)

var (
	// errors
	ErrNotFound        = errors.New("student not found")
	ErrParentNotFound  = errors.New("parent not found")
	ErrUnknownCode     = errors.New("no student with this code")
	ErrPhoneExists     = errors.New("a parent with this phone already exists")
	ErrInvalidPassword = errors.New("invalid credentials")
)

// PaymentSyncer lets the student service keep payment records in step
// with student identity changes without importing the payment package.
type PaymentSyncer interface {
	RefreshStudent(stu Student) error
	RemoveForStudent(studentID string) error
}

type Service struct {
	students *sync.Collection[Student]
	parents  *sync.Collection[Parent]
	payments PaymentSyncer
	mailSvc  core.EmailService
	log      core.Logger
}

func NewService(
	students *sync.Collection[Student],
	parents *sync.Collection[Parent],
	mailSvc core.EmailService,
	log core.Logger,
) *Service {
	return &Service{
		students: students,
		parents:  parents,
		mailSvc:  mailSvc,
		log:      log,
	}
}

// BindPayments is wired after construction; student and payment
// services reference each other.
func (svc *Service) BindPayments(ps PaymentSyncer) { svc.payments = ps }

// Create registers a student with a generated unique login code and
// password. The plaintext password is returned exactly once.
func (svc *Service) Create(ns NewStudent) (Student, string, error) {
	if err := ns.Validate(); err != nil {
		return Student{}, "", err
	}

	code, err := svc.generateCode()
	if err != nil {
		return Student{}, "", err
	}
	pwd := core.RandomPassword(passwordLength)

	now := time.Now().UTC()
	stu := Student{
		ID:          uuid.New().String(),
		Name:        ns.Name,
		Phone:       ns.Phone,
		ParentPhone: ns.ParentPhone,
		Email:       ns.Email,
		Group:       ns.Group,
		Grade:       ns.Grade,
		Code:        code,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := stu.SetPassword(pwd); err != nil {
		return Student{}, "", err
	}

	err = svc.students.Upsert(stu)
	if err != nil && !sync.IsLocalPersist(err) {
		return Student{}, "", err
	}
	svc.sendWelcomeMail(stu.Name, stu.Email, code, pwd)
	return stu, pwd, err
}

// Update merges the set fields and propagates identity changes onto the
// student's payment record. Historical attendance and grade rows keep
// their write-time name snapshot.
func (svc *Service) Update(id string, us UpdateStudent) (Student, error) {
	stu, ok := svc.students.Get(id)
	if !ok {
		return Student{}, ErrNotFound
	}
	if err := us.Validate(stu); err != nil {
		return Student{}, err
	}

	stu.Name = us.Name
	stu.Phone = us.Phone
	stu.ParentPhone = us.ParentPhone
	if us.Email != "" {
		stu.Email = us.Email
	}
	stu.Group = us.Group
	stu.Grade = us.Grade
	if us.Password != "" {
		if err := stu.SetPassword(us.Password); err != nil {
			return Student{}, err
		}
	}
	stu.UpdatedAt = time.Now().UTC()

	err := svc.students.Upsert(stu)
	if err != nil && !sync.IsLocalPersist(err) {
		return Student{}, err
	}
	if svc.payments != nil {
		if rErr := svc.payments.RefreshStudent(stu); rErr != nil && !sync.IsLocalPersist(rErr) {
			svc.log.Warn("refreshing payment record after student edit",
				map[string]interface{}{"student": stu.ID, "error": rErr.Error()})
		}
	}
	return stu, err
}

// Delete removes the student and cascades to their payment record.
// Parent accounts referencing the code are left dangling on purpose:
// they keep read access to historical data until an admin removes them.
func (svc *Service) Delete(id string) error {
	if _, ok := svc.students.Get(id); !ok {
		return ErrNotFound
	}
	if err := svc.students.Delete(id); err != nil && !sync.IsLocalPersist(err) {
		return err
	}
	if svc.payments != nil {
		if err := svc.payments.RemoveForStudent(id); err != nil && !sync.IsLocalPersist(err) {
			return err
		}
	}
	return nil
}

func (svc *Service) GetByID(id string) (Student, error) {
	if stu, ok := svc.students.Get(id); ok {
		return stu, nil
	}
	return Student{}, ErrNotFound
}

func (svc *Service) GetByCode(code string) (Student, error) {
	code = core.CleanString(code)
	for _, stu := range svc.students.All() {
		if stu.Code == code {
			return stu, nil
		}
	}
	return Student{}, ErrUnknownCode
}

func (svc *Service) QueryAll() []Student {
	return svc.students.All()
}

func (svc *Service) FilterByGrade(grade core.GradeLevel) []Student {
	return svc.students.Filter(func(s Student) bool { return s.Grade == grade })
}

func (svc *Service) FilterByGroup(group string) []Student {
	return svc.students.Filter(func(s Student) bool { return s.Group == group })
}

// AuthenticateStudent logs a student in by code + password.
func (svc *Service) AuthenticateStudent(code, pwd string) (Student, error) {
	stu, err := svc.GetByCode(code)
	if err != nil {
		return Student{}, ErrInvalidPassword
	}
	if err := stu.CheckPassword(pwd); err != nil {
		return Student{}, ErrInvalidPassword
	}
	return stu, nil
}

// AuthenticateParent logs a guardian in by phone + password.
func (svc *Service) AuthenticateParent(phone, pwd string) (Parent, error) {
	par, err := svc.GetParentByPhone(phone)
	if err != nil {
		return Parent{}, ErrInvalidPassword
	}
	if err := par.CheckPassword(pwd); err != nil {
		return Parent{}, ErrInvalidPassword
	}
	return par, nil
}

// CreateParent registers a guardian account. The student code must
// reference an existing student; the student's name is copied onto the
// parent record at write time.
func (svc *Service) CreateParent(np NewParent) (Parent, string, error) {
	if err := np.Validate(); err != nil {
		return Parent{}, "", err
	}

	stu, err := svc.GetByCode(np.StudentCode)
	if err != nil {
		return Parent{}, "", core.NewValidationError(err,
			core.FieldError{Field: "student_code", Error: ErrUnknownCode.Error()})
	}
	if _, err := svc.GetParentByPhone(np.Phone); err == nil {
		return Parent{}, "", core.NewValidationError(ErrPhoneExists,
			core.FieldError{Field: "phone", Error: ErrPhoneExists.Error()})
	}

	pwd := core.RandomPassword(passwordLength)
	par := Parent{
		ID:          uuid.New().String(),
		Phone:       np.Phone,
		Email:       np.Email,
		StudentCode: np.StudentCode,
		StudentName: stu.Name,
		CreatedAt:   time.Now().UTC(),
	}
	if err := par.SetPassword(pwd); err != nil {
		return Parent{}, "", err
	}

	err = svc.parents.Upsert(par)
	if err != nil && !sync.IsLocalPersist(err) {
		return Parent{}, "", err
	}
	svc.sendWelcomeMail("guardian of "+stu.Name, par.Email, np.StudentCode, pwd)
	return par, pwd, err
}

func (svc *Service) GetParentByPhone(phone string) (Parent, error) {
	phone = core.CleanString(phone)
	for _, par := range svc.parents.All() {
		if par.Phone == phone {
			return par, nil
		}
	}
	return Parent{}, ErrParentNotFound
}

func (svc *Service) QueryAllParents() []Parent {
	return svc.parents.All()
}

func (svc *Service) DeleteParent(id string) error {
	if _, ok := svc.parents.Get(id); !ok {
		return ErrParentNotFound
	}
	err := svc.parents.Delete(id)
	if err != nil && !sync.IsLocalPersist(err) {
		return err
	}
	return err
}

func (svc *Service) generateCode() (string, error) {
	for i := 0; i < 100; i++ {
		code := core.RandomCode(CodeLength)
		if _, err := svc.GetByCode(code); err == ErrUnknownCode {
			return code, nil
		}
	}
	return "", errors.New("could not generate a unique student code")
}

func (svc *Service) sendWelcomeMail(name, email, code, pwd string) {
	if email == "" || svc.mailSvc == nil {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: name, Address: email}},
		Subject: "Your login details",
		TextContent: fmt.Sprintf(
			"Welcome to %s!\n\nLogin code: %s\nPassword: %s\n\nKeep these safe.",
			core.Conf.AppName, code, pwd),
	})
}
