package payment

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/bebohany644546654/physica/core"
	"github.com/bebohany644546654/physica/core/student"
	"github.com/bebohany644546654/physica/sync"
)

var ErrNotFound = errors.New("payment record not found")

// nowFunc is swapped in tests.
var nowFunc = time.Now

// StudentFinder resolves the student a payment is booked against.
type StudentFinder interface {
	GetByID(id string) (student.Student, error)
}

type Service struct {
	payments   *sync.Collection[Payment]
	students   StudentFinder
	monthlyFee int
	log        core.Logger
}

var _ student.PaymentSyncer = (*Service)(nil)

func NewService(payments *sync.Collection[Payment], students StudentFinder, log core.Logger) *Service {
	return &Service{
		payments:   payments,
		students:   students,
		monthlyFee: core.Conf.MonthlyFee,
		log:        log,
	}
}

// Add books a payment of the given number of months onto the student's
// account, creating the account on first payment.
func (svc *Service) Add(studentID string, months int) (Payment, error) {
	if months < 1 {
		return Payment{}, core.NewValidationError(errors.New("invalid payment"),
			core.FieldError{Field: "months", Error: "months must be at least 1"})
	}
	stu, err := svc.students.GetByID(studentID)
	if err != nil {
		return Payment{}, core.NewValidationError(err,
			core.FieldError{Field: "student_id", Error: student.ErrNotFound.Error()})
	}

	now := nowFunc().UTC()
	p, found := svc.forStudent(stu.ID)
	if !found {
		p = Payment{
			ID:          uuid.New().String(),
			StudentID:   stu.ID,
			StudentName: stu.Name,
			StudentCode: stu.Code,
			Group:       stu.Group,
			Grade:       stu.Grade,
			MonthlyFee:  svc.monthlyFee,
			CreatedAt:   now,
		}
	}
	p.PaidMonths += months
	p.TotalPaid = p.PaidMonths * p.MonthlyFee
	p.LastPayment = null.TimeFrom(now)
	p.UpdatedAt = now

	err = svc.payments.Upsert(p)
	if err != nil && !sync.IsLocalPersist(err) {
		return Payment{}, err
	}
	return p, err
}

func (svc *Service) ForStudent(studentID string) (Payment, error) {
	if p, found := svc.forStudent(studentID); found {
		return p, nil
	}
	return Payment{}, ErrNotFound
}

func (svc *Service) QueryAll() []Payment {
	return svc.payments.All()
}

// Status of the student's account as of today.
func (svc *Service) Status(studentID string) (Status, error) {
	p, found := svc.forStudent(studentID)
	if !found {
		return "", ErrNotFound
	}
	return p.StatusAt(nowFunc()), nil
}

// RefreshStudent re-copies the student's identity fields onto their
// payment record after a student edit. No account is a no-op.
func (svc *Service) RefreshStudent(stu student.Student) error {
	p, found := svc.forStudent(stu.ID)
	if !found {
		return nil
	}
	p.StudentName = stu.Name
	p.Group = stu.Group
	p.Grade = stu.Grade
	p.UpdatedAt = nowFunc().UTC()

	err := svc.payments.Upsert(p)
	if err != nil && !sync.IsLocalPersist(err) {
		return err
	}
	return err
}

// RemoveForStudent drops the account when its student is deleted.
func (svc *Service) RemoveForStudent(studentID string) error {
	p, found := svc.forStudent(studentID)
	if !found {
		return nil
	}
	err := svc.payments.Delete(p.ID)
	if err != nil && !sync.IsLocalPersist(err) {
		return err
	}
	return err
}

func (svc *Service) forStudent(studentID string) (Payment, bool) {
	recs := svc.payments.Filter(func(p Payment) bool { return p.StudentID == studentID })
	if len(recs) == 0 {
		return Payment{}, false
	}
	return recs[0], true
}
