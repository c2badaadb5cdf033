package payment

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/bebohany644546654/physica/core"
)

// Collection name in the sync layer.
const Collection = "payments"

// Status of a student's tuition account relative to the months elapsed
// since enrollment.
type Status string

const (
	StatusBehind  Status = "behind"
	StatusCurrent Status = "current"
	StatusAhead   Status = "paid ahead"
)

// Payment is the running tuition account of one student: a single
// record per student, accumulated on every payment rather than one row
// per transaction. The student fields mirror the student record and are
// refreshed when the student is edited.
type Payment struct {
	ID          string          `json:"id"`
	StudentID   string          `json:"studentId"`
	StudentName string          `json:"studentName"`
	StudentCode string          `json:"studentCode"`
	Group       string          `json:"group"`
	Grade       core.GradeLevel `json:"grade"`
	// MonthlyFee is frozen at enrollment so a fee change never
	// rewrites existing accounts.
	MonthlyFee  int             `json:"monthlyFee"`
	PaidMonths  int             `json:"paidMonths"`
	TotalPaid   int             `json:"totalPaid"`
	LastPayment null.Time       `json:"lastPayment,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"` // UTC, start of the billing clock
	UpdatedAt   time.Time       `json:"updatedAt"` // UTC
}

func (p Payment) EntityID() string { return p.ID }

// MonthsDue counts calendar months since enrollment, inclusive of the
// current one, as of now.
func (p Payment) MonthsDue(now time.Time) int {
	start, at := p.CreatedAt.UTC(), now.UTC()
	months := (at.Year()-start.Year())*12 + int(at.Month()) - int(start.Month()) + 1
	if months < 1 {
		months = 1
	}
	return months
}

// StatusAt compares paid months against months due.
func (p Payment) StatusAt(now time.Time) Status {
	switch due := p.MonthsDue(now); {
	case p.PaidMonths < due:
		return StatusBehind
	case p.PaidMonths == due:
		return StatusCurrent
	default:
		return StatusAhead
	}
}
