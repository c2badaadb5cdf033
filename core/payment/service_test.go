package payment

import (
	"errors"
	"testing"
	"time"

	"github.com/bebohany644546654/physica/core"
	"github.com/bebohany644546654/physica/core/student"
	"github.com/bebohany644546654/physica/sync"
	testutil "github.com/bebohany644546654/physica/tests"
)

type fakeFinder map[string]student.Student

func (f fakeFinder) GetByID(id string) (student.Student, error) {
	if stu, ok := f[id]; ok {
		return stu, nil
	}
	return student.Student{}, student.ErrNotFound
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	co, _, _ := testutil.SyncEnv(t, false /* offline */)
	payments := sync.Register[Payment](co, Collection)
	finder := fakeFinder{
		"stu1": {ID: "stu1", Name: "Sara Adel", Group: "saturday"},
	}
	return NewService(payments, finder, core.NopLogger{})
}

func TestServiceAdd(t *testing.T) {
	svc := newTestService(t)

	enrolled := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	nowFunc = func() time.Time { return enrolled }
	defer func() { nowFunc = time.Now }()

	p, err := svc.Add("stu1", 1)
	if err != nil {
		t.Fatalf("Add() failed: %v", err)
	}
	if p.PaidMonths != 1 || p.TotalPaid != core.Conf.MonthlyFee {
		t.Errorf("Add() = %d months / %d paid; want 1 / %d", p.PaidMonths, p.TotalPaid, core.Conf.MonthlyFee)
	}
	if !p.LastPayment.Valid || !p.LastPayment.Time.Equal(enrolled) {
		t.Errorf("LastPayment = %+v; want %s", p.LastPayment, enrolled)
	}

	// paying again accumulates onto the same account
	p, err = svc.Add("stu1", 2)
	if err != nil {
		t.Fatalf("Add() failed: %v", err)
	}
	if p.PaidMonths != 3 || p.TotalPaid != 3*core.Conf.MonthlyFee {
		t.Errorf("Add() = %d months / %d paid; want 3 / %d", p.PaidMonths, p.TotalPaid, 3*core.Conf.MonthlyFee)
	}
	if got := svc.QueryAll(); len(got) != 1 {
		t.Fatalf("QueryAll() = %d records; want 1", len(got))
	}

	if _, err = svc.Add("stu1", 0); err == nil {
		t.Error("Add() accepted 0 months")
	}
	var vErr *core.ValidationError
	if _, err = svc.Add("nope", 1); !errors.As(err, &vErr) {
		t.Errorf("Add() error = %v; want ValidationError on unknown student", err)
	}
}

func TestStatus(t *testing.T) {
	svc := newTestService(t)

	enrolled := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	nowFunc = func() time.Time { return enrolled }
	defer func() { nowFunc = time.Now }()

	if _, err := svc.Status("stu1"); err != ErrNotFound {
		t.Fatalf("Status() error = %v; want ErrNotFound", err)
	}

	if _, err := svc.Add("stu1", 2); err != nil {
		t.Fatalf("Add() failed: %v", err)
	}

	tests := []struct {
		name string
		now  time.Time
		want Status
	}{
		{name: "ahead in first month", now: enrolled, want: StatusAhead},
		{name: "current in second month", now: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), want: StatusCurrent},
		{name: "behind in third month", now: time.Date(2026, 3, 28, 0, 0, 0, 0, time.UTC), want: StatusBehind},
		{name: "behind across a year boundary", now: time.Date(2027, 1, 5, 0, 0, 0, 0, time.UTC), want: StatusBehind},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nowFunc = func() time.Time { return tt.now }
			got, err := svc.Status("stu1")
			if err != nil {
				t.Fatalf("Status() failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Status() = %s; want %s", got, tt.want)
			}
		})
	}
}

func TestRefreshAndRemove(t *testing.T) {
	svc := newTestService(t)

	if _, err := svc.Add("stu1", 1); err != nil {
		t.Fatalf("Add() failed: %v", err)
	}

	err := svc.RefreshStudent(student.Student{ID: "stu1", Name: "Sara A.", Group: "sunday"})
	if err != nil {
		t.Fatalf("RefreshStudent() failed: %v", err)
	}
	p, err := svc.ForStudent("stu1")
	if err != nil {
		t.Fatalf("ForStudent() failed: %v", err)
	}
	if p.StudentName != "Sara A." || p.Group != "sunday" {
		t.Errorf("RefreshStudent() left %q/%q; want Sara A./sunday", p.StudentName, p.Group)
	}
	if p.PaidMonths != 1 {
		t.Errorf("RefreshStudent() changed PaidMonths to %d", p.PaidMonths)
	}

	// refresh and remove tolerate students with no account
	if err = svc.RefreshStudent(student.Student{ID: "ghost"}); err != nil {
		t.Errorf("RefreshStudent() on no account failed: %v", err)
	}
	if err = svc.RemoveForStudent("ghost"); err != nil {
		t.Errorf("RemoveForStudent() on no account failed: %v", err)
	}

	if err = svc.RemoveForStudent("stu1"); err != nil {
		t.Fatalf("RemoveForStudent() failed: %v", err)
	}
	if _, err = svc.ForStudent("stu1"); err != ErrNotFound {
		t.Errorf("ForStudent() after remove error = %v; want ErrNotFound", err)
	}
}
