package attendance

import (
	"errors"
	"testing"
	"time"

	"github.com/bebohany644546654/physica/core"
	"github.com/bebohany644546654/physica/sync"
	testutil "github.com/bebohany644546654/physica/tests"
)

func newTestService(t *testing.T) (*Service, *sync.Collection[Record]) {
	t.Helper()
	co, _, _ := testutil.SyncEnv(t, false /* offline */)
	records := sync.Register[Record](co, Collection)
	return NewService(records, core.NopLogger{}), records
}

func TestServiceAdd(t *testing.T) {
	svc, _ := newTestService(t)

	nowFunc = func() time.Time {
		return time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)
	}
	defer func() { nowFunc = time.Now }()

	rec, err := svc.Add("stu1", "Sara Adel", StatusPresent)
	if err != nil {
		t.Fatalf("Add() failed: %v", err)
	}
	if rec.ID == "" {
		t.Error("Add() did not assign an id")
	}
	if rec.LessonNumber != 1 {
		t.Errorf("LessonNumber = %d; want 1", rec.LessonNumber)
	}
	if rec.Date != "2026-03-14" || rec.Time != "15:09:26" {
		t.Errorf("timestamp = %s %s; want 2026-03-14 15:09:26", rec.Date, rec.Time)
	}

	// lesson numbering counts per student and clamps at the cycle length
	for i := 2; i <= 12; i++ {
		rec, err = svc.Add("stu1", "Sara Adel", StatusAbsent)
		if err != nil {
			t.Fatalf("Add() #%d failed: %v", i, err)
		}
		want := i
		if want > core.Conf.MaxLessonsPerCycle {
			want = core.Conf.MaxLessonsPerCycle
		}
		if rec.LessonNumber != want {
			t.Errorf("Add() #%d LessonNumber = %d; want %d", i, rec.LessonNumber, want)
		}
	}

	// another student starts a fresh count
	rec, err = svc.Add("stu2", "Omar Tarek", StatusPresent)
	if err != nil {
		t.Fatalf("Add() failed: %v", err)
	}
	if rec.LessonNumber != 1 {
		t.Errorf("LessonNumber = %d; want 1", rec.LessonNumber)
	}
}

func TestServiceAddValidation(t *testing.T) {
	svc, _ := newTestService(t)

	tests := []struct {
		name      string
		studentID string
		stuName   string
		status    Status
		wantField string
	}{
		{name: "missing student id", stuName: "Sara", status: StatusPresent, wantField: "student_id"},
		{name: "missing student name", studentID: "stu1", status: StatusPresent, wantField: "student_name"},
		{name: "bad status", studentID: "stu1", stuName: "Sara", status: "late", wantField: "status"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Add(tt.studentID, tt.stuName, tt.status)
			var vErr *core.ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("Add() error = %v; want ValidationError", err)
			}
			var found bool
			for _, fe := range vErr.Fields {
				if fe.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("Add() errors %v miss field %q", vErr.Fields, tt.wantField)
			}
		})
	}
}

func TestServiceByStudentAndDelete(t *testing.T) {
	svc, _ := newTestService(t)

	r1, _ := svc.Add("stu1", "Sara Adel", StatusPresent)
	svc.Add("stu2", "Omar Tarek", StatusAbsent)
	svc.Add("stu1", "Sara Adel", StatusAbsent)

	if got := svc.ByStudent("stu1"); len(got) != 2 {
		t.Errorf("ByStudent() returned %d records; want 2", len(got))
	}
	if got := svc.LessonCount("stu2"); got != 1 {
		t.Errorf("LessonCount() = %d; want 1", got)
	}

	if err := svc.Delete(r1.ID); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if err := svc.Delete(r1.ID); err != ErrNotFound {
		t.Errorf("Delete() error = %v; want ErrNotFound", err)
	}
	if got := svc.LessonCount("stu1"); got != 1 {
		t.Errorf("LessonCount() after delete = %d; want 1", got)
	}
	if len(svc.QueryAll()) != 2 {
		t.Errorf("QueryAll() = %d records; want 2", len(svc.QueryAll()))
	}
}
