package grade

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

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
	grades := sync.Register[Grade](co, Collection)
	finder := fakeFinder{
		"stu1": {ID: "stu1", Name: "Sara Adel", Group: "saturday"},
	}
	return NewService(grades, finder, core.NopLogger{})
}

func TestPerformance(t *testing.T) {
	tests := []struct {
		name  string
		score float64
		total float64
		want  Performance
	}{
		{name: "full marks", score: 30, total: 30, want: PerformanceExcellent},
		{name: "excellent boundary", score: 85, total: 100, want: PerformanceExcellent},
		{name: "good", score: 84, total: 100, want: PerformanceGood},
		{name: "good boundary", score: 70, total: 100, want: PerformanceGood},
		{name: "average", score: 69, total: 100, want: PerformanceAverage},
		{name: "average boundary", score: 15, total: 30, want: PerformanceAverage},
		{name: "poor", score: 49, total: 100, want: PerformancePoor},
		{name: "zero", score: 0, total: 100, want: PerformancePoor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := Grade{Score: tt.score, TotalScore: tt.total}
			if got := g.Performance(); got != tt.want {
				t.Errorf("Performance() = %s; want %s", got, tt.want)
			}
		})
	}
}

func TestServiceAdd(t *testing.T) {
	svc := newTestService(t)

	g, err := svc.Add(NewGrade{
		StudentID:    "stu1",
		ExamName:     "Motion Quiz",
		Score:        27,
		TotalScore:   30,
		LessonNumber: 3,
	})
	if err != nil {
		t.Fatalf("Add() failed: %v", err)
	}
	if g.StudentName != "Sara Adel" || g.Group != "saturday" {
		t.Errorf("Add() snapshot = %q/%q; want Sara Adel/saturday", g.StudentName, g.Group)
	}
	if g.Performance() != PerformanceExcellent {
		t.Errorf("Performance() = %s; want excellent", g.Performance())
	}

	tests := []struct {
		name      string
		ng        NewGrade
		wantField string
	}{
		{
			name:      "unknown student",
			ng:        NewGrade{StudentID: "nope", ExamName: "Quiz", Score: 1, TotalScore: 10, LessonNumber: 1},
			wantField: "student_id",
		},
		{
			name:      "score above total",
			ng:        NewGrade{StudentID: "stu1", ExamName: "Quiz", Score: 11, TotalScore: 10, LessonNumber: 1},
			wantField: "score",
		},
		{
			name:      "lesson beyond cycle",
			ng:        NewGrade{StudentID: "stu1", ExamName: "Quiz", Score: 1, TotalScore: 10, LessonNumber: 9},
			wantField: "lesson_number",
		},
		{
			name:      "zero total",
			ng:        NewGrade{StudentID: "stu1", ExamName: "Quiz", Score: 0, TotalScore: 0, LessonNumber: 1},
			wantField: "total_score",
		},
		{
			name:      "duplicate exam for lesson",
			ng:        NewGrade{StudentID: "stu1", ExamName: "Motion Quiz", Score: 20, TotalScore: 30, LessonNumber: 3},
			wantField: "exam_name",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Add(tt.ng)
			assertFieldError(t, err, tt.wantField)
		})
	}

	// same exam on a different lesson is a separate grade
	if _, err := svc.Add(NewGrade{
		StudentID: "stu1", ExamName: "Motion Quiz", Score: 20, TotalScore: 30, LessonNumber: 4,
	}); err != nil {
		t.Errorf("Add() on another lesson failed: %v", err)
	}
}

func TestServiceUpdate(t *testing.T) {
	svc := newTestService(t)

	g, err := svc.Add(NewGrade{
		StudentID: "stu1", ExamName: "Motion Quiz", Score: 12, TotalScore: 30, LessonNumber: 1,
	})
	if err != nil {
		t.Fatalf("Add() failed: %v", err)
	}
	other, err := svc.Add(NewGrade{
		StudentID: "stu1", ExamName: "Optics Quiz", Score: 20, TotalScore: 30, LessonNumber: 1,
	})
	if err != nil {
		t.Fatalf("Add() failed: %v", err)
	}

	got, err := svc.Update(g.ID, UpdateGrade{Score: null.Float64From(25)})
	if err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	if got.Score != 25 || got.TotalScore != 30 || got.ExamName != "Motion Quiz" {
		t.Errorf("Update() merged badly: %+v", got)
	}

	// a re-grade down to zero is a real correction, not "keep current"
	got, err = svc.Update(g.ID, UpdateGrade{Score: null.Float64From(0)})
	if err != nil {
		t.Fatalf("Update() to zero score failed: %v", err)
	}
	if got.Score != 0 || got.TotalScore != 30 {
		t.Errorf("Update() to zero = %v/%v; want 0/30", got.Score, got.TotalScore)
	}

	// an absent score still means "keep current"
	got, err = svc.Update(g.ID, UpdateGrade{LessonNumber: null.IntFrom(2)})
	if err != nil {
		t.Fatalf("Update() lesson only failed: %v", err)
	}
	if got.Score != 0 || got.LessonNumber != 2 {
		t.Errorf("Update() = score %v lesson %d; want 0/2", got.Score, got.LessonNumber)
	}

	_, err = svc.Update(g.ID, UpdateGrade{Score: null.Float64From(-1)})
	assertFieldError(t, err, "score")

	// renaming onto another grade's (exam, lesson) pair is rejected
	_, err = svc.Update(other.ID, UpdateGrade{ExamName: "Motion Quiz", LessonNumber: null.IntFrom(2)})
	assertFieldError(t, err, "exam_name")

	if _, err = svc.Update("nope", UpdateGrade{Score: null.Float64From(1)}); err != ErrNotFound {
		t.Errorf("Update() error = %v; want ErrNotFound", err)
	}
}

func TestServiceQueriesAndDelete(t *testing.T) {
	svc := newTestService(t)

	g1, _ := svc.Add(NewGrade{StudentID: "stu1", ExamName: "Q1", Score: 5, TotalScore: 10, LessonNumber: 1})
	svc.Add(NewGrade{StudentID: "stu1", ExamName: "Q2", Score: 7, TotalScore: 10, LessonNumber: 2})

	if got := svc.ByStudent("stu1"); len(got) != 2 {
		t.Errorf("ByStudent() = %d grades; want 2", len(got))
	}
	if got := svc.ByGroup("saturday"); len(got) != 2 {
		t.Errorf("ByGroup() = %d grades; want 2", len(got))
	}
	if got := svc.ByGroup("sunday"); len(got) != 0 {
		t.Errorf("ByGroup() = %d grades; want 0", len(got))
	}

	if err := svc.Delete(g1.ID); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if err := svc.Delete(g1.ID); err != ErrNotFound {
		t.Errorf("Delete() error = %v; want ErrNotFound", err)
	}
	if _, err := svc.GetByID(g1.ID); err != ErrNotFound {
		t.Errorf("GetByID() error = %v; want ErrNotFound", err)
	}
}

// assertFieldError accepts both business-rule rejections and raw
// struct-tag failures, both keyed by the json field name.
func assertFieldError(t *testing.T, err error, field string) {
	t.Helper()
	var vErr *core.ValidationError
	if errors.As(err, &vErr) {
		for _, fe := range vErr.Fields {
			if fe.Field == field {
				return
			}
		}
		t.Errorf("errors %v miss field %q", vErr.Fields, field)
		return
	}
	var fldErrs validator.ValidationErrors
	if errors.As(err, &fldErrs) {
		for _, fe := range fldErrs {
			if fe.Field() == field {
				return
			}
		}
		t.Errorf("errors %v miss field %q", fldErrs, field)
		return
	}
	t.Fatalf("error = %v; want a validation error on %q", err, field)
}
