package grade

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bebohany644546654/physica/core"
	"github.com/bebohany644546654/physica/core/student"
	"github.com/bebohany644546654/physica/sync"
)

var (
	// errors
	ErrNotFound  = errors.New("grade not found")
	ErrDuplicate = errors.New("this exam is already graded for this student and lesson")
)

// nowFunc is swapped in tests.
var nowFunc = time.Now

// StudentFinder resolves the student whose name and group get copied
// onto the grade at write time.
type StudentFinder interface {
	GetByID(id string) (student.Student, error)
}

type Service struct {
	grades     *sync.Collection[Grade]
	students   StudentFinder
	maxLessons int
	log        core.Logger
}

func NewService(grades *sync.Collection[Grade], students StudentFinder, log core.Logger) *Service {
	return &Service{
		grades:     grades,
		students:   students,
		maxLessons: core.Conf.MaxLessonsPerCycle,
		log:        log,
	}
}

// Add records an exam result. A student gets at most one grade per
// (exam, lesson) pair; re-grading goes through Update.
func (svc *Service) Add(ng NewGrade) (Grade, error) {
	if err := ng.Validate(); err != nil {
		return Grade{}, err
	}
	if err := svc.checkResult(ng.Score, ng.TotalScore, ng.LessonNumber); err != nil {
		return Grade{}, err
	}

	stu, err := svc.students.GetByID(ng.StudentID)
	if err != nil {
		return Grade{}, core.NewValidationError(err,
			core.FieldError{Field: "student_id", Error: student.ErrNotFound.Error()})
	}
	if svc.exists(ng.StudentID, ng.ExamName, ng.LessonNumber, "") {
		return Grade{}, core.NewValidationError(ErrDuplicate,
			core.FieldError{Field: "exam_name", Error: ErrDuplicate.Error()})
	}

	now := nowFunc().UTC()
	g := Grade{
		ID:           uuid.New().String(),
		StudentID:    stu.ID,
		StudentName:  stu.Name,
		Group:        stu.Group,
		ExamName:     ng.ExamName,
		Score:        ng.Score,
		TotalScore:   ng.TotalScore,
		LessonNumber: ng.LessonNumber,
		Date:         now.Format("2006-01-02"),
		CreatedAt:    now,
	}

	err = svc.grades.Upsert(g)
	if err != nil && !sync.IsLocalPersist(err) {
		return Grade{}, err
	}
	return g, err
}

// Update merges the set fields onto an existing grade. The name and
// group snapshots are left untouched.
func (svc *Service) Update(id string, ug UpdateGrade) (Grade, error) {
	g, ok := svc.grades.Get(id)
	if !ok {
		return Grade{}, ErrNotFound
	}
	if err := ug.Validate(g); err != nil {
		return Grade{}, err
	}
	score, total, lesson := ug.Score.Float64, ug.TotalScore.Float64, ug.LessonNumber.Int
	if err := svc.checkResult(score, total, lesson); err != nil {
		return Grade{}, err
	}
	if svc.exists(g.StudentID, ug.ExamName, lesson, g.ID) {
		return Grade{}, core.NewValidationError(ErrDuplicate,
			core.FieldError{Field: "exam_name", Error: ErrDuplicate.Error()})
	}

	g.ExamName = ug.ExamName
	g.Score = score
	g.TotalScore = total
	g.LessonNumber = lesson

	err := svc.grades.Upsert(g)
	if err != nil && !sync.IsLocalPersist(err) {
		return Grade{}, err
	}
	return g, err
}

func (svc *Service) Delete(id string) error {
	if _, ok := svc.grades.Get(id); !ok {
		return ErrNotFound
	}
	err := svc.grades.Delete(id)
	if err != nil && !sync.IsLocalPersist(err) {
		return err
	}
	return err
}

func (svc *Service) GetByID(id string) (Grade, error) {
	if g, ok := svc.grades.Get(id); ok {
		return g, nil
	}
	return Grade{}, ErrNotFound
}

func (svc *Service) ByStudent(studentID string) []Grade {
	return svc.grades.Filter(func(g Grade) bool { return g.StudentID == studentID })
}

func (svc *Service) ByGroup(group string) []Grade {
	return svc.grades.Filter(func(g Grade) bool { return g.Group == group })
}

func (svc *Service) QueryAll() []Grade {
	return svc.grades.All()
}

func (svc *Service) checkResult(score, total float64, lesson int) error {
	var fes []core.FieldError
	if score < 0 {
		fes = append(fes, core.FieldError{Field: "score", Error: "score cannot be negative"})
	}
	if total <= 0 {
		fes = append(fes, core.FieldError{Field: "total_score", Error: "total_score must be positive"})
	} else if score > total {
		fes = append(fes, core.FieldError{Field: "score", Error: "score cannot exceed total_score"})
	}
	if lesson < 1 || lesson > svc.maxLessons {
		fes = append(fes, core.FieldError{
			Field: "lesson_number",
			Error: fmt.Sprintf("lesson_number must be between 1 and %d", svc.maxLessons),
		})
	}
	if len(fes) > 0 {
		return core.NewValidationError(errors.New("invalid exam result"), fes...)
	}
	return nil
}

// exists reports whether another grade already covers the same exam for
// the same student and lesson.
func (svc *Service) exists(studentID, examName string, lesson int, excludeID string) bool {
	dupes := svc.grades.Filter(func(g Grade) bool {
		return g.StudentID == studentID &&
			g.ExamName == examName &&
			g.LessonNumber == lesson &&
			g.ID != excludeID
	})
	return len(dupes) > 0
}
