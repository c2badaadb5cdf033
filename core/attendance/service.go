package attendance

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/bebohany644546654/physica/core"
	"github.com/bebohany644546654/physica/sync"
)

var ErrNotFound = errors.New("attendance record not found")

// nowFunc is swapped in tests.
var nowFunc = time.Now

type Service struct {
	records    *sync.Collection[Record]
	maxLessons int
	log        core.Logger
}

func NewService(records *sync.Collection[Record], log core.Logger) *Service {
	return &Service{
		records:    records,
		maxLessons: core.Conf.MaxLessonsPerCycle,
		log:        log,
	}
}

// Add marks a student present or absent. The lesson number is one past
// the student's current record count, clamped to the cycle length, so a
// student scanned more times than there are lessons stays on the last
// lesson instead of overflowing.
func (svc *Service) Add(studentID, studentName string, status Status) (Record, error) {
	var fes []core.FieldError
	if studentID == "" {
		fes = append(fes, core.FieldError{Field: "student_id", Error: "student_id is a required field"})
	}
	if studentName == "" {
		fes = append(fes, core.FieldError{Field: "student_name", Error: "student_name is a required field"})
	}
	if !status.Valid() {
		fes = append(fes, core.FieldError{Field: "status", Error: "status must be one of [present absent]"})
	}
	if len(fes) > 0 {
		return Record{}, core.NewValidationError(errors.New("invalid attendance record"), fes...)
	}

	lesson := svc.LessonCount(studentID) + 1
	if lesson > svc.maxLessons {
		lesson = svc.maxLessons
	}

	now := nowFunc().UTC()
	rec := Record{
		ID:           uuid.New().String(),
		StudentID:    studentID,
		StudentName:  studentName,
		Status:       status,
		Date:         now.Format("2006-01-02"),
		Time:         now.Format("15:04:05"),
		LessonNumber: lesson,
	}

	err := svc.records.Upsert(rec)
	if err != nil && !sync.IsLocalPersist(err) {
		return Record{}, err
	}
	return rec, err
}

func (svc *Service) ByStudent(studentID string) []Record {
	return svc.records.Filter(func(r Record) bool { return r.StudentID == studentID })
}

// LessonCount reports how many lessons the student has been scanned for.
func (svc *Service) LessonCount(studentID string) int {
	return len(svc.ByStudent(studentID))
}

func (svc *Service) QueryAll() []Record {
	return svc.records.All()
}

func (svc *Service) Delete(id string) error {
	if _, ok := svc.records.Get(id); !ok {
		return ErrNotFound
	}
	err := svc.records.Delete(id)
	if err != nil && !sync.IsLocalPersist(err) {
		return err
	}
	return err
}
