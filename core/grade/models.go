package grade

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/bebohany644546654/physica/core"
)

// Collection name in the sync layer.
const Collection = "grades"

// Performance buckets an exam result by percentage.
type Performance string

const (
	PerformanceExcellent Performance = "excellent" // >= 85%
	PerformanceGood      Performance = "good"      // >= 70%
	PerformanceAverage   Performance = "average"   // >= 50%
	PerformancePoor      Performance = "poor"
)

// Grade is one exam result. StudentName and Group are write-time
// copies, kept as they were when the grade was entered.
type Grade struct {
	ID           string    `json:"id"`
	StudentID    string    `json:"studentId"`
	StudentName  string    `json:"studentName"`
	Group        string    `json:"group"`
	ExamName     string    `json:"examName"`
	Score        float64   `json:"score"`
	TotalScore   float64   `json:"totalScore"`
	LessonNumber int       `json:"lessonNumber"`
	Date         string    `json:"date"` // 2006-01-02
	CreatedAt    time.Time `json:"createdAt"` // UTC
}

func (g Grade) EntityID() string { return g.ID }

// Percentage of the score out of the total. TotalScore > 0 is enforced
// at write time.
func (g Grade) Percentage() float64 {
	return g.Score / g.TotalScore * 100
}

func (g Grade) Performance() Performance {
	switch pct := g.Percentage(); {
	case pct >= 85:
		return PerformanceExcellent
	case pct >= 70:
		return PerformanceGood
	case pct >= 50:
		return PerformanceAverage
	default:
		return PerformancePoor
	}
}

// NewGrade contains information needed to record an exam result.
type NewGrade struct {
	StudentID    string  `json:"student_id" validate:"required"`
	ExamName     string  `json:"exam_name" validate:"required"`
	Score        float64 `json:"score" validate:"gte=0"`
	TotalScore   float64 `json:"total_score" validate:"gt=0"`
	LessonNumber int     `json:"lesson_number" validate:"gte=1"`
}

func (ng *NewGrade) Validate() error {
	ng.StudentID = core.CleanString(ng.StudentID)
	ng.ExamName = core.CleanString(ng.ExamName)
	return core.Validate.Struct(ng)
}

// UpdateGrade modifies an existing grade's result fields. Absent fields
// keep the current value; a present zero score means "set to zero",
// which a re-grade legitimately needs.
type UpdateGrade struct {
	ExamName     string       `json:"exam_name"`
	Score        null.Float64 `json:"score"`
	TotalScore   null.Float64 `json:"total_score"`
	LessonNumber null.Int     `json:"lesson_number"`
}

func (ug *UpdateGrade) Validate(orig Grade) error {
	if name := core.CleanString(ug.ExamName); name != "" {
		ug.ExamName = name
	} else {
		ug.ExamName = orig.ExamName
	}
	if !ug.Score.Valid {
		ug.Score = null.Float64From(orig.Score)
	}
	if !ug.TotalScore.Valid {
		ug.TotalScore = null.Float64From(orig.TotalScore)
	}
	if !ug.LessonNumber.Valid {
		ug.LessonNumber = null.IntFrom(orig.LessonNumber)
	}
	return nil
}
