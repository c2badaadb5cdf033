package attendance

// Collection name in the sync layer.
const Collection = "attendance"

type Status string

const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
)

func (s Status) Valid() bool {
	return s == StatusPresent || s == StatusAbsent
}

// Record is one scan (or manual mark) of a student for one lesson.
// StudentName is a write-time copy; it is not corrected if the student
// is later renamed. Records are append-only from the app's point of
// view; Delete is a hard remove.
type Record struct {
	ID           string `json:"id"`
	StudentID    string `json:"studentId"`
	StudentName  string `json:"studentName"`
	Status       Status `json:"status"`
	Date         string `json:"date"` // 2006-01-02
	Time         string `json:"time"` // 15:04:05
	LessonNumber int    `json:"lessonNumber"`
}

func (r Record) EntityID() string { return r.ID }
