package core

// GradeLevel is the secondary-school year a student belongs to.
type GradeLevel string

const (
	GradeFirst  GradeLevel = "first"
	GradeSecond GradeLevel = "second"
	GradeThird  GradeLevel = "third"
)

var GradeLevels = []GradeLevel{GradeFirst, GradeSecond, GradeThird}

func (g GradeLevel) Valid() bool {
	switch g {
	case GradeFirst, GradeSecond, GradeThird:
		return true
	}
	return false
}
