package progress

import "time"

// LectureProgress marks a lecture as viewed by a user. Rows only ever
// hold viewed = true; absence means not viewed.
type LectureProgress struct {
	UserID    string    `json:"-" db:"user_id"`
	LectureID string    `json:"lectureId" db:"lecture_id"`
	CourseID  string    `json:"-" db:"course_id"`
	Viewed    bool      `json:"viewed" db:"viewed"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// CourseProgress is the user-driven completion flag of a course. It is
// deliberately not derived from the per-lecture viewed state: the user
// toggles it explicitly.
type CourseProgress struct {
	UserID    string    `json:"-" db:"user_id"`
	CourseID  string    `json:"courseId" db:"course_id"`
	Completed bool      `json:"completed" db:"completed"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// Summary is the progress view of one course for one user.
type Summary struct {
	CourseID  string            `json:"courseId"`
	Completed bool              `json:"completed"`
	Lectures  []LectureProgress `json:"lectures"`
}
