// Package enrollment is the single source of truth for "user owns
// course". Purchase fulfillment inserts here; content serving and the
// profile/roster views query it. Both directions of the relationship
// are reads over the same table, so they can never disagree.
package enrollment

import "time"

type Enrollment struct {
	UserID    string    `json:"userId" db:"user_id"`
	CourseID  string    `json:"courseId" db:"course_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
