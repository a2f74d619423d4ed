package module

import "time"

type Module struct {
	ID        string    `json:"id" db:"module_id"`
	CourseID  string    `json:"courseId" db:"course_id"`
	Title     string    `json:"title" db:"title"`
	Position  int       `json:"position" db:"position"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

type ModuleNew struct {
	CourseID string `json:"courseId" validate:"required"`
	Title    string `json:"title" validate:"required"`
	Position int    `json:"position" validate:"gte=0"`
}

type ModuleUp struct {
	Title    *string `json:"title"`
	Position *int    `json:"position" validate:"omitempty,gte=0"`
}
