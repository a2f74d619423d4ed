package lecture

import "time"

const (
	MediaVideo    = "video"
	MediaDocument = "document"
)

type Lecture struct {
	ID        string    `json:"id" db:"lecture_id"`
	ModuleID  string    `json:"moduleId" db:"module_id"`
	Title     string    `json:"title" db:"title"`
	MediaType string    `json:"mediaType" db:"media_type"`
	MediaURL  string    `json:"-" db:"media_url"`
	MediaKey  string    `json:"-" db:"media_key"`
	Free      bool      `json:"free" db:"free"`
	Position  int       `json:"position" db:"position"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

type LectureNew struct {
	ModuleID  string `json:"moduleId" validate:"required"`
	Title     string `json:"title" validate:"required"`
	MediaType string `json:"mediaType" validate:"required,oneof=video document"`
	Free      bool   `json:"free"`
	Position  int    `json:"position" validate:"gte=0"`
}

type LectureUp struct {
	Title     *string `json:"title"`
	MediaType *string `json:"mediaType" validate:"omitempty,oneof=video document"`
	Free      *bool   `json:"free"`
	Position  *int    `json:"position" validate:"omitempty,gte=0"`
}

// Content is the media payload of a lecture, returned only to callers
// entitled to it.
type Content struct {
	LectureID string `json:"lectureId"`
	MediaType string `json:"mediaType"`
	MediaURL  string `json:"mediaUrl"`
}
