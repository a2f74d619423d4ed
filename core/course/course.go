package course

import "time"

const (
	LevelBeginner     = "Beginner"
	LevelIntermediate = "Intermediate"
	LevelAdvanced     = "Advanced"
)

type Course struct {
	ID           string    `json:"id" db:"course_id"`
	Title        string    `json:"title" db:"title"`
	Subtitle     string    `json:"subtitle" db:"subtitle"`
	Description  string    `json:"description" db:"description"`
	Category     string    `json:"category" db:"category"`
	Level        string    `json:"level" db:"level"`
	Price        int       `json:"price" db:"price"`
	ThumbnailURL string    `json:"thumbnailUrl" db:"thumbnail_url"`
	ThumbnailKey string    `json:"-" db:"thumbnail_key"`
	CreatorID    string    `json:"creatorId" db:"creator_id"`
	Published    bool      `json:"published" db:"published"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
	Version      int       `json:"-" db:"version"`
}

type CourseNew struct {
	Title       string `json:"title" validate:"required"`
	Subtitle    string `json:"subtitle"`
	Description string `json:"description"`
	Category    string `json:"category" validate:"required"`
	Level       string `json:"level" validate:"omitempty,oneof=Beginner Intermediate Advanced"`
	Price       int    `json:"price" validate:"gte=0,lte=1000000"`
}

type CourseUp struct {
	Title       *string `json:"title"`
	Subtitle    *string `json:"subtitle"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	Level       *string `json:"level" validate:"omitempty,oneof=Beginner Intermediate Advanced"`
	Price       *int    `json:"price" validate:"omitempty,gte=0,lte=1000000"`
	Published   *bool   `json:"published"`
}

type Rating struct {
	CourseID  string    `json:"-" db:"course_id"`
	UserID    string    `json:"userId" db:"user_id"`
	Rating    int       `json:"rating" db:"rating"`
	Comment   string    `json:"comment" db:"comment"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

type RatingNew struct {
	Rating  int    `json:"rating" validate:"required,gte=1,lte=5"`
	Comment string `json:"comment"`
}
