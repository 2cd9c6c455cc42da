package model

import (
	"time"
)

// Lesson tracking statuses
const (
	TrackStatusNotStarted = "not_started"
	TrackStatusInProgress = "in_progress"
	TrackStatusCompleted  = "completed"
)

// LessonTrack records one buyer's progress through one curriculum item.
// Rows are seeded at settlement (enrollment) and mutated as the learner
// progresses.
type LessonTrack struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	UserID      uint       `gorm:"not null;uniqueIndex:idx_track_user_lesson" json:"user_id"`
	LessonID    uint       `gorm:"not null;uniqueIndex:idx_track_user_lesson" json:"lesson_id"`
	CourseID    uint       `gorm:"not null;index" json:"course_id"`
	OrderID     uint       `gorm:"index" json:"order_id"` // Enrollment provenance
	Status      string     `gorm:"type:varchar(20);default:'not_started'" json:"status"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Relationships
	User   User   `gorm:"foreignKey:UserID" json:"-"`
	Lesson Lesson `gorm:"foreignKey:LessonID" json:"lesson,omitempty"`
}

// TableName specifies the table name for LessonTrack
func (LessonTrack) TableName() string {
	return "lesson_tracks"
}
