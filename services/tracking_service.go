package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/learnora/academy-api/model"
	"gorm.io/gorm"
)

var (
	// ErrNotEnrolled is returned when progress is reported for a course the
	// user never purchased
	ErrNotEnrolled = errors.New("not enrolled in this course")
	// ErrInvalidTrackStatus is returned for unknown progress statuses
	ErrInvalidTrackStatus = errors.New("invalid track status")
)

// TrackingService records lesson-level learning progress. Track rows are
// seeded at settlement; progress only moves forward (a completed lesson
// never reverts to in_progress).
type TrackingService struct {
	db *gorm.DB
}

// NewTrackingService creates a new tracking service
func NewTrackingService(db *gorm.DB) *TrackingService {
	return &TrackingService{db: db}
}

// UpdateProgress moves one lesson's track to the given status
func (s *TrackingService) UpdateProgress(ctx context.Context, userID, lessonID uint, status string) (*model.LessonTrack, error) {
	if status != model.TrackStatusInProgress && status != model.TrackStatusCompleted {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTrackStatus, status)
	}

	var track model.LessonTrack
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND lesson_id = ?", userID, lessonID).
		First(&track).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotEnrolled
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load lesson track: %w", err)
	}

	if track.Status == model.TrackStatusCompleted {
		// Forward-only; re-watching a finished lesson changes nothing
		return &track, nil
	}

	now := time.Now()
	if track.StartedAt == nil {
		track.StartedAt = &now
	}
	track.Status = status
	if status == model.TrackStatusCompleted {
		track.CompletedAt = &now
	}

	if err := s.db.WithContext(ctx).Save(&track).Error; err != nil {
		return nil, fmt.Errorf("failed to update lesson track: %w", err)
	}
	return &track, nil
}

// CourseProgress summarizes one user's progress through one course
type CourseProgress struct {
	CourseID         uint    `json:"course_id"`
	TotalLessons     int64   `json:"total_lessons"`
	CompletedLessons int64   `json:"completed_lessons"`
	PercentComplete  float64 `json:"percent_complete"`
}

// GetCourseProgress computes completion percentage over the seeded tracks
func (s *TrackingService) GetCourseProgress(ctx context.Context, userID, courseID uint) (*CourseProgress, error) {
	var total, completed int64

	base := s.db.WithContext(ctx).Model(&model.LessonTrack{}).
		Where("user_id = ? AND course_id = ?", userID, courseID)
	if err := base.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count lesson tracks: %w", err)
	}
	if total == 0 {
		return nil, ErrNotEnrolled
	}

	err := s.db.WithContext(ctx).Model(&model.LessonTrack{}).
		Where("user_id = ? AND course_id = ? AND status = ?", userID, courseID, model.TrackStatusCompleted).
		Count(&completed).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count completed lessons: %w", err)
	}

	return &CourseProgress{
		CourseID:         courseID,
		TotalLessons:     total,
		CompletedLessons: completed,
		PercentComplete:  float64(completed) / float64(total) * 100,
	}, nil
}

// ListCourseTracks returns the per-lesson tracks for one enrollment
func (s *TrackingService) ListCourseTracks(ctx context.Context, userID, courseID uint) ([]model.LessonTrack, error) {
	var tracks []model.LessonTrack
	err := s.db.WithContext(ctx).Preload("Lesson").
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Find(&tracks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list lesson tracks: %w", err)
	}
	if len(tracks) == 0 {
		return nil, ErrNotEnrolled
	}
	return tracks, nil
}

// ListEnrollments returns the user's progress summaries across all
// purchased courses
func (s *TrackingService) ListEnrollments(ctx context.Context, userID uint) ([]CourseProgress, error) {
	var courseIDs []uint
	err := s.db.WithContext(ctx).Model(&model.LessonTrack{}).
		Where("user_id = ?", userID).
		Distinct("course_id").
		Pluck("course_id", &courseIDs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}

	progress := make([]CourseProgress, 0, len(courseIDs))
	for _, id := range courseIDs {
		p, err := s.GetCourseProgress(ctx, userID, id)
		if err != nil {
			return nil, err
		}
		progress = append(progress, *p)
	}
	return progress, nil
}
