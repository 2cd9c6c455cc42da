package tracking

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/learnora/academy-api/services"
	"github.com/learnora/academy-api/utils/middleware"
	"github.com/learnora/academy-api/utils/response"
)

// TrackingHandler serves lesson progress endpoints
type TrackingHandler struct {
	tracking *services.TrackingService
}

// NewTrackingHandler creates a new tracking handler
func NewTrackingHandler(tracking *services.TrackingService) *TrackingHandler {
	return &TrackingHandler{tracking: tracking}
}

// UpdateProgressRequest represents a lesson progress update
type UpdateProgressRequest struct {
	Status string `json:"status" validate:"required,oneof=in_progress completed"`
}

// UpdateProgress handles PUT /api/v1/learning/lessons/:lessonId
func (h *TrackingHandler) UpdateProgress(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}

	lessonID, err := strconv.Atoi(c.Params("lessonId"))
	if err != nil {
		return response.BadRequest(c, "Invalid lesson ID")
	}

	var req UpdateProgressRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	track, err := h.tracking.UpdateProgress(c.Context(), userID, uint(lessonID), req.Status)
	switch {
	case err == nil:
		return response.Success(c, track)
	case errors.Is(err, services.ErrNotEnrolled):
		return response.Forbidden(c, "You are not enrolled in this course")
	case errors.Is(err, services.ErrInvalidTrackStatus):
		return response.BadRequest(c, "Status must be in_progress or completed")
	default:
		return response.InternalServerError(c, "Failed to update progress")
	}
}

// GetCourseProgress handles GET /api/v1/learning/courses/:courseId
func (h *TrackingHandler) GetCourseProgress(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}

	courseID, err := strconv.Atoi(c.Params("courseId"))
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}

	progress, err := h.tracking.GetCourseProgress(c.Context(), userID, uint(courseID))
	if errors.Is(err, services.ErrNotEnrolled) {
		return response.Forbidden(c, "You are not enrolled in this course")
	}
	if err != nil {
		return response.InternalServerError(c, "Failed to load progress")
	}

	tracks, err := h.tracking.ListCourseTracks(c.Context(), userID, uint(courseID))
	if err != nil {
		return response.InternalServerError(c, "Failed to load lesson tracks")
	}

	return response.Success(c, fiber.Map{
		"progress": progress,
		"lessons":  tracks,
	})
}

// ListEnrollments handles GET /api/v1/learning
func (h *TrackingHandler) ListEnrollments(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}

	enrollments, err := h.tracking.ListEnrollments(c.Context(), userID)
	if err != nil {
		return response.InternalServerError(c, "Failed to load enrollments")
	}

	return response.Success(c, enrollments)
}
