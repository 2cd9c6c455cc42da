package course

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/learnora/academy-api/model"
	"github.com/learnora/academy-api/utils/response"
)

// SectionRequest represents a curriculum section payload
type SectionRequest struct {
	Title    string `json:"title" validate:"required,min=1,max=255"`
	Position int    `json:"position" validate:"omitempty,min=0"`
}

// LessonRequest represents a lesson payload
type LessonRequest struct {
	Title    string `json:"title" validate:"required,min=1,max=255"`
	Type     string `json:"type" validate:"omitempty,oneof=video article quiz"`
	Duration int    `json:"duration_seconds" validate:"omitempty,min=0"`
	Position int    `json:"position" validate:"omitempty,min=0"`
}

// CreateSection handles POST /api/v1/courses/:id/sections
func (h *CourseHandler) CreateSection(c *fiber.Ctx) error {
	course, errResp := h.loadOwnedCourse(c)
	if course == nil {
		return errResp
	}

	var req SectionRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	section := model.Section{
		CourseID: course.ID,
		Title:    req.Title,
		Position: req.Position,
	}
	if err := h.db.Create(&section).Error; err != nil {
		return response.InternalServerError(c, "Failed to create section")
	}

	return response.Created(c, section)
}

// CreateLesson handles POST /api/v1/courses/:id/sections/:sectionId/lessons
func (h *CourseHandler) CreateLesson(c *fiber.Ctx) error {
	course, errResp := h.loadOwnedCourse(c)
	if course == nil {
		return errResp
	}

	sectionID, err := strconv.Atoi(c.Params("sectionId"))
	if err != nil {
		return response.BadRequest(c, "Invalid section ID")
	}

	var section model.Section
	if err := h.db.Where("id = ? AND course_id = ?", sectionID, course.ID).First(&section).Error; err != nil {
		return response.NotFound(c, "Section not found")
	}

	var req LessonRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}
	if req.Type == "" {
		req.Type = "video"
	}

	lesson := model.Lesson{
		SectionID: section.ID,
		CourseID:  course.ID,
		Title:     req.Title,
		Type:      req.Type,
		Duration:  req.Duration,
		Position:  req.Position,
	}
	if err := h.db.Create(&lesson).Error; err != nil {
		return response.InternalServerError(c, "Failed to create lesson")
	}

	return response.Created(c, lesson)
}

// DeleteSection handles DELETE /api/v1/courses/:id/sections/:sectionId
func (h *CourseHandler) DeleteSection(c *fiber.Ctx) error {
	course, errResp := h.loadOwnedCourse(c)
	if course == nil {
		return errResp
	}

	sectionID, err := strconv.Atoi(c.Params("sectionId"))
	if err != nil {
		return response.BadRequest(c, "Invalid section ID")
	}

	result := h.db.Where("id = ? AND course_id = ?", sectionID, course.ID).Delete(&model.Section{})
	if result.Error != nil {
		return response.InternalServerError(c, "Failed to delete section")
	}
	if result.RowsAffected == 0 {
		return response.NotFound(c, "Section not found")
	}

	return response.NoContent(c)
}

// DeleteLesson handles DELETE /api/v1/courses/:id/lessons/:lessonId
func (h *CourseHandler) DeleteLesson(c *fiber.Ctx) error {
	course, errResp := h.loadOwnedCourse(c)
	if course == nil {
		return errResp
	}

	lessonID, err := strconv.Atoi(c.Params("lessonId"))
	if err != nil {
		return response.BadRequest(c, "Invalid lesson ID")
	}

	result := h.db.Where("id = ? AND course_id = ?", lessonID, course.ID).Delete(&model.Lesson{})
	if result.Error != nil {
		return response.InternalServerError(c, "Failed to delete lesson")
	}
	if result.RowsAffected == 0 {
		return response.NotFound(c, "Lesson not found")
	}

	return response.NoContent(c)
}
