package course

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/learnora/academy-api/model"
	"github.com/learnora/academy-api/utils/middleware"
	"github.com/learnora/academy-api/utils/response"
	"github.com/learnora/academy-api/utils/validation"
	"gorm.io/gorm"
)

// CourseHandler handles catalog requests
type CourseHandler struct {
	db        *gorm.DB
	validator *validation.Validator
}

// NewCourseHandler creates a new course handler
func NewCourseHandler(db *gorm.DB) *CourseHandler {
	return &CourseHandler{
		db:        db,
		validator: validation.NewValidator(),
	}
}

// CreateCourseRequest represents the request body for creating a course
type CreateCourseRequest struct {
	Title         string  `json:"title" validate:"required,min=3,max=255"`
	Description   string  `json:"description" validate:"omitempty,max=10000"`
	Language      string  `json:"language" validate:"omitempty,max=20"`
	Level         string  `json:"level" validate:"omitempty,oneof=beginner intermediate advanced"`
	IsFree        bool    `json:"is_free"`
	ListPrice     float64 `json:"list_price" validate:"omitempty,min=0"`
	DiscountPrice float64 `json:"discount_price" validate:"omitempty,min=0"`
	Thumbnail     string  `json:"thumbnail" validate:"omitempty,url"`
}

// UpdateCourseRequest represents the request body for updating a course
type UpdateCourseRequest struct {
	Title         string   `json:"title" validate:"omitempty,min=3,max=255"`
	Description   *string  `json:"description" validate:"omitempty,max=10000"`
	Language      string   `json:"language" validate:"omitempty,max=20"`
	Level         string   `json:"level" validate:"omitempty,oneof=beginner intermediate advanced"`
	IsFree        *bool    `json:"is_free"`
	ListPrice     *float64 `json:"list_price" validate:"omitempty,min=0"`
	DiscountPrice *float64 `json:"discount_price" validate:"omitempty,min=0"`
	Thumbnail     string   `json:"thumbnail" validate:"omitempty,url"`
}

var slugCleaner = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(title string) string {
	slug := strings.ToLower(strings.TrimSpace(title))
	slug = slugCleaner.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

// ListCourses handles GET /api/v1/courses. Public: only published courses
// appear; instructors see their own drafts via the mine filter.
func (h *CourseHandler) ListCourses(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "10"))
	search := c.Query("search", "")
	level := c.Query("level", "")
	free := c.Query("free", "")
	mine := c.Query("mine", "") == "true"

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	query := h.db.Model(&model.Course{})

	userID, hasUser := middleware.GetUserID(c)
	if mine && hasUser {
		query = query.Where("instructor_id = ?", userID)
	} else {
		query = query.Where("status = ?", model.CourseStatusPublished)
	}

	if search != "" {
		query = query.Where("title ILIKE ? OR description ILIKE ?",
			"%"+search+"%", "%"+search+"%")
	}
	if level != "" {
		query = query.Where("level = ?", level)
	}
	if free == "true" {
		query = query.Where("is_free = ?", true)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return response.InternalServerError(c, "Failed to count courses")
	}

	var courses []model.Course
	err := query.Preload("Instructor").
		Order("created_at DESC").
		Limit(limit).Offset((page - 1) * limit).
		Find(&courses).Error
	if err != nil {
		return response.InternalServerError(c, "Failed to fetch courses")
	}

	return response.Paginated(c, courses, response.CalculatePagination(page, limit, total))
}

// GetCourse handles GET /api/v1/courses/:slug
func (h *CourseHandler) GetCourse(c *fiber.Ctx) error {
	slug := c.Params("slug")

	var course model.Course
	err := h.db.Preload("Instructor").
		Preload("Sections", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Sections.Lessons", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("slug = ?", slug).
		First(&course).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return response.NotFound(c, "Course not found")
	}
	if err != nil {
		return response.InternalServerError(c, "Failed to fetch course")
	}

	// Drafts are visible only to their instructor and admins
	if course.Status != model.CourseStatusPublished {
		userID, ok := middleware.GetUserID(c)
		role, _ := middleware.GetUserRole(c)
		if !ok || (userID != course.InstructorID && role != model.RoleAdmin) {
			return response.NotFound(c, "Course not found")
		}
	}

	return response.Success(c, course)
}

// CreateCourse handles POST /api/v1/courses, instructor only
func (h *CourseHandler) CreateCourse(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}

	var req CreateCourseRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	slug := slugify(req.Title)
	var existing model.Course
	if err := h.db.Where("slug = ?", slug).First(&existing).Error; err == nil {
		return response.Conflict(c, "A course with this title already exists")
	}

	course := model.Course{
		InstructorID:  userID,
		Title:         req.Title,
		Slug:          slug,
		Description:   validation.StripHTML(req.Description),
		Language:      req.Language,
		Level:         req.Level,
		Status:        model.CourseStatusDraft,
		IsFree:        req.IsFree,
		ListPrice:     req.ListPrice,
		DiscountPrice: req.DiscountPrice,
		Thumbnail:     req.Thumbnail,
	}
	if course.Language == "" {
		course.Language = "english"
	}

	if err := h.db.Create(&course).Error; err != nil {
		return response.InternalServerError(c, "Failed to create course")
	}

	return response.Created(c, course)
}

// loadOwnedCourse fetches a course and checks the caller may modify it
func (h *CourseHandler) loadOwnedCourse(c *fiber.Ctx) (*model.Course, error) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return nil, response.Unauthorized(c, "Not authenticated")
	}

	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return nil, response.BadRequest(c, "Invalid course ID")
	}

	var course model.Course
	if err := h.db.First(&course, id).Error; err != nil {
		return nil, response.NotFound(c, "Course not found")
	}

	role, _ := middleware.GetUserRole(c)
	if course.InstructorID != userID && role != model.RoleAdmin {
		return nil, response.Forbidden(c, "You do not own this course")
	}
	return &course, nil
}

// UpdateCourse handles PUT /api/v1/courses/:id
func (h *CourseHandler) UpdateCourse(c *fiber.Ctx) error {
	course, errResp := h.loadOwnedCourse(c)
	if course == nil {
		return errResp
	}

	var req UpdateCourseRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	if req.Title != "" {
		course.Title = req.Title
	}
	if req.Description != nil {
		course.Description = validation.StripHTML(*req.Description)
	}
	if req.Language != "" {
		course.Language = req.Language
	}
	if req.Level != "" {
		course.Level = req.Level
	}
	if req.IsFree != nil {
		course.IsFree = *req.IsFree
	}
	if req.ListPrice != nil {
		course.ListPrice = *req.ListPrice
	}
	if req.DiscountPrice != nil {
		course.DiscountPrice = *req.DiscountPrice
	}
	if req.Thumbnail != "" {
		course.Thumbnail = req.Thumbnail
	}

	if err := h.db.Save(course).Error; err != nil {
		return response.InternalServerError(c, "Failed to update course")
	}

	return response.Success(c, course)
}

// PublishCourse handles POST /api/v1/courses/:id/publish
func (h *CourseHandler) PublishCourse(c *fiber.Ctx) error {
	course, errResp := h.loadOwnedCourse(c)
	if course == nil {
		return errResp
	}

	if !course.IsFree && course.ListPrice <= 0 {
		return response.BadRequest(c, "Paid courses need a list price before publishing")
	}

	var lessons int64
	h.db.Model(&model.Lesson{}).Where("course_id = ?", course.ID).Count(&lessons)
	if lessons == 0 {
		return response.BadRequest(c, "Add at least one lesson before publishing")
	}

	course.Status = model.CourseStatusPublished
	if err := h.db.Save(course).Error; err != nil {
		return response.InternalServerError(c, "Failed to publish course")
	}

	return response.SuccessWithMessage(c, "Course published", course)
}

// ArchiveCourse handles POST /api/v1/courses/:id/archive. Archived courses
// disappear from the catalog but stay purchasable history for past buyers.
func (h *CourseHandler) ArchiveCourse(c *fiber.Ctx) error {
	course, errResp := h.loadOwnedCourse(c)
	if course == nil {
		return errResp
	}

	course.Status = model.CourseStatusArchived
	if err := h.db.Save(course).Error; err != nil {
		return response.InternalServerError(c, "Failed to archive course")
	}

	return response.SuccessWithMessage(c, "Course archived", course)
}
