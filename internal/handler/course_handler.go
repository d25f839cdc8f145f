package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campus-labs/attendance-api/internal/service"
	appErrors "github.com/campus-labs/attendance-api/pkg/errors"
	"github.com/campus-labs/attendance-api/pkg/response"
)

// CourseHandler exposes course and class section endpoints.
type CourseHandler struct {
	courses *service.CourseService
}

// NewCourseHandler constructs CourseHandler.
func NewCourseHandler(courses *service.CourseService) *CourseHandler {
	return &CourseHandler{courses: courses}
}

// List returns all courses with their class sections.
func (h *CourseHandler) List(c *gin.Context) {
	courses, err := h.courses.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, nil)
}

// Delete removes a course and everything it owns.
func (h *CourseHandler) Delete(c *gin.Context) {
	if err := h.courses.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// SectionDetail returns a class section with its session dates.
func (h *CourseHandler) SectionDetail(c *gin.Context) {
	section, dates, err := h.courses.SectionDetail(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"section": section, "session_dates": dates}, nil)
}

// Roster returns the enrolled students of a class section with seats.
func (h *CourseHandler) Roster(c *gin.Context) {
	entries, err := h.courses.SectionRoster(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// EnrollRequest is the single-student enrollment payload.
type EnrollRequest struct {
	MatricNo string `json:"matric_no" binding:"required"`
}

// Enroll adds one student to a class section with an allocated seat.
func (h *CourseHandler) Enroll(c *gin.Context) {
	var req EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.courses.Enroll(c.Request.Context(), c.Param("id"), req.MatricNo)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}
