package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/schoolyard-io/schoolyard-api/internal/service"
	appErrors "github.com/schoolyard-io/schoolyard-api/pkg/errors"
	"github.com/schoolyard-io/schoolyard-api/pkg/response"
)

// ClassroomHandler exposes classroom endpoints.
type ClassroomHandler struct {
	classrooms *service.ClassroomService
}

// NewClassroomHandler constructs ClassroomHandler.
func NewClassroomHandler(classrooms *service.ClassroomService) *ClassroomHandler {
	return &ClassroomHandler{classrooms: classrooms}
}

// List godoc
// @Summary List classrooms of a school visible to the caller
// @Tags Classrooms
// @Produce json
// @Param id path string true "School ID"
// @Success 200 {object} response.Envelope
// @Router /schools/{id}/classrooms [get]
func (h *ClassroomHandler) List(c *gin.Context) {
	caller, ok := callerFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	classrooms, err := h.classrooms.List(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"classrooms": classrooms})
}

// Create godoc
// @Summary Create a classroom
// @Tags Classrooms
// @Accept json
// @Produce json
// @Param payload body service.CreateClassroomRequest true "Classroom payload"
// @Success 201 {object} response.Envelope
// @Router /classrooms [post]
func (h *ClassroomHandler) Create(c *gin.Context) {
	caller, ok := callerFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.CreateClassroomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	classroom, err := h.classrooms.Create(c.Request.Context(), caller, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"classroom": classroom})
}

// Delete godoc
// @Summary Delete a classroom
// @Tags Classrooms
// @Produce json
// @Param id path string true "Classroom ID"
// @Success 200 {object} response.Envelope
// @Router /classrooms/{id} [delete]
func (h *ClassroomHandler) Delete(c *gin.Context) {
	caller, ok := callerFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.classrooms.Delete(c.Request.Context(), caller, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{})
}

// EnrollStudent godoc
// @Summary Enroll a student to a classroom
// @Tags Classrooms
// @Accept json
// @Produce json
// @Param id path string true "Classroom ID"
// @Param payload body service.EnrollStudentRequest true "Student to enroll"
// @Success 200 {object} response.Envelope
// @Router /classrooms/{id}/students [post]
func (h *ClassroomHandler) EnrollStudent(c *gin.Context) {
	caller, ok := callerFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.EnrollStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.classrooms.EnrollStudent(c.Request.Context(), caller, c.Param("id"), req.StudentID); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{})
}

// UnenrollStudent godoc
// @Summary Remove a student from a classroom
// @Tags Classrooms
// @Produce json
// @Param id path string true "Classroom ID"
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /classrooms/{id}/students/{studentId} [delete]
func (h *ClassroomHandler) UnenrollStudent(c *gin.Context) {
	caller, ok := callerFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.classrooms.UnenrollStudent(c.Request.Context(), caller, c.Param("id"), c.Param("studentId")); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{})
}
