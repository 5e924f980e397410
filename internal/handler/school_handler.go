package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/schoolyard-io/schoolyard-api/internal/service"
	appErrors "github.com/schoolyard-io/schoolyard-api/pkg/errors"
	"github.com/schoolyard-io/schoolyard-api/pkg/response"
)

// SchoolHandler exposes school endpoints.
type SchoolHandler struct {
	schools *service.SchoolService
}

// NewSchoolHandler constructs SchoolHandler.
func NewSchoolHandler(schools *service.SchoolService) *SchoolHandler {
	return &SchoolHandler{schools: schools}
}

// List godoc
// @Summary List schools visible to the caller
// @Tags Schools
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /schools [get]
func (h *SchoolHandler) List(c *gin.Context) {
	caller, ok := callerFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	schools, err := h.schools.List(c.Request.Context(), caller)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"schools": schools})
}

// Create godoc
// @Summary Create a school
// @Tags Schools
// @Accept json
// @Produce json
// @Param payload body service.CreateSchoolRequest true "School payload"
// @Success 201 {object} response.Envelope
// @Router /schools [post]
func (h *SchoolHandler) Create(c *gin.Context) {
	var req service.CreateSchoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	school, err := h.schools.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"school": school})
}

// Delete godoc
// @Summary Delete a school and everything registered under it
// @Tags Schools
// @Produce json
// @Param id path string true "School ID"
// @Success 200 {object} response.Envelope
// @Router /schools/{id} [delete]
func (h *SchoolHandler) Delete(c *gin.Context) {
	if err := h.schools.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{})
}

// EnrollAdmin godoc
// @Summary Enroll an admin user to a school
// @Tags Schools
// @Accept json
// @Produce json
// @Param id path string true "School ID"
// @Param payload body service.EnrollAdminRequest true "Admin to enroll"
// @Success 200 {object} response.Envelope
// @Router /schools/{id}/admins [post]
func (h *SchoolHandler) EnrollAdmin(c *gin.Context) {
	var req service.EnrollAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.schools.EnrollAdmin(c.Request.Context(), req.AdminID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{})
}

// UnenrollAdmin godoc
// @Summary Remove an admin from a school
// @Tags Schools
// @Produce json
// @Param id path string true "School ID"
// @Param adminId path string true "Admin ID"
// @Success 200 {object} response.Envelope
// @Router /schools/{id}/admins/{adminId} [delete]
func (h *SchoolHandler) UnenrollAdmin(c *gin.Context) {
	if err := h.schools.UnenrollAdmin(c.Request.Context(), c.Param("adminId"), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{})
}
