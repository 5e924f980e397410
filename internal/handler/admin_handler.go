package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/schoolyard-io/schoolyard-api/internal/service"
	appErrors "github.com/schoolyard-io/schoolyard-api/pkg/errors"
	"github.com/schoolyard-io/schoolyard-api/pkg/response"
)

// AdminHandler exposes admin account endpoints.
type AdminHandler struct {
	admins *service.AdminService
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(admins *service.AdminService) *AdminHandler {
	return &AdminHandler{admins: admins}
}

// List godoc
// @Summary List admin accounts
// @Tags Admins
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admins [get]
func (h *AdminHandler) List(c *gin.Context) {
	admins, err := h.admins.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"admins": admins})
}

// Create godoc
// @Summary Create an admin account
// @Tags Admins
// @Accept json
// @Produce json
// @Param payload body service.CreateUserRequest true "Admin payload"
// @Success 201 {object} response.Envelope
// @Router /admins [post]
func (h *AdminHandler) Create(c *gin.Context) {
	var req service.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	admin, err := h.admins.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"admin": admin})
}

// Delete godoc
// @Summary Delete an admin account
// @Tags Admins
// @Produce json
// @Param id path string true "Admin ID"
// @Success 200 {object} response.Envelope
// @Router /admins/{id} [delete]
func (h *AdminHandler) Delete(c *gin.Context) {
	if err := h.admins.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{})
}
