package handler

import (
	"net/http"

	"taskflow/internal/model"
	"taskflow/internal/service"

	"github.com/gin-gonic/gin"
)

// AdminHandler handles system-administrator endpoints
type AdminHandler struct {
	admin *service.AdminService
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(admin *service.AdminService) *AdminHandler {
	return &AdminHandler{admin: admin}
}

// ListConfig returns all config entries (GET /api/admin/config)
func (h *AdminHandler) ListConfig(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	configs, err := h.admin.ListConfig(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, configs)
}

// UpsertConfig creates or replaces a config entry (POST /api/admin/config)
func (h *AdminHandler) UpsertConfig(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req model.AdminConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(err.Error(), ""))
		return
	}

	if err := h.admin.UpsertConfig(c.Request.Context(), userID, &req); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse("Config updated successfully", nil))
}

// DeleteConfig removes a config entry (DELETE /api/admin/config/:keyName)
func (h *AdminHandler) DeleteConfig(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.admin.DeleteConfig(c.Request.Context(), userID, c.Param("keyName")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse("Config deleted successfully", nil))
}

// MakeSysAdmin promotes a user to system administrator
// (POST /api/admin/make-admin/:userId)
func (h *AdminHandler) MakeSysAdmin(c *gin.Context) {
	callerID, ok := currentUserID(c)
	if !ok {
		return
	}
	userID, ok := pathObjectID(c, "userId")
	if !ok {
		return
	}

	if err := h.admin.PromoteSysAdmin(c.Request.Context(), callerID, userID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse("User promoted to system admin", nil))
}
