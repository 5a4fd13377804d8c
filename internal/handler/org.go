package handler

import (
	"net/http"

	"taskflow/internal/model"
	"taskflow/internal/service"

	"github.com/gin-gonic/gin"
)

// OrgHandler handles organization and membership endpoints
type OrgHandler struct {
	orgs *service.OrgService
}

// NewOrgHandler creates a new OrgHandler
func NewOrgHandler(orgs *service.OrgService) *OrgHandler {
	return &OrgHandler{orgs: orgs}
}

// Create makes a new organization with the caller as its first admin
// (POST /api/organizations)
func (h *OrgHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req model.CreateOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(err.Error(), ""))
		return
	}

	org, err := h.orgs.Create(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, org)
}

// List returns the caller's organizations (GET /api/organizations)
func (h *OrgHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	orgs, err := h.orgs.ListMine(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, orgs)
}

// Get returns one organization (GET /api/organizations/:orgId)
func (h *OrgHandler) Get(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	orgID, ok := pathObjectID(c, "orgId")
	if !ok {
		return
	}

	org, err := h.orgs.Get(c.Request.Context(), userID, orgID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, org)
}

// Invite adds a registered user to the organization
// (POST /api/organizations/:orgId/invite)
func (h *OrgHandler) Invite(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	orgID, ok := pathObjectID(c, "orgId")
	if !ok {
		return
	}

	var req model.InviteMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(err.Error(), ""))
		return
	}

	if err := h.orgs.Invite(c.Request.Context(), userID, orgID, &req); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse("Member invited successfully", nil))
}

// Members lists the organization's members (GET /api/organizations/:orgId/members)
func (h *OrgHandler) Members(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	orgID, ok := pathObjectID(c, "orgId")
	if !ok {
		return
	}

	members, err := h.orgs.Members(c.Request.Context(), userID, orgID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, members)
}

// UpdateMemberRole changes a member's role
// (PATCH /api/organizations/:orgId/members/:userId)
func (h *OrgHandler) UpdateMemberRole(c *gin.Context) {
	callerID, ok := currentUserID(c)
	if !ok {
		return
	}
	orgID, ok := pathObjectID(c, "orgId")
	if !ok {
		return
	}
	memberID, ok := pathObjectID(c, "userId")
	if !ok {
		return
	}

	var req model.UpdateMemberRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(err.Error(), ""))
		return
	}

	if err := h.orgs.UpdateMemberRole(c.Request.Context(), callerID, orgID, memberID, req.Role); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse("Member role updated", nil))
}

// RemoveMember removes a member from the organization
// (DELETE /api/organizations/:orgId/members/:userId)
func (h *OrgHandler) RemoveMember(c *gin.Context) {
	callerID, ok := currentUserID(c)
	if !ok {
		return
	}
	orgID, ok := pathObjectID(c, "orgId")
	if !ok {
		return
	}
	memberID, ok := pathObjectID(c, "userId")
	if !ok {
		return
	}

	if err := h.orgs.RemoveMember(c.Request.Context(), callerID, orgID, memberID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse("Member removed", nil))
}

// Stats returns task and membership counts (GET /api/organizations/:orgId/stats)
func (h *OrgHandler) Stats(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	orgID, ok := pathObjectID(c, "orgId")
	if !ok {
		return
	}

	stats, err := h.orgs.Stats(c.Request.Context(), userID, orgID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
