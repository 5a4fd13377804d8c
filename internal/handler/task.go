package handler

import (
	"net/http"
	"strconv"

	"taskflow/internal/model"
	"taskflow/internal/service"

	"github.com/gin-gonic/gin"
)

// TaskHandler handles task endpoints scoped to an organization
type TaskHandler struct {
	tasks *service.TaskService
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(tasks *service.TaskService) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

// Create adds a task to the organization (POST /api/organizations/:orgId/tasks)
func (h *TaskHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	orgID, ok := pathObjectID(c, "orgId")
	if !ok {
		return
	}

	var req model.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(err.Error(), ""))
		return
	}

	task, err := h.tasks.Create(c.Request.Context(), userID, orgID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, task)
}

// List returns the organization's tasks, narrowed by the query filters
// status, assigned_to_me and is_daily (GET /api/organizations/:orgId/tasks)
func (h *TaskHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	orgID, ok := pathObjectID(c, "orgId")
	if !ok {
		return
	}

	filter := model.TaskFilter{Status: c.Query("status")}
	if assignedToMe, _ := strconv.ParseBool(c.Query("assigned_to_me")); assignedToMe {
		filter.AssignedTo = userID
	}
	if raw := c.Query("is_daily"); raw != "" {
		isDaily, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, model.NewErrorResponse("Invalid is_daily value", ""))
			return
		}
		filter.IsDaily = &isDaily
	}

	tasks, err := h.tasks.List(c.Request.Context(), userID, orgID, filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, tasks)
}

// Get returns one task (GET /api/organizations/:orgId/tasks/:taskId)
func (h *TaskHandler) Get(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	orgID, ok := pathObjectID(c, "orgId")
	if !ok {
		return
	}
	taskID, ok := pathObjectID(c, "taskId")
	if !ok {
		return
	}

	task, err := h.tasks.Get(c.Request.Context(), userID, orgID, taskID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, task)
}

// Update applies a partial update (PATCH /api/organizations/:orgId/tasks/:taskId)
func (h *TaskHandler) Update(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	orgID, ok := pathObjectID(c, "orgId")
	if !ok {
		return
	}
	taskID, ok := pathObjectID(c, "taskId")
	if !ok {
		return
	}

	var req model.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(err.Error(), ""))
		return
	}

	task, err := h.tasks.Update(c.Request.Context(), userID, orgID, taskID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, task)
}

// Delete removes a task (DELETE /api/organizations/:orgId/tasks/:taskId)
func (h *TaskHandler) Delete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	orgID, ok := pathObjectID(c, "orgId")
	if !ok {
		return
	}
	taskID, ok := pathObjectID(c, "taskId")
	if !ok {
		return
	}

	if err := h.tasks.Delete(c.Request.Context(), userID, orgID, taskID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse("Task deleted successfully", nil))
}
