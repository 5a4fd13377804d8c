package service

import (
	"context"
	"strings"

	"taskflow/internal/model"
	"taskflow/internal/repository"
	"taskflow/pkg/apperrors"
	"taskflow/pkg/util"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TaskService handles task CRUD inside an organization
type TaskService struct {
	tasks       repository.ITaskRepository
	users       repository.IUserRepository
	memberships repository.IMembershipRepository
	authz       *Authorizer
}

// NewTaskService creates a new task service
func NewTaskService(
	tasks repository.ITaskRepository,
	users repository.IUserRepository,
	memberships repository.IMembershipRepository,
	authz *Authorizer,
) *TaskService {
	return &TaskService{tasks: tasks, users: users, memberships: memberships, authz: authz}
}

// Create adds a task to the organization. Only admins and managers may
// create; an assignee, when given, must be a member of the same org.
func (s *TaskService) Create(ctx context.Context, userID, orgID primitive.ObjectID, req *model.CreateTaskRequest) (*model.TaskResponse, error) {
	if _, err := s.authz.Authorize(ctx, userID, orgID, model.CapTaskCreate); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, apperrors.InvalidInput("Title is required")
	}

	status := req.Status
	if status == "" {
		status = model.TaskStatusPending
	}
	if !model.IsValidTaskStatus(status) {
		return nil, apperrors.InvalidInput("Invalid task status")
	}

	task := &model.Task{
		OrgID:           orgID,
		Title:           title,
		Description:     req.Description,
		Status:          status,
		DurationMinutes: req.DurationMinutes,
		IsDaily:         req.IsDaily,
		DueDate:         req.DueDate,
		CreatedBy:       userID,
	}

	if req.AssignedTo != "" {
		assignee, err := s.resolveAssignee(ctx, orgID, req.AssignedTo)
		if err != nil {
			return nil, err
		}
		task.AssignedTo = assignee
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, apperrors.Internal("Failed to create task", err)
	}

	return s.withAssigneeName(ctx, task)
}

// List returns the organization's tasks matching the filter.
func (s *TaskService) List(ctx context.Context, userID, orgID primitive.ObjectID, filter model.TaskFilter) ([]model.TaskResponse, error) {
	if _, err := s.authz.Authorize(ctx, userID, orgID, model.CapOrgView); err != nil {
		return nil, err
	}

	if filter.Status != "" && !model.IsValidTaskStatus(filter.Status) {
		return nil, apperrors.InvalidInput("Invalid task status")
	}

	tasks, err := s.tasks.FindByOrg(ctx, orgID, filter)
	if err != nil {
		return nil, apperrors.Internal("Failed to list tasks", err)
	}

	// Resolve all assignee names with one batched lookup
	assigneeIDs := make([]primitive.ObjectID, 0, len(tasks))
	for _, t := range tasks {
		if !t.AssignedTo.IsZero() {
			assigneeIDs = append(assigneeIDs, t.AssignedTo)
		}
	}
	users, err := s.users.FindByIDs(ctx, assigneeIDs)
	if err != nil {
		return nil, apperrors.Internal("Failed to load assignees", err)
	}
	names := make(map[primitive.ObjectID]string, len(users))
	for _, u := range users {
		names[u.ID] = u.FullName
	}

	result := make([]model.TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		result = append(result, t.ToResponse(names[t.AssignedTo]))
	}
	return result, nil
}

// Get returns one task; the caller must be a member of the organization.
func (s *TaskService) Get(ctx context.Context, userID, orgID, taskID primitive.ObjectID) (*model.TaskResponse, error) {
	if _, err := s.authz.Authorize(ctx, userID, orgID, model.CapOrgView); err != nil {
		return nil, err
	}

	task, err := s.tasks.FindByIDAndOrg(ctx, taskID, orgID)
	if err != nil {
		return nil, apperrors.Internal("Failed to load task", err)
	}
	if task == nil {
		return nil, apperrors.NotFound("Task not found")
	}

	return s.withAssigneeName(ctx, task)
}

// Update applies a partial update. Admins and managers may update any task;
// employees only tasks assigned to them.
func (s *TaskService) Update(ctx context.Context, userID, orgID, taskID primitive.ObjectID, req *model.UpdateTaskRequest) (*model.TaskResponse, error) {
	role, err := s.authz.Authorize(ctx, userID, orgID, model.CapTaskUpdate)
	if err != nil {
		return nil, err
	}

	task, err := s.tasks.FindByIDAndOrg(ctx, taskID, orgID)
	if err != nil {
		return nil, apperrors.Internal("Failed to load task", err)
	}
	if task == nil {
		return nil, apperrors.NotFound("Task not found")
	}

	if !role.CanManageAnyTask() && task.AssignedTo != userID {
		return nil, apperrors.Forbidden("Can only update your own tasks")
	}

	fields := bson.M{}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, apperrors.InvalidInput("Title cannot be empty")
		}
		fields["title"] = title
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}
	if req.Status != nil {
		if !model.IsValidTaskStatus(*req.Status) {
			return nil, apperrors.InvalidInput("Invalid task status")
		}
		fields["status"] = *req.Status
	}
	if req.AssignedTo != nil {
		assignee, err := s.resolveAssignee(ctx, orgID, *req.AssignedTo)
		if err != nil {
			return nil, err
		}
		fields["assigned_to"] = assignee
	}
	if req.DurationMinutes != nil {
		fields["duration_minutes"] = *req.DurationMinutes
	}
	if req.IsDaily != nil {
		fields["is_daily"] = *req.IsDaily
	}
	if req.DueDate != nil {
		fields["due_date"] = *req.DueDate
	}

	if len(fields) > 0 {
		if err := s.tasks.UpdateFields(ctx, task.ID, fields); err != nil {
			return nil, apperrors.Internal("Failed to update task", err)
		}
		task, err = s.tasks.FindByIDAndOrg(ctx, taskID, orgID)
		if err != nil || task == nil {
			return nil, apperrors.Internal("Failed to reload task", err)
		}
	}

	return s.withAssigneeName(ctx, task)
}

// Delete removes a task. Only admins and managers may delete.
func (s *TaskService) Delete(ctx context.Context, userID, orgID, taskID primitive.ObjectID) error {
	if _, err := s.authz.Authorize(ctx, userID, orgID, model.CapTaskDelete); err != nil {
		return err
	}

	deleted, err := s.tasks.DeleteByIDAndOrg(ctx, taskID, orgID)
	if err != nil {
		return apperrors.Internal("Failed to delete task", err)
	}
	if !deleted {
		return apperrors.NotFound("Task not found")
	}
	return nil
}

// resolveAssignee parses an assignee id and confirms membership in the org.
func (s *TaskService) resolveAssignee(ctx context.Context, orgID primitive.ObjectID, assignedTo string) (primitive.ObjectID, error) {
	assigneeID, err := util.ParseObjectID(assignedTo)
	if err != nil {
		return primitive.NilObjectID, apperrors.InvalidInput("Invalid assignee id")
	}

	member, err := s.memberships.FindByOrgAndUser(ctx, orgID, assigneeID)
	if err != nil {
		return primitive.NilObjectID, apperrors.Internal("Failed to check assignee membership", err)
	}
	if member == nil {
		return primitive.NilObjectID, apperrors.InvalidInput("Assignee is not a member of this organization")
	}
	return assigneeID, nil
}

func (s *TaskService) withAssigneeName(ctx context.Context, task *model.Task) (*model.TaskResponse, error) {
	var name string
	if !task.AssignedTo.IsZero() {
		user, err := s.users.FindByID(ctx, task.AssignedTo)
		if err != nil {
			return nil, apperrors.Internal("Failed to load assignee", err)
		}
		if user != nil {
			name = user.FullName
		}
	}

	resp := task.ToResponse(name)
	return &resp, nil
}
