package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Task status values
const (
	TaskStatusPending    = "pending"
	TaskStatusInProgress = "in_progress"
	TaskStatusCompleted  = "completed"
)

// IsValidTaskStatus reports whether the string is a known task status.
func IsValidTaskStatus(s string) bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted:
		return true
	}
	return false
}

type Task struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrgID           primitive.ObjectID `bson:"org_id" json:"org_id"`
	Title           string             `bson:"title" json:"title"`
	Description     string             `bson:"description,omitempty" json:"description,omitempty"`
	AssignedTo      primitive.ObjectID `bson:"assigned_to,omitempty" json:"assigned_to,omitempty"`
	Status          string             `bson:"status" json:"status"`
	DurationMinutes int                `bson:"duration_minutes,omitempty" json:"duration_minutes,omitempty"`
	IsDaily         bool               `bson:"is_daily" json:"is_daily"`
	DueDate         *time.Time         `bson:"due_date,omitempty" json:"due_date,omitempty"`
	CreatedBy       primitive.ObjectID `bson:"created_by" json:"created_by"`
	CreatedAt       time.Time          `bson:"created_at" json:"created_at"`
}

func (t *Task) GetID() primitive.ObjectID   { return t.ID }
func (t *Task) SetID(id primitive.ObjectID) { t.ID = id }

// CreateTaskRequest is the payload for creating a task
type CreateTaskRequest struct {
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	AssignedTo      string     `json:"assigned_to"`
	Status          string     `json:"status"`
	DurationMinutes int        `json:"duration_minutes"`
	IsDaily         bool       `json:"is_daily"`
	DueDate         *time.Time `json:"due_date"`
}

// UpdateTaskRequest carries a partial task update; nil fields are unchanged
type UpdateTaskRequest struct {
	Title           *string    `json:"title"`
	Description     *string    `json:"description"`
	AssignedTo      *string    `json:"assigned_to"`
	Status          *string    `json:"status"`
	DurationMinutes *int       `json:"duration_minutes"`
	IsDaily         *bool      `json:"is_daily"`
	DueDate         *time.Time `json:"due_date"`
}

// TaskFilter narrows a task listing; predicates combine conjunctively
type TaskFilter struct {
	Status     string
	AssignedTo primitive.ObjectID
	IsDaily    *bool
}

// TaskResponse is the task view with the assignee's name joined in
type TaskResponse struct {
	ID              string     `json:"id"`
	OrgID           string     `json:"org_id"`
	Title           string     `json:"title"`
	Description     string     `json:"description,omitempty"`
	AssignedTo      string     `json:"assigned_to,omitempty"`
	AssignedToName  string     `json:"assigned_to_name,omitempty"`
	Status          string     `json:"status"`
	DurationMinutes int        `json:"duration_minutes,omitempty"`
	IsDaily         bool       `json:"is_daily"`
	DueDate         *time.Time `json:"due_date,omitempty"`
	CreatedBy       string     `json:"created_by"`
	CreatedAt       time.Time  `json:"created_at"`
}

// ToResponse converts Task to TaskResponse with an optional assignee name
func (t *Task) ToResponse(assignedToName string) TaskResponse {
	resp := TaskResponse{
		ID:              t.ID.Hex(),
		OrgID:           t.OrgID.Hex(),
		Title:           t.Title,
		Description:     t.Description,
		AssignedToName:  assignedToName,
		Status:          t.Status,
		DurationMinutes: t.DurationMinutes,
		IsDaily:         t.IsDaily,
		DueDate:         t.DueDate,
		CreatedBy:       t.CreatedBy.Hex(),
		CreatedAt:       t.CreatedAt,
	}
	if !t.AssignedTo.IsZero() {
		resp.AssignedTo = t.AssignedTo.Hex()
	}
	return resp
}
