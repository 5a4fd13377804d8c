package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SysAdmin marks a user as a system administrator. Membership in this set is
// independent of any organization role.
type SysAdmin struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	CreatedBy primitive.ObjectID `bson:"created_by,omitempty" json:"created_by,omitempty"`
}

func (s *SysAdmin) GetID() primitive.ObjectID   { return s.ID }
func (s *SysAdmin) SetID(id primitive.ObjectID) { s.ID = id }

// AdminConfig is a key/value setting managed by system administrators
type AdminConfig struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	KeyName   string             `bson:"key_name" json:"key_name"`
	Value     string             `bson:"value" json:"value"`
	IsSecret  bool               `bson:"is_secret" json:"is_secret"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
	UpdatedBy primitive.ObjectID `bson:"updated_by" json:"updated_by"`
}

func (a *AdminConfig) GetID() primitive.ObjectID   { return a.ID }
func (a *AdminConfig) SetID(id primitive.ObjectID) { a.ID = id }

// AdminConfigRequest upserts a config entry by key name
type AdminConfigRequest struct {
	KeyName  string `json:"key_name"`
	Value    string `json:"value"`
	IsSecret bool   `json:"is_secret"`
}

// AdminConfigResponse is the config entry view
type AdminConfigResponse struct {
	ID        string    `json:"id"`
	KeyName   string    `json:"key_name"`
	Value     string    `json:"value"`
	IsSecret  bool      `json:"is_secret"`
	UpdatedAt time.Time `json:"updated_at"`
	UpdatedBy string    `json:"updated_by"`
}

// ToResponse converts AdminConfig to AdminConfigResponse
func (a *AdminConfig) ToResponse() AdminConfigResponse {
	return AdminConfigResponse{
		ID:        a.ID.Hex(),
		KeyName:   a.KeyName,
		Value:     a.Value,
		IsSecret:  a.IsSecret,
		UpdatedAt: a.UpdatedAt,
		UpdatedBy: a.UpdatedBy.Hex(),
	}
}
