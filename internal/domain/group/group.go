package group

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type Group struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Members   []string  `json:"members"`
	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
}

var ErrNotFound = errors.New("group not found")

type CreateGroupRequest struct {
	Name      string   `json:"name" binding:"required,min=2,max=80"`
	Members   []string `json:"members" binding:"omitempty,dive,required"`
	CreatedBy string   `json:"createdBy" binding:"omitempty"`
}

type UpdateGroupRequest struct {
	Name    *string  `json:"name" binding:"omitempty,min=2,max=80"`
	Members []string `json:"members" binding:"omitempty,dive,required"`
}

func NewFromCreateRequest(req CreateGroupRequest, createdBy string) Group {
	if req.CreatedBy != "" {
		createdBy = req.CreatedBy
	}

	return Group{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Members:   req.Members,
		CreatedBy: createdBy,
		CreatedAt: time.Now().UTC(),
	}
}
