package message

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ChatMessage is append-only: once stored it is never mutated.
type ChatMessage struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
}

var ErrNotFound = errors.New("message not found")

type CreateMessageRequest struct {
	ID         string     `json:"id" binding:"omitempty"`
	SenderID   string     `json:"senderId" binding:"required"`
	ReceiverID string     `json:"receiverId" binding:"required"`
	Content    string     `json:"content" binding:"required,min=1,max=4000"`
	Timestamp  *time.Time `json:"timestamp" binding:"omitempty"`
}

// NewFromCreateRequest fills in id and timestamp when the client omitted them.
func NewFromCreateRequest(req CreateMessageRequest) ChatMessage {
	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}

	ts := time.Now().UTC()
	if req.Timestamp != nil {
		ts = *req.Timestamp
	}

	return ChatMessage{
		ID:         id,
		SenderID:   req.SenderID,
		ReceiverID: req.ReceiverID,
		Content:    req.Content,
		Timestamp:  ts,
	}
}
