package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/taskhive/taskhive/internal/config"
	"github.com/taskhive/taskhive/internal/domain/message"
	"github.com/taskhive/taskhive/internal/hub"
)

type MessagesRepository interface {
	List(ctx context.Context) ([]message.ChatMessage, error)
	Append(ctx context.Context, m message.ChatMessage) error
}

type MessagesHandler struct {
	repo      MessagesRepository
	publisher Publisher
}

func NewMessagesHandler(repo MessagesRepository, publisher Publisher) *MessagesHandler {
	return &MessagesHandler{repo: repo, publisher: publisher}
}

func (h *MessagesHandler) ListMessages(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	messages, err := h.repo.List(cctx)

	if err != nil {
		RespondInternal(ctx, "Could not list messages")
		return
	}

	ctx.JSON(http.StatusOK, messages)
}

// CreateMessage persists first, then notifies the receiver's room. The
// sender gets no echo; its UI already shows the message optimistically.
func (h *MessagesHandler) CreateMessage(ctx *gin.Context) {
	var req message.CreateMessageRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	m := message.NewFromCreateRequest(req)

	if err := h.repo.Append(cctx, m); err != nil {
		RespondInternal(ctx, "Failed to send message")
		return
	}

	h.publisher.Publish(m.ReceiverID, hub.EventChatMessage, m)

	ctx.JSON(http.StatusCreated, m)
}
