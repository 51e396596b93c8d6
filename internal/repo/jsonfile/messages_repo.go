package jsonfile

import (
	"context"
	"encoding/json"

	"github.com/taskhive/taskhive/internal/domain/message"
	"github.com/taskhive/taskhive/internal/store"
)

// MessagesRepo is append-only: chat history is never edited or deleted.
type MessagesRepo struct {
	col *store.Collection
}

func NewMessagesRepo(st *store.Store) (*MessagesRepo, error) {
	col, err := st.Collection("messages")

	if err != nil {
		return nil, err
	}

	return &MessagesRepo{col: col}, nil
}

func (r *MessagesRepo) List(ctx context.Context) ([]message.ChatMessage, error) {
	docs := r.col.List()

	out := make([]message.ChatMessage, 0, len(docs))

	for _, doc := range docs {
		var m message.ChatMessage
		if err := json.Unmarshal(doc, &m); err != nil {
			return nil, err
		}
		out = append(out, m)
	}

	return out, nil
}

func (r *MessagesRepo) Append(ctx context.Context, m message.ChatMessage) error {
	return r.col.Append(m)
}
