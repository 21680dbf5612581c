package notifications

import (
	"context"
	"encoding/json"
	"time"
)

type Notification struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Read      bool            `json:"read"`
	CreatedAt time.Time       `json:"createdAt"`
}

type StoreAPI interface {
	Create(ctx context.Context, userID, ntype string, payload []byte) error
	List(ctx context.Context, userID string, limit, offset int) ([]Notification, error)
	Count(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, userID, notificationID string) error
}
