package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	TypeItemSync   = "item.sync"
	TypeItemDelete = "item.delete"
)

// ExportMessage is the lightweight envelope the server publishes for the
// export worker. It carries only the item id and version; the worker reads
// the full item from storage, so stale duplicates are harmless.
type ExportMessage struct {
	MessageID string    `json:"messageId"`
	Type      string    `json:"type"`
	ItemID    int64     `json:"itemId"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

func NewItemSyncMessage(itemID, version int64) *ExportMessage {
	return &ExportMessage{
		MessageID: uuid.NewString(),
		Type:      TypeItemSync,
		ItemID:    itemID,
		Version:   version,
		Timestamp: time.Now(),
	}
}

func NewItemDeleteMessage(itemID int64) *ExportMessage {
	return &ExportMessage{
		MessageID: uuid.NewString(),
		Type:      TypeItemDelete,
		ItemID:    itemID,
		Timestamp: time.Now(),
	}
}

func (m *ExportMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ExportMessageFromJSON(data []byte) (*ExportMessage, error) {
	var msg ExportMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
