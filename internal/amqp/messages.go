package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"reseller/internal/ledger"
)

// LedgerChangeMessage announces a persisted write. It carries identifiers
// only; consumers read the current state from the store.
type LedgerChangeMessage struct {
	Type      ledger.ChangeType `json:"type"`
	ID        string            `json:"id"`
	OwnerID   string            `json:"ownerId"`
	Timestamp time.Time         `json:"timestamp"`
}

// NewLedgerChangeMessage stamps change with the current time.
func NewLedgerChangeMessage(change ledger.Change) *LedgerChangeMessage {
	return &LedgerChangeMessage{
		Type:      change.Type,
		ID:        change.ID,
		OwnerID:   change.OwnerID,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// Change returns the ledger change the message describes.
func (m *LedgerChangeMessage) Change() ledger.Change {
	return ledger.Change{Type: m.Type, ID: m.ID, OwnerID: m.OwnerID}
}

// LedgerChangeMessageFromJSON decodes and checks a message body.
func LedgerChangeMessageFromJSON(data []byte) (*LedgerChangeMessage, error) {
	var msg LedgerChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Type {
	case ledger.Created, ledger.Updated, ledger.Deleted:
	default:
		return nil, fmt.Errorf("unknown change type %q", msg.Type)
	}
	if msg.OwnerID == "" {
		return nil, fmt.Errorf("message has no owner")
	}
	return &msg, nil
}
