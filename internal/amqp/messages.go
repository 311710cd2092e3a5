package amqp

import (
	"encoding/json"
	"time"
)

// Op names the mutation an EntityEvent reports.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
	OpImport Op = "import"
	OpWipe   Op = "wipe"
)

// EntityEvent is a lightweight notification of a stored document change.
// Consumers load the document from the store when they need its content.
type EntityEvent struct {
	Collection string    `json:"collection"`
	ID         string    `json:"id,omitempty"`
	Op         Op        `json:"op"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewEntityEvent creates an event stamped with the current time.
func NewEntityEvent(collection, id string, op Op) *EntityEvent {
	return &EntityEvent{
		Collection: collection,
		ID:         id,
		Op:         op,
		Timestamp:  time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *EntityEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// EntityEventFromJSON creates a message from JSON bytes
func EntityEventFromJSON(data []byte) (*EntityEvent, error) {
	var msg EntityEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
