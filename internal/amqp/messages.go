package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cashbook/internal/ledger"
)

// LedgerEvent announces one confirmed change to a user's ledger. Consumers
// re-read persistence; the event carries ids only.
type LedgerEvent struct {
	UserID    string    `json:"user_id"`
	Entity    string    `json:"entity"`
	Action    string    `json:"action"`
	EntityID  string    `json:"entity_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerEvent(ev ledger.Event) *LedgerEvent {
	return &LedgerEvent{
		UserID:    ev.UserID,
		Entity:    ev.Entity,
		Action:    ev.Action,
		EntityID:  ev.EntityID,
		Timestamp: time.Now().UTC(),
	}
}

func (m *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventFromJSON decodes and checks a message body.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var msg LedgerEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.UserID == "" {
		return nil, errors.New("ledger event without user_id")
	}
	switch msg.Entity {
	case ledger.EntityAccount, ledger.EntityTransaction:
	default:
		return nil, fmt.Errorf("unknown ledger entity %q", msg.Entity)
	}
	return &msg, nil
}
