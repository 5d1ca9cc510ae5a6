// Package events publishes account and ledger events after their changes commit.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	AccountCreated         Type = "account_created"
	ProfileUpdated         Type = "profile_updated"
	Deposited              Type = "deposit"
	Withdrawn              Type = "withdraw"
	Transferred            Type = "transfer"
	PasswordChanged        Type = "password_changed"
	PasswordResetRequested Type = "password_reset_requested"
)

type Event struct {
	ID         uuid.UUID         `json:"id"`
	Type       Type              `json:"type"`
	AccountID  uuid.UUID         `json:"account_id"`
	OccurredAt time.Time         `json:"occurred_at"`
	Data       map[string]string `json:"data,omitempty"`
}

func New(t Type, accountID uuid.UUID, data map[string]string) Event {
	return Event{
		ID:         uuid.New(),
		Type:       t,
		AccountID:  accountID,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Nop drops every event. It is used when no broker is configured.
type Nop struct{}

func (Nop) Publish(ctx context.Context, event Event) error {
	return nil
}
