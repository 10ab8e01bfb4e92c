package messaging

import (
	"encoding/json"
	"time"
)

// ReminderMessage is one queued outbound notification.
type ReminderMessage struct {
	MemberID  string    `json:"member_id"`
	Phone     string    `json:"phone"`
	Body      string    `json:"body"`
	Timestamp time.Time `json:"timestamp"`
}

// NewReminderMessage stamps a message with the current time.
func NewReminderMessage(memberID, phone, body string) *ReminderMessage {
	return &ReminderMessage{
		MemberID:  memberID,
		Phone:     phone,
		Body:      body,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *ReminderMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ReminderMessageFromJSON decodes a queued message.
func ReminderMessageFromJSON(data []byte) (*ReminderMessage, error) {
	var msg ReminderMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
