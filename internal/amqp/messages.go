package amqp

import (
	"encoding/json"
	"time"
)

// ReminderAddedMessage wakes the notification worker as soon as a reminder
// is created. It carries the title and due date so the worker can schedule
// near-term timers without waiting for its next periodic cycle.
type ReminderAddedMessage struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Due       time.Time `json:"due"`
	Timestamp time.Time `json:"timestamp"`
}

// NewReminderAddedMessage creates a wake message for a freshly stored reminder.
func NewReminderAddedMessage(id int64, title string, due time.Time) *ReminderAddedMessage {
	return &ReminderAddedMessage{
		ID:        id,
		Title:     title,
		Due:       due,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *ReminderAddedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ReminderAddedMessageFromJSON creates a message from JSON bytes.
func ReminderAddedMessageFromJSON(data []byte) (*ReminderAddedMessage, error) {
	var msg ReminderAddedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
