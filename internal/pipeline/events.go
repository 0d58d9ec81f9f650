package pipeline

import "time"

// EventType tags a broadcast event.
type EventType string

const (
	EventStateUpdate EventType = "state_update"
	EventError       EventType = "error"
)

// EventData is the payload carried by a broadcast event.
type EventData struct {
	Stage        Stage     `json:"stage"`
	Message      string    `json:"message"`
	Progress     int       `json:"progress"`
	ShowProgress bool      `json:"show_progress"`
	CreatedAt    time.Time `json:"created_at"`
}

// Event is one broadcast message, both the live wire envelope and the replay
// history record.
type Event struct {
	ID    string    `json:"id"`
	Event EventType `json:"event"`
	Data  EventData `json:"data"`
	// Retry is the reconnect hint for streaming consumers, in milliseconds.
	Retry int `json:"retry"`
}

// EventHistory is the append-only replay log of broadcast events for one work
// item. It is the durable record of what has happened, independent of whether
// any live subscriber was listening at the time.
type EventHistory struct {
	Content []Event `json:"content"`
}

// Append adds an event to the history.
func (h *EventHistory) Append(event Event) {
	h.Content = append(h.Content, event)
}

// Len returns the number of events recorded.
func (h *EventHistory) Len() int {
	if h == nil {
		return 0
	}
	return len(h.Content)
}
