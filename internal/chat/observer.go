package chat

import "html/template"

type EventType string

const (
	EventMessage       EventType = "message"
	EventTyping        EventType = "typing"
	EventTypingRemoved EventType = "typing_removed"
)

// Event is one transcript change, in the order it happened.
type Event struct {
	Type EventType     `json:"type"`
	ID   string        `json:"id"`
	HTML template.HTML `json:"html,omitempty"`
}

// Observer is notified of transcript changes during Send. It may be nil.
type Observer func(Event)

func (o Observer) emit(e Event) {
	if o != nil {
		o(e)
	}
}
