// Package publisher defines the outbound event contract. Implementations live
// in the memory and pubsub subpackages.
package publisher

import "context"

// Message is one outbound event.
type Message struct {
	// Type names the event, e.g. "plan.completed". It is sent as the
	// event_type attribute.
	Type string
	// Key identifies the subject of the event (the job id).
	Key        string
	Attributes map[string]string
	Payload    any
}

// Publisher delivers messages and returns the broker's message id.
type Publisher interface {
	Publish(ctx context.Context, msg Message) (string, error)
}

// Attributes merges the standard attributes with msg.Attributes.
func Attributes(msg Message) map[string]string {
	attrs := make(map[string]string, len(msg.Attributes)+2)
	for k, v := range msg.Attributes {
		attrs[k] = v
	}
	if msg.Type != "" {
		attrs["event_type"] = msg.Type
	}
	if msg.Key != "" {
		attrs["key"] = msg.Key
	}
	return attrs
}
