package messaging

import (
	"context"
	"encoding/json"
	"fmt"
)

// Broker defines the interface for message brokers
type Broker interface {
	Publish(ctx context.Context, topic string, message interface{}) error
	Close() error
}

// Subscriber is implemented by brokers that can also consume.
type Subscriber interface {
	Subscribe(ctx context.Context, topic string) (<-chan []byte, error)
}

type Message struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Encode turns a message into the bytes put on the wire. Raw JSON and
// byte slices pass through untouched.
func Encode(message interface{}) ([]byte, error) {
	switch m := message.(type) {
	case json.RawMessage:
		return m, nil
	case []byte:
		return m, nil
	default:
		payload, err := json.Marshal(message)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message: %w", err)
		}
		return payload, nil
	}
}
