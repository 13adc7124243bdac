package mq

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidMessage — тело сообщения не является событием buildflow.
var ErrInvalidMessage = errors.New("invalid message")

// MessageType — тип сообщения.
type MessageType string

// Типы сообщений.
const (
	MessageTypeRunStarted   MessageType = "run.started"
	MessageTypeTaskFinished MessageType = "task.finished"
	MessageTypeRunFinished  MessageType = "run.finished"
)

// Message — сообщение о событии сборки.
type Message struct {
	ID        string      `json:"id"`
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`

	// Payload — RunPayload или TaskPayload при публикации,
	// json.RawMessage после Decode.
	Payload any `json:"payload"`
}

// NewMessage создаёт сообщение с новым ID.
func NewMessage(msgType MessageType, payload any) *Message {
	return &Message{
		ID:        uuid.NewString(),
		Type:      msgType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// Decode разбирает тело сообщения. Payload остаётся сырым JSON
// до вызова ParsePayload.
func Decode(body []byte) (*Message, error) {
	var envelope struct {
		ID        string          `json:"id"`
		Type      MessageType     `json:"type"`
		Timestamp time.Time       `json:"timestamp"`
		Payload   json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if envelope.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrInvalidMessage)
	}

	return &Message{
		ID:        envelope.ID,
		Type:      envelope.Type,
		Timestamp: envelope.Timestamp,
		Payload:   envelope.Payload,
	}, nil
}

// ParsePayload разбирает payload сообщения в T.
func ParsePayload[T any](msg *Message) (T, error) {
	var result T

	raw, ok := msg.Payload.(json.RawMessage)
	if !ok {
		// Сообщение создано локально через NewMessage
		b, err := json.Marshal(msg.Payload)
		if err != nil {
			return result, fmt.Errorf("marshal payload: %w", err)
		}
		raw = b
	}

	if err := json.Unmarshal(raw, &result); err != nil {
		return result, fmt.Errorf("parse %s payload: %w", msg.Type, err)
	}
	return result, nil
}
