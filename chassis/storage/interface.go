package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"
)

// ErrDuplicate - the message was stored by an earlier delivery
var ErrDuplicate = errors.New("duplicated message")

// Config - ...
type Config struct {
	DSN string
}

// Message - decoded queue message kept by the store handler
type Message struct {
	Queue      string
	Digest     string
	Body       string
	Attributes map[string]string
	ReceivedDt time.Time
}

// NewMessage encodes body and derives the digest used to drop duplicates.
// The digest covers queue and body only: encoding/json sorts map keys, so
// equal bodies give equal digests even across different message ids.
func NewMessage(queue string, body interface{}, attributes map[string]string) (*Message, error) {
	bin, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(append([]byte(queue+"\x00"), bin...))
	return &Message{
		Queue:      queue,
		Digest:     hex.EncodeToString(sum[:]),
		Body:       string(bin),
		Attributes: attributes,
		ReceivedDt: time.Now().UTC(),
	}, nil
}

// MessageRepository - ...
type MessageRepository interface {
	Save(ctx context.Context, msg *Message) error
}
