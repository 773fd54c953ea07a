package listener

import "context"

// Handler is the business logic run for every decoded message.
//
// With force delete off a message is redelivered until HandleMessage returns
// nil, so implementations must tolerate duplicates. With force delete on the
// message is already gone when HandleMessage runs and a failure loses it.
type Handler interface {
	HandleMessage(ctx context.Context, body interface{}, messageAttributes, attributes map[string]string) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, body interface{}, messageAttributes, attributes map[string]string) error

// HandleMessage calls f.
func (f HandlerFunc) HandleMessage(ctx context.Context, body interface{}, messageAttributes, attributes map[string]string) error {
	return f(ctx, body, messageAttributes, attributes)
}
