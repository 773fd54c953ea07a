package queue

import (
	"context"
	"strings"
)

const (
	// FIFOSuffix marks queues created with FIFO semantics.
	FIFOSuffix = ".fifo"

	// AttributeVisibilityTimeout queue attribute, seconds.
	AttributeVisibilityTimeout = "VisibilityTimeout"
	// AttributeFifoQueue must only be sent for FIFO queues.
	AttributeFifoQueue = "FifoQueue"
)

// Config - unified configuration for queue service
type Config struct {
	// Endpoint overrides the service endpoint, e.g. a local elasticmq.
	Endpoint string

	//AWS specified
	Region             string
	AccessKeyID        string
	SecretAccessKey    string
	CredentialsFile    string
	CredentialsProfile string
	Retries            int
}

// ReceiveParams bounds a single receive call.
type ReceiveParams struct {
	MaxMessages           int
	WaitTimeSeconds       int
	AttributeNames        []string
	MessageAttributeNames []string
}

// RecvMessage unified presentation for queue message
type RecvMessage struct {
	ID                string
	ReceiptHandle     string
	Body              string
	Attributes        map[string]string
	MessageAttributes map[string]string
}

// Client interface for queue interaction (SQS Based)
type Client interface {
	ListQueueURLs(ctx context.Context, prefix string) ([]string, error)
	EnsureQueue(ctx context.Context, name string, attributes map[string]string) (string, error)
	Receive(ctx context.Context, queueURL string, params ReceiveParams) ([]*RecvMessage, error)
	Delete(ctx context.Context, queueURL string, receiptHandle string) error
	Publish(ctx context.Context, queueURL string, body string) error
}

// IsFIFO reports whether name (or url) follows the FIFO naming convention.
func IsFIFO(name string) bool {
	return strings.HasSuffix(name, FIFOSuffix)
}

// QueueName extracts the queue name from a queue url.
func QueueName(queueURL string) string {
	idx := strings.LastIndex(queueURL, "/")
	if idx < 0 {
		return queueURL
	}
	return queueURL[idx+1:]
}
