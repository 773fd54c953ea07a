package listener

import (
	"context"
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/freundallein/listener/backend/chassis/queue"
)

// Init makes sure the source queue, and the error queue when configured,
// exist and records their urls. Calling it again is a no-op.
func (l *Listener) Init(ctx context.Context) error {
	if l.initialized {
		return nil
	}
	url := l.cfg.QueueURL()
	if url == "" {
		resolved, err := l.ensure(ctx, l.cfg.QueueName(), l.cfg.VisibilityTimeout())
		if err != nil {
			return err
		}
		url = resolved
	}
	if l.router != nil {
		errURL, err := l.ensure(ctx, l.cfg.ErrorQueueName(), l.cfg.ErrorVisibilityTimeout())
		if err != nil {
			return err
		}
		l.router.queueURL = errURL
	}
	l.queueURL = url
	l.initialized = true
	l.log.WithFields(logrus.Fields{
		"event": "init_topology",
		"url":   url,
	}).Info("queue resolved")
	return nil
}

// ensure finds the queue by exact name and creates it when missing.
func (l *Listener) ensure(ctx context.Context, name string, visibilityTimeout int) (string, error) {
	urls, err := l.client.ListQueueURLs(ctx, name)
	if err != nil {
		return "", fmt.Errorf("%w: list queues: %w", ErrTopology, err)
	}
	for _, url := range urls {
		if queue.QueueName(url) == name {
			return url, nil
		}
	}
	l.log.WithFields(logrus.Fields{
		"event": "queue_not_found",
		"name":  name,
	}).Warn("queue not found, creating now")
	url, err := l.client.EnsureQueue(ctx, name, queueAttributes(name, visibilityTimeout))
	if err != nil {
		return "", fmt.Errorf("%w: create queue %s: %w", ErrTopology, name, err)
	}
	return url, nil
}

// queueAttributes never sends FifoQueue for standard queues, the service
// rejects it.
func queueAttributes(name string, visibilityTimeout int) map[string]string {
	attrs := map[string]string{
		queue.AttributeVisibilityTimeout: strconv.Itoa(visibilityTimeout),
	}
	if queue.IsFIFO(name) {
		attrs[queue.AttributeFifoQueue] = "true"
	}
	return attrs
}
