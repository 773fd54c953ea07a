package listener

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/freundallein/listener/backend/chassis/metrics"
	"github.com/freundallein/listener/backend/chassis/protocol"
	"github.com/freundallein/listener/backend/chassis/queue"
)

// errorRouter publishes a FailureRecord for every failed handler call.
// It is owned by a single listener loop and needs no locking.
type errorRouter struct {
	client            queue.Client
	source            string
	name              string
	visibilityTimeout int
	settleTimeout     time.Duration
	queueURL          string
}

func newErrorRouter(client queue.Client, cfg Config) *errorRouter {
	if cfg.ErrorQueueName() == "" {
		return nil
	}
	return &errorRouter{
		client:            client,
		source:            cfg.QueueName(),
		name:              cfg.ErrorQueueName(),
		visibilityTimeout: cfg.ErrorVisibilityTimeout(),
		settleTimeout:     cfg.SettleTimeout(),
	}
}

// route never returns an error: publish failures are logged and dropped.
func (r *errorRouter) route(failure error, log *logrus.Entry) {
	log = log.WithField("error_queue", r.name)
	record := protocol.NewFailureRecord(failure)
	payload, err := record.JSON()
	if err != nil {
		log.WithFields(logrus.Fields{
			"event": "failure_serialize_failed",
		}).Error(err)
		metrics.PublishFailures.WithLabelValues(r.source).Inc()
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.settleTimeout)
	defer cancel()

	url, err := r.resolve(ctx)
	if err != nil {
		log.WithFields(logrus.Fields{
			"event": "error_queue_unavailable",
		}).Error(err)
		metrics.PublishFailures.WithLabelValues(r.source).Inc()
		return
	}
	if err := r.client.Publish(ctx, url, payload); err != nil {
		if queue.IsNotFound(err) {
			r.queueURL = ""
		}
		log.WithFields(logrus.Fields{
			"event": "failure_publish_failed",
		}).Error(err)
		metrics.PublishFailures.WithLabelValues(r.source).Inc()
		return
	}
	log.WithFields(logrus.Fields{
		"event": "failure_published",
	}).Info("pushed exception to error queue: ", record)
	metrics.FailuresPublished.WithLabelValues(r.source).Inc()
}

// resolve creates the error queue on first use, independently of Init.
func (r *errorRouter) resolve(ctx context.Context) (string, error) {
	if r.queueURL != "" {
		return r.queueURL, nil
	}
	url, err := r.client.EnsureQueue(ctx, r.name, queueAttributes(r.name, r.visibilityTimeout))
	if err != nil {
		return "", err
	}
	r.queueURL = url
	return url, nil
}
