package listener

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/freundallein/listener/backend/chassis/metrics"
	"github.com/freundallein/listener/backend/chassis/protocol"
	"github.com/freundallein/listener/backend/chassis/queue"
)

// Listener polls one queue and feeds every message to a Handler, one at a
// time. Run several listeners for parallelism; a single Listener is not safe
// for concurrent use.
type Listener struct {
	cfg     Config
	client  queue.Client
	handler Handler
	router  *errorRouter
	log     *logrus.Entry

	// wait blocks for d or until ctx is done.
	wait func(ctx context.Context, d time.Duration)

	queueURL    string
	initialized bool
}

// New wires a Listener. Call Init (or Run) before Listen.
func New(cfg Config, client queue.Client, handler Handler, logger *logrus.Entry) (*Listener, error) {
	if cfg.QueueName() == "" {
		return nil, fmt.Errorf("%w: queue name is required", ErrConfiguration)
	}
	if client == nil {
		return nil, fmt.Errorf("%w: queue client is required", ErrConfiguration)
	}
	if handler == nil {
		return nil, fmt.Errorf("%w: handler is required", ErrConfiguration)
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Listener{
		cfg:     cfg,
		client:  client,
		handler: handler,
		router:  newErrorRouter(client, cfg),
		log:     logger.WithField("queue", cfg.QueueName()),
		wait:    sleep,
	}, nil
}

// Run initializes the topology and listens until ctx is cancelled.
func (l *Listener) Run(ctx context.Context) error {
	if err := l.Init(ctx); err != nil {
		return err
	}
	return l.Listen(ctx)
}

// Listen polls until ctx is cancelled and returns ctx.Err(). Failures while
// receiving, decoding, handling or settling are logged and never stop it.
func (l *Listener) Listen(ctx context.Context) error {
	if !l.initialized {
		return ErrNotInitialized
	}
	l.log.WithFields(logrus.Fields{
		"event": "start_listening",
	}).Info("listening to queue ", l.cfg.QueueName())
	if l.router != nil {
		l.log.WithFields(logrus.Fields{
			"event": "start_listening",
		}).Info("using error queue ", l.cfg.ErrorQueueName())
	}

	params := queue.ReceiveParams{
		MaxMessages:           l.cfg.MaxMessages(),
		WaitTimeSeconds:       l.cfg.WaitTimeSeconds(),
		AttributeNames:        l.cfg.AttributeNames(),
		MessageAttributeNames: l.cfg.MessageAttributeNames(),
	}
	name := l.cfg.QueueName()
	for {
		select {
		case <-ctx.Done():
			l.log.WithFields(logrus.Fields{
				"event": "ctx_canceled",
			}).Info("exit listener")
			return ctx.Err()
		default:
		}

		messages, err := l.client.Receive(ctx, l.queueURL, params)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			l.log.WithFields(logrus.Fields{
				"event": "receive_failed",
			}).Error(err)
			metrics.ReceiveFailures.WithLabelValues(name).Inc()
			l.wait(ctx, l.cfg.PollInterval())
			continue
		}
		if len(messages) == 0 {
			metrics.EmptyPolls.WithLabelValues(name).Inc()
			l.wait(ctx, l.cfg.PollInterval())
			continue
		}

		metrics.MessagesReceived.WithLabelValues(name).Add(float64(len(messages)))
		l.log.WithFields(logrus.Fields{
			"event": "receive_messages",
		}).Infof("%d messages received", len(messages))
		for i, msg := range messages {
			if ctx.Err() != nil {
				// Untouched messages come back after the visibility timeout.
				l.log.WithFields(logrus.Fields{
					"event": "batch_interrupted",
				}).Infof("%d messages left in the queue", len(messages)-i)
				break
			}
			l.process(ctx, msg)
		}
	}
}

func (l *Listener) process(ctx context.Context, msg *queue.RecvMessage) {
	log := l.log.WithField("message_id", msg.ID)

	var body interface{}
	if err := json.Unmarshal([]byte(msg.Body), &body); err != nil {
		// Left in the queue: it comes back after the visibility timeout.
		log.WithFields(logrus.Fields{
			"event": "receive_broken_message",
		}).Warn("unable to parse message, JSON is not formatted properly: ", err)
		metrics.DecodeFailures.WithLabelValues(l.cfg.QueueName()).Inc()
		return
	}

	var err error
	if l.cfg.ForceDelete() {
		if !l.delete(msg, log) {
			return
		}
		err = l.handle(ctx, body, msg)
	} else {
		err = l.handle(ctx, body, msg)
		if err == nil {
			l.delete(msg, log)
		}
	}
	metrics.Handled(l.cfg.QueueName(), err)
	if err == nil {
		log.WithFields(logrus.Fields{
			"event": "message_handled",
		}).Debug("message handled")
		return
	}

	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		log.WithFields(logrus.Fields{
			"event":        "handle_interrupted",
			"force_delete": l.cfg.ForceDelete(),
		}).Warn(err)
		return
	}

	fields := logrus.Fields{
		"event":          "handle_failed",
		"exception_type": protocol.TypeName(err),
		"force_delete":   l.cfg.ForceDelete(),
	}
	if perr, ok := err.(*PanicError); ok {
		fields["stack"] = string(perr.Stack)
	}
	log.WithFields(fields).Error(err)
	if l.router != nil {
		l.router.route(err, log)
	}
}

// handle runs the handler and turns a panic into a *PanicError.
func (l *Listener) handle(ctx context.Context, body interface{}, msg *queue.RecvMessage) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return l.handler.HandleMessage(ctx, body, msg.MessageAttributes, msg.Attributes)
}

// delete uses its own context so a delete in flight survives cancellation of
// the loop.
func (l *Listener) delete(msg *queue.RecvMessage, log *logrus.Entry) bool {
	ctx, cancel := context.WithTimeout(context.Background(), l.cfg.SettleTimeout())
	defer cancel()

	if err := l.client.Delete(ctx, l.queueURL, msg.ReceiptHandle); err != nil {
		log.WithFields(logrus.Fields{
			"event": "ack_message_failed",
		}).Error(err)
		metrics.DeleteFailures.WithLabelValues(l.cfg.QueueName()).Inc()
		return false
	}
	metrics.MessagesDeleted.WithLabelValues(l.cfg.QueueName()).Inc()
	return true
}

// QueueURL is the resolved source queue url, empty before Init.
func (l *Listener) QueueURL() string {
	return l.queueURL
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
