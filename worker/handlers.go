package worker

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/freundallein/listener/backend/chassis/monkey"
	"github.com/freundallein/listener/backend/chassis/storage"
	"github.com/freundallein/listener/backend/listener"
)

// LogHandler logs every message and never fails.
func LogHandler(logger *logrus.Entry) listener.Handler {
	return listener.HandlerFunc(func(ctx context.Context, body interface{}, messageAttributes, attributes map[string]string) error {
		logger.WithFields(logrus.Fields{
			"event":              "handle_message",
			"message_attributes": messageAttributes,
			"attributes":         attributes,
		}).Info(body)
		return nil
	})
}

// StoreHandler saves message bodies to repo, keyed by queue and body content.
// Messages with equal JSON bodies are stored once whatever their message ids,
// so a producer retrying a send does not create a second row. ErrDuplicate
// counts as success.
func StoreHandler(queueName string, repo storage.MessageRepository, logger *logrus.Entry) listener.Handler {
	return listener.HandlerFunc(func(ctx context.Context, body interface{}, messageAttributes, attributes map[string]string) error {
		msg, err := storage.NewMessage(queueName, body, messageAttributes)
		if err != nil {
			return err
		}
		err = repo.Save(ctx, msg)
		if errors.Is(err, storage.ErrDuplicate) {
			logger.WithFields(logrus.Fields{
				"event":  "insert_message_duplicated",
				"digest": msg.Digest,
			}).Warn("message already stored")
			return nil
		}
		if err != nil {
			return err
		}
		logger.WithFields(logrus.Fields{
			"event":  "message_stored",
			"digest": msg.Digest,
		}).Debug("successfully stored message")
		return nil
	})
}

// MonkeyHandler fails successful calls of next at random, to exercise the
// error queue against a live broker.
func MonkeyHandler(next listener.Handler, m *monkey.Monkey) listener.Handler {
	return listener.HandlerFunc(func(ctx context.Context, body interface{}, messageAttributes, attributes map[string]string) error {
		return m.RandomizeError(next.HandleMessage(ctx, body, messageAttributes, attributes))
	})
}
