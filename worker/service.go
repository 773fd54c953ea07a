package worker

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/freundallein/listener/backend/chassis/queue"
	"github.com/freundallein/listener/backend/listener"
)

// Config ...
type Config struct {
	Listener  listener.Config
	Handler   listener.Handler
	Workers   int
	// NewClient is called once per worker, listeners never share a client.
	NewClient func(workerID int) (queue.Client, error)
	Logger    *logrus.Entry
}

// Run starts cfg.Workers listeners and blocks until ctx is cancelled or one
// of them fails to start. Cancellation is not an error.
func Run(ctx context.Context, cfg *Config) error {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	logger.WithFields(logrus.Fields{
		"event": "start_service",
	}).Info("starting ", workers, " workers")

	listeners := make([]*listener.Listener, 0, workers)
	for wrk := 1; wrk <= workers; wrk++ {
		client, err := cfg.NewClient(wrk)
		if err != nil {
			logger.WithFields(logrus.Fields{
				"event":  "queue_init_failed",
				"worker": wrk,
			}).Error(err)
			return err
		}
		l, err := listener.New(cfg.Listener, client, cfg.Handler, logger.WithField("worker", wrk))
		if err != nil {
			return err
		}
		listeners = append(listeners, l)
	}

	group, groupCtx := errgroup.WithContext(ctx)
	for i, l := range listeners {
		workerLog := logger.WithField("worker", i+1)
		l := l
		group.Go(func() error {
			err := l.Run(groupCtx)
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				workerLog.WithFields(logrus.Fields{
					"event": "ctx_canceled",
				}).Info("exit goroutine")
				return nil
			}
			return err
		})
	}
	return group.Wait()
}
