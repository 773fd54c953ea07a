package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/freundallein/listener/backend/chassis/config"
	"github.com/freundallein/listener/backend/chassis/logging"
	"github.com/freundallein/listener/backend/chassis/monkey"
	"github.com/freundallein/listener/backend/chassis/queue"
	"github.com/freundallein/listener/backend/chassis/storage"
	"github.com/freundallein/listener/backend/listener"
	"github.com/freundallein/listener/backend/worker"
)

func main() {
	appCfg, err := config.Read()
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"event": "config_read_failed",
		}).Fatal(err)
	}
	log := logging.New("listener", appCfg.Listener.LogLevel, os.Stdout)

	// Fatal only after run returned, so its deferred cleanup has happened.
	if err := run(appCfg, log); err != nil {
		log.WithFields(logrus.Fields{
			"event": "service_failed",
		}).Fatal(err)
	}
}

func run(appCfg *config.AppConfig, log *logrus.Entry) error {
	listenerCfg, err := appCfg.ListenerConfig()
	if err != nil {
		return err
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var handler listener.Handler
	switch appCfg.Listener.Handler {
	case "store":
		repo, err := storage.InitPGRepository(ctx, storage.Config{DSN: appCfg.Storage.DSN})
		if err != nil {
			return fmt.Errorf("storage connect: %w", err)
		}
		defer repo.Close()
		if err := repo.Migrate(ctx); err != nil {
			return fmt.Errorf("storage migrate: %w", err)
		}
		handler = worker.StoreHandler(listenerCfg.QueueName(), repo, log)
	case "monkey":
		handler = worker.MonkeyHandler(worker.LogHandler(log), monkey.New(appCfg.Listener.FailureRate, 0))
	default:
		handler = worker.LogHandler(log)
	}

	queueCfg := appCfg.QueueConfig()
	cfg := &worker.Config{
		Listener: listenerCfg,
		Handler:  handler,
		Workers:  appCfg.Listener.Workers,
		Logger:   log,
		NewClient: func(workerID int) (queue.Client, error) {
			return queue.InitAWSQueue(queueCfg, log.WithField("worker", workerID))
		},
	}
	log.WithFields(logrus.Fields{
		"event":   "init_service",
		"handler": appCfg.Listener.Handler,
	}).Info("service initialized")

	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.Handler())
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)
	srv := &http.Server{
		Addr:    appCfg.Metrics.Addr,
		Handler: router,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithFields(logrus.Fields{
				"event": "metrics_listen_failed",
			}).Error(err)
		}
	}()

	result := make(chan error, 1)
	go func() {
		result <- worker.Run(ctx, cfg)
	}()

	select {
	case <-done:
		log.WithFields(logrus.Fields{
			"event": "ctx_cancel",
		}).Info("received syscall")
		cancel()
		err = <-result
	case err = <-result:
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithFields(logrus.Fields{
			"event": "metrics_shutdown_failed",
		}).Error(err)
	}
	return err
}
