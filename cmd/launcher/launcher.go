package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/freundallein/listener/backend/chassis/config"
	"github.com/freundallein/listener/backend/chassis/logging"
	"github.com/freundallein/listener/backend/chassis/queue"
	"github.com/freundallein/listener/backend/launcher"
)

func main() {
	appCfg, err := config.Read()
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"event": "config_read_failed",
		}).Fatal(err)
	}
	log := logging.New("launcher", appCfg.Listener.LogLevel, os.Stdout)

	queueClient, err := queue.InitAWSQueue(appCfg.QueueConfig(), log)
	if err != nil {
		log.WithFields(logrus.Fields{
			"event": "queue_init_failed",
		}).Fatal(err)
	}
	interval := time.Second
	if appCfg.Listener.Interval != nil && *appCfg.Listener.Interval > 0 {
		interval = time.Duration(*appCfg.Listener.Interval) * time.Second
	}
	// Reuse the listener's queue so both binaries run against one config.
	cfg := &launcher.Config{
		Client:   queueClient,
		Queue:    appCfg.Listener.Queue,
		Interval: interval,
		Workers:  appCfg.Listener.Workers,
		Logger:   log,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	var group sync.WaitGroup
	ctx, cancel := context.WithCancel(context.Background())

	if err := launcher.Run(ctx, cfg, &group); err != nil {
		log.WithFields(logrus.Fields{
			"event": "init_topology_failed",
		}).Fatal(err)
	}
	log.WithFields(logrus.Fields{
		"event": "init_service",
	}).Info("launcher initialized")
	<-done
	log.WithFields(logrus.Fields{
		"event": "ctx_cancel",
	}).Info("received syscall")
	cancel()
	group.Wait()
}
