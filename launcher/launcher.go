package launcher

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/freundallein/listener/backend/chassis/queue"
)

var letters = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")

// Config ...
type Config struct {
	Client   queue.Client
	Queue    string
	Interval time.Duration
	Workers  int
	// Count limits messages per worker, zero means until cancelled.
	Count    int
	Logger   *logrus.Entry
}

// Sample is the payload published by the launcher.
type Sample struct {
	ID     string    `json:"id"`
	Random string    `json:"random"`
	Worker int       `json:"worker"`
	SentDt time.Time `json:"sent_dt"`
}

func randSeq(rnd *rand.Rand, n int) string {
	b := make([]rune, n)
	for i := range b {
		b[i] = letters[rnd.Intn(len(letters))]
	}
	return string(b)
}

func worker(ctx context.Context, cfg *Config, url string, workerID int, group *sync.WaitGroup) {
	defer group.Done()
	log := cfg.Logger.WithField("worker", workerID)
	rnd := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))
	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for sent := 0; cfg.Count == 0 || sent < cfg.Count; {
		message := Sample{
			ID:     uuid.NewString(),
			Random: randSeq(rnd, 10),
			Worker: workerID,
			SentDt: time.Now().UTC(),
		}
		jsonMsg, err := json.Marshal(message)
		if err != nil {
			log.WithFields(logrus.Fields{
				"event": "serialize_failed",
			}).Error(err)
			return
		}
		if err := cfg.Client.Publish(ctx, url, string(jsonMsg)); err != nil {
			log.WithFields(logrus.Fields{
				"event": "send_message_failed",
			}).Error(err)
		} else {
			sent++
			log.WithFields(logrus.Fields{
				"event": "send_message",
				"id":    message.ID,
			}).Debug("message sent")
		}
		select {
		case <-ctx.Done():
			log.WithFields(logrus.Fields{
				"event": "ctx_canceled",
			}).Info("exit goroutine")
			return
		case <-ticker.C:
		}
	}
}

// Run makes sure the target queue exists and starts the publishing workers.
func Run(ctx context.Context, cfg *Config, group *sync.WaitGroup) error {
	if cfg.Logger == nil {
		cfg.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	attributes := map[string]string{}
	if queue.IsFIFO(cfg.Queue) {
		attributes[queue.AttributeFifoQueue] = "true"
	}
	url, err := cfg.Client.EnsureQueue(ctx, cfg.Queue, attributes)
	if err != nil {
		return err
	}
	cfg.Logger.WithFields(logrus.Fields{
		"event": "start_service",
		"url":   url,
	}).Info("starting ", cfg.Workers, " workers")
	for wrk := 1; wrk <= cfg.Workers; wrk++ {
		group.Add(1)
		go worker(ctx, cfg, url, wrk, group)
	}
	return nil
}
