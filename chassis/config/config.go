package config

import (
	"errors"
	"io/fs"
	"io/ioutil"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	"github.com/freundallein/listener/backend/chassis/queue"
	"github.com/freundallein/listener/backend/listener"
)

// DefaultMetricsAddr ...
const DefaultMetricsAddr = ":2112"

// AppConfig ...
type AppConfig struct {
	AWS struct {
		Region             string `yaml:"region"`
		AccessKeyID        string `yaml:"access_key_id"`
		SecretAccessKey    string `yaml:"secret_access_key"`
		CredentialsFile    string `yaml:"credentials_file"`
		CredentialsProfile string `yaml:"credentials_profile"`
		Endpoint           string `yaml:"endpoint"`
		Retries            int    `yaml:"retries"`
	} `yaml:"aws"`
	Listener struct {
		Queue                  string   `yaml:"queue"`
		QueueURL               string   `yaml:"queue_url"`
		Interval               *int     `yaml:"interval"`
		VisibilityTimeout      *int     `yaml:"visibility_timeout"`
		MessageAttributeNames  []string `yaml:"message_attribute_names"`
		AttributeNames         []string `yaml:"attribute_names"`
		ForceDelete            bool     `yaml:"force_delete"`
		WaitTime               int      `yaml:"wait_time"`
		MaxNumberOfMessages    *int     `yaml:"max_number_of_messages"`
		ErrorQueue             string   `yaml:"error_queue"`
		ErrorVisibilityTimeout *int     `yaml:"error_visibility_timeout"`
		Workers                int      `yaml:"workers"`
		LogLevel               string   `yaml:"loglevel"`
		Handler                string   `yaml:"handler"`
		FailureRate            float64  `yaml:"failure_rate"`
	} `yaml:"listener"`
	Storage struct {
		DSN string `yaml:"dsn"`
	} `yaml:"storage"`
	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
}

// Read loads .env when present, then the YAML file named by CFG_PATH.
func Read() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return ReadFile(os.Getenv("CFG_PATH"))
}

// ReadFile ...
func ReadFile(filename string) (*AppConfig, error) {
	buff, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return Parse(buff)
}

// Parse ...
func Parse(buff []byte) (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := yaml.Unmarshal(buff, cfg); err != nil {
		return nil, err
	}
	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = DefaultMetricsAddr
	}
	return cfg, nil
}

// ListenerConfig converts the listener section. Unset numeric keys keep the
// listener defaults.
func (cfg *AppConfig) ListenerConfig() (listener.Config, error) {
	lst := cfg.Listener
	opts := []listener.Option{
		listener.WithQueueURL(lst.QueueURL),
		listener.WithErrorQueue(lst.ErrorQueue),
		listener.WithForceDelete(lst.ForceDelete),
		listener.WithWaitTimeSeconds(lst.WaitTime),
		listener.WithAttributeNames(lst.AttributeNames...),
		listener.WithMessageAttributeNames(lst.MessageAttributeNames...),
	}
	if lst.Interval != nil {
		opts = append(opts, listener.WithPollInterval(time.Duration(*lst.Interval)*time.Second))
	}
	if lst.VisibilityTimeout != nil {
		opts = append(opts, listener.WithVisibilityTimeout(*lst.VisibilityTimeout))
	}
	if lst.ErrorVisibilityTimeout != nil {
		opts = append(opts, listener.WithErrorVisibilityTimeout(*lst.ErrorVisibilityTimeout))
	}
	if lst.MaxNumberOfMessages != nil {
		opts = append(opts, listener.WithMaxMessages(*lst.MaxNumberOfMessages))
	}
	return listener.NewConfig(lst.Queue, opts...)
}

// QueueConfig ...
func (cfg *AppConfig) QueueConfig() queue.Config {
	return queue.Config{
		Endpoint:           cfg.AWS.Endpoint,
		Region:             cfg.AWS.Region,
		AccessKeyID:        cfg.AWS.AccessKeyID,
		SecretAccessKey:    cfg.AWS.SecretAccessKey,
		CredentialsFile:    cfg.AWS.CredentialsFile,
		CredentialsProfile: cfg.AWS.CredentialsProfile,
		Retries:            cfg.AWS.Retries,
	}
}
