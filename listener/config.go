package listener

import (
	"fmt"
	"strings"
	"time"
)

// Option tunes a Config before it is validated.
type Option func(*Config)

// Config is the validated, read-only description of what a Listener consumes.
// Build it with NewConfig; the zero value is not usable.
type Config struct {
	queueName              string
	queueURL               string
	errorQueueName         string
	visibilityTimeout      int
	errorVisibilityTimeout int
	pollInterval           time.Duration
	waitTimeSeconds        int
	maxMessages            int
	forceDelete            bool
	attributeNames         []string
	messageAttributeNames  []string
	settleTimeout          time.Duration
}

// NewConfig applies opts over the defaults and validates the result.
func NewConfig(queueName string, opts ...Option) (Config, error) {
	cfg := Config{
		queueName:              strings.TrimSpace(queueName),
		visibilityTimeout:      600,
		errorVisibilityTimeout: 600,
		pollInterval:           60 * time.Second,
		waitTimeSeconds:        0,
		maxMessages:            1,
		settleTimeout:          5 * time.Second,
	}
	for _, o := range opts {
		o(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.queueName == "" {
		return fmt.Errorf("%w: queue name is required", ErrConfiguration)
	}
	if c.maxMessages < 1 || c.maxMessages > 10 {
		return fmt.Errorf("%w: max number of messages must be between 1 and 10, got %d", ErrConfiguration, c.maxMessages)
	}
	if c.waitTimeSeconds < 0 || c.waitTimeSeconds > 20 {
		return fmt.Errorf("%w: wait time must be between 0 and 20 seconds, got %d", ErrConfiguration, c.waitTimeSeconds)
	}
	if c.visibilityTimeout < 0 || c.visibilityTimeout > 43200 {
		return fmt.Errorf("%w: visibility timeout must be between 0 and 43200 seconds, got %d", ErrConfiguration, c.visibilityTimeout)
	}
	if c.errorVisibilityTimeout < 0 || c.errorVisibilityTimeout > 43200 {
		return fmt.Errorf("%w: error visibility timeout must be between 0 and 43200 seconds, got %d", ErrConfiguration, c.errorVisibilityTimeout)
	}
	if c.pollInterval < 0 {
		return fmt.Errorf("%w: poll interval must not be negative", ErrConfiguration)
	}
	if c.settleTimeout <= 0 {
		return fmt.Errorf("%w: settle timeout must be positive", ErrConfiguration)
	}
	if c.errorQueueName != "" && c.errorQueueName == c.queueName {
		return fmt.Errorf("%w: error queue must differ from the source queue", ErrConfiguration)
	}
	return nil
}

// WithQueueURL skips lookup and creation of the source queue.
func WithQueueURL(url string) Option {
	return func(c *Config) {
		c.queueURL = url
	}
}

// WithErrorQueue routes handler failures to the named queue.
func WithErrorQueue(name string) Option {
	return func(c *Config) {
		c.errorQueueName = strings.TrimSpace(name)
	}
}

// WithVisibilityTimeout sets the source queue visibility timeout used on creation. Default: 600.
func WithVisibilityTimeout(seconds int) Option {
	return func(c *Config) {
		c.visibilityTimeout = seconds
	}
}

// WithErrorVisibilityTimeout sets the error queue visibility timeout used on creation. Default: 600.
func WithErrorVisibilityTimeout(seconds int) Option {
	return func(c *Config) {
		c.errorVisibilityTimeout = seconds
	}
}

// WithPollInterval sets the idle backoff after an empty receive. Default: 60s.
func WithPollInterval(d time.Duration) Option {
	return func(c *Config) {
		c.pollInterval = d
	}
}

// WithWaitTimeSeconds sets the server side long poll wait, 0 means short polling.
func WithWaitTimeSeconds(seconds int) Option {
	return func(c *Config) {
		c.waitTimeSeconds = seconds
	}
}

// WithMaxMessages bounds the batch size of a receive call, 1..10. Default: 1.
func WithMaxMessages(n int) Option {
	return func(c *Config) {
		c.maxMessages = n
	}
}

// WithForceDelete deletes messages before they are handled.
func WithForceDelete(force bool) Option {
	return func(c *Config) {
		c.forceDelete = force
	}
}

// WithAttributeNames sets the system attributes requested on receive.
func WithAttributeNames(names ...string) Option {
	return func(c *Config) {
		c.attributeNames = append([]string(nil), names...)
	}
}

// WithMessageAttributeNames sets the message attributes requested on receive.
func WithMessageAttributeNames(names ...string) Option {
	return func(c *Config) {
		c.messageAttributeNames = append([]string(nil), names...)
	}
}

// WithSettleTimeout bounds delete and publish calls. Default: 5s.
func WithSettleTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.settleTimeout = d
	}
}

// QueueName is the source queue name.
func (c Config) QueueName() string { return c.queueName }

// QueueURL is empty unless set with WithQueueURL.
func (c Config) QueueURL() string { return c.queueURL }

// ErrorQueueName is empty when failures are not routed.
func (c Config) ErrorQueueName() string { return c.errorQueueName }

// VisibilityTimeout is applied when the source queue is created.
func (c Config) VisibilityTimeout() int { return c.visibilityTimeout }

// ErrorVisibilityTimeout is applied when the error queue is created.
func (c Config) ErrorVisibilityTimeout() int { return c.errorVisibilityTimeout }

// PollInterval is the wait after an empty or failed receive.
func (c Config) PollInterval() time.Duration { return c.pollInterval }

// WaitTimeSeconds is the long poll wait of a receive call.
func (c Config) WaitTimeSeconds() int { return c.waitTimeSeconds }

// MaxMessages bounds a receive batch.
func (c Config) MaxMessages() int { return c.maxMessages }

// ForceDelete reports whether messages are deleted before handling.
func (c Config) ForceDelete() bool { return c.forceDelete }

// SettleTimeout bounds delete and error publish calls.
func (c Config) SettleTimeout() time.Duration { return c.settleTimeout }

// AttributeNames returns a copy.
func (c Config) AttributeNames() []string {
	return append([]string(nil), c.attributeNames...)
}

// MessageAttributeNames returns a copy.
func (c Config) MessageAttributeNames() []string {
	return append([]string(nil), c.messageAttributeNames...)
}
