package mqttengine

import (
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	infmqtt "github.com/kilianp07/islandsim/infra/mqtt"
)

// Config defines the broker connection and the request/response topics
// shared by the remote engine client and the agent serving it.
type Config struct {
	infmqtt.Connection `json:",squash"`
	TopicPrefix        string `json:"topic_prefix"`
	QoS                byte   `json:"qos"`
	TimeoutMS          int    `json:"timeout_ms"`
	MaxRetries         int    `json:"max_retries"`
	BackoffMS          int    `json:"backoff_ms"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.ClientID == "" {
		c.ClientID = "islandsim-" + uuid.NewString()[:8]
	}
	if c.TopicPrefix == "" {
		c.TopicPrefix = "islandsim/solver"
	}
	if c.TimeoutMS <= 0 {
		c.TimeoutMS = 5000
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BackoffMS <= 0 {
		c.BackoffMS = 100
	}
}

// Validate reports configuration errors.
func (c Config) Validate() error {
	if err := c.Connection.Validate(); err != nil {
		return fmt.Errorf("mqtt solver: %w", err)
	}
	if c.QoS > 2 {
		return fmt.Errorf("mqtt solver: invalid qos %d", c.QoS)
	}
	return nil
}

// RequestTopic is where agents listen for engine calls.
func (c Config) RequestTopic() string { return c.TopicPrefix + "/request" }

// ResponseTopic is the private reply topic of one client.
func (c Config) ResponseTopic() string { return c.TopicPrefix + "/response/" + c.ClientID }

func (c Config) timeout() time.Duration { return time.Duration(c.TimeoutMS) * time.Millisecond }

func (c Config) backoff() time.Duration { return time.Duration(c.BackoffMS) * time.Millisecond }

// NewClientOptions builds paho client options from Config.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	return infmqtt.NewClientOptions(cfg.Connection)
}
