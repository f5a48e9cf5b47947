// Package mqtt wraps paho.mqtt.golang for the soundmaster controller:
// connection management, publish/subscribe with panic-isolated handlers,
// and automatic re-subscription after a reconnect.
package mqtt

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/kimifish/soundmaster/internal/config"
)

const (
	connectTimeout    = 10 * time.Second
	publishTimeout    = 5 * time.Second
	disconnectQuiesce = 1000 // milliseconds
	keepAlive         = 60 * time.Second
	maxQoS            = 2
)

// MessageHandler is the callback signature for received messages. Paho
// invokes handlers on its own goroutines; they must not block for long.
type MessageHandler func(topic string, payload []byte) error

// subscription is retained so topics can be restored after a reconnect.
type subscription struct {
	topic   string
	qos     byte
	handler MessageHandler
}

// Client is a thin connection wrapper. All methods are safe for
// concurrent use.
type Client struct {
	client pahomqtt.Client
	qos    byte
	logger *slog.Logger

	subMu sync.Mutex
	subs  map[string]subscription
}

// Connect dials the broker and blocks until the first connection attempt
// resolves. Auto-reconnect stays enabled for the lifetime of the client.
func Connect(cfg config.MQTTConfig, logger *slog.Logger) (*Client, error) {
	c := &Client{
		qos:    byte(cfg.QoS),
		logger: logger,
		subs:   make(map[string]subscription),
	}

	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Server, cfg.Port))
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(connectTimeout)
	opts.SetKeepAlive(keepAlive)
	opts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		c.logger.Info("mqtt connected", "server", cfg.Server, "port", cfg.Port)
		c.restoreSubscriptions()
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.logger.Warn("mqtt connection lost", "error", err)
	})

	c.client = pahomqtt.NewClient(opts)
	token := c.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, connectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	return c, nil
}

// Close disconnects after a short quiesce for in-flight operations.
func (c *Client) Close() {
	if c.client == nil {
		return
	}
	c.client.Disconnect(disconnectQuiesce)
}

// IsConnected reports the current connection state.
func (c *Client) IsConnected() bool {
	return c.client.IsConnected()
}

func (c *Client) restoreSubscriptions() {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for _, sub := range c.subs {
		c.client.Subscribe(sub.topic, sub.qos, c.wrapHandler(sub.handler))
	}
}

// wrapHandler adds panic recovery and error logging around a handler. A
// misbehaving payload must never take the paho router down.
func (c *Client) wrapHandler(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				c.logger.Error("mqtt handler panic recovered",
					"topic", msg.Topic(), "panic", r)
			}
		}()
		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			c.logger.Warn("mqtt handler returned error",
				"topic", msg.Topic(), "error", err)
		}
	}
}
