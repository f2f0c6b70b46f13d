// Package mqtt publishes encoder events to an MQTT broker and receives
// remote configuration commands.
package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"rotenc/encoder"
)

// Client wraps the MQTT client with rotenc-specific topics.
type Client struct {
	client       paho.Client
	clientID     string
	enabled      bool
	log          *slog.Logger
	onConnect    func()
	onDisconnect func()
	onParalysis  func(ms uint32)
}

// Config holds MQTT connection settings.
type Config struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	CACert     string `yaml:"ca_cert"`
	ClientCert string `yaml:"client_cert"`
	ClientKey  string `yaml:"client_key"`
}

// Handlers holds callback functions for MQTT events.
type Handlers struct {
	OnConnect    func()
	OnDisconnect func()
	OnParalysis  func(ms uint32) // remote debounce window change
}

// RotationMessage is the payload published for every detent.
type RotationMessage struct {
	Direction string `json:"direction"`
	Position  int64  `json:"position"`
	Timestamp int64  `json:"timestamp"`
}

// RotationTopic is where rotation events are published.
func RotationTopic(clientID string) string {
	return fmt.Sprintf("rotenc/status/node/%s/rotation", clientID)
}

// PingTopic is where liveness pings are published.
func PingTopic(clientID string) string {
	return fmt.Sprintf("rotenc/status/node/%s/ping", clientID)
}

// ParalysisTopic carries remote debounce window commands.
func ParalysisTopic(clientID string) string {
	return fmt.Sprintf("rotenc/control/node/%s/paralysis", clientID)
}

// New creates a new MQTT client. Returns a disabled no-op client if host is empty.
func New(cfg Config, clientID string, handlers Handlers, log *slog.Logger) (*Client, error) {
	if log == nil {
		log = slog.Default()
	}
	c := &Client{
		clientID:     clientID,
		log:          log,
		onConnect:    handlers.OnConnect,
		onDisconnect: handlers.OnDisconnect,
		onParalysis:  handlers.OnParalysis,
	}

	// If no host configured, return disabled client
	if cfg.Host == "" {
		c.enabled = false
		log.Info("MQTT disabled (no host configured)")
		return c, nil
	}

	c.enabled = true

	// Determine broker URL and TLS config
	var broker string
	var tlsConfig *tls.Config

	hasTLS := cfg.CACert != "" || cfg.ClientCert != ""

	if hasTLS {
		if cfg.Port == 0 {
			cfg.Port = 8883
		}
		broker = fmt.Sprintf("ssl://%s:%d", cfg.Host, cfg.Port)

		var err error
		tlsConfig, err = buildTLSConfig(cfg)
		if err != nil {
			return nil, fmt.Errorf("build TLS config: %w", err)
		}
	} else {
		if cfg.Port == 0 {
			cfg.Port = 1883 // Default non-TLS MQTT port
		}
		broker = fmt.Sprintf("tcp://%s:%d", cfg.Host, cfg.Port)
		log.Warn("MQTT using non-TLS connection", "broker", broker)
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetKeepAlive(60 * time.Second).
		SetConnectionLostHandler(c.handleConnectionLost).
		SetOnConnectHandler(c.handleConnect).
		SetDefaultPublishHandler(c.handleMessage)

	if tlsConfig != nil {
		opts.SetTLSConfig(tlsConfig)
	}

	c.client = paho.NewClient(opts)

	// Route paho's internal logging through slog
	h := log.Handler()
	paho.ERROR = slog.NewLogLogger(h, slog.LevelError)
	paho.CRITICAL = slog.NewLogLogger(h, slog.LevelError)
	paho.WARN = slog.NewLogLogger(h, slog.LevelWarn)

	return c, nil
}

func buildTLSConfig(cfg Config) (*tls.Config, error) {
	tlsConfig := &tls.Config{}

	// Load CA cert if provided
	if cfg.CACert != "" {
		caCert, err := os.ReadFile(cfg.CACert)
		if err != nil {
			return nil, fmt.Errorf("read CA cert: %w", err)
		}
		caPool := x509.NewCertPool()
		if !caPool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("no certificates in %s", cfg.CACert)
		}
		tlsConfig.RootCAs = caPool
	}

	// Load client cert if provided
	if cfg.ClientCert != "" && cfg.ClientKey != "" {
		cert, err := tls.LoadX509KeyPair(cfg.ClientCert, cfg.ClientKey)
		if err != nil {
			return nil, fmt.Errorf("load client cert: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	return tlsConfig, nil
}

// Connect connects to the MQTT broker. If disabled, calls onConnect immediately.
func (c *Client) Connect() error {
	if !c.enabled {
		// Simulate a successful connection so indicators leave the
		// connection lost state.
		if c.onConnect != nil {
			c.onConnect()
		}
		return nil
	}

	if token := c.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("connect: %w", token.Error())
	}
	c.log.Info("MQTT connected")
	return nil
}

// Disconnect disconnects from the MQTT broker. No-op if disabled.
func (c *Client) Disconnect() {
	if !c.enabled || c.client == nil {
		return
	}
	c.client.Disconnect(250)
}

// Subscribe subscribes to a topic. No-op if disabled.
func (c *Client) Subscribe(topic string) error {
	if !c.enabled {
		return nil
	}

	if token := c.client.Subscribe(topic, 0, nil); token.Wait() && token.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", topic, token.Error())
	}
	return nil
}

// Publish publishes a message to a topic. No-op if disabled.
func (c *Client) Publish(topic string, payload string) {
	if !c.enabled {
		return
	}
	c.client.Publish(topic, 0, false, payload)
}

// PublishRotation publishes one detent. No-op if disabled.
func (c *Client) PublishRotation(dir encoder.Direction, position int64) {
	if !c.enabled {
		return
	}
	b, err := json.Marshal(RotationMessage{
		Direction: dir.String(),
		Position:  position,
		Timestamp: time.Now().Unix(),
	})
	if err != nil {
		c.log.Error("encode rotation", "error", err)
		return
	}
	c.client.Publish(RotationTopic(c.clientID), 0, false, b)
}

// PingMessage is the liveness payload. Error carries a failing line read.
type PingMessage struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// NewPingMessage reports "ok", or "degraded" with the error text.
func NewPingMessage(lineErr error) PingMessage {
	if lineErr != nil {
		return PingMessage{Status: "degraded", Error: lineErr.Error()}
	}
	return PingMessage{Status: "ok"}
}

// Ping publishes a liveness message carrying the encoder line health.
func (c *Client) Ping(lineErr error) {
	if !c.enabled {
		return
	}
	b, err := json.Marshal(NewPingMessage(lineErr))
	if err != nil {
		c.log.Error("encode ping", "error", err)
		return
	}
	c.client.Publish(PingTopic(c.clientID), 0, false, b)
}

// IsEnabled returns whether MQTT is enabled.
func (c *Client) IsEnabled() bool {
	return c.enabled
}

// ParseParalysis decodes a debounce window command: a decimal number of
// milliseconds, optionally followed by "ms".
func ParseParalysis(payload []byte) (uint32, error) {
	s := strings.TrimSuffix(strings.TrimSpace(string(payload)), "ms")
	ms, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid paralysis window %q", payload)
	}
	return uint32(ms), nil
}

func (c *Client) handleConnect(client paho.Client) {
	c.log.Info("MQTT connection established")
	if err := c.Subscribe(ParalysisTopic(c.clientID)); err != nil {
		c.log.Error("subscribe", "error", err)
	}
	if c.onConnect != nil {
		c.onConnect()
	}
}

func (c *Client) handleConnectionLost(client paho.Client, err error) {
	c.log.Warn("MQTT connection lost", "error", err)
	if c.onDisconnect != nil {
		c.onDisconnect()
	}
}

func (c *Client) handleMessage(client paho.Client, msg paho.Message) {
	switch msg.Topic() {
	case ParalysisTopic(c.clientID):
		ms, err := ParseParalysis(msg.Payload())
		if err != nil {
			c.log.Warn("ignoring paralysis command", "error", err)
			return
		}
		c.log.Info("paralysis command received", "ms", ms)
		if c.onParalysis != nil {
			c.onParalysis(ms)
		}
	default:
		c.log.Debug("unhandled MQTT message", "topic", msg.Topic())
	}
}
