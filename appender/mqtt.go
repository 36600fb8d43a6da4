package appender

import (
	"bytes"
	"time"

	"github.com/abyssdigger/fwlgr"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	DefaultMQTTTimeout = time.Second

	_MQTT_CLIENT_ID_PREFIX         = "fwlgr-"
	_MQTT_DISCONNECT_QUIESCE_MS    = 250
	_ERROR_MESSAGE_MQTT_NO_BROKER  = "mqtt appender: empty broker"
	_ERROR_MESSAGE_MQTT_NO_TOPIC   = "mqtt appender: empty topic"
	_ERROR_MESSAGE_MQTT_TIMEOUT    = "publish timeout"
	_ERROR_MESSAGE_MQTT_DISCONNECT = "mqtt client is not connected"
)

// Publisher is the part of an MQTT client the appender uses. mqtt.Client
// satisfies it.
type Publisher interface {
	IsConnectionOpen() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTOptions configures an MQTT appender.
type MQTTOptions struct {
	Broker    string // e.g. "tcp://broker:1883"
	Topic     string
	ClientID  string // random "fwlgr-xxxxxxxx" when empty
	Username  string
	Password  string
	QoS       byte
	Retained  bool
	Timeout   time.Duration // wait for a publish to complete
	Formatter fwlgr.Formatter
}

// MQTT publishes every formatted line as one message on a topic. A probe
// reports whether the client connection is up.
type MQTT struct {
	*fwlgr.FormattingAppender
	out    *mqttOutput
	client mqtt.Client
}

type mqttOutput struct {
	pub      Publisher
	topic    string
	qos      byte
	retained bool
	timeout  time.Duration
}

// NewMQTT creates an MQTT client connecting in the background (with automatic
// reconnection) and an appender publishing through it.
func NewMQTT(opts MQTTOptions) (*MQTT, error) {
	if opts.Broker == "" {
		return nil, errors.New(_ERROR_MESSAGE_MQTT_NO_BROKER)
	}
	if opts.ClientID == "" {
		opts.ClientID = _MQTT_CLIENT_ID_PREFIX + uuid.NewString()[:8]
	}
	copts := mqtt.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true)
	if opts.Username != "" {
		copts.SetUsername(opts.Username).SetPassword(opts.Password)
	}
	client := mqtt.NewClient(copts)
	m, err := NewMQTTWithPublisher(client, opts)
	if err != nil {
		return nil, err
	}
	m.client = client
	client.Connect()
	return m, nil
}

// NewMQTTWithPublisher creates an appender over an existing client.
func NewMQTTWithPublisher(pub Publisher, opts MQTTOptions) (*MQTT, error) {
	if opts.Topic == "" {
		return nil, errors.New(_ERROR_MESSAGE_MQTT_NO_TOPIC)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultMQTTTimeout
	}
	out := &mqttOutput{
		pub:      pub,
		topic:    opts.Topic,
		qos:      opts.QoS,
		retained: opts.Retained,
		timeout:  opts.Timeout,
	}
	return &MQTT{
		FormattingAppender: fwlgr.NewFormattingAppender(out, opts.Formatter),
		out:                out,
	}, nil
}

func (o *mqttOutput) Write(p []byte) (int, error) {
	if !o.pub.IsConnectionOpen() {
		return 0, errors.New(_ERROR_MESSAGE_MQTT_DISCONNECT)
	}
	payload := bytes.TrimRight(p, "\r\n")
	token := o.pub.Publish(o.topic, o.qos, o.retained, payload)
	if !token.WaitTimeout(o.timeout) {
		return 0, errors.New(_ERROR_MESSAGE_MQTT_TIMEOUT)
	}
	if err := token.Error(); err != nil {
		return 0, errors.Wrapf(err, "publish to %s", o.topic)
	}
	return len(p), nil
}

func (o *mqttOutput) Ready() bool {
	return o.pub.IsConnectionOpen()
}

// Close disconnects the client created by NewMQTT. A client passed to
// NewMQTTWithPublisher is left to its owner.
func (m *MQTT) Close() error {
	if m.client != nil {
		m.client.Disconnect(_MQTT_DISCONNECT_QUIESCE_MS)
	}
	return nil
}
